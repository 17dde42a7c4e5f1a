package raid

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/raidforge/raidforge/pkg/blockdev"
	"github.com/raidforge/raidforge/pkg/parity"
	"github.com/raidforge/raidforge/pkg/placement"
	"github.com/raidforge/raidforge/pkg/types"
)

// Mirror copies run in larger units than stripe chunks since raid1 has no
// chunk geometry of its own.
const mirrorBufferSize = 1 << 20

// Engine distributes one source image across a set of disk files according
// to the configured geometry. Single writer, strictly increasing offsets;
// only the progress counter is shared with other goroutines.
type Engine struct {
	cfg    Config
	source types.SourceImage
	disks  []types.DiskFile

	progressMutex sync.Mutex
	progress      int
}

func NewEngine(cfg Config, source types.SourceImage, disks []types.DiskFile) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(disks) < cfg.NumDisks {
		return nil, errors.Wrapf(types.ErrInvalidConfig, "%v requires %d disks, got %d files",
			cfg.Level, cfg.NumDisks, len(disks))
	}
	return &Engine{
		cfg:    cfg,
		source: source,
		disks:  disks,
	}, nil
}

// Progress returns the completed percentage of the current build. Safe to
// call from another goroutine while Build runs.
func (e *Engine) Progress() int {
	e.progressMutex.Lock()
	defer e.progressMutex.Unlock()
	return e.progress
}

func (e *Engine) setProgress(done, total int64) {
	percent := 100
	if total > 0 && done < total {
		percent = int(done * 100 / total)
	}
	e.progressMutex.Lock()
	e.progress = percent
	e.progressMutex.Unlock()
}

// Build runs the layout to completion. The first error aborts the run and
// leaves the disk files as they are for the caller to inspect or discard.
func (e *Engine) Build() error {
	size, err := e.source.Size()
	if err != nil {
		return errors.Wrapf(err, "failed to stat source image %v", e.source.Name())
	}

	logrus.Infof("Starting %v layout: source=%v size=%v disks=%d chunk=%d",
		e.cfg.Level, e.source.Name(), size, e.cfg.NumDisks, e.cfg.ChunkSize)

	switch e.cfg.Level {
	case types.Raid0:
		err = e.buildStriped(size)
	case types.Raid1:
		err = e.buildMirrored(size)
	case types.Raid4, types.Raid5:
		err = e.buildSingleParity(size)
	case types.Raid6:
		err = e.buildDualParity(size)
	case types.Raid10:
		err = e.buildMirroredStripes(size)
	default:
		err = errors.Wrapf(types.ErrInvalidConfig, "no layout engine for level %d", int(e.cfg.Level))
	}
	if err != nil {
		return err
	}

	for i := 0; i < e.cfg.NumDisks; i++ {
		if err := e.disks[i].Sync(); err != nil {
			return errors.Wrapf(err, "failed to sync disk %d", i)
		}
	}

	e.setProgress(size, size)
	logrus.Infof("Completed %v layout of %v bytes across %d disks", e.cfg.Level, size, e.cfg.NumDisks)
	return nil
}

func (e *Engine) writeChunk(diskIndex int, chunk []byte, offset int64) error {
	if offset+int64(len(chunk)) > e.cfg.DiskSize {
		return errors.Errorf("chunk write at offset %v overruns disk %d of size %v",
			offset, diskIndex, e.cfg.DiskSize)
	}
	if _, err := e.disks[diskIndex].WriteAt(chunk, offset); err != nil {
		return errors.Wrapf(err, "failed to write %v bytes at offset %v to disk %d",
			len(chunk), offset, diskIndex)
	}
	return nil
}

// buildStriped lays out raid0: one chunk per disk in rotation, with the
// direction and algorithm variants applied to the chunk index.
func (e *Engine) buildStriped(size int64) error {
	numDisks := e.cfg.NumDisks
	for s := 0; ; s++ {
		offset := int64(s) * e.cfg.ChunkSize
		chunk, err := blockdev.ReadChunk(e.source, offset, e.cfg.ChunkSize)
		if err != nil {
			return err
		}
		if chunk == nil {
			return nil
		}

		adjusted := placement.AdjustIndex(s, numDisks, e.cfg.Algorithm)
		diskIndex := placement.DataDisk(adjusted, numDisks, e.cfg.Direction)
		diskOffset := int64(s/numDisks) * e.cfg.ChunkSize

		if err := e.writeChunk(diskIndex, chunk, diskOffset); err != nil {
			return errors.Wrapf(err, "stripe %d", s)
		}
		e.setProgress(offset+int64(len(chunk)), size)
	}
}

// buildMirrored lays out raid1: the whole image copied verbatim to every disk.
func (e *Engine) buildMirrored(size int64) error {
	for offset := int64(0); offset < size; {
		chunk, err := blockdev.ReadChunk(e.source, offset, mirrorBufferSize)
		if err != nil {
			return err
		}
		if chunk == nil {
			return nil
		}

		for diskIndex := 0; diskIndex < e.cfg.NumDisks; diskIndex++ {
			if err := e.writeChunk(diskIndex, chunk, offset); err != nil {
				return errors.Wrapf(err, "mirror copy at offset %v", offset)
			}
		}
		offset += int64(len(chunk))
		e.setProgress(offset, size)
	}
	return nil
}

// buildSingleParity lays out raid4 and raid5. Raid4 keeps parity on the
// highest-indexed disk for every stripe set; raid5 rotates it per the layout.
func (e *Engine) buildSingleParity(size int64) error {
	numDisks := e.cfg.NumDisks
	offset := int64(0)

	for t := 0; offset < size; t++ {
		parityDisk := numDisks - 1
		if e.cfg.Level == types.Raid5 {
			parityDisk = placement.ParityDisk(t, numDisks, e.cfg.Layout)
		}
		stripeOffset := int64(t) * e.cfg.ChunkSize

		var chunks [][]byte
		for _, diskIndex := range placement.DataDisks(numDisks, parityDisk) {
			chunk, err := blockdev.ReadChunk(e.source, offset, e.cfg.ChunkSize)
			if err != nil {
				return err
			}
			if chunk == nil {
				break
			}
			if err := e.writeChunk(diskIndex, chunk, stripeOffset); err != nil {
				return errors.Wrapf(err, "stripe set %d", t)
			}
			chunks = append(chunks, chunk)
			offset += int64(len(chunk))
		}
		if len(chunks) == 0 {
			return nil
		}

		// A tail set may hold a single short chunk; parity is still written
		// so the stripe invariant holds over the whole disk.
		p, err := parity.XOR(chunks)
		if err != nil {
			return errors.Wrapf(err, "stripe set %d parity", t)
		}
		if err := e.writeChunk(parityDisk, p, stripeOffset); err != nil {
			return errors.Wrapf(err, "stripe set %d parity", t)
		}
		e.setProgress(offset, size)
	}
	return nil
}

// buildDualParity lays out raid6: rotating P and Q parity disks per stripe
// set, with Q computed over the GF(2^8) field.
func (e *Engine) buildDualParity(size int64) error {
	numDisks := e.cfg.NumDisks
	offset := int64(0)

	for t := 0; offset < size; t++ {
		pParityDisk := placement.ParityDisk(t, numDisks, e.cfg.Layout)
		qParityDisk := placement.QParityDisk(pParityDisk, numDisks, e.cfg.Layout)
		stripeOffset := int64(t) * e.cfg.ChunkSize

		var chunks [][]byte
		for _, diskIndex := range placement.DataDisks(numDisks, pParityDisk, qParityDisk) {
			chunk, err := blockdev.ReadChunk(e.source, offset, e.cfg.ChunkSize)
			if err != nil {
				return err
			}
			if chunk == nil {
				break
			}
			if err := e.writeChunk(diskIndex, chunk, stripeOffset); err != nil {
				return errors.Wrapf(err, "stripe set %d", t)
			}
			chunks = append(chunks, chunk)
			offset += int64(len(chunk))
		}
		if len(chunks) == 0 {
			return nil
		}

		p, err := parity.XOR(chunks)
		if err != nil {
			return errors.Wrapf(err, "stripe set %d P parity", t)
		}
		if err := e.writeChunk(pParityDisk, p, stripeOffset); err != nil {
			return errors.Wrapf(err, "stripe set %d P parity", t)
		}

		q, err := parity.Q(chunks)
		if err != nil {
			return errors.Wrapf(err, "stripe set %d Q parity", t)
		}
		if err := e.writeChunk(qParityDisk, q, stripeOffset); err != nil {
			return errors.Wrapf(err, "stripe set %d Q parity", t)
		}
		e.setProgress(offset, size)
	}
	return nil
}

// buildMirroredStripes lays out raid10 as adjacent mirror pairs: chunk s goes
// to pair (s mod pairs), identically on both members.
func (e *Engine) buildMirroredStripes(size int64) error {
	mirrorPairs := e.cfg.NumDisks / 2
	for s := 0; ; s++ {
		offset := int64(s) * e.cfg.ChunkSize
		chunk, err := blockdev.ReadChunk(e.source, offset, e.cfg.ChunkSize)
		if err != nil {
			return err
		}
		if chunk == nil {
			return nil
		}

		pairIndex := s % mirrorPairs
		diskOffset := int64(s/mirrorPairs) * e.cfg.ChunkSize

		if err := e.writeChunk(pairIndex*2, chunk, diskOffset); err != nil {
			return errors.Wrapf(err, "stripe %d primary", s)
		}
		if err := e.writeChunk(pairIndex*2+1, chunk, diskOffset); err != nil {
			return errors.Wrapf(err, "stripe %d mirror", s)
		}
		e.setProgress(offset+int64(len(chunk)), size)
	}
}
