package raid

import (
	"bytes"
	"fmt"

	. "gopkg.in/check.v1"

	"github.com/raidforge/raidforge/pkg/parity"
	"github.com/raidforge/raidforge/pkg/types"
)

const testChunkSize = 4 * 1024

// In-memory disk and source implementations, so layout results can be
// asserted byte-exact without touching the filesystem.
type memDisk struct {
	data []byte
	name string
}

func newMemDisk(size int64, name string) *memDisk {
	return &memDisk{data: make([]byte, size), name: name}
}

func (d *memDisk) ReadAt(buf []byte, offset int64) (int, error) {
	if offset+int64(len(buf)) > int64(len(d.data)) {
		return 0, fmt.Errorf("read beyond disk size")
	}
	return copy(buf, d.data[offset:]), nil
}

func (d *memDisk) WriteAt(buf []byte, offset int64) (int, error) {
	if offset+int64(len(buf)) > int64(len(d.data)) {
		return 0, fmt.Errorf("write beyond disk size")
	}
	return copy(d.data[offset:], buf), nil
}

func (d *memDisk) Size() (int64, error) { return int64(len(d.data)), nil }
func (d *memDisk) Sync() error          { return nil }
func (d *memDisk) Close() error         { return nil }
func (d *memDisk) Name() string         { return d.name }

type memSource struct {
	data []byte
}

func (s *memSource) ReadAt(buf []byte, offset int64) (int, error) {
	if offset >= int64(len(s.data)) {
		return 0, fmt.Errorf("read beyond source size")
	}
	return copy(buf, s.data[offset:]), nil
}

func (s *memSource) Size() (int64, error) { return int64(len(s.data)), nil }
func (s *memSource) Close() error         { return nil }
func (s *memSource) Name() string         { return "source" }

func patternedSource(size int) *memSource {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*7 + i/testChunkSize)
	}
	return &memSource{data: data}
}

func buildArray(c *C, cfg Config, source *memSource) []*memDisk {
	disks := make([]*memDisk, cfg.TotalDisks())
	diskFiles := make([]types.DiskFile, cfg.TotalDisks())
	for i := range disks {
		disks[i] = newMemDisk(cfg.DiskSize, fmt.Sprintf("disk_%d", i))
		diskFiles[i] = disks[i]
	}

	engine, err := NewEngine(cfg, source, diskFiles)
	c.Assert(err, IsNil)
	c.Assert(engine.Build(), IsNil)
	c.Assert(engine.Progress(), Equals, 100)
	return disks
}

func verifyArray(c *C, cfg Config, disks []*memDisk) error {
	diskFiles := make([]types.DiskFile, len(disks))
	for i := range disks {
		diskFiles[i] = disks[i]
	}
	return Verify(cfg, diskFiles)
}

func (s *TestSuite) TestRaid0ThreeChunks(c *C) {
	cfg := validConfig(types.Raid0, 3)
	cfg.ChunkSize = testChunkSize
	source := patternedSource(3 * testChunkSize)

	disks := buildArray(c, cfg, source)

	// Chunk i lands on disk i at offset 0.
	for i := 0; i < 3; i++ {
		expected := source.data[i*testChunkSize : (i+1)*testChunkSize]
		c.Assert(bytes.Equal(disks[i].data[:testChunkSize], expected), Equals, true,
			Commentf("disk %d", i))
	}
}

func (s *TestSuite) TestRaid0Coverage(c *C) {
	// Every source byte appears exactly once across the disk set.
	cfg := validConfig(types.Raid0, 3)
	cfg.ChunkSize = testChunkSize
	numChunks := 10
	source := patternedSource(numChunks * testChunkSize)

	disks := buildArray(c, cfg, source)

	for chunkIndex := 0; chunkIndex < numChunks; chunkIndex++ {
		diskIndex := chunkIndex % 3
		diskOffset := (chunkIndex / 3) * testChunkSize
		expected := source.data[chunkIndex*testChunkSize : (chunkIndex+1)*testChunkSize]
		c.Assert(bytes.Equal(disks[diskIndex].data[diskOffset:diskOffset+testChunkSize], expected),
			Equals, true, Commentf("chunk %d", chunkIndex))
	}

	// Total non-zero payload equals the source size: nothing duplicated.
	written := 0
	for _, disk := range disks {
		for _, b := range disk.data {
			if b != 0 {
				written++
			}
		}
	}
	sourceNonZero := 0
	for _, b := range source.data {
		if b != 0 {
			sourceNonZero++
		}
	}
	c.Assert(written, Equals, sourceNonZero)
}

func (s *TestSuite) TestRaid0Backward(c *C) {
	cfg := validConfig(types.Raid0, 4)
	cfg.ChunkSize = testChunkSize
	cfg.Direction = types.DirectionBackward
	source := patternedSource(4 * testChunkSize)

	disks := buildArray(c, cfg, source)

	for chunkIndex := 0; chunkIndex < 4; chunkIndex++ {
		diskIndex := 3 - chunkIndex%4
		expected := source.data[chunkIndex*testChunkSize : (chunkIndex+1)*testChunkSize]
		c.Assert(bytes.Equal(disks[diskIndex].data[:testChunkSize], expected), Equals, true)
	}
}

func (s *TestSuite) TestRaid0DelayedAlgorithm(c *C) {
	cfg := validConfig(types.Raid0, 4)
	cfg.ChunkSize = testChunkSize
	cfg.Algorithm = types.AlgorithmDelayed
	source := patternedSource(4 * testChunkSize)

	disks := buildArray(c, cfg, source)

	// Adjusted index is s + numDisks/2, so chunk 0 lands on disk 2.
	for chunkIndex := 0; chunkIndex < 4; chunkIndex++ {
		diskIndex := (chunkIndex + 2) % 4
		expected := source.data[chunkIndex*testChunkSize : (chunkIndex+1)*testChunkSize]
		c.Assert(bytes.Equal(disks[diskIndex].data[:testChunkSize], expected), Equals, true)
	}
}

func (s *TestSuite) TestRaid1Mirrors(c *C) {
	cfg := validConfig(types.Raid1, 2)
	cfg.DiskSize = 3 * 1024 * 1024
	// Larger than one copy buffer, not a multiple of it.
	source := patternedSource(1536*1024 + 37)

	disks := buildArray(c, cfg, source)

	for i, disk := range disks {
		c.Assert(bytes.Equal(disk.data[:len(source.data)], source.data), Equals, true,
			Commentf("disk %d", i))
	}
	c.Assert(bytes.Equal(disks[0].data, disks[1].data), Equals, true)
	c.Assert(verifyArray(c, cfg, disks), IsNil)
}

func (s *TestSuite) TestRaid5SingleStripeSet(c *C) {
	cfg := validConfig(types.Raid5, 4)
	cfg.ChunkSize = testChunkSize
	source := patternedSource(3 * testChunkSize)

	disks := buildArray(c, cfg, source)

	// left-symmetric, stripe set 0: parity on disk 3, data on 0,1,2.
	var chunks [][]byte
	for i := 0; i < 3; i++ {
		expected := source.data[i*testChunkSize : (i+1)*testChunkSize]
		c.Assert(bytes.Equal(disks[i].data[:testChunkSize], expected), Equals, true)
		chunks = append(chunks, expected)
	}
	p, err := parity.XOR(chunks)
	c.Assert(err, IsNil)
	c.Assert(bytes.Equal(disks[3].data[:testChunkSize], p), Equals, true)

	c.Assert(verifyArray(c, cfg, disks), IsNil)
}

func (s *TestSuite) TestRaid5ParityRotates(c *C) {
	cfg := validConfig(types.Raid5, 4)
	cfg.ChunkSize = testChunkSize
	// Five full stripe sets of three data chunks each.
	source := patternedSource(5 * 3 * testChunkSize)

	disks := buildArray(c, cfg, source)
	c.Assert(verifyArray(c, cfg, disks), IsNil)

	// Parity cycles 3, 2, 1, 0, 3 across stripe sets: the parity chunk is
	// the XOR of the other three chunks at that stripe offset.
	for t := 0; t < 5; t++ {
		parityDisk := 3 - t%4
		offset := t * testChunkSize
		expected := make([]byte, testChunkSize)
		for diskIndex := 0; diskIndex < 4; diskIndex++ {
			if diskIndex == parityDisk {
				continue
			}
			for i := 0; i < testChunkSize; i++ {
				expected[i] ^= disks[diskIndex].data[offset+i]
			}
		}
		c.Assert(bytes.Equal(disks[parityDisk].data[offset:offset+testChunkSize], expected),
			Equals, true, Commentf("stripe set %d", t))
	}
}

func (s *TestSuite) TestRaid4ParityFixed(c *C) {
	cfg := validConfig(types.Raid4, 4)
	cfg.ChunkSize = testChunkSize
	source := patternedSource(4 * 3 * testChunkSize)

	disks := buildArray(c, cfg, source)
	c.Assert(verifyArray(c, cfg, disks), IsNil)

	// Parity stays on the last disk for every stripe set.
	for t := 0; t < 4; t++ {
		offset := t * testChunkSize
		expected := make([]byte, testChunkSize)
		for diskIndex := 0; diskIndex < 3; diskIndex++ {
			for i := 0; i < testChunkSize; i++ {
				expected[i] ^= disks[diskIndex].data[offset+i]
			}
		}
		c.Assert(bytes.Equal(disks[3].data[offset:offset+testChunkSize], expected),
			Equals, true, Commentf("stripe set %d", t))
	}
}

func (s *TestSuite) TestRaid6SingleStripeSet(c *C) {
	cfg := validConfig(types.Raid6, 5)
	cfg.ChunkSize = testChunkSize
	source := patternedSource(3 * testChunkSize)

	disks := buildArray(c, cfg, source)

	// left-symmetric, stripe set 0: P on disk 4, Q on disk 3, data on 0,1,2.
	var chunks [][]byte
	for i := 0; i < 3; i++ {
		expected := source.data[i*testChunkSize : (i+1)*testChunkSize]
		c.Assert(bytes.Equal(disks[i].data[:testChunkSize], expected), Equals, true)
		chunks = append(chunks, expected)
	}

	p, err := parity.XOR(chunks)
	c.Assert(err, IsNil)
	c.Assert(bytes.Equal(disks[4].data[:testChunkSize], p), Equals, true)

	q, err := parity.Q(chunks)
	c.Assert(err, IsNil)
	c.Assert(bytes.Equal(disks[3].data[:testChunkSize], q), Equals, true)

	c.Assert(verifyArray(c, cfg, disks), IsNil)
}

func (s *TestSuite) TestRaid6MultipleStripeSets(c *C) {
	cfg := validConfig(types.Raid6, 5)
	cfg.ChunkSize = testChunkSize
	source := patternedSource(7 * 3 * testChunkSize)

	disks := buildArray(c, cfg, source)
	c.Assert(verifyArray(c, cfg, disks), IsNil)
}

func (s *TestSuite) TestRaid10MirrorPairs(c *C) {
	cfg := validConfig(types.Raid10, 4)
	cfg.ChunkSize = testChunkSize
	source := patternedSource(6 * testChunkSize)

	disks := buildArray(c, cfg, source)

	// Chunk s goes to pair s mod 2, identically on both members.
	for chunkIndex := 0; chunkIndex < 6; chunkIndex++ {
		pairIndex := chunkIndex % 2
		offset := (chunkIndex / 2) * testChunkSize
		expected := source.data[chunkIndex*testChunkSize : (chunkIndex+1)*testChunkSize]
		c.Assert(bytes.Equal(disks[pairIndex*2].data[offset:offset+testChunkSize], expected),
			Equals, true, Commentf("chunk %d primary", chunkIndex))
		c.Assert(bytes.Equal(disks[pairIndex*2+1].data[offset:offset+testChunkSize], expected),
			Equals, true, Commentf("chunk %d mirror", chunkIndex))
	}
	c.Assert(verifyArray(c, cfg, disks), IsNil)
}

func (s *TestSuite) TestShortFinalChunk(c *C) {
	cfg := validConfig(types.Raid5, 4)
	cfg.ChunkSize = testChunkSize
	// One full stripe set plus one and a half chunks, one byte short.
	source := patternedSource(3*testChunkSize + testChunkSize + testChunkSize/2 - 1)

	disks := buildArray(c, cfg, source)
	c.Assert(verifyArray(c, cfg, disks), IsNil)
}

func (s *TestSuite) TestSparesStayZero(c *C) {
	cfg := validConfig(types.Raid5, 3)
	cfg.ChunkSize = testChunkSize
	cfg.SpareDisks = 1
	source := patternedSource(4 * testChunkSize)

	disks := buildArray(c, cfg, source)
	c.Assert(disks, HasLen, 4)
	c.Assert(bytes.Equal(disks[3].data, make([]byte, cfg.DiskSize)), Equals, true)
}

func (s *TestSuite) TestVerifyDetectsCorruption(c *C) {
	cfg := validConfig(types.Raid6, 5)
	cfg.ChunkSize = testChunkSize
	source := patternedSource(6 * testChunkSize)

	disks := buildArray(c, cfg, source)
	c.Assert(verifyArray(c, cfg, disks), IsNil)

	disks[1].data[testChunkSize/2] ^= 0xff
	c.Assert(verifyArray(c, cfg, disks), NotNil)
}

func (s *TestSuite) TestDiskTooSmallFails(c *C) {
	cfg := validConfig(types.Raid0, 2)
	cfg.ChunkSize = testChunkSize
	cfg.DiskSize = testChunkSize
	source := patternedSource(4 * testChunkSize)

	diskFiles := []types.DiskFile{
		newMemDisk(cfg.DiskSize, "disk_0"),
		newMemDisk(cfg.DiskSize, "disk_1"),
	}
	engine, err := NewEngine(cfg, source, diskFiles)
	c.Assert(err, IsNil)
	c.Assert(engine.Build(), NotNil)
}
