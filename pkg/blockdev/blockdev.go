// Package blockdev provides the file-backed I/O primitives the layout engine
// depends on: creating pre-sized zero-filled disk files, opening the source
// image read-only, and stripe-aligned chunk reads and writes that never
// change a file's length.
package blockdev

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/longhorn/sparse-tools/sparse"

	"github.com/raidforge/raidforge/pkg/types"
)

// qcow2 image header magic. The layout math operates on raw bytes, so an
// image behind a translation layer is rejected outright.
var qcowMagic = []byte{'Q', 'F', 'I', 0xfb}

type file struct {
	f *sparse.BufferedFileIoProcessor
}

func (d *file) ReadAt(buf []byte, offset int64) (int, error) {
	return d.f.ReadAt(buf, offset)
}

func (d *file) WriteAt(buf []byte, offset int64) (int, error) {
	return d.f.WriteAt(buf, offset)
}

func (d *file) Size() (int64, error) {
	info, err := d.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (d *file) Sync() error {
	return d.f.Sync()
}

func (d *file) Close() error {
	return d.f.Close()
}

func (d *file) Name() string {
	return d.f.Name()
}

// CreateDisk creates a new zero-filled disk file of the given size. The file
// must not already exist; all subsequent writes go through WriteAt so the
// length set here is never changed by a chunk write.
func CreateDisk(path string, size int64) (types.DiskFile, error) {
	f, err := sparse.NewBufferedFileIoProcessor(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create disk file %v", path)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "failed to size disk file %v to %v bytes", path, size)
	}
	return &file{f: f}, nil
}

// OpenDisk opens an existing disk file read-write, for verification runs.
func OpenDisk(path string) (types.DiskFile, error) {
	f, err := sparse.NewBufferedFileIoProcessor(path, os.O_RDWR, 0666)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open disk file %v", path)
	}
	return &file{f: f}, nil
}

// OpenSource opens the source image read-only. Non-raw images are rejected.
func OpenSource(path string) (types.SourceImage, error) {
	f, err := sparse.NewBufferedFileIoProcessor(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open source image %v", path)
	}

	magic := make([]byte, len(qcowMagic))
	if n, err := f.ReadAt(magic, 0); err == nil && n == len(qcowMagic) && bytes.Equal(magic, qcowMagic) {
		f.Close()
		return nil, errors.Errorf("source image %v is qcow2 formatted, only raw images are supported", path)
	}

	return &file{f: f}, nil
}

// ReadChunk reads up to chunkSize bytes at offset from the source, clipping
// at the end of the image. Returns a nil chunk once offset reaches the end.
func ReadChunk(source types.SourceImage, offset, chunkSize int64) ([]byte, error) {
	size, err := source.Size()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat source image %v", source.Name())
	}
	if offset >= size {
		return nil, nil
	}

	length := chunkSize
	if offset+length > size {
		length = size - offset
	}

	chunk := make([]byte, length)
	if n, err := source.ReadAt(chunk, offset); err != nil && !(err == io.EOF && int64(n) == length) {
		return nil, errors.Wrapf(err, "failed to read %v bytes at offset %v from source image %v",
			length, offset, source.Name())
	}
	return chunk, nil
}
