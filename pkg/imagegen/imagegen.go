// Package imagegen creates practice disk images: zero-filled, random-filled,
// or sparse files of a caller-chosen size.
package imagegen

import (
	"crypto/rand"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/raidforge/raidforge/pkg/types"
)

const writeBufferSize = 1 << 20

// Fill selects the image content strategy.
type Fill int

const (
	FillZero Fill = iota
	FillRandom
	FillSparse
)

var fillNames = map[Fill]string{
	FillZero:   "zero",
	FillRandom: "random",
	FillSparse: "sparse",
}

func ParseFill(name string) (Fill, error) {
	for fill, fillName := range fillNames {
		if name == fillName {
			return fill, nil
		}
	}
	return 0, errors.Wrapf(types.ErrInvalidConfig, "unknown fill %q", name)
}

func (f Fill) String() string {
	if name, ok := fillNames[f]; ok {
		return name
	}
	return "fill(?)"
}

// Create writes a new image file at path. Non-sparse fills preflight the
// target filesystem for enough free space before any byte is written.
func Create(path string, size int64, fill Fill) error {
	if size <= 0 {
		return errors.Wrapf(types.ErrInvalidConfig, "image size must be positive, got %d", size)
	}

	if fill != FillSparse {
		if err := checkFreeSpace(filepath.Dir(path), size); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0666)
	if err != nil {
		return errors.Wrapf(err, "failed to create image %v", path)
	}
	defer f.Close()

	switch fill {
	case FillSparse:
		err = f.Truncate(size)
	case FillZero:
		err = fillZero(f, size)
	case FillRandom:
		err = fillRandom(f, size)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to fill image %v", path)
	}

	logrus.Infof("Created %v image %v of %v bytes", fill, path, size)
	return nil
}

func checkFreeSpace(dir string, size int64) error {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return errors.Wrapf(err, "failed to stat filesystem of %v", dir)
	}
	available := int64(stat.Bavail) * int64(stat.Bsize)
	if size > available {
		return errors.Errorf("not enough space under %v: need %v bytes, %v available",
			dir, size, available)
	}
	return nil
}

func fillZero(f *os.File, size int64) error {
	// Fallocate writes the zeros without the data pass where the filesystem
	// supports it.
	if err := unix.Fallocate(int(f.Fd()), 0, 0, size); err == nil {
		return nil
	}

	buf := make([]byte, writeBufferSize)
	for offset := int64(0); offset < size; offset += writeBufferSize {
		length := int64(writeBufferSize)
		if offset+length > size {
			length = size - offset
		}
		if _, err := f.WriteAt(buf[:length], offset); err != nil {
			return err
		}
	}
	return nil
}

func fillRandom(f *os.File, size int64) error {
	buf := make([]byte, writeBufferSize)
	for offset := int64(0); offset < size; offset += writeBufferSize {
		length := int64(writeBufferSize)
		if offset+length > size {
			length = size - offset
		}
		if _, err := rand.Read(buf[:length]); err != nil {
			return err
		}
		if _, err := f.WriteAt(buf[:length], offset); err != nil {
			return err
		}
	}
	return nil
}
