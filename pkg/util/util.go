package util

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	randomIDLength = 8

	buildLockFileName = ".raidforge.lock"
)

func UUID() string {
	return uuid.New().String()
}

func RandomID() string {
	return UUID()[:randomIDLength]
}

// DiskFileName returns the output file path for one disk index on a prefix.
func DiskFileName(dir, prefix string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("%s%d", prefix, index))
}

// LockOutputDir takes an exclusive advisory lock under the output directory
// so two builds cannot interleave writes to the same disk set.
func LockOutputDir(dir string) (fileLock *flock.Flock, err error) {
	defer func() {
		if err != nil && fileLock != nil && fileLock.Path() != "" {
			if err := os.RemoveAll(fileLock.Path()); err != nil {
				logrus.Warnf("failed to remove lock file %v since %v", fileLock.Path(), err)
			}
		}
	}()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	fileLock = flock.New(filepath.Join(dir, buildLockFileName))

	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to lock output directory %v", dir)
	}
	if !locked {
		return nil, errors.Errorf("output directory %v is locked by another build", dir)
	}

	return fileLock, nil
}

func UnlockOutputDir(fileLock *flock.Flock) {
	if err := fileLock.Unlock(); err != nil {
		logrus.Warnf("failed to unlock %v since %v", fileLock.Path(), err)
	}
}
