package util

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"k8s.io/mount-utils"

	lhexec "github.com/longhorn/go-common-libs/exec"

	"github.com/raidforge/raidforge/pkg/types"
)

// PreflightMkfs verifies the mkfs helper for the filesystem type exists.
func PreflightMkfs(fsType string) error {
	binary := fmt.Sprintf("mkfs.%s", fsType)
	if _, err := exec.LookPath(binary); err != nil {
		return errors.Wrapf(types.ErrMissingTool, "%v not found in PATH", binary)
	}
	return nil
}

// Mkfs formats the device with the given filesystem type.
func Mkfs(device, fsType string, executor types.Executor) error {
	if executor == nil {
		executor = lhexec.NewExecutor()
	}
	if err := PreflightMkfs(fsType); err != nil {
		return err
	}
	binary := fmt.Sprintf("mkfs.%s", fsType)
	logrus.Infof("Formatting %v as %v", device, fsType)
	if _, err := executor.Execute(nil, binary, []string{device}, types.ExecuteTimeout); err != nil {
		return errors.Wrapf(err, "failed to format %v as %v", device, fsType)
	}
	return nil
}

// MountDevice mounts the device on mountPoint, creating the directory first.
func MountDevice(device, mountPoint, fsType string, mounter mount.Interface) error {
	if mounter == nil {
		mounter = mount.New("")
	}
	if err := os.MkdirAll(mountPoint, 0755); err != nil {
		return errors.Wrapf(err, "failed to create mount point %v", mountPoint)
	}
	if err := mounter.Mount(device, mountPoint, fsType, nil); err != nil {
		return errors.Wrapf(err, "failed to mount %v on %v", device, mountPoint)
	}
	logrus.Infof("Mounted %v on %v", device, mountPoint)
	return nil
}

// UnmountDevice unmounts and removes the mount point.
func UnmountDevice(mountPoint string, mounter mount.Interface) error {
	if mounter == nil {
		mounter = mount.New("")
	}
	return mount.CleanupMountPoint(mountPoint, mounter, false)
}
