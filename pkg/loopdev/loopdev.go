// Package loopdev attaches disk files to loop devices via losetup.
package loopdev

import (
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	lhexec "github.com/longhorn/go-common-libs/exec"

	"github.com/raidforge/raidforge/pkg/types"
)

const binaryLosetup = "losetup"

type Manager struct {
	executor types.Executor
}

func New(executor types.Executor) *Manager {
	if executor == nil {
		executor = lhexec.NewExecutor()
	}
	return &Manager{executor: executor}
}

func (m *Manager) Preflight() error {
	if _, err := exec.LookPath(binaryLosetup); err != nil {
		return errors.Wrapf(types.ErrMissingTool, "%v not found in PATH", binaryLosetup)
	}
	return nil
}

// Attach binds the file to the first free loop device and returns its path.
func (m *Manager) Attach(file string) (string, error) {
	output, err := m.executor.Execute(nil, binaryLosetup, []string{"--find", "--show", file}, types.ExecuteTimeout)
	if err != nil {
		return "", errors.Wrapf(err, "failed to attach %v to a loop device", file)
	}
	device := strings.TrimSpace(output)
	if device == "" {
		return "", errors.Errorf("losetup attached %v but reported no device", file)
	}
	logrus.Infof("Attached %v to %v", file, device)
	return device, nil
}

func (m *Manager) Detach(device string) error {
	if _, err := m.executor.Execute(nil, binaryLosetup, []string{"--detach", device}, types.ExecuteTimeout); err != nil {
		return errors.Wrapf(err, "failed to detach loop device %v", device)
	}
	return nil
}

// List returns the losetup report of active loop devices.
func (m *Manager) List() (string, error) {
	output, err := m.executor.Execute(nil, binaryLosetup, []string{"--list"}, types.ExecuteTimeout)
	if err != nil {
		return "", errors.Wrap(err, "failed to list loop devices")
	}
	return output, nil
}
