// Package mdadm drives the mdadm binary to create and manage a real md array
// over the practice disk files, for the mode that defers layout to the
// kernel instead of the manual engine.
package mdadm

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	lhexec "github.com/longhorn/go-common-libs/exec"

	"github.com/raidforge/raidforge/pkg/raid"
	"github.com/raidforge/raidforge/pkg/types"
)

const binaryMdadm = "mdadm"

type Manager struct {
	executor types.Executor
}

func New(executor types.Executor) *Manager {
	if executor == nil {
		executor = lhexec.NewExecutor()
	}
	return &Manager{executor: executor}
}

// Preflight verifies the mdadm binary exists before any device is touched.
func (m *Manager) Preflight() error {
	if _, err := exec.LookPath(binaryMdadm); err != nil {
		return errors.Wrapf(types.ErrMissingTool, "%v not found in PATH", binaryMdadm)
	}
	return nil
}

// CreateArgs maps a layout configuration to the mdadm --create argument list.
// Split out from Create so the mapping is testable without the binary.
func CreateArgs(array string, devices, spares []string, cfg raid.Config, arrayUUID string) []string {
	args := []string{
		"--create", array,
		"--force",
		"--run",
		fmt.Sprintf("--level=%d", int(cfg.Level)),
		fmt.Sprintf("--raid-devices=%d", cfg.NumDisks),
	}
	if arrayUUID != "" {
		args = append(args, fmt.Sprintf("--uuid=%s", arrayUUID))
	}
	if cfg.Level != types.Raid1 {
		args = append(args, fmt.Sprintf("--chunk=%d", cfg.ChunkSize/1024))
	}
	switch cfg.Level {
	case types.Raid5, types.Raid6:
		args = append(args, fmt.Sprintf("--layout=%s", cfg.Layout))
	case types.Raid10:
		// md spells the raid10 arrangements n2/f2/o2.
		args = append(args, fmt.Sprintf("--layout=%c2", cfg.Layout.String()[0]))
	}
	if len(spares) > 0 {
		args = append(args, fmt.Sprintf("--spare-devices=%d", len(spares)))
	}
	args = append(args, devices...)
	args = append(args, spares...)
	return args
}

// Create builds the md array from the given loop devices.
func (m *Manager) Create(array string, devices, spares []string, cfg raid.Config, arrayUUID string) error {
	if err := m.Preflight(); err != nil {
		return err
	}
	args := CreateArgs(array, devices, spares, cfg, arrayUUID)
	logrus.Infof("Creating md array %v: mdadm %v", array, strings.Join(args, " "))
	if _, err := m.executor.Execute(nil, binaryMdadm, args, types.ExecuteTimeout); err != nil {
		return errors.Wrapf(err, "failed to create md array %v", array)
	}
	return nil
}

// Stop deactivates the array, leaving the member superblocks intact.
func (m *Manager) Stop(array string) error {
	if _, err := m.executor.Execute(nil, binaryMdadm, []string{"--stop", array}, types.ExecuteTimeout); err != nil {
		return errors.Wrapf(err, "failed to stop md array %v", array)
	}
	return nil
}

// Detail returns the mdadm --detail report for the array.
func (m *Manager) Detail(array string) (string, error) {
	output, err := m.executor.Execute(nil, binaryMdadm, []string{"--detail", array}, types.ExecuteTimeout)
	if err != nil {
		return "", errors.Wrapf(err, "failed to query md array %v", array)
	}
	return output, nil
}

// ZeroSuperblock wipes the md metadata from a member device.
func (m *Manager) ZeroSuperblock(device string) error {
	if _, err := m.executor.Execute(nil, binaryMdadm, []string{"--zero-superblock", device}, types.ExecuteTimeout); err != nil {
		return errors.Wrapf(err, "failed to zero superblock on %v", device)
	}
	return nil
}
