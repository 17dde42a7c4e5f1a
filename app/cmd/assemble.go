package cmd

import (
	"io"
	"os"

	"github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/raidforge/raidforge/pkg/blockdev"
	"github.com/raidforge/raidforge/pkg/loopdev"
	"github.com/raidforge/raidforge/pkg/mdadm"
	"github.com/raidforge/raidforge/pkg/util"
)

const copyBufferSize = 1 << 20

func AssembleCmd() cli.Command {
	return cli.Command{
		Name:  "assemble",
		Usage: "create disk files, attach loop devices and build a real md array over them",
		Flags: append(geometryFlags(),
			cli.StringFlag{
				Name:  "source",
				Usage: "raw source image to copy onto the assembled array device",
			},
			cli.StringFlag{
				Name:  "output-dir",
				Usage: "directory receiving the disk files",
			},
			cli.StringFlag{
				Name:  "prefix",
				Value: "disk_",
				Usage: "disk file name prefix, suffixed with the 0-based disk index",
			},
			cli.StringFlag{
				Name:  "recipe",
				Usage: "YAML recipe file; explicit flags win over recipe values",
			},
			cli.StringFlag{
				Name:  "array",
				Value: "/dev/md127",
				Usage: "md device node to create",
			},
			cli.StringFlag{
				Name:  "filesystem",
				Usage: "format the array with this filesystem instead of copying the source image",
			},
			cli.StringFlag{
				Name:  "mount-point",
				Usage: "mount the formatted array here, requires --filesystem",
			},
			cli.BoolFlag{
				Name:  "stop",
				Usage: "stop the array and detach the loop devices when done",
			},
			cli.BoolFlag{
				Name:  "quiet",
				Usage: "suppress the progress bar",
			},
		),
		Action: func(c *cli.Context) {
			if err := assemble(c); err != nil {
				logrus.WithError(err).Fatalf("Error running assemble command")
			}
		},
	}
}

func assemble(c *cli.Context) error {
	params, err := resolveParams(c)
	if err != nil {
		return err
	}
	if params.outputDir == "" {
		return errors.New("output directory is required")
	}

	fsType := c.String("filesystem")
	mountPoint := c.String("mount-point")
	if mountPoint != "" && fsType == "" {
		return errors.New("--mount-point requires --filesystem")
	}
	if fsType != "" && params.source != "" {
		return errors.New("--filesystem and --source are mutually exclusive, formatting would overwrite the copied image")
	}
	if fsType == "" && params.source == "" {
		return errors.New("either a source image or --filesystem is required")
	}

	// Every external tool is checked before a single device is touched.
	arrayManager := mdadm.New(nil)
	loopManager := loopdev.New(nil)
	if err := arrayManager.Preflight(); err != nil {
		return err
	}
	if err := loopManager.Preflight(); err != nil {
		return err
	}
	if fsType != "" {
		if err := util.PreflightMkfs(fsType); err != nil {
			return err
		}
	}

	fileLock, err := util.LockOutputDir(params.outputDir)
	if err != nil {
		return err
	}
	defer util.UnlockOutputDir(fileLock)

	disks, err := createDisks(params)
	if err != nil {
		return err
	}
	closeDisks(disks)

	var devices, spares []string
	for i := 0; i < params.cfg.TotalDisks(); i++ {
		device, err := loopManager.Attach(util.DiskFileName(params.outputDir, params.prefix, i))
		if err != nil {
			return err
		}
		if i < params.cfg.NumDisks {
			devices = append(devices, device)
		} else {
			spares = append(spares, device)
		}
	}

	array := c.String("array")
	if err := arrayManager.Create(array, devices, spares, params.cfg, util.UUID()); err != nil {
		return err
	}

	if fsType != "" {
		if err := util.Mkfs(array, fsType, nil); err != nil {
			return err
		}
		if mountPoint != "" {
			if err := util.MountDevice(array, mountPoint, fsType, nil); err != nil {
				return err
			}
		}
	} else {
		if err := copyToDevice(params.source, array, c.Bool("quiet")); err != nil {
			return err
		}
	}

	detail, err := arrayManager.Detail(array)
	if err != nil {
		return err
	}
	logrus.Infof("Assembled array %v:\n%s", array, detail)

	if c.Bool("stop") {
		if mountPoint != "" {
			if err := util.UnmountDevice(mountPoint, nil); err != nil {
				return err
			}
		}
		if err := arrayManager.Stop(array); err != nil {
			return err
		}
		for _, device := range append(devices, spares...) {
			if err := loopManager.Detach(device); err != nil {
				return err
			}
		}
	}
	return nil
}

// copyToDevice streams the source image onto the assembled array device.
func copyToDevice(sourcePath, device string, quiet bool) error {
	source, err := blockdev.OpenSource(sourcePath)
	if err != nil {
		return err
	}
	defer source.Close()

	size, err := source.Size()
	if err != nil {
		return err
	}

	target, err := os.OpenFile(device, os.O_WRONLY, 0)
	if err != nil {
		return errors.Wrapf(err, "failed to open array device %v", device)
	}
	defer target.Close()

	var bar *pb.ProgressBar
	if !quiet {
		bar = pb.StartNew(100)
	}

	buf := make([]byte, copyBufferSize)
	for offset := int64(0); offset < size; {
		length := int64(copyBufferSize)
		if offset+length > size {
			length = size - offset
		}
		if _, err := source.ReadAt(buf[:length], offset); err != nil && err != io.EOF {
			return errors.Wrapf(err, "failed to read source at offset %v", offset)
		}
		if _, err := target.WriteAt(buf[:length], offset); err != nil {
			return errors.Wrapf(err, "failed to write array device at offset %v", offset)
		}
		offset += length
		if bar != nil {
			bar.Set(int(offset * 100 / size))
		}
	}
	if bar != nil {
		bar.Finish()
	}

	logrus.Infof("Copied %v onto %v", units.BytesSize(float64(size)), device)
	return target.Sync()
}
