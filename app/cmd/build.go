package cmd

import (
	"time"

	"github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"go.uber.org/multierr"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/raidforge/raidforge/pkg/blockdev"
	"github.com/raidforge/raidforge/pkg/raid"
	"github.com/raidforge/raidforge/pkg/types"
	"github.com/raidforge/raidforge/pkg/util"
)

const progressRefreshInterval = 500 * time.Millisecond

func BuildCmd() cli.Command {
	return cli.Command{
		Name:  "build",
		Usage: "distribute a source image across disk files with the manual layout engine",
		Flags: append(geometryFlags(),
			cli.StringFlag{
				Name:  "source",
				Usage: "raw source image to distribute",
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
				Name:  "direction",
				Value: "forward",
				Usage: "stripe traversal order: forward, backward, inside-out, outside-in",
			},
			cli.StringFlag{
				Name:  "algorithm",
				Value: "standard",
				Usage: "chunk index perturbation: standard, delayed, interleaved, random",
			},
			cli.StringFlag{
				Name:  "recipe",
				Usage: "YAML recipe file; explicit flags win over recipe values",
			},
			cli.BoolFlag{
				Name:  "quiet",
				Usage: "suppress the progress bar",
			},
		),
		Action: func(c *cli.Context) {
			if err := build(c); err != nil {
				logrus.WithError(err).Fatalf("Error running build command")
			}
		},
	}
}

func build(c *cli.Context) error {
	params, err := resolveParams(c)
	if err != nil {
		return err
	}
	if params.source == "" {
		return errors.New("source image is required")
	}
	if params.outputDir == "" {
		return errors.New("output directory is required")
	}

	fileLock, err := util.LockOutputDir(params.outputDir)
	if err != nil {
		return err
	}
	defer util.UnlockOutputDir(fileLock)

	source, err := blockdev.OpenSource(params.source)
	if err != nil {
		return err
	}
	defer source.Close()

	sourceSize, err := source.Size()
	if err != nil {
		return err
	}

	disks, err := createDisks(params)
	if err != nil {
		return err
	}
	defer closeDisks(disks)

	engine, err := raid.NewEngine(params.cfg, source, disks)
	if err != nil {
		return err
	}

	if err := runWithProgress(engine, c.Bool("quiet")); err != nil {
		return err
	}

	logrus.Infof("Built %v array: %v of source data across %d disks of %v each (%d spare)",
		params.cfg.Level,
		units.BytesSize(float64(sourceSize)),
		params.cfg.NumDisks,
		units.BytesSize(float64(params.cfg.DiskSize)),
		params.cfg.SpareDisks)
	return nil
}

func createDisks(params *buildParams) ([]types.DiskFile, error) {
	disks := make([]types.DiskFile, 0, params.cfg.TotalDisks())
	for i := 0; i < params.cfg.TotalDisks(); i++ {
		disk, err := blockdev.CreateDisk(util.DiskFileName(params.outputDir, params.prefix, i), params.cfg.DiskSize)
		if err != nil {
			closeDisks(disks)
			return nil, err
		}
		disks = append(disks, disk)
	}
	return disks, nil
}

func closeDisks(disks []types.DiskFile) {
	var closeErr error
	for _, disk := range disks {
		closeErr = multierr.Append(closeErr, disk.Close())
	}
	if closeErr != nil {
		logrus.WithError(closeErr).Warnf("Failed to close disk files")
	}
}

func runWithProgress(engine *raid.Engine, quiet bool) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- engine.Build()
	}()

	if quiet {
		return <-errCh
	}

	bar := pb.StartNew(100)
	ticker := time.NewTicker(progressRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-errCh:
			bar.Set(engine.Progress())
			bar.Finish()
			return err
		case <-ticker.C:
			bar.Set(engine.Progress())
		}
	}
}
