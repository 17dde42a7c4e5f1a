package cmd

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/raidforge/raidforge/pkg/blockdev"
	"github.com/raidforge/raidforge/pkg/raid"
	"github.com/raidforge/raidforge/pkg/types"
	"github.com/raidforge/raidforge/pkg/util"
)

func VerifyCmd() cli.Command {
	return cli.Command{
		Name:  "verify",
		Usage: "read a built disk set back and check its parity and mirror invariants",
		Flags: append(geometryFlags(),
			cli.StringFlag{
				Name:  "output-dir",
				Usage: "directory holding the disk files",
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
		),
		Action: func(c *cli.Context) {
			if err := verify(c); err != nil {
				logrus.WithError(err).Fatalf("Error running verify command")
			}
			logrus.Infof("Verification passed")
		},
	}
}

func verify(c *cli.Context) error {
	params, err := resolveParams(c)
	if err != nil {
		return err
	}
	if params.outputDir == "" {
		return errors.New("output directory is required")
	}

	disks := make([]types.DiskFile, 0, params.cfg.NumDisks)
	defer func() { closeDisks(disks) }()
	for i := 0; i < params.cfg.NumDisks; i++ {
		disk, err := blockdev.OpenDisk(util.DiskFileName(params.outputDir, params.prefix, i))
		if err != nil {
			return err
		}
		disks = append(disks, disk)
	}

	return raid.Verify(params.cfg, disks)
}
