package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rancher/go-fibmap"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/raidforge/raidforge/pkg/placement"
	"github.com/raidforge/raidforge/pkg/types"
)

const maxExtentsBuffer = 1024

func InspectCmd() cli.Command {
	return cli.Command{
		Name:  "inspect",
		Usage: "print the chunk placement table for a configuration, or the physical extent map of a disk file",
		Flags: append(geometryFlags(),
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
			cli.IntFlag{
				Name:  "stripe-sets",
				Value: 8,
				Usage: "number of stripe sets to print",
			},
			cli.StringFlag{
				Name:  "extents",
				Usage: "print the physical extent map of this disk file instead of a placement table",
			},
		),
		Action: func(c *cli.Context) {
			if err := inspect(c); err != nil {
				logrus.WithError(err).Fatalf("Error running inspect command")
			}
		},
	}
}

func inspect(c *cli.Context) error {
	if path := c.String("extents"); path != "" {
		return printExtents(path)
	}

	params, err := resolveParams(c)
	if err != nil {
		return err
	}
	count := c.Int("stripe-sets")

	cfg := params.cfg
	switch cfg.Level {
	case types.Raid0:
		fmt.Printf("%v over %d disks, chunk %d, direction %v, algorithm %v\n",
			cfg.Level, cfg.NumDisks, cfg.ChunkSize, cfg.Direction, cfg.Algorithm)
		for s := 0; s < count*cfg.NumDisks; s++ {
			adjusted := placement.AdjustIndex(s, cfg.NumDisks, cfg.Algorithm)
			diskIndex := placement.DataDisk(adjusted, cfg.NumDisks, cfg.Direction)
			fmt.Printf("chunk %4d -> disk %d offset %d\n",
				s, diskIndex, int64(s/cfg.NumDisks)*cfg.ChunkSize)
		}
	case types.Raid1:
		fmt.Printf("%v: full image mirrored to all %d disks\n", cfg.Level, cfg.NumDisks)
	case types.Raid4, types.Raid5:
		fmt.Printf("%v over %d disks, chunk %d, layout %v\n",
			cfg.Level, cfg.NumDisks, cfg.ChunkSize, cfg.Layout)
		for t := 0; t < count; t++ {
			parityDisk := cfg.NumDisks - 1
			if cfg.Level == types.Raid5 {
				parityDisk = placement.ParityDisk(t, cfg.NumDisks, cfg.Layout)
			}
			fmt.Printf("stripe set %4d: data %v, parity %d\n",
				t, formatDisks(placement.DataDisks(cfg.NumDisks, parityDisk)), parityDisk)
		}
	case types.Raid6:
		fmt.Printf("%v over %d disks, chunk %d, layout %v\n",
			cfg.Level, cfg.NumDisks, cfg.ChunkSize, cfg.Layout)
		for t := 0; t < count; t++ {
			pParityDisk := placement.ParityDisk(t, cfg.NumDisks, cfg.Layout)
			qParityDisk := placement.QParityDisk(pParityDisk, cfg.NumDisks, cfg.Layout)
			fmt.Printf("stripe set %4d: data %v, P %d, Q %d\n",
				t, formatDisks(placement.DataDisks(cfg.NumDisks, pParityDisk, qParityDisk)),
				pParityDisk, qParityDisk)
		}
	case types.Raid10:
		fmt.Printf("%v over %d disks as %d mirror pairs, chunk %d\n",
			cfg.Level, cfg.NumDisks, cfg.NumDisks/2, cfg.ChunkSize)
		mirrorPairs := cfg.NumDisks / 2
		for s := 0; s < count*mirrorPairs; s++ {
			pairIndex := s % mirrorPairs
			fmt.Printf("chunk %4d -> disks %d+%d offset %d\n",
				s, pairIndex*2, pairIndex*2+1, int64(s/mirrorPairs)*cfg.ChunkSize)
		}
	}
	return nil
}

func formatDisks(disks []int) string {
	parts := make([]string, len(disks))
	for i, disk := range disks {
		parts[i] = fmt.Sprintf("%d", disk)
	}
	return strings.Join(parts, ",")
}

// printExtents reports where the filesystem physically placed a disk file.
func printExtents(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %v", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrapf(err, "failed to stat %v", path)
	}

	fmt.Printf("extents of %v (%d bytes):\n", path, info.Size())
	start := uint64(0)
	end := uint64(info.Size())
	for {
		extents, errno := fibmap.Fiemap(f.Fd(), start, end-start, maxExtentsBuffer)
		if errno != 0 {
			return errors.Wrapf(errno, "fiemap failed on %v", path)
		}
		if len(extents) == 0 {
			return nil
		}

		for _, extent := range extents {
			fmt.Printf("logical %12d physical %12d length %10d flags 0x%x\n",
				extent.Logical, extent.Physical, extent.Length, extent.Flags)
			if extent.Flags&fibmap.FIEMAP_EXTENT_LAST != 0 {
				return nil
			}
		}

		start = extents[len(extents)-1].Logical + extents[len(extents)-1].Length
	}
}
