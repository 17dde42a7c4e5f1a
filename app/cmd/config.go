package cmd

import (
	"github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/urfave/cli"

	"github.com/raidforge/raidforge/pkg/raid"
	"github.com/raidforge/raidforge/pkg/types"
)

// buildParams is the fully resolved input of a build or assemble run.
type buildParams struct {
	cfg       raid.Config
	source    string
	outputDir string
	prefix    string
}

// geometryFlags are shared by every command that needs an array geometry.
func geometryFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:  "level",
			Value: -1,
			Usage: "raid level: 0, 1, 4, 5, 6 or 10",
		},
		cli.IntFlag{
			Name:  "disks",
			Usage: "number of active disks in the array",
		},
		cli.IntFlag{
			Name:  "spares",
			Usage: "number of spare disk files to create",
		},
		cli.StringFlag{
			Name:  "chunk-size",
			Value: "64kb",
			Usage: "stripe chunk size, power-of-two KiB between 4kb and 1024kb",
		},
		cli.StringFlag{
			Name:  "disk-size",
			Value: "100mb",
			Usage: "size of each output disk file",
		},
		cli.StringFlag{
			Name:  "layout",
			Usage: "parity rotation for raid4/5/6 (left-symmetric, left-asymmetric, right-symmetric, right-asymmetric) or replica arrangement for raid10 (near, far, offset)",
		},
	}
}

// resolveParams merges command flags with an optional recipe file into one
// immutable configuration. Explicit flags win over recipe values.
func resolveParams(c *cli.Context) (*buildParams, error) {
	recipe := &raid.Recipe{}
	if path := c.String("recipe"); path != "" {
		loaded, err := raid.LoadRecipe(path)
		if err != nil {
			return nil, err
		}
		recipe = loaded
	}

	stringValue := func(name, recipeValue string) string {
		if c.IsSet(name) || recipeValue == "" {
			return c.String(name)
		}
		return recipeValue
	}
	intValue := func(name string, recipeValue *int) int {
		if c.IsSet(name) || recipeValue == nil {
			return c.Int(name)
		}
		return *recipeValue
	}

	level, err := types.ParseRaidLevel(intValue("level", recipe.Level))
	if err != nil {
		return nil, err
	}

	layoutName := stringValue("layout", recipe.Layout)
	if layoutName == "" {
		if level == types.Raid10 {
			layoutName = "near"
		} else {
			layoutName = "left-symmetric"
		}
	}
	layout, err := types.ParseLayout(layoutName)
	if err != nil {
		return nil, err
	}

	directionName := stringValue("direction", recipe.Direction)
	if directionName == "" {
		directionName = "forward"
	}
	direction, err := types.ParseDirection(directionName)
	if err != nil {
		return nil, err
	}

	algorithmName := stringValue("algorithm", recipe.Algorithm)
	if algorithmName == "" {
		algorithmName = "standard"
	}
	algorithm, err := types.ParseAlgorithm(algorithmName)
	if err != nil {
		return nil, err
	}

	chunkSize, err := units.RAMInBytes(stringValue("chunk-size", recipe.ChunkSize))
	if err != nil {
		return nil, errors.Wrap(err, "invalid chunk size")
	}
	diskSize, err := units.RAMInBytes(stringValue("disk-size", recipe.DiskSize))
	if err != nil {
		return nil, errors.Wrap(err, "invalid disk size")
	}

	params := &buildParams{
		cfg: raid.Config{
			Level:      level,
			NumDisks:   intValue("disks", recipe.Disks),
			SpareDisks: intValue("spares", recipe.Spares),
			ChunkSize:  chunkSize,
			Layout:     layout,
			Direction:  direction,
			Algorithm:  algorithm,
			DiskSize:   diskSize,
		},
		source:    stringValue("source", recipe.Source),
		outputDir: stringValue("output-dir", recipe.OutputDir),
		prefix:    stringValue("prefix", recipe.Prefix),
	}
	if err := params.cfg.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}
