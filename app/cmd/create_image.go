package cmd

import (
	"github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/raidforge/raidforge/pkg/imagegen"
)

func CreateImageCmd() cli.Command {
	return cli.Command{
		Name:      "create-image",
		Usage:     "create a practice disk image: create-image PATH --size 10mb [--fill zero|random|sparse]",
		UsageText: "raidforge create-image PATH --size SIZE [--fill FILL]",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "size",
				Usage: "image size in bytes or human readable 42kb, 42mb, 42gb",
			},
			cli.StringFlag{
				Name:  "fill",
				Value: "zero",
				Usage: "image content: zero, random or sparse",
			},
		},
		Action: func(c *cli.Context) {
			if err := createImage(c); err != nil {
				logrus.WithError(err).Fatalf("Error running create-image command")
			}
		},
	}
}

func createImage(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return errors.New("missing the first argument, it should be the image path")
	}

	sizeStr := c.String("size")
	if sizeStr == "" {
		return errors.New("image size is required")
	}
	size, err := units.RAMInBytes(sizeStr)
	if err != nil {
		return errors.Wrap(err, "invalid image size")
	}

	fill, err := imagegen.ParseFill(c.String("fill"))
	if err != nil {
		return err
	}

	return imagegen.Create(path, size, fill)
}
