package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/raidforge/raidforge/app/cmd"
	"github.com/raidforge/raidforge/meta"
)

func main() {
	a := cli.NewApp()
	a.Name = "raidforge"
	a.Usage = "build synthetic multi-disk RAID layouts for forensic practice"
	a.Version = meta.Version
	a.Before = func(c *cli.Context) error {
		if c.GlobalBool("debug") {
			logrus.SetLevel(logrus.DebugLevel)
		}
		return nil
	}
	a.Flags = []cli.Flag{
		cli.BoolFlag{
			Name: "debug",
		},
	}
	a.Commands = []cli.Command{
		cmd.BuildCmd(),
		cmd.AssembleCmd(),
		cmd.CreateImageCmd(),
		cmd.InspectCmd(),
		cmd.VerifyCmd(),
		cmd.VersionCmd(),
	}
	if err := a.Run(os.Args); err != nil {
		logrus.Fatal("Error when executing command: ", err)
	}
}
