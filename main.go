package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/FranBarInstance/neutral-ipc/app/cmd"
	"github.com/FranBarInstance/neutral-ipc/pkg/meta"
)

func main() {
	a := cli.NewApp()
	a.Name = "neutral-ipc"
	a.Usage = "IPC server for template rendering"
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
		cmd.StartCmd(),
		cmd.VersionCmd(),
	}
	// Running without a command starts the server with its defaults,
	// like the original daemon.
	a.Action = cmd.StartCmd().Action
	if err := a.Run(os.Args); err != nil {
		logrus.Fatal("Error when executing command: ", err)
	}
}
