package cmd

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/docker/go-units"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"go.uber.org/multierr"

	"github.com/FranBarInstance/neutral-ipc/pkg/config"
	"github.com/FranBarInstance/neutral-ipc/pkg/ipc"
	"github.com/FranBarInstance/neutral-ipc/pkg/render"
	"github.com/FranBarInstance/neutral-ipc/pkg/status"
)

func StartCmd() cli.Command {
	return cli.Command{
		Name:  "start",
		Usage: "Start the IPC server",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  "config",
				Value: config.DefaultPath,
				Usage: "Path of the JSON config file",
			},
			cli.StringFlag{
				Name:  "listen",
				Usage: "host:port to bind, overrides the config file",
			},
			cli.StringFlag{
				Name:  "status-listen",
				Usage: "host:port for the HTTP status endpoint, disabled when empty",
			},
			cli.DurationFlag{
				Name:  "read-timeout",
				Usage: "Per-connection read deadline, 0 disables",
			},
			cli.StringFlag{
				Name:  "max-content-size",
				Usage: "Largest accepted content block in bytes or human readable 42kb, 42mb; 0 disables",
			},
		},
		Action: func(c *cli.Context) {
			if err := start(c); err != nil {
				logrus.WithError(err).Fatalf("Error running start command")
			}
		},
	}
}

func start(c *cli.Context) error {
	path := c.String("config")
	if path == "" {
		// Invoked without the start command's flags.
		path = config.DefaultPath
	}
	cfg := config.Load(path)

	listen := c.String("listen")
	if listen == "" {
		listen = cfg.Addr()
	}

	var maxContentSize int64
	if size := c.String("max-content-size"); size != "" {
		n, err := units.RAMInBytes(size)
		if err != nil {
			return errors.Wrapf(err, "invalid max-content-size %q", size)
		}
		maxContentSize = n
	}

	listener, err := net.Listen("tcp", listen)
	if err != nil {
		return errors.Wrapf(err, "failed to bind %s", listen)
	}

	server := ipc.NewServer(listener, render.NewEngine())
	server.ReadTimeout = c.Duration("read-timeout")
	server.MaxContentSize = maxContentSize

	var statusServer *status.Server
	if statusListen := c.String("status-listen"); statusListen != "" {
		statusServer = status.NewServer(statusListen, server.ConnectionsHandled)
		statusServer.Start()
		logrus.Infof("Status endpoint on %s", statusListen)
	}

	logrus.Infof("Neutral IPC on %s", listen)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		logrus.Infof("Receive %v to exit", sig)

		err := server.Close()
		if statusServer != nil {
			err = multierr.Append(err, statusServer.Close())
		}
		if err != nil {
			logrus.WithError(err).Warn("Error during shutdown")
		}
	}()

	return server.Serve()
}
