package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/op/go-logging"
	"github.com/urfave/cli"

	"nimo.cc/nimo/common/config"
	"nimo.cc/nimo/common/logger"
	"nimo.cc/nimo/common/version"
	"nimo.cc/nimo/discovery"
	"nimo.cc/nimo/registry"
	"nimo.cc/nimo/service"
)

func main() {
	app := cli.NewApp()
	app.Name = "nimoregistry"
	app.Usage = "run the registry for this network"
	app.Version = version.CURRENT_VERSION.String()
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to the configuration file",
		},
		cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "log at debug level",
		},
		cli.BoolFlag{
			Name:  "local, l",
			Usage: "log to the console only, without multicast shipping",
		},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(-1)
	}
}

func run(c *cli.Context) error {
	level := logging.INFO
	if c.Bool("verbose") {
		level = logging.DEBUG
	}
	settings := config.Load(c.String("config"), nil)
	log := logger.Setup("nimoregistry", level, !c.Bool("local"), settings.LogConnection)

	defer func() {
		if x := recover(); x != nil {
			log.Error(fmt.Sprintf("run time panic: %v", x))
			log.Error(string(debug.Stack()))
			panic(x)
		}
	}()

	// the registry never waits for itself
	discovery.DisableRegistryWait(true)

	directory, err := registry.New(log, settings)
	if err != nil {
		return err
	}
	defer directory.Close()
	if err = directory.Start(); err != nil {
		return err
	}
	service.CatchSignals(log)
	log.Noticef("registry %s serving on %s", version.CURRENT_VERSION, directory.CommandConnection())

	for service.KeepRunning() {
		time.Sleep(100 * time.Millisecond)
	}
	log.Notice("registry stopping")
	return nil
}
