package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
)

type Options struct {
	Debug  bool   `long:"debug" description:"Enable debug logging"`
	Config string `short:"c" long:"config" default:"rfcontrol.json" description:"Configuration file"`

	Run   RunCommand   `command:"run" description:"Run the handheld controller"`
	Ports PortsCommand `command:"ports" description:"List serial ports"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "rfcontrol - keyboard stand-in for the hexapod's handheld controller"
	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if opts.Debug {
			log.SetLevel(log.DebugLevel)
		}
		return cmd.Execute(args)
	}

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}
}
