package main

import (
	"os"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
)

type Options struct {
	Debug       bool   `long:"debug" description:"Enable debug logging"`
	Config      string `short:"c" long:"config" default:"hexapod.json" description:"Configuration file"`
	Calibration string `long:"calibration" description:"Joint limits file overriding the configured calibration"`

	Run    RunCommand    `command:"run" description:"Run the robot routine"`
	Manual ManualCommand `command:"manual" description:"Drive single joints by hand"`
	Setup  SetupCommand  `command:"setup" description:"Find the servo bus and calibrate joint limits"`
	Sweep  SweepCommand  `command:"sweep" description:"Sweep one joint across its range"`
}

var opts Options
var parser = flags.NewParser(&opts, flags.Default)

func main() {
	parser.LongDescription = "Hexapod - six-legged robot driven over an nRF24 link"
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
