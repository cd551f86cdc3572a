package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/quantumrobotics/hexapod/pkg/robot"
)

type SweepCommand struct {
	Leg  int    `long:"leg" default:"0" description:"Leg index (0-5)"`
	Axis string `long:"axis" default:"x" choice:"x" choice:"y" description:"Joint on the leg"`
	Full bool   `long:"full" description:"Sweep 0-180 degrees instead of the calibrated range"`
}

func (c *SweepCommand) Execute(args []string) error {
	axis, err := robot.ParseAxis(c.Axis)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	r, err := openRig(cfg, false, false)
	if err != nil {
		return err
	}
	defer r.Close()

	hex, err := newHexapod(cfg, r, nil)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := hex.Start(ctx, 0); err != nil {
		return err
	}
	return hex.Sweep(ctx, robot.JointID{Leg: c.Leg, Axis: axis}, c.Full)
}
