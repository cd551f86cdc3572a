package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	log "github.com/sirupsen/logrus"

	"github.com/quantumrobotics/hexapod/pkg/robot"
)

type ManualCommand struct {
	Timeout time.Duration `long:"timeout" default:"10s" description:"Give up on a move after this long"`
}

type manualMove struct {
	leg   int
	axis  robot.Axis
	value string
	again bool
}

func (m *manualMove) form() *huh.Form {
	legs := make([]huh.Option[int], robot.LegCount)
	for i := range legs {
		legs[i] = huh.NewOption(fmt.Sprintf("Leg %d", i), i)
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Leg").
				Options(legs...).
				Value(&m.leg),
			huh.NewSelect[robot.Axis]().
				Title("Joint").
				Options(
					huh.NewOption("X (hip)", robot.X),
					huh.NewOption("Y (knee)", robot.Y),
				).
				Value(&m.axis),
			huh.NewInput().
				Title("Position").
				Description("0 is the joint's minimum, 100 its maximum").
				Value(&m.value).
				Validate(validatePercent),
			huh.NewConfirm().
				Title("Move another joint afterwards?").
				Value(&m.again),
		),
	)
}

func validatePercent(s string) error {
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if v < 0 || v > 100 {
		return fmt.Errorf("must be between 0 and 100")
	}
	return nil
}

func (c *ManualCommand) Execute(args []string) error {
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
	hex.SelectMode(robot.Manual)

	ctx := context.Background()
	if err := hex.Start(ctx, 0); err != nil {
		return err
	}

	move := &manualMove{value: "50", again: true}
	for move.again {
		if err := move.form().Run(); err != nil {
			return nil
		}
		value, _ := strconv.Atoi(move.value)
		if err := hex.SetAngle(value, move.leg, move.axis); err != nil {
			return err
		}
		if err := settle(ctx, hex, cfg.Hz, c.Timeout); err != nil {
			return err
		}
		id := robot.JointID{Leg: move.leg, Axis: move.axis}
		j, _ := hex.Driver().Joint(id)
		fmt.Println(successStyle.Render(fmt.Sprintf("%s at %d°", id, j.Current())))
	}
	return nil
}

// settle ticks the robot at hz until every joint reaches its setpoint.
func settle(ctx context.Context, hex *robot.Hexapod, hz int, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()
	for {
		if err := hex.Tick(ctx); err != nil {
			return err
		}
		if hex.ServosFinished() {
			return nil
		}
		select {
		case <-ctx.Done():
			log.WithField("pkg", "manual").Warn("joint did not settle")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
