package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/quantumrobotics/hexapod/pkg/radio"
	"github.com/quantumrobotics/hexapod/pkg/robot"
	"github.com/quantumrobotics/hexapod/pkg/status"
	"github.com/quantumrobotics/hexapod/pkg/timer"
)

// rig holds the hardware behind a Hexapod so it can be released.
type rig struct {
	act     robot.Actuator
	feetech *robot.FeetechActuator
	bridge  *radio.Bridge
	rx      *radio.Receiver
	sim     *radio.Transmitter
}

func loadConfig() (*robot.Config, error) {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if err != nil {
		return nil, fmt.Errorf("load %s (run 'hexapod setup' first): %w", opts.Config, err)
	}
	if opts.Calibration != "" {
		cal, err := robot.LoadCalibration(opts.Calibration)
		if err != nil {
			return nil, err
		}
		cfg.Calibration = cal
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", opts.Config, err)
	}
	return cfg, nil
}

// openRig opens the servo bus and, when withRadio is set, the radio. With
// sim set the radio is replaced by an in-memory link fed by simulateController.
func openRig(cfg *robot.Config, withRadio, sim bool) (*rig, error) {
	r := &rig{}
	switch cfg.Servo.Driver {
	case robot.ServoFeetech:
		ft, err := robot.NewFeetechActuator(cfg.Servo.Port, cfg.Servo.BaudRate, cfg.Servo.Channels.Channels())
		if err != nil {
			return nil, err
		}
		if err := ft.Enable(context.Background()); err != nil {
			ft.Close()
			return nil, fmt.Errorf("enable torque: %w", err)
		}
		r.act, r.feetech = ft, ft
	default:
		r.act = robot.LogActuator{}
	}

	if !withRadio {
		return r, nil
	}
	if sim {
		ether := radio.NewEther()
		r.rx = radio.NewReceiver(ether.Device(), cfg.Radio, nil)
		r.sim = radio.NewTransmitter(ether.Device(), cfg.Radio, &status.LogIndicator{Logger: log.WithField("pkg", "sim")})
		return r, nil
	}
	bridge, err := radio.OpenBridge(cfg.Radio)
	if err != nil {
		r.Close()
		return nil, err
	}
	r.bridge = bridge
	r.rx = radio.NewReceiver(bridge, cfg.Radio, nil)
	return r, nil
}

func (r *rig) Close() error {
	var err error
	if r.feetech != nil {
		err = multierr.Append(err, r.feetech.Close())
	}
	if r.bridge != nil {
		err = multierr.Append(err, r.bridge.Close())
	}
	return err
}

func newHexapod(cfg *robot.Config, r *rig, light status.Indicator) (*robot.Hexapod, error) {
	return robot.New(robot.Options{
		Calibration: cfg.Calibration,
		Channels:    cfg.Servo.Channels,
		Actuator:    r.act,
		Receiver:    r.rx,
		Light:       light,
		Mode:        cfg.Mode,
		LegSettle:   cfg.LegSettle,
		PollWindow:  cfg.Radio.PollWindow,
	})
}

// simulateController plays the part of a remote that streams a slow wave of
// setpoints, so the robot can be exercised without hardware.
func simulateController(ctx context.Context, tx *radio.Transmitter, cfg radio.Config) error {
	if err := radio.Establish(ctx, tx, &status.LogIndicator{Logger: log.WithField("pkg", "sim")}, nil, cfg.Startup); err != nil {
		return err
	}
	deadline := timer.New(clock.New())
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		phase := time.Since(start).Seconds()
		var pkg radio.SetpointPackage
		for i := 0; i < radio.LegCount; i++ {
			offset := float64(i) * math.Pi / 3
			pkg.X[i] = 50 + int(50*math.Sin(phase+offset))
			pkg.Y[i] = 50 + int(50*math.Cos(phase+offset))
		}
		deadline.Arm(cfg.SendTimeout)
		if err := tx.Send(pkg, deadline); err != nil {
			log.WithError(err).Debug("simulated send failed")
		}
	}
}
