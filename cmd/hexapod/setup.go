package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/quantumrobotics/hexapod/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const (
	servoBaud = 1_000_000
	// minRange is the span below which a calibrated joint is flagged.
	minRange = 45
)

type SetupCommand struct {
	Log bool `long:"log" description:"Skip the servo scan and log servo writes instead"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Hexapod Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━"))
	fmt.Println()

	cfg := robot.DefaultConfig()
	if robot.ConfigExists(opts.Config) {
		existing, err := robot.LoadConfigFrom(opts.Config)
		if err != nil {
			return fmt.Errorf("existing %s: %w", opts.Config, err)
		}
		cfg = existing
		fmt.Println(dimStyle.Render("Updating " + opts.Config))
	}

	ports, err := candidatePorts()
	if err != nil {
		return err
	}

	if !c.Log {
		fmt.Println("Scanning for the servo bus...")
		port, ok := findServoBus(ports)
		if !ok {
			fmt.Println("No bus with 12 servos found. Falling back to the log driver.")
			cfg.Servo = robot.ServoConfig{Driver: robot.ServoLog, Channels: robot.DefaultChannelTable()}
		} else {
			fmt.Println(successStyle.Render("Servo bus found on " + port))
			cfg.Servo = robot.ServoConfig{
				Driver:   robot.ServoFeetech,
				Port:     port,
				BaudRate: servoBaud,
				Channels: robot.BusChannelTable(),
			}

			fmt.Println()
			fmt.Println(subHeaderStyle.Render("━━━ Calibrating Joints ━━━"))
			fmt.Println()
			cal, err := calibrate(cfg.Servo)
			if err != nil {
				return err
			}
			cfg.Calibration = cal
		}
	}

	if err := chooseRadio(cfg, ports); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.SaveTo(opts.Config); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"))
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Configuration saved to %s\n", opts.Config)
	fmt.Println()
	fmt.Println("Start the robot with: " + headerStyle.Render("hexapod run"))
	return nil
}

func candidatePorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	var out []string
	for _, port := range ports {
		// Skip Bluetooth ports on macOS
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		out = append(out, port)
	}
	return out, nil
}

// findServoBus returns the first port answering with servo IDs 1-12.
func findServoBus(ports []string) (string, bool) {
	for _, port := range ports {
		bus, err := feetech.NewBus(feetech.BusConfig{
			Port:     port,
			BaudRate: servoBaud,
			Protocol: feetech.ProtocolSTS,
			Timeout:  100 * time.Millisecond,
		})
		if err != nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		servos, err := bus.Scan(ctx, 1, robot.LegCount*robot.JointsPerLeg)
		cancel()
		bus.Close()
		if err == nil && isHexapodBus(servos) {
			return port, true
		}
	}
	return "", false
}

func isHexapodBus(servos []feetech.FoundServo) bool {
	want := robot.BusChannelTable().Channels()
	if len(servos) != len(want) {
		return false
	}
	ids := make(map[int]bool)
	for _, s := range servos {
		ids[s.ID] = true
	}
	for _, id := range want {
		if !ids[id] {
			return false
		}
	}
	return true
}

func calibrate(sc robot.ServoConfig) (robot.Calibration, error) {
	act, err := robot.NewFeetechActuator(sc.Port, sc.BaudRate, sc.Channels.Channels())
	if err != nil {
		return robot.Calibration{}, err
	}
	defer act.Close()

	// Torque off so the legs can be moved by hand.
	ctx := context.Background()
	if err := act.Disable(ctx); err != nil {
		return robot.Calibration{}, fmt.Errorf("disable torque: %w", err)
	}
	angles, err := act.Angles(ctx)
	if err != nil {
		return robot.Calibration{}, err
	}

	fmt.Println(subHeaderStyle.Render("Record range of motion"))
	fmt.Println("Move every hip and knee to both ends of its travel.")
	fmt.Println()

	model := newCalibrationModel(act, sc.Channels, angles)
	final, err := tea.NewProgram(model).Run()
	if err != nil {
		return robot.Calibration{}, fmt.Errorf("calibration: %w", err)
	}
	cm := final.(calibrationModel)

	var cal robot.Calibration
	for _, id := range robot.AllJoints() {
		l := cm.limits[id.Leg][id.Axis]
		if id.Axis == robot.X {
			cal.X[id.Leg] = l
		} else {
			cal.Y[id.Leg] = l
		}
	}
	if err := cal.Validate(); err != nil {
		return robot.Calibration{}, errors.Join(errors.New("some joints were not moved"), err)
	}
	return cal, nil
}

type calibrationModel struct {
	act      *robot.FeetechActuator
	channels robot.ChannelTable
	current  [robot.LegCount][robot.JointsPerLeg]int
	limits   [robot.LegCount][robot.JointsPerLeg]robot.Limits
	quitting bool
}

type tickMsg time.Time

func newCalibrationModel(act *robot.FeetechActuator, channels robot.ChannelTable, angles map[int]int) calibrationModel {
	m := calibrationModel{act: act, channels: channels}
	for _, id := range robot.AllJoints() {
		ch, _ := channels.Channel(id.Axis, id.Leg)
		a := angles[ch]
		m.current[id.Leg][id.Axis] = a
		m.limits[id.Leg][id.Axis] = robot.Limits{Min: a, Max: a}
	}
	return m
}

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m calibrationModel) Init() tea.Cmd {
	return tick()
}

func (m calibrationModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		angles, err := m.act.Angles(context.Background())
		if err == nil {
			for _, id := range robot.AllJoints() {
				ch, _ := m.channels.Channel(id.Axis, id.Leg)
				a, ok := angles[ch]
				if !ok {
					continue
				}
				m.current[id.Leg][id.Axis] = a
				l := &m.limits[id.Leg][id.Axis]
				l.Min = min(l.Min, a)
				l.Max = max(l.Max, a)
			}
		}
		return m, tick()
	}
	return m, nil
}

func (m calibrationModel) View() string {
	if m.quitting {
		return ""
	}

	headerCell := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	jointCell := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	currentCell := lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Padding(0, 1)
	rangeGood := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Padding(0, 1)
	rangeLow := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	joints := robot.AllJoints()
	rows := make([][]string, 0, len(joints))
	spans := make([]int, 0, len(joints))
	for _, id := range joints {
		ch, _ := m.channels.Channel(id.Axis, id.Leg)
		l := m.limits[id.Leg][id.Axis]
		spans = append(spans, l.Max-l.Min)
		rows = append(rows, []string{
			id.String(),
			fmt.Sprintf("%d", ch),
			fmt.Sprintf("%d°", m.current[id.Leg][id.Axis]),
			fmt.Sprintf("%d°", l.Min),
			fmt.Sprintf("%d°", l.Max),
			fmt.Sprintf("%d°", l.Max-l.Min),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Joint", "Servo", "Current", "Min", "Max", "Range").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			switch col {
			case 0:
				return jointCell
			case 2:
				return currentCell
			case 5:
				if row >= 0 && row < len(spans) && spans[row] >= minRange {
					return rangeGood
				}
				return rangeLow
			default:
				return cell
			}
		})

	return t.Render() + "\n\n" + dimStyle.Render("Press Enter when done")
}

// chooseRadio asks for the radio dongle port and the start-up mode.
func chooseRadio(cfg *robot.Config, ports []string) error {
	options := make([]huh.Option[string], 0, len(ports)+1)
	for _, p := range ports {
		if p == cfg.Servo.Port {
			continue
		}
		options = append(options, huh.NewOption(p, p))
	}
	if len(options) == 0 {
		fmt.Println(dimStyle.Render("No free serial port for the radio; edit the config later."))
		return nil
	}
	if cfg.Radio.Port == "" {
		cfg.Radio.Port = options[0].Value
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which port is the radio on?").
				Options(options...).
				Value(&cfg.Radio.Port),
			huh.NewSelect[robot.Mode]().
				Title("Start-up mode").
				Options(
					huh.NewOption("Automatic (follow the controller)", robot.Automatic),
					huh.NewOption("Manual", robot.Manual),
				).
				Value(&cfg.Mode),
		),
	)
	if err := form.Run(); err != nil {
		fmt.Println()
		os.Exit(0)
	}
	return nil
}
