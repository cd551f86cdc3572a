package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/quantumrobotics/hexapod/pkg/radio"
	"github.com/quantumrobotics/hexapod/pkg/remote"
	"github.com/quantumrobotics/hexapod/pkg/routine"
	"github.com/quantumrobotics/hexapod/pkg/status"
)

type RunCommand struct {
	Hz  int  `long:"hz" description:"Send rate (overrides config)"`
	Sim bool `long:"sim" description:"Transmit into an in-memory link instead of the radio"`
}

// nudge is how far one key press moves a stick.
const nudge = 64

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	lcdStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Foreground(lipgloss.Color("10")).
			Padding(0, 1).
			Width(24)
	pressedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	badgeStyles  = map[status.State]lipgloss.Style{
		status.OK:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		status.Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		status.Waiting: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		status.Off:     dimStyle,
	}
)

// screen is a remote.Display and status light that feed the TUI.
type screen struct {
	frames *routine.Latest[remote.Frame]
	lights *routine.Latest[status.State]
}

func (s screen) Show(f remote.Frame) { s.frames.Send(f) }

func (s screen) Set(st status.State) {
	if st != status.Off {
		s.lights.Send(st)
	}
}

type frameMsg remote.Frame
type lightMsg status.State
type logMsg string

type controlModel struct {
	src      *remote.Virtual
	frames   <-chan remote.Frame
	lights   <-chan status.State
	logs     <-chan string
	frame    remote.Frame
	light    status.State
	logLines []string
	rotate   bool
}

func (m controlModel) waitFrame() tea.Cmd {
	return func() tea.Msg { return frameMsg(<-m.frames) }
}

func (m controlModel) waitLight() tea.Cmd {
	return func() tea.Msg { return lightMsg(<-m.lights) }
}

func (m controlModel) waitLog() tea.Cmd {
	return func() tea.Msg { return logMsg(<-m.logs) }
}

func (m controlModel) Init() tea.Cmd {
	return tea.Batch(m.waitFrame(), m.waitLight(), m.waitLog())
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "w":
			m.src.Nudge(m.rotate, 0, nudge)
		case "down", "s":
			m.src.Nudge(m.rotate, 0, -nudge)
		case "left", "a":
			m.src.Nudge(m.rotate, -nudge, 0)
		case "right", "d":
			m.src.Nudge(m.rotate, nudge, 0)
		case "tab":
			m.rotate = !m.rotate
		case " ":
			m.src.Recenter()
		case "1", "2", "3":
			m.src.ToggleButton(int(msg.String()[0] - '1'))
		case "m":
			m.src.ToggleMode()
		}

	case frameMsg:
		m.frame = remote.Frame(msg)
		return m, m.waitFrame()

	case lightMsg:
		m.light = status.State(msg)
		return m, m.waitLight()

	case logMsg:
		m.logLines = append(m.logLines, string(msg))
		if len(m.logLines) > 4 {
			m.logLines = m.logLines[len(m.logLines)-4:]
		}
		return m, m.waitLog()
	}
	return m, nil
}

func (m controlModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("RF Control"))
	sb.WriteString("  ")
	sb.WriteString(badgeStyles[m.light].Render("● " + m.light.String()))
	sb.WriteString("\n\n")

	pkg := m.frame.Package
	var buttons []string
	for i, on := range pkg.Buttons {
		label := fmt.Sprintf("B%d", i+1)
		if on {
			label = pressedStyle.Render(label)
		}
		buttons = append(buttons, label)
	}
	lcd := fmt.Sprintf("Mode:  %s\nAngle: %d°\n%s", pkg.Mode, pkg.Angle, strings.Join(buttons, " "))
	sb.WriteString(lcdStyle.Render(lcd))
	sb.WriteString("\n")

	move, rotate := m.src.Sticks()
	active := "move"
	if m.rotate {
		active = "rotate"
	}
	sb.WriteString(dimStyle.Render(fmt.Sprintf("move %d,%d  rotate %d,%d  keys -> %s stick", move.X, move.Y, rotate.X, rotate.Y, active)))
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render(fmt.Sprintf("sent %d  failed %d", m.frame.Sent, m.frame.Failed)))
	sb.WriteString("\n\n")

	for _, l := range m.logLines {
		sb.WriteString(l)
		sb.WriteString("\n")
	}
	sb.WriteString(dimStyle.Render("arrows/wasd stick  tab switch stick  space center  1-3 buttons  m mode  q quit"))
	sb.WriteString("\n")
	return sb.String()
}

// drain empties the robot end of a simulated link so sends keep succeeding.
func drain(ctx context.Context, dev *radio.Loopback) error {
	buf := make([]byte, radio.MaxPayload)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		for dev.Available() {
			if _, err := dev.Read(buf); err != nil {
				return err
			}
		}
	}
}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := remote.LoadConfigFrom(opts.Config)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) || !c.Sim {
			return fmt.Errorf("load %s: %w", opts.Config, err)
		}
		cfg = remote.DefaultConfig()
	}
	if c.Hz > 0 {
		cfg.Hz = c.Hz
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	var dev radio.Device
	if c.Sim {
		ether := radio.NewEther()
		dev = ether.Device()
		robotEnd := ether.Device()
		if err := radio.NewReceiver(robotEnd, cfg.Radio, nil).Initialize(); err != nil {
			return err
		}
		g.Go(func() error { return drain(ctx, robotEnd) })
	} else {
		if err := cfg.Validate(); err != nil {
			return err
		}
		bridge, err := radio.OpenBridge(cfg.Radio)
		if err != nil {
			return err
		}
		defer bridge.Close()
		dev = bridge
	}

	scr := screen{
		frames: routine.NewLatest[remote.Frame](),
		lights: routine.NewLatest[status.State](),
	}
	light := status.Multi{scr, &status.LogIndicator{Logger: log.WithField("pkg", "light")}}
	src := remote.NewVirtual(cfg.Mode)
	ctrl := remote.NewController(remote.Options{
		Source:      src,
		Transmitter: radio.NewTransmitter(dev, cfg.Radio, light),
		Display:     scr,
		Light:       light,
		SendTimeout: cfg.Radio.SendTimeout,
		UseStickY:   cfg.UseStickY,
	})

	fmt.Fprintln(os.Stderr, "Starting radio...")
	if err := ctrl.Start(ctx, cfg.Radio.Startup); err != nil {
		cancel()
		g.Wait()
		return err
	}

	loop := routine.New(cfg.Hz)
	g.Go(func() error {
		err := loop.Run(ctx, ctrl.Tick)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	hook := routine.NewLogHook(16, log.WarnLevel)
	log.AddHook(hook)
	log.SetOutput(io.Discard)

	g.Go(func() error {
		defer cancel()
		m := controlModel{
			src:    src,
			frames: scr.frames.C(),
			lights: scr.lights.C(),
			logs:   hook.Lines(),
			frame:  ctrl.Snapshot(),
			light:  status.OK,
		}
		_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	})
	return g.Wait()
}
