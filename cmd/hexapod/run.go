package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/quantumrobotics/hexapod/pkg/robot"
	"github.com/quantumrobotics/hexapod/pkg/routine"
	"github.com/quantumrobotics/hexapod/pkg/status"
)

type RunCommand struct {
	Hz     int  `long:"hz" description:"Control loop frequency (overrides config)"`
	Sim    bool `long:"sim" description:"Replace the radio with a simulated controller"`
	Manual bool `long:"manual" description:"Start in manual mode"`
	NoTUI  bool `long:"no-tui" description:"Log to stderr instead of drawing the dashboard"`
}

const (
	headerHeight = 3 // title, status line, blank
	legendHeight = 2
	footerHeight = 7
	maxLogs      = 5
	borderSize   = 2
)

// One color per leg; the Y joint uses the lighter shade.
var legColors = [robot.LegCount][robot.JointsPerLeg]string{
	{"196", "210"},
	{"208", "216"},
	{"226", "229"},
	{"46", "120"},
	{"51", "159"},
	{"201", "219"},
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	badgeStyles = map[status.State]lipgloss.Style{
		status.OK:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		status.Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		status.Waiting: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		status.Off:     statusStyle,
	}
)

// badge is a status light the dashboard can read back.
type badge struct {
	latest *routine.Latest[status.State]
}

func (b badge) Set(s status.State) {
	if s != status.Off {
		b.latest.Send(s)
	}
}

func renderBadge(s status.State) string {
	return badgeStyles[s].Render("● " + s.String())
}

type runModel struct {
	hz       int
	states   <-chan robot.State
	lights   <-chan status.State
	logs     <-chan string
	modes    chan<- robot.Mode
	chart    *streamlinechart.Model
	state    robot.State
	light    status.State
	width    int
	height   int
	logLines []string
	last     [robot.LegCount][robot.JointsPerLeg]int
	seen     bool
	quitting bool
}

type stateMsg robot.State
type lightMsg status.State
type logMsg string

func waitFor[T any, M any](ch <-chan T, wrap func(T) M) tea.Cmd {
	return func() tea.Msg {
		return wrap(<-ch)
	}
}

func newRunModel(hz int, states <-chan robot.State, lights <-chan status.State, logs <-chan string, modes chan<- robot.Mode) runModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(0, 180),
	)
	for _, id := range robot.AllJoints() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(legColors[id.Leg][id.Axis]))
		chart.SetDataSetStyles(id.String(), runes.ThinLineStyle, style)
	}
	return runModel{
		hz:     hz,
		states: states,
		lights: lights,
		logs:   logs,
		modes:  modes,
		chart:  &chart,
		light:  status.Waiting,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(
		waitFor(m.states, func(s robot.State) tea.Msg { return stateMsg(s) }),
		waitFor(m.lights, func(s status.State) tea.Msg { return lightMsg(s) }),
		waitFor(m.logs, func(s string) tea.Msg { return logMsg(s) }),
	)
}

func (m *runModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

// moved reports whether any joint changed since the last drawn state.
func (m *runModel) moved(s robot.State) bool {
	changed := !m.seen
	for leg := range s.Joints {
		for axis := range s.Joints[leg] {
			if s.Joints[leg][axis].Current != m.last[leg][axis] {
				changed = true
			}
			m.last[leg][axis] = s.Joints[leg][axis].Current
		}
	}
	m.seen = true
	return changed
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.chart.Resize(m.chartSize())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "m":
			next := robot.Manual
			if m.state.Mode == robot.Manual {
				next = robot.Automatic
			}
			select {
			case m.modes <- next:
			default:
			}
		}

	case stateMsg:
		s := robot.State(msg)
		if m.moved(s) {
			for _, id := range robot.AllJoints() {
				m.chart.PushDataSet(id.String(), float64(s.Joints[id.Leg][id.Axis].Current))
			}
			m.chart.DrawAll()
		}
		m.state = s
		return m, waitFor(m.states, func(s robot.State) tea.Msg { return stateMsg(s) })

	case lightMsg:
		m.light = status.State(msg)
		return m, waitFor(m.lights, func(s status.State) tea.Msg { return lightMsg(s) })

	case logMsg:
		m.logLines = append(m.logLines, string(msg))
		if len(m.logLines) > maxLogs {
			m.logLines = m.logLines[len(m.logLines)-maxLogs:]
		}
		return m, waitFor(m.logs, func(s string) tea.Msg { return logMsg(s) })
	}

	return m, nil
}

func (m runModel) View() string {
	if m.quitting {
		return "Hexapod stopped.\n"
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Hexapod"))
	sb.WriteString(fmt.Sprintf(" - %d Hz  %s", m.hz, renderBadge(m.light)))
	sb.WriteString("\n")

	finished := "moving"
	if m.state.AllFinished {
		finished = "settled"
	}
	sb.WriteString(statusStyle.Render(fmt.Sprintf("mode %s  %s  received %d  dropped %d  buttons %v",
		m.state.Mode, finished, m.state.Received, m.state.Dropped, m.state.Buttons)))
	sb.WriteString("\n\n")

	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(max(m.width-4, 20)).
		Foreground(lipgloss.Color("9"))

	lines := statusStyle.Render("Press 'm' to switch mode, 'q' to quit")
	if len(m.logLines) > 0 {
		lines = strings.Join(m.logLines, "\n")
	}
	sb.WriteString(logStyle.Render(lines))
	sb.WriteString("\n")
	return sb.String()
}

func renderLegend() string {
	var items []string
	for leg := 0; leg < robot.LegCount; leg++ {
		x := lipgloss.NewStyle().Foreground(lipgloss.Color(legColors[leg][robot.X])).Bold(true)
		y := lipgloss.NewStyle().Foreground(lipgloss.Color(legColors[leg][robot.Y])).Bold(true)
		items = append(items, x.Render("━")+y.Render("━")+fmt.Sprintf(" leg%d", leg))
	}
	return strings.Join(items, "  ")
}

func (c *RunCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if c.Hz > 0 {
		cfg.Hz = c.Hz
	}
	if c.Manual {
		cfg.Mode = robot.Manual
	}

	r, err := openRig(cfg, true, c.Sim)
	if err != nil {
		return err
	}
	defer r.Close()

	lights := routine.NewLatest[status.State]()
	light := status.Multi{badge{lights}, &status.LogIndicator{Logger: log.WithField("pkg", "light")}}
	hex, err := newHexapod(cfg, r, light)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if r.sim != nil {
		g.Go(func() error { return simulateController(ctx, r.sim, cfg.Radio) })
	}

	fmt.Fprintf(os.Stderr, "Homing servos and waiting for the radio on %s...\n", cfg.Radio.Port)
	if err := hex.Start(ctx, cfg.Radio.Startup); err != nil {
		cancel()
		g.Wait()
		return err
	}

	states := routine.NewLatest[robot.State]()
	modes := make(chan robot.Mode, 1)
	loop := routine.New(cfg.Hz)
	g.Go(func() error {
		err := loop.Run(ctx, func(ctx context.Context) error {
			select {
			case m := <-modes:
				hex.SelectMode(m)
			default:
			}
			err := hex.Tick(ctx)
			states.Send(hex.Snapshot())
			return err
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if c.NoTUI {
		<-ctx.Done()
		return g.Wait()
	}

	hook := routine.NewLogHook(maxLogs*4, log.InfoLevel)
	log.AddHook(hook)
	log.SetOutput(io.Discard)

	g.Go(func() error {
		defer cancel()
		p := tea.NewProgram(newRunModel(loop.Hz(), states.C(), lights.C(), hook.Lines(), modes), tea.WithAltScreen())
		_, err := p.Run()
		return err
	})
	return g.Wait()
}
