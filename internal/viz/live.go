package viz

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/vescwheel/internal/control"
	"github.com/san-kum/vescwheel/internal/device"
	"github.com/san-kum/vescwheel/internal/dynamo"
	"github.com/san-kum/vescwheel/internal/wheel"
)

const (
	canvasWidth     = 24
	canvasHeight    = 12
	historyCapacity = 300
	frameRate       = 30
	glitchOffset    = 40
)

// plantParams are routed to the simulated drive; everything else goes to
// the controller.
var plantParams = map[string]bool{"load": true}

type TickMsg time.Time

// sampleFeed is a wheel.Runner observer that hands samples to the UI
// without ever blocking the control loop.
type sampleFeed chan dynamo.Sample

func (f sampleFeed) OnTick(s dynamo.Sample) {
	select {
	case f <- s:
	default:
	}
}

// Model is the live view of a controller running in real time against a
// simulated drive.
type Model struct {
	ctrl   *wheel.Controller
	dev    *device.Sim
	feed   sampleFeed
	cancel context.CancelFunc
	errs   chan error
	err    error

	reference float64
	stepSize  float64

	refHist, velHist, plantHist, dutyHist []float64
	last                                  dynamo.Sample
	snap                                  wheel.Snapshot

	params    map[string]float64
	paramKeys []string
	selected  int

	canvas   *Canvas
	showHelp bool
}

// NewModel wires ctrl to dev through a wheel.Runner. Nothing runs until
// Start is called.
func NewModel(ctrl *wheel.Controller, dev *device.Sim, stepSize float64) *Model {
	params := ctrl.GetParams()
	params["load"] = dev.GetParams()["load"]
	keys := []string{"kp", "ki", "kd", "i_clamp", "duty_limiter", "load"}
	sort.Strings(keys[:5])

	return &Model{
		ctrl:      ctrl,
		dev:       dev,
		feed:      make(sampleFeed, 64),
		errs:      make(chan error, 2),
		stepSize:  stepSize,
		params:    params,
		paramKeys: keys,
		canvas:    NewCanvas(canvasWidth, canvasHeight),
	}
}

// Start launches the drive simulation and the control loop. They stop when
// ctx is canceled or the model quits.
func (m *Model) Start(ctx context.Context) error {
	ctx, m.cancel = context.WithCancel(ctx)

	packets := make(chan wheel.Packet, 16)
	runner, err := wheel.NewRunner(m.ctrl, packets, wheel.WithObserver(m.feed))
	if err != nil {
		return err
	}

	period := m.ctrl.Gains().Period()
	go func() {
		if err := m.dev.Run(ctx, period/4, 4, packets); err != nil && ctx.Err() == nil {
			m.errs <- fmt.Errorf("device: %w", err)
		}
	}()
	go func() {
		if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
			m.errs <- fmt.Errorf("control loop: %w", err)
		}
	}()
	return nil
}

func (m *Model) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Err reports the error that ended the session, if any.
func (m *Model) Err() error { return m.err }

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m *Model) Init() tea.Cmd {
	return tick()
}

// Update handles input events and drains new samples.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.Stop()
			return m, tea.Quit
		case "up", "k":
			m.setReference(m.reference + m.stepSize)
		case "down", "j":
			m.setReference(m.reference - m.stepSize)
		case "0", " ":
			m.setReference(0)
		case "tab":
			m.selected = (m.selected + 1) % len(m.paramKeys)
		case "+", "=":
			m.adjustParam(1.1)
		case "-", "_":
			m.adjustParam(1 / 1.1)
		case "g":
			m.dev.InjectGlitch(glitchOffset)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		select {
		case err := <-m.errs:
			m.err = err
			m.Stop()
			return m, tea.Quit
		default:
		}
		m.drain()
		return m, tick()
	}
	return m, nil
}

func (m *Model) setReference(v float64) {
	m.reference = v
	m.ctrl.SetTargetVelocity(v)
}

func (m *Model) adjustParam(factor float64) {
	key := m.paramKeys[m.selected]
	val := m.params[key]
	if val == 0 {
		val = 0.01
	} else {
		val *= factor
	}

	var err error
	if plantParams[key] {
		err = m.dev.SetParam(key, val)
	} else {
		err = m.ctrl.SetParam(key, val)
	}
	if err == nil {
		m.params[key] = val
	}
}

func (m *Model) drain() {
	for {
		select {
		case s := <-m.feed:
			m.record(s)
		default:
			m.snap = m.ctrl.Snapshot()
			return
		}
	}
}

func (m *Model) record(s dynamo.Sample) {
	m.last = s
	plant := m.dev.State()
	m.refHist = push(m.refHist, s.Reference)
	m.velHist = push(m.velHist, s.VelocitySens)
	m.plantHist = push(m.plantHist, plant[1])
	m.dutyHist = push(m.dutyHist, s.Duty)
}

func push(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyCapacity {
		h = h[1:]
	}
	return h
}

func (m *Model) status() string {
	switch {
	case m.last.Fault:
		return statusFault.Render("FAULT")
	case math.Abs(m.reference) < control.Deadband:
		return statusReleased.Render("RELEASED")
	default:
		return statusTracking.Render("TRACKING")
	}
}

// View renders the TUI interface.
func (m *Model) View() string {
	geom := m.ctrl.Geometry()

	m.canvas.Clear()
	m.canvas.DrawWheel(m.snap.PositionSens, 5, geom.PolePairs)
	wheelView := wheelStyle.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(headerStyle.Render("VESC WHEEL") + "  " + m.status() + "\n\n")

	row := func(label, value string) {
		s.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}
	row("Reference", fmt.Sprintf("%+.2f rad/s", m.reference))
	row("Estimate", fmt.Sprintf("%+.2f rad/s", m.snap.VelocitySens))
	if n := len(m.plantHist); n > 0 {
		row("Plant", fmt.Sprintf("%+.2f rad/s", m.plantHist[n-1]))
	}
	row("Position", fmt.Sprintf("%+.2f rad", m.snap.PositionSens))
	row("Counts", fmt.Sprintf("%d (target %.1f)", m.snap.Pulse, m.snap.TargetPulse))
	row("Effort", fmt.Sprintf("%+.3f N·m", m.snap.EffortSens))
	row("Motor", fmt.Sprintf("%.0f rpm", m.snap.MotorRPM))
	row("Duty", DutyBar(m.snap.Duty, m.ctrl.Gains().DutyLimit, 20)+fmt.Sprintf(" %+.3f", m.snap.Duty))
	row("", SparklineChart(m.dutyHist, 41))
	row("Ticks", fmt.Sprintf("%d  faults %d  packets %d", m.snap.Ticks, m.snap.Faults, m.snap.Packets))

	s.WriteString("\nPARAMETERS\n")
	for i, k := range m.paramKeys {
		line := fmt.Sprintf("%-13s %.5g", k, m.params[k])
		if i == m.selected {
			s.WriteString(activeParamStyle.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + labelStyle.Render(line) + "\n")
		}
	}
	stats := panelStyle.Render(s.String())

	top := lipgloss.JoinHorizontal(lipgloss.Top, wheelView, stats)

	chart := ""
	if len(m.velHist) > 1 {
		chart = asciigraph.PlotMany(
			[][]float64{m.refHist, m.velHist, m.plantHist},
			asciigraph.Height(10),
			asciigraph.Width(70),
			asciigraph.SeriesColors(asciigraph.Yellow, asciigraph.Green, asciigraph.Blue),
			asciigraph.Caption("reference (yellow)  estimate (green)  plant (blue)  rad/s"),
		)
	}

	help := helpStyle.Render("↑↓ reference  0 release  tab/+/- tune  g glitch  ? help  q quit")
	view := top + "\n" + graphStyle.Render(chart) + "\n" + help

	if m.showHelp {
		return `
╔══════════════════════════════════════════╗
║            KEYBOARD SHORTCUTS            ║
╠══════════════════════════════════════════╣
║  Up/K      - Raise velocity reference    ║
║  Down/J    - Lower velocity reference    ║
║  0/Space   - Release the motor           ║
║  Tab       - Cycle parameters            ║
║  +/-       - Scale parameter by 10%      ║
║  G         - Inject a hall count glitch  ║
║  ?         - Toggle this help            ║
║  Q         - Quit                        ║
╚══════════════════════════════════════════╝
` + "\n" + view
	}
	return view
}
