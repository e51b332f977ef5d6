package ui

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/luxio/internal/client"
	"github.com/muurk/luxio/internal/device"
	"github.com/muurk/luxio/internal/events"
	"github.com/muurk/luxio/internal/led"
)

const (
	// BrightnessStep is how far one key press moves brightness.
	BrightnessStep = 25

	// MinBrightness is the lowest brightness the controller accepts.
	MinBrightness = 10

	maxEventLog = 6
)

// Presets are the colours behind keys 1 to 8.
var Presets = []led.Color{
	{R: 255},
	{G: 255},
	{B: 255},
	{W: 255},
	{R: 255, G: 147, B: 41},
	{R: 148, B: 211},
	{G: 255, B: 255},
	{R: 255, G: 80},
}

// Rainbow is the palette sent by the gradient key.
var Rainbow = []led.Color{
	{R: 255},
	{R: 255, G: 255},
	{G: 255},
	{G: 255, B: 255},
	{B: 255},
	{R: 255, B: 255},
}

// Stream is the live connection the monitor drives.
type Stream interface {
	Messages() <-chan client.Message
	Send(method string, params any) (int, error)
	Err() error
}

type streamMsg client.Message

type streamEndMsg struct{ err error }

type sentMsg struct {
	id     int
	method string
	err    error
}

// MonitorModel is a live view of one controller. It keeps a copy of the
// full state current from the event stream and turns key presses into
// requests on the same stream.
type MonitorModel struct {
	Address string

	stream  Stream
	state   *device.FullState
	pending map[int]string
	log     []string
	err     error
	ended   bool

	width   int
	spinner spinner.Model
	bar     progress.Model
	help    help.Model
	keys    monitorKeyMap
}

// NewMonitor creates a monitor over an open stream.
func NewMonitor(address string, stream Stream) MonitorModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 30

	return MonitorModel{
		Address: address,
		stream:  stream,
		pending: make(map[int]string),
		width:   GetTerminalWidth(),
		spinner: s,
		bar:     bar,
		help:    help.New(),
		keys:    newMonitorKeyMap(),
	}
}

// State returns the last known controller state, or nil before the first
// full_state frame.
func (m MonitorModel) State() *device.FullState { return m.state }

// Err returns the last error reported by the controller or the stream.
func (m MonitorModel) Err() error { return m.err }

// Init implements tea.Model
func (m MonitorModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForMessage(m.stream))
}

func waitForMessage(s Stream) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-s.Messages()
		if !ok {
			return streamEndMsg{err: s.Err()}
		}
		return streamMsg(msg)
	}
}

func send(s Stream, method string, params any) tea.Cmd {
	return func() tea.Msg {
		id, err := s.Send(method, params)
		return sentMsg{id: id, method: method, err: err}
	}
}

// Update implements tea.Model
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case streamMsg:
		m.apply(client.Message(msg))
		return m, waitForMessage(m.stream)

	case streamEndMsg:
		m.ended = true
		if msg.err != nil {
			m.err = msg.err
		}
		return m, tea.Quit

	case sentMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("%s: %w", msg.method, msg.err)
		} else {
			m.pending[msg.id] = msg.method
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m MonitorModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if m.state == nil {
		return m, nil
	}
	ls := m.state.LED.State

	switch {
	case key.Matches(msg, m.keys.Toggle):
		return m, send(m.stream, "led.set_on", map[string]bool{"on": !ls.On})

	case key.Matches(msg, m.keys.Brighter):
		b := int(ls.Brightness) + BrightnessStep
		if b > 255 {
			b = 255
		}
		return m, send(m.stream, "led.set_brightness", map[string]int{"brightness": b})

	case key.Matches(msg, m.keys.Dimmer):
		b := int(ls.Brightness) - BrightnessStep
		if b < MinBrightness {
			b = MinBrightness
		}
		return m, send(m.stream, "led.set_brightness", map[string]int{"brightness": b})

	case key.Matches(msg, m.keys.Preset):
		i, _ := strconv.Atoi(msg.String())
		c := Presets[i-1]
		return m, send(m.stream, "led.set_color", c)

	case key.Matches(msg, m.keys.Gradient):
		return m, send(m.stream, "led.set_gradient", map[string][]led.Color{"colors": Rainbow})
	}
	return m, nil
}

// apply folds one stream frame into the model.
func (m *MonitorModel) apply(msg client.Message) {
	if msg.Event == "" {
		if msg.ID == nil {
			return
		}
		method := m.pending[*msg.ID]
		delete(m.pending, *msg.ID)
		if msg.ErrorMsg != "" {
			m.err = fmt.Errorf("%s: %s", method, msg.ErrorMsg)
		} else {
			m.err = nil
		}
		return
	}

	m.record(msg.Event)

	if msg.Event == events.FullState {
		var st device.FullState
		if err := json.Unmarshal(msg.Data, &st); err != nil {
			m.err = fmt.Errorf("failed to decode full state: %w", err)
			return
		}
		m.state = &st
		return
	}
	if m.state == nil {
		return
	}

	var target any
	switch msg.Event {
	case events.LEDState:
		target = &m.state.LED.State
	case events.LEDConfig:
		target = &m.state.LED.Config
	case events.SystemState:
		target = &m.state.System.State
	case events.SystemConfig:
		target = &m.state.System.Config
	case events.NetworkState:
		target = &m.state.Network.State
	case events.NetworkConfig:
		target = &m.state.Network.Config
	default:
		return
	}
	if err := json.Unmarshal(msg.Data, target); err != nil {
		m.err = fmt.Errorf("failed to decode %s: %w", msg.Event, err)
	}
}

func (m *MonitorModel) record(name string) {
	m.log = append(m.log, name)
	if len(m.log) > maxEventLog {
		m.log = m.log[len(m.log)-maxEventLog:]
	}
}

// View implements tea.Model
func (m MonitorModel) View() string {
	if m.state == nil {
		if m.ended {
			return ErrorMessageStyle.Render("  Connection closed before state arrived") + "\n"
		}
		return fmt.Sprintf("\n  %s Connecting to %s...\n", m.spinner.View(), m.Address)
	}

	st := m.state
	ls := st.LED.State

	power := lipgloss.NewStyle().Foreground(MutedColor).Render(OffMarker + " OFF")
	if ls.On {
		power = lipgloss.NewStyle().Foreground(SuccessColor).Bold(true).Render(OnMarker + " ON")
	}

	nw := st.Network.State
	network := nw.State
	switch {
	case nw.Connected:
		network = fmt.Sprintf("%s %s", nw.SSID, nw.IP)
	case nw.HotspotActive:
		network = lipgloss.NewStyle().Foreground(WarningColor).Render("hotspot")
	}

	rows := []string{
		HeaderTitleStyle.Render(strings.ToUpper(st.System.Config.Name)),
		HeaderCommandStyle.Render(m.Address + " • " + st.System.State.Version),
		"",
		row("Power", power),
		row("Brightness", m.bar.ViewAs(float64(ls.Brightness)/255)+" "+strconv.Itoa(int(ls.Brightness))),
		row("Colors", RenderSwatches(ls.Colors)),
		row("Strip", fmt.Sprintf("%d × %s", st.LED.Config.Count, st.LED.Config.Type)),
		row("Network", network),
		"",
		EventStyle.Render("  " + strings.Join(m.log, " · ")),
	}
	if m.err != nil {
		rows = append(rows, ErrorMessageStyle.Render("  "+FailureMarker+" "+m.err.Error()))
	}

	box := HeaderBorderStyle(m.width).Render(strings.Join(rows, "\n"))
	return box + "\n" + m.help.View(m.keys) + "\n"
}

func row(key, value string) string {
	return ResultKeyStyle.Render("  "+key+":") + " " + value
}

// RunMonitor runs the monitor until the user quits or the stream ends.
func RunMonitor(address string, stream Stream) error {
	final, err := tea.NewProgram(NewMonitor(address, stream)).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(MonitorModel); ok && m.ended && m.err != nil && !errors.Is(m.err, client.ErrStreamClosed) {
		return m.err
	}
	return nil
}
