// Package ui provides the terminal user interface for the voice agent client.
package ui

import (
	"context"
	"fmt"
	"strings"

	"example.com/voice_agent/client"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Controller is the part of *client.Client the UI drives
type Controller interface {
	Connect(ctx context.Context, identity, roomName string) error
	Disconnect()
	StartSession(ctx context.Context, roomName, identity string) error
	StopSession(ctx context.Context, roomName, identity string)
	SendUserText(text string) error
	Snapshot() client.State
	Updates() <-chan struct{}
}

const (
	focusRoom = iota
	focusIdentity
	focusMessage
	focusCount
)

const (
	opConnect    = "connect"
	opDisconnect = "disconnect"
	opStart      = "start session"
	opStop       = "stop session"
	opSend       = "send"
)

type stateMsg client.State
type alertMsg string

// opResultMsg reports a finished controller call. text is the raw input of a send.
type opResultMsg struct {
	op   string
	text string
	err  error
}

// Model is the Bubble Tea model
type Model struct {
	ctx    context.Context
	ctrl   Controller
	alerts <-chan string

	defaultRoom     string
	defaultIdentity string

	inputs     []textinput.Model
	focus      int
	spinner    spinner.Model
	transcript viewport.Model

	state   client.State
	pending []string
	status  string
	failed  bool
	width   int
	height  int
}

// NewModel creates the UI. room and identity prefill the inputs and are used when
// an input is left empty.
func NewModel(ctx context.Context, ctrl Controller, alerts *Alerts, room, identity string) Model {
	roomInput := textinput.New()
	roomInput.Prompt = "Room: "
	roomInput.Placeholder = room
	roomInput.SetValue(room)
	roomInput.CharLimit = 128

	identityInput := textinput.New()
	identityInput.Prompt = "Identity: "
	identityInput.Placeholder = identity
	identityInput.SetValue(identity)
	identityInput.CharLimit = 128

	messageInput := textinput.New()
	messageInput.Prompt = "> "
	messageInput.Placeholder = "Type something to say..."
	messageInput.CharLimit = 2000

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	m := Model{
		ctx:             ctx,
		ctrl:            ctrl,
		defaultRoom:     room,
		defaultIdentity: identity,
		inputs:          []textinput.Model{roomInput, identityInput, messageInput},
		spinner:         s,
		transcript:      viewport.New(80, 10),
		state:           ctrl.Snapshot(),
	}
	if alerts != nil {
		m.alerts = alerts.C()
	}
	m.setFocus(focusMessage)
	m.renderTranscript()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.listenForUpdates(),
		m.listenForAlerts(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.transcript.Width = max(msg.Width-4, 20)
		m.transcript.Height = max(msg.Height-12, 3)
		m.renderTranscript()
		return m, nil

	case stateMsg:
		m.state = client.State(msg)
		m.renderTranscript()
		return m, m.listenForUpdates()

	case alertMsg:
		m.pending = append(m.pending, string(msg))
		return m, m.listenForAlerts()

	case opResultMsg:
		return m.handleResult(msg), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// an open alert takes every key until dismissed
	if len(m.pending) > 0 {
		switch msg.String() {
		case "enter", "esc":
			m.pending = m.pending[1:]
		}
		return m, nil
	}

	switch msg.String() {
	case "tab":
		m.setFocus((m.focus + 1) % focusCount)
		return m, nil
	case "shift+tab":
		m.setFocus((m.focus + focusCount - 1) % focusCount)
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd

	case "f1":
		roomName, identity := m.roomName(), m.identity()
		return m.run(opConnect, func(ctx context.Context) error {
			return m.ctrl.Connect(ctx, identity, roomName)
		})
	case "f2":
		return m.run(opDisconnect, func(context.Context) error {
			m.ctrl.Disconnect()
			return nil
		})
	case "f3":
		roomName, identity := m.roomName(), m.identity()
		return m.run(opStart, func(ctx context.Context) error {
			return m.ctrl.StartSession(ctx, roomName, identity)
		})
	case "f4":
		roomName, identity := m.roomName(), m.identity()
		return m.run(opStop, func(ctx context.Context) error {
			m.ctrl.StopSession(ctx, roomName, identity)
			return nil
		})

	case "enter":
		if m.focus != focusMessage {
			m.setFocus(m.focus + 1)
			return m, nil
		}
		text := m.inputs[focusMessage].Value()
		ctrl := m.ctrl
		return m, func() tea.Msg {
			return opResultMsg{op: opSend, text: text, err: ctrl.SendUserText(text)}
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// run executes fn off the render loop and reports the outcome as an opResultMsg
func (m Model) run(op string, fn func(context.Context) error) (Model, tea.Cmd) {
	m.status = op + "..."
	m.failed = false
	ctx := m.ctx
	return m, func() tea.Msg {
		return opResultMsg{op: op, err: fn(ctx)}
	}
}

func (m Model) handleResult(msg opResultMsg) Model {
	if msg.err != nil {
		m.status = fmt.Sprintf("%s failed: %v", msg.op, msg.err)
		m.failed = true
		return m
	}
	m.failed = false
	if msg.op == opSend {
		// keep anything typed while the send was in flight
		if strings.TrimSpace(msg.text) != "" && m.inputs[focusMessage].Value() == msg.text {
			m.inputs[focusMessage].SetValue("")
		}
		m.status = ""
		return m
	}
	m.status = msg.op + " done"
	return m
}

func (m *Model) setFocus(i int) {
	m.focus = i
	for j := range m.inputs {
		if j == i {
			m.inputs[j].Focus()
		} else {
			m.inputs[j].Blur()
		}
	}
}

func (m Model) roomName() string {
	if v := strings.TrimSpace(m.inputs[focusRoom].Value()); v != "" {
		return v
	}
	return m.defaultRoom
}

func (m Model) identity() string {
	if v := strings.TrimSpace(m.inputs[focusIdentity].Value()); v != "" {
		return v
	}
	return m.defaultIdentity
}

func (m Model) listenForUpdates() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	updates := ctrl.Updates()
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-updates:
			if !ok {
				return nil
			}
			return stateMsg(ctrl.Snapshot())
		}
	}
}

func (m Model) listenForAlerts() tea.Cmd {
	if m.alerts == nil {
		return nil
	}
	ctx, alerts := m.ctx, m.alerts
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-alerts:
			if !ok {
				return nil
			}
			return alertMsg(msg)
		}
	}
}

func (m *Model) renderTranscript() {
	if len(m.state.Transcript) == 0 {
		m.transcript.SetContent(helpStyle.Render("No transcript yet."))
		return
	}

	var b strings.Builder
	for i, e := range m.state.Transcript {
		if i > 0 {
			b.WriteString("\n")
		}
		if e.Speaker == client.SpeakerUser {
			b.WriteString(userStyle.Render("You:"))
		} else {
			b.WriteString(agentStyle.Render("Agent:"))
		}
		b.WriteString(" ")
		b.WriteString(e.Text)
	}
	m.transcript.SetContent(lipgloss.NewStyle().Width(m.transcript.Width).Render(b.String()))
	m.transcript.GotoBottom()
}

func (m Model) View() string {
	if len(m.pending) > 0 {
		return m.renderAlert(m.pending[0])
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Voice Agent"))
	b.WriteString("\n\n")
	b.WriteString(m.inputs[focusRoom].View())
	b.WriteString("    ")
	b.WriteString(m.inputs[focusIdentity].View())
	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	b.WriteString(boxStyle.Render(m.transcript.View()))
	b.WriteString("\n")
	b.WriteString(m.inputs[focusMessage].View())
	b.WriteString("\n\n")

	if m.status != "" {
		if m.failed {
			b.WriteString(errorStyle.Render(m.status))
		} else {
			b.WriteString(labelStyle.Render(m.status))
		}
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("F1 connect  F2 disconnect  F3 start session  F4 stop session  Tab focus  Enter send  Ctrl+C quit"))

	return b.String()
}

func (m Model) renderStatus() string {
	connected := inactiveStyle.Render("No")
	switch m.state.Media {
	case client.MediaConnected:
		connected = activeStyle.Render("Yes")
	case client.MediaConnecting:
		connected = m.spinner.View() + " " + inactiveStyle.Render("Connecting")
	}

	session := inactiveStyle.Render(m.state.Session.String())
	if m.state.Session == client.SessionOpen {
		session = activeStyle.Render(m.state.Session.String())
	}

	thinking := inactiveStyle.Render("No")
	if m.state.Thinking {
		thinking = m.spinner.View() + " " + activeStyle.Render("Yes...")
	}

	return strings.Join([]string{
		labelStyle.Render("Connected: ") + connected,
		labelStyle.Render("Session: ") + session,
		labelStyle.Render("Thinking: ") + thinking,
	}, "  │  ")
}

func (m Model) renderAlert(msg string) string {
	box := alertStyle.Render(msg + "\n\n" + helpStyle.Render("Press Enter to dismiss"))
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// Run starts the UI and blocks until the user quits or ctx is cancelled
func Run(ctx context.Context, ctrl Controller, alerts *Alerts, room, identity string) error {
	p := tea.NewProgram(
		NewModel(ctx, ctrl, alerts, room, identity),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}
