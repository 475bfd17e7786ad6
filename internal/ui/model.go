/*
Package ui is the terminal renderer of a chat session.

It reads immutable session.View snapshots and forwards user intent (login,
thread selection, compose edits, send) to the session. The session signals
changes on its Updates channel, which is bridged into bubbletea messages.
*/
package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"chatsync/internal/app/chat"
	"chatsync/internal/app/session"
)

const (
	// upper bound for a login or send started from the UI.
	actionTimeout = 15 * time.Second

	sidebarWidth = 22
	footerHeight = 3
	headerHeight = 1
)

// Controller is the part of the session the UI drives.
type Controller interface {
	Login(ctx context.Context, name string) error
	SelectPreviousIdentity(name string)
	Teardown()
	SetDraft(text string)
	SelectThread(target string)
	SendDraft(ctx context.Context) error
	View() session.View
	Updates() <-chan struct{}
}

type updatedMsg struct{}

type loginDoneMsg struct{ err error }

type sendDoneMsg struct{ err error }

// Model is the bubbletea model of the client.
type Model struct {
	ctrl Controller
	view session.View

	nameInput textinput.Model
	compose   textinput.Model
	viewport  viewport.Model

	// index into view.PreviousIdentities highlighted on the login screen; -1 for none.
	picked int

	width, height int
	ready         bool
	busy          bool
	status        string
}

// New builds the model for ctrl.
func New(ctrl Controller) Model {
	name := textinput.New()
	name.Placeholder = "Choose a username"
	name.CharLimit = 64
	name.Focus()

	compose := textinput.New()
	compose.Placeholder = "Type a message..."
	compose.CharLimit = 1024

	m := Model{
		ctrl:      ctrl,
		view:      ctrl.View(),
		nameInput: name,
		compose:   compose,
		picked:    -1,
	}
	if cur := m.view.Identity.Name; cur != "" {
		m.nameInput.SetValue(cur)
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForUpdate(m.ctrl))
}

// waitForUpdate blocks until the session signals a change.
func waitForUpdate(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		<-ctrl.Updates()
		return updatedMsg{}
	}
}

func loginCmd(ctrl Controller, name string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return loginDoneMsg{err: ctrl.Login(ctx, name)}
	}
}

func sendCmd(ctrl Controller) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return sendDoneMsg{err: ctrl.SendDraft(ctx)}
	}
}

func (m Model) chatting() bool {
	return m.view.State != session.Disconnected
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case updatedMsg:
		m.refresh()
		return m, waitForUpdate(m.ctrl)

	case loginDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = errorText(msg.err)
		} else {
			m.status = ""
			m.compose.Focus()
			m.nameInput.Blur()
		}
		m.refresh()
		return m, nil

	case sendDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = errorText(msg.err)
		} else {
			m.status = ""
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.chatting() {
			return m.updateChat(msg)
		}
		return m.updateLogin(msg)
	}

	var cmd tea.Cmd
	if m.chatting() {
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyUp, tea.KeyDown:
		prev := m.view.PreviousIdentities
		if len(prev) == 0 {
			return m, nil
		}
		if msg.Type == tea.KeyUp {
			m.picked = (m.picked - 1 + len(prev)) % len(prev)
		} else {
			m.picked = (m.picked + 1) % len(prev)
		}
		m.ctrl.SelectPreviousIdentity(prev[m.picked])
		m.nameInput.SetValue(prev[m.picked])
		m.nameInput.CursorEnd()
		return m, nil

	case tea.KeyEnter:
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.status = "Connecting..."
		return m, loginCmd(m.ctrl, m.nameInput.Value())
	}

	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m Model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyCtrlL:
		m.ctrl.Teardown()
		m.compose.SetValue("")
		m.compose.Blur()
		m.nameInput.Focus()
		m.status = ""
		m.refresh()
		return m, nil

	case tea.KeyTab, tea.KeyShiftTab:
		step := 1
		if msg.Type == tea.KeyShiftTab {
			step = -1
		}
		m.ctrl.SelectThread(cycleTarget(Targets(m.view), m.view.Selected, step))
		return m, nil

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyEnter:
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, sendCmd(m.ctrl)
	}

	var cmd tea.Cmd
	m.compose, cmd = m.compose.Update(msg)
	m.ctrl.SetDraft(m.compose.Value())
	return m, cmd
}

// refresh pulls a fresh snapshot from the session and re-renders the transcript.
func (m *Model) refresh() {
	wasChatting := m.chatting()
	m.view = m.ctrl.View()

	if m.compose.Value() != m.view.Draft {
		m.compose.SetValue(m.view.Draft)
		m.compose.CursorEnd()
	}
	if !m.chatting() {
		if wasChatting {
			m.compose.Blur()
			m.nameInput.Focus()
		}
		return
	}
	if !m.ready {
		return
	}

	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(renderTranscript(m.view, m.viewport.Width))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

func (m *Model) resize() {
	chatWidth := max(m.width-sidebarWidth-1, 20)
	chatHeight := max(m.height-footerHeight-headerHeight, 3)

	if !m.ready {
		m.viewport = viewport.New(chatWidth, chatHeight)
		m.ready = true
	} else {
		m.viewport.Width = chatWidth
		m.viewport.Height = chatHeight
	}
	m.compose.Width = max(m.width-4, 10)
	m.nameInput.Width = max(m.width-4, 10)
	m.refresh()
}

// Targets lists the selectable threads: the public feed, online participants in
// roster order, then partners with a thread who are no longer online.
func Targets(v session.View) []string {
	out := []string{chat.PublicTarget}
	seen := map[string]bool{chat.PublicTarget: true}
	for _, name := range v.Online {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, name := range sortedKeys(v.Threads) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

// cycleTarget returns the target step positions away from current, wrapping around.
func cycleTarget(targets []string, current string, step int) string {
	if len(targets) == 0 {
		return chat.PublicTarget
	}
	idx := 0
	for i, t := range targets {
		if t == current {
			idx = i
			break
		}
	}
	n := len(targets)
	return targets[((idx+step)%n+n)%n]
}
