package ui

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"chatsync/internal/app/chat"
	"chatsync/internal/app/session"
	"chatsync/internal/pkg/errs"
)

var (
	borderColor = lipgloss.Color("#505050")
	accentColor = lipgloss.Color("#7D56F4")
	selfColor   = lipgloss.Color("#04B575")
	alertColor  = lipgloss.Color("#FF5F87")
	mutedColor  = lipgloss.Color("#8A8A8A")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	mutedStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	alertStyle    = lipgloss.NewStyle().Foreground(alertColor)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(accentColor)
	selfStyle     = lipgloss.NewStyle().Bold(true).Foreground(selfColor)
	senderStyle   = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
)

var sidebarStyle = lipgloss.NewStyle().
	Width(sidebarWidth).
	BorderStyle(lipgloss.NormalBorder()).
	BorderRight(true).
	BorderForeground(borderColor)

// View implements tea.Model.
func (m Model) View() string {
	if !m.chatting() {
		return m.loginView()
	}
	if !m.ready {
		return "\n  Initializing..."
	}
	return m.chatView()
}

func (m Model) loginView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("chatsync"))
	b.WriteString("\n\n")
	b.WriteString(m.nameInput.View())
	b.WriteString("\n\n")

	if prev := m.view.PreviousIdentities; len(prev) > 0 {
		b.WriteString(mutedStyle.Render("Previous users (up/down to pick):"))
		b.WriteString("\n")
		for i, name := range prev {
			if i == m.picked {
				b.WriteString(selectedStyle.Render(" " + name + " "))
			} else {
				b.WriteString("  " + name)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString(alertStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render("enter: log in  esc: quit"))
	return b.String()
}

func (m Model) chatView() string {
	header := titleStyle.Render(threadTitle(m.view.Selected))
	if !m.view.LinkUp {
		header += "  " + alertStyle.Render("connection lost")
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		sidebarStyle.Height(m.viewport.Height).Render(renderSidebar(m.view)),
		m.viewport.View(),
	)

	footer := strings.Repeat("─", max(m.width, 1)) + "\n" + m.compose.View()
	hint := mutedStyle.Render("tab: switch thread  enter: send  ctrl+l: log out  esc: quit")
	if m.status != "" {
		hint = alertStyle.Render(m.status)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer, hint)
}

func threadTitle(target string) string {
	if target == chat.PublicTarget {
		return "# public"
	}
	return "@ " + target
}

// renderSidebar lists the threads with the selection highlighted and unread threads marked.
func renderSidebar(v session.View) string {
	var b strings.Builder

	b.WriteString(selfStyle.Render(v.Identity.Name))
	b.WriteString("\n\n")

	for _, target := range Targets(v) {
		label := target
		if target == chat.PublicTarget {
			label = "# public"
		} else if !slices.Contains(v.Online, target) {
			label = mutedStyle.Render(target + " (away)")
		}
		if v.HasUnread(target) {
			label = alertStyle.Render("● ") + label
		} else {
			label = "  " + label
		}
		if target == v.Selected {
			label = selectedStyle.Render(label)
		}
		b.WriteString(label)
		b.WriteString("\n")
	}
	return b.String()
}

// renderTranscript renders the selected thread, one message per line group.
func renderTranscript(v session.View, width int) string {
	msgs := v.Messages()
	if len(msgs) == 0 {
		return mutedStyle.Render("No messages yet.")
	}

	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		lines = append(lines, formatMessage(msg, v.Identity.Name, width))
	}
	return strings.Join(lines, "\n")
}

// formatMessage renders "hh:mm sender: body", wrapping the body to width.
func formatMessage(msg chat.Message, self string, width int) string {
	clock := "--:--"
	if t := msg.Time(); !t.IsZero() {
		clock = t.Local().Format("15:04")
	}

	sender := senderStyle.Render(msg.Sender)
	if msg.Sender == self {
		sender = selfStyle.Render(msg.Sender)
	}

	prefix := fmt.Sprintf("%s %s: ", mutedStyle.Render(clock), sender)
	bodyWidth := max(width-lipgloss.Width(prefix), 10)
	wrapped := lipgloss.NewStyle().Width(bodyWidth).Render(msg.Body)

	indent := strings.Repeat(" ", lipgloss.Width(prefix))
	parts := strings.Split(wrapped, "\n")
	for i := 1; i < len(parts); i++ {
		parts[i] = indent + parts[i]
	}
	return prefix + strings.Join(parts, "\n")
}

// errorText maps session errors to the line shown to the operator.
func errorText(err error) string {
	var customErr *errs.CustomError
	if errors.As(err, &customErr) {
		return customErr.Message
	}
	return err.Error()
}

func sortedKeys(m map[string][]chat.Message) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
