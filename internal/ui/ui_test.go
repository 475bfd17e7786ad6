package ui

import (
	"context"
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"chatsync/internal/app/chat"
	"chatsync/internal/app/session"
	"chatsync/internal/pkg/errs"
)

type fakeController struct {
	view     session.View
	updates  chan struct{}
	selected []string
	drafts   []string
	logins   []string
	loginErr error
}

func newFakeController() *fakeController {
	return &fakeController{
		view:    session.View{Selected: chat.PublicTarget},
		updates: make(chan struct{}, 1),
	}
}

func (f *fakeController) Login(_ context.Context, name string) error {
	f.logins = append(f.logins, name)
	if f.loginErr == nil {
		f.view.State = session.Active
		f.view.Identity.Name = name
	}
	return f.loginErr
}

func (f *fakeController) SelectPreviousIdentity(name string) { f.view.Identity.Name = name }

func (f *fakeController) Teardown() { f.view.State = session.Disconnected }

func (f *fakeController) SetDraft(text string) {
	f.drafts = append(f.drafts, text)
	f.view.Draft = text
}

func (f *fakeController) SelectThread(target string) {
	f.selected = append(f.selected, target)
	f.view.Selected = target
}

func (f *fakeController) SendDraft(context.Context) error { return nil }

func (f *fakeController) View() session.View { return f.view }

func (f *fakeController) Updates() <-chan struct{} { return f.updates }

func press(m Model, key tea.KeyMsg) Model {
	next, _ := m.Update(key)
	return next.(Model)
}

func TestTargetsOrdersPublicOnlineThenAway(t *testing.T) {
	v := session.View{
		Online: []string{"zed", "amy"},
		Threads: map[string][]chat.Message{
			"amy": nil,
			"bob": nil,
			"al":  nil,
		},
	}

	got := Targets(v)
	want := []string{chat.PublicTarget, "zed", "amy", "al", "bob"}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCycleTargetWraps(t *testing.T) {
	targets := []string{"public", "amy", "bob"}

	if got := cycleTarget(targets, "bob", 1); got != "public" {
		t.Fatalf("expected wrap to public, got %s", got)
	}
	if got := cycleTarget(targets, "public", -1); got != "bob" {
		t.Fatalf("expected wrap to bob, got %s", got)
	}
	if got := cycleTarget(targets, "gone", 1); got != "amy" {
		t.Fatalf("unknown current starts from public, got %s", got)
	}
}

func TestFormatMessageIncludesSenderAndBody(t *testing.T) {
	msg := chat.Message{Sender: "bob", Body: "hello there", Timestamp: "not a time"}

	out := formatMessage(msg, "alice", 80)
	if !strings.Contains(out, "bob") || !strings.Contains(out, "hello there") || !strings.Contains(out, "--:--") {
		t.Fatalf("unexpected rendering %q", out)
	}
}

func TestErrorTextUsesOperatorMessage(t *testing.T) {
	if got := errorText(errs.NewError(errs.ErrValidation, "Username")); got != "Username must not be empty." {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestLoginFlowSwitchesToChat(t *testing.T) {
	ctrl := newFakeController()
	m := New(ctrl)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = next.(Model)

	for _, r := range "alice" {
		m = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		t.Fatal("expected a login command")
	}
	next, _ = m.Update(cmd())
	m = next.(Model)

	if !slices.Equal(ctrl.logins, []string{"alice"}) {
		t.Fatalf("unexpected logins %v", ctrl.logins)
	}
	if !m.chatting() {
		t.Fatal("expected chat screen after login")
	}

	ctrl.view.Online = []string{"bob"}
	next, _ = m.Update(updatedMsg{})
	m = next.(Model)

	m = press(m, tea.KeyMsg{Type: tea.KeyTab})
	if !slices.Equal(ctrl.selected, []string{"bob"}) {
		t.Fatalf("expected tab to select bob, got %v", ctrl.selected)
	}

	m = press(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'h'}})
	if len(ctrl.drafts) == 0 || ctrl.drafts[len(ctrl.drafts)-1] != "h" {
		t.Fatalf("expected draft to follow compose input, got %v", ctrl.drafts)
	}

	if out := m.View(); !strings.Contains(out, "bob") {
		t.Fatalf("expected sidebar to list bob:\n%s", out)
	}
}

func TestLoginFailureShowsMessage(t *testing.T) {
	ctrl := newFakeController()
	ctrl.loginErr = errs.NewError(errs.ErrRegistration)
	m := New(ctrl)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	next, _ = m.Update(cmd())
	m = next.(Model)

	if m.chatting() {
		t.Fatal("expected to stay on the login screen")
	}
	if !strings.Contains(m.View(), "Error logging in") {
		t.Fatalf("expected registration error in view:\n%s", m.View())
	}
}
