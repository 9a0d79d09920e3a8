package ui

import (
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestKeybindRegistry_Lookup(t *testing.T) {
	reg := NewKeybindRegistry()
	reg.Bind("space q", "Quit", tea.Quit)
	reg.Bind("q", "Quit", tea.Quit, ModeDashboard)

	if reg.Lookup("SPC q", ModeTable) == nil {
		t.Error("SPC q should be bound everywhere")
	}
	if reg.Lookup("q", ModeDashboard) == nil {
		t.Error("q should be bound on the dashboard")
	}
	if reg.Lookup("q", ModeTable) != nil {
		t.Error("q should not be bound on the table screen")
	}
	if reg.Lookup("x", ModeDashboard) != nil {
		t.Error("x should be unbound")
	}
}

func TestKeyHandler_Leader(t *testing.T) {
	reg := NewKeybindRegistry()
	reg.Bind("SPC t r", "Refresh", msgCmd(RefreshMsg{}))
	h := NewKeyHandler(reg)

	if consumed, cmd := h.Handle(keyMsg(" ")); !consumed || cmd != nil || !h.LeaderWaiting {
		t.Fatalf("space: consumed=%v cmd=%v waiting=%v", consumed, cmd, h.LeaderWaiting)
	}
	if consumed, cmd := h.Handle(keyMsg("t")); !consumed || cmd != nil || !h.LeaderWaiting {
		t.Fatalf("t: consumed=%v cmd=%v waiting=%v", consumed, cmd, h.LeaderWaiting)
	}
	if got := strings.Join(h.Buffer, " "); got != "SPC t" {
		t.Errorf("buffer = %q, want SPC t", got)
	}
	consumed, cmd := h.Handle(keyMsg("r"))
	if !consumed || cmd == nil {
		t.Fatalf("r: consumed=%v cmd=%v", consumed, cmd)
	}
	if _, ok := cmd().(RefreshMsg); !ok {
		t.Errorf("expected RefreshMsg, got %T", cmd())
	}
	if h.LeaderWaiting || h.Buffer != nil {
		t.Error("sequence should end after a match")
	}
}

func TestKeyHandler_EscCancelsLeader(t *testing.T) {
	reg := NewKeybindRegistry()
	reg.Bind("SPC q", "Quit", tea.Quit)
	h := NewKeyHandler(reg)

	if consumed, _ := h.Handle(keyMsg("esc")); consumed {
		t.Error("esc outside the leader belongs to the view")
	}
	h.Handle(keyMsg(" "))
	if consumed, cmd := h.Handle(keyMsg("esc")); !consumed || cmd != nil {
		t.Errorf("esc: consumed=%v cmd=%v", consumed, cmd)
	}
	if h.LeaderWaiting {
		t.Error("esc should cancel the leader")
	}
}

func TestKeyHandler_DeadEnd(t *testing.T) {
	reg := NewKeybindRegistry()
	reg.Bind("SPC q", "Quit", tea.Quit)
	h := NewKeyHandler(reg)

	h.Handle(keyMsg(" "))
	if consumed, cmd := h.Handle(keyMsg("z")); !consumed || cmd != nil {
		t.Errorf("z: consumed=%v cmd=%v", consumed, cmd)
	}
	if h.LeaderWaiting {
		t.Error("an unbound key should end the sequence")
	}
	if consumed, _ := h.Handle(keyMsg("j")); consumed {
		t.Error("unbound j should fall through to the view")
	}
}

func TestKeyHandler_ModeFilter(t *testing.T) {
	h := NewKeyHandler(newRegistry())

	h.Mode = ModeDashboard
	h.Handle(keyMsg(" "))
	h.Handle(keyMsg("a"))
	if h.LeaderWaiting {
		t.Error("SPC a is not live on the dashboard")
	}

	h.Mode = ModeTable
	h.Handle(keyMsg(" "))
	h.Handle(keyMsg("t"))
	_, cmd := h.Handle(keyMsg("d"))
	if cmd == nil {
		t.Fatal("table: expected SPC t d to run")
	}
	if _, ok := cmd().(RequestDeleteMsg); !ok {
		t.Errorf("expected RequestDeleteMsg, got %T", cmd())
	}
	if consumed, _ := h.Handle(keyMsg("q")); consumed {
		t.Error("bare q only quits from the dashboard")
	}
}

func TestKeybindRegistry_LeaderHints(t *testing.T) {
	reg := newRegistry()

	top := reg.LeaderHints("", ModeDashboard)
	if top["t"] != "Table" {
		t.Errorf("expected submenu label for t, got %q", top["t"])
	}
	if _, ok := top["a"]; ok {
		t.Error("analyze should be hidden on the dashboard")
	}
	if top["q"] != "Quit" {
		t.Errorf("expected quit hint, got %q", top["q"])
	}

	sub := reg.LeaderHints("SPC t", ModeDashboard)
	if sub["n"] != "New table" || sub["u"] != "Upload" {
		t.Errorf("unexpected dashboard table hints: %v", sub)
	}
	if _, ok := sub["d"]; ok {
		t.Error("delete should be hidden on the dashboard")
	}

	sub = reg.LeaderHints("SPC t", ModeTable)
	if sub["e"] != "Edit" || sub["d"] != "Delete" {
		t.Errorf("unexpected table hints: %v", sub)
	}
}

func TestNewRegistry_Layout(t *testing.T) {
	reg := newRegistry()
	cases := []struct {
		seq   string
		modes []AppMode
		want  tea.Msg
	}{
		{"SPC o", []AppMode{ModeDashboard, ModeTable}, LogoutMsg{}},
		{"SPC l", []AppMode{ModeDashboard, ModeTable}, ShowActivityMsg{}},
		{"SPC t r", []AppMode{ModeDashboard, ModeTable}, RefreshMsg{}},
		{"SPC t n", []AppMode{ModeDashboard, ModeTable}, BeginDraftMsg{}},
		{"SPC t u", []AppMode{ModeDashboard, ModeTable}, ShowUploadMsg{}},
		{"SPC t e", []AppMode{ModeTable}, ToggleEditMsg{}},
		{"SPC t d", []AppMode{ModeTable}, RequestDeleteMsg{}},
		{"SPC a", []AppMode{ModeTable}, ShowToolsMsg{}},
	}
	for _, c := range cases {
		for _, mode := range []AppMode{ModeLogin, ModeDashboard, ModeTable, ModeDraftGrid} {
			cmd := reg.Lookup(c.seq, mode)
			if !slices.Contains(c.modes, mode) {
				if cmd != nil {
					t.Errorf("%s should be unbound in %s", c.seq, mode)
				}
				continue
			}
			if cmd == nil {
				t.Errorf("%s should be bound in %s", c.seq, mode)
				continue
			}
			if got := cmd(); got != c.want {
				t.Errorf("%s in %s: got %T, want %T", c.seq, mode, got, c.want)
			}
		}
	}
}

func TestRenderKeybindHelp(t *testing.T) {
	h := NewKeyHandler(newRegistry())
	h.Mode = ModeTable
	h.Handle(keyMsg(" "))
	h.Handle(keyMsg("t"))

	out := RenderKeybindHelp(h, ModeTable)
	for _, want := range []string{"SPC t", "Edit", "Delete", "cancel"} {
		if !strings.Contains(out, want) {
			t.Errorf("help missing %q:\n%s", want, out)
		}
	}
	if RenderKeybindHelp(nil, ModeTable) != "" {
		t.Error("nil handler should render nothing")
	}
}

// keyMsg builds the tea.KeyMsg whose String() is s.
func keyMsg(s string) tea.KeyMsg {
	switch s {
	case " ", "space":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}
