package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"mydashboard/internal/progress"
)

func msgCmd(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// newRegistry binds the leader commands. Table commands live under SPC t.
func newRegistry() *KeybindRegistry {
	reg := NewKeybindRegistry()
	reg.Submenu("SPC t", "Table")

	reg.Bind("SPC q", "Quit", tea.Quit)
	reg.Bind("q", "Quit", tea.Quit, ModeDashboard)
	reg.Bind("SPC o", "Log out", msgCmd(LogoutMsg{}), ModeDashboard, ModeTable)
	reg.Bind("SPC l", "Activity", msgCmd(ShowActivityMsg{}), ModeDashboard, ModeTable)
	reg.Bind("SPC t r", "Refresh", msgCmd(RefreshMsg{}), ModeDashboard, ModeTable)
	reg.Bind("SPC t n", "New table", msgCmd(BeginDraftMsg{}), ModeDashboard, ModeTable)
	reg.Bind("SPC t u", "Upload", msgCmd(ShowUploadMsg{}), ModeDashboard, ModeTable)
	reg.Bind("SPC t e", "Edit", msgCmd(ToggleEditMsg{}), ModeTable)
	reg.Bind("SPC t d", "Delete", msgCmd(RequestDeleteMsg{}), ModeTable)
	reg.Bind("SPC a", "Analyze", msgCmd(ShowToolsMsg{}), ModeTable)
	return reg
}

// run performs a backend action off the UI goroutine. The app is busy
// until the matching ActionDoneMsg arrives, so the controller never sees
// two actions at once.
func (a *AppModel) run(action string, fn func(ctx context.Context) error) tea.Cmd {
	a.Busy = action
	a.Activity.Emit(progress.Event{Message: action, Status: progress.StatusRunning})
	ctrl, timeout := a.Ctrl, a.Timeout
	return tea.Batch(a.spinner.Tick, func() tea.Msg {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		err := fn(ctx)
		return ActionDoneMsg{Action: action, Snapshot: ctrl.Snapshot(), Err: err}
	})
}

// local applies an action that needs no backend round trip.
func (a *AppModel) local(action string, err error) tea.Cmd {
	return a.finish(ActionDoneMsg{Action: action, Snapshot: a.Ctrl.Snapshot(), Err: err})
}

// push opens an overlay dismissed by esc.
func (a *AppModel) push(v View) tea.Cmd {
	a.Overlays.Push(Overlay{View: v, Dismiss: "esc"})
	if a.width > 0 {
		v.Update(tea.WindowSizeMsg{Width: a.width, Height: a.height})
	}
	return v.Init()
}

// pop closes the top overlay.
func (a *AppModel) pop() {
	a.Overlays.Pop()
}
