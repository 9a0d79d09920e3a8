package ui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	charmlog "github.com/charmbracelet/log"

	"mydashboard/internal/backend"
	"mydashboard/internal/logging"
	"mydashboard/internal/progress"
	"mydashboard/internal/session"
	"mydashboard/internal/sheet"
	"mydashboard/internal/tables"
)

// AppModel is the root model. The screen follows the controller's
// snapshot; overlays sit on top and receive keys first.
type AppModel struct {
	Mode       AppMode
	Ctrl       *session.Controller
	Log        *charmlog.Logger
	Activity   *progress.Log
	KeyHandler *KeyHandler
	Overlays   OverlayStack

	Login     *LoginView
	Dashboard *DashboardView
	Table     *TableView
	Shape     *DraftShapeView
	Grid      *GridEditor

	// Snapshot is what the screen currently renders.
	Snapshot session.Snapshot
	// Busy names the backend action in flight; empty when idle. Keys other
	// than ctrl+c are dropped while busy.
	Busy          string
	Status        string
	StatusIsError bool

	// LoadSheet reads an upload from disk.
	LoadSheet func(path string) (tables.Table, error)
	// Timeout bounds each backend action; zero means no bound.
	Timeout time.Duration

	spinner spinner.Model
	width   int
	height  int
}

// Ensure AppModel can be used as tea.Model via adapter.
var _ tea.Model = (*appModelAdapter)(nil)

// appModelAdapter wraps AppModel to implement tea.Model.
type appModelAdapter struct {
	*AppModel
}

// NewAppModel creates the root model for ctrl. A nil logger discards.
func NewAppModel(ctrl *session.Controller, log *charmlog.Logger) *AppModel {
	if log == nil {
		log = logging.Discard()
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = Styles.Status

	a := &AppModel{
		Ctrl:      ctrl,
		Log:       log,
		Activity:  progress.NewLog(0),
		Login:     NewLoginView(),
		Dashboard: NewDashboardView(),
		Table:     NewTableView(),
		Shape:     NewDraftShapeView(),
		Grid:      NewGridEditor(),
		LoadSheet: sheet.Load,
		Timeout:   30 * time.Second,
		spinner:   s,
	}
	a.KeyHandler = NewKeyHandler(newRegistry())
	a.sync(ctrl.Snapshot())
	return a
}

// AsTeaModel returns a tea.Model adapter for use with tea.NewProgram.
func (m *AppModel) AsTeaModel() tea.Model {
	return &appModelAdapter{AppModel: m}
}

// Init implements tea.Model.
func (a *appModelAdapter) Init() tea.Cmd {
	return a.currentView().Init()
}

// Update implements tea.Model.
func (a *appModelAdapter) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return a, a.resize(msg)
	case spinner.TickMsg:
		if a.Busy == "" {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	case ActionDoneMsg:
		return a, a.finish(msg)
	case DismissModalMsg:
		return a, a.dismiss()
	case tea.KeyMsg:
		return a, a.handleKey(msg)
	}
	if cmd, handled := a.dispatch(msg); handled {
		return a, cmd
	}
	if a.Overlays.Len() > 0 {
		return a, a.Overlays.UpdateTop(msg)
	}
	v, cmd := a.currentView().Update(msg)
	a.setCurrentView(v)
	return a, cmd
}

func (a *appModelAdapter) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	if a.Busy != "" {
		return nil
	}
	if top, ok := a.Overlays.Peek(); ok {
		if top.IsDismissKey(msg.String()) {
			return a.dismiss()
		}
		return a.Overlays.UpdateTop(msg)
	}
	if !a.Mode.textEntry() && a.KeyHandler != nil {
		a.KeyHandler.Mode = a.Mode
		if consumed, cmd := a.KeyHandler.Handle(msg); consumed {
			return cmd
		}
	}
	v, cmd := a.currentView().Update(msg)
	a.setCurrentView(v)
	return cmd
}

func (a *appModelAdapter) resize(msg tea.WindowSizeMsg) tea.Cmd {
	a.width, a.height = msg.Width, msg.Height
	var cmds []tea.Cmd
	for _, v := range []View{a.Login, a.Dashboard, a.Table, a.Shape, a.Grid} {
		_, cmd := v.Update(msg)
		cmds = append(cmds, cmd)
	}
	cmds = append(cmds, a.Overlays.Broadcast(msg))
	return tea.Batch(cmds...)
}

// sync points every view at snap and picks the screen.
func (a *AppModel) sync(snap session.Snapshot) {
	a.Snapshot = snap
	a.Mode = modeFor(snap)
	a.Dashboard.SetListing(snap.Listing)
	if snap.Selected != nil {
		a.Table.SetRecord(*snap.Selected)
	}
	switch a.Mode {
	case ModeDraftGrid:
		a.Grid.SetGrid("New table", true, gridFromDraft(snap.Draft))
	case ModeEditRecord:
		title := "Editing"
		if snap.Selected != nil {
			title = "Editing " + snap.Selected.Name
		}
		if snap.Working != nil {
			a.Grid.SetGrid(title, false, gridFromTable(*snap.Working))
		}
	}
	if snap.State != session.ConfirmDelete {
		a.dropConfirm()
	}
}

// dropConfirm removes a stale delete confirmation, e.g. after the session
// expired underneath it.
func (a *AppModel) dropConfirm() {
	a.Overlays.RemoveIf(func(v View) bool {
		_, ok := v.(*ConfirmModal)
		return ok
	})
}

// finish applies the outcome of an action.
func (a *AppModel) finish(msg ActionDoneMsg) tea.Cmd {
	a.Busy = ""
	prevMode := a.Mode
	a.sync(msg.Snapshot)
	a.record(msg)

	switch {
	case msg.Err != nil && msg.Snapshot.Notice != "":
		a.setStatus(msg.Snapshot.Notice, true)
	case msg.Err != nil:
		a.setStatus(fmt.Sprintf("%s failed: %s", msg.Action, describe(msg.Err)), true)
	case msg.Snapshot.Notice != "":
		a.setStatus(msg.Snapshot.Notice, false)
	default:
		a.setStatus("", false)
	}

	if a.Mode == ModeDraftShape {
		a.Shape.SetError(nil)
		if msg.Action == "shape draft" {
			a.Shape.SetError(msg.Err)
		}
	}
	if a.Mode == ModeLogin {
		a.Overlays.Clear()
	}
	if a.Mode == ModeLogin && (prevMode != ModeLogin || msg.Action == "login" || msg.Action == "signup") {
		return a.Login.Reset()
	}
	return nil
}

// record writes the action outcome to the activity log.
func (a *AppModel) record(msg ActionDoneMsg) {
	ev := progress.Event{Message: msg.Action, Status: progress.StatusDone}
	if msg.Err != nil {
		ev.Status = progress.StatusError
		ev.Metadata = map[string]string{"error": describe(msg.Err)}
		if errors.Is(msg.Err, backend.ErrSessionExpired) {
			ev.Status = progress.StatusAborted
		}
	}
	if msg.Snapshot.Notice != "" {
		if ev.Metadata == nil {
			ev.Metadata = map[string]string{}
		}
		ev.Metadata["notice"] = msg.Snapshot.Notice
	}
	a.Activity.Emit(ev)
	if msg.Err != nil {
		a.Log.Debug("action failed", "action", msg.Action, "err", msg.Err)
	}
}

func (a *AppModel) setStatus(s string, isErr bool) {
	a.Status = s
	a.StatusIsError = isErr
}

// describe turns an action error into a line for the status bar.
func describe(err error) string {
	var (
		authErr *backend.AuthError
		reqErr  *backend.RequestError
		netErr  *backend.TransportError
		valErr  *tables.ValidationError
	)
	switch {
	case errors.Is(err, backend.ErrSessionExpired):
		return "session expired"
	case errors.As(err, &authErr) && authErr.Message != "":
		return authErr.Message
	case errors.As(err, &reqErr):
		return reqErr.Message()
	case errors.As(err, &netErr):
		return "backend unreachable: " + netErr.Err.Error()
	case errors.As(err, &valErr):
		return valErr.Error()
	}
	return err.Error()
}

// View implements tea.Model.
func (a *appModelAdapter) View() string {
	var b strings.Builder
	b.WriteString(a.header() + "\n\n")
	if top, ok := a.Overlays.Peek(); ok {
		b.WriteString(top.View.View())
	} else {
		b.WriteString(a.currentView().View())
	}
	if line := a.statusLine(); line != "" {
		b.WriteString("\n\n" + line)
	}
	if a.KeyHandler != nil && a.KeyHandler.LeaderWaiting {
		b.WriteString("\n" + RenderKeybindHelp(a.KeyHandler, a.Mode))
	}
	return b.String()
}

func (a *AppModel) header() string {
	title := Styles.Title.Render("mydashboard")
	if a.Snapshot.Email != "" {
		title += Styles.Muted.Render("  " + a.Snapshot.Email)
	}
	return title
}

func (a *AppModel) statusLine() string {
	if a.Busy != "" {
		return a.spinner.View() + " " + Styles.Status.Render(a.Busy+"…")
	}
	if a.Status == "" {
		return ""
	}
	if a.StatusIsError {
		return Styles.Error.Render(a.Status)
	}
	return Styles.Status.Render(a.Status)
}

func (a *AppModel) currentView() View {
	switch a.Mode {
	case ModeLogin:
		return a.Login
	case ModeTable:
		return a.Table
	case ModeDraftShape:
		return a.Shape
	case ModeDraftGrid, ModeEditRecord:
		return a.Grid
	default:
		return a.Dashboard
	}
}

func (a *AppModel) setCurrentView(v View) {
	switch v := v.(type) {
	case *LoginView:
		a.Login = v
	case *DashboardView:
		a.Dashboard = v
	case *TableView:
		a.Table = v
	case *DraftShapeView:
		a.Shape = v
	case *GridEditor:
		a.Grid = v
	}
}
