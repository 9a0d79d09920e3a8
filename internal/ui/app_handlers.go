package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"mydashboard/internal/session"
	"mydashboard/internal/sheet"
)

// dispatch routes the app's own messages. handled is false for messages
// that belong to a view.
func (a *AppModel) dispatch(msg tea.Msg) (cmd tea.Cmd, handled bool) {
	if a.Busy != "" {
		switch msg.(type) {
		case LoginSubmitMsg, LogoutMsg, RefreshMsg, SelectTableMsg, BackMsg,
			UploadMsg, BeginDraftMsg, ShapeDraftMsg, EditCellMsg, AddRowMsg,
			SaveGridMsg, SaveDraftMsg, CancelGridMsg, ToggleEditMsg,
			RequestDeleteMsg, ConfirmDeleteMsg, RunToolsMsg:
			return nil, true
		}
	}
	switch msg := msg.(type) {
	case LoginSubmitMsg:
		return a.handleLogin(msg), true
	case LogoutMsg:
		a.Overlays.Clear()
		return a.run("logout", a.Ctrl.Logout), true
	case RefreshMsg:
		return a.run("refresh", a.Ctrl.Refresh), true
	case SelectTableMsg:
		return a.local("select", a.Ctrl.Select(msg.Ref)), true
	case BackMsg:
		return a.local("back", a.Ctrl.Deselect()), true
	case ShowUploadMsg:
		return a.push(NewUploadModal()), true
	case UploadMsg:
		a.pop()
		return a.handleUpload(msg), true
	case ShowActivityMsg:
		return a.push(NewActivityWindow(a.Activity.Events())), true
	case BeginDraftMsg:
		a.Shape = NewDraftShapeView()
		return a.local("new table", a.Ctrl.BeginDraft()), true
	case ShapeDraftMsg:
		return a.local("shape draft", a.Ctrl.ShapeDraft(msg.Rows, msg.Columns)), true
	case ShowEditCellMsg:
		return a.push(NewCellEditModal(msg)), true
	case EditCellMsg:
		a.pop()
		return a.handleEditCell(msg), true
	case AddRowMsg:
		return a.local("add row", a.Ctrl.AddEditRow()), true
	case SaveGridMsg:
		return a.handleSaveGrid(), true
	case SaveDraftMsg:
		a.pop()
		name := msg.Name
		return a.run("save table", func(ctx context.Context) error { return a.Ctrl.SaveDraft(ctx, name) }), true
	case CancelGridMsg:
		return a.handleCancelGrid(), true
	case ToggleEditMsg:
		return a.local("edit", a.Ctrl.ToggleEdit()), true
	case RequestDeleteMsg:
		return a.handleRequestDelete(), true
	case ConfirmDeleteMsg:
		a.pop()
		return a.run("delete", a.Ctrl.ConfirmDelete), true
	case ShowToolsMsg:
		if a.Mode != ModeTable {
			return nil, true
		}
		return a.push(NewToolsModal()), true
	case RunToolsMsg:
		a.pop()
		return a.handleRunTools(msg), true
	}
	return nil, false
}

// dismiss closes the top overlay. Dismissing the delete confirmation
// cancels the pending delete.
func (a *AppModel) dismiss() tea.Cmd {
	top, ok := a.Overlays.Pop()
	if !ok {
		return nil
	}
	if _, confirm := top.View.(*ConfirmModal); confirm && a.Snapshot.State == session.ConfirmDelete {
		return a.local("cancel delete", a.Ctrl.CancelDelete())
	}
	return nil
}

func (a *AppModel) handleLogin(msg LoginSubmitMsg) tea.Cmd {
	if msg.SignUp {
		return a.run("signup", func(ctx context.Context) error {
			return a.Ctrl.SignUp(ctx, msg.Email, msg.Password)
		})
	}
	return a.run("login", func(ctx context.Context) error {
		return a.Ctrl.Login(ctx, msg.Email, msg.Password)
	})
}

// handleUpload parses the file and stores it. Parsing runs inside the
// action so large workbooks do not block the UI.
func (a *AppModel) handleUpload(msg UploadMsg) tea.Cmd {
	name := msg.Name
	if name == "" {
		name = sheet.DefaultName(msg.Path)
	}
	load := a.LoadSheet
	return a.run("upload", func(ctx context.Context) error {
		t, err := load(msg.Path)
		if err != nil {
			return err
		}
		return a.Ctrl.Upload(ctx, name, t)
	})
}

func (a *AppModel) handleEditCell(msg EditCellMsg) tea.Cmd {
	switch a.Mode {
	case ModeDraftGrid:
		return a.local("edit cell", a.Ctrl.SetDraftCell(msg.Row, msg.Col, msg.Value))
	case ModeEditRecord:
		return a.local("edit cell", a.Ctrl.SetEditCell(msg.Row, msg.Column, msg.Value))
	}
	return nil
}

func (a *AppModel) handleSaveGrid() tea.Cmd {
	switch a.Mode {
	case ModeDraftGrid:
		return a.push(NewDraftNameModal())
	case ModeEditRecord:
		return a.run("save edit", a.Ctrl.SaveEdit)
	}
	return nil
}

func (a *AppModel) handleCancelGrid() tea.Cmd {
	switch a.Mode {
	case ModeDraftShape, ModeDraftGrid:
		return a.local("cancel draft", a.Ctrl.CancelDraft())
	case ModeEditRecord:
		return a.local("discard edit", a.Ctrl.ToggleEdit())
	}
	return nil
}

func (a *AppModel) handleRequestDelete() tea.Cmd {
	cmd := a.local("request delete", a.Ctrl.RequestDelete())
	if a.Snapshot.State != session.ConfirmDelete || a.Snapshot.PendingDelete == nil {
		return cmd
	}
	return tea.Batch(cmd, a.push(NewDeleteTableConfirmModal(*a.Snapshot.PendingDelete)))
}

func (a *AppModel) handleRunTools(msg RunToolsMsg) tea.Cmd {
	results, err := a.Ctrl.RunTools(msg.Tools)
	cmd := a.local("analyze", err)
	if err != nil || len(results) == 0 {
		return cmd
	}
	return tea.Batch(cmd, a.push(NewResultsWindow(results)))
}
