package ui

import (
	"mydashboard/internal/analysis"
	"mydashboard/internal/session"
	"mydashboard/internal/tables"
)

// ActionDoneMsg carries the outcome of a backend action and the snapshot
// taken right after it. Views render only from that snapshot.
type ActionDoneMsg struct {
	Action   string
	Snapshot session.Snapshot
	Err      error
}

// DismissModalMsg is sent when the user dismisses the top overlay.
type DismissModalMsg struct{}

// LoginSubmitMsg is sent when the login form completes.
type LoginSubmitMsg struct {
	Email    string
	Password string
	SignUp   bool
}

// LogoutMsg is sent by SPC o.
type LogoutMsg struct{}

// RefreshMsg reloads the table listing (SPC t r).
type RefreshMsg struct{}

// SelectTableMsg is sent when the user opens a table from the dashboard.
type SelectTableMsg struct {
	Ref tables.Ref
}

// BackMsg leaves the open table.
type BackMsg struct{}

// ShowUploadMsg opens the upload path prompt (SPC t u).
type ShowUploadMsg struct{}

// UploadMsg uploads the spreadsheet at Path. An empty Name means the
// file's base name.
type UploadMsg struct {
	Path string
	Name string
}

// BeginDraftMsg starts a new manual table (SPC t n).
type BeginDraftMsg struct{}

// ShapeDraftMsg fixes the draft's size.
type ShapeDraftMsg struct {
	Rows    int
	Columns []string
}

// EditCellMsg writes Value into the cell at Row and Col of the grid being
// edited.
type EditCellMsg struct {
	Row    int
	Col    int
	Column string
	Value  string
}

// ShowEditCellMsg opens the cell editor for the grid cursor.
type ShowEditCellMsg struct {
	Row    int
	Col    int
	Column string
	Value  string
}

// AddRowMsg appends an empty row to the record being edited.
type AddRowMsg struct{}

// SaveGridMsg saves the grid being edited. Drafts prompt for a name first.
type SaveGridMsg struct{}

// SaveDraftMsg stores the draft under Name.
type SaveDraftMsg struct {
	Name string
}

// CancelGridMsg leaves the grid without saving.
type CancelGridMsg struct{}

// ToggleEditMsg enters or leaves edit mode on the open table (SPC t e).
type ToggleEditMsg struct{}

// RequestDeleteMsg asks to delete the open table (SPC t d).
type RequestDeleteMsg struct{}

// ConfirmDeleteMsg is sent when the delete confirmation is accepted.
type ConfirmDeleteMsg struct{}

// ShowToolsMsg opens the analysis tool picker (SPC a).
type ShowToolsMsg struct{}

// RunToolsMsg runs the chosen analysis tools on the open table.
type RunToolsMsg struct {
	Tools []analysis.Tool
}

// ShowActivityMsg opens the activity log (SPC l).
type ShowActivityMsg struct{}
