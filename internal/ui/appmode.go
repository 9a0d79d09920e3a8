package ui

import "mydashboard/internal/session"

// AppMode is the screen the app shows. It is derived from the session
// state and whether a table is selected.
type AppMode int

const (
	ModeLogin AppMode = iota
	ModeDashboard
	ModeTable
	ModeDraftShape
	ModeDraftGrid
	ModeEditRecord
)

func (m AppMode) String() string {
	switch m {
	case ModeLogin:
		return "Login"
	case ModeDashboard:
		return "Dashboard"
	case ModeTable:
		return "Table"
	case ModeDraftShape:
		return "DraftShape"
	case ModeDraftGrid:
		return "DraftGrid"
	case ModeEditRecord:
		return "EditRecord"
	default:
		return "Unknown"
	}
}

// textEntry reports whether the mode's main view takes free text, so
// single keys and the leader must reach it untouched.
func (m AppMode) textEntry() bool {
	return m == ModeLogin || m == ModeDraftShape
}

// modeFor maps a snapshot to the screen that renders it.
func modeFor(snap session.Snapshot) AppMode {
	switch snap.State {
	case session.Anonymous:
		return ModeLogin
	case session.Drafting:
		return ModeDraftShape
	case session.EditingDraft:
		return ModeDraftGrid
	case session.EditingRecord:
		return ModeEditRecord
	case session.ConfirmDelete:
		return ModeTable
	}
	if snap.Selected != nil {
		return ModeTable
	}
	return ModeDashboard
}
