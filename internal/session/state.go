// Package session holds the state of one signed-in user and drives the
// table store in response to user actions. The Controller is the only
// owner of that state; views read it through Snapshot.
package session

import (
	"errors"
	"fmt"

	"mydashboard/internal/backend"
	"mydashboard/internal/tables"
)

// State is the controller's position in the session state machine.
type State int

const (
	Anonymous State = iota
	Viewing
	Drafting
	EditingDraft
	EditingRecord
	ConfirmDelete
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "Anonymous"
	case Viewing:
		return "Viewing"
	case Drafting:
		return "Drafting"
	case EditingDraft:
		return "EditingDraft"
	case EditingRecord:
		return "EditingRecord"
	case ConfirmDelete:
		return "ConfirmDelete"
	default:
		return "Unknown"
	}
}

// Authenticated reports whether a user is signed in.
func (s State) Authenticated() bool { return s != Anonymous }

var (
	// ErrInvalidTransition is returned when an action is not allowed in the
	// current state. The state is left unchanged.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrNoSelection is returned by actions that need a selected table.
	ErrNoSelection = errors.New("no table selected")
	// ErrNotFound is returned when a selection names no listed table.
	ErrNotFound = errors.New("table not found")
)

func invalid(action string, s State) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, action, s)
}

// Session is the typed state of a signed-in user: the identity provider's
// session plus the work in progress. At most one of Draft, EditingRecord and
// PendingDelete is set, matching the controller state.
type Session struct {
	backend.Session

	// Draft is the table being authored while Drafting or EditingDraft.
	// It is nil while Drafting until the shape is chosen.
	Draft *tables.Draft
	// EditingRecord is the record being edited and Working its edited copy.
	EditingRecord *tables.Ref
	Working       tables.Table
	// PendingDelete is the record awaiting delete confirmation.
	PendingDelete *tables.Ref
}

func (s *Session) clearWork() {
	s.Draft = nil
	s.EditingRecord = nil
	s.Working = tables.Table{}
	s.PendingDelete = nil
}

// Snapshot is an immutable copy of everything a view renders.
type Snapshot struct {
	State    State
	UserID   string
	Email    string
	Listing  tables.Listing
	Selected *tables.Record
	Draft    *tables.Draft
	// Working is the edited copy while EditingRecord.
	Working       *tables.Table
	PendingDelete *tables.Record
	Notice        string
}

func cloneRecords(in []tables.Record) []tables.Record {
	if in == nil {
		return nil
	}
	out := make([]tables.Record, len(in))
	for i, r := range in {
		r.Data = r.Data.Clone()
		out[i] = r
	}
	return out
}
