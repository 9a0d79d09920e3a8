package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"

	"mydashboard/internal/analysis"
	"mydashboard/internal/backend"
	"mydashboard/internal/logging"
	"mydashboard/internal/tables"
)

// Auth is the identity side of the backend. *backend.Client implements it.
type Auth interface {
	SignIn(ctx context.Context, email, password string) (*backend.Session, error)
	SignUp(ctx context.Context, email, password string) (*backend.SignUpResult, error)
	SignOut(ctx context.Context, token string) error
}

// Store is the table side of the backend. *tables.Store implements it.
type Store interface {
	ListAll(ctx context.Context, ownerID, token string) (tables.Listing, error)
	Create(ctx context.Context, c tables.Collection, name string, t tables.Table, ownerID, token string) (tables.Record, error)
	Update(ctx context.Context, ref tables.Ref, t tables.Table, token string) (tables.Record, error)
	Delete(ctx context.Context, ref tables.Ref, token string) error
}

// Controller runs one user's session. Actions are serialized: each holds
// the lock for its whole backend round trip.
type Controller struct {
	auth  Auth
	store Store
	log   *charmlog.Logger
	now   func() time.Time

	mu       sync.Mutex
	state    State
	sess     *Session
	listing  tables.Listing
	selected *tables.Ref
	notice   string
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces time.Now for session expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController returns an anonymous controller. A nil logger discards.
func NewController(auth Auth, store Store, log *charmlog.Logger, opts ...Option) *Controller {
	if log == nil {
		log = logging.Discard()
	}
	c := &Controller{auth: auth, store: store, log: log, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot copies the display state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		State: c.state,
		Listing: tables.Listing{
			Uploads: cloneRecords(c.listing.Uploads),
			Manual:  cloneRecords(c.listing.Manual),
		},
		Notice: c.notice,
	}
	if c.sess == nil {
		return snap
	}
	snap.UserID = c.sess.UserID
	snap.Email = c.sess.Email
	if rec, ok := c.selectedRecord(); ok {
		rec.Data = rec.Data.Clone()
		snap.Selected = &rec
	}
	snap.Draft = c.sess.Draft.Clone()
	if c.state == EditingRecord {
		w := c.sess.Working.Clone()
		snap.Working = &w
	}
	if c.sess.PendingDelete != nil {
		if rec, ok := c.listing.Find(*c.sess.PendingDelete); ok {
			rec.Data = rec.Data.Clone()
			snap.PendingDelete = &rec
		}
	}
	return snap
}

func (c *Controller) selectedRecord() (tables.Record, bool) {
	if c.selected == nil {
		return tables.Record{}, false
	}
	return c.listing.Find(*c.selected)
}

// fail routes an action error. An expired session signs the user out.
func (c *Controller) fail(action string, err error) error {
	if errors.Is(err, backend.ErrSessionExpired) {
		c.log.Warn("session expired", "action", action)
		c.reset()
		c.notice = "Session expired. Please log in again."
		return err
	}
	c.log.Error("action failed", "action", action, "state", c.state, "err", err)
	return err
}

func (c *Controller) reset() {
	c.state = Anonymous
	c.sess = nil
	c.listing = tables.Listing{}
	c.selected = nil
}

// begin checks that action is allowed now. A session past its expiry is
// discarded before any work is done.
func (c *Controller) begin(action string, allowed ...State) error {
	c.notice = ""
	for _, s := range allowed {
		if c.state != s {
			continue
		}
		if c.sess != nil && c.sess.Expired(c.now()) {
			return c.fail(action, fmt.Errorf("%s: %w", action, backend.ErrSessionExpired))
		}
		return nil
	}
	return invalid(action, c.state)
}

func (c *Controller) reload(ctx context.Context) error {
	l, err := c.store.ListAll(ctx, c.sess.UserID, c.sess.AccessToken)
	if err != nil {
		return err
	}
	c.listing = l
	if c.selected != nil {
		if _, ok := l.Find(*c.selected); !ok {
			c.selected = nil
		}
	}
	return nil
}

// refreshAfter reloads the listing once rec has been written. A failed
// reload does not undo the write: rec is kept in the cached listing, the
// selection survives and the notice says the list may be stale.
func (c *Controller) refreshAfter(ctx context.Context, rec tables.Record) error {
	err := c.reload(ctx)
	if err == nil {
		return nil
	}
	c.remember(rec)
	c.notice += " The table list could not be refreshed."
	return c.fail("refresh", err)
}

// remember puts rec into the cached listing, replacing an older copy.
func (c *Controller) remember(rec tables.Record) {
	list := &c.listing.Manual
	if rec.Collection == tables.Uploads {
		list = &c.listing.Uploads
	}
	for i, r := range *list {
		if r.ID == rec.ID {
			(*list)[i] = rec
			return
		}
	}
	*list = append(*list, rec)
}

func credentials(email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", &tables.ValidationError{Field: "email", Reason: "email is required"}
	}
	if password == "" {
		return "", &tables.ValidationError{Field: "password", Reason: "password is required"}
	}
	return email, nil
}

func (c *Controller) signedIn(ctx context.Context, s *backend.Session) error {
	c.sess = &Session{Session: *s}
	c.state = Viewing
	c.log.Info("session started", "user_id", s.UserID)
	if err := c.reload(ctx); err != nil {
		return c.fail("load tables", err)
	}
	return nil
}

// Login authenticates and loads the user's tables.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("login", Anonymous); err != nil {
		return err
	}
	email, err := credentials(email, password)
	if err != nil {
		return err
	}
	s, err := c.auth.SignIn(ctx, email, password)
	if err != nil {
		return c.fail("login", err)
	}
	return c.signedIn(ctx, s)
}

// SignUp registers an account. When the backend requires email
// confirmation the controller stays anonymous and sets a notice.
func (c *Controller) SignUp(ctx context.Context, email, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("signup", Anonymous); err != nil {
		return err
	}
	email, err := credentials(email, password)
	if err != nil {
		return err
	}
	res, err := c.auth.SignUp(ctx, email, password)
	if err != nil {
		return c.fail("signup", err)
	}
	if res.Session == nil {
		c.notice = fmt.Sprintf("Account created for %s. Confirm your email, then log in.", res.User.Email)
		return nil
	}
	return c.signedIn(ctx, res.Session)
}

// Logout discards the session. The token is revoked on a best-effort basis.
func (c *Controller) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice = ""
	if c.sess == nil {
		return nil
	}
	if err := c.auth.SignOut(ctx, c.sess.AccessToken); err != nil {
		c.log.Warn("sign out failed, discarding session anyway", "err", err)
	}
	c.log.Info("session ended", "user_id", c.sess.UserID)
	c.reset()
	return nil
}

// Refresh reloads the listing.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("refresh", Viewing); err != nil {
		return err
	}
	if err := c.reload(ctx); err != nil {
		return c.fail("refresh", err)
	}
	return nil
}

// Select makes ref the selected table.
func (c *Controller) Select(ref tables.Ref) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("select", Viewing); err != nil {
		return err
	}
	if _, ok := c.listing.Find(ref); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, ref)
	}
	c.selected = &ref
	return nil
}

// SelectByName resolves name across uploads then manual tables.
func (c *Controller) SelectByName(name string) (tables.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("select", Viewing); err != nil {
		return tables.Record{}, err
	}
	rec, ok := c.listing.Resolve(name)
	if !ok {
		return tables.Record{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	ref := rec.Ref()
	c.selected = &ref
	return rec, nil
}

// Deselect clears the selection.
func (c *Controller) Deselect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("deselect", Viewing); err != nil {
		return err
	}
	c.selected = nil
	return nil
}

// BeginDraft starts authoring a new table.
func (c *Controller) BeginDraft() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("begin draft", Viewing); err != nil {
		return err
	}
	c.sess.clearWork()
	c.state = Drafting
	return nil
}

// ShapeDraft fixes the draft's row count and column names. Invalid input
// leaves the controller in Drafting.
func (c *Controller) ShapeDraft(rows int, columns []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("shape draft", Drafting); err != nil {
		return err
	}
	d, err := tables.NewDraft(rows, columns)
	if err != nil {
		return err
	}
	c.sess.Draft = d
	c.state = EditingDraft
	return nil
}

// SetDraftCell writes text into the draft grid.
func (c *Controller) SetDraftCell(row, col int, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("edit draft", EditingDraft); err != nil {
		return err
	}
	return c.sess.Draft.Set(row, col, value)
}

// SaveDraft stores the draft as a manual table and selects it. On failure
// the draft is kept and the controller stays in EditingDraft.
func (c *Controller) SaveDraft(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("save draft", EditingDraft); err != nil {
		return err
	}
	if _, err := tables.ValidateColumns(c.sess.Draft.Columns()); err != nil {
		return err
	}
	rec, err := c.store.Create(ctx, tables.Manual, name, c.sess.Draft.Table(), c.sess.UserID, c.sess.AccessToken)
	if err != nil {
		return c.fail("save draft", err)
	}
	c.sess.clearWork()
	c.state = Viewing
	ref := rec.Ref()
	c.selected = &ref
	c.notice = fmt.Sprintf("Saved %q.", rec.Name)
	return c.refreshAfter(ctx, rec)
}

// CancelDraft discards the draft.
func (c *Controller) CancelDraft() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("cancel draft", Drafting, EditingDraft); err != nil {
		return err
	}
	c.sess.clearWork()
	c.state = Viewing
	return nil
}

// ToggleEdit enters edit mode on the selected table with a working copy,
// or leaves edit mode discarding it.
func (c *Controller) ToggleEdit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("toggle edit", Viewing, EditingRecord); err != nil {
		return err
	}
	if c.state == EditingRecord {
		c.sess.clearWork()
		c.state = Viewing
		return nil
	}
	rec, ok := c.selectedRecord()
	if !ok {
		return ErrNoSelection
	}
	ref := rec.Ref()
	c.sess.EditingRecord = &ref
	c.sess.Working = rec.Data.Clone()
	c.state = EditingRecord
	return nil
}

// SetEditCell writes text into the working copy.
func (c *Controller) SetEditCell(row int, column, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("edit record", EditingRecord); err != nil {
		return err
	}
	return c.sess.Working.Set(row, column, value)
}

// AddEditRow appends an empty row to the working copy.
func (c *Controller) AddEditRow() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("add row", EditingRecord); err != nil {
		return err
	}
	row := make(tables.Row, len(c.sess.Working.Columns))
	for _, col := range c.sess.Working.Columns {
		row[col] = nil
	}
	c.sess.Working.Rows = append(c.sess.Working.Rows, row)
	return nil
}

// SaveEdit replaces the stored rows with the working copy. On failure the
// controller stays in EditingRecord with the edits intact.
func (c *Controller) SaveEdit(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("save edit", EditingRecord); err != nil {
		return err
	}
	ref := *c.sess.EditingRecord
	rec, err := c.store.Update(ctx, ref, c.sess.Working, c.sess.AccessToken)
	if err != nil {
		return c.fail("save edit", err)
	}
	c.sess.clearWork()
	c.state = Viewing
	c.notice = fmt.Sprintf("Updated %q.", rec.Name)
	return c.refreshAfter(ctx, rec)
}

// RequestDelete asks for confirmation before deleting the selected table.
func (c *Controller) RequestDelete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("request delete", Viewing); err != nil {
		return err
	}
	rec, ok := c.selectedRecord()
	if !ok {
		return ErrNoSelection
	}
	ref := rec.Ref()
	c.sess.PendingDelete = &ref
	c.state = ConfirmDelete
	return nil
}

// ConfirmDelete deletes the pending table and reloads the listing. The
// controller returns to Viewing whatever the outcome.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("confirm delete", ConfirmDelete); err != nil {
		return err
	}
	ref := *c.sess.PendingDelete
	c.sess.clearWork()
	c.state = Viewing
	name := ref.String()
	if rec, ok := c.listing.Find(ref); ok {
		name = rec.Name
	}
	if err := c.store.Delete(ctx, ref, c.sess.AccessToken); err != nil {
		return c.fail("delete", err)
	}
	c.selected = nil
	c.notice = fmt.Sprintf("Deleted %q.", name)
	if err := c.reload(ctx); err != nil {
		return c.fail("refresh", err)
	}
	return nil
}

// CancelDelete returns to Viewing without deleting.
func (c *Controller) CancelDelete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("cancel delete", ConfirmDelete); err != nil {
		return err
	}
	c.sess.clearWork()
	c.state = Viewing
	return nil
}

// Upload stores a parsed spreadsheet in the uploads collection and selects it.
func (c *Controller) Upload(ctx context.Context, name string, t tables.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("upload", Viewing); err != nil {
		return err
	}
	if _, err := tables.ValidateColumns(t.Columns); err != nil {
		return err
	}
	rec, err := c.store.Create(ctx, tables.Uploads, name, t, c.sess.UserID, c.sess.AccessToken)
	if err != nil {
		return c.fail("upload", err)
	}
	ref := rec.Ref()
	c.selected = &ref
	c.notice = fmt.Sprintf("Uploaded %q (%d rows).", rec.Name, rec.Data.Len())
	return c.refreshAfter(ctx, rec)
}

// RunTools runs the analysis tools over the selected table.
func (c *Controller) RunTools(tools []analysis.Tool) ([]analysis.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.begin("run tools", Viewing); err != nil {
		return nil, err
	}
	rec, ok := c.selectedRecord()
	if !ok {
		return nil, ErrNoSelection
	}
	c.log.Debug("running tools", "ref", rec.Ref(), "tools", len(tools))
	return analysis.RunAll(tools, rec.Data), nil
}
