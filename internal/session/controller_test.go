package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mydashboard/internal/analysis"
	"mydashboard/internal/backend"
	"mydashboard/internal/backend/backendtest"
	"mydashboard/internal/tables"
)

const (
	email    = "alice@example.com"
	password = "secret1"
)

// newLive wires a controller to a fake backend through the real client and
// store.
func newLive(t *testing.T) (*Controller, *backendtest.Server) {
	t.Helper()
	srv := backendtest.New(t)
	client, err := backend.New(srv.BackendConfig())
	require.NoError(t, err)
	return NewController(client, tables.NewStore(client, srv.Schema, nil), nil), srv
}

func loggedIn(t *testing.T) (*Controller, *backendtest.Server, string) {
	t.Helper()
	c, srv := newLive(t)
	id := srv.AddUser(email, password)
	require.NoError(t, c.Login(context.Background(), email, password))
	return c, srv, id
}

func TestState_String(t *testing.T) {
	for s, want := range map[State]string{
		Anonymous:     "Anonymous",
		Viewing:       "Viewing",
		Drafting:      "Drafting",
		EditingDraft:  "EditingDraft",
		EditingRecord: "EditingRecord",
		ConfirmDelete: "ConfirmDelete",
		State(42):     "Unknown",
	} {
		assert.Equal(t, want, s.String())
	}
	assert.False(t, Anonymous.Authenticated())
	assert.True(t, EditingDraft.Authenticated())
}

func TestController_Auth(t *testing.T) {
	ctx := context.Background()

	t.Run("Should log in, log out and log in again", func(t *testing.T) {
		c, srv := newLive(t)
		id := srv.AddUser(email, password)

		require.NoError(t, c.Login(ctx, email, password))
		snap := c.Snapshot()
		assert.Equal(t, Viewing, snap.State)
		assert.Equal(t, id, snap.UserID)

		require.NoError(t, c.Logout(ctx))
		assert.Equal(t, Anonymous, c.State())
		assert.Empty(t, c.Snapshot().UserID)

		require.NoError(t, c.Login(ctx, email, password))
		assert.Equal(t, Viewing, c.State())
	})

	t.Run("Should stay anonymous on bad credentials", func(t *testing.T) {
		c, srv := newLive(t)
		srv.AddUser(email, password)

		err := c.Login(ctx, email, "wrong")
		var aerr *backend.AuthError
		require.ErrorAs(t, err, &aerr)
		assert.Equal(t, Anonymous, c.State())
	})

	t.Run("Should validate credentials before calling the backend", func(t *testing.T) {
		c, srv := newLive(t)
		var verr *tables.ValidationError
		require.ErrorAs(t, c.Login(ctx, " ", password), &verr)
		require.ErrorAs(t, c.Login(ctx, email, ""), &verr)
		assert.Empty(t, srv.Requests())
	})

	t.Run("Should reject login while signed in", func(t *testing.T) {
		c, _, _ := loggedIn(t)
		require.ErrorIs(t, c.Login(ctx, email, password), ErrInvalidTransition)
		assert.Equal(t, Viewing, c.State())
	})

	t.Run("Should sign up straight into a session", func(t *testing.T) {
		c, _ := newLive(t)
		require.NoError(t, c.SignUp(ctx, "new@example.com", "secret9"))
		assert.Equal(t, Viewing, c.State())
	})

	t.Run("Should stay anonymous while confirmation is pending", func(t *testing.T) {
		c, srv := newLive(t)
		srv.RequireConfirmation = true
		require.NoError(t, c.SignUp(ctx, "new@example.com", "secret9"))
		snap := c.Snapshot()
		assert.Equal(t, Anonymous, snap.State)
		assert.Contains(t, snap.Notice, "Confirm your email")
	})

	t.Run("Should treat logout while anonymous as a no-op", func(t *testing.T) {
		c, srv := newLive(t)
		require.NoError(t, c.Logout(ctx))
		assert.Empty(t, srv.Requests())
	})
}

func TestController_Draft(t *testing.T) {
	ctx := context.Background()

	t.Run("Should save a draft and select the new table", func(t *testing.T) {
		c, srv, _ := loggedIn(t)
		require.NoError(t, c.BeginDraft())
		assert.Equal(t, Drafting, c.State())

		require.NoError(t, c.ShapeDraft(2, []string{"A", "B"}))
		assert.Equal(t, EditingDraft, c.State())
		require.NoError(t, c.SetDraftCell(0, 0, "x"))
		require.NoError(t, c.SetDraftCell(1, 1, "2"))

		require.NoError(t, c.SaveDraft(ctx, "mine"))
		snap := c.Snapshot()
		assert.Equal(t, Viewing, snap.State)
		assert.Nil(t, snap.Draft)
		require.NotNil(t, snap.Selected)
		assert.Equal(t, "mine", snap.Selected.Name)
		assert.Equal(t, tables.Manual, snap.Selected.Collection)
		assert.Equal(t, []tables.Row{{"A": "x", "B": nil}, {"A": nil, "B": 2.0}}, snap.Selected.Data.Rows)
		assert.Len(t, snap.Listing.Manual, 1)
		assert.Len(t, srv.Rows("tabelas_criadas"), 1)
	})

	t.Run("Should reject bad column names before any network call", func(t *testing.T) {
		c, srv, _ := loggedIn(t)
		before := len(srv.Requests())
		require.NoError(t, c.BeginDraft())

		var verr *tables.ValidationError
		require.ErrorAs(t, c.ShapeDraft(2, []string{"A", "A"}), &verr)
		assert.Equal(t, Drafting, c.State())
		require.ErrorAs(t, c.ShapeDraft(2, []string{"A", ""}), &verr)
		assert.Equal(t, Drafting, c.State())
		require.NoError(t, c.ShapeDraft(2, []string{"A", "B"}))
		assert.Equal(t, before, len(srv.Requests()))
	})

	t.Run("Should stay in the editor when the name is empty", func(t *testing.T) {
		c, srv, _ := loggedIn(t)
		before := len(srv.Requests())
		require.NoError(t, c.BeginDraft())
		require.NoError(t, c.ShapeDraft(1, []string{"A"}))
		require.NoError(t, c.SetDraftCell(0, 0, "keep me"))

		var verr *tables.ValidationError
		require.ErrorAs(t, c.SaveDraft(ctx, "  "), &verr)
		snap := c.Snapshot()
		assert.Equal(t, EditingDraft, snap.State)
		require.NotNil(t, snap.Draft)
		assert.Equal(t, "keep me", snap.Draft.Cell(0, 0))
		assert.Equal(t, before, len(srv.Requests()))
	})

	t.Run("Should discard a cancelled draft", func(t *testing.T) {
		c, _, _ := loggedIn(t)
		require.NoError(t, c.BeginDraft())
		require.NoError(t, c.ShapeDraft(1, []string{"A"}))
		require.NoError(t, c.CancelDraft())
		assert.Equal(t, Viewing, c.State())
		assert.Nil(t, c.Snapshot().Draft)
	})

	t.Run("Should not edit cells before the shape is chosen", func(t *testing.T) {
		c, _, _ := loggedIn(t)
		require.NoError(t, c.BeginDraft())
		require.ErrorIs(t, c.SetDraftCell(0, 0, "x"), ErrInvalidTransition)
		require.ErrorIs(t, c.SaveDraft(ctx, "x"), ErrInvalidTransition)
	})
}

func TestController_Edit(t *testing.T) {
	ctx := context.Background()

	t.Run("Should replace rows with the edited copy", func(t *testing.T) {
		c, srv, id := loggedIn(t)
		rowID := srv.Seed("uploads", "sales", id, []map[string]any{{"m": "jan", "v": 1.0}, {"m": "feb", "v": 2.0}})
		require.NoError(t, c.Refresh(ctx))
		require.NoError(t, c.Select(tables.Ref{Collection: tables.Uploads, ID: strconv.Itoa(rowID)}))

		require.NoError(t, c.ToggleEdit())
		assert.Equal(t, EditingRecord, c.State())
		require.NoError(t, c.SetEditCell(0, "v", "10"))
		require.NoError(t, c.AddEditRow())
		require.NoError(t, c.SetEditCell(2, "m", "mar"))

		snap := c.Snapshot()
		require.NotNil(t, snap.Working)
		assert.Equal(t, 1.0, snap.Selected.Data.Cell(0, "v"), "stored copy untouched until save")

		require.NoError(t, c.SaveEdit(ctx))
		snap = c.Snapshot()
		assert.Equal(t, Viewing, snap.State)
		assert.Nil(t, snap.Working)
		require.NotNil(t, snap.Selected)
		assert.Equal(t, []tables.Row{
			{"m": "jan", "v": 10.0},
			{"m": "feb", "v": 2.0},
			{"m": "mar", "v": nil},
		}, snap.Selected.Data.Rows)
	})

	t.Run("Should discard edits when toggled off", func(t *testing.T) {
		c, srv, id := loggedIn(t)
		srv.Seed("uploads", "sales", id, []map[string]any{{"v": 1.0}})
		require.NoError(t, c.Refresh(ctx))
		_, err := c.SelectByName("sales")
		require.NoError(t, err)

		require.NoError(t, c.ToggleEdit())
		require.NoError(t, c.SetEditCell(0, "v", "5"))
		require.NoError(t, c.ToggleEdit())
		assert.Equal(t, Viewing, c.State())
		assert.Equal(t, 1.0, c.Snapshot().Selected.Data.Cell(0, "v"))
	})

	t.Run("Should need a selection to edit", func(t *testing.T) {
		c, _, _ := loggedIn(t)
		require.ErrorIs(t, c.ToggleEdit(), ErrNoSelection)
		assert.Equal(t, Viewing, c.State())
	})
}

func TestController_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("Should delete after confirmation", func(t *testing.T) {
		c, srv, id := loggedIn(t)
		srv.Seed("tabelas_criadas", "old", id, nil)
		require.NoError(t, c.Refresh(ctx))
		_, err := c.SelectByName("old")
		require.NoError(t, err)

		require.NoError(t, c.RequestDelete())
		snap := c.Snapshot()
		assert.Equal(t, ConfirmDelete, snap.State)
		require.NotNil(t, snap.PendingDelete)
		assert.Equal(t, "old", snap.PendingDelete.Name)

		require.NoError(t, c.ConfirmDelete(ctx))
		snap = c.Snapshot()
		assert.Equal(t, Viewing, snap.State)
		assert.Nil(t, snap.Selected)
		assert.Zero(t, snap.Listing.Len())
		assert.Contains(t, snap.Notice, "Deleted")
		assert.Empty(t, srv.Rows("tabelas_criadas"))
	})

	t.Run("Should keep the table when cancelled", func(t *testing.T) {
		c, srv, id := loggedIn(t)
		srv.Seed("tabelas_criadas", "old", id, nil)
		require.NoError(t, c.Refresh(ctx))
		_, err := c.SelectByName("old")
		require.NoError(t, err)

		require.NoError(t, c.RequestDelete())
		require.NoError(t, c.CancelDelete())
		snap := c.Snapshot()
		assert.Equal(t, Viewing, snap.State)
		require.NotNil(t, snap.Selected)
		assert.Len(t, srv.Rows("tabelas_criadas"), 1)
	})

	t.Run("Should only confirm from the confirmation state", func(t *testing.T) {
		c, _, _ := loggedIn(t)
		require.ErrorIs(t, c.ConfirmDelete(ctx), ErrInvalidTransition)
		require.ErrorIs(t, c.CancelDelete(), ErrInvalidTransition)
	})
}

func TestController_SelectByName(t *testing.T) {
	c, srv, id := loggedIn(t)
	srv.Seed("tabelas_criadas", "Sales", id, nil)
	up := srv.Seed("uploads", "Sales", id, nil)
	require.NoError(t, c.Refresh(context.Background()))

	rec, err := c.SelectByName("Sales")
	require.NoError(t, err)
	assert.Equal(t, tables.Uploads, rec.Collection)
	assert.Equal(t, strconv.Itoa(up), rec.ID)

	_, err = c.SelectByName("Nope")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestController_UploadAndTools(t *testing.T) {
	c, srv, _ := loggedIn(t)
	tbl := tables.Table{
		Columns: []string{"x", "y"},
		Rows:    []tables.Row{{"x": 1.0, "y": 2.0}, {"x": 2.0, "y": 4.0}, {"x": 3.0, "y": 7.0}},
	}
	require.NoError(t, c.Upload(context.Background(), "data.csv", tbl))
	snap := c.Snapshot()
	require.NotNil(t, snap.Selected)
	assert.Equal(t, tables.Uploads, snap.Selected.Collection)
	assert.Len(t, srv.Rows("uploads"), 1)

	results, err := c.RunTools([]analysis.Tool{analysis.BasicStats, analysis.Correlation})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, analysis.Correlation, results[1].Tool)

	var verr *tables.ValidationError
	require.ErrorAs(t, c.Upload(context.Background(), "bad", tables.Table{Columns: []string{"a", "a"}}), &verr)
}

func TestController_RunToolsNeedsSelection(t *testing.T) {
	c, _, _ := loggedIn(t)
	_, err := c.RunTools(analysis.All())
	require.ErrorIs(t, err, ErrNoSelection)
}

func TestController_SessionExpiry(t *testing.T) {
	ctx := context.Background()

	t.Run("Should return to anonymous when the token expires", func(t *testing.T) {
		auth := &fakeAuth{}
		store := &fakeStore{}
		c := NewController(auth, store, nil)
		require.NoError(t, c.Login(ctx, email, password))

		store.err = fmt.Errorf("list uploads: %w", backend.ErrSessionExpired)
		err := c.Refresh(ctx)
		require.ErrorIs(t, err, backend.ErrSessionExpired)

		snap := c.Snapshot()
		assert.Equal(t, Anonymous, snap.State)
		assert.Empty(t, snap.UserID)
		assert.Contains(t, snap.Notice, "log in again")

		store.err = nil
		require.NoError(t, c.Login(ctx, email, password))
	})

	t.Run("Should notice an expired session before a local action", func(t *testing.T) {
		now := time.Now()
		c := NewController(&fakeAuth{}, &fakeStore{}, nil, WithClock(func() time.Time { return now }))
		require.NoError(t, c.Login(ctx, email, password))
		require.NoError(t, c.BeginDraft())

		now = now.Add(2 * time.Hour)
		err := c.ShapeDraft(1, []string{"a"})
		require.ErrorIs(t, err, backend.ErrSessionExpired)
		snap := c.Snapshot()
		assert.Equal(t, Anonymous, snap.State)
		assert.Nil(t, snap.Draft)
		assert.Contains(t, snap.Notice, "log in again")

		require.NoError(t, c.Login(ctx, email, password))
		assert.Equal(t, Viewing, c.State())
	})

	t.Run("Should keep the draft on other failures", func(t *testing.T) {
		store := &fakeStore{}
		c := NewController(&fakeAuth{}, store, nil)
		require.NoError(t, c.Login(ctx, email, password))
		require.NoError(t, c.BeginDraft())
		require.NoError(t, c.ShapeDraft(1, []string{"a"}))

		store.err = &backend.RequestError{Op: "create", Status: 500}
		err := c.SaveDraft(ctx, "t")
		var rerr *backend.RequestError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, EditingDraft, c.State())
		assert.NotNil(t, c.Snapshot().Draft)
	})

	t.Run("Should discard the session even if sign out fails", func(t *testing.T) {
		auth := &fakeAuth{signOutErr: errors.New("offline")}
		c := NewController(auth, &fakeStore{}, nil)
		require.NoError(t, c.Login(ctx, email, password))
		require.NoError(t, c.Logout(ctx))
		assert.Equal(t, Anonymous, c.State())
	})
}

type fakeAuth struct {
	signOutErr error
}

func (f *fakeAuth) SignIn(_ context.Context, email, _ string) (*backend.Session, error) {
	return &backend.Session{UserID: "u1", Email: email, AccessToken: "tok", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeAuth) SignUp(_ context.Context, email, _ string) (*backend.SignUpResult, error) {
	return &backend.SignUpResult{User: backend.User{ID: "u1", Email: email}}, nil
}

func (f *fakeAuth) SignOut(context.Context, string) error { return f.signOutErr }

// fakeStore fails every call with err when set and is otherwise empty.
// listErr fails only ListAll.
type fakeStore struct {
	err     error
	listErr error
}

func (f *fakeStore) ListAll(context.Context, string, string) (tables.Listing, error) {
	if f.listErr != nil {
		return tables.Listing{}, f.listErr
	}
	return tables.Listing{}, f.err
}

func (f *fakeStore) Create(_ context.Context, c tables.Collection, name string, t tables.Table, owner, _ string) (tables.Record, error) {
	if f.err != nil {
		return tables.Record{}, f.err
	}
	return tables.Record{ID: "1", Name: name, OwnerID: owner, Data: t, Collection: c}, nil
}

func (f *fakeStore) Update(_ context.Context, ref tables.Ref, t tables.Table, _ string) (tables.Record, error) {
	if f.err != nil {
		return tables.Record{}, f.err
	}
	return tables.Record{ID: ref.ID, Data: t, Collection: ref.Collection}, nil
}

func (f *fakeStore) Delete(context.Context, tables.Ref, string) error { return f.err }

func TestController_WriteThenRefreshFails(t *testing.T) {
	ctx := context.Background()
	offline := &backend.TransportError{Op: "list", Err: errors.New("connection reset")}

	t.Run("Should keep a saved draft selected", func(t *testing.T) {
		store := &fakeStore{}
		c := NewController(&fakeAuth{}, store, nil)
		require.NoError(t, c.Login(ctx, email, password))
		require.NoError(t, c.BeginDraft())
		require.NoError(t, c.ShapeDraft(1, []string{"a"}))
		require.NoError(t, c.SetDraftCell(0, 0, "x"))

		store.listErr = offline
		err := c.SaveDraft(ctx, "budget")
		var terr *backend.TransportError
		require.ErrorAs(t, err, &terr)

		snap := c.Snapshot()
		assert.Equal(t, Viewing, snap.State)
		assert.Nil(t, snap.Draft)
		require.NotNil(t, snap.Selected)
		assert.Equal(t, "budget", snap.Selected.Name)
		assert.Contains(t, snap.Notice, `Saved "budget".`)
		assert.Contains(t, snap.Notice, "could not be refreshed")
		assert.Len(t, snap.Listing.Manual, 1)
	})

	t.Run("Should keep an upload selected", func(t *testing.T) {
		store := &fakeStore{}
		c := NewController(&fakeAuth{}, store, nil)
		require.NoError(t, c.Login(ctx, email, password))

		store.listErr = offline
		data := tables.Table{Columns: []string{"n"}, Rows: []tables.Row{{"n": 1.0}}}
		require.Error(t, c.Upload(ctx, "nums", data))

		snap := c.Snapshot()
		require.NotNil(t, snap.Selected)
		assert.Equal(t, tables.Uploads, snap.Selected.Collection)
		assert.Contains(t, snap.Notice, "Uploaded")

		store.listErr = nil
		require.NoError(t, c.Refresh(ctx))
		assert.Nil(t, c.Snapshot().Selected, "a reload that no longer lists the table drops it")
	})
}
