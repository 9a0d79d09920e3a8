package tables_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mydashboard/internal/backend"
	"mydashboard/internal/backend/backendtest"
	"mydashboard/internal/config"
	"mydashboard/internal/tables"
)

type fixture struct {
	srv   *backendtest.Server
	store *tables.Store
	owner string
	token string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	srv := backendtest.New(t)
	client, err := backend.New(srv.BackendConfig())
	require.NoError(t, err)
	owner := srv.AddUser("alice@example.com", "secret1")
	return fixture{
		srv:   srv,
		store: tables.NewStore(client, srv.Schema, nil),
		owner: owner,
		token: srv.Token(owner, time.Hour),
	}
}

func sample() tables.Table {
	return tables.Table{
		Columns: []string{"product", "qty"},
		Rows: []tables.Row{
			{"product": "apple", "qty": 3.0},
			{"product": "pear", "qty": nil},
		},
	}
}

func TestStore_CreateList(t *testing.T) {
	ctx := context.Background()

	t.Run("Should list a created record exactly once with rows intact", func(t *testing.T) {
		f := newFixture(t)
		rec, err := f.store.Create(ctx, tables.Manual, " fruit ", sample(), f.owner, f.token)
		require.NoError(t, err)
		assert.Equal(t, "fruit", rec.Name)
		assert.Equal(t, f.owner, rec.OwnerID)
		assert.Equal(t, tables.Manual, rec.Collection)
		assert.NotEmpty(t, rec.ID)

		list, err := f.store.List(ctx, tables.Manual, f.owner, f.token)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, rec.ID, list[0].ID)
		assert.True(t, sample().Equal(list[0].Data), "got %+v", list[0].Data)
	})

	t.Run("Should preserve column order through the backend", func(t *testing.T) {
		f := newFixture(t)
		tbl := tables.Table{Columns: []string{"zeta", "alpha"}, Rows: []tables.Row{{"zeta": 1.0, "alpha": 2.0}}}
		rec, err := f.store.Create(ctx, tables.Uploads, "ordered", tbl, f.owner, f.token)
		require.NoError(t, err)
		assert.Equal(t, []string{"zeta", "alpha"}, rec.Data.Columns)
	})

	t.Run("Should reject an empty name before any network call", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.store.Create(ctx, tables.Manual, "  ", sample(), f.owner, f.token)
		var verr *tables.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "name", verr.Field)
		assert.Empty(t, f.srv.Requests())
	})

	t.Run("Should reject an unknown collection", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.store.List(ctx, tables.Collection("users"), f.owner, f.token)
		var verr *tables.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Empty(t, f.srv.Requests())
	})

	t.Run("Should only list the owner's records", func(t *testing.T) {
		f := newFixture(t)
		bob := f.srv.AddUser("bob@example.com", "secret2")
		f.srv.Seed("uploads", "mine", f.owner, nil)
		f.srv.Seed("uploads", "his", bob, nil)

		list, err := f.store.List(ctx, tables.Uploads, f.owner, f.token)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "mine", list[0].Name)
	})

	t.Run("Should surface backend rejections as RequestError", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.store.Create(ctx, tables.Manual, "x", sample(), "someone-else", f.token)
		var rerr *backend.RequestError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, 403, rerr.Status)
	})
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("Should replace rows instead of merging", func(t *testing.T) {
		f := newFixture(t)
		rec, err := f.store.Create(ctx, tables.Manual, "fruit", sample(), f.owner, f.token)
		require.NoError(t, err)

		replacement := tables.Table{Columns: []string{"kind"}, Rows: []tables.Row{{"kind": "citrus"}}}
		updated, err := f.store.Update(ctx, rec.Ref(), replacement, f.token)
		require.NoError(t, err)
		assert.True(t, replacement.Equal(updated.Data))

		list, err := f.store.List(ctx, tables.Manual, f.owner, f.token)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, []string{"kind"}, list[0].Data.Columns)
		assert.True(t, replacement.Equal(list[0].Data))
	})

	t.Run("Should report a missing record", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.store.Update(ctx, tables.Ref{Collection: tables.Manual, ID: "404"}, sample(), f.token)
		var rerr *backend.RequestError
		require.ErrorAs(t, err, &rerr)
		assert.True(t, rerr.NotFound())
	})
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("Should remove the record and fail a second delete", func(t *testing.T) {
		f := newFixture(t)
		rec, err := f.store.Create(ctx, tables.Uploads, "gone", sample(), f.owner, f.token)
		require.NoError(t, err)

		require.NoError(t, f.store.Delete(ctx, rec.Ref(), f.token))
		list, err := f.store.List(ctx, tables.Uploads, f.owner, f.token)
		require.NoError(t, err)
		assert.Empty(t, list)

		err = f.store.Delete(ctx, rec.Ref(), f.token)
		var rerr *backend.RequestError
		require.ErrorAs(t, err, &rerr)
		assert.True(t, rerr.NotFound())
	})

	t.Run("Should treat a lost response as success when the row is gone", func(t *testing.T) {
		f := newFixture(t)
		id := f.srv.Seed("uploads", "gone", f.owner, nil)
		f.srv.DropNextResponse()

		err := f.store.Delete(ctx, tables.Ref{Collection: tables.Uploads, ID: strconv.Itoa(id)}, f.token)
		require.NoError(t, err)
		assert.Empty(t, f.srv.Rows("uploads"))

		reqs := f.srv.Requests()
		require.Len(t, reqs, 2)
		assert.Equal(t, "DELETE", reqs[0].Method)
		assert.Equal(t, "GET", reqs[1].Method)
		assert.NotEmpty(t, reqs[0].RequestID)
	})

	t.Run("Should keep the transport error when the row survived", func(t *testing.T) {
		gw := &scriptedGateway{
			responses: []scripted{
				{err: &backend.TransportError{Op: "delete uploads", Err: errors.New("connection reset")}},
				{body: `[{"id":7,"name":"kept","owner_id":"u1","data":[]}]`},
			},
		}
		store := tables.NewStore(gw, config.Default().Schema, nil)

		err := store.Delete(ctx, tables.Ref{Collection: tables.Uploads, ID: "7"}, "tok")
		var terr *backend.TransportError
		require.ErrorAs(t, err, &terr)
		require.Len(t, gw.requests, 2)
		assert.Equal(t, backend.OpDelete, gw.requests[0].Op)
		assert.NotEmpty(t, gw.requests[0].RequestID)
		assert.Equal(t, backend.OpList, gw.requests[1].Op)
		assert.Equal(t, backend.Eq("id", "7"), gw.requests[1].Filter)
	})
}

func TestStore_ListDropsForeignRows(t *testing.T) {
	gw := &scriptedGateway{
		responses: []scripted{{body: `[
			{"id":1,"name":"mine","owner_id":"u1","data":[]},
			{"id":2,"name":"leaked","owner_id":"u2","data":[]}
		]`}},
	}
	store := tables.NewStore(gw, config.Default().Schema, nil)

	list, err := store.List(context.Background(), tables.Uploads, "u1", "tok")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "mine", list[0].Name)
}

func TestStore_LegacySchema(t *testing.T) {
	gw := &scriptedGateway{
		responses: []scripted{{body: `[{"id":3,"nome":"vendas","user_id":"u1","dados_json":"[{\"mes\":\"jan\",\"total\":10}]"}]`}},
	}
	schema := config.SchemaConfig{NameColumn: "nome", OwnerColumn: "user_id", DataColumn: "dados_json"}
	store := tables.NewStore(gw, schema, nil)

	list, err := store.List(context.Background(), tables.Manual, "u1", "tok")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "vendas", list[0].Name)
	assert.Equal(t, "3", list[0].ID)
	assert.Equal(t, []string{"mes", "total"}, list[0].Data.Columns)
	assert.Equal(t, backend.Eq("user_id", "u1"), gw.requests[0].Filter)
}

func TestListing_Resolve(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.store.Create(ctx, tables.Manual, "Sales", sample(), f.owner, f.token)
	require.NoError(t, err)
	up, err := f.store.Create(ctx, tables.Uploads, "Sales", sample(), f.owner, f.token)
	require.NoError(t, err)
	_, err = f.store.Create(ctx, tables.Manual, "Costs", sample(), f.owner, f.token)
	require.NoError(t, err)

	listing, err := f.store.ListAll(ctx, f.owner, f.token)
	require.NoError(t, err)
	assert.Equal(t, 3, listing.Len())

	t.Run("Should let the upload win a name tie", func(t *testing.T) {
		rec, ok := listing.Resolve("Sales")
		require.True(t, ok)
		assert.Equal(t, up.Ref(), rec.Ref())
	})

	t.Run("Should resolve manual-only names", func(t *testing.T) {
		rec, ok := listing.Resolve("Costs")
		require.True(t, ok)
		assert.Equal(t, tables.Manual, rec.Collection)
	})

	t.Run("Should report unknown names", func(t *testing.T) {
		_, ok := listing.Resolve("Nope")
		assert.False(t, ok)
	})

	t.Run("Should find by reference", func(t *testing.T) {
		rec, ok := listing.Find(up.Ref())
		require.True(t, ok)
		assert.Equal(t, "Sales", rec.Name)
	})
}

type scripted struct {
	body string
	err  error
}

// scriptedGateway answers calls from a fixed script and records requests.
type scriptedGateway struct {
	responses []scripted
	requests  []backend.Request
}

func (g *scriptedGateway) Do(_ context.Context, req backend.Request) (*backend.Response, error) {
	g.requests = append(g.requests, req)
	if len(g.responses) == 0 {
		return nil, errors.New("unexpected call")
	}
	next := g.responses[0]
	g.responses = g.responses[1:]
	if next.err != nil {
		return nil, next.err
	}
	return &backend.Response{Status: 200, Body: []byte(next.body)}, nil
}
