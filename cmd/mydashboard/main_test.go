package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mydashboard/internal/analysis"
	"mydashboard/internal/backend/backendtest"
	"mydashboard/internal/config"
	"mydashboard/internal/tables"
)

const (
	testEmail    = "alice@example.com"
	testPassword = "secret1"
)

// setup points the environment at a fake backend with one user.
func setup(t *testing.T) (*backendtest.Server, string) {
	t.Helper()
	srv := backendtest.New(t)
	userID := srv.AddUser(testEmail, testPassword)
	t.Setenv(config.URLEnv, srv.URL)
	t.Setenv(config.KeyEnv, backendtest.APIKey)
	t.Setenv("MYDASHBOARD_LOG_FILE", filepath.Join(t.TempDir(), "mydashboard.log"))
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv(PasswordEnv, testPassword)
	return srv, userID
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, a := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := root.ExecuteContext(context.Background())
	require.NoError(t, a.close(context.Background()))
	return out.String(), err
}

func TestTablesCmd(t *testing.T) {
	t.Run("Should list uploads and manual tables with their origin", func(t *testing.T) {
		srv, userID := setup(t)
		srv.Seed(string(tables.Uploads), "sales", userID, []map[string]any{{"city": "Lisbon", "total": 10}})
		srv.Seed(string(tables.Manual), "budget", userID, []map[string]any{{"item": "rent"}})
		srv.Seed(string(tables.Manual), "not-mine", "someone-else", []map[string]any{{"a": 1}})

		out, err := execute(t, "tables", "--email", testEmail)
		require.NoError(t, err)
		assert.Contains(t, out, "sales")
		assert.Contains(t, out, "upload")
		assert.Contains(t, out, "budget")
		assert.Contains(t, out, "manual")
		assert.NotContains(t, out, "not-mine")
	})

	t.Run("Should require an email", func(t *testing.T) {
		setup(t)
		_, err := execute(t, "tables")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--email")
	})

	t.Run("Should require a password", func(t *testing.T) {
		setup(t)
		t.Setenv(PasswordEnv, "")
		_, err := execute(t, "tables", "--email", testEmail)
		require.Error(t, err)
		assert.Contains(t, err.Error(), PasswordEnv)
	})

	t.Run("Should report bad credentials", func(t *testing.T) {
		setup(t)
		t.Setenv(PasswordEnv, "wrong")
		_, err := execute(t, "tables", "--email", testEmail)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "login")
	})

	t.Run("Should fail without backend settings", func(t *testing.T) {
		setup(t)
		t.Setenv(config.URLEnv, "")
		_, err := execute(t, "tables", "--email", testEmail)
		require.Error(t, err)
		assert.Contains(t, err.Error(), config.URLEnv)
	})
}

func TestShowCmd(t *testing.T) {
	t.Run("Should prefer the upload when names collide", func(t *testing.T) {
		srv, userID := setup(t)
		srv.Seed(string(tables.Manual), "Sales", userID, []map[string]any{{"from": "manual"}})
		srv.Seed(string(tables.Uploads), "Sales", userID, []map[string]any{{"from": "upload"}})

		out, err := execute(t, "show", "Sales", "--email", testEmail)
		require.NoError(t, err)
		assert.Contains(t, out, "upload, 1 row")
		assert.NotContains(t, out, "manual")
	})

	t.Run("Should report an unknown table", func(t *testing.T) {
		setup(t)
		_, err := execute(t, "show", "nope", "--email", testEmail)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})
}

func TestUploadCmd(t *testing.T) {
	srv, _ := setup(t)
	path := filepath.Join(t.TempDir(), "fruit.csv")
	require.NoError(t, os.WriteFile(path, []byte("fruit,qty\napple,3\npear,\n"), 0o644))

	out, err := execute(t, "upload", path, "--name", "Fruit", "--email", testEmail)
	require.NoError(t, err)
	assert.Contains(t, out, `Uploaded "Fruit" (2 rows).`)

	rows := srv.Rows(string(tables.Uploads))
	require.Len(t, rows, 1)
	assert.Equal(t, "Fruit", rows[0]["name"])

	_, err = execute(t, "upload", filepath.Join(t.TempDir(), "notes.txt"), "--email", testEmail)
	require.Error(t, err)
}

func TestToolsCmd(t *testing.T) {
	t.Run("Should run the chosen tools", func(t *testing.T) {
		srv, userID := setup(t)
		srv.Seed(string(tables.Uploads), "fruit", userID, []map[string]any{
			{"fruit": "apple"}, {"fruit": "apple"}, {"fruit": "pear"},
		})

		out, err := execute(t, "tools", "fruit", "--tool", "counts", "--email", testEmail)
		require.NoError(t, err)
		assert.Contains(t, out, analysis.ValueCounts.String())
		assert.Contains(t, out, "apple")
		assert.NotContains(t, out, analysis.Histogram.String())
	})

	t.Run("Should reject unknown tools before logging in", func(t *testing.T) {
		srv, _ := setup(t)
		_, err := execute(t, "tools", "fruit", "--tool", "magic", "--email", testEmail)
		require.ErrorIs(t, err, analysis.ErrUnknownTool)
		assert.Empty(t, srv.Requests())
	})
}

func TestParseTools(t *testing.T) {
	all, err := parseTools(nil)
	require.NoError(t, err)
	assert.Equal(t, analysis.All(), all)

	tools, err := parseTools([]string{"hist", "Basic statistics"})
	require.NoError(t, err)
	assert.Equal(t, []analysis.Tool{analysis.Histogram, analysis.BasicStats}, tools)
}

func TestRenderRecord(t *testing.T) {
	rec := tables.Record{
		Name:       "nums",
		Collection: tables.Manual,
		Data: tables.Table{
			Columns: []string{"n"},
			Rows:    []tables.Row{{"n": 1.0}, {"n": 2.0}, {"n": 3.0}},
		},
	}
	out := renderRecord(rec, 2)
	assert.Contains(t, out, "manual, 3 rows")
	assert.Contains(t, out, "1 more row not shown")

	out = renderRecord(rec, 0)
	assert.NotContains(t, out, "not shown")

	assert.Contains(t, renderRecord(tables.Record{Name: "empty", Collection: tables.Uploads}, 0), "no columns")
	assert.Contains(t, renderListing(tables.Listing{}), "No tables yet")
}
