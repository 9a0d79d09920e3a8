// Package backendtest runs an in-memory stand-in for the hosted backend:
// GoTrue-style identity endpoints and PostgREST-style collections with
// owner-scoped row-level security.
package backendtest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"mydashboard/internal/config"
	"mydashboard/internal/jsonutil"
)

// APIKey is the anon key the server expects.
const APIKey = "test-anon-key"

var secret = []byte("backendtest-secret")

type user struct {
	id        string
	email     string
	password  string
	confirmed bool
}

// Recorded is one request seen by the server.
type Recorded struct {
	Method    string
	Path      string
	Query     string
	RequestID string
	Prefer    string
}

// Server is a fake backend. Zero-value knobs give the common behavior:
// tokens live one hour and signups are confirmed immediately.
type Server struct {
	*httptest.Server

	Schema config.SchemaConfig
	// TokenTTL is the lifetime of issued access tokens.
	TokenTTL time.Duration
	// RequireConfirmation makes signup return a bare user and login fail
	// until ConfirmUser is called.
	RequireConfirmation bool

	mu       sync.Mutex
	users    map[string]*user
	rows     map[string][]storedRow
	nextID   int
	requests []Recorded
	dropNext bool
	failNext int
}

// New starts a server and registers its shutdown with t.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		Schema:   config.SchemaConfig{NameColumn: "name", OwnerColumn: "owner_id", DataColumn: "data"},
		TokenTTL: time.Hour,
		users:    make(map[string]*user),
		rows:     make(map[string][]storedRow),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// BackendConfig returns client settings pointing at the server.
func (s *Server) BackendConfig() config.BackendConfig {
	return config.BackendConfig{URL: s.URL, APIKey: APIKey, Timeout: 5 * time.Second}
}

// AddUser registers a confirmed account and returns its id.
func (s *Server) AddUser(email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := &user{id: uuid.NewString(), email: email, password: password, confirmed: true}
	s.users[email] = u
	return u.id
}

// ConfirmUser marks email as confirmed.
func (s *Server) ConfirmUser(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[email]; ok {
		u.confirmed = true
	}
}

// Token issues an access token for userID expiring after ttl (may be negative).
func (s *Server) Token(userID string, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(ttl).Unix(),
		"aud": "authenticated",
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		panic(err)
	}
	return signed
}

// Seed inserts a row directly, bypassing authorization, and returns its id.
func (s *Server) Seed(collection, name, ownerID string, data []map[string]any) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.rows[collection] = append(s.rows[collection], storedRow{
		"id":                 raw(s.nextID),
		s.Schema.NameColumn:  raw(name),
		s.Schema.OwnerColumn: raw(ownerID),
		s.Schema.DataColumn:  raw(data),
	})
	return s.nextID
}

// Rows returns a decoded snapshot of a collection.
func (s *Server) Rows(collection string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, len(s.rows[collection]))
	for i, row := range s.rows[collection] {
		m := make(map[string]any, len(row))
		for k := range row {
			m[k] = row.value(k)
		}
		out[i] = m
	}
	return out
}

// RawData returns the stored data column of the row with id, byte for byte.
func (s *Server) RawData(collection string, id int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows[collection] {
		if row.text("id") == strconv.Itoa(id) {
			return string(row[s.Schema.DataColumn])
		}
	}
	return ""
}

// Requests returns every REST and auth request received so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Recorded, len(s.requests))
	copy(out, s.requests)
	return out
}

// DropNextResponse makes the next REST request commit its effect and then
// close the connection without answering.
func (s *Server) DropNextResponse() {
	s.mu.Lock()
	s.dropNext = true
	s.mu.Unlock()
}

// FailNext makes the next REST request answer with status without effect.
func (s *Server) FailNext(status int) {
	s.mu.Lock()
	s.failNext = status
	s.mu.Unlock()
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, Recorded{
		Method:    r.Method,
		Path:      r.URL.Path,
		Query:     r.URL.RawQuery,
		RequestID: r.Header.Get("X-Request-Id"),
		Prefer:    r.Header.Get("Prefer"),
	})

	if r.Header.Get("apikey") != APIKey {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "No API key found in request"})
		return
	}
	switch {
	case r.URL.Path == "/auth/v1/signup" && r.Method == http.MethodPost:
		s.signup(w, r)
	case r.URL.Path == "/auth/v1/token" && r.Method == http.MethodPost:
		s.token(w, r)
	case r.URL.Path == "/auth/v1/logout" && r.Method == http.MethodPost:
		w.WriteHeader(http.StatusNoContent)
	case strings.HasPrefix(r.URL.Path, "/rest/v1/"):
		s.rest(w, r, strings.TrimPrefix(r.URL.Path, "/rest/v1/"))
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "not found"})
	}
}

type creds struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) session(u *user) map[string]any {
	return map[string]any{
		"access_token": s.Token(u.id, s.TokenTTL),
		"token_type":   "bearer",
		"expires_in":   int64(s.TokenTTL / time.Second),
		"user":         map[string]any{"id": u.id, "email": u.email},
	}
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	var c creds
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.Email == "" || len(c.Password) < 6 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"code": 422, "error_code": "weak_password", "msg": "Password should be at least 6 characters.",
		})
		return
	}
	if _, exists := s.users[c.Email]; exists {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"code": 422, "error_code": "user_already_exists", "msg": "User already registered",
		})
		return
	}
	u := &user{id: uuid.NewString(), email: c.Email, password: c.Password, confirmed: !s.RequireConfirmation}
	s.users[c.Email] = u
	if s.RequireConfirmation {
		writeJSON(w, http.StatusOK, map[string]any{"id": u.id, "email": u.email, "confirmation_sent_at": time.Now()})
		return
	}
	writeJSON(w, http.StatusOK, s.session(u))
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	var c creds
	_ = json.NewDecoder(r.Body).Decode(&c)
	u, ok := s.users[c.Email]
	if !ok || u.password != c.Password {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant", "error_description": "Invalid login credentials"})
		return
	}
	if !u.confirmed {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant", "error_description": "Email not confirmed"})
		return
	}
	writeJSON(w, http.StatusOK, s.session(u))
}

// caller validates the bearer token and returns its subject.
func (s *Server) caller(r *http.Request) (string, int, map[string]any) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return secret, nil })
	if err != nil {
		if strings.Contains(err.Error(), "expired") {
			return "", http.StatusUnauthorized, map[string]any{"code": "PGRST303", "message": "JWT expired"}
		}
		return "", http.StatusUnauthorized, map[string]any{"code": "PGRST301", "message": "JWSError"}
	}
	sub, _ := claims["sub"].(string)
	return sub, 0, nil
}

func (s *Server) rest(w http.ResponseWriter, r *http.Request, collection string) {
	sub, status, body := s.caller(r)
	if status != 0 {
		writeJSON(w, status, body)
		return
	}
	if s.failNext != 0 {
		injected := s.failNext
		s.failNext = 0
		writeJSON(w, injected, map[string]any{"code": "XX000", "message": "injected failure"})
		return
	}

	filters := map[string]string{}
	for k, v := range r.URL.Query() {
		filters[k] = strings.TrimPrefix(v[0], "eq.")
	}
	visible := func(row storedRow) bool {
		if row.text(s.Schema.OwnerColumn) != sub {
			return false
		}
		for col, val := range filters {
			if row.text(col) != val {
				return false
			}
		}
		return true
	}

	var (
		code int
		out  []storedRow
	)
	switch r.Method {
	case http.MethodGet:
		out = []storedRow{}
		for _, row := range s.rows[collection] {
			if visible(row) {
				out = append(out, row)
			}
		}
		code = http.StatusOK
	case http.MethodPost:
		row, err := decodeRow(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"code": "PGRST102", "message": err.Error()})
			return
		}
		if row.text(s.Schema.OwnerColumn) != sub {
			writeJSON(w, http.StatusForbidden, map[string]any{
				"code": "42501", "message": `new row violates row-level security policy for table "` + collection + `"`,
			})
			return
		}
		s.nextID++
		row["id"] = raw(s.nextID)
		s.rows[collection] = append(s.rows[collection], row)
		out = []storedRow{row}
		code = http.StatusCreated
	case http.MethodPatch:
		patch, err := decodeRow(r.Body)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"code": "PGRST102", "message": err.Error()})
			return
		}
		out = []storedRow{}
		for i, row := range s.rows[collection] {
			if !visible(row) {
				continue
			}
			updated := make(storedRow, len(row))
			for k, v := range row {
				updated[k] = v
			}
			for k, v := range patch {
				updated[k] = v
			}
			s.rows[collection][i] = updated
			out = append(out, updated)
		}
		code = http.StatusOK
	case http.MethodDelete:
		out = []storedRow{}
		kept := s.rows[collection][:0:0]
		for _, row := range s.rows[collection] {
			if visible(row) {
				out = append(out, row)
				continue
			}
			kept = append(kept, row)
		}
		s.rows[collection] = kept
		code = http.StatusOK
		if !strings.Contains(r.Header.Get("Prefer"), "return=representation") {
			code = http.StatusNoContent
		}
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"message": "method not allowed"})
		return
	}

	if s.dropNext {
		s.dropNext = false
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				_ = conn.Close()
				return
			}
		}
	}
	if code == http.StatusNoContent {
		w.WriteHeader(code)
		return
	}
	writeJSON(w, code, out)
}

// storedRow keeps each column as the client sent it, so key order inside
// nested objects survives the way it does in a plain json column.
type storedRow map[string]json.RawMessage

func (r storedRow) value(col string) any {
	var v any
	if err := json.Unmarshal(r[col], &v); err != nil {
		return nil
	}
	return v
}

func (r storedRow) text(col string) string {
	return jsonutil.ToString(r.value(col))
}

func raw(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func decodeRow(r io.Reader) (storedRow, error) {
	var row storedRow
	if err := json.NewDecoder(r).Decode(&row); err != nil {
		return nil, fmt.Errorf("could not parse body: %w", err)
	}
	return row, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// IDs lists the ids of a collection in ascending order.
func (s *Server) IDs(collection string) []string {
	rows := s.Rows(collection)
	ids := make([]int, 0, len(rows))
	for _, r := range rows {
		f, _ := jsonutil.ToFloat(r["id"])
		ids = append(ids, int(f))
	}
	sort.Ints(ids)
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.Itoa(id)
	}
	return out
}
