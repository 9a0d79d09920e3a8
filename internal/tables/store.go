package tables

import (
	"context"
	"errors"
	"fmt"
	"strings"

	charmlog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"mydashboard/internal/backend"
	"mydashboard/internal/config"
	"mydashboard/internal/jsonutil"
	"mydashboard/internal/logging"
)

// idColumn is the backend-assigned primary key.
const idColumn = "id"

// Gateway performs one REST call. *backend.Client implements it.
type Gateway interface {
	Do(ctx context.Context, req backend.Request) (*backend.Response, error)
}

// Ref identifies a stored record.
type Ref struct {
	Collection Collection
	ID         string
}

func (r Ref) String() string { return string(r.Collection) + "/" + r.ID }

// Record is a table stored in one of the collections.
type Record struct {
	ID         string
	Name       string
	OwnerID    string
	Data       Table
	Collection Collection
}

func (r Record) Ref() Ref { return Ref{Collection: r.Collection, ID: r.ID} }

// Store maps table operations onto gateway calls. It keeps no state between
// calls.
type Store struct {
	gw     Gateway
	schema config.SchemaConfig
	log    *charmlog.Logger
}

// NewStore returns a store whose payload and filter column names come from
// schema. A nil logger discards.
func NewStore(gw Gateway, schema config.SchemaConfig, log *charmlog.Logger) *Store {
	if log == nil {
		log = logging.Discard()
	}
	return &Store{gw: gw, schema: schema, log: log}
}

func checkCollection(c Collection) error {
	if !c.Valid() {
		return &ValidationError{Field: "collection", Reason: fmt.Sprintf("unknown collection %q", c)}
	}
	return nil
}

// List returns the owner's records in backend order. Rows owned by anyone
// else are dropped even if the backend returns them.
func (s *Store) List(ctx context.Context, c Collection, ownerID, token string) ([]Record, error) {
	if err := checkCollection(c); err != nil {
		return nil, err
	}
	resp, err := s.gw.Do(ctx, backend.Request{
		Op:         backend.OpList,
		Collection: string(c),
		Filter:     backend.Eq(s.schema.OwnerColumn, ownerID),
		Token:      token,
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c, err)
	}
	all, err := s.decode(resp.Body, c)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", c, err)
	}
	out := all[:0]
	for _, r := range all {
		if r.OwnerID != ownerID {
			s.log.Warn("dropping record owned by another user", "collection", c, "id", r.ID)
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Create stores a new record and returns it as the backend saved it.
func (s *Store) Create(ctx context.Context, c Collection, name string, t Table, ownerID, token string) (Record, error) {
	if err := checkCollection(c); err != nil {
		return Record{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, &ValidationError{Field: "name", Reason: "table name is required"}
	}
	resp, err := s.gw.Do(ctx, backend.Request{
		Op:         backend.OpCreate,
		Collection: string(c),
		Payload: map[string]any{
			s.schema.NameColumn:  name,
			s.schema.OwnerColumn: ownerID,
			s.schema.DataColumn:  t,
		},
		Token: token,
	})
	if err != nil {
		return Record{}, fmt.Errorf("create %s %q: %w", c, name, err)
	}
	rec, err := s.single(resp.Body, c)
	if err != nil {
		return Record{}, fmt.Errorf("create %s %q: %w", c, name, err)
	}
	s.log.Info("table created", "collection", c, "id", rec.ID, "rows", rec.Data.Len())
	return rec, nil
}

// Update replaces the record's data. Rows are not merged.
func (s *Store) Update(ctx context.Context, ref Ref, t Table, token string) (Record, error) {
	if err := checkCollection(ref.Collection); err != nil {
		return Record{}, err
	}
	resp, err := s.gw.Do(ctx, backend.Request{
		Op:         backend.OpUpdate,
		Collection: string(ref.Collection),
		Filter:     backend.Eq(idColumn, ref.ID),
		Payload:    map[string]any{s.schema.DataColumn: t},
		Token:      token,
	})
	if err != nil {
		return Record{}, fmt.Errorf("update %s: %w", ref, err)
	}
	rec, err := s.single(resp.Body, ref.Collection)
	if err != nil {
		return Record{}, fmt.Errorf("update %s: %w", ref, err)
	}
	s.log.Info("table updated", "ref", ref, "rows", rec.Data.Len())
	return rec, nil
}

// Delete removes the record permanently. When the response is lost in
// transit the store asks the backend whether the row still exists: a
// missing row means the delete went through.
func (s *Store) Delete(ctx context.Context, ref Ref, token string) error {
	if err := checkCollection(ref.Collection); err != nil {
		return err
	}
	attempt := uuid.NewString()
	_, err := s.gw.Do(ctx, backend.Request{
		Op:         backend.OpDelete,
		Collection: string(ref.Collection),
		Filter:     backend.Eq(idColumn, ref.ID),
		Token:      token,
		RequestID:  attempt,
	})
	if err == nil {
		s.log.Info("table deleted", "ref", ref, "request_id", attempt)
		return nil
	}
	var terr *backend.TransportError
	if !errors.As(err, &terr) {
		return fmt.Errorf("delete %s: %w", ref, err)
	}

	resp, lerr := s.gw.Do(ctx, backend.Request{
		Op:         backend.OpList,
		Collection: string(ref.Collection),
		Filter:     backend.Eq(idColumn, ref.ID),
		Token:      token,
	})
	if lerr != nil {
		s.log.Warn("could not reconcile delete", "ref", ref, "request_id", attempt, "err", lerr)
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	if gjson.ParseBytes(resp.Body).Get("#").Int() == 0 {
		s.log.Warn("deleted, response lost", "ref", ref, "request_id", attempt)
		return nil
	}
	return fmt.Errorf("delete %s: %w", ref, err)
}

// Listing is every record of one owner across both collections.
type Listing struct {
	Uploads []Record
	Manual  []Record
}

// ListAll fetches uploads, then manual tables.
func (s *Store) ListAll(ctx context.Context, ownerID, token string) (Listing, error) {
	up, err := s.List(ctx, Uploads, ownerID, token)
	if err != nil {
		return Listing{}, err
	}
	man, err := s.List(ctx, Manual, ownerID, token)
	if err != nil {
		return Listing{}, err
	}
	return Listing{Uploads: up, Manual: man}, nil
}

// All concatenates the listing in resolution order.
func (l Listing) All() []Record {
	out := make([]Record, 0, len(l.Uploads)+len(l.Manual))
	out = append(out, l.Uploads...)
	return append(out, l.Manual...)
}

// Resolve finds a record by name. Uploads are searched before manual
// tables, so an upload wins a name tie.
func (l Listing) Resolve(name string) (Record, bool) {
	for _, r := range l.All() {
		if r.Name == name {
			return r, true
		}
	}
	return Record{}, false
}

// Find looks a record up by reference.
func (l Listing) Find(ref Ref) (Record, bool) {
	for _, r := range l.All() {
		if r.Ref() == ref {
			return r, true
		}
	}
	return Record{}, false
}

// Len counts records in both collections.
func (l Listing) Len() int { return len(l.Uploads) + len(l.Manual) }

func (s *Store) decode(body []byte, c Collection) ([]Record, error) {
	arr := gjson.ParseBytes(body)
	if !arr.IsArray() {
		return nil, fmt.Errorf("expected array response")
	}
	var (
		out []Record
		err error
	)
	arr.ForEach(func(_, obj gjson.Result) bool {
		rec := Record{Collection: c}
		obj.ForEach(func(key, val gjson.Result) bool {
			switch key.String() {
			case idColumn:
				rec.ID = jsonutil.ToString(val.Value())
			case s.schema.NameColumn:
				rec.Name = val.String()
			case s.schema.OwnerColumn:
				rec.OwnerID = val.String()
			case s.schema.DataColumn:
				rec.Data, err = decodeTable(val)
			}
			return err == nil
		})
		if err != nil {
			err = fmt.Errorf("record %s: %w", rec.ID, err)
			return false
		}
		out = append(out, rec)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) single(body []byte, c Collection) (Record, error) {
	recs, err := s.decode(body, c)
	if err != nil {
		return Record{}, err
	}
	if len(recs) != 1 {
		return Record{}, fmt.Errorf("expected one record in response, got %d", len(recs))
	}
	return recs[0], nil
}
