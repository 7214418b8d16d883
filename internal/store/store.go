// Package store persists admission pipeline state: integration reports,
// clones, installs, wrappers, approvals, scan results and the event log.
// All access goes through the database.DB interface so the pipeline can be
// exercised against sqlite in tests and mysql in shared deployments.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/CosmoTheDev/repogate/internal/database"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

type Store struct {
	db database.DB
}

func New(db database.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

const timeLayout = time.RFC3339

func now() string {
	return time.Now().UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// marshal renders v as JSON for a TEXT column. Nil pointers become the
// empty string so absent sub-results stay distinguishable from zero values.
func marshal(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func unmarshal[T any](raw string) *T {
	if raw == "" || raw == "null" {
		return nil
	}
	out := new(T)
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return nil
	}
	return out
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
