package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/CosmoTheDev/repogate/internal/config"
)

type approvalRow struct {
	ID         int64  `db:"id"`
	RepoName   string `db:"repo_name"`
	ApprovedBy string `db:"approved_by"`
	CreatedAt  string `db:"created_at"`
}

func newTestDB(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := NewSQLite(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestInsertGetSelect(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	id, err := db.Insert(ctx, "approvals", approvalRow{
		RepoName:   "testrepo",
		ApprovedBy: "operator",
		CreatedAt:  "2026-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if id == 0 {
		t.Fatal("insert returned zero id")
	}

	var got approvalRow
	err = db.Get(ctx, &got,
		`SELECT id, repo_name, approved_by, created_at FROM approvals WHERE repo_name = ?`, "testrepo")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ApprovedBy != "operator" {
		t.Errorf("approved_by = %q, want operator", got.ApprovedBy)
	}

	var all []approvalRow
	if err := db.Select(ctx, &all, `SELECT id, repo_name, approved_by, created_at FROM approvals`); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("select returned %d rows, want 1", len(all))
	}
}

func TestUpsertReplaces(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec := approvalRow{RepoName: "dup", ApprovedBy: "first", CreatedAt: "2026-01-01T00:00:00Z"}
	if err := db.Upsert(ctx, "approvals", rec, []string{"repo_name"}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	rec.ApprovedBy = "second"
	if err := db.Upsert(ctx, "approvals", rec, []string{"repo_name"}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	var all []approvalRow
	if err := db.Select(ctx, &all, `SELECT id, repo_name, approved_by, created_at FROM approvals WHERE repo_name = ?`, "dup"); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("upsert produced %d rows, want 1", len(all))
	}
	if all[0].ApprovedBy != "second" {
		t.Errorf("approved_by = %q, want second", all[0].ApprovedBy)
	}
}
