package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

func openMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err != nil {
		t.Fatalf("sqlite_master query: %v", err)
	}
	return n == 1
}

func TestInitSchema_Fresh(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)

	if err := InitSchema(ctx, db); err != nil {
		t.Fatalf("InitSchema() error = %v", err)
	}
	for _, table := range []string{"schema_version", "session_state", "pass_history"} {
		if !tableExists(t, db, table) {
			t.Errorf("table %s missing", table)
		}
	}
	v, err := schemaVersion(ctx, db)
	if err != nil {
		t.Fatalf("schemaVersion() error = %v", err)
	}
	if v != SchemaVersion {
		t.Errorf("schema version = %d, want %d", v, SchemaVersion)
	}
}

func TestInitSchema_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)

	for i := 0; i < 3; i++ {
		if err := InitSchema(ctx, db); err != nil {
			t.Fatalf("InitSchema() run %d error = %v", i, err)
		}
	}
	var rows int
	if err := db.QueryRow(`SELECT COUNT(*) FROM schema_version`).Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Errorf("schema_version rows = %d, want 1", rows)
	}
}

func TestValidateIntegrity(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)
	if err := InitSchema(ctx, db); err != nil {
		t.Fatal(err)
	}
	if err := ValidateIntegrity(ctx, db); err != nil {
		t.Errorf("ValidateIntegrity() error = %v", err)
	}
}

func TestInitSchema_EmptyDatabaseIsVersionZero(t *testing.T) {
	v, err := schemaVersion(context.Background(), openMemoryDB(t))
	if err != nil {
		t.Fatalf("schemaVersion() error = %v", err)
	}
	if v != 0 {
		t.Errorf("schemaVersion() = %d, want 0", v)
	}
}

func TestInitSchema_RejectsNewerVersion(t *testing.T) {
	ctx := context.Background()
	db := openMemoryDB(t)
	if err := InitSchema(ctx, db); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO schema_version VALUES (?, 'now')`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}
	err := InitSchema(ctx, db)
	if err == nil || !strings.Contains(err.Error(), "newer than supported") {
		t.Errorf("InitSchema() error = %v, want newer-version error", err)
	}
}
