package migrate

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"testing/fstest"

	_ "github.com/duckdb/duckdb-go/v2"
)

const latestVersion = 3

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunCreatesGDPSTables(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := NewRunner(db).Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for _, table := range []string{"accounts", "users", "levels", "songs", "acc_comments", "daily_features", "events", "suggest", "schema_migrations"} {
		var name string
		err := db.QueryRow("SELECT table_name FROM information_schema.tables WHERE table_name = ?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestSequencesAssignLevelIDs(t *testing.T) {
	db := openTestDB(t)
	if err := NewRunner(db).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var id int
	err := db.QueryRow("INSERT INTO levels (level_name, user_id, ext_id) VALUES ('a', 1, '1') RETURNING level_id").Scan(&id)
	if err != nil {
		t.Fatalf("insert level: %v", err)
	}
	if id != 1 {
		t.Errorf("first level_id = %d, want 1", id)
	}
}

func TestStatusBeforeAndAfterRun(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := NewRunner(db)

	st, err := r.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Current != 0 || st.Latest != latestVersion || len(st.Pending) != latestVersion {
		t.Errorf("before run: %+v", st)
	}
	if st.Pending[0] != "001_init.sql" {
		t.Errorf("first pending = %q", st.Pending[0])
	}

	for range 2 {
		if err := r.Run(ctx); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}
	st, err = r.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Current != latestVersion || len(st.Pending) != 0 {
		t.Errorf("after run: %+v", st)
	}
}

func TestRunRollsBackFailedMigration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := NewRunner(db)
	r.files = fstest.MapFS{
		"migrations/001_ok.sql":  {Data: []byte("CREATE TABLE ok_table (id INTEGER)")},
		"migrations/002_bad.sql": {Data: []byte("CREATE TABLE broken (")},
	}

	err := r.Run(ctx)
	if err == nil || !strings.Contains(err.Error(), "002_bad.sql") {
		t.Fatalf("Run err = %v, want failure naming 002_bad.sql", err)
	}
	st, err := r.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Current != 1 || len(st.Pending) != 1 {
		t.Errorf("status = %+v, want version 1 with one pending", st)
	}
}

func TestLoadRejectsDuplicateVersions(t *testing.T) {
	r := NewRunner(nil)
	r.files = fstest.MapFS{
		"migrations/001_a.sql": {Data: []byte("SELECT 1")},
		"migrations/001_b.sql": {Data: []byte("SELECT 1")},
	}
	if _, err := r.load(); err == nil {
		t.Fatal("expected duplicate version error")
	}
}

func TestWithRebindIsUsed(t *testing.T) {
	r := NewRunner(nil, WithRebind(func(q string) string {
		return strings.ReplaceAll(q, "?", "$x")
	}))
	if got := r.rebind("a = ?"); got != "a = $x" {
		t.Errorf("rebind = %q", got)
	}
}
