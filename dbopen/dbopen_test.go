package dbopen

import (
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestOpenMemory(t *testing.T) {
	db := OpenMemory(t, WithSchema(`CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`))

	if _, err := db.Exec(`INSERT INTO kv (k, v) VALUES ('a', 'b')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var v string
	if err := db.QueryRow(`SELECT v FROM kv WHERE k = 'a'`).Scan(&v); err != nil {
		t.Fatalf("select: %v", err)
	}
	if v != "b" {
		t.Fatalf("got %q, want b", v)
	}
}

func TestOpenMkdirAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")

	db, err := Open(path, WithMkdirAll())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("database file not created: %v", err)
	}
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.db")

	db, err := Open(path, WithSchema(`CREATE TABLE t (x INTEGER)`))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO t (x) VALUES (1)`); err != nil {
		t.Fatalf("seed: %v", err)
	}
	db.Close()

	ro, err := Open(path, ReadOnly())
	if err != nil {
		t.Fatalf("Open read-only: %v", err)
	}
	defer ro.Close()

	var x int
	if err := ro.QueryRow(`SELECT x FROM t`).Scan(&x); err != nil {
		t.Fatalf("read-only select: %v", err)
	}
	if x != 1 {
		t.Fatalf("got %d, want 1", x)
	}
	if _, err := ro.Exec(`INSERT INTO t (x) VALUES (2)`); err == nil {
		t.Fatal("expected write to fail on read-only handle")
	}
}

func TestOpenMissingFileImmutable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")
	if _, err := Open(path, Immutable()); err == nil {
		t.Fatal("expected error opening a missing file read-only")
	}
}
