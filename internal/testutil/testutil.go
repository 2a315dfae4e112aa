// Package testutil provides shared test helpers for backends and stores.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/auw/internal/kv"
)

// SQLiteBackend opens a SQLite key-value backend in a temporary directory
// that is closed automatically.
func SQLiteBackend(t *testing.T) kv.Backend {
	t.Helper()
	b, err := kv.OpenSQLite(filepath.Join(t.TempDir(), "auw-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

// FSBackend creates a temporary directory backed by kv.NewFS.
func FSBackend(t *testing.T) (string, kv.Backend) {
	t.Helper()
	dir := t.TempDir()
	b, err := kv.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, b
}

// Seed writes value under key, failing the test on error.
func Seed(t *testing.T, b kv.Backend, key, value string) {
	t.Helper()
	if err := b.SetItem(context.Background(), key, value); err != nil {
		t.Fatalf("seed %s: %v", key, err)
	}
}

// Item reads key, failing the test when it is absent.
func Item(t *testing.T, b kv.Backend, key string) string {
	t.Helper()
	v, ok, err := b.GetItem(context.Background(), key)
	if err != nil {
		t.Fatalf("get %s: %v", key, err)
	}
	if !ok {
		t.Fatalf("key %s not set", key)
	}
	return v
}

// Eventually polls cond until it returns true or the timeout elapses.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before timeout")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
