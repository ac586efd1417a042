// Package testutil builds throwaway JS/TS projects for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Project creates a temporary root holding files, keyed by slash path.
func Project(t testing.TB, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, body := range files {
		WriteFile(t, filepath.Join(root, filepath.FromSlash(rel)), body)
	}
	return root
}

// WriteFile writes body to path, creating parent directories.
func WriteFile(t testing.TB, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

// ReadFile returns the contents of path.
func ReadFile(t testing.TB, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}
