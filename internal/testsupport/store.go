package testsupport

import (
	"path/filepath"
	"testing"

	"k21/internal/records"
)

// MustOpenStore opens a records.Store in a temp directory and registers cleanup.
func MustOpenStore(t testing.TB) *records.Store {
	t.Helper()

	store, err := records.Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("records.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
