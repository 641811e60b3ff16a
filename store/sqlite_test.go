package store

import (
	"path/filepath"
	"testing"
)

func TestSQLiteStore(t *testing.T) {
	testStore(t, func(t *testing.T) Store {
		s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "stp.db"))
		if err != nil {
			t.Fatalf("NewSQLiteStore: %v", err)
		}
		return s
	})
}
