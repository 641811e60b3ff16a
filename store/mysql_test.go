package store

import (
	"os"
	"testing"
)

// TestMySQLStore runs the conformance suite against a real MySQL server.
// Set STP_MYSQL_DSN to enable, e.g.
//
//	STP_MYSQL_DSN="root:secret@tcp(127.0.0.1:3306)/stp_test?parseTime=true"
func TestMySQLStore(t *testing.T) {
	dsn := os.Getenv("STP_MYSQL_DSN")
	if dsn == "" {
		t.Skip("STP_MYSQL_DSN not set; skipping MySQL integration test")
	}
	testStore(t, func(t *testing.T) Store {
		s, err := NewMySQLStore(dsn)
		if err != nil {
			t.Fatalf("NewMySQLStore: %v", err)
		}
		return s
	})
}
