package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kritdbb/DobyHR/internal/ir"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestUser inserts a user with the given id and name.
func createTestUser(t *testing.T, s *Store, id int64, name string) ir.User {
	t.Helper()
	u := ir.User{ID: id, Name: name}
	_, err := s.CreateUser(context.Background(), u)
	require.NoError(t, err)
	return u
}

func int64Ptr(v int64) *int64 { return &v }
