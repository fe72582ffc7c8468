package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t testing.TB) *Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})
	return db
}

func TestNewCreatesSchema(t *testing.T) {
	db := setupTestDB(t)

	// Both tables should be queryable immediately
	if _, err := db.GetJob(context.Background(), "missing"); !errors.Is(err, ErrJobNotFound) {
		t.Errorf("GetJob on fresh schema: error = %v, want ErrJobNotFound", err)
	}
	if r, err := db.GetRendition(context.Background(), "m1", "720p"); err != nil || r != nil {
		t.Errorf("GetRendition on fresh schema = (%v, %v), want (nil, nil)", r, err)
	}
}

func TestPing(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewBadPath(t *testing.T) {
	_, err := New(context.Background(), "/nonexistent/dir/test.db")
	if err == nil {
		t.Error("New with unreachable path should return an error")
	}
}

func TestRecordQuery(t *testing.T) {
	// Must not panic for any combination
	recordQuery("test_operation", time.Now(), nil)
	recordQuery("test_operation", time.Now(), errors.New("test error"))
	recordQuery("", time.Now(), nil)
}

func TestJobStatusTerminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status JobStatus
		want   bool
	}{
		{JobPending, false},
		{JobProcessing, false},
		{JobCompleted, true},
		{JobFailed, true},
	}

	for _, tt := range tests {
		if got := tt.status.Terminal(); got != tt.want {
			t.Errorf("%s.Terminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}
