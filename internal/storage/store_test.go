package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/pr-style-reviewer/internal/analysis"
)

func sampleReview() analysis.FileReview {
	return analysis.FileReview{
		Filename:   "app/models/user.rb",
		RevisionID: "abc123",
		Language:   "ruby",
		Violations: []analysis.Violation{
			{Filename: "app/models/user.rb", Line: 3, Position: 4, RuleID: "trailing-whitespace", Message: "Trailing whitespace detected.", RevisionID: "abc123"},
			{Filename: "app/models/user.rb", Line: 1, Position: 2, RuleID: "string-literals", Message: "Prefer double-quoted strings.", RevisionID: "abc123"},
		},
	}
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	id, err := store.UpsertPullRequest(ctx, "acme/demo", 7, "abc123", "Add users", StatusAnalyzing)
	require.NoError(t, err)

	again, err := store.UpsertPullRequest(ctx, "acme/demo", 7, "def456", "Add users", StatusAnalyzing)
	require.NoError(t, err)
	assert.Equal(t, id, again)

	sink := NewSink(store, id)
	require.NoError(t, sink.Record(ctx, sampleReview()))

	violations, err := store.Violations(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sampleReview().Violations, violations)

	require.NoError(t, store.UpdatePullRequestStatus(ctx, id, StatusCompleted))
	assert.ErrorIs(t, store.UpdatePullRequestStatus(ctx, id+100, StatusCompleted), ErrNotFound)

	require.NoError(t, store.ClearViolations(ctx, id))
	violations, err = store.Violations(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	exerciseStore(t, store)
	require.NoError(t, store.Close())
}

func TestMemoryStoreStatus(t *testing.T) {
	store := NewMemoryStore()
	id, err := store.UpsertPullRequest(context.Background(), "acme/demo", 1, "sha", "", StatusAnalyzing)
	require.NoError(t, err)
	require.NoError(t, store.UpdatePullRequestStatus(context.Background(), id, StatusFailed))

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Contains(t, store.pulls, "acme/demo#1")
	assert.Equal(t, StatusFailed, store.pulls["acme/demo#1"].Status)
}

func TestSQLiteStore(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "reviews.db") + "?_foreign_keys=on"
	store, err := NewStore(context.Background(), "sqlite3", dsn)
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestNewStoreRejectsUnknownDriver(t *testing.T) {
	_, err := NewStore(context.Background(), "mysql", "user@/db")
	assert.Error(t, err)
}

func TestNewStoreWithoutDSNIsMemory(t *testing.T) {
	store, err := NewStore(context.Background(), "postgres", "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)
}
