// Package testutil provides shared test fixtures.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/koren85/mstopostgres-sub000/internal/storage"
)

// SetupTestDB creates a migrated in-memory SQLite store that is closed
// when the test finishes.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err, "failed to open test database")

	require.NoError(t, store.Migrate(context.Background()), "failed to migrate test database")

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}

// ClearRules deletes every transfer rule, including the seeded baseline
// set, so a test can install exactly the rules it needs.
func ClearRules(t *testing.T, store *storage.SQLiteStorage) {
	t.Helper()

	ctx := context.Background()
	rules, err := store.GetRulesOrderedByPriority(ctx)
	require.NoError(t, err)
	for _, rule := range rules {
		require.NoError(t, store.DeleteRule(ctx, rule.ID))
	}
}
