package migrate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authbridge/relying-party/internal/migrate"
	"github.com/authbridge/relying-party/internal/testutil"
)

func TestRun_AppliesSchemaAndIsIdempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	// SetupTestDB already applied the migrations; a second run must be a
	// no-op rather than a duplicate-object failure.
	require.NoError(t, migrate.Run(ctx, db))

	var applied int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	assert.Positive(t, applied)

	for _, table := range []string{"accounts", "audits"} {
		var exists bool
		require.NoError(t, db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_name = $1)`,
			table).Scan(&exists))
		assert.True(t, exists, "table %s should exist", table)
	}
}
