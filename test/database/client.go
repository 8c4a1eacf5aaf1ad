// Package database provides database.Client construction helpers for tests.
package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/northstar-pm/northstar/pkg/database"
	"github.com/northstar-pm/northstar/test/util"
)

// NewTestClient creates a test database client on its own isolated schema,
// with embedded migrations applied.
// In CI (when CI_DATABASE_URL is set): connects to the external PostgreSQL
// service container. In local dev: uses a shared testcontainer started once
// per package. Schema and connections are cleaned up when the test ends.
func NewTestClient(t *testing.T) *database.Client {
	t.Helper()

	connStr := util.NewSchemaConnString(t)

	client, err := database.NewClientFromConnString(context.Background(), connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}
