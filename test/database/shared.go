package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/northstar-pm/northstar/pkg/database"
	"github.com/northstar-pm/northstar/test/util"
)

// SharedTestDB is a single PostgreSQL schema shared by multiple test
// replicas. Each replica gets its own connection pools via NewClient, but
// all pools point to the same schema — enabling cross-replica tests that
// exercise PostgreSQL NOTIFY/LISTEN event delivery and SKIP LOCKED job
// claiming.
type SharedTestDB struct {
	connStrWithSchema string
	baseConnStr       string
}

// NewSharedTestDB creates a shared test schema and applies migrations once.
// The schema is dropped via t.Cleanup after the replicas' own cleanups
// (LIFO order guarantees the pools are closed first).
func NewSharedTestDB(t *testing.T) *SharedTestDB {
	t.Helper()

	baseConnStr := util.GetBaseConnectionString(t)
	connStrWithSchema := util.NewSchemaConnString(t)

	// Open and close one client to run the migrations; replicas connect to
	// an already-migrated schema (reapplication is a no-op anyway).
	client, err := database.NewClientFromConnString(context.Background(), connStrWithSchema)
	require.NoError(t, err)
	_ = client.Close()

	return &SharedTestDB{
		connStrWithSchema: connStrWithSchema,
		baseConnStr:       baseConnStr,
	}
}

// NewClient creates an independent *database.Client backed by fresh
// connection pools to the shared schema, so replicas can be shut down
// independently without races. Connections are closed via t.Cleanup.
func (s *SharedTestDB) NewClient(t *testing.T) *database.Client {
	t.Helper()

	client, err := database.NewClientFromConnString(context.Background(), s.connStrWithSchema)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

// ConnString returns the schema-scoped connection string, for code that
// needs a dedicated connection (e.g. the NOTIFY listener).
func (s *SharedTestDB) ConnString() string {
	return s.connStrWithSchema
}
