package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/northstar-pm/northstar/pkg/database"
	testdb "github.com/northstar-pm/northstar/test/database"
)

// newTestDB creates a migrated database client on an isolated schema.
// One schema per test function; subtests share it.
func newTestDB(t *testing.T) *database.Client {
	t.Helper()
	return testdb.NewTestClient(t)
}

// createTestProduct inserts a product row and returns its ID.
func createTestProduct(t *testing.T, client *database.Client, userID string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := client.DB().Exec(
		`INSERT INTO products (id, user_id, name, metadata) VALUES ($1, $2, $3, $4::jsonb)`,
		id, userID, "Test Product", `{"segment":"smb"}`)
	require.NoError(t, err)
	return id
}

// createPhaseSubmission inserts a submission row for a built-in phase.
func createPhaseSubmission(t *testing.T, client *database.Client, productID, phaseID, formJSON, generated, status string) {
	t.Helper()
	_, err := client.DB().Exec(
		`INSERT INTO phase_submissions (product_id, phase_id, form_data, generated_content, status)
		VALUES ($1, $2, NULLIF($3, '')::jsonb, NULLIF($4, ''), $5)`,
		productID, phaseID, formJSON, generated, status)
	require.NoError(t, err)
}
