package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient opens a throwaway SQLite database with migrations applied.
func newTestClient(t *testing.T) *Client {
	t.Helper()

	path := filepath.Join(t.TempDir(), "supervisor.db")
	client, err := NewClient(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, client.Close())
	})
	return client
}

func TestNewClientCreatesSchemaAndDirectories(t *testing.T) {
	// Nested directory that does not exist yet.
	path := filepath.Join(t.TempDir(), "data", "nested", "supervisor.db")
	client, err := NewClient(context.Background(), path)
	require.NoError(t, err)
	defer client.Close()

	var name string
	err = client.DB().QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name='conversation_messages'`,
	).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "conversation_messages", name)
}

func TestNewClientIdempotentMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supervisor.db")

	client, err := NewClient(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	// Reopening the same file must not fail on already-applied migrations.
	client, err = NewClient(context.Background(), path)
	require.NoError(t, err)
	defer client.Close()

	_, err = client.DB().Exec(
		`INSERT INTO conversation_messages (user_id, seq, role, content, created_at)
		 VALUES ('u1', 1, 'user', 'hello', CURRENT_TIMESTAMP)`)
	require.NoError(t, err)
}

func TestConversationMessagesUniqueSeqPerUser(t *testing.T) {
	client := newTestClient(t)

	insert := `INSERT INTO conversation_messages (user_id, seq, role, content, created_at)
	           VALUES (?, ?, 'user', 'hi', CURRENT_TIMESTAMP)`

	_, err := client.DB().Exec(insert, "u1", 1)
	require.NoError(t, err)

	// Same seq for a different user is fine.
	_, err = client.DB().Exec(insert, "u2", 1)
	require.NoError(t, err)

	// Duplicate (user_id, seq) violates the unique constraint.
	_, err = client.DB().Exec(insert, "u1", 1)
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	client := newTestClient(t)

	status, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", status.Status)
	assert.GreaterOrEqual(t, status.ResponseTime, int64(0))
}

func TestHealthAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "supervisor.db")
	client, err := NewClient(context.Background(), path)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	status, err := client.Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, "unhealthy", status.Status)
}
