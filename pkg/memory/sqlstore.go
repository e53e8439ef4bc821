package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
)

// SQLStore persists conversation history in the supervisor's SQLite
// database. Each user's turns carry a per-user sequence number allocated
// inside the append transaction, so ordering survives restarts and clock
// adjustments.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore creates a store on top of an already migrated database handle.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Append records one turn for msg.UserID.
func (s *SQLStore) Append(ctx context.Context, msg *models.ConversationMessage) (err error) {
	if msg == nil {
		return errors.New("message cannot be nil")
	}
	if msg.UserID == "" {
		return ErrEmptyUserID
	}

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	// Timestamps are stored in UTC so the retention cutoff comparison in
	// PruneExpired stays a plain column comparison.
	ts = ts.UTC()

	var intentJSON sql.NullString
	if len(msg.IntentInfo) > 0 {
		raw, merr := json.Marshal(msg.IntentInfo)
		if merr != nil {
			return fmt.Errorf("failed to marshal intent info: %w", merr)
		}
		intentJSON = sql.NullString{String: string(raw), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var seq int64
	if err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM conversation_messages WHERE user_id = ?`,
		msg.UserID,
	).Scan(&seq); err != nil {
		return fmt.Errorf("failed to get next sequence number: %w", err)
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO conversation_messages (user_id, seq, role, content, agent_id, intent_info, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		msg.UserID, seq, string(msg.Role), msg.Content, msg.AgentID, intentJSON, ts,
	); err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// History returns the most recent limit turns in chronological order.
func (s *SQLStore) History(ctx context.Context, userID string, limit int) ([]*models.ConversationMessage, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	query := `
SELECT role, content, agent_id, intent_info, created_at
FROM conversation_messages
WHERE user_id = ?
ORDER BY seq ASC
`
	args := []any{userID}

	if limit > 0 {
		// Take the newest rows first, then restore chronological order.
		query = `
SELECT role, content, agent_id, intent_info, created_at FROM (
    SELECT role, content, agent_id, intent_info, created_at, seq
    FROM conversation_messages
    WHERE user_id = ?
    ORDER BY seq DESC
    LIMIT ?
) sub ORDER BY seq ASC
`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	messages := []*models.ConversationMessage{}
	for rows.Next() {
		var (
			role       string
			content    string
			agentID    string
			intentJSON sql.NullString
			createdAt  time.Time
		)
		if err := rows.Scan(&role, &content, &agentID, &intentJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}

		msg := &models.ConversationMessage{
			UserID:    userID,
			Role:      models.Role(role),
			Content:   content,
			AgentID:   agentID,
			Timestamp: createdAt,
		}
		if intentJSON.Valid {
			if err := json.Unmarshal([]byte(intentJSON.String), &msg.IntentInfo); err != nil {
				return nil, fmt.Errorf("failed to unmarshal intent info: %w", err)
			}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return messages, nil
}

// Summary reports counts, first/last activity and agents used for the user.
func (s *SQLStore) Summary(ctx context.Context, userID string) (*models.ConversationSummary, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	summary := &models.ConversationSummary{
		UserID:     userID,
		AgentsUsed: []string{},
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversation_messages WHERE user_id = ?`,
		userID,
	).Scan(&summary.MessageCount); err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}
	if summary.MessageCount == 0 {
		return summary, nil
	}

	// MIN/MAX aggregates lose the column's declared type, which breaks the
	// driver's timestamp conversion, so bounds are read row-wise instead.
	var first, last time.Time
	if err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM conversation_messages WHERE user_id = ? ORDER BY seq ASC LIMIT 1`,
		userID,
	).Scan(&first); err != nil {
		return nil, fmt.Errorf("failed to query first message time: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM conversation_messages WHERE user_id = ? ORDER BY seq DESC LIMIT 1`,
		userID,
	).Scan(&last); err != nil {
		return nil, fmt.Errorf("failed to query last message time: %w", err)
	}
	summary.FirstMessage = &first
	summary.LastMessage = &last

	rows, err := s.db.QueryContext(ctx,
		`SELECT agent_id FROM conversation_messages
		 WHERE user_id = ? AND agent_id != ''
		 GROUP BY agent_id
		 ORDER BY MIN(seq)`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query agents used: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var agentID string
		if err := rows.Scan(&agentID); err != nil {
			return nil, fmt.Errorf("failed to scan agent id: %w", err)
		}
		summary.AgentsUsed = append(summary.AgentsUsed, agentID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agents: %w", err)
	}
	return summary, nil
}

// Clear removes the user's entire history.
func (s *SQLStore) Clear(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}

	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM conversation_messages WHERE user_id = ?`,
		userID,
	); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// PruneExpired deletes turns recorded before cutoff across all users.
func (s *SQLStore) PruneExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversation_messages WHERE created_at < ?`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune expired messages: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned messages: %w", err)
	}
	return removed, nil
}

// PruneExcess trims every user's history to at most keep turns, oldest first.
func (s *SQLStore) PruneExcess(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversation_messages
		 WHERE seq <= (
		     SELECT MAX(seq) - ? FROM conversation_messages newer
		     WHERE newer.user_id = conversation_messages.user_id
		 )`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune excess messages: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned messages: %w", err)
	}
	return removed, nil
}
