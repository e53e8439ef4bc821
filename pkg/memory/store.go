// Package memory provides conversation history storage for the supervisor.
//
// Two backends implement the same Store contract: an in-memory store used
// by default and a SQLite-backed store for deployments that need history to
// survive restarts. The orchestrator only ever talks to the Store interface,
// so backends can be swapped through configuration alone.
package memory

import (
	"context"
	"errors"
	"time"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
)

// ErrEmptyUserID is returned when an operation is called without a user id.
var ErrEmptyUserID = errors.New("user id cannot be empty")

// Store is the conversation memory contract used by the orchestrator.
//
// Appends from a single user are serialized by the implementation; reads may
// briefly trail a concurrent append but never observe partial messages.
type Store interface {
	// Append records one conversation turn for msg.UserID. A zero
	// timestamp is replaced with the current UTC time.
	Append(ctx context.Context, msg *models.ConversationMessage) error

	// History returns the most recent limit turns for the user in
	// chronological order. limit <= 0 returns the full history. Unknown
	// users yield an empty slice, not an error.
	History(ctx context.Context, userID string, limit int) ([]*models.ConversationMessage, error)

	// Summary reports message count, first/last activity and the distinct
	// agents involved (in order of first use) for the user.
	Summary(ctx context.Context, userID string) (*models.ConversationSummary, error)

	// Clear removes the user's entire history. Clearing an unknown user
	// is a no-op.
	Clear(ctx context.Context, userID string) error
}

// Pruner is implemented by stores that support retention enforcement. The
// cleanup sweeper drives these; request handling never calls them.
type Pruner interface {
	// PruneExpired deletes turns recorded before cutoff across all users
	// and reports how many were removed.
	PruneExpired(ctx context.Context, cutoff time.Time) (int64, error)

	// PruneExcess trims every user's history to at most keep turns,
	// evicting oldest first, and reports how many were removed.
	PruneExcess(ctx context.Context, keep int) (int64, error)
}
