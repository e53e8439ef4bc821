package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
)

// userLog holds one user's turns. Each partition carries its own mutex so
// appends for different users never contend with each other.
type userLog struct {
	mu       sync.Mutex
	messages []*models.ConversationMessage
}

// InMemoryStore keeps conversation history in process memory, partitioned by
// user id. It is the default backend; history is lost on restart.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[string]*userLog
}

// NewInMemoryStore creates an empty in-memory conversation store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users: make(map[string]*userLog),
	}
}

// log returns the user's partition, creating it on first use.
func (s *InMemoryStore) log(userID string) *userLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.users[userID]
	if !ok {
		l = &userLog{}
		s.users[userID] = l
	}
	return l
}

// Append records one turn for msg.UserID.
func (s *InMemoryStore) Append(_ context.Context, msg *models.ConversationMessage) error {
	if msg == nil {
		return errors.New("message cannot be nil")
	}
	if msg.UserID == "" {
		return ErrEmptyUserID
	}

	stored := *msg
	if stored.Timestamp.IsZero() {
		stored.Timestamp = time.Now().UTC()
	}

	l := s.log(msg.UserID)
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = append(l.messages, &stored)
	return nil
}

// History returns the most recent limit turns in chronological order.
func (s *InMemoryStore) History(_ context.Context, userID string, limit int) ([]*models.ConversationMessage, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	s.mu.RLock()
	l, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return []*models.ConversationMessage{}, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	msgs := l.messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	out := make([]*models.ConversationMessage, 0, len(msgs))
	for _, m := range msgs {
		copied := *m
		out = append(out, &copied)
	}
	return out, nil
}

// Summary reports counts, first/last activity and agents used for the user.
func (s *InMemoryStore) Summary(_ context.Context, userID string) (*models.ConversationSummary, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}

	summary := &models.ConversationSummary{
		UserID:     userID,
		AgentsUsed: []string{},
	}

	s.mu.RLock()
	l, ok := s.users[userID]
	s.mu.RUnlock()
	if !ok {
		return summary, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	summary.MessageCount = len(l.messages)
	if len(l.messages) > 0 {
		first := l.messages[0].Timestamp
		last := l.messages[len(l.messages)-1].Timestamp
		summary.FirstMessage = &first
		summary.LastMessage = &last
	}

	seen := make(map[string]bool)
	for _, m := range l.messages {
		if m.AgentID == "" || seen[m.AgentID] {
			continue
		}
		seen[m.AgentID] = true
		summary.AgentsUsed = append(summary.AgentsUsed, m.AgentID)
	}
	return summary, nil
}

// Clear removes the user's entire history.
func (s *InMemoryStore) Clear(_ context.Context, userID string) error {
	if userID == "" {
		return ErrEmptyUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, userID)
	return nil
}

// PruneExpired deletes turns recorded before cutoff across all users.
func (s *InMemoryStore) PruneExpired(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for userID, l := range s.users {
		l.mu.Lock()
		kept := l.messages[:0]
		for _, m := range l.messages {
			if m.Timestamp.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, m)
		}
		l.messages = kept
		empty := len(l.messages) == 0
		l.mu.Unlock()

		if empty {
			delete(s.users, userID)
		}
	}
	return removed, nil
}

// PruneExcess trims every user's history to at most keep turns, oldest first.
func (s *InMemoryStore) PruneExcess(_ context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for userID, l := range s.users {
		l.mu.Lock()
		if excess := len(l.messages) - keep; excess > 0 {
			removed += int64(excess)
			l.messages = append([]*models.ConversationMessage(nil), l.messages[excess:]...)
		}
		empty := len(l.messages) == 0
		l.mu.Unlock()

		if empty {
			delete(s.users, userID)
		}
	}
	return removed, nil
}
