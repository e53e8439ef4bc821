package dispatch

import (
	"sync"
	"time"
)

// maxDebugBody caps how much of a worker response the debug store keeps.
const maxDebugBody = 64 * 1024

// DebugEntry is the last raw response captured from one agent.
type DebugEntry struct {
	AgentID    string    `json:"agent_id"`
	StatusCode int       `json:"status_code"`
	Body       string    `json:"body"`
	CapturedAt time.Time `json:"captured_at"`
}

// DebugStore keeps the last raw response per agent for the debug
// endpoint. Bounded to one entry per agent, last write wins.
type DebugStore struct {
	mu      sync.RWMutex
	entries map[string]DebugEntry
}

func NewDebugStore() *DebugStore {
	return &DebugStore{entries: make(map[string]DebugEntry)}
}

// Record stores the response body for agentID, truncated to the store's
// per-entry cap.
func (s *DebugStore) Record(agentID string, statusCode int, body []byte) {
	if len(body) > maxDebugBody {
		body = body[:maxDebugBody]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[agentID] = DebugEntry{
		AgentID:    agentID,
		StatusCode: statusCode,
		Body:       string(body),
		CapturedAt: time.Now().UTC(),
	}
}

// Get returns the last captured entry for agentID.
func (s *DebugStore) Get(agentID string) (DebugEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[agentID]
	return entry, ok
}

// All returns a copy of every captured entry keyed by agent id.
func (s *DebugStore) All() map[string]DebugEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]DebugEntry, len(s.entries))
	for agentID, entry := range s.entries {
		out[agentID] = entry
	}
	return out
}
