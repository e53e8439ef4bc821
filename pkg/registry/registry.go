// Package registry is the single source of truth for which worker agents
// exist, what parameters they require, and their last known health.
package registry

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
)

// FallbackAgentID is the general-purpose agent used when no specialist
// matches, or when an unknown agent id has to be substituted.
const FallbackAgentID = "gemini_wrapper_agent"

// agentAliases maps historical or shorthand ids to canonical registry ids.
// Normalization happens here so downstream components never see an
// unnormalized id.
var agentAliases = map[string]string{
	"gemini-wrapper": FallbackAgentID,
	"gemini_wrapper": FallbackAgentID,
}

// requiredParams lists the parameters each agent cannot work without.
// Descriptors may override this in the registry file; these are the
// built-in values for the known fleet. Agents not listed here require
// nothing.
var requiredParams = map[string][]string{
	"adaptive_quiz_master_agent":  {"topic", "num_questions"},
	"research_scout_agent":        {"topic"},
	"assignment_coach_agent":      {"task_description"},
	"plagiarism_prevention_agent": {"text_content"},
	"peer_collaboration_agent":    {"team_members", "discussion_logs"},
	"exam_readiness_agent":        {"subject", "assessment_type", "difficulty", "question_count"},
}

// NormalizeID maps known aliases to canonical agent ids and trims
// surrounding whitespace. Unknown ids pass through unchanged.
func NormalizeID(agentID string) string {
	id := strings.TrimSpace(agentID)
	if canonical, ok := agentAliases[id]; ok {
		return canonical
	}
	return id
}

// RequiredParamsFor returns the built-in required parameter list for an
// agent id, after alias normalization. Unknown agents require nothing.
func RequiredParamsFor(agentID string) []string {
	params := requiredParams[NormalizeID(agentID)]
	return append([]string(nil), params...)
}

// Registry holds the loaded agent descriptors and their runtime status.
// Reads dominate; status writes come only from the health prober and the
// dispatcher on transport failure.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]*models.AgentDescriptor
}

// New builds a registry from loaded descriptors. Descriptors without an
// explicit required_params list get the built-in defaults for their id.
func New(descriptors []*models.AgentDescriptor) *Registry {
	agents := make(map[string]*models.AgentDescriptor, len(descriptors))
	for _, d := range descriptors {
		cp := d.Clone()
		cp.ID = NormalizeID(cp.ID)
		if cp.RequiredParams == nil {
			cp.RequiredParams = RequiredParamsFor(cp.ID)
		}
		if cp.Status == "" {
			cp.Status = models.AgentStatusUnknown
		}
		agents[cp.ID] = cp
	}
	return &Registry{agents: agents}
}

// Get returns a copy of the descriptor for the given id, accepting known
// aliases, or false if the agent is not registered.
func (r *Registry) Get(agentID string) (*models.AgentDescriptor, bool) {
	id := NormalizeID(agentID)

	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.agents[id]
	if !ok {
		return nil, false
	}
	return d.Clone(), true
}

// List returns copies of all descriptors sorted by id.
func (r *Registry) List() []*models.AgentDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.AgentDescriptor, 0, len(r.agents))
	for _, d := range r.agents {
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID < out[j].ID
	})
	return out
}

// IDs returns all registered agent ids sorted alphabetically.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.agents))
	for id := range r.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Status returns the cached status for an agent, or unknown for
// unregistered ids.
func (r *Registry) Status(agentID string) models.AgentStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.agents[NormalizeID(agentID)]; ok {
		return d.Status
	}
	return models.AgentStatusUnknown
}

// SetStatus updates the cached status and check time for an agent.
// It returns the previous status and whether the value changed, so
// callers can publish transitions. Unknown ids are ignored.
func (r *Registry) SetStatus(agentID string, status models.AgentStatus) (old models.AgentStatus, changed bool) {
	id := NormalizeID(agentID)

	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.agents[id]
	if !ok {
		return models.AgentStatusUnknown, false
	}
	old = d.Status
	d.Status = status
	d.LastChecked = time.Now().UTC()
	return old, old != status
}
