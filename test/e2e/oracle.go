package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/llm"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
)

// OracleScriptEntry defines a single scripted oracle reply.
type OracleScriptEntry struct {
	Text string // raw completion text (JSON, possibly fenced)
	Err  error  // return error from Generate() instead
}

// ScriptedOracle implements intent.Generator with a fixed reply script,
// consumed in call order. Calls past the end of the script fail loudly so
// a test that routes more often than it scripted shows up immediately.
type ScriptedOracle struct {
	mu       sync.Mutex
	script   []OracleScriptEntry
	index    int
	captured [][]llm.Message
}

// NewScriptedOracle creates an empty oracle; add replies before use.
func NewScriptedOracle() *ScriptedOracle {
	return &ScriptedOracle{}
}

// Add appends a raw completion text to the script.
func (o *ScriptedOracle) Add(text string) *ScriptedOracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.script = append(o.script, OracleScriptEntry{Text: text})
	return o
}

// AddError appends a failing call to the script. The identifier reacts by
// falling back to keyword routing.
func (o *ScriptedOracle) AddError(err error) *ScriptedOracle {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.script = append(o.script, OracleScriptEntry{Err: err})
	return o
}

// Generate implements intent.Generator.
func (o *ScriptedOracle) Generate(_ context.Context, messages []llm.Message) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.captured = append(o.captured, messages)
	if o.index >= len(o.script) {
		return "", fmt.Errorf("oracle script exhausted after %d calls", len(o.script))
	}
	entry := o.script[o.index]
	o.index++
	if entry.Err != nil {
		return "", entry.Err
	}
	return entry.Text, nil
}

// Calls reports how many times Generate was invoked.
func (o *ScriptedOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.captured)
}

// Captured returns the conversations handed to Generate, in call order.
func (o *ScriptedOracle) Captured() [][]llm.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([][]llm.Message, len(o.captured))
	copy(out, o.captured)
	return out
}

// ────────────────────────────────────────────────────────────
// Reply builders
// ────────────────────────────────────────────────────────────

// readyReply builds a READY_TO_ROUTE classification the way the oracle
// emits it.
func readyReply(agentID string, confidence float64, params map[string]interface{}) string {
	return readyReplyWithAlternatives(agentID, confidence, params)
}

// readyReplyWithAlternatives is readyReply plus suggested alternates.
func readyReplyWithAlternatives(agentID string, confidence float64, params map[string]interface{}, alternatives ...string) string {
	if params == nil {
		params = map[string]interface{}{}
	}
	reply := map[string]interface{}{
		"status":           models.IntentStatusReadyToRoute,
		"agent_id":         agentID,
		"confidence":       confidence,
		"reasoning":        "Request matches the agent's capabilities.",
		"extracted_params": params,
	}
	if len(alternatives) > 0 {
		reply["alternative_agents"] = alternatives
	}
	return mustJSON(reply)
}

// clarifyReply builds a CLARIFICATION_NEEDED classification with the
// given questions.
func clarifyReply(questions ...string) string {
	return mustJSON(map[string]interface{}{
		"status":               models.IntentStatusClarificationNeeded,
		"confidence":           0.2,
		"reasoning":            "The request does not name a task or subject.",
		"clarifying_questions": questions,
	})
}

func mustJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}
