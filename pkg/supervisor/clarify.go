package supervisor

import (
	"encoding/json"
	"fmt"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
)

const clarificationMessage = "I need a bit more information to help you better."

// clarificationSuggestions ride along on every clarification envelope to
// help the user phrase a routable request.
func clarificationSuggestions() []string {
	return []string{
		"Please be more specific about what you need",
		"Try mentioning the subject or topic you're working on",
		"Let me know what type of help you're looking for",
	}
}

// clarificationEnvelope wraps an ambiguous identification result for the
// caller. The keyword fallback never produces questions, so the list may
// legitimately be empty.
func (s *Supervisor) clarificationEnvelope(res *models.IntentResult, clarifications int) *models.ClarificationEnvelope {
	questions := res.ClarifyingQuestions
	if questions == nil {
		questions = []string{}
	}
	return &models.ClarificationEnvelope{
		Status:              models.ClarificationStatus,
		Message:             clarificationMessage,
		Response:            clarificationMessage,
		ClarifyingQuestions: questions,
		IntentInfo:          intentInfo(res),
		Suggestions:         clarificationSuggestions(),
		ClarificationCount:  clarifications + 1,
		MaxClarifications:   s.config.MaxClarifications,
	}
}

// workerClarification converts a CLARIFICATION_NEEDED dispatch result into
// the same envelope shape the supervisor produces itself. The response
// text spells out the worker's example or required format when one was
// provided.
func (s *Supervisor) workerClarification(resp *models.RequestResponse, res *models.IntentResult, clarifications int) *models.ClarificationEnvelope {
	details := resp.Error.Details
	questions := stringList(details["clarifying_questions"])
	example := stringify(details["example"])
	format := stringify(details["required_format"])

	base := resp.Error.Message
	if base == "" {
		base = "I need more information to proceed."
	}
	text := base
	switch {
	case example != "":
		text = fmt.Sprintf("%s For example: %s", base, example)
	case format != "":
		text = fmt.Sprintf("%s Please send a request in this format: %s", base, format)
	}

	return &models.ClarificationEnvelope{
		Status:              models.ClarificationStatus,
		Message:             base,
		Response:            text,
		ClarifyingQuestions: questions,
		ExampleRequest:      example,
		RequiredFormat:      format,
		IntentInfo:          intentInfo(res),
		Suggestions:         clarificationSuggestions(),
		ClarificationCount:  clarifications + 1,
		MaxClarifications:   s.config.MaxClarifications,
	}
}

// clarificationContent is the assistant-turn text stored for a
// clarification, prefixed so transcripts read naturally.
func clarificationContent(message string) string {
	return "Clarification requested: " + message
}

// countClarifications reports how many clarification turns the assistant
// produced in a row at the tail of the history. Any dispatched reply
// breaks the run, which is what resets the livelock counter.
func countClarifications(history []*models.ConversationMessage) int {
	count := 0
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg.Role != models.RoleAssistant {
			continue
		}
		if msg.IntentInfo == nil || msg.IntentInfo["status"] != models.ClarificationStatus {
			break
		}
		count++
	}
	return count
}

// intentInfo is the identification summary that travels on envelopes, in
// response metadata and in stored assistant turns.
func intentInfo(res *models.IntentResult) map[string]any {
	return map[string]any{
		"agent_id":         res.AgentID,
		"confidence":       res.Confidence,
		"reasoning":        res.Reasoning,
		"is_ambiguous":     res.IsAmbiguous,
		"extracted_params": res.ExtractedParams,
	}
}

// clarificationInfo marks a stored assistant turn as a clarification so
// countClarifications can recognize it on later requests.
func clarificationInfo(res *models.IntentResult) map[string]any {
	info := intentInfo(res)
	info["status"] = models.ClarificationStatus
	return info
}

// stringList extracts the strings from a decoded JSON array, tolerating
// the mixed shapes workers send.
func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if list, ok := v.([]string); ok {
			return list
		}
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// stringify renders a detail value for inline display: strings pass
// through, structured values become compact JSON.
func stringify(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(encoded)
	}
}
