package intent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/config"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/llm"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/registry"
)

// scriptedOracle returns a canned reply or error and records the
// messages it was called with.
type scriptedOracle struct {
	reply    string
	err      error
	messages []llm.Message
}

func (s *scriptedOracle) Generate(_ context.Context, messages []llm.Message) (string, error) {
	s.messages = messages
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	return registry.New([]*models.AgentDescriptor{
		{
			ID:       "adaptive_quiz_master_agent",
			Name:     "Adaptive Quiz Master",
			Keywords: []string{"quiz", "test me", "mcq"},
			URL:      "http://localhost:8001",
		},
		{
			ID:       "research_scout_agent",
			Name:     "Research Scout",
			Keywords: []string{"research", "papers", "sources"},
			URL:      "http://localhost:8002",
		},
		{
			ID:   "gemini_wrapper_agent",
			Name: "Gemini Wrapper",
			URL:  "http://localhost:8005",
		},
	})
}

func testIntentConfig() config.IntentConfig {
	return config.IntentConfig{
		ConfidenceThreshold: 0.6,
		MinConfidence:       0.4,
		MaxClarifications:   3,
	}
}

func newTestIdentifier(t *testing.T, oracle Generator) *Identifier {
	t.Helper()
	return NewIdentifier(testRegistry(t), oracle, testIntentConfig())
}

func TestIdentifyReadyToRoute(t *testing.T) {
	oracle := &scriptedOracle{reply: `{
		"status": "READY_TO_ROUTE",
		"agent_id": "adaptive_quiz_master_agent",
		"confidence": 0.92,
		"reasoning": "User wants a quiz on Python",
		"extracted_params": {"topic": "Python", "num_questions": 5},
		"clarifying_questions": [],
		"alternative_agents": ["research_scout_agent"]
	}`}
	identifier := newTestIdentifier(t, oracle)

	res := identifier.Identify(context.Background(), "Quiz me on Python, 5 questions", nil)

	require.NotNil(t, res)
	assert.Equal(t, "adaptive_quiz_master_agent", res.AgentID)
	assert.InDelta(t, 0.92, res.Confidence, 1e-9)
	assert.False(t, res.IsAmbiguous)
	assert.False(t, res.RateLimited)
	assert.Empty(t, res.ClarifyingQuestions)
	assert.Equal(t, "Python", res.ExtractedParams["topic"])
	assert.Equal(t, []string{"research_scout_agent"}, res.AlternativeAgents)
}

func TestIdentifyStripsMarkdownFences(t *testing.T) {
	oracle := &scriptedOracle{reply: "```json\n" + `{
		"status": "READY_TO_ROUTE",
		"agent_id": "research_scout_agent",
		"confidence": 0.88,
		"reasoning": "Research request",
		"extracted_params": {"topic": "neural networks"}
	}` + "\n```"}
	identifier := newTestIdentifier(t, oracle)

	res := identifier.Identify(context.Background(), "Find papers on neural networks", nil)

	assert.Equal(t, "research_scout_agent", res.AgentID)
	assert.False(t, res.IsAmbiguous)
	assert.Equal(t, "neural networks", res.ExtractedParams["topic"])
}

func TestIdentifyNormalizesQuestionObjects(t *testing.T) {
	oracle := &scriptedOracle{reply: `{
		"status": "CLARIFICATION_NEEDED",
		"agent_id": "adaptive_quiz_master_agent",
		"confidence": 0.55,
		"reasoning": "Topic missing",
		"extracted_params": {},
		"clarifying_questions": [
			"What topic would you like to be quizzed on?",
			{"question": "How many questions do you want?"},
			{"text": "What difficulty level?"}
		]
	}`}
	identifier := newTestIdentifier(t, oracle)

	res := identifier.Identify(context.Background(), "quiz me", nil)

	assert.True(t, res.IsAmbiguous)
	assert.Equal(t, []string{
		"What topic would you like to be quizzed on?",
		"How many questions do you want?",
		"What difficulty level?",
	}, res.ClarifyingQuestions)
}

func TestIdentifySubstitutesUnknownAgent(t *testing.T) {
	oracle := &scriptedOracle{reply: `{
		"status": "READY_TO_ROUTE",
		"agent_id": "essay_writing_agent",
		"confidence": 0.9,
		"reasoning": "Essay help requested",
		"extracted_params": {}
	}`}
	identifier := newTestIdentifier(t, oracle)

	res := identifier.Identify(context.Background(), "Write my essay", nil)

	assert.Equal(t, registry.FallbackAgentID, res.AgentID)
	assert.InDelta(t, 0.5, res.Confidence, 1e-9)
	assert.Contains(t, res.Reasoning, "Original agent not found in registry, using fallback")
	assert.False(t, res.IsAmbiguous)
}

func TestIdentifyAcceptsAliasAgentID(t *testing.T) {
	oracle := &scriptedOracle{reply: `{
		"status": "READY_TO_ROUTE",
		"agent_id": "gemini-wrapper",
		"confidence": 0.85,
		"reasoning": "General question",
		"extracted_params": {}
	}`}
	identifier := newTestIdentifier(t, oracle)

	res := identifier.Identify(context.Background(), "What is photosynthesis?", nil)

	assert.Equal(t, "gemini_wrapper_agent", res.AgentID)
	assert.InDelta(t, 0.85, res.Confidence, 1e-9)
	assert.NotContains(t, res.Reasoning, "fallback")
}

func TestIdentifyForcesClarificationBelowMinConfidence(t *testing.T) {
	oracle := &scriptedOracle{reply: `{
		"status": "READY_TO_ROUTE",
		"agent_id": "research_scout_agent",
		"confidence": 0.2,
		"reasoning": "Very unsure",
		"extracted_params": {"topic": "something"}
	}`}
	identifier := newTestIdentifier(t, oracle)

	res := identifier.Identify(context.Background(), "hmm stuff", nil)

	assert.True(t, res.IsAmbiguous)
	require.Len(t, res.ClarifyingQuestions, 3)
	assert.Equal(t, "Could you provide more details about what you need help with?", res.ClarifyingQuestions[0])
}

func TestIdentifyForcesClarificationOnMissingParams(t *testing.T) {
	oracle := &scriptedOracle{reply: `{
		"status": "READY_TO_ROUTE",
		"agent_id": "adaptive_quiz_master_agent",
		"confidence": 0.9,
		"reasoning": "Quiz on Python",
		"extracted_params": {"topic": "Python"}
	}`}
	identifier := newTestIdentifier(t, oracle)

	res := identifier.Identify(context.Background(), "Quiz me on Python", nil)

	assert.Equal(t, "adaptive_quiz_master_agent", res.AgentID)
	assert.True(t, res.IsAmbiguous)
	assert.Equal(t, []string{"How many questions would you like?"}, res.ClarifyingQuestions)
}

func TestIdentifyWithParamsFillsRequiredFromEarlierTurns(t *testing.T) {
	oracle := &scriptedOracle{reply: `{
		"status": "READY_TO_ROUTE",
		"agent_id": "adaptive_quiz_master_agent",
		"confidence": 0.9,
		"reasoning": "Quiz follow-up",
		"extracted_params": {"num_questions": 10}
	}`}
	identifier := newTestIdentifier(t, oracle)

	carried := map[string]any{"topic": "Python", "num_questions": 5}
	res := identifier.IdentifyWithParams(context.Background(), "make it 10 questions", nil, carried)

	assert.False(t, res.IsAmbiguous, "carried topic must satisfy the required-parameter check")
	assert.Equal(t, "Python", res.ExtractedParams["topic"])
	assert.Equal(t, float64(10), res.ExtractedParams["num_questions"], "this turn's value wins")
	assert.Equal(t, 5, carried["num_questions"], "caller's map must not be mutated")
}

func TestIdentifyWithParamsCarriesThroughFallback(t *testing.T) {
	identifier := newTestIdentifier(t, &scriptedOracle{err: errors.New("boom")})

	res := identifier.IdentifyWithParams(context.Background(), "another quiz please", nil,
		map[string]any{"topic": "Go"})

	assert.Equal(t, "adaptive_quiz_master_agent", res.AgentID)
	assert.Equal(t, "Go", res.ExtractedParams["topic"])
}

func TestIdentifyTreatsBlankParamAsMissing(t *testing.T) {
	oracle := &scriptedOracle{reply: `{
		"status": "READY_TO_ROUTE",
		"agent_id": "research_scout_agent",
		"confidence": 0.9,
		"reasoning": "Research request",
		"extracted_params": {"topic": "   "}
	}`}
	identifier := newTestIdentifier(t, oracle)

	res := identifier.Identify(context.Background(), "find papers", nil)

	assert.True(t, res.IsAmbiguous)
	assert.NotEmpty(t, res.ClarifyingQuestions)
}

func TestIdentifyClampsConfidence(t *testing.T) {
	oracle := &scriptedOracle{reply: `{
		"status": "READY_TO_ROUTE",
		"agent_id": "research_scout_agent",
		"confidence": 1.7,
		"reasoning": "Overconfident",
		"extracted_params": {"topic": "physics"}
	}`}
	identifier := newTestIdentifier(t, oracle)

	res := identifier.Identify(context.Background(), "research physics", nil)

	assert.InDelta(t, 1.0, res.Confidence, 1e-9)
}

func TestIdentifyDropsUnknownAlternatives(t *testing.T) {
	oracle := &scriptedOracle{reply: `{
		"status": "READY_TO_ROUTE",
		"agent_id": "research_scout_agent",
		"confidence": 0.8,
		"reasoning": "Research request",
		"extracted_params": {"topic": "physics"},
		"alternative_agents": ["bogus_agent", "gemini-wrapper", "gemini_wrapper_agent"]
	}`}
	identifier := newTestIdentifier(t, oracle)

	res := identifier.Identify(context.Background(), "research physics", nil)

	assert.Equal(t, []string{"gemini_wrapper_agent"}, res.AlternativeAgents)
}

func TestIdentifyFallsBackOnBadReply(t *testing.T) {
	tests := map[string]string{
		"not JSON":       "I think the quiz agent fits best here.",
		"invalid status": `{"status": "MAYBE", "agent_id": "adaptive_quiz_master_agent", "confidence": 0.9}`,
		"missing status": `{"agent_id": "adaptive_quiz_master_agent", "confidence": 0.9}`,
	}
	for name, reply := range tests {
		t.Run(name, func(t *testing.T) {
			identifier := newTestIdentifier(t, &scriptedOracle{reply: reply})

			res := identifier.Identify(context.Background(), "test me with a quiz", nil)

			assert.Equal(t, "adaptive_quiz_master_agent", res.AgentID)
			assert.InDelta(t, 0.4, res.Confidence, 1e-9)
			assert.Equal(t, "Fallback keyword matching used", res.Reasoning)
			assert.True(t, res.IsAmbiguous)
			assert.False(t, res.RateLimited)
		})
	}
}

func TestIdentifyFallsBackOnOracleError(t *testing.T) {
	identifier := newTestIdentifier(t, &scriptedOracle{err: errors.New("connection refused")})

	res := identifier.Identify(context.Background(), "find research papers", nil)

	assert.Equal(t, "research_scout_agent", res.AgentID)
	assert.InDelta(t, 0.4, res.Confidence, 1e-9)
	assert.Equal(t, "Fallback keyword matching used", res.Reasoning)
	assert.True(t, res.IsAmbiguous)
}

func TestIdentifyFallsBackToGeneralAgent(t *testing.T) {
	identifier := newTestIdentifier(t, &scriptedOracle{err: errors.New("boom")})

	res := identifier.Identify(context.Background(), "help with my homework", nil)

	assert.Equal(t, registry.FallbackAgentID, res.AgentID)
	assert.InDelta(t, 0.3, res.Confidence, 1e-9)
	assert.Equal(t, "No specific agent matched, using general LLM", res.Reasoning)
	assert.True(t, res.IsAmbiguous)
}

func TestIdentifyRateLimitedBoostsFallback(t *testing.T) {
	rateErr := fmt.Errorf("generate content: %w", llm.ErrRateLimited)

	t.Run("keyword match", func(t *testing.T) {
		identifier := newTestIdentifier(t, &scriptedOracle{err: rateErr})

		res := identifier.Identify(context.Background(), "test me with a quiz", nil)

		assert.Equal(t, "adaptive_quiz_master_agent", res.AgentID)
		assert.InDelta(t, 0.6, res.Confidence, 1e-9)
		assert.Equal(t, "Keyword matching used (LLM unavailable)", res.Reasoning)
		assert.False(t, res.IsAmbiguous)
		assert.True(t, res.RateLimited)
	})

	t.Run("boost is capped", func(t *testing.T) {
		identifier := newTestIdentifier(t, &scriptedOracle{err: rateErr})

		res := identifier.Identify(context.Background(), "test me with a quiz of mcq questions", nil)

		assert.Equal(t, "adaptive_quiz_master_agent", res.AgentID)
		assert.InDelta(t, 0.85, res.Confidence, 1e-9)
	})

	t.Run("no keyword match", func(t *testing.T) {
		identifier := newTestIdentifier(t, &scriptedOracle{err: rateErr})

		res := identifier.Identify(context.Background(), "help with my homework", nil)

		assert.Equal(t, registry.FallbackAgentID, res.AgentID)
		assert.InDelta(t, 0.6, res.Confidence, 1e-9)
		assert.Equal(t, "Routing to general assistant (LLM unavailable)", res.Reasoning)
		assert.False(t, res.IsAmbiguous)
		assert.True(t, res.RateLimited)
	})
}

func TestIdentifyEmptyQuery(t *testing.T) {
	oracle := &scriptedOracle{reply: "should never be called"}
	identifier := newTestIdentifier(t, oracle)

	for _, query := range []string{"", "   ", "\n\t"} {
		res := identifier.Identify(context.Background(), query, nil)

		assert.Empty(t, res.AgentID)
		assert.True(t, res.IsAmbiguous)
		assert.Equal(t, []string{"What would you like help with today?"}, res.ClarifyingQuestions)
	}
	assert.Nil(t, oracle.messages, "oracle must not be called for empty queries")
}

func TestIdentifyPromptFraming(t *testing.T) {
	oracle := &scriptedOracle{reply: `{
		"status": "READY_TO_ROUTE",
		"agent_id": "adaptive_quiz_master_agent",
		"confidence": 0.9,
		"reasoning": "ok",
		"extracted_params": {"topic": "Go", "num_questions": 3}
	}`}
	identifier := newTestIdentifier(t, oracle)

	history := make([]*models.ConversationMessage, 0, 7)
	for i := range 7 {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		history = append(history, &models.ConversationMessage{
			UserID:  "alice",
			Role:    role,
			Content: fmt.Sprintf("turn-%d", i),
		})
	}

	identifier.Identify(context.Background(), "make me a quiz", history)

	// system prompt + ack + capped history + the query itself
	require.Len(t, oracle.messages, 8)

	system := oracle.messages[0]
	assert.Equal(t, llm.RoleUser, system.Role)
	assert.Contains(t, system.Content, "## Available Agents")
	assert.Contains(t, system.Content, "adaptive_quiz_master_agent")
	assert.Contains(t, system.Content, "- **Required Parameters**: topic, num_questions")
	assert.Contains(t, system.Content, `If confidence >= 0.60 AND all required params present: "READY_TO_ROUTE"`)
	assert.Contains(t, system.Content, `If confidence < 0.40 OR missing critical params: "CLARIFICATION_NEEDED"`)
	assert.Contains(t, system.Content, "CONVERSATION HISTORY:")

	assert.Equal(t, llm.RoleAssistant, oracle.messages[1].Role)
	assert.Equal(t, promptAck, oracle.messages[1].Content)

	// only the last five turns travel
	assert.Equal(t, "turn-2", oracle.messages[2].Content)
	assert.Equal(t, llm.RoleUser, oracle.messages[2].Role)
	assert.Equal(t, "turn-3", oracle.messages[3].Content)
	assert.Equal(t, llm.RoleAssistant, oracle.messages[3].Role)
	assert.Equal(t, "turn-6", oracle.messages[6].Content)

	assert.Equal(t, "User message to analyze: make me a quiz", oracle.messages[7].Content)
}

func TestParseReplyRejectsGarbage(t *testing.T) {
	tests := map[string]string{
		"empty":        "",
		"prose":        "routing to quiz agent",
		"bad status":   `{"status": "ROUTED"}`,
		"wrong shape":  `["READY_TO_ROUTE"]`,
		"fenced prose": "```\nnot json either\n```",
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseReply(raw)
			require.Error(t, err)
		})
	}
}

func TestStripFences(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
	}{
		"bare json":       {`{"a": 1}`, `{"a": 1}`},
		"json fence":      {"```json\n{\"a\": 1}\n```", `{"a": 1}`},
		"plain fence":     {"```\n{\"a\": 1}\n```", `{"a": 1}`},
		"leading chatter": {"Here you go:\n```json\n{\"a\": 1}\n```", `{"a": 1}`},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, stripFences(tc.in))
		})
	}
}
