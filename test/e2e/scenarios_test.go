package e2e

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
)

// ────────────────────────────────────────────────────────────
// Worker fixtures
// ────────────────────────────────────────────────────────────

func quizWorker(t *testing.T, reply ReplyFunc) *WorkerStub {
	w := NewWorkerStub(t, "adaptive_quiz_master_agent", "Adaptive Quiz Master", reply)
	w.Keywords = []string{"quiz", "test", "mcq", "questions"}
	w.Capabilities = []string{"generate_adaptive_quiz"}
	return w
}

func coachWorker(t *testing.T, reply ReplyFunc) *WorkerStub {
	w := NewWorkerStub(t, "assignment_coach_agent", "Assignment Coach", reply)
	w.Keywords = []string{"assignment", "homework", "essay", "deadline"}
	w.Capabilities = []string{"assignment_coaching"}
	return w
}

func researchWorker(t *testing.T, reply ReplyFunc) *WorkerStub {
	w := NewWorkerStub(t, "research_scout_agent", "Research Scout", reply)
	w.Keywords = []string{"paper", "papers", "research", "literature"}
	w.Capabilities = []string{"find_academic_papers"}
	return w
}

func wrapperWorker(t *testing.T, reply ReplyFunc) *WorkerStub {
	return NewWorkerStub(t, "gemini_wrapper_agent", "Gemini Wrapper", reply)
}

// ────────────────────────────────────────────────────────────
// Scenario 1: Clear quiz request
// ────────────────────────────────────────────────────────────

func TestE2E_ClearQuizRequest(t *testing.T) {
	quiz := quizWorker(t, SuccessReport("Here are your 10 questions on Python."))
	oracle := NewScriptedOracle().Add(readyReply("adaptive_quiz_master_agent", 0.95, map[string]interface{}{
		"topic":         "Python",
		"num_questions": 10,
		"difficulty":    "intermediate",
	}))
	app := NewTestApp(t, WithOracle(oracle), WithWorkers(quiz))

	resp := app.SendRequest(t, "student-1", "Create a 10-question Python quiz at intermediate difficulty")

	assert.Equal(t, "Here are your 10 questions on Python.", resp["response"])
	assert.Equal(t, "adaptive_quiz_master_agent", resp["agent_id"])
	assert.Nil(t, resp["error"])

	meta := sub(t, resp, "metadata")
	assert.Equal(t, "adaptive_quiz_master_agent", meta["identified_agent"])
	assert.Equal(t, "Adaptive Quiz Master", meta["agent_name"])
	assert.InDelta(t, 0.95, meta["confidence"], 0.001)

	// The dispatched envelope carries the quiz worker's native shape.
	env := quiz.LastEnvelope(t)
	assert.Equal(t, models.EnvelopeSender, env.Sender)
	assert.Equal(t, "adaptive_quiz_master_agent", env.Recipient)
	assert.Equal(t, models.MessageTypeTaskAssignment, env.Type)
	assert.Equal(t, "process_request", env.Task.Name)
	assert.NotEmpty(t, env.MessageID)

	params := env.Task.Parameters
	assert.Equal(t, "adaptive_quiz_master_agent", params["agent_name"])
	assert.Equal(t, "generate_adaptive_quiz", params["intent"])

	payload := sub(t, params, "payload")
	quizRequest := sub(t, payload, "quiz_request")
	assert.Equal(t, "Python", quizRequest["topic"])
	assert.EqualValues(t, 10, quizRequest["num_questions"])
	assert.Equal(t, "apply", quizRequest["bloom_taxonomy_level"])

	sessionID, ok := sub(t, payload, "session_info")["session_id"].(string)
	require.True(t, ok)
	_, err := uuid.Parse(sessionID)
	require.NoError(t, err)

	// One user turn plus one assistant turn recorded.
	history := app.GetHistory(t, "student-1")
	assert.EqualValues(t, 2, history["count"])
}

// ────────────────────────────────────────────────────────────
// Scenario 2: Ambiguous request asks for clarification
// ────────────────────────────────────────────────────────────

func TestE2E_AmbiguousRequestAsksClarification(t *testing.T) {
	quiz := quizWorker(t, SuccessReport("unused"))
	oracle := NewScriptedOracle().Add(clarifyReply(
		"What subject or topic do you need help with?",
		"What kind of task is it: a quiz, an assignment, or research?",
	))
	app := NewTestApp(t, WithOracle(oracle), WithWorkers(quiz))

	resp := app.SendRequest(t, "student-2", "I need help")

	assert.Equal(t, "clarification_needed", resp["status"])
	assert.EqualValues(t, 1, resp["clarification_count"])
	assert.EqualValues(t, 3, resp["max_clarifications"])

	questions, ok := resp["clarifying_questions"].([]interface{})
	require.True(t, ok)
	require.Len(t, questions, 2)
	assert.Contains(t, questions[0], "subject")

	suggestions, ok := resp["suggestions"].([]interface{})
	require.True(t, ok)
	assert.Len(t, suggestions, 3)

	// No dispatch happened.
	assert.Zero(t, quiz.CallCount())

	// The clarification is still a recorded assistant turn.
	history := app.GetHistory(t, "student-2")
	assert.EqualValues(t, 2, history["count"])
	messages, ok := history["messages"].([]interface{})
	require.True(t, ok)
	last, ok := messages[1].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "assistant", last["role"])
	content, _ := last["content"].(string)
	assert.True(t, strings.HasPrefix(content, "Clarification requested:"), "content = %q", content)
}

// ────────────────────────────────────────────────────────────
// Scenario 3: Multi-turn completion
// ────────────────────────────────────────────────────────────

func TestE2E_MultiTurnCompletion(t *testing.T) {
	coach := coachWorker(t, SuccessReport("Let's break the sorting assignment into steps."))
	oracle := NewScriptedOracle().
		Add(clarifyReply("What subject or topic do you need help with?")).
		Add(readyReply("assignment_coach_agent", 0.9, map[string]interface{}{
			"task_description": "Python assignment on sorting algorithms",
		}))
	app := NewTestApp(t, WithOracle(oracle), WithWorkers(coach))

	first := app.SendRequest(t, "student-3", "I need help")
	assert.Equal(t, "clarification_needed", first["status"])

	second := app.SendRequest(t, "student-3", "I have a Python assignment on sorting algorithms")
	assert.Equal(t, "assignment_coach_agent", second["agent_id"])
	assert.Equal(t, "Let's break the sorting assignment into steps.", second["response"])

	meta := sub(t, second, "metadata")
	assert.Equal(t, "assignment_coach_agent", meta["identified_agent"])
	extracted := sub(t, meta, "extracted_params")
	assert.Contains(t, extracted["task_description"], "sorting")

	// Dispatch carried the request text and the extracted description.
	params := coach.LastEnvelope(t).Task.Parameters
	assert.Equal(t, "I have a Python assignment on sorting algorithms", params["request"])
	assert.Contains(t, params["task_description"], "sorting")

	// Both turns and both replies are in memory.
	history := app.GetHistory(t, "student-3")
	assert.EqualValues(t, 4, history["count"])
}

// ────────────────────────────────────────────────────────────
// Scenario 4: Research with a year range
// ────────────────────────────────────────────────────────────

func TestE2E_ResearchYearRange(t *testing.T) {
	research := researchWorker(t, Report(models.ReportStatusSuccess, map[string]interface{}{
		"summary": "Found 2 papers on blockchain.",
		"papers": []interface{}{
			map[string]interface{}{"title": "Consensus at Scale", "authors": []interface{}{"Liu"}, "year": 2021, "url": "https://example.org/1"},
			map[string]interface{}{"title": "Ledgers in Education", "authors": []interface{}{"Okafor"}, "year": 2023, "url": "https://example.org/2"},
		},
	}))
	oracle := NewScriptedOracle().Add(readyReply("research_scout_agent", 0.92, map[string]interface{}{
		"topic":       "blockchain",
		"year_range":  map[string]interface{}{"from": "2020", "to": "2023"},
		"max_results": 10,
	}))
	app := NewTestApp(t, WithOracle(oracle), WithWorkers(research))

	resp := app.SendRequest(t, "student-4", "Find papers on blockchain from 2020 to 2023, at most 10")

	assert.Equal(t, "research_scout_agent", resp["agent_id"])
	text, _ := resp["response"].(string)
	assert.Contains(t, text, "Found 2 papers on blockchain.")
	assert.Contains(t, text, "Consensus at Scale")

	params := research.LastEnvelope(t).Task.Parameters
	data := sub(t, params, "data")
	assert.Equal(t, "blockchain", data["topic"])
	assert.EqualValues(t, 10, data["max_results"])
	keywords, ok := data["keywords"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, keywords)

	yearRange := sub(t, data, "year_range")
	assert.Equal(t, "2020", yearRange["from"])
	assert.Equal(t, "2023", yearRange["to"])
}

// ────────────────────────────────────────────────────────────
// Scenario 5: Offline primary falls back to a healthy alternative
// ────────────────────────────────────────────────────────────

func TestE2E_OfflinePrimaryFallsBack(t *testing.T) {
	quiz := quizWorker(t, SuccessReport("unused"))
	quiz.SetHealthy(false)
	wrapper := wrapperWorker(t, SuccessReport("General assistant: here is a short quiz."))

	oracle := NewScriptedOracle().Add(readyReplyWithAlternatives(
		"adaptive_quiz_master_agent", 0.9,
		map[string]interface{}{"topic": "Python", "num_questions": 5},
		"gemini_wrapper_agent",
	))
	app := NewTestApp(t, WithOracle(oracle), WithWorkers(quiz, wrapper))

	resp := app.SendRequest(t, "student-5", "Quiz me on Python")

	// Served by the alternative; the identification is still visible.
	assert.Equal(t, "gemini_wrapper_agent", resp["agent_id"])
	assert.Equal(t, "General assistant: here is a short quiz.", resp["response"])
	assert.Nil(t, resp["error"])

	meta := sub(t, resp, "metadata")
	assert.Equal(t, "adaptive_quiz_master_agent", meta["identified_agent"])

	assert.Zero(t, quiz.CallCount())
	assert.Equal(t, 1, wrapper.CallCount())
	assert.Equal(t, "Quiz me on Python", wrapper.LastEnvelope(t).Task.Parameters["request"])
}

// ────────────────────────────────────────────────────────────
// Scenario 6: Clarification livelock forces the general assistant
// ────────────────────────────────────────────────────────────

func TestE2E_ClarificationLivelockForcesFallback(t *testing.T) {
	wrapper := wrapperWorker(t, SuccessReport("Let me just try to help directly."))
	oracle := NewScriptedOracle()
	for i := 0; i < 3; i++ {
		oracle.Add(clarifyReply("Could you tell me more about what you need?"))
	}
	app := NewTestApp(t, WithOracle(oracle), WithWorkers(wrapper))

	for i, text := range []string{"help", "help please", "I still need help"} {
		resp := app.SendRequest(t, "student-6", text)
		assert.Equal(t, "clarification_needed", resp["status"], "turn %d", i+1)
		assert.EqualValues(t, i+1, resp["clarification_count"], "turn %d", i+1)
	}

	// Fourth turn routes without consulting the oracle again.
	resp := app.SendRequest(t, "student-6", "ok")

	assert.Nil(t, resp["status"])
	assert.Equal(t, "gemini_wrapper_agent", resp["agent_id"])
	assert.Equal(t, "Let me just try to help directly.", resp["response"])

	meta := sub(t, resp, "metadata")
	assert.Contains(t, meta["reasoning"], "multiple clarification attempts")
	assert.InDelta(t, 0.5, meta["confidence"], 0.001)

	assert.Equal(t, 3, app.Oracle.Calls())
	assert.Equal(t, 1, wrapper.CallCount())
}

// TestE2E_LivelockCounterResets proves that a successful dispatch breaks
// the clarification run, so the next ambiguous turn starts at one again.
func TestE2E_LivelockCounterResets(t *testing.T) {
	wrapper := wrapperWorker(t, SuccessReport("Answered."))
	oracle := NewScriptedOracle().
		Add(clarifyReply("What do you need?")).
		Add(clarifyReply("Which subject?")).
		Add(readyReply("gemini_wrapper_agent", 0.8, nil)).
		Add(clarifyReply("What do you need now?"))
	app := NewTestApp(t, WithOracle(oracle), WithWorkers(wrapper))

	app.SendRequest(t, "student-7", "help")
	second := app.SendRequest(t, "student-7", "still lost")
	assert.EqualValues(t, 2, second["clarification_count"])

	routed := app.SendRequest(t, "student-7", "just answer me something")
	assert.Equal(t, "Answered.", routed["response"])

	again := app.SendRequest(t, "student-7", "hmm")
	assert.Equal(t, "clarification_needed", again["status"])
	assert.EqualValues(t, 1, again["clarification_count"])
}

// ────────────────────────────────────────────────────────────
// Offline fleet: in-band error, never an HTTP failure
// ────────────────────────────────────────────────────────────

func TestE2E_AllCandidatesOffline(t *testing.T) {
	quiz := quizWorker(t, SuccessReport("unused"))
	quiz.SetHealthy(false)

	oracle := NewScriptedOracle().Add(readyReply("adaptive_quiz_master_agent", 0.9, map[string]interface{}{
		"topic":         "Python",
		"num_questions": 5,
	}))
	app := NewTestApp(t, WithOracle(oracle), WithWorkers(quiz))

	resp := app.SendRequest(t, "student-8", "Quiz me on Python")

	errInfo := sub(t, resp, "error")
	assert.Equal(t, models.ErrCodeAgentOffline, errInfo["code"])
	text, _ := resp["response"].(string)
	assert.Contains(t, text, "No healthy alternatives available.")
	assert.Zero(t, quiz.CallCount())
}

// ────────────────────────────────────────────────────────────
// Explicit agent pin
// ────────────────────────────────────────────────────────────

func TestE2E_ExplicitAgentPinSkipsOracle(t *testing.T) {
	wrapper := wrapperWorker(t, SuccessReport("Pinned answer."))
	app := NewTestApp(t, WithWorkers(wrapper))

	resp := app.SendRequestBody(t, "student-9", map[string]interface{}{
		"request":   "Summarize photosynthesis",
		"agentId":   "gemini-wrapper",
		"autoRoute": false,
	})

	assert.Equal(t, "gemini_wrapper_agent", resp["agent_id"])
	assert.Equal(t, "Pinned answer.", resp["response"])
	meta := sub(t, resp, "metadata")
	assert.Equal(t, "Explicit agent requested by caller.", meta["reasoning"])
	assert.Zero(t, app.Oracle.Calls())
}

// ────────────────────────────────────────────────────────────
// Cold start: unknown statuses are rescued by a live probe
// ────────────────────────────────────────────────────────────

func TestE2E_ColdRegistryProbeRescue(t *testing.T) {
	quiz := quizWorker(t, SuccessReport("Quiz served from a cold start."))
	oracle := NewScriptedOracle().Add(readyReply("adaptive_quiz_master_agent", 0.9, map[string]interface{}{
		"topic":         "Loops",
		"num_questions": 5,
	}))
	app := NewTestApp(t, WithOracle(oracle), WithWorkers(quiz), WithColdRegistry())

	desc, ok := app.Registry.Get("adaptive_quiz_master_agent")
	require.True(t, ok)
	require.Equal(t, models.AgentStatusUnknown, desc.Status)

	resp := app.SendRequest(t, "student-10", "Quiz me on loops")
	assert.Equal(t, "Quiz served from a cold start.", resp["response"])

	// The rescue probe left a fresh status behind.
	desc, ok = app.Registry.Get("adaptive_quiz_master_agent")
	require.True(t, ok)
	assert.Equal(t, models.AgentStatusHealthy, desc.Status)
}
