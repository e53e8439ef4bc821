// Package shaper builds the body each worker agent expects from the
// identifier's extracted parameters. Shapes are a closed table keyed by
// agent id with a generic pass-through for anything unknown; adding an
// agent means adding one entry and one shape function.
//
// Every shape carries the original user text in a "request" field so a
// worker can fall back to free-text parsing when a structured field is
// missing.
package shaper

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/registry"
)

type shapeFunc func(request string, params map[string]any) map[string]any

var shapes = map[string]shapeFunc{
	"adaptive_quiz_master_agent":   quizMaster,
	"research_scout_agent":         researchScout,
	"assignment_coach_agent":       assignmentCoach,
	"plagiarism_prevention_agent":  plagiarismPrevention,
	registry.FallbackAgentID:       geminiWrapper,
	"concept_reinforcement_agent":  conceptReinforcement,
	"presentation_feedback_agent":  presentationFeedback,
	"daily_revision_proctor_agent": dailyRevisionProctor,
	"peer_collaboration_agent":     peerCollaboration,
	"exam_readiness_agent":         examReadiness,
}

// Shape builds the payload agent_id expects. Unknown agents get the
// generic shape: the raw request plus the parameters as extracted.
func Shape(agentID, request string, params map[string]any) map[string]any {
	if params == nil {
		params = map[string]any{}
	}
	if shape, ok := shapes[registry.NormalizeID(agentID)]; ok {
		return shape(request, params)
	}
	return generic(request, params)
}

// bloomLevels maps user-facing difficulty vocabulary onto the quiz
// worker's Bloom taxonomy enum.
var bloomLevels = map[string]string{
	"beginner":     "remember",
	"easy":         "understand",
	"intermediate": "apply",
	"medium":       "apply",
	"advanced":     "analyze",
	"hard":         "evaluate",
	"expert":       "create",
}

func quizMaster(request string, params map[string]any) map[string]any {
	difficulty := strings.ToLower(stringOr(params, "intermediate", "difficulty"))
	bloom, ok := bloomLevels[difficulty]
	if !ok {
		bloom = "apply"
	}

	return map[string]any{
		"request":    request,
		"agent_name": "adaptive_quiz_master_agent",
		"intent":     "generate_adaptive_quiz",
		"payload": map[string]any{
			"user_info": map[string]any{
				"user_id":        stringOr(params, "default_user", "user_id"),
				"learning_level": difficulty,
			},
			"quiz_request": map[string]any{
				// Default topic exists in the worker's question bank.
				"topic":                stringOr(params, "Python Loops", "topic", "subject"),
				"num_questions":        intOr(params, 5, "num_questions"),
				"question_types":       []any{"mcq", "true_false"},
				"bloom_taxonomy_level": bloom,
				"adaptive":             true,
			},
			"session_info": map[string]any{
				"session_id": uuid.NewString(),
			},
		},
	}
}

func researchScout(request string, params map[string]any) map[string]any {
	data := map[string]any{
		"topic":       stringOr(params, request, "topic"),
		"keywords":    listOr(params, []any{}, "keywords"),
		"max_results": intOr(params, 10, "max_results"),
	}
	if yearRange := normalizeYearRange(params["year_range"]); yearRange != nil {
		data["year_range"] = yearRange
	}

	return map[string]any{
		"request": request,
		"data":    data,
	}
}

func assignmentCoach(request string, params map[string]any) map[string]any {
	out := map[string]any{
		"request":          request,
		"task_description": stringOr(params, request, "task_description"),
	}
	copyIfPresent(out, params, "subject", "difficulty_level", "deadline")
	return out
}

func plagiarismPrevention(request string, params map[string]any) map[string]any {
	out := map[string]any{
		"request":      request,
		"text_content": stringOr(params, request, "text_content"),
		"check_type":   stringOr(params, "check", "check_type"),
	}
	copyIfPresent(out, params, "citation_style")
	return out
}

// geminiWrapper passes everything through. Extracted parameters win on
// key collisions.
func geminiWrapper(request string, params map[string]any) map[string]any {
	out := map[string]any{"request": request}
	for key, value := range params {
		out[key] = value
	}
	return out
}

func conceptReinforcement(request string, params map[string]any) map[string]any {
	weakTopics := anyList(params["weak_topics"])
	if len(weakTopics) == 0 {
		weakTopics = anyList(params["topics"])
	}
	if len(weakTopics) == 0 {
		if topic := stringOr(params, "", "topic"); topic != "" {
			weakTopics = []any{topic}
		}
	}
	if weakTopics == nil {
		weakTopics = []any{}
	}

	return map[string]any{
		"request":    request,
		"agent_name": "concept_reinforcement_agent",
		"intent":     "generate_reinforcement_tasks",
		"payload": map[string]any{
			"student_id":  stringOr(params, "default_student", "student_id", "user_id"),
			"weak_topics": weakTopics,
			"preferences": map[string]any{
				"learning_style": stringOr(params, "visual", "learning_style"),
				"max_tasks":      intOr(params, 3, "max_tasks"),
			},
		},
	}
}

func presentationFeedback(request string, params map[string]any) map[string]any {
	return map[string]any{
		"request": request,
		"data": map[string]any{
			"presentation_id": stringOr(params, uuid.NewString(), "presentation_id"),
			"title":           stringOr(params, "Untitled Presentation", "title"),
			"presenter_name":  stringOr(params, "Anonymous", "presenter_name", "user_id"),
			"transcript":      stringOr(params, request, "transcript"),
			"metadata": map[string]any{
				"language":          stringOr(params, "en", "language"),
				"duration_minutes":  params["duration_minutes"],
				"target_audience":   params["target_audience"],
				"presentation_type": params["presentation_type"],
			},
			"analysis_parameters": map[string]any{
				"focus_areas": listOr(params, []any{
					"clarity", "pacing", "engagement", "material_relevance", "structure",
				}, "focus_areas"),
				"detail_level": stringOr(params, "high", "detail_level"),
			},
		},
	}
}

func dailyRevisionProctor(request string, params map[string]any) map[string]any {
	activityLog := anyList(params["activity_log"])
	if len(activityLog) == 0 {
		activityLog = []any{map[string]any{
			"date":    time.Now().Format("2006-01-02"),
			"subject": stringOr(params, "General Study", "subject"),
			"hours":   floatOr(params, 1.0, "hours"),
			"status":  "completed",
		}}
	}

	return map[string]any{
		"request":    request,
		"student_id": stringOr(params, "1", "student_id", "user_id"),
		"profile": map[string]any{
			"name":  stringOr(params, "Student", "name"),
			"grade": stringOr(params, "N/A", "grade"),
		},
		"study_schedule": map[string]any{
			"preferred_times":  listOr(params, []any{"09:00", "14:00", "19:00"}, "preferred_times"),
			"daily_goal_hours": floatOr(params, 3.0, "daily_goal_hours"),
		},
		"activity_log": activityLog,
		"user_feedback": map[string]any{
			"reminder_effectiveness": intOr(params, 4, "reminder_effectiveness"),
			"motivation_level":       stringOr(params, "medium", "motivation_level"),
		},
		"context": map[string]any{
			"request_type":  stringOr(params, "analysis", "request_type"),
			"supervisor_id": "supervisor_main",
			"priority":      "normal",
		},
	}
}

func peerCollaboration(request string, params map[string]any) map[string]any {
	return map[string]any{
		"request":    request,
		"agent_name": "peer_collaboration_agent",
		"intent":     "analyze_collaboration",
		"payload": map[string]any{
			"project_id":      stringOr(params, uuid.NewString(), "project_id"),
			"team_members":    commaList(params["team_members"]),
			"action":          stringOr(params, "analyze", "action"),
			"discussion_logs": normalizeDiscussionLogs(params["discussion_logs"]),
		},
	}
}

// examDifficulty maps the identifier's difficulty vocabulary onto the
// exam worker's three-level enum.
var examDifficulty = map[string]string{
	"beginner":     "easy",
	"intermediate": "medium",
	"advanced":     "hard",
}

func examReadiness(request string, params map[string]any) map[string]any {
	assessment := strings.ToLower(stringOr(params, "quiz", "assessment_type"))
	switch assessment {
	case "quiz", "exam", "assignment":
	default:
		assessment = "quiz"
	}

	difficulty := strings.ToLower(stringOr(params, "medium", "difficulty"))
	switch difficulty {
	case "easy", "medium", "hard":
	default:
		if mapped, ok := examDifficulty[difficulty]; ok {
			difficulty = mapped
		} else {
			difficulty = "medium"
		}
	}

	count := intOr(params, 0, "question_count")
	if count == 0 {
		count = intOr(params, 5, "num_questions")
	}

	typeCounts, ok := params["type_counts"].(map[string]any)
	if !ok || len(typeCounts) == 0 {
		typeCounts = map[string]any{"mcq": count}
	}

	return map[string]any{
		"request":         request,
		"subject":         stringOr(params, "General", "subject", "topic"),
		"assessment_type": assessment,
		"difficulty":      difficulty,
		"question_count":  count,
		"type_counts":     typeCounts,
		"allow_latex":     boolOr(params, true, "allow_latex"),
		"created_by":      stringOr(params, "supervisor", "created_by"),
		"use_rag":         boolOr(params, false, "use_rag"),
		"export_pdf":      boolOr(params, false, "export_pdf"),
	}
}

func generic(request string, params map[string]any) map[string]any {
	return map[string]any{
		"request":    request,
		"parameters": params,
	}
}
