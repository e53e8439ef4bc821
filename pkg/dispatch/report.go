package dispatch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
)

// decodeReport turns a worker's raw response into a usable completion
// report. Workers are not fully trusted: a non-JSON body or a schema
// violation never fails the request, it is repaired into a best-effort
// report that preserves whatever the worker did send.
func decodeReport(statusCode int, body []byte) *models.CompletionReport {
	report := &models.CompletionReport{}
	if err := json.Unmarshal(body, report); err != nil {
		return &models.CompletionReport{
			Status:  statusToReport(statusCode),
			Results: map[string]any{"output": strings.TrimSpace(string(body))},
		}
	}

	switch report.Status {
	case models.ReportStatusSuccess, models.ReportStatusFailure, models.ReportStatusClarification:
	default:
		report.Status = statusToReport(statusCode)
	}

	if report.Results == nil {
		// JSON, but no results block. Keep any unrecognized fields the
		// worker sent; envelope fields alone are not an answer.
		var observed map[string]any
		if json.Unmarshal(body, &observed) == nil {
			for _, key := range []string{
				"message_id", "sender", "recipient", "type",
				"message_type", "related_message_id", "status", "timestamp",
			} {
				delete(observed, key)
			}
		}
		if len(observed) > 0 {
			report.Results = observed
		} else {
			report.Results = map[string]any{}
		}
	}
	return report
}

func statusToReport(statusCode int) models.ReportStatus {
	if statusCode == http.StatusOK {
		return models.ReportStatusSuccess
	}
	return models.ReportStatusFailure
}

func clarificationRequested(report *models.CompletionReport) bool {
	if report.Status == models.ReportStatusClarification {
		return true
	}
	needed, _ := report.Results["clarification_needed"].(bool)
	return needed
}

// successText extracts the worker's answer, preferring output then
// summary, stringifying structured values via JSON.
func successText(results map[string]any) string {
	for _, key := range []string{"output", "summary"} {
		switch v := results[key].(type) {
		case nil:
		case string:
			if v != "" {
				return v
			}
		default:
			if encoded, err := json.Marshal(v); err == nil {
				return string(encoded)
			}
		}
	}

	if len(results) == 0 {
		return ""
	}
	encoded, err := json.Marshal(results)
	if err != nil {
		return ""
	}
	return string(encoded)
}

func failureMessage(results map[string]any) string {
	for _, key := range []string{"error", "message", "output"} {
		if s, ok := results[key].(string); ok && s != "" {
			return s
		}
	}
	return "Agent failed to process the request."
}

// renderPapers appends a readable listing of the research worker's
// structured papers so a plain-text UI can show them without parsing
// the results blob.
func renderPapers(papers []any) string {
	var b strings.Builder
	b.WriteString("Here are the papers I found:")

	for i, item := range papers {
		paper, ok := item.(map[string]any)
		if !ok {
			continue
		}

		title := paperField(paper, "title")
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&b, "\n\n%d. %s", i+1, title)

		if authors := joinAny(paper["authors"]); authors != "" {
			fmt.Fprintf(&b, " - %s", authors)
		}
		if year := paperField(paper, "year"); year != "" {
			fmt.Fprintf(&b, " (%s)", year)
		}
		if source := paperField(paper, "source"); source != "" {
			fmt.Fprintf(&b, " [%s]", source)
		}
		if link := paperField(paper, "link", "url"); link != "" {
			fmt.Fprintf(&b, "\n   Link: %s", link)
		}
		for _, point := range anyStrings(paper["key_points"]) {
			fmt.Fprintf(&b, "\n   - %s", point)
		}
	}
	return b.String()
}

func paperField(paper map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := paper[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%d", int(v))
		case int:
			return fmt.Sprintf("%d", v)
		}
	}
	return ""
}

func joinAny(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return strings.Join(anyStrings(v), ", ")
}

func anyStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
