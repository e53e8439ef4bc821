package intent

import (
	"strings"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/registry"
)

// keywordFallback scores every agent by keyword hits in the lowercased
// query and routes to the best match. Ties resolve to the first agent in
// registry order, which is sorted and therefore stable.
//
// When the oracle was rate limited the scores are boosted and
// clarification is suppressed: a quota outage must degrade routing
// quality, not interrogate the user.
func (i *Identifier) keywordFallback(query string, rateLimited bool) *models.IntentResult {
	lowered := strings.ToLower(query)

	var bestID string
	var bestHits int
	for _, agent := range i.registry.List() {
		hits := 0
		for _, keyword := range agent.Keywords {
			if keyword != "" && strings.Contains(lowered, strings.ToLower(keyword)) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			bestID = agent.ID
		}
	}

	res := &models.IntentResult{
		ExtractedParams: map[string]any{},
		RateLimited:     rateLimited,
	}

	if bestID != "" {
		res.AgentID = bestID
		if rateLimited {
			res.Confidence = min(0.85, 0.3*float64(bestHits))
			res.Reasoning = "Keyword matching used (LLM unavailable)"
		} else {
			res.Confidence = min(0.7, 0.2*float64(bestHits))
			res.Reasoning = "Fallback keyword matching used"
			res.IsAmbiguous = res.Confidence < i.config.ConfidenceThreshold
		}
		return res
	}

	res.AgentID = registry.FallbackAgentID
	if rateLimited {
		res.Confidence = 0.6
		res.Reasoning = "Routing to general assistant (LLM unavailable)"
	} else {
		res.Confidence = 0.3
		res.Reasoning = "No specific agent matched, using general LLM"
		res.IsAmbiguous = true
	}
	return res
}
