package slack

import (
	"fmt"
	"time"

	goslack "github.com/slack-go/slack"
)

// BuildAgentOfflineMessage creates Block Kit blocks for an agent offline alert.
func BuildAgentOfflineMessage(agentID, agentName string, at time.Time, dashboardURL string) []goslack.Block {
	text := fmt.Sprintf(
		":rotating_light: *Agent Offline*\n*%s* (`%s`) stopped responding to health probes at %s.\nRequests are answered by the general assistant where possible until it recovers.",
		agentName, agentID, at.Format(time.RFC3339))

	blocks := []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
			nil, nil,
		),
	}
	return appendDashboardButton(blocks, dashboardURL)
}

// BuildAgentRecoveredMessage creates Block Kit blocks for an agent recovery notice.
func BuildAgentRecoveredMessage(agentID, agentName string, at time.Time, dashboardURL string) []goslack.Block {
	text := fmt.Sprintf(
		":white_check_mark: *Agent Recovered*\n*%s* (`%s`) is answering health probes again as of %s.",
		agentName, agentID, at.Format(time.RFC3339))

	blocks := []goslack.Block{
		goslack.NewSectionBlock(
			goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false),
			nil, nil,
		),
	}
	return appendDashboardButton(blocks, dashboardURL)
}

// appendDashboardButton adds a link button when a dashboard URL is configured.
func appendDashboardButton(blocks []goslack.Block, dashboardURL string) []goslack.Block {
	if dashboardURL == "" {
		return blocks
	}

	btn := goslack.NewButtonBlockElement("", "",
		goslack.NewTextBlockObject(goslack.PlainTextType, "View Agent Dashboard", false, false))
	btn.URL = dashboardURL + "/agents"
	return append(blocks, goslack.NewActionBlock("", btn))
}
