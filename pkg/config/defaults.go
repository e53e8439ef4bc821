package config

import "time"

// Built-in defaults. Every value can be overridden in supervisor.yaml
// and, for the operational subset, by environment variables.
const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 8000

	DefaultRegistryFile = "agents.json"

	DefaultProbeInterval = 15 * time.Second
	DefaultProbeTimeout  = 2 * time.Second

	// Routing proceeds at or above the confidence threshold; below the
	// minimum the identifier always asks for clarification.
	DefaultConfidenceThreshold = 0.60
	DefaultMinConfidence       = 0.40
	DefaultMaxClarifications   = 3

	DefaultLLMModel           = "gemini-2.5-flash"
	DefaultLLMAPIBase         = "https://generativelanguage.googleapis.com/v1beta"
	DefaultLLMTemperature     = 0.3
	DefaultLLMMaxOutputTokens = 1024
	DefaultLLMTimeout         = 30 * time.Second
	DefaultLLMAPIKeyEnv       = "GEMINI_API_KEY"

	DefaultMemoryBackend = "memory"
	DefaultDatabasePath  = "data/supervisor.db"
	DefaultHistoryLimit  = 10

	DefaultRetentionTTL        = 30 * 24 * time.Hour
	DefaultRetentionMaxPerUser = 500
	DefaultSweepInterval       = 1 * time.Hour

	// Worker agents are LLM-backed and can be slow; one retry after a
	// short pause covers transient connection drops.
	DefaultDispatchTimeout = 60 * time.Second
	DefaultRetryDelay      = 500 * time.Millisecond

	DefaultDebugTokenEnv = "SUPERVISOR_DEBUG_TOKEN"
	DefaultSlackTokenEnv = "SLACK_BOT_TOKEN"
)
