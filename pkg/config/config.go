// Package config loads and validates the supervisor's configuration:
// supervisor.yaml for tunables and agents.json for the worker registry.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// SupervisorYAMLConfig represents the complete supervisor.yaml file structure.
// Duration fields are strings ("15s", "1h") parsed during resolution.
type SupervisorYAMLConfig struct {
	Server   *ServerYAMLConfig   `yaml:"server"`
	Registry *RegistryYAMLConfig `yaml:"registry"`
	Probe    *ProbeYAMLConfig    `yaml:"probe"`
	Intent   *IntentYAMLConfig   `yaml:"intent"`
	LLM      *LLMYAMLConfig      `yaml:"llm"`
	Memory   *MemoryYAMLConfig   `yaml:"memory"`
	Dispatch *DispatchYAMLConfig `yaml:"dispatch"`
	Slack    *SlackYAMLConfig    `yaml:"slack"`
}

// ServerYAMLConfig holds HTTP listener settings from YAML.
type ServerYAMLConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// RegistryYAMLConfig holds agent registry settings from YAML.
type RegistryYAMLConfig struct {
	File string `yaml:"file,omitempty"`
}

// ProbeYAMLConfig holds health prober settings from YAML.
type ProbeYAMLConfig struct {
	Interval string `yaml:"interval,omitempty"`
	Timeout  string `yaml:"timeout,omitempty"`
}

// IntentYAMLConfig holds intent identification settings from YAML.
type IntentYAMLConfig struct {
	ConfidenceThreshold *float64 `yaml:"confidence_threshold,omitempty"`
	MinConfidence       *float64 `yaml:"min_confidence,omitempty"`
	MaxClarifications   *int     `yaml:"max_clarifications,omitempty"`
}

// LLMYAMLConfig holds routing oracle settings from YAML. The API key is
// never configured here; only the name of the env var that carries it.
type LLMYAMLConfig struct {
	Model           string   `yaml:"model,omitempty"`
	APIBase         string   `yaml:"api_base,omitempty"`
	Temperature     *float64 `yaml:"temperature,omitempty"`
	MaxOutputTokens *int     `yaml:"max_output_tokens,omitempty"`
	Timeout         string   `yaml:"timeout,omitempty"`
	APIKeyEnv       string   `yaml:"api_key_env,omitempty"`
}

// MemoryYAMLConfig holds conversation memory settings from YAML.
type MemoryYAMLConfig struct {
	Backend      string               `yaml:"backend,omitempty"`
	DatabasePath string               `yaml:"database_path,omitempty"`
	HistoryLimit *int                 `yaml:"history_limit,omitempty"`
	Retention    *RetentionYAMLConfig `yaml:"retention,omitempty"`
}

// RetentionYAMLConfig holds conversation retention settings from YAML.
type RetentionYAMLConfig struct {
	Enabled       *bool  `yaml:"enabled,omitempty"`
	TTL           string `yaml:"ttl,omitempty"`
	MaxPerUser    *int   `yaml:"max_per_user,omitempty"`
	SweepInterval string `yaml:"sweep_interval,omitempty"`
}

// DispatchYAMLConfig holds worker dispatch settings from YAML.
type DispatchYAMLConfig struct {
	Timeout       string `yaml:"timeout,omitempty"`
	RetryDelay    string `yaml:"retry_delay,omitempty"`
	DebugTokenEnv string `yaml:"debug_token_env,omitempty"`
}

// SlackYAMLConfig holds Slack notification settings from YAML.
type SlackYAMLConfig struct {
	Enabled      *bool  `yaml:"enabled,omitempty"`
	TokenEnv     string `yaml:"token_env,omitempty"`
	Channel      string `yaml:"channel,omitempty"`
	DashboardURL string `yaml:"dashboard_url,omitempty"`
}

// ServerConfig holds resolved HTTP listener configuration.
type ServerConfig struct {
	Host string
	Port int
}

// Addr returns the listen address in host:port form.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ProbeConfig holds resolved health prober configuration.
type ProbeConfig struct {
	Interval time.Duration // Background probe loop interval (default: 15s)
	Timeout  time.Duration // Per-probe HTTP timeout (default: 2s)
}

// IntentConfig holds resolved intent identification configuration.
type IntentConfig struct {
	ConfidenceThreshold float64 // Route at or above this confidence (default: 0.60)
	MinConfidence       float64 // Always clarify below this (default: 0.40)
	MaxClarifications   int     // Livelock escape after this many consecutive clarifications (default: 3)
}

// LLMConfig holds resolved routing oracle configuration.
type LLMConfig struct {
	Model           string
	APIBase         string
	Temperature     float64
	MaxOutputTokens int
	Timeout         time.Duration
	APIKeyEnv       string // Env var name holding the API key (default: "GEMINI_API_KEY")
}

// APIKey reads the oracle credential from the environment.
func (c LLMConfig) APIKey() string {
	return os.Getenv(c.APIKeyEnv)
}

// MemoryConfig holds resolved conversation memory configuration.
type MemoryConfig struct {
	Backend      string // "memory" or "sqlite"
	DatabasePath string // SQLite file path (sqlite backend only)
	HistoryLimit int    // Turns handed to the orchestrator per request (default: 10)
	Retention    RetentionConfig
}

// RetentionConfig controls the conversation cleanup sweeper.
type RetentionConfig struct {
	Enabled       bool
	TTL           time.Duration // Max age of a stored turn (default: 720h)
	MaxPerUser    int           // Turn cap per user, oldest evicted first (default: 500)
	SweepInterval time.Duration // How often the sweeper runs (default: 1h)
}

// DispatchConfig holds resolved worker dispatch configuration.
type DispatchConfig struct {
	Timeout       time.Duration // Per-call worker timeout (default: 60s)
	RetryDelay    time.Duration // Pause before the single retry (default: 500ms)
	DebugTokenEnv string        // Env var name for the debug endpoint bearer token
}

// DebugToken reads the debug endpoint credential from the environment.
// Empty means the debug endpoint is disabled.
func (c DispatchConfig) DebugToken() string {
	return os.Getenv(c.DebugTokenEnv)
}

// SlackConfig holds resolved Slack notification configuration.
type SlackConfig struct {
	Enabled      bool
	TokenEnv     string // Env var name for Slack bot token (default: "SLACK_BOT_TOKEN")
	Channel      string // Slack channel ID (e.g., "C12345678")
	DashboardURL string // Optional dashboard base URL for message buttons
}

// Token reads the Slack credential from the environment.
func (c SlackConfig) Token() string {
	return os.Getenv(c.TokenEnv)
}

// Config is the fully resolved supervisor configuration.
type Config struct {
	configDir string

	Server   ServerConfig
	Probe    ProbeConfig
	Intent   IntentConfig
	LLM      LLMConfig
	Memory   MemoryConfig
	Dispatch DispatchConfig
	Slack    SlackConfig

	// RegistryFile is the resolved path of the agent descriptor file.
	RegistryFile string
}

// ConfigDir returns the configuration directory path
func (c *Config) ConfigDir() string {
	return c.configDir
}

// Initialize loads, resolves, and validates the supervisor configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Read supervisor.yaml from configDir (optional; defaults apply when absent)
//  2. Expand environment variables ({{.VAR}} template syntax)
//  3. Parse YAML into structs
//  4. Resolve each section against built-in defaults
//  5. Apply environment variable overrides (HOST, PORT, PROBE_INTERVAL, ...)
//  6. Validate and return Config ready for use
func Initialize(configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	yamlCfg, err := loadSupervisorYAML(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg := &Config{
		configDir: configDir,
		Server:    resolveServerConfig(yamlCfg.Server),
		Probe:     resolveProbeConfig(yamlCfg.Probe),
		Intent:    resolveIntentConfig(yamlCfg.Intent),
		LLM:       resolveLLMConfig(yamlCfg.LLM),
		Memory:    resolveMemoryConfig(yamlCfg.Memory),
		Dispatch:  resolveDispatchConfig(yamlCfg.Dispatch),
		Slack:     resolveSlackConfig(yamlCfg.Slack),
	}
	cfg.RegistryFile = resolveRegistryFile(configDir, yamlCfg.Registry)

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	log.Info("Configuration initialized successfully",
		"addr", cfg.Server.Addr(),
		"registry_file", cfg.RegistryFile,
		"memory_backend", cfg.Memory.Backend,
		"llm_model", cfg.LLM.Model)

	return cfg, nil
}

// loadSupervisorYAML reads supervisor.yaml if present. A missing file is
// not an error; the supervisor runs on defaults plus env overrides.
func loadSupervisorYAML(configDir string) (*SupervisorYAMLConfig, error) {
	var cfg SupervisorYAMLConfig

	path := filepath.Join(configDir, "supervisor.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("No supervisor.yaml found, using defaults", "path", path)
			return &cfg, nil
		}
		return nil, NewLoadError("supervisor.yaml", err)
	}

	// Expand environment variables using {{.VAR}} template syntax.
	// ExpandEnv passes through original data on parse/execution errors,
	// allowing the YAML parser to handle the content (or fail with a
	// clearer error message).
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, NewLoadError("supervisor.yaml", fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	return &cfg, nil
}

func resolveServerConfig(y *ServerYAMLConfig) ServerConfig {
	cfg := ServerConfig{
		Host: DefaultHost,
		Port: DefaultPort,
	}
	if y == nil {
		return cfg
	}

	// Non-zero YAML values override defaults.
	if err := mergo.Merge(&cfg, ServerConfig{Host: y.Host, Port: y.Port}, mergo.WithOverride); err != nil {
		slog.Warn("Failed to merge server config, using defaults", "error", err)
	}
	return cfg
}

func resolveRegistryFile(configDir string, y *RegistryYAMLConfig) string {
	file := DefaultRegistryFile
	if y != nil && y.File != "" {
		file = y.File
	}
	if filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(configDir, file)
}

func resolveProbeConfig(y *ProbeYAMLConfig) ProbeConfig {
	cfg := ProbeConfig{
		Interval: DefaultProbeInterval,
		Timeout:  DefaultProbeTimeout,
	}
	if y == nil {
		return cfg
	}

	cfg.Interval = parseDuration("probe.interval", y.Interval, cfg.Interval)
	cfg.Timeout = parseDuration("probe.timeout", y.Timeout, cfg.Timeout)
	return cfg
}

func resolveIntentConfig(y *IntentYAMLConfig) IntentConfig {
	cfg := IntentConfig{
		ConfidenceThreshold: DefaultConfidenceThreshold,
		MinConfidence:       DefaultMinConfidence,
		MaxClarifications:   DefaultMaxClarifications,
	}
	if y == nil {
		return cfg
	}

	if y.ConfidenceThreshold != nil {
		cfg.ConfidenceThreshold = *y.ConfidenceThreshold
	}
	if y.MinConfidence != nil {
		cfg.MinConfidence = *y.MinConfidence
	}
	if y.MaxClarifications != nil {
		cfg.MaxClarifications = *y.MaxClarifications
	}
	return cfg
}

func resolveLLMConfig(y *LLMYAMLConfig) LLMConfig {
	cfg := LLMConfig{
		Model:           DefaultLLMModel,
		APIBase:         DefaultLLMAPIBase,
		Temperature:     DefaultLLMTemperature,
		MaxOutputTokens: DefaultLLMMaxOutputTokens,
		Timeout:         DefaultLLMTimeout,
		APIKeyEnv:       DefaultLLMAPIKeyEnv,
	}
	if y == nil {
		return cfg
	}

	if y.Model != "" {
		cfg.Model = y.Model
	}
	if y.APIBase != "" {
		cfg.APIBase = y.APIBase
	}
	if y.Temperature != nil {
		cfg.Temperature = *y.Temperature
	}
	if y.MaxOutputTokens != nil {
		cfg.MaxOutputTokens = *y.MaxOutputTokens
	}
	if y.APIKeyEnv != "" {
		cfg.APIKeyEnv = y.APIKeyEnv
	}
	cfg.Timeout = parseDuration("llm.timeout", y.Timeout, cfg.Timeout)
	return cfg
}

func resolveMemoryConfig(y *MemoryYAMLConfig) MemoryConfig {
	cfg := MemoryConfig{
		Backend:      DefaultMemoryBackend,
		DatabasePath: DefaultDatabasePath,
		HistoryLimit: DefaultHistoryLimit,
		Retention: RetentionConfig{
			Enabled:       true,
			TTL:           DefaultRetentionTTL,
			MaxPerUser:    DefaultRetentionMaxPerUser,
			SweepInterval: DefaultSweepInterval,
		},
	}
	if y == nil {
		return cfg
	}

	if y.Backend != "" {
		cfg.Backend = y.Backend
	}
	if y.DatabasePath != "" {
		cfg.DatabasePath = y.DatabasePath
	}
	if y.HistoryLimit != nil {
		cfg.HistoryLimit = *y.HistoryLimit
	}
	if r := y.Retention; r != nil {
		if r.Enabled != nil {
			cfg.Retention.Enabled = *r.Enabled
		}
		if r.MaxPerUser != nil {
			cfg.Retention.MaxPerUser = *r.MaxPerUser
		}
		cfg.Retention.TTL = parseDuration("memory.retention.ttl", r.TTL, cfg.Retention.TTL)
		cfg.Retention.SweepInterval = parseDuration("memory.retention.sweep_interval", r.SweepInterval, cfg.Retention.SweepInterval)
	}
	return cfg
}

func resolveDispatchConfig(y *DispatchYAMLConfig) DispatchConfig {
	cfg := DispatchConfig{
		Timeout:       DefaultDispatchTimeout,
		RetryDelay:    DefaultRetryDelay,
		DebugTokenEnv: DefaultDebugTokenEnv,
	}
	if y == nil {
		return cfg
	}

	if y.DebugTokenEnv != "" {
		cfg.DebugTokenEnv = y.DebugTokenEnv
	}
	cfg.Timeout = parseDuration("dispatch.timeout", y.Timeout, cfg.Timeout)
	cfg.RetryDelay = parseDuration("dispatch.retry_delay", y.RetryDelay, cfg.RetryDelay)
	return cfg
}

func resolveSlackConfig(y *SlackYAMLConfig) SlackConfig {
	cfg := SlackConfig{
		Enabled:  false,
		TokenEnv: DefaultSlackTokenEnv,
	}
	if y == nil {
		return cfg
	}

	if y.Enabled != nil {
		cfg.Enabled = *y.Enabled
	}
	if y.TokenEnv != "" {
		cfg.TokenEnv = y.TokenEnv
	}
	if y.Channel != "" {
		cfg.Channel = y.Channel
	}
	if y.DashboardURL != "" {
		cfg.DashboardURL = y.DashboardURL
	}
	return cfg
}

// parseDuration parses a YAML duration string, falling back to def on
// empty or malformed input.
func parseDuration(field, value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("Invalid duration in config, using default",
			"field", field,
			"value", value,
			"default", def,
			"error", err)
		return def
	}
	return d
}

// applyEnvOverrides applies the operational environment overrides on top
// of file configuration. Env wins over YAML so deployments can retune a
// running image without editing files.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		} else {
			slog.Warn("Invalid PORT env var, keeping configured port", "value", v)
		}
	}
	if v := os.Getenv("AGENTS_FILE"); v != "" {
		cfg.RegistryFile = v
	}
	if v := os.Getenv("PROBE_INTERVAL"); v != "" {
		cfg.Probe.Interval = parseDuration("PROBE_INTERVAL", v, cfg.Probe.Interval)
	}
	if v := os.Getenv("CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Intent.ConfidenceThreshold = f
		} else {
			slog.Warn("Invalid CONFIDENCE_THRESHOLD env var", "value", v)
		}
	}
	if v := os.Getenv("MIN_CONFIDENCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Intent.MinConfidence = f
		} else {
			slog.Warn("Invalid MIN_CONFIDENCE env var", "value", v)
		}
	}
	if v := os.Getenv("MAX_CLARIFICATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Intent.MaxClarifications = n
		} else {
			slog.Warn("Invalid MAX_CLARIFICATIONS env var", "value", v)
		}
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("GEMINI_API_BASE"); v != "" {
		cfg.LLM.APIBase = v
	}
	if v := os.Getenv("MEMORY_BACKEND"); v != "" {
		cfg.Memory.Backend = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		cfg.Memory.DatabasePath = v
	}
	if v := os.Getenv("SLACK_CHANNEL"); v != "" {
		cfg.Slack.Channel = v
		cfg.Slack.Enabled = true
	}
}

// validate checks resolved values that would otherwise fail deep inside
// a component at an awkward time.
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return NewValidationError("server", "http", "port", ErrInvalidValue)
	}
	if c.Probe.Interval <= 0 {
		return NewValidationError("probe", "health", "interval", ErrInvalidValue)
	}
	if c.Probe.Timeout <= 0 {
		return NewValidationError("probe", "health", "timeout", ErrInvalidValue)
	}
	if c.Intent.ConfidenceThreshold < 0 || c.Intent.ConfidenceThreshold > 1 {
		return NewValidationError("intent", "gating", "confidence_threshold", ErrInvalidValue)
	}
	if c.Intent.MinConfidence < 0 || c.Intent.MinConfidence > c.Intent.ConfidenceThreshold {
		return NewValidationError("intent", "gating", "min_confidence", ErrInvalidValue)
	}
	if c.Intent.MaxClarifications < 1 {
		return NewValidationError("intent", "gating", "max_clarifications", ErrInvalidValue)
	}
	switch c.Memory.Backend {
	case "memory", "sqlite":
	default:
		return NewValidationError("memory", c.Memory.Backend, "backend", ErrInvalidValue)
	}
	if c.Memory.Backend == "sqlite" && c.Memory.DatabasePath == "" {
		return NewValidationError("memory", "sqlite", "database_path", ErrMissingRequiredField)
	}
	if c.Memory.HistoryLimit <= 0 {
		return NewValidationError("memory", c.Memory.Backend, "history_limit", ErrInvalidValue)
	}
	if c.Dispatch.Timeout <= 0 {
		return NewValidationError("dispatch", "worker", "timeout", ErrInvalidValue)
	}
	if c.Slack.Enabled && c.Slack.Channel == "" {
		return NewValidationError("slack", "notifier", "channel", ErrMissingRequiredField)
	}
	return nil
}
