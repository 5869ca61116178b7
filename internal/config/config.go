// Package config provides configuration management for trak.
// Configuration is loaded from (highest to lowest priority):
// 1. Command-line flags
// 2. Environment variables (TRAK_*)
// 3. Project config (.trak/config.yaml in cwd)
// 4. Home config (~/.trak/config.yaml)
// 5. Defaults
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all trak configuration.
type Config struct {
	// Output controls the default output format (table, json, yaml).
	Output string `yaml:"output" json:"output"`

	// Verbose enables verbose logging.
	Verbose bool `yaml:"verbose" json:"verbose"`

	Store        StoreConfig        `yaml:"store" json:"store"`
	Lock         LockConfig         `yaml:"lock" json:"lock"`
	Retry        RetryConfig        `yaml:"retry" json:"retry"`
	Gateway      GatewayConfig      `yaml:"gateway" json:"gateway"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" json:"orchestrator"`
	Cost         CostConfig         `yaml:"cost" json:"cost"`
	Agent        AgentConfig        `yaml:"agent" json:"agent"`
	Timeout      TimeoutConfig      `yaml:"timeout" json:"timeout"`

	// Project maps a project name to its per-project overrides.
	Project map[string]ProjectConfig `yaml:"project" json:"project"`
}

// StoreConfig controls where the relational store lives.
type StoreConfig struct {
	// Path overrides the discovered .trak directory location.
	Path string `yaml:"path" json:"path"`
}

// LockConfig controls workspace lock behavior.
type LockConfig struct {
	// Timeout is a duration string; default lock lifetime before expiry.
	Timeout string `yaml:"timeout" json:"timeout"`
}

// RetryConfig controls the fail/retry backoff schedule.
type RetryConfig struct {
	// Backoff is a comma-separated list of minute counts, e.g. "1,5,15,30,60".
	Backoff string `yaml:"backoff" json:"backoff"`
	// MaxRetries is the default ceiling applied to tasks created without
	// an explicit override.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
}

// GatewayConfig overrides gateway discovery.
type GatewayConfig struct {
	URL   string `yaml:"url" json:"url"`
	Token string `yaml:"token" json:"token"`
}

// OrchestratorConfig controls the run/watch dispatch loop.
type OrchestratorConfig struct {
	MaxAgents   int `yaml:"max_agents" json:"max_agents"`
	MinPriority int `yaml:"min_priority" json:"min_priority"`
}

// CostConfig carries per-model pricing overrides, keyed by model name.
// Each entry is "input_per_million,output_per_million[,cache_per_million]".
type CostConfig struct {
	PricingOverrides map[string]string `yaml:"pricing_overrides" json:"pricing_overrides"`
}

// AgentConfig holds global agent dispatch defaults.
type AgentConfig struct {
	// Timeout is the global fallback in the timeout resolution chain,
	// below project and tag-profile overrides.
	Timeout string `yaml:"timeout" json:"timeout"`
}

// TimeoutConfig holds the tag-profile timeout map: timeout.profile.<tag>.
type TimeoutConfig struct {
	Profile map[string]string `yaml:"profile" json:"profile"`
}

// ProjectConfig is a per-project override block: project.<name>.timeout.
type ProjectConfig struct {
	Timeout string `yaml:"timeout" json:"timeout"`
}

// Default config values (used in resolution and validation).
const (
	defaultOutput       = "table"
	defaultLockTimeout  = "30m"
	defaultBackoff      = "1,5,15,30,60"
	defaultMaxRetries   = 3
	defaultMaxAgents    = 3
	defaultMinPriority  = 1
	defaultAgentTimeout = "900s"
)

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Output:  defaultOutput,
		Verbose: false,
		Lock:    LockConfig{Timeout: defaultLockTimeout},
		Retry:   RetryConfig{Backoff: defaultBackoff, MaxRetries: defaultMaxRetries},
		Orchestrator: OrchestratorConfig{
			MaxAgents:   defaultMaxAgents,
			MinPriority: defaultMinPriority,
		},
		Agent: AgentConfig{Timeout: defaultAgentTimeout},
	}
}

// Load loads configuration with proper precedence.
// Priority: flags > env > project > home > defaults.
func Load(flagOverrides *Config) (*Config, error) {
	cfg := Default()

	homeConfig, _ := loadFromPath(homeConfigPath())
	if homeConfig != nil {
		cfg = merge(cfg, homeConfig)
	}

	projectConfig, _ := loadFromPath(projectConfigPath())
	if projectConfig != nil {
		cfg = merge(cfg, projectConfig)
	}

	cfg = applyEnv(cfg)

	if flagOverrides != nil {
		cfg = merge(cfg, flagOverrides)
	}

	return cfg, nil
}

// BackoffMinutes parses Retry.Backoff into a slice of minute counts,
// falling back to the default schedule on any malformed entry.
func (c *Config) BackoffMinutes() []int {
	parts := strings.Split(c.Retry.Backoff, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return parseBackoff(defaultBackoff)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return parseBackoff(defaultBackoff)
	}
	return out
}

func parseBackoff(s string) []int {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, _ := strconv.Atoi(strings.TrimSpace(p))
		out = append(out, n)
	}
	return out
}

// homeConfigPath returns the home config path.
func homeConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".trak", "config.yaml")
}

// projectConfigPath returns the project config path.
func projectConfigPath() string {
	if override := strings.TrimSpace(os.Getenv("TRAK_CONFIG")); override != "" {
		return override
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Join(cwd, ".trak", "config.yaml")
}

// loadFromPath loads config from a YAML file.
func loadFromPath(path string) (*Config, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnv applies environment variable overrides.
func applyEnv(cfg *Config) *Config {
	if v := os.Getenv("TRAK_OUTPUT"); v != "" {
		cfg.Output = v
	}
	if v := os.Getenv("TRAK_VERBOSE"); v == "true" || v == "1" {
		cfg.Verbose = true
	}
	if v := os.Getenv("TRAK_DB"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("TRAK_LOCK_TIMEOUT"); v != "" {
		cfg.Lock.Timeout = v
	}
	if v := os.Getenv("TRAK_RETRY_BACKOFF"); v != "" {
		cfg.Retry.Backoff = v
	}
	if v := os.Getenv("TRAK_RETRY_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retry.MaxRetries = n
		}
	}
	if v := os.Getenv("GATEWAY_URL"); v != "" {
		cfg.Gateway.URL = v
	}
	if v := os.Getenv("GATEWAY_TOKEN"); v != "" {
		cfg.Gateway.Token = v
	}
	if v := os.Getenv("TRAK_MAX_AGENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Orchestrator.MaxAgents = n
		}
	}
	if v := os.Getenv("TRAK_MIN_PRIORITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Orchestrator.MinPriority = n
		}
	}
	if v := os.Getenv("TRAK_AGENT_TIMEOUT"); v != "" {
		cfg.Agent.Timeout = v
	}
	return cfg
}

// merge merges src into dst, with src values taking precedence. Zero
// values in src never overwrite dst — callers that want to clear a
// field must do so through Default() directly.
func merge(dst, src *Config) *Config {
	if src.Output != "" {
		dst.Output = src.Output
	}
	if src.Verbose {
		dst.Verbose = true
	}
	if src.Store.Path != "" {
		dst.Store.Path = src.Store.Path
	}
	if src.Lock.Timeout != "" {
		dst.Lock.Timeout = src.Lock.Timeout
	}
	if src.Retry.Backoff != "" {
		dst.Retry.Backoff = src.Retry.Backoff
	}
	if src.Retry.MaxRetries != 0 {
		dst.Retry.MaxRetries = src.Retry.MaxRetries
	}
	if src.Gateway.URL != "" {
		dst.Gateway.URL = src.Gateway.URL
	}
	if src.Gateway.Token != "" {
		dst.Gateway.Token = src.Gateway.Token
	}
	if src.Orchestrator.MaxAgents != 0 {
		dst.Orchestrator.MaxAgents = src.Orchestrator.MaxAgents
	}
	if src.Orchestrator.MinPriority != 0 {
		dst.Orchestrator.MinPriority = src.Orchestrator.MinPriority
	}
	if src.Agent.Timeout != "" {
		dst.Agent.Timeout = src.Agent.Timeout
	}
	if len(src.Timeout.Profile) > 0 {
		if dst.Timeout.Profile == nil {
			dst.Timeout.Profile = make(map[string]string)
		}
		for tag, v := range src.Timeout.Profile {
			dst.Timeout.Profile[tag] = v
		}
	}
	if len(src.Cost.PricingOverrides) > 0 {
		if dst.Cost.PricingOverrides == nil {
			dst.Cost.PricingOverrides = make(map[string]string)
		}
		for model, v := range src.Cost.PricingOverrides {
			dst.Cost.PricingOverrides[model] = v
		}
	}
	if len(src.Project) > 0 {
		if dst.Project == nil {
			dst.Project = make(map[string]ProjectConfig)
		}
		for name, v := range src.Project {
			dst.Project[name] = v
		}
	}

	return dst
}

// Source represents where a config value came from.
type Source string

const (
	SourceDefault Source = "default"
	SourceHome    Source = "~/.trak/config.yaml"
	SourceProject Source = ".trak/config.yaml"
	SourceEnv     Source = "environment"
	SourceFlag    Source = "flag"
)

// getEnvString returns the value and whether the env var was set.
func getEnvString(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

// resolved pairs a value with the precedence tier it came from, for
// `trak config` to report provenance.
type resolved struct {
	Value  interface{} `json:"value"`
	Source Source      `json:"source"`
}

// resolveStringField resolves a string through the precedence chain.
func resolveStringField(home, project, env, flag, def string) resolved {
	result := resolved{Value: def, Source: SourceDefault}
	if home != "" {
		result = resolved{Value: home, Source: SourceHome}
	}
	if project != "" {
		result = resolved{Value: project, Source: SourceProject}
	}
	if env != "" {
		result = resolved{Value: env, Source: SourceEnv}
	}
	if flag != "" {
		result = resolved{Value: flag, Source: SourceFlag}
	}
	return result
}

// ResolvedConfig shows config values with their sources, for `trak
// config` to print provenance without re-walking the precedence chain.
type ResolvedConfig struct {
	Output      resolved `json:"output"`
	StorePath   resolved `json:"store_path"`
	LockTimeout resolved `json:"lock_timeout"`
	GatewayURL  resolved `json:"gateway_url"`
	MaxAgents   resolved `json:"max_agents"`
}

// Resolve returns configuration with source tracking for the fields a
// human is most likely to need to debug.
func Resolve(flagOutput, flagStorePath, flagGatewayURL string) *ResolvedConfig {
	homeConfig, _ := loadFromPath(homeConfigPath())
	projectConfig, _ := loadFromPath(projectConfigPath())

	var homeOutput, homeStorePath, homeLockTimeout, homeGatewayURL string
	if homeConfig != nil {
		homeOutput = homeConfig.Output
		homeStorePath = homeConfig.Store.Path
		homeLockTimeout = homeConfig.Lock.Timeout
		homeGatewayURL = homeConfig.Gateway.URL
	}

	var projOutput, projStorePath, projLockTimeout, projGatewayURL string
	if projectConfig != nil {
		projOutput = projectConfig.Output
		projStorePath = projectConfig.Store.Path
		projLockTimeout = projectConfig.Lock.Timeout
		projGatewayURL = projectConfig.Gateway.URL
	}

	envOutput, _ := getEnvString("TRAK_OUTPUT")
	envStorePath, _ := getEnvString("TRAK_DB")
	envLockTimeout, _ := getEnvString("TRAK_LOCK_TIMEOUT")
	envGatewayURL, _ := getEnvString("GATEWAY_URL")

	maxAgents := resolved{Value: defaultMaxAgents, Source: SourceDefault}
	if homeConfig != nil && homeConfig.Orchestrator.MaxAgents != 0 {
		maxAgents = resolved{Value: homeConfig.Orchestrator.MaxAgents, Source: SourceHome}
	}
	if projectConfig != nil && projectConfig.Orchestrator.MaxAgents != 0 {
		maxAgents = resolved{Value: projectConfig.Orchestrator.MaxAgents, Source: SourceProject}
	}
	if v, ok := getEnvString("TRAK_MAX_AGENTS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			maxAgents = resolved{Value: n, Source: SourceEnv}
		}
	}

	return &ResolvedConfig{
		Output:      resolveStringField(homeOutput, projOutput, envOutput, flagOutput, defaultOutput),
		StorePath:   resolveStringField(homeStorePath, projStorePath, envStorePath, flagStorePath, ""),
		LockTimeout: resolveStringField(homeLockTimeout, projLockTimeout, envLockTimeout, "", defaultLockTimeout),
		GatewayURL:  resolveStringField(homeGatewayURL, projGatewayURL, envGatewayURL, flagGatewayURL, ""),
		MaxAgents:   maxAgents,
	}
}
