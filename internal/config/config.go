// Package config loads service configuration from the environment.
// API keys and backend endpoints are only ever read here and handed to
// components at construction time.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full service configuration.
type Config struct {
	Service       ServiceConfig
	Providers     ProvidersConfig
	Probe         ProbeConfig
	Orchestrator  OrchestratorConfig
	Guidelines    GuidelinesConfig
	Matcher       MatcherConfig
	Narration     NarrationConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig identifies the service instance.
type ServiceConfig struct {
	Principal string
}

// ProviderConfig configures one LLM provider and its candidate models,
// listed in preference order.
type ProviderConfig struct {
	APIKey  string
	BaseURL string
	Models  []string
}

// ProvidersConfig holds per-provider credentials and model lists.
type ProvidersConfig struct {
	Gemini ProviderConfig
	GLM    ProviderConfig
}

// ProbeConfig controls availability probing of candidate models.
type ProbeConfig struct {
	Interval         time.Duration // between scheduled probe sweeps
	Cooldown         time.Duration // before re-probing an unavailable model
	Concurrency      int           // probes in flight at once
	ProviderInterval time.Duration // minimum gap between calls to the same provider
	CanaryPrompt     string
	Timeout          time.Duration
}

// OrchestratorConfig controls provider fallback behavior.
type OrchestratorConfig struct {
	MaxRetries        int           // retries per candidate on transient failure
	BackoffBase       time.Duration // exponential backoff base
	RetryAfterCeiling time.Duration // max rate-limit wait before skipping a candidate
	RequestTimeout    time.Duration
}

// GuidelinesConfig locates the compliance rulebook.
type GuidelinesConfig struct {
	Path string
}

// MatcherConfig tunes finding scoring.
type MatcherConfig struct {
	ConfidenceFloor float64
	CombinePolicy   string // max, keyword-only, semantic-only
	UseSemantic     bool
}

// NarrationConfig configures the speech-synthesis backend.
type NarrationConfig struct {
	BackendURL   string
	DefaultVoice string
	Timeout      time.Duration
}

// KafkaConfig configures the findings event publisher.
type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	TopicFinding  string
	TopicAnalysis string
	Principal     string
}

// ObservabilityConfig configures logging and the metrics HTTP server.
type ObservabilityConfig struct {
	LogLevel string
	HTTPAddr string
}

// Load reads configuration from the environment, applying defaults for
// anything unset or unparsable.
func Load() *Config {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-content-compliance")

	return &Config{
		Service: ServiceConfig{
			Principal: principal,
		},
		Providers: ProvidersConfig{
			Gemini: ProviderConfig{
				APIKey:  os.Getenv("GEMINI_API_KEY"),
				BaseURL: envOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
				Models:  envOrDefaultList("GEMINI_MODELS", []string{"gemini-2.0-flash", "gemini-1.5-flash", "gemini-1.5-pro"}),
			},
			GLM: ProviderConfig{
				APIKey:  os.Getenv("ZHIPU_API_KEY"),
				BaseURL: envOrDefault("GLM_BASE_URL", "https://open.bigmodel.cn/api/paas/v4"),
				Models:  envOrDefaultList("GLM_MODELS", []string{"glm-4-flash"}),
			},
		},
		Probe: ProbeConfig{
			Interval:         envOrDefaultDuration("PROBE_INTERVAL", 15*time.Minute),
			Cooldown:         envOrDefaultDuration("PROBE_COOLDOWN", time.Hour),
			Concurrency:      envOrDefaultInt("PROBE_CONCURRENCY", 2),
			ProviderInterval: envOrDefaultDuration("PROBE_PROVIDER_INTERVAL", 2*time.Second),
			CanaryPrompt:     envOrDefault("PROBE_CANARY_PROMPT", "Hello"),
			Timeout:          envOrDefaultDuration("PROBE_TIMEOUT", 15*time.Second),
		},
		Orchestrator: OrchestratorConfig{
			MaxRetries:        envOrDefaultInt("ORCHESTRATOR_MAX_RETRIES", 1),
			BackoffBase:       envOrDefaultDuration("ORCHESTRATOR_BACKOFF_BASE", 250*time.Millisecond),
			RetryAfterCeiling: envOrDefaultDuration("ORCHESTRATOR_RETRY_AFTER_CEILING", 2*time.Second),
			RequestTimeout:    envOrDefaultDuration("ORCHESTRATOR_REQUEST_TIMEOUT", 60*time.Second),
		},
		Guidelines: GuidelinesConfig{
			Path: envOrDefault("GUIDELINES_PATH", "guidelines.yaml"),
		},
		Matcher: MatcherConfig{
			ConfidenceFloor: envOrDefaultFloat("MATCHER_CONFIDENCE_FLOOR", 0.3),
			CombinePolicy:   envOrDefault("MATCHER_COMBINE_POLICY", "max"),
			UseSemantic:     envOrDefaultBool("MATCHER_USE_SEMANTIC", true),
		},
		Narration: NarrationConfig{
			BackendURL:   envOrDefault("NARRATION_BACKEND_URL", "http://localhost:5001/tts"),
			DefaultVoice: envOrDefault("NARRATION_DEFAULT_VOICE", "natural"),
			Timeout:      envOrDefaultDuration("NARRATION_TIMEOUT", 2*time.Minute),
		},
		Kafka: KafkaConfig{
			Enabled:       envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:       envOrDefaultList("KAFKA_BROKERS", nil),
			TopicFinding:  envOrDefault("KAFKA_TOPIC_FINDING", "compliance.finding"),
			TopicAnalysis: envOrDefault("KAFKA_TOPIC_ANALYSIS", "compliance.analysis.completed"),
			Principal:     envOrDefault("KAFKA_PRINCIPAL", principal),
		},
		Observability: ObservabilityConfig{
			LogLevel: envOrDefault("LOG_LEVEL", "info"),
			HTTPAddr: envOrDefault("OBSERVABILITY_HTTP_ADDR", ":9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envOrDefaultFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envOrDefaultBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
