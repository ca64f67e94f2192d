package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Env         string
	DatabaseURL string
	LLM         LLMConfig
	Engine      EngineConfig
	Credits     CreditsConfig
	Artifact    ArtifactConfig
}

type LLMConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	RPS      float64
	Burst    int
	Timeout  time.Duration
}

type EngineConfig struct {
	QuotaCeiling   int
	Rounds         int
	FeedbackRounds int
	Parallel       int
}

type CreditsConfig struct {
	Initial      int
	IdeaCost     int
	FeedbackCost int
}

type ArtifactConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// CanUseS3 reports whether enough settings are present to build an S3 store.
func (c ArtifactConfig) CanUseS3() bool {
	return c.Enabled &&
		strings.TrimSpace(c.Endpoint) != "" &&
		strings.TrimSpace(c.AccessKey) != "" &&
		strings.TrimSpace(c.SecretKey) != "" &&
		strings.TrimSpace(c.Bucket) != ""
}

// SetDefaults registers default values with v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", ":8081")
	v.SetDefault("app_env", "local")
	v.SetDefault("llm_provider", "gemini")
	v.SetDefault("llm_rps", 1.0)
	v.SetDefault("llm_burst", 1)
	v.SetDefault("llm_timeout", "60s")
	v.SetDefault("quota_ceiling", 45)
	v.SetDefault("debate_rounds", 4)
	v.SetDefault("feedback_rounds", 2)
	v.SetDefault("debate_parallel", 1)
	v.SetDefault("credits_initial", 10)
	v.SetDefault("credits_idea_cost", 2)
	v.SetDefault("credits_feedback_cost", 1)
	v.SetDefault("artifact_s3_region", "us-east-1")
	v.SetDefault("artifact_s3_bucket", "focalai-documents")
}

// NewViper returns a viper instance with defaults and environment binding.
// Keys are the lowercase form of the environment variable names.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	return v
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromViper(NewViper()), nil
}

// FromViper builds a Config from v. Flags bound to v take precedence over
// the environment.
func FromViper(v *viper.Viper) *Config {
	env := strings.TrimSpace(v.GetString("app_env"))
	if env == "" {
		env = "local"
	}
	cfg := &Config{
		Port:        normalizePort(v.GetString("port")),
		Env:         env,
		DatabaseURL: strings.TrimSpace(v.GetString("database_url")),
		LLM:         loadLLMConfig(v),
		Engine: EngineConfig{
			QuotaCeiling:   v.GetInt("quota_ceiling"),
			Rounds:         v.GetInt("debate_rounds"),
			FeedbackRounds: v.GetInt("feedback_rounds"),
			Parallel:       v.GetInt("debate_parallel"),
		},
		Credits: CreditsConfig{
			Initial:      v.GetInt("credits_initial"),
			IdeaCost:     v.GetInt("credits_idea_cost"),
			FeedbackCost: v.GetInt("credits_feedback_cost"),
		},
		Artifact: loadArtifactConfig(v, env),
	}
	if isLocal(env) {
		applyLocalDefaults(cfg)
	}
	return cfg
}

func loadLLMConfig(v *viper.Viper) LLMConfig {
	provider := strings.ToLower(strings.TrimSpace(v.GetString("llm_provider")))
	key := ""
	switch provider {
	case "openai":
		key = v.GetString("openai_api_key")
	case "gemini":
		key = firstNonEmpty(v.GetString("gemini_api_key"), v.GetString("google_api_key"))
	}
	return LLMConfig{
		Provider: provider,
		Model:    strings.TrimSpace(v.GetString("llm_model")),
		APIKey:   strings.TrimSpace(key),
		BaseURL:  strings.TrimSpace(v.GetString("openai_base_url")),
		RPS:      v.GetFloat64("llm_rps"),
		Burst:    v.GetInt("llm_burst"),
		Timeout:  parseDuration(v.GetString("llm_timeout"), 60*time.Second),
	}
}

func loadArtifactConfig(v *viper.Viper, env string) ArtifactConfig {
	endpoint := resolveArtifactEndpoint(v, env)
	return ArtifactConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    strings.TrimSpace(v.GetString("artifact_s3_region")),
		AccessKey: firstNonEmpty(v.GetString("artifact_s3_access_key"), v.GetString("minio_root_user")),
		SecretKey: firstNonEmpty(v.GetString("artifact_s3_secret_key"), v.GetString("minio_root_password")),
		Bucket:    strings.TrimSpace(v.GetString("artifact_s3_bucket")),
		UseSSL:    resolveArtifactUseSSL(v, env),
	}
}

func resolveArtifactEndpoint(v *viper.Viper, env string) string {
	if isLocal(env) {
		return strings.TrimSpace(v.GetString("artifact_minio_endpoint"))
	}
	return strings.TrimSpace(v.GetString("artifact_s3_endpoint"))
}

func resolveArtifactUseSSL(v *viper.Viper, env string) bool {
	if isLocal(env) {
		return false
	}
	raw := strings.TrimSpace(v.GetString("artifact_s3_use_ssl"))
	if raw == "" {
		return true
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return b
}

func normalizePort(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ":8081"
	}
	if strings.Contains(p, ":") {
		return p
	}
	return ":" + p
}

func parseDuration(raw string, def time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return def
}

func isLocal(env string) bool {
	return strings.EqualFold(strings.TrimSpace(env), "local")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
