package config

// applyLocalDefaults fills settings the docker-compose setup provides
// implicitly. Values already set are kept.
func applyLocalDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "fake"
	}
	if cfg.LLM.APIKey == "" && cfg.LLM.Provider != "fake" {
		// no key locally means the offline model
		cfg.LLM.Provider = "fake"
	}
	if cfg.Artifact.Endpoint != "" {
		cfg.Artifact.AccessKey = firstNonEmpty(cfg.Artifact.AccessKey, "focalai")
		cfg.Artifact.SecretKey = firstNonEmpty(cfg.Artifact.SecretKey, "focalai123")
	}
}
