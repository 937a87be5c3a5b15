package config

import (
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

const defaultBaseDir = ".persona"

// DefaultPath resolves the config file location. PERSONA_HOME overrides the
// default base directory.
func DefaultPath() (string, error) {
	base := os.Getenv("PERSONA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, defaultBaseDir)
	}
	return filepath.Join(base, "config.yaml"), nil
}

// envVarPattern matches ${VAR_NAME} references in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} references with environment values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val, ok := os.LookupEnv(match[2 : len(match)-1]); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment references in credential fields
// so secrets can be stored as ${ENV_VAR} instead of plaintext.
func expandSensitiveFields(cfg *Config) {
	cfg.LLM.APIKey = expandEnvVars(cfg.LLM.APIKey)
	for _, p := range []*OAuthProviderConfig{&cfg.Providers.Strava, &cfg.Providers.Spotify} {
		p.AccessToken = expandEnvVars(p.AccessToken)
		p.RefreshToken = expandEnvVars(p.RefreshToken)
		p.ClientID = expandEnvVars(p.ClientID)
		p.ClientSecret = expandEnvVars(p.ClientSecret)
	}
	cfg.Providers.Hardcover.Token = expandEnvVars(cfg.Providers.Hardcover.Token)
}

// applyEnvOverrides maps a few PERSONA_* variables over the file config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PERSONA_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("PERSONA_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("PERSONA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Load reads the config file and returns a merged Config. A missing file
// produces defaults plus environment overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// applyDefaults fills zero-valued fields after unmarshalling.
func applyDefaults(cfg *Config) {
	def := Defaults()
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.Bind == "" {
		cfg.Server.Bind = def.Server.Bind
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = def.LLM.Model
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = def.LLM.MaxTokens
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
}
