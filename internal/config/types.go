// Package config loads and validates the persona configuration file.
package config

import "fmt"

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server,omitempty"`
	LLM       LLMConfig       `yaml:"llm,omitempty"`
	Content   ContentConfig   `yaml:"content,omitempty"`
	Providers ProvidersConfig `yaml:"providers,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// ServerConfig controls the gateway HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port,omitempty"`
	Bind           string   `yaml:"bind,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

// LLMConfig selects the model provider.
type LLMConfig struct {
	APIKey    string `yaml:"apiKey,omitempty"`
	Model     string `yaml:"model,omitempty"`
	MaxTokens int    `yaml:"maxTokens,omitempty"`
}

// ContentConfig locates the static personal documents.
type ContentConfig struct {
	ProfilePath string `yaml:"profilePath,omitempty"`
	PhotosPath  string `yaml:"photosPath,omitempty"`
	SkiDaysPath string `yaml:"skiDaysPath,omitempty"`
}

// ProvidersConfig holds third-party integration credentials. A provider with
// no credentials is simply unconfigured; its tool reports that softly.
type ProvidersConfig struct {
	Strava    OAuthProviderConfig `yaml:"strava,omitempty"`
	Spotify   OAuthProviderConfig `yaml:"spotify,omitempty"`
	Hardcover TokenProviderConfig `yaml:"hardcover,omitempty"`
}

// OAuthProviderConfig is the credential ladder for OAuth providers: a static
// access token wins, else the refresh token is exchanged with the client pair.
type OAuthProviderConfig struct {
	AccessToken  string `yaml:"accessToken,omitempty"`
	RefreshToken string `yaml:"refreshToken,omitempty"`
	ClientID     string `yaml:"clientId,omitempty"`
	ClientSecret string `yaml:"clientSecret,omitempty"`
}

// TokenProviderConfig is a plain bearer-token provider.
type TokenProviderConfig struct {
	Token string `yaml:"token,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"`
}

// ConfigError represents a configuration problem.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8791,
			Bind: "127.0.0.1",
		},
		LLM: LLMConfig{
			Model:     "claude-sonnet-4-5",
			MaxTokens: 1024,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks the parts required to serve traffic.
func (c Config) Validate() error {
	if c.LLM.APIKey == "" {
		return &ConfigError{Message: "llm.apiKey is required"}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigError{Message: fmt.Sprintf("server.port %d out of range", c.Server.Port)}
	}
	return nil
}
