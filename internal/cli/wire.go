package cli

import (
	"github.com/dwern/persona/internal/agent"
	"github.com/dwern/persona/internal/config"
	"github.com/dwern/persona/internal/content"
	"github.com/dwern/persona/internal/llm"
	"github.com/dwern/persona/internal/logging"
	"github.com/dwern/persona/internal/tools"
)

// buildRegistry assembles the tool registry from configuration. Unconfigured
// providers still register their tools; those tools answer softly.
func buildRegistry(cfg config.Config, log *logging.Logger) *tools.Registry {
	store := content.NewStore(
		cfg.Content.ProfilePath,
		cfg.Content.PhotosPath,
		cfg.Content.SkiDaysPath,
	)

	registry := tools.NewRegistry()
	registry.Register(tools.NewProfileTool(store))
	registry.Register(tools.NewPhotoTool(store))
	registry.Register(tools.NewSkiDayTool(store))
	registry.Register(tools.NewStravaTool(tools.Credentials{
		AccessToken:  cfg.Providers.Strava.AccessToken,
		RefreshToken: cfg.Providers.Strava.RefreshToken,
		ClientID:     cfg.Providers.Strava.ClientID,
		ClientSecret: cfg.Providers.Strava.ClientSecret,
	}, "", log))
	registry.Register(tools.NewSpotifyTool(tools.Credentials{
		AccessToken:  cfg.Providers.Spotify.AccessToken,
		RefreshToken: cfg.Providers.Spotify.RefreshToken,
		ClientID:     cfg.Providers.Spotify.ClientID,
		ClientSecret: cfg.Providers.Spotify.ClientSecret,
	}, "", log))
	registry.Register(tools.NewHardcoverTool(cfg.Providers.Hardcover.Token, "", log))
	return registry
}

// buildOrchestrator wires the orchestrator used by both serve and chat.
func buildOrchestrator(cfg config.Config, log *logging.Logger) (*agent.Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := llm.NewAnthropicClient(cfg.LLM.APIKey, cfg.LLM.Model)
	registry := buildRegistry(cfg, log)

	return agent.New(agent.Config{
		Client:    client,
		Registry:  registry,
		MaxTokens: cfg.LLM.MaxTokens,
	}, log), nil
}
