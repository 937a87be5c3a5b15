package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dwern/persona/internal/fault"
	"github.com/dwern/persona/internal/logging"
)

const (
	spotifyAPIBase  = "https://api.spotify.com/v1"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// SpotifyTool fetches recently played tracks from the Spotify API.
type SpotifyTool struct {
	creds   Credentials
	api     *apiClient
	baseURL string
}

// NewSpotifyTool creates the Spotify listening tool. An empty baseURL uses the real API.
func NewSpotifyTool(creds Credentials, baseURL string, log *logging.Logger) *SpotifyTool {
	if creds.TokenURL == "" {
		creds.TokenURL = spotifyTokenURL
	}
	if baseURL == "" {
		baseURL = spotifyAPIBase
	}
	return &SpotifyTool{
		creds:   creds,
		api:     newAPIClient(log.Sub("spotify")),
		baseURL: baseURL,
	}
}

func (t *SpotifyTool) Name() string { return "spotify_listening" }

func (t *SpotifyTool) Description() string {
	return "Returns what I've been listening to lately on Spotify: recent tracks and artists. Use this for questions about my music taste or current rotation."
}

func (t *SpotifyTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"limit": {
				"type": "integer",
				"description": "How many recent tracks to return (1-50). Defaults to 10."
			}
		}
	}`)
}

type spotifyInput struct {
	Limit int `json:"limit"`
}

type spotifyRecentlyPlayed struct {
	Items []struct {
		Track struct {
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Name string `json:"name"`
			} `json:"album"`
		} `json:"track"`
	} `json:"items"`
}

func (t *SpotifyTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	if !t.creds.Configured() {
		return unconfiguredMessage("Spotify"), nil
	}

	var in spotifyInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fault.Wrap(fault.KindTool, "parsing spotify_listening input", err)
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}

	bearer, err := t.creds.Bearer(ctx)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/me/player/recently-played?limit=%d", t.baseURL, limit)
	body, err := t.api.getJSON(ctx, url, bearer)
	if err != nil {
		return "", err
	}

	var played spotifyRecentlyPlayed
	if err := json.Unmarshal(body, &played); err != nil {
		return "", fault.Wrap(fault.KindTool, "parsing Spotify response", err)
	}
	if len(played.Items) == 0 {
		return "Nothing played recently on Spotify.", nil
	}

	var b strings.Builder
	b.WriteString("Recently played:\n")
	for _, item := range played.Items {
		artists := make([]string, 0, len(item.Track.Artists))
		for _, a := range item.Track.Artists {
			artists = append(artists, a.Name)
		}
		fmt.Fprintf(&b, "- %s — %s (%s)\n", item.Track.Name, strings.Join(artists, ", "), item.Track.Album.Name)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
