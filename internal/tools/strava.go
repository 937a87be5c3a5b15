package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dwern/persona/internal/fault"
	"github.com/dwern/persona/internal/logging"
)

const (
	stravaAPIBase  = "https://www.strava.com/api/v3"
	stravaTokenURL = "https://www.strava.com/oauth/token"
)

// StravaTool fetches recent rides from the Strava API.
type StravaTool struct {
	creds   Credentials
	api     *apiClient
	baseURL string
}

// NewStravaTool creates the Strava rides tool. An empty baseURL uses the real API.
func NewStravaTool(creds Credentials, baseURL string, log *logging.Logger) *StravaTool {
	if creds.TokenURL == "" {
		creds.TokenURL = stravaTokenURL
	}
	if baseURL == "" {
		baseURL = stravaAPIBase
	}
	return &StravaTool{
		creds:   creds,
		api:     newAPIClient(log.Sub("strava")),
		baseURL: baseURL,
	}
}

func (t *StravaTool) Name() string { return "strava_rides" }

func (t *StravaTool) Description() string {
	return "Returns my recent bike rides from Strava: name, date, distance, ride time, and climbing. Use this for questions about cycling or recent activity."
}

func (t *StravaTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"count": {
				"type": "integer",
				"description": "How many recent rides to return (1-30). Defaults to 5."
			}
		}
	}`)
}

type stravaInput struct {
	Count int `json:"count"`
}

type stravaActivity struct {
	Name               string  `json:"name"`
	Type               string  `json:"type"`
	StartDateLocal     string  `json:"start_date_local"`
	Distance           float64 `json:"distance"`
	MovingTime         int     `json:"moving_time"`
	TotalElevationGain float64 `json:"total_elevation_gain"`
}

func (t *StravaTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	if !t.creds.Configured() {
		return unconfiguredMessage("Strava"), nil
	}

	var in stravaInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fault.Wrap(fault.KindTool, "parsing strava_rides input", err)
	}
	count := in.Count
	if count <= 0 {
		count = 5
	}
	if count > 30 {
		count = 30
	}

	bearer, err := t.creds.Bearer(ctx)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/athlete/activities?per_page=%d", t.baseURL, count)
	body, err := t.api.getJSON(ctx, url, bearer)
	if err != nil {
		return "", err
	}

	var activities []stravaActivity
	if err := json.Unmarshal(body, &activities); err != nil {
		return "", fault.Wrap(fault.KindTool, "parsing Strava response", err)
	}
	if len(activities) == 0 {
		return "No recent rides on Strava.", nil
	}

	var b strings.Builder
	b.WriteString("Recent rides:\n")
	for _, a := range activities {
		fmt.Fprintf(&b, "- %s (%s): %.1f km, %s moving, %.0f m climbed\n",
			a.Name, formatStravaDate(a.StartDateLocal), a.Distance/1000,
			formatDuration(a.MovingTime), a.TotalElevationGain)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func formatStravaDate(s string) string {
	if t, err := time.Parse("2006-01-02T15:04:05Z", s); err == nil {
		return t.Format("Jan 2")
	}
	return s
}

func formatDuration(seconds int) string {
	d := time.Duration(seconds) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%02dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
