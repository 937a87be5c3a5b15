package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dwern/persona/internal/content"
	"github.com/dwern/persona/internal/fault"
)

// SkiDayTool answers questions over the seasonal ski-day record.
type SkiDayTool struct {
	store *content.Store
}

// NewSkiDayTool creates the ski-day stats tool.
func NewSkiDayTool(store *content.Store) *SkiDayTool {
	return &SkiDayTool{store: store}
}

func (t *SkiDayTool) Name() string { return "ski_day_stats" }

func (t *SkiDayTool) Description() string {
	return "Returns ski day statistics: days skied in a season, season-to-season comparisons, most-visited mountain, most recent day, or the full log. Seasons look like \"2024-25\"."
}

func (t *SkiDayTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"metric": {
				"type": "string",
				"enum": ["total", "compare", "top_location", "latest", "list"],
				"description": "Which statistic to compute. Defaults to total."
			},
			"season": {
				"type": "string",
				"description": "Season label like 2024-25. Defaults to the latest season."
			},
			"other_season": {
				"type": "string",
				"description": "Second season for compare."
			}
		}
	}`)
}

type skiDayInput struct {
	Metric      string `json:"metric"`
	Season      string `json:"season"`
	OtherSeason string `json:"other_season"`
}

func (t *SkiDayTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var in skiDayInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fault.Wrap(fault.KindTool, "parsing ski_day_stats input", err)
	}

	days, err := t.store.SkiDays()
	if err != nil {
		return "", fault.Wrap(fault.KindTool, "loading ski day record", err)
	}
	if len(days) == 0 {
		return "No ski days are on record yet.", nil
	}

	season := content.NormalizeSeason(in.Season)
	if season == "" {
		season = latestSeason(days)
	}

	switch in.Metric {
	case "", "total":
		return t.total(days, season), nil
	case "compare":
		other := content.NormalizeSeason(in.OtherSeason)
		if other == "" {
			return "", fault.New(fault.KindTool, "compare needs an other_season")
		}
		return t.compare(days, season, other), nil
	case "top_location":
		return t.topLocation(days, season), nil
	case "latest":
		return t.latest(days), nil
	case "list":
		return t.list(days, season), nil
	default:
		return "", fault.New(fault.KindTool, fmt.Sprintf("unknown metric %q", in.Metric))
	}
}

// latestSeason returns the lexicographically greatest normalized label, which
// for 20YY-YY labels is also the most recent season.
func latestSeason(days []content.SkiDay) string {
	latest := ""
	for _, d := range days {
		if d.Season > latest {
			latest = d.Season
		}
	}
	return latest
}

func seasonDays(days []content.SkiDay, season string) []content.SkiDay {
	var out []content.SkiDay
	for _, d := range days {
		if d.Season == season {
			out = append(out, d)
		}
	}
	return out
}

func (t *SkiDayTool) total(days []content.SkiDay, season string) string {
	n := len(seasonDays(days, season))
	if n == 0 {
		return fmt.Sprintf("No ski days recorded for the %s season.", season)
	}
	return fmt.Sprintf("%d ski days in the %s season.", n, season)
}

func (t *SkiDayTool) compare(days []content.SkiDay, season, other string) string {
	a, b := len(seasonDays(days, season)), len(seasonDays(days, other))
	diff := a - b
	switch {
	case diff > 0:
		return fmt.Sprintf("%s: %d days, %s: %d days — %d more in %s.", season, a, other, b, diff, season)
	case diff < 0:
		return fmt.Sprintf("%s: %d days, %s: %d days — %d more in %s.", season, a, other, b, -diff, other)
	default:
		return fmt.Sprintf("%s and %s both had %d days.", season, other, a)
	}
}

// topLocation reports the most frequent location in a season. Ties go to the
// location encountered first in the record.
func (t *SkiDayTool) topLocation(days []content.SkiDay, season string) string {
	in := seasonDays(days, season)
	if len(in) == 0 {
		return fmt.Sprintf("No ski days recorded for the %s season.", season)
	}

	counts := make(map[string]int)
	var order []string
	for _, d := range in {
		if counts[d.Location] == 0 {
			order = append(order, d.Location)
		}
		counts[d.Location]++
	}

	best := order[0]
	for _, loc := range order {
		if counts[loc] > counts[best] {
			best = loc
		}
	}
	return fmt.Sprintf("Most visited in %s: %s (%d days).", season, best, counts[best])
}

func (t *SkiDayTool) latest(days []content.SkiDay) string {
	best := days[0]
	for _, d := range days[1:] {
		if d.Date.After(best.Date) {
			best = d
		}
	}
	return fmt.Sprintf("Most recent ski day: %s at %s (%s season).",
		best.Date.Format("January 2, 2006"), best.Location, best.Season)
}

func (t *SkiDayTool) list(days []content.SkiDay, season string) string {
	in := seasonDays(days, season)
	if len(in) == 0 {
		return fmt.Sprintf("No ski days recorded for the %s season.", season)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Ski days in %s:\n", season)
	for _, d := range in {
		fmt.Fprintf(&b, "- %s: %s (day %d)\n", d.Date.Format("2006-01-02"), d.Location, d.Count)
	}
	return strings.TrimRight(b.String(), "\n")
}
