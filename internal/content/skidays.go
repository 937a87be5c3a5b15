package content

import (
	"encoding/csv"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SkiDay is one row of the seasonal activity record. Count is the cumulative
// day count within the season, as authored in the source file.
type SkiDay struct {
	Date     time.Time
	Location string
	Season   string // normalized label, e.g. "2024-25"
	Count    int
}

// shortSeasonRe matches authored labels of the form 24-'25.
var shortSeasonRe = regexp.MustCompile(`^(\d{2})-'?(\d{2})$`)

// NormalizeSeason canonicalizes a season label: "24-'25" becomes "2024-25".
// Labels already in 20YY-YY form (or anything unrecognized) pass through with
// surrounding whitespace trimmed.
func NormalizeSeason(label string) string {
	label = strings.TrimSpace(label)
	if m := shortSeasonRe.FindStringSubmatch(label); m != nil {
		return "20" + m[1] + "-" + m[2]
	}
	return label
}

// loadSkiDays parses the CSV record: date,location,season,count with a header
// row. Dates are YYYY-MM-DD.
func loadSkiDays(path string) ([]SkiDay, error) {
	if path == "" {
		return nil, fmt.Errorf("ski day record path not configured")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ski day record: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing ski day record: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("ski day record has no data rows")
	}

	days := make([]SkiDay, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) < 4 {
			return nil, fmt.Errorf("ski day record row %d: expected 4 columns, got %d", i+2, len(row))
		}
		date, err := time.Parse("2006-01-02", strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("ski day record row %d: %w", i+2, err)
		}
		count, err := strconv.Atoi(strings.TrimSpace(row[3]))
		if err != nil {
			return nil, fmt.Errorf("ski day record row %d: %w", i+2, err)
		}
		days = append(days, SkiDay{
			Date:     date,
			Location: strings.TrimSpace(row[1]),
			Season:   NormalizeSeason(row[2]),
			Count:    count,
		})
	}
	return days, nil
}
