package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dwern/persona/internal/content"
)

func skiStore(t *testing.T, csv string) *content.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ski.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))
	return content.NewStore("", "", path)
}

const testCSV = `date,location,season,count
2024-12-14,Alpental,24-'25,1
2025-01-03,Crystal,24-'25,2
2025-02-10,Alpental,24-'25,3
2024-01-15,Baker,23-'24,3
2024-02-20,Baker,23-'24,4
`

func runSki(t *testing.T, tool *SkiDayTool, input string) string {
	t.Helper()
	out, err := tool.Execute(context.Background(), json.RawMessage(input))
	require.NoError(t, err)
	return out
}

func TestSkiDayTotalDefaultsToLatestSeason(t *testing.T) {
	tool := NewSkiDayTool(skiStore(t, testCSV))
	// Two seasons present, none specified: the lexicographically greatest
	// normalized label (2024-25) wins.
	out := runSki(t, tool, `{"metric":"total"}`)
	assert.Contains(t, out, "3 ski days")
	assert.Contains(t, out, "2024-25")
}

func TestSkiDayTotalAcceptsShortLabels(t *testing.T) {
	tool := NewSkiDayTool(skiStore(t, testCSV))
	out := runSki(t, tool, `{"metric":"total","season":"23-'24"}`)
	assert.Contains(t, out, "2 ski days")
	assert.Contains(t, out, "2023-24")
}

func TestSkiDayTopLocationTieBreaksByFirstEncountered(t *testing.T) {
	// A appears twice, B once: A wins with count 2.
	csv := "date,location,season,count\n" +
		"2025-01-01,A,24-'25,1\n" +
		"2025-01-02,B,24-'25,2\n" +
		"2025-01-03,A,24-'25,3\n"
	tool := NewSkiDayTool(skiStore(t, csv))
	out := runSki(t, tool, `{"metric":"top_location"}`)
	assert.Contains(t, out, "A (2 days)")

	// Pure tie: first-encountered location wins.
	tie := "date,location,season,count\n" +
		"2025-01-01,B,24-'25,1\n" +
		"2025-01-02,A,24-'25,2\n"
	tool = NewSkiDayTool(skiStore(t, tie))
	out = runSki(t, tool, `{"metric":"top_location"}`)
	assert.Contains(t, out, "B (1 days)")
}

func TestSkiDayCompare(t *testing.T) {
	tool := NewSkiDayTool(skiStore(t, testCSV))
	out := runSki(t, tool, `{"metric":"compare","season":"2024-25","other_season":"2023-24"}`)
	assert.Contains(t, out, "2024-25: 3 days")
	assert.Contains(t, out, "2023-24: 2 days")
	assert.Contains(t, out, "1 more in 2024-25")
}

func TestSkiDayCompareRequiresOtherSeason(t *testing.T) {
	tool := NewSkiDayTool(skiStore(t, testCSV))
	_, err := tool.Execute(context.Background(), json.RawMessage(`{"metric":"compare"}`))
	assert.Error(t, err)
}

func TestSkiDayLatest(t *testing.T) {
	tool := NewSkiDayTool(skiStore(t, testCSV))
	out := runSki(t, tool, `{"metric":"latest"}`)
	assert.Contains(t, out, "February 10, 2025")
	assert.Contains(t, out, "Alpental")
}

func TestSkiDayList(t *testing.T) {
	tool := NewSkiDayTool(skiStore(t, testCSV))
	out := runSki(t, tool, `{"metric":"list","season":"2023-24"}`)
	assert.Contains(t, out, "2024-01-15: Baker")
	assert.Contains(t, out, "2024-02-20: Baker")
	assert.NotContains(t, out, "Alpental")
}

func TestSkiDayUnknownMetric(t *testing.T) {
	tool := NewSkiDayTool(skiStore(t, testCSV))
	_, err := tool.Execute(context.Background(), json.RawMessage(`{"metric":"average"}`))
	assert.Error(t, err)
}

func TestSkiDayUnknownSeasonIsSoftText(t *testing.T) {
	tool := NewSkiDayTool(skiStore(t, testCSV))
	out := runSki(t, tool, `{"metric":"total","season":"2019-20"}`)
	assert.Contains(t, out, "No ski days recorded")
}
