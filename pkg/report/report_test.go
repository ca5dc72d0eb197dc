package report_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/littlematchboy/gitstats/pkg/report"
	"github.com/littlematchboy/gitstats/pkg/stats"
)

// 2024-01-01 is a Monday.
const (
	mon1000 int64 = 1704103200
	mon1530 int64 = 1704123000
	tue1000 int64 = 1704189600
)

func fixture(t *testing.T, refine bool) *stats.Statistics {
	t.Helper()

	st := stats.New(time.UTC)
	st.ProjectName = "demo"

	for _, c := range []stats.CommitRecord{
		{Timestamp: mon1000, Author: "Alice", Domain: "example.com", TimeZone: "+0000"},
		{Timestamp: mon1530, Author: "Bob", Domain: "corp.org", TimeZone: "+0000"},
		{Timestamp: tue1000, Author: "Alice", Domain: "example.com", TimeZone: "+0000"},
	} {
		require.NoError(t, st.AddRevision(c))
	}

	require.NoError(t, st.AddAuthors(2))
	require.NoError(t, st.AddCommits(3))
	require.NoError(t, st.SetFileCount(mon1000, 1))
	require.NoError(t, st.SetFileCount(mon1530, 2))
	require.NoError(t, st.SetFileCount(tue1000, 2))
	require.NoError(t, st.AddFile("go", 13))
	require.NoError(t, st.AddExtensionLines("go", 6))
	require.NoError(t, st.AddFile("", 4))
	require.NoError(t, st.AddExtensionLines("", 3))
	require.NoError(t, st.AddLinearChange(mon1000, stats.Change{Files: 1, Insertions: 3, Lines: 3}))
	require.NoError(t, st.AddLinearChange(mon1530, stats.Change{Files: 1, Insertions: 2, Lines: 5}))
	require.NoError(t, st.AddLinearChange(tue1000, stats.Change{Files: 1, Insertions: 1, Deletions: 1, Lines: 5}))
	require.NoError(t, st.AddTotalLines(5))
	require.NoError(t, st.AddAuthorChange("Alice", mon1000, 3, 0))
	require.NoError(t, st.AddAuthorChange("Bob", mon1530, 2, 0))
	require.NoError(t, st.AddAuthorChange("Alice", tue1000, 1, 1))
	require.NoError(t, st.AddTag(stats.TagInfo{Name: "v1.0", Hash: "h1", Stamp: mon1530}))
	require.NoError(t, st.AddTagCommits("v1.0", "Alice", 1))
	require.NoError(t, st.AddTagCommits("v1.0", "Bob", 1))

	if refine {
		st.Refine()
	}

	return st
}

func defaultOptions() report.Options {
	return report.Options{
		MaxAuthors: 20,
		MaxDomains: 10,
		AuthorsTop: 5,
		Generated:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func readDat(t *testing.T, dir, name string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)

	return string(data)
}

func TestWriteChartData_Columns(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, report.WriteChartData(dir, fixture(t, true), defaultOptions()))

	hours := strings.Split(strings.TrimSuffix(readDat(t, dir, report.FileHourOfDay), "\n"), "\n")
	require.Len(t, hours, 24)
	assert.Equal(t, "0 0", hours[0])
	assert.Equal(t, "10 2", hours[10])
	assert.Equal(t, "15 1", hours[15])

	assert.Equal(t, "1 Mon 2\n2 Tue 1\n3 Wed 0\n4 Thu 0\n5 Fri 0\n6 Sat 0\n7 Sun 0\n",
		readDat(t, dir, report.FileDayOfWeek))
	assert.Equal(t, "example.com 1 2\ncorp.org 2 1\n", readDat(t, dir, report.FileDomains))

	months := strings.Split(strings.TrimSuffix(readDat(t, dir, report.FileMonthOfYear), "\n"), "\n")
	require.Len(t, months, 12)
	assert.Equal(t, "1 3", months[0])
	assert.Equal(t, "12 0", months[11])

	assert.Equal(t, "2024-01 3\n", readDat(t, dir, report.FileCommitsByYearMon))
	assert.Equal(t, "2024 3\n", readDat(t, dir, report.FileCommitsByYear))
	assert.Equal(t, "2024-01-01 1\n2024-01-01 2\n2024-01-02 2\n", readDat(t, dir, report.FileFilesByDate))
	assert.Equal(t, "1704103200 3\n1704123000 5\n1704189600 5\n", readDat(t, dir, report.FileLinesOfCode))
	assert.Equal(t, "1704103200 3 0\n1704123000 3 2\n1704189600 4 2\n", readDat(t, dir, report.FileLinesByAuthor))
	assert.Equal(t, "1704103200 1 0\n1704123000 1 1\n1704189600 2 1\n", readDat(t, dir, report.FileCommitsByAuthor))
}

func TestWriteChartData_LimitsAuthorsAndDomains(t *testing.T) {
	t.Parallel()

	opts := defaultOptions()
	opts.MaxAuthors = 1
	opts.MaxDomains = 1

	dir := t.TempDir()
	require.NoError(t, report.WriteChartData(dir, fixture(t, true), opts))

	assert.Equal(t, "1704103200 3\n1704123000 3\n1704189600 4\n", readDat(t, dir, report.FileLinesByAuthor))
	assert.Equal(t, "example.com 1 2\n", readDat(t, dir, report.FileDomains))
}

func TestWriteChartData_EmptyModel(t *testing.T) {
	t.Parallel()

	st := stats.New(time.UTC)
	st.Refine()

	dir := t.TempDir()
	require.NoError(t, report.WriteChartData(dir, st, defaultOptions()))

	assert.Empty(t, readDat(t, dir, report.FileLinesOfCode))
	assert.Empty(t, readDat(t, dir, report.FileDomains))
	assert.Contains(t, readDat(t, dir, report.FileDayOfWeek), "7 Sun 0")
}

func TestGenerate_WritesAllOutputs(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "demo", "all")
	require.NoError(t, report.Generate(dir, fixture(t, true), defaultOptions()))

	for _, name := range []string{
		report.FileHourOfDay, report.FileDayOfWeek, report.FileDomains, report.FileMonthOfYear,
		report.FileCommitsByYearMon, report.FileCommitsByYear, report.FileFilesByDate,
		report.FileLinesOfCode, report.FileLinesByAuthor, report.FileCommitsByAuthor,
		report.FileIndex, report.FileStatsJSON, report.FileStatsYAML,
	} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	var dump map[string]any

	require.NoError(t, json.Unmarshal([]byte(readDat(t, dir, report.FileStatsJSON)), &dump))
	assert.InDelta(t, 3, dump["total_commits"], 0)
	assert.Equal(t, "demo", dump["project_name"])

	assert.Contains(t, readDat(t, dir, report.FileStatsYAML), "total_commits: 3")

	page := readDat(t, dir, report.FileIndex)
	assert.Contains(t, page, "GitStats - demo")
	assert.Contains(t, page, "echarts")
}

func TestGenerate_RequiresRefinedModel(t *testing.T) {
	t.Parallel()

	err := report.Generate(t.TempDir(), fixture(t, false), defaultOptions())
	require.ErrorIs(t, err, stats.ErrNotRefined)
}

func TestWriteSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, report.WriteSummary(&buf, fixture(t, true), defaultOptions()))

	out := buf.String()
	assert.Contains(t, out, "GitStats - demo")
	assert.Contains(t, out, "2024-01-01 to 2024-01-02")
	assert.Contains(t, out, "Alice")
	assert.Contains(t, out, "2 (66.67%)")
	assert.Contains(t, out, "example.com")
	assert.Contains(t, out, "v1.0")
	assert.Contains(t, out, "Alice (1), Bob (1)")
	assert.Contains(t, out, "(none)")
}

func TestWriteSummary_RequiresRefinedModel(t *testing.T) {
	t.Parallel()

	err := report.WriteSummary(&bytes.Buffer{}, fixture(t, false), defaultOptions())
	require.ErrorIs(t, err, stats.ErrNotRefined)
}
