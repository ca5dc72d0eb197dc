package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/littlematchboy/gitstats/pkg/stats"
)

// Chart-data file names. Column layouts are read by external plotting
// scripts and must not change.
const (
	FileHourOfDay        = "hour_of_day.dat"
	FileDayOfWeek        = "day_of_week.dat"
	FileDomains          = "domains.dat"
	FileMonthOfYear      = "month_of_year.dat"
	FileCommitsByYearMon = "commits_by_year_month.dat"
	FileCommitsByYear    = "commits_by_year.dat"
	FileFilesByDate      = "files_by_date.dat"
	FileLinesOfCode      = "lines_of_code.dat"
	FileLinesByAuthor    = "lines_of_code_by_author.dat"
	FileCommitsByAuthor  = "commits_by_author.dat"
	hoursPerDay          = 24
	daysPerWeek          = 7
	monthsPerYear        = 12
)

// Weekdays are the day names of day_of_week.dat, Monday first.
var Weekdays = [daysPerWeek]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

type datWriter struct {
	name  string
	write func(w io.Writer, st *stats.Statistics, opts Options) error
}

var datWriters = []datWriter{
	{FileHourOfDay, writeHourOfDay},
	{FileDayOfWeek, writeDayOfWeek},
	{FileDomains, writeDomains},
	{FileMonthOfYear, writeMonthOfYear},
	{FileCommitsByYearMon, writeCommitsByYearMonth},
	{FileCommitsByYear, writeCommitsByYear},
	{FileFilesByDate, writeFilesByDate},
	{FileLinesOfCode, writeLinesOfCode},
	{FileLinesByAuthor, writeLinesByAuthor},
	{FileCommitsByAuthor, writeCommitsByAuthor},
}

// WriteChartData writes every chart-data file into dir.
func WriteChartData(dir string, st *stats.Statistics, opts Options) error {
	for _, dw := range datWriters {
		err := writeFile(filepath.Join(dir, dw.name), func(w io.Writer) error {
			return dw.write(w, st, opts)
		})
		if err != nil {
			return fmt.Errorf("write %s: %w", dw.name, err)
		}
	}

	return nil
}

func writeFile(path string, fn func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(f)

	err = fn(bw)
	if err == nil {
		err = bw.Flush()
	}

	closeErr := f.Close()
	if err != nil {
		return err
	}

	return closeErr
}

func writeHourOfDay(w io.Writer, st *stats.Statistics, _ Options) error {
	for hour := range hoursPerDay {
		_, err := fmt.Fprintf(w, "%d %d\n", hour, st.ActivityByHourOfDay[hour])
		if err != nil {
			return err
		}
	}

	return nil
}

func writeDayOfWeek(w io.Writer, st *stats.Statistics, _ Options) error {
	for day := range daysPerWeek {
		_, err := fmt.Fprintf(w, "%d %s %d\n", day+1, Weekdays[day], st.ActivityByDayOfWeek[day])
		if err != nil {
			return err
		}
	}

	return nil
}

func writeDomains(w io.Writer, st *stats.Statistics, opts Options) error {
	for i, dc := range st.TopDomains(opts.MaxDomains) {
		_, err := fmt.Fprintf(w, "%s %d %d\n", dc.Domain, i+1, dc.Commits)
		if err != nil {
			return err
		}
	}

	return nil
}

func writeMonthOfYear(w io.Writer, st *stats.Statistics, _ Options) error {
	for month := 1; month <= monthsPerYear; month++ {
		_, err := fmt.Fprintf(w, "%d %d\n", month, st.ActivityByMonthOfYear[month])
		if err != nil {
			return err
		}
	}

	return nil
}

func writeCommitsByYearMonth(w io.Writer, st *stats.Statistics, _ Options) error {
	months := make([]string, 0, len(st.CommitsByMonth))
	for month := range st.CommitsByMonth {
		months = append(months, month)
	}

	slices.Sort(months)

	for _, month := range months {
		_, err := fmt.Fprintf(w, "%s %d\n", month, st.CommitsByMonth[month])
		if err != nil {
			return err
		}
	}

	return nil
}

func writeCommitsByYear(w io.Writer, st *stats.Statistics, _ Options) error {
	years := make([]int, 0, len(st.CommitsByYear))
	for year := range st.CommitsByYear {
		years = append(years, year)
	}

	slices.Sort(years)

	for _, year := range years {
		_, err := fmt.Fprintf(w, "%d %d\n", year, st.CommitsByYear[year])
		if err != nil {
			return err
		}
	}

	return nil
}

func writeFilesByDate(w io.Writer, st *stats.Statistics, _ Options) error {
	for _, stamp := range stats.SortedStamps(st.FilesByStamp) {
		day := st.Time(stamp).Format(stats.DateLayout)

		_, err := fmt.Fprintf(w, "%s %d\n", day, st.FilesByStamp[stamp])
		if err != nil {
			return err
		}
	}

	return nil
}

func writeLinesOfCode(w io.Writer, st *stats.Statistics, _ Options) error {
	for _, stamp := range stats.SortedStamps(st.ChangesByDate) {
		_, err := fmt.Fprintf(w, "%d %d\n", stamp, st.ChangesByDate[stamp].Lines)
		if err != nil {
			return err
		}
	}

	return nil
}

func writeLinesByAuthor(w io.Writer, st *stats.Statistics, opts Options) error {
	return writeAuthorSeries(w, st, opts, func(c stats.AuthorChange) int { return c.LinesAdded })
}

func writeCommitsByAuthor(w io.Writer, st *stats.Statistics, opts Options) error {
	return writeAuthorSeries(w, st, opts, func(c stats.AuthorChange) int { return c.Commits })
}

// writeAuthorSeries writes one row per stamp with a column per plotted
// author. An author without a point at a stamp repeats their last value.
func writeAuthorSeries(w io.Writer, st *stats.Statistics, opts Options, value func(stats.AuthorChange) int) error {
	authors := st.AuthorsForPlot(opts.MaxAuthors)
	last := make([]int, len(authors))

	for _, stamp := range stats.SortedStamps(st.ChangesByDateByAuthor) {
		byAuthor := st.ChangesByDateByAuthor[stamp]

		_, err := fmt.Fprintf(w, "%d", stamp)
		if err != nil {
			return err
		}

		for i, author := range authors {
			if change, ok := byAuthor[author]; ok {
				last[i] = value(change)
			}

			_, err = fmt.Fprintf(w, " %d", last[i])
			if err != nil {
				return err
			}
		}

		_, err = io.WriteString(w, "\n")
		if err != nil {
			return err
		}
	}

	return nil
}
