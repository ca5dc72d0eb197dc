package report

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/littlematchboy/gitstats/pkg/stats"
)

const (
	percent    = 100
	hoursInDay = 24
)

func newTable(w io.Writer, header table.Row) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.AppendHeader(header)

	return tbl
}

func pct(part, total int) string {
	if total == 0 {
		return "0.00%"
	}

	return fmt.Sprintf("%.2f%%", float64(part)*percent/float64(total))
}

func days(d time.Duration) string {
	return fmt.Sprintf("%d days", int(d.Hours()/hoursInDay))
}

// WriteSummary prints a colored text summary of a refined model.
func WriteSummary(w io.Writer, st *stats.Statistics, ro Options) error {
	if !st.Refined() {
		return stats.ErrNotRefined
	}

	heading := color.New(color.Bold, color.FgCyan)
	section := color.New(color.Bold)

	heading.Fprintf(w, "GitStats - %s\n\n", st.ProjectName) //nolint:errcheck // best effort console output.

	writeGeneral(w, st, ro)

	section.Fprintln(w, "\nAuthors") //nolint:errcheck // best effort console output.
	writeAuthors(w, st, ro)

	if len(st.AuthorOfYear) > 0 {
		section.Fprintln(w, "\nAuthor of Year") //nolint:errcheck // best effort console output.
		writeAuthorOfYear(w, st, ro)
	}

	if len(st.Extensions) > 0 {
		section.Fprintln(w, "\nFiles by Extension") //nolint:errcheck // best effort console output.
		writeExtensions(w, st)
	}

	if len(st.Tags) > 0 {
		section.Fprintln(w, "\nTags") //nolint:errcheck // best effort console output.
		writeTags(w, st, ro)
	}

	if len(st.Domains) > 0 {
		section.Fprintln(w, "\nDomains") //nolint:errcheck // best effort console output.
		writeDomainTable(w, st, ro)
	}

	return nil
}

func writeGeneral(w io.Writer, st *stats.Statistics, ro Options) {
	tbl := newTable(w, table.Row{"Metric", "Value"})

	first, last := "-", "-"
	if st.TotalCommits > 0 {
		first = st.Time(st.FirstCommitStamp).Format(stats.DateLayout)
		last = st.Time(st.LastCommitStamp).Format(stats.DateLayout)
	}

	tbl.AppendRows([]table.Row{
		{"Project", st.ProjectName},
		{"Generated", ro.generated().Format(time.DateTime)},
		{"Report period", first + " to " + last},
		{"Age", days(st.Age())},
		{"Active days", humanize.Comma(int64(len(st.ActiveDays)))},
		{"Total files", humanize.Comma(int64(st.TotalFiles))},
		{"Total size", humanize.Bytes(uint64(max(st.TotalSize, 0)))},
		{"Total lines of code", humanize.Comma(int64(st.TotalLines))},
		{"Lines added", humanize.Comma(int64(st.TotalLinesAdded))},
		{"Lines removed", humanize.Comma(int64(st.TotalLinesRemoved))},
		{"Total commits", humanize.Comma(int64(st.TotalCommits))},
		{"Commits per active day", fmt.Sprintf("%.1f", st.CommitsPerDay())},
		{"Authors", humanize.Comma(int64(st.TotalAuthors))},
		{"Commits per author", fmt.Sprintf("%.1f", st.CommitsPerAuthor())},
	})
	tbl.Render()
}

func writeAuthors(w io.Writer, st *stats.Statistics, ro Options) {
	tbl := newTable(w, table.Row{"#", "Author", "Commits (%)", "+ lines", "- lines", "First", "Last", "Age", "Active days"})

	for _, name := range st.TopAuthors(ro.MaxAuthors) {
		a := st.Authors[name]

		tbl.AppendRow(table.Row{
			a.PlaceByCommits,
			name,
			fmt.Sprintf("%d (%.2f%%)", a.Commits, a.CommitsFrac),
			humanize.Comma(int64(a.LinesAdded)),
			humanize.Comma(int64(a.LinesRemoved)),
			a.DateFirst,
			a.DateLast,
			days(a.TimeDelta),
			len(a.ActiveDays),
		})
	}

	if rest := len(st.Authors) - ro.MaxAuthors; ro.MaxAuthors >= 0 && rest > 0 {
		tbl.AppendFooter(table.Row{"", fmt.Sprintf("%d more authors", rest)})
	}

	tbl.Render()
}

// topOf ranks the authors of one period, most commits first.
func topOf(byAuthor map[string]int) []string {
	names := slices.Collect(maps.Keys(byAuthor))

	slices.SortFunc(names, func(a, b string) int {
		return cmp.Or(cmp.Compare(byAuthor[b], byAuthor[a]), cmp.Compare(a, b))
	})

	return names
}

func writeAuthorOfYear(w io.Writer, st *stats.Statistics, ro Options) {
	tbl := newTable(w, table.Row{"Year", "Author", "Commits (%)", "Next top", "Authors"})

	years := slices.Sorted(maps.Keys(st.AuthorOfYear))
	slices.Reverse(years)

	for _, year := range years {
		byAuthor := st.AuthorOfYear[year]
		ranked := topOf(byAuthor)
		if len(ranked) == 0 {
			continue
		}

		best := ranked[0]

		next := ranked[1:]
		if ro.AuthorsTop >= 0 && len(next) > ro.AuthorsTop {
			next = next[:ro.AuthorsTop]
		}

		tbl.AppendRow(table.Row{
			year,
			best,
			fmt.Sprintf("%d (%s of %d)", byAuthor[best], pct(byAuthor[best], st.CommitsByYear[year]), st.CommitsByYear[year]),
			strings.Join(next, ", "),
			len(byAuthor),
		})
	}

	tbl.Render()
}

func writeExtensions(w io.Writer, st *stats.Statistics) {
	tbl := newTable(w, table.Row{"Extension", "Language", "Files (%)", "Lines (%)", "Lines/file"})

	exts := slices.Sorted(maps.Keys(st.Extensions))

	for _, ext := range exts {
		es := st.Extensions[ext]

		perFile := 0
		if es.Files > 0 {
			perFile = es.Lines / es.Files
		}

		tbl.AppendRow(table.Row{
			cmp.Or(ext, "(none)"),
			es.Language,
			fmt.Sprintf("%d (%s)", es.Files, pct(es.Files, st.TotalFiles)),
			fmt.Sprintf("%d (%s)", es.Lines, pct(es.Lines, st.TotalLines)),
			perFile,
		})
	}

	tbl.Render()
}

func writeTags(w io.Writer, st *stats.Statistics, ro Options) {
	tbl := newTable(w, table.Row{"Name", "Date", "Commits", "Authors"})

	tags := st.SortedTags()
	slices.Reverse(tags)

	for _, tag := range tags {
		ranked := topOf(tag.Authors)

		parts := make([]string, 0, len(ranked))
		for _, name := range ranked {
			parts = append(parts, fmt.Sprintf("%s (%d)", name, tag.Authors[name]))
		}

		if ro.AuthorsTop >= 0 && len(parts) > ro.AuthorsTop {
			parts = parts[:ro.AuthorsTop]
		}

		tbl.AppendRow(table.Row{tag.Name, tag.Date, tag.Commits, strings.Join(parts, ", ")})
	}

	tbl.Render()
}

func writeDomainTable(w io.Writer, st *stats.Statistics, ro Options) {
	tbl := newTable(w, table.Row{"#", "Domain", "Commits (%)"})

	for i, dc := range st.TopDomains(ro.MaxDomains) {
		tbl.AppendRow(table.Row{i + 1, dc.Domain, fmt.Sprintf("%d (%s)", dc.Commits, pct(dc.Commits, st.TotalCommits))})
	}

	tbl.Render()
}
