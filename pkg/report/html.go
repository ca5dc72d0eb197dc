package report

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/littlematchboy/gitstats/pkg/stats"
)

const (
	chartWidth  = "900px"
	chartHeight = "360px"
	maxExtBars  = 15
)

func initOpts(title string) charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle: title,
		Width:     chartWidth,
		Height:    chartHeight,
	})
}

func titleOpts(title, subtitle string) charts.GlobalOpts {
	return charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle})
}

func axisTooltip() charts.GlobalOpts {
	return charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"})
}

func barChart(title, subtitle string, labels []string, values []int) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(initOpts(title), titleOpts(title, subtitle), axisTooltip())
	bar.SetXAxis(labels)

	data := make([]opts.BarData, len(values))
	for i, v := range values {
		data[i] = opts.BarData{Value: v}
	}

	bar.AddSeries("Commits", data)

	return bar
}

func hourOfDayChart(st *stats.Statistics) *charts.Bar {
	labels := make([]string, hoursPerDay)
	values := make([]int, hoursPerDay)

	for hour := range hoursPerDay {
		labels[hour] = strconv.Itoa(hour)
		values[hour] = st.ActivityByHourOfDay[hour]
	}

	return barChart("Hour of Day", fmt.Sprintf("busiest hour: %d commits", st.HourOfDayBusiest), labels, values)
}

func dayOfWeekChart(st *stats.Statistics) *charts.Bar {
	values := make([]int, daysPerWeek)
	for day := range daysPerWeek {
		values[day] = st.ActivityByDayOfWeek[day]
	}

	return barChart("Day of Week", "", Weekdays[:], values)
}

func monthOfYearChart(st *stats.Statistics) *charts.Bar {
	labels := make([]string, monthsPerYear)
	values := make([]int, monthsPerYear)

	for i := range monthsPerYear {
		labels[i] = strconv.Itoa(i + 1)
		values[i] = st.ActivityByMonthOfYear[i+1]
	}

	return barChart("Month of Year", "", labels, values)
}

func commitsByMonthChart(st *stats.Statistics) *charts.Line {
	months := make([]string, 0, len(st.CommitsByMonth))
	for month := range st.CommitsByMonth {
		months = append(months, month)
	}

	slices.Sort(months)

	data := make([]opts.LineData, len(months))
	for i, month := range months {
		data[i] = opts.LineData{Value: st.CommitsByMonth[month]}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(initOpts("Commits by Month"), titleOpts("Commits by Month", ""), axisTooltip())
	line.SetXAxis(months)
	line.AddSeries("Commits", data)

	return line
}

func linesOfCodeChart(st *stats.Statistics) *charts.Line {
	stamps := stats.SortedStamps(st.ChangesByDate)
	labels := make([]string, len(stamps))
	data := make([]opts.LineData, len(stamps))

	for i, stamp := range stamps {
		labels[i] = st.Time(stamp).Format(stats.DateLayout)
		data[i] = opts.LineData{Value: st.ChangesByDate[stamp].Lines}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts("Lines of Code"),
		titleOpts("Lines of Code", humanize.Comma(int64(st.TotalLines))+" lines"),
		axisTooltip(),
	)
	line.SetXAxis(labels)
	line.AddSeries("Lines", data)

	return line
}

func filesChart(st *stats.Statistics) *charts.Line {
	stamps := stats.SortedStamps(st.FilesByStamp)
	labels := make([]string, len(stamps))
	data := make([]opts.LineData, len(stamps))

	for i, stamp := range stamps {
		labels[i] = st.Time(stamp).Format(stats.DateLayout)
		data[i] = opts.LineData{Value: st.FilesByStamp[stamp]}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(initOpts("Files"), titleOpts("Files", ""), axisTooltip())
	line.SetXAxis(labels)
	line.AddSeries("Files", data)

	return line
}

func authorsChart(st *stats.Statistics, maxAuthors int) *charts.Line {
	authors := st.AuthorsForPlot(maxAuthors)
	stamps := stats.SortedStamps(st.ChangesByDateByAuthor)
	labels := make([]string, len(stamps))
	series := make([][]opts.LineData, len(authors))
	last := make([]int, len(authors))

	for i, stamp := range stamps {
		labels[i] = st.Time(stamp).Format(stats.DateLayout)

		for j, author := range authors {
			if change, ok := st.ChangesByDateByAuthor[stamp][author]; ok {
				last[j] = change.LinesAdded
			}

			series[j] = append(series[j], opts.LineData{Value: last[j]})
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		initOpts("Lines Added by Author"),
		titleOpts("Lines Added by Author", ""),
		axisTooltip(),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	)
	line.SetXAxis(labels)

	for j, author := range authors {
		line.AddSeries(author, series[j])
	}

	return line
}

func domainsChart(st *stats.Statistics, maxDomains int) *charts.Pie {
	top := st.TopDomains(maxDomains)
	data := make([]opts.PieData, len(top))

	for i, dc := range top {
		data[i] = opts.PieData{Name: dc.Domain, Value: dc.Commits}
	}

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		initOpts("Domains"),
		titleOpts("Domains", ""),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "item"}),
	)
	pie.AddSeries("Domains", data).SetSeriesOptions(
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {c} ({d}%)"}),
	)

	return pie
}

func extensionsChart(st *stats.Statistics) *charts.Bar {
	exts := make([]string, 0, len(st.Extensions))
	for ext := range st.Extensions {
		exts = append(exts, ext)
	}

	slices.SortFunc(exts, func(a, b string) int {
		return cmp.Or(cmp.Compare(st.Extensions[b].Lines, st.Extensions[a].Lines), cmp.Compare(a, b))
	})

	if len(exts) > maxExtBars {
		exts = exts[:maxExtBars]
	}

	labels := make([]string, len(exts))
	values := make([]int, len(exts))

	for i, ext := range exts {
		labels[i] = extLabel(ext, st.Extensions[ext])
		values[i] = st.Extensions[ext].Lines
	}

	return barChart("Extensions", "lines per extension", labels, values)
}

func extLabel(ext string, es *stats.ExtensionStats) string {
	if ext == "" {
		ext = "(none)"
	}

	if es.Language != "" {
		return ext + " (" + es.Language + ")"
	}

	return ext
}

// WriteHTML renders the chart page of a refined model.
func WriteHTML(w io.Writer, st *stats.Statistics, ro Options) error {
	page := components.NewPage()
	page.PageTitle = "GitStats - " + st.ProjectName
	page.SetLayout(components.PageFlexLayout)

	if ro.Style != "" {
		page.AddCustomizedCSSAssets(ro.Style)
	}

	page.AddCharts(
		hourOfDayChart(st),
		dayOfWeekChart(st),
		monthOfYearChart(st),
		commitsByMonthChart(st),
		authorsChart(st, ro.MaxAuthors),
		linesOfCodeChart(st),
		filesChart(st),
		extensionsChart(st),
		domainsChart(st, ro.MaxDomains),
	)

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render page: %w", err)
	}

	return nil
}
