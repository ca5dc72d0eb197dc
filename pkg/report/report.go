// Package report renders refined statistics: chart-data files for external
// plotting, an HTML chart page, a JSON/YAML dump and a text summary. Every
// writer treats the model as read-only.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/littlematchboy/gitstats/pkg/persist"
	"github.com/littlematchboy/gitstats/pkg/stats"
)

// Output file names besides the chart data.
const (
	FileIndex     = "index.html"
	FileStatsJSON = "stats.json"
	FileStatsYAML = "stats.yaml"
	dirPerm       = 0o755
)

// Options tunes the rendered output.
type Options struct {
	// MaxAuthors caps the authors of the per-author series and tables.
	MaxAuthors int
	// MaxDomains caps the domain list.
	MaxDomains int
	// AuthorsTop is the number of authors listed per month and year.
	AuthorsTop int
	// Style is a stylesheet linked from the HTML page. Empty means none.
	Style   string
	Version string
	// Generated stamps the page. Zero means now.
	Generated time.Time
}

func (o Options) generated() time.Time {
	if o.Generated.IsZero() {
		return time.Now()
	}

	return o.Generated
}

// Generate writes the chart-data files, index.html, stats.json and
// stats.yaml into dir, creating it if needed. The model must be refined.
func Generate(dir string, st *stats.Statistics, opts Options) error {
	if !st.Refined() {
		return stats.ErrNotRefined
	}

	err := os.MkdirAll(dir, dirPerm)
	if err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	err = WriteChartData(dir, st, opts)
	if err != nil {
		return err
	}

	err = persist.WriteFile(filepath.Join(dir, FileStatsJSON), persist.NewJSONCodec(), st)
	if err != nil {
		return fmt.Errorf("write %s: %w", FileStatsJSON, err)
	}

	err = persist.WriteFile(filepath.Join(dir, FileStatsYAML), persist.NewYAMLCodec(), st)
	if err != nil {
		return fmt.Errorf("write %s: %w", FileStatsYAML, err)
	}

	err = writeFile(filepath.Join(dir, FileIndex), func(w io.Writer) error {
		return WriteHTML(w, st, opts)
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", FileIndex, err)
	}

	return nil
}
