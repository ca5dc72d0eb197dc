// Package stats holds the aggregate statistics of one repository run and the
// refinement pass that derives ranks, percentages and dates from it.
package stats

import (
	"encoding/json"
	"errors"
	"maps"
	"slices"
	"time"
)

// Error definitions for the statistics model.
var (
	// ErrRefined is returned by fold methods once Refine has run.
	ErrRefined = errors.New("stats: model is refined and closed for updates")
	// ErrNotRefined is returned by accessors of derived fields before Refine.
	ErrNotRefined = errors.New("stats: model is not refined yet")
	// ErrUnknownAuthor is returned for an author without statistics.
	ErrUnknownAuthor = errors.New("stats: unknown author")
	// ErrUnknownTag is returned when commits are charged to an unregistered tag.
	ErrUnknownTag = errors.New("stats: unknown tag")
)

// DateLayout formats calendar days.
const DateLayout = "2006-01-02"

// CommitRecord is one parsed revision line after alias merging.
type CommitRecord struct {
	Timestamp int64
	Author    string
	Domain    string
	TimeZone  string
}

// DaySet is a set of YYYY-MM-DD days. It serializes as a sorted list.
type DaySet map[string]struct{}

// Add inserts a day.
func (d DaySet) Add(day string) {
	d[day] = struct{}{}
}

// Sorted returns the days in ascending order.
func (d DaySet) Sorted() []string {
	return slices.Sorted(maps.Keys(d))
}

// MarshalJSON encodes the set as a sorted array.
func (d DaySet) MarshalJSON() ([]byte, error) {
	days := d.Sorted()
	if days == nil {
		days = []string{}
	}

	return json.Marshal(days)
}

// UnmarshalJSON decodes a sorted array back into the set.
func (d *DaySet) UnmarshalJSON(data []byte) error {
	var days []string

	err := json.Unmarshal(data, &days)
	if err != nil {
		return err
	}

	set := make(DaySet, len(days))
	for _, day := range days {
		set.Add(day)
	}

	*d = set

	return nil
}

// MarshalYAML encodes the set as a sorted sequence.
func (d DaySet) MarshalYAML() (any, error) {
	return d.Sorted(), nil
}

// AuthorStats accumulates one canonical author's activity.
type AuthorStats struct {
	Commits          int    `json:"commits"            yaml:"commits"`
	LinesAdded       int    `json:"lines_added"        yaml:"lines_added"`
	LinesRemoved     int    `json:"lines_removed"      yaml:"lines_removed"`
	FirstCommitStamp int64  `json:"first_commit_stamp" yaml:"first_commit_stamp"`
	LastCommitStamp  int64  `json:"last_commit_stamp"  yaml:"last_commit_stamp"`
	ActiveDays       DaySet `json:"active_days"        yaml:"active_days"`

	// Derived by Refine.
	PlaceByCommits int           `json:"place_by_commits" yaml:"place_by_commits"`
	CommitsFrac    float64       `json:"commits_frac"     yaml:"commits_frac"`
	DateFirst      string        `json:"date_first"       yaml:"date_first"`
	DateLast       string        `json:"date_last"        yaml:"date_last"`
	TimeDelta      time.Duration `json:"time_delta"       yaml:"time_delta"`
}

// ExtensionStats counts the files and lines of one extension in the last tree.
type ExtensionStats struct {
	Files    int    `json:"files"              yaml:"files"`
	Lines    int    `json:"lines"              yaml:"lines"`
	Language string `json:"language,omitempty" yaml:"language,omitempty"`
}

// TagInfo describes one tag and the commits made since the previous tag.
type TagInfo struct {
	Name    string         `json:"name"    yaml:"name"`
	Hash    string         `json:"hash"    yaml:"hash"`
	Stamp   int64          `json:"stamp"   yaml:"stamp"`
	Date    string         `json:"date"    yaml:"date"`
	Commits int            `json:"commits" yaml:"commits"`
	Authors map[string]int `json:"authors" yaml:"authors"`
}

// Change is one point of the linear line-count series.
type Change struct {
	Files      int `json:"files" yaml:"files"`
	Insertions int `json:"ins"   yaml:"ins"`
	Deletions  int `json:"del"   yaml:"del"`
	Lines      int `json:"lines" yaml:"lines"`
}

// AuthorChange is an author's running totals at one point in time.
type AuthorChange struct {
	LinesAdded int `json:"lines_added" yaml:"lines_added"`
	Commits    int `json:"commits"     yaml:"commits"`
}

// DomainCount pairs an email domain with its commit count.
type DomainCount struct {
	Domain  string `json:"domain"  yaml:"domain"`
	Commits int    `json:"commits" yaml:"commits"`
}

// Statistics is the aggregate root of a run. It is populated by fold
// methods, closed by Refine and read by the report writers afterwards.
type Statistics struct {
	ProjectName string `json:"project_name" yaml:"project_name"`
	ProjectDir  string `json:"project_dir"  yaml:"project_dir"`

	TotalAuthors      int   `json:"total_authors"       yaml:"total_authors"`
	TotalCommits      int   `json:"total_commits"       yaml:"total_commits"`
	TotalFiles        int   `json:"total_files"         yaml:"total_files"`
	TotalSize         int64 `json:"total_size"          yaml:"total_size"`
	TotalLines        int   `json:"total_lines"         yaml:"total_lines"`
	TotalLinesAdded   int   `json:"total_lines_added"   yaml:"total_lines_added"`
	TotalLinesRemoved int   `json:"total_lines_removed" yaml:"total_lines_removed"`
	FirstCommitStamp  int64 `json:"first_commit_stamp"  yaml:"first_commit_stamp"`
	LastCommitStamp   int64 `json:"last_commit_stamp"   yaml:"last_commit_stamp"`

	Authors    map[string]*AuthorStats    `json:"authors"    yaml:"authors"`
	Extensions map[string]*ExtensionStats `json:"extensions" yaml:"extensions"`
	Tags       map[string]*TagInfo        `json:"tags"       yaml:"tags"`
	Domains    map[string]int             `json:"domains"    yaml:"domains"`
	ActiveDays DaySet                     `json:"active_days" yaml:"active_days"`

	ActivityByHourOfDay   map[int]int         `json:"activity_by_hour_of_day"   yaml:"activity_by_hour_of_day"`
	HourOfDayBusiest      int                 `json:"hour_of_day_busiest"       yaml:"hour_of_day_busiest"`
	ActivityByDayOfWeek   map[int]int         `json:"activity_by_day_of_week"   yaml:"activity_by_day_of_week"`
	ActivityByHourOfWeek  map[int]map[int]int `json:"activity_by_hour_of_week"  yaml:"activity_by_hour_of_week"`
	HourOfWeekBusiest     int                 `json:"hour_of_week_busiest"      yaml:"hour_of_week_busiest"`
	ActivityByMonthOfYear map[int]int         `json:"activity_by_month_of_year" yaml:"activity_by_month_of_year"`
	ActivityByYearWeek    map[string]int      `json:"activity_by_year_week"     yaml:"activity_by_year_week"`
	YearWeekPeak          int                 `json:"year_week_peak"            yaml:"year_week_peak"`

	CommitsByMonth      map[string]int `json:"commits_by_month"       yaml:"commits_by_month"`
	CommitsByYear       map[int]int    `json:"commits_by_year"        yaml:"commits_by_year"`
	CommitsByTimezone   map[string]int `json:"commits_by_timezone"    yaml:"commits_by_timezone"`
	LinesAddedByMonth   map[string]int `json:"lines_added_by_month"   yaml:"lines_added_by_month"`
	LinesRemovedByMonth map[string]int `json:"lines_removed_by_month" yaml:"lines_removed_by_month"`
	LinesAddedByYear    map[int]int    `json:"lines_added_by_year"    yaml:"lines_added_by_year"`
	LinesRemovedByYear  map[int]int    `json:"lines_removed_by_year"  yaml:"lines_removed_by_year"`

	AuthorOfMonth map[string]map[string]int `json:"author_of_month" yaml:"author_of_month"`
	AuthorOfYear  map[int]map[string]int    `json:"author_of_year"  yaml:"author_of_year"`

	FilesByStamp          map[int64]int                     `json:"files_by_stamp"            yaml:"files_by_stamp"`
	ChangesByDate         map[int64]Change                  `json:"changes_by_date"           yaml:"changes_by_date"`
	ChangesByDateByAuthor map[int64]map[string]AuthorChange `json:"changes_by_date_by_author" yaml:"changes_by_date_by_author"`

	loc     *time.Location
	refined bool
}

// New creates an empty model that buckets timestamps in loc. A nil loc
// means the local time zone.
func New(loc *time.Location) *Statistics {
	if loc == nil {
		loc = time.Local
	}

	return &Statistics{
		Authors:               map[string]*AuthorStats{},
		Extensions:            map[string]*ExtensionStats{},
		Tags:                  map[string]*TagInfo{},
		Domains:               map[string]int{},
		ActiveDays:            DaySet{},
		ActivityByHourOfDay:   map[int]int{},
		ActivityByDayOfWeek:   map[int]int{},
		ActivityByHourOfWeek:  map[int]map[int]int{},
		ActivityByMonthOfYear: map[int]int{},
		ActivityByYearWeek:    map[string]int{},
		CommitsByMonth:        map[string]int{},
		CommitsByYear:         map[int]int{},
		CommitsByTimezone:     map[string]int{},
		LinesAddedByMonth:     map[string]int{},
		LinesRemovedByMonth:   map[string]int{},
		LinesAddedByYear:      map[int]int{},
		LinesRemovedByYear:    map[int]int{},
		AuthorOfMonth:         map[string]map[string]int{},
		AuthorOfYear:          map[int]map[string]int{},
		FilesByStamp:          map[int64]int{},
		ChangesByDate:         map[int64]Change{},
		ChangesByDateByAuthor: map[int64]map[string]AuthorChange{},
		loc:                   loc,
	}
}

// Location returns the time zone used for bucketing.
func (s *Statistics) Location() *time.Location {
	return s.loc
}

// Refined reports whether Refine has run.
func (s *Statistics) Refined() bool {
	return s.refined
}

// Time converts an epoch stamp into the model's time zone.
func (s *Statistics) Time(stamp int64) time.Time {
	return time.Unix(stamp, 0).In(s.loc)
}
