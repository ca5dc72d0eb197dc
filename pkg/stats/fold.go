package stats

import (
	"fmt"
	"time"

	"github.com/src-d/enry/v2"
)

const (
	monthLayout = "2006-01"
	daysPerWeek = 7
)

// YearWeek formats t as YYYY-Wnn with Monday-first week numbers: days before
// the first Monday of the year fall into week 00.
func YearWeek(t time.Time) string {
	yday := t.YearDay() - 1
	wday := Weekday(t)

	return fmt.Sprintf("%04d-W%02d", t.Year(), (yday+daysPerWeek-wday)/daysPerWeek)
}

// Weekday returns the day of the week with Monday as 0 and Sunday as 6.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + daysPerWeek - 1) % daysPerWeek
}

func (s *Statistics) author(name string) *AuthorStats {
	a, ok := s.Authors[name]
	if !ok {
		a = &AuthorStats{ActiveDays: DaySet{}}
		s.Authors[name] = a
	}

	return a
}

func (s *Statistics) checkOpen() error {
	if s.refined {
		return ErrRefined
	}

	return nil
}

// AddRevision folds one revision into the time buckets, the domain table and
// the author's first/last commit and active days. Every update is a sum, a
// max, a min or a set union, so revisions can arrive in any order.
func (s *Statistics) AddRevision(c CommitRecord) error {
	err := s.checkOpen()
	if err != nil {
		return err
	}

	t := s.Time(c.Timestamp)

	// Zero is a valid stamp; ActiveDays is non-empty once any revision is in.
	if len(s.ActiveDays) == 0 {
		s.FirstCommitStamp, s.LastCommitStamp = c.Timestamp, c.Timestamp
	} else {
		s.FirstCommitStamp = min(s.FirstCommitStamp, c.Timestamp)
		s.LastCommitStamp = max(s.LastCommitStamp, c.Timestamp)
	}

	hour := t.Hour()
	s.ActivityByHourOfDay[hour]++
	s.HourOfDayBusiest = max(s.HourOfDayBusiest, s.ActivityByHourOfDay[hour])

	day := Weekday(t)
	s.ActivityByDayOfWeek[day]++

	s.Domains[c.Domain]++

	week, ok := s.ActivityByHourOfWeek[day]
	if !ok {
		week = map[int]int{}
		s.ActivityByHourOfWeek[day] = week
	}

	week[hour]++
	s.HourOfWeekBusiest = max(s.HourOfWeekBusiest, week[hour])

	s.ActivityByMonthOfYear[int(t.Month())]++

	yw := YearWeek(t)
	s.ActivityByYearWeek[yw]++
	s.YearWeekPeak = max(s.YearWeekPeak, s.ActivityByYearWeek[yw])

	a := s.author(c.Author)
	if len(a.ActiveDays) == 0 {
		a.FirstCommitStamp, a.LastCommitStamp = c.Timestamp, c.Timestamp
	} else {
		a.FirstCommitStamp = min(a.FirstCommitStamp, c.Timestamp)
		a.LastCommitStamp = max(a.LastCommitStamp, c.Timestamp)
	}

	yymm := t.Format(monthLayout)
	addNested(s.AuthorOfMonth, yymm, c.Author, 1)
	s.CommitsByMonth[yymm]++

	yy := t.Year()
	addNested(s.AuthorOfYear, yy, c.Author, 1)
	s.CommitsByYear[yy]++

	yymmdd := t.Format(DateLayout)
	a.ActiveDays.Add(yymmdd)
	s.ActiveDays.Add(yymmdd)

	s.CommitsByTimezone[c.TimeZone]++

	return nil
}

func addNested[K comparable](m map[K]map[string]int, period K, author string, n int) {
	inner, ok := m[period]
	if !ok {
		inner = map[string]int{}
		m[period] = inner
	}

	inner[author] += n
}

// AddAuthorChange folds one commit of the full-history shortstat log into
// the author's totals and records the running totals at stamp.
func (s *Statistics) AddAuthorChange(author string, stamp int64, inserted, deleted int) error {
	err := s.checkOpen()
	if err != nil {
		return err
	}

	a := s.author(author)
	a.Commits++
	a.LinesAdded += inserted
	a.LinesRemoved += deleted

	byAuthor, ok := s.ChangesByDateByAuthor[stamp]
	if !ok {
		byAuthor = map[string]AuthorChange{}
		s.ChangesByDateByAuthor[stamp] = byAuthor
	}

	byAuthor[author] = AuthorChange{LinesAdded: a.LinesAdded, Commits: a.Commits}

	return nil
}

// AddLinearChange records one commit of the first-parent shortstat log:
// the point of the line-count series and the lines added and removed in its
// month and year.
func (s *Statistics) AddLinearChange(stamp int64, change Change) error {
	err := s.checkOpen()
	if err != nil {
		return err
	}

	s.ChangesByDate[stamp] = change

	t := s.Time(stamp)
	yymm := t.Format(monthLayout)
	s.LinesAddedByMonth[yymm] += change.Insertions
	s.LinesRemovedByMonth[yymm] += change.Deletions

	yy := t.Year()
	s.LinesAddedByYear[yy] += change.Insertions
	s.LinesRemovedByYear[yy] += change.Deletions

	s.TotalLinesAdded += change.Insertions
	s.TotalLinesRemoved += change.Deletions

	return nil
}

// AddTotalLines adds the net line delta of the linear history.
func (s *Statistics) AddTotalLines(n int) error {
	err := s.checkOpen()
	if err != nil {
		return err
	}

	s.TotalLines += n

	return nil
}

// AddAuthors adds to the number of distinct authors.
func (s *Statistics) AddAuthors(n int) error {
	err := s.checkOpen()
	if err != nil {
		return err
	}

	s.TotalAuthors += n

	return nil
}

// AddCommits adds to the total commit count.
func (s *Statistics) AddCommits(n int) error {
	err := s.checkOpen()
	if err != nil {
		return err
	}

	s.TotalCommits += n

	return nil
}

// SetFileCount records the number of files in the tree of the commit at stamp.
func (s *Statistics) SetFileCount(stamp int64, files int) error {
	err := s.checkOpen()
	if err != nil {
		return err
	}

	s.FilesByStamp[stamp] = files

	return nil
}

// AddFile counts one file of the final tree under its extension.
func (s *Statistics) AddFile(ext string, size int64) error {
	err := s.checkOpen()
	if err != nil {
		return err
	}

	s.TotalSize += size
	s.TotalFiles++

	s.extension(ext).Files++

	return nil
}

// AddExtensionLines charges lines to an extension.
func (s *Statistics) AddExtensionLines(ext string, lines int) error {
	err := s.checkOpen()
	if err != nil {
		return err
	}

	s.extension(ext).Lines += lines

	return nil
}

func (s *Statistics) extension(ext string) *ExtensionStats {
	e, ok := s.Extensions[ext]
	if !ok {
		e = &ExtensionStats{Language: languageOf(ext)}
		s.Extensions[ext] = e
	}

	return e
}

func languageOf(ext string) string {
	if ext == "" {
		return ""
	}

	lang, _ := enry.GetLanguageByExtension("file." + ext)

	return lang
}

// AddTag registers a tag. Tags are keyed by name; re-adding replaces the
// tag's metadata but keeps its author counts.
func (s *Statistics) AddTag(tag TagInfo) error {
	err := s.checkOpen()
	if err != nil {
		return err
	}

	if prev, ok := s.Tags[tag.Name]; ok && tag.Authors == nil {
		tag.Authors = prev.Authors
		tag.Commits = prev.Commits
	}

	if tag.Authors == nil {
		tag.Authors = map[string]int{}
	}

	if tag.Date == "" && tag.Stamp != 0 {
		tag.Date = s.Time(tag.Stamp).Format(DateLayout)
	}

	s.Tags[tag.Name] = &tag

	return nil
}

// AddTagCommits charges commits by author to a registered tag.
func (s *Statistics) AddTagCommits(name, author string, commits int) error {
	err := s.checkOpen()
	if err != nil {
		return err
	}

	tag, ok := s.Tags[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTag, name)
	}

	tag.Authors[author] += commits
	tag.Commits += commits

	return nil
}
