package stats

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"time"
)

const percent = 100.0

// Refine derives each author's rank by commits, share of all commits, first
// and last commit dates and the time between them, then closes the model for
// updates. Calling it again is a no-op.
func (s *Statistics) Refine() {
	if s.refined {
		return
	}

	for i, name := range s.AuthorsByCommits() {
		a := s.Authors[name]
		a.PlaceByCommits = i + 1

		if s.TotalCommits > 0 {
			a.CommitsFrac = percent * float64(a.Commits) / float64(s.TotalCommits)
		}

		a.DateFirst = s.Time(a.FirstCommitStamp).Format(DateLayout)
		a.DateLast = s.Time(a.LastCommitStamp).Format(DateLayout)
		a.TimeDelta = time.Duration(a.LastCommitStamp-a.FirstCommitStamp) * time.Second
	}

	s.refined = true
}

// Place returns an author's 1-based rank by commits.
func (s *Statistics) Place(author string) (int, error) {
	if !s.refined {
		return 0, ErrNotRefined
	}

	a, ok := s.Authors[author]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownAuthor, author)
	}

	return a.PlaceByCommits, nil
}

// AuthorsByCommits returns all authors, most commits first. Authors with the
// same number of commits are ordered by name.
func (s *Statistics) AuthorsByCommits() []string {
	names := slices.Collect(maps.Keys(s.Authors))

	slices.SortFunc(names, func(a, b string) int {
		return cmp.Or(
			cmp.Compare(s.Authors[b].Commits, s.Authors[a].Commits),
			cmp.Compare(a, b),
		)
	})

	return names
}

// TopAuthors returns at most n authors ranked by commits.
func (s *Statistics) TopAuthors(n int) []string {
	names := s.AuthorsByCommits()
	if n >= 0 && n < len(names) {
		names = names[:n]
	}

	return names
}

// AuthorsForPlot returns the top n authors that have at least one point in
// the per-author change series, in rank order.
func (s *Statistics) AuthorsForPlot(n int) []string {
	plotted := map[string]bool{}

	for _, byAuthor := range s.ChangesByDateByAuthor {
		for name := range byAuthor {
			plotted[name] = true
		}
	}

	var names []string

	for _, name := range s.AuthorsByCommits() {
		if n >= 0 && len(names) == n {
			break
		}

		if plotted[name] {
			names = append(names, name)
		}
	}

	return names
}

// SortedTags returns the tags oldest first; tags with equal stamps are
// ordered by name.
func (s *Statistics) SortedTags() []*TagInfo {
	tags := slices.Collect(maps.Values(s.Tags))

	slices.SortFunc(tags, func(a, b *TagInfo) int {
		return cmp.Or(cmp.Compare(a.Stamp, b.Stamp), cmp.Compare(a.Name, b.Name))
	})

	return tags
}

// TopDomains returns at most n email domains, most commits first.
func (s *Statistics) TopDomains(n int) []DomainCount {
	domains := make([]DomainCount, 0, len(s.Domains))
	for domain, commits := range s.Domains {
		domains = append(domains, DomainCount{Domain: domain, Commits: commits})
	}

	slices.SortFunc(domains, func(a, b DomainCount) int {
		return cmp.Or(cmp.Compare(b.Commits, a.Commits), cmp.Compare(a.Domain, b.Domain))
	})

	if n >= 0 && n < len(domains) {
		domains = domains[:n]
	}

	return domains
}

// SortedStamps returns the keys of a stamp-keyed series in ascending order.
func SortedStamps[V any](series map[int64]V) []int64 {
	return slices.Sorted(maps.Keys(series))
}

// CommitsPerDay is the average number of commits per active day.
func (s *Statistics) CommitsPerDay() float64 {
	if len(s.ActiveDays) == 0 {
		return 0
	}

	return float64(s.TotalCommits) / float64(len(s.ActiveDays))
}

// CommitsPerAuthor is the average number of commits per author.
func (s *Statistics) CommitsPerAuthor() float64 {
	if s.TotalAuthors == 0 {
		return 0
	}

	return float64(s.TotalCommits) / float64(s.TotalAuthors)
}

// Age is the time between the first and the last commit.
func (s *Statistics) Age() time.Duration {
	return time.Duration(s.LastCommitStamp-s.FirstCommitStamp) * time.Second
}
