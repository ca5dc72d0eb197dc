// Package gitparse turns single lines of fixed-format git output into typed
// records. Every parser is pure: malformed input is reported through
// ErrMalformedLine and never panics.
package gitparse

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedLine is returned when a line does not have the expected shape.
var ErrMalformedLine = errors.New("malformed line")

const (
	tagRefPrefix   = "refs/tags/"
	commitPrefix   = "commit "
	noEmailDomain  = "?"
	revisionFields = 5
)

func malformed(kind, line string) error {
	return fmt.Errorf("%w: %s: %q", ErrMalformedLine, kind, line)
}

// Revision is one line of `git rev-list --pretty=format:"%at %ai %aN <%aE>"`.
type Revision struct {
	Stamp    int64
	Date     string
	Time     string
	TimeZone string
	Author   string
	Email    string
}

// Domain returns the part of the email after the last '@', or "?".
func (r Revision) Domain() string {
	at := strings.LastIndexByte(r.Email, '@')
	if at < 0 {
		return noEmailDomain
	}

	return r.Email[at+1:]
}

// ParseRevisionLine parses `<epoch> <date> <time> <utc-offset> <author> <<email>>`.
// A non-numeric epoch keeps the line with stamp 0.
func ParseRevisionLine(line string) (Revision, error) {
	parts := strings.SplitN(line, " ", revisionFields)
	if len(parts) != revisionFields {
		return Revision{}, malformed("revision", line)
	}

	stamp, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		stamp = 0
	}

	author, email, ok := strings.Cut(parts[4], "<")
	if !ok {
		return Revision{}, malformed("revision", line)
	}

	return Revision{
		Stamp:    stamp,
		Date:     parts[1],
		Time:     parts[2],
		TimeZone: parts[3],
		Author:   strings.TrimRight(author, " "),
		Email:    strings.TrimSuffix(email, ">"),
	}, nil
}

// IsCommitHeader reports whether line is the `commit <hash>` header that
// `git rev-list --pretty` prints before every formatted line.
func IsCommitHeader(line string) bool {
	return strings.HasPrefix(line, commitPrefix)
}

// StampAuthor is a `<epoch> <author>` header of the shortstat logs.
type StampAuthor struct {
	Stamp  int64
	Author string
}

// ParseStampAuthor parses `<epoch> <author>`.
func ParseStampAuthor(line string) (StampAuthor, error) {
	stampText, author, ok := strings.Cut(line, " ")
	if !ok {
		return StampAuthor{}, malformed("stamp/author", line)
	}

	stamp, err := strconv.ParseInt(stampText, 10, 64)
	if err != nil {
		return StampAuthor{}, malformed("stamp/author", line)
	}

	return StampAuthor{Stamp: stamp, Author: author}, nil
}

// StampRev is a `<epoch> <tree-id>` line of the file-count stream.
type StampRev struct {
	Stamp int64
	Rev   string
}

// ParseStampRev parses `<epoch> <rev>`.
func ParseStampRev(line string) (StampRev, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return StampRev{}, malformed("stamp/rev", line)
	}

	stamp, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return StampRev{}, malformed("stamp/rev", line)
	}

	return StampRev{Stamp: stamp, Rev: fields[1]}, nil
}

var (
	numberRe       = regexp.MustCompile(`\d+`)
	filesChangedRe = regexp.MustCompile(`files? changed`)
)

// StatSummary is the parsed `N files changed, I insertions(+), D deletions(-)` line.
type StatSummary struct {
	Files      int
	Insertions int
	Deletions  int
}

// IsStatSummary reports whether the line is a shortstat summary line.
func IsStatSummary(line string) bool {
	return filesChangedRe.MatchString(line)
}

// ParseStatSummary extracts (files, insertions, deletions). Git omits zero
// insertions or deletions, so a two-number line is disambiguated by its
// (+) or (-) marker and a one-number line means nothing but files changed.
func ParseStatSummary(line string) (StatSummary, error) {
	found := numberRe.FindAllString(line, -1)

	numbers := make([]int, 0, len(found))

	for _, text := range found {
		n, err := strconv.Atoi(text)
		if err != nil {
			return StatSummary{}, malformed("shortstat", line)
		}

		numbers = append(numbers, n)
	}

	switch {
	case len(numbers) == 1:
		return StatSummary{Files: numbers[0]}, nil
	case len(numbers) == 2 && strings.Contains(line, "(+)"):
		return StatSummary{Files: numbers[0], Insertions: numbers[1]}, nil
	case len(numbers) == 2 && strings.Contains(line, "(-)"):
		return StatSummary{Files: numbers[0], Deletions: numbers[1]}, nil
	case len(numbers) == 3:
		return StatSummary{Files: numbers[0], Insertions: numbers[1], Deletions: numbers[2]}, nil
	default:
		return StatSummary{}, malformed("shortstat", line)
	}
}

// TagRef is one line of `git show-ref --tags`.
type TagRef struct {
	Hash string
	Name string
}

// ParseTagRef parses `<hash> refs/tags/<name>`.
func ParseTagRef(line string) (TagRef, error) {
	hash, ref, ok := strings.Cut(line, " ")
	if !ok || hash == "" || !strings.HasPrefix(ref, tagRefPrefix) {
		return TagRef{}, malformed("tag ref", line)
	}

	name := strings.TrimPrefix(ref, tagRefPrefix)
	if name == "" {
		return TagRef{}, malformed("tag ref", line)
	}

	return TagRef{Hash: hash, Name: name}, nil
}

// ShortlogEntry is one line of `git shortlog -s`.
type ShortlogEntry struct {
	Commits int
	Author  string
}

// ParseShortlogSummary parses `<spaces><count>\t<author>`.
func ParseShortlogSummary(line string) (ShortlogEntry, error) {
	trimmed := strings.TrimLeft(line, " \t")

	idx := strings.IndexAny(trimmed, " \t")
	if idx < 0 {
		return ShortlogEntry{}, malformed("shortlog", line)
	}

	commits, err := strconv.Atoi(trimmed[:idx])
	if err != nil {
		return ShortlogEntry{}, malformed("shortlog", line)
	}

	author := strings.TrimLeft(trimmed[idx:], " \t")
	if author == "" {
		return ShortlogEntry{}, malformed("shortlog", line)
	}

	return ShortlogEntry{Commits: commits, Author: author}, nil
}
