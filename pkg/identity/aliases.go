// Package identity resolves raw git author names to canonical authors.
package identity

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
)

// ErrEmptyCanonical is returned for a people file line without a canonical name.
var ErrEmptyCanonical = errors.New("people file: empty canonical name")

const (
	peopleSeparator = "|"
	commentPrefix   = "#"
)

// Aliases maps raw author names to their canonical name. Names without an
// entry are their own canonical name. The zero value is an empty table.
type Aliases struct {
	dict map[string]string
}

// NewAliases builds a table from an alias -> canonical mapping.
func NewAliases(merge map[string]string) *Aliases {
	a := &Aliases{dict: make(map[string]string, len(merge))}
	maps.Copy(a.dict, merge)

	return a
}

// Add maps alias to canonical.
func (a *Aliases) Add(alias, canonical string) {
	if a.dict == nil {
		a.dict = map[string]string{}
	}

	a.dict[alias] = canonical
}

// Canonical returns the canonical name for a raw author name.
func (a *Aliases) Canonical(name string) string {
	if a == nil {
		return name
	}

	if canonical, ok := a.dict[name]; ok {
		return canonical
	}

	return name
}

// Len returns the number of aliases.
func (a *Aliases) Len() int {
	if a == nil {
		return 0
	}

	return len(a.dict)
}

// Names returns the sorted aliases.
func (a *Aliases) Names() []string {
	if a == nil {
		return nil
	}

	return slices.Sorted(maps.Keys(a.dict))
}

// LoadPeopleFile adds the aliases of a people file. Each line lists a
// canonical name followed by its aliases: "Jane Doe|jdoe|Jane D.".
// Blank lines and lines starting with '#' are ignored.
func (a *Aliases) LoadPeopleFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load people file: %w", err)
	}
	defer file.Close()

	return a.readPeople(file)
}

func (a *Aliases) readPeople(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		ids := strings.Split(line, peopleSeparator)

		canonical := strings.TrimSpace(ids[0])
		if canonical == "" {
			return fmt.Errorf("%w (line %d)", ErrEmptyCanonical, lineNo)
		}

		for _, id := range ids[1:] {
			if alias := strings.TrimSpace(id); alias != "" && alias != canonical {
				a.Add(alias, canonical)
			}
		}
	}

	err := scanner.Err()
	if err != nil {
		return fmt.Errorf("read people file: %w", err)
	}

	return nil
}
