package gitparse

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	submoduleMode = "160000"
	unknownSize   = "-"
	treeFields    = 5
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// TreeEntry is one record of `git ls-tree -r -l -z`.
type TreeEntry struct {
	Mode string
	Type string
	Blob string
	Size int64
	Path string
}

// ParseTreeEntries splits NUL-separated tree listing output. Submodule
// references (mode 160000 with size "-") are skipped; so are records that
// do not have five fields. The second return value counts malformed records.
func ParseTreeEntries(output string) ([]TreeEntry, int) {
	var (
		entries []TreeEntry
		bad     int
	)

	for record := range strings.SplitSeq(output, "\x00") {
		if record == "" {
			continue
		}

		entry, skip, err := ParseTreeEntry(record)
		if err != nil {
			bad++

			continue
		}

		if skip {
			continue
		}

		entries = append(entries, entry)
	}

	return entries, bad
}

// ParseTreeEntry parses `<mode> <type> <blob> <size>\t<path>`. The second
// return value is true for submodule references, which carry no blob.
func ParseTreeEntry(record string) (TreeEntry, bool, error) {
	fields := whitespaceRe.Split(strings.TrimLeft(record, "\n"), treeFields)
	if len(fields) != treeFields {
		return TreeEntry{}, false, malformed("tree entry", record)
	}

	if fields[0] == submoduleMode && fields[3] == unknownSize {
		return TreeEntry{}, true, nil
	}

	size, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return TreeEntry{}, false, malformed("tree entry", record)
	}

	return TreeEntry{
		Mode: fields[0],
		Type: fields[1],
		Blob: fields[2],
		Size: size,
		Path: fields[4],
	}, false, nil
}

// Extension returns the extension of the last path component. Names without
// a dot, dot-files and extensions longer than maxLen map to "".
func Extension(path string, maxLen int) string {
	filename := path
	if slash := strings.LastIndexByte(path, '/'); slash >= 0 {
		filename = path[slash+1:]
	}

	dot := strings.LastIndexByte(filename, '.')
	if dot <= 0 {
		return ""
	}

	ext := filename[dot+1:]
	if len(ext) > maxLen {
		return ""
	}

	return ext
}
