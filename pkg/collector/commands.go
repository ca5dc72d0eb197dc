package collector

import (
	"strings"
)

// Range selects the history the collector looks at.
type Range struct {
	CommitBegin string
	CommitEnd   string
	TimeBegin   string
	TimeEnd     string
}

const defaultRev = "HEAD"

// Commits returns `<begin>..<end>`, `<end>` or HEAD.
func (r Range) Commits() string {
	if r.CommitEnd == "" {
		return defaultRev
	}

	if r.CommitBegin == "" {
		return r.CommitEnd
	}

	return r.CommitBegin + ".." + r.CommitEnd
}

// End returns the revision whose tree describes the final state.
func (r Range) End() string {
	if r.CommitEnd == "" {
		return defaultRev
	}

	return r.CommitEnd
}

// TimeFilter returns the --since/--before options, passed through verbatim.
func (r Range) TimeFilter() string {
	var opts []string

	if r.TimeBegin != "" {
		opts = append(opts, `--since="`+r.TimeBegin+`"`)
	}

	if r.TimeEnd != "" {
		opts = append(opts, `--before="`+r.TimeEnd+`"`)
	}

	return strings.Join(opts, " ")
}

// Log returns the revision selection shared by all history commands.
func (r Range) Log() string {
	return join(r.TimeFilter(), r.Commits())
}

func join(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))

	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}

	return strings.Join(nonEmpty, " ")
}

func quote(s string) string {
	return `"` + s + `"`
}

// Git command templates. Output of each one is parsed by pkg/gitparse.
const (
	cmdWordCount     = "wc -l"
	cmdDropCommitHdr = "grep -v ^commit"
	cmdShowTags      = "git show-ref --tags"
	cmdTreeListing   = "git ls-tree -r -l -z"
	cmdListBranches  = "git for-each-ref --format=%(refname:short) refs/heads refs/remotes/origin"
	prettyRevision   = `--pretty=format:"%at %ai %aN <%aE>"`
	prettyStampTree  = `--pretty=format:"%at %T"`
	prettyStampAuthr = `--pretty=format:"%at %aN"`
)

func shortlogCmd(r Range) string {
	return join("git shortlog -s", r.Log())
}

func tagStampCmd(hash string) string {
	return join("git log", quote(hash), prettyStampAuthr, "-n 1")
}

func tagShortlogCmd(tag, prev string) string {
	cmd := join("git shortlog -s", quote(tag))
	if prev != "" {
		cmd = join(cmd, quote("^"+prev))
	}

	return cmd
}

func revisionsCmd(r Range) string {
	return join("git rev-list", prettyRevision, r.Log())
}

func treesCmd(r Range) string {
	return join("git rev-list", prettyStampTree, r.Log())
}

func filesInTreeCmd(rev string) string {
	return join("git ls-tree -r --name-only", quote(rev))
}

func treeListingCmd(r Range) string {
	return join(cmdTreeListing, r.End())
}

func blobLinesCmd(blob string) string {
	return join("git cat-file blob", blob)
}

func linearShortstatCmd(r Range, linear bool) string {
	mode := ""
	if linear {
		mode = "--first-parent -m"
	}

	return join("git log --shortstat", mode, prettyStampAuthr, r.Log())
}

func authorShortstatCmd(r Range) string {
	return join("git log --shortstat --date-order", prettyStampAuthr, r.Log())
}
