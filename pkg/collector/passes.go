package collector

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/littlematchboy/gitstats/pkg/gitparse"
	"github.com/littlematchboy/gitstats/pkg/resolver"
	"github.com/littlematchboy/gitstats/pkg/statcache"
	"github.com/littlematchboy/gitstats/pkg/stats"
)

// Sentinel errors of single lookups. They never abort a collection.
var (
	ErrBadCount = errors.New("line count is not a number")
	ErrNoOutput = errors.New("command produced no output")
)

func (col *collection) canonical(author string) string {
	return col.aliases.Canonical(author)
}

// count runs stages piped into `wc -l` and parses the number.
func (col *collection) count(ctx context.Context, stages ...string) (int, error) {
	out, err := col.run.Run(ctx, append(stages, cmdWordCount)...)
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadCount, out)
	}

	return n, nil
}

func (col *collection) collectAuthorCount(ctx context.Context) error {
	lines := col.output(ctx, "authors", shortlogCmd(col.cfg.Range), cmdWordCount)
	if len(lines) == 0 {
		return nil
	}

	n, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		col.malformed(ctx, "authors", lines[0], err)

		return nil
	}

	return col.st.AddAuthors(n)
}

func (col *collection) collectTags(ctx context.Context) error {
	var refs []gitparse.TagRef

	for _, line := range col.output(ctx, "tags", cmdShowTags) {
		if line == "" {
			continue
		}

		ref, err := gitparse.ParseTagRef(line)
		if err != nil {
			col.malformed(ctx, "tags", line, err)

			continue
		}

		refs = append(refs, ref)
	}

	if len(refs) == 0 {
		return nil
	}

	results := resolver.Resolve(ctx, refs, col.resolveOptions(),
		func(ctx context.Context, ref gitparse.TagRef) (gitparse.StampAuthor, error) {
			out, err := col.run.Run(ctx, tagStampCmd(ref.Hash))
			if err != nil {
				return gitparse.StampAuthor{}, err
			}

			first, _, _ := strings.Cut(out, "\n")
			if first == "" {
				return gitparse.StampAuthor{}, ErrNoOutput
			}

			return gitparse.ParseStampAuthor(first)
		})

	col.stats.Resolved += len(results)

	for _, res := range results {
		if res.Err != nil {
			col.resolveFailed(ctx, "tags", res.Key.Name, res.Err)

			continue
		}

		err := col.st.AddTag(stats.TagInfo{Name: res.Key.Name, Hash: res.Key.Hash, Stamp: res.Value.Stamp})
		if err != nil {
			return err
		}
	}

	col.stats.Tags = len(col.st.Tags)

	return col.collectTagAuthors(ctx)
}

// collectTagAuthors charges every commit to the oldest tag that contains it.
func (col *collection) collectTagAuthors(ctx context.Context) error {
	prev := ""

	for _, tag := range col.st.SortedTags() {
		out, err := col.run.Run(ctx, tagShortlogCmd(tag.Name, prev))
		if err != nil || out == "" {
			continue
		}

		prev = tag.Name

		for line := range strings.SplitSeq(out, "\n") {
			entry, parseErr := gitparse.ParseShortlogSummary(line)
			if parseErr != nil {
				col.malformed(ctx, "tags", line, parseErr)

				continue
			}

			err = col.st.AddTagCommits(tag.Name, col.canonical(entry.Author), entry.Commits)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func (col *collection) collectRevisions(ctx context.Context) error {
	lines := col.output(ctx, "revisions", revisionsCmd(col.cfg.Range), cmdDropCommitHdr)

	for _, line := range lines {
		if line == "" || gitparse.IsCommitHeader(line) {
			continue
		}

		rev, err := gitparse.ParseRevisionLine(line)
		if err != nil {
			col.malformed(ctx, "revisions", line, err)

			continue
		}

		err = col.st.AddRevision(stats.CommitRecord{
			Timestamp: rev.Stamp,
			Author:    col.canonical(rev.Author),
			Domain:    rev.Domain(),
			TimeZone:  rev.TimeZone,
		})
		if err != nil {
			return err
		}

		col.stats.Revisions++
	}

	return nil
}

// lookup resolves every key through the cache, then resolves the misses with
// fn in parallel and stores the successful results. The returned map holds
// every key that has a value.
func (col *collection) lookup(
	ctx context.Context,
	pass string,
	ns statcache.Namespace,
	keys []string,
	fn func(context.Context, string) (int, error),
) map[string]int {
	values := make(map[string]int, len(keys))

	var misses []string

	pending := map[string]bool{}

	for _, key := range keys {
		if _, seen := values[key]; seen || pending[key] {
			continue
		}

		if v, ok := col.cache.Get(ns, key); ok {
			values[key] = v

			continue
		}

		pending[key] = true
		misses = append(misses, key)
	}

	if len(misses) == 0 {
		return values
	}

	col.logger.DebugContext(ctx, "resolving cache misses", "pass", pass, "misses", len(misses))

	results := resolver.Resolve(ctx, misses, col.resolveOptions(), fn)
	col.stats.Resolved += len(results)

	for _, res := range results {
		if res.Err != nil {
			col.resolveFailed(ctx, pass, res.Key, res.Err)

			continue
		}

		col.cache.Put(ns, res.Key, res.Value)
		values[res.Key] = res.Value
	}

	return values
}

func (col *collection) collectFileCounts(ctx context.Context) error {
	var (
		revs  []gitparse.StampRev
		trees []string
	)

	for _, line := range col.output(ctx, "files", treesCmd(col.cfg.Range), cmdDropCommitHdr) {
		if line == "" || gitparse.IsCommitHeader(line) {
			continue
		}

		rev, err := gitparse.ParseStampRev(line)
		if err != nil {
			col.malformed(ctx, "files", line, err)

			continue
		}

		revs = append(revs, rev)
		trees = append(trees, rev.Rev)
	}

	counts := col.lookup(ctx, "files", statcache.FilesInTree, trees, func(ctx context.Context, tree string) (int, error) {
		return col.count(ctx, filesInTreeCmd(tree))
	})

	err := col.st.AddCommits(len(revs))
	if err != nil {
		return err
	}

	for _, rev := range revs {
		files, ok := counts[rev.Rev]
		if !ok {
			continue
		}

		err = col.st.SetFileCount(rev.Stamp, files)
		if err != nil {
			return err
		}
	}

	return nil
}

func (col *collection) collectExtensions(ctx context.Context) error {
	out, err := col.run.Run(ctx, treeListingCmd(col.cfg.Range))
	if err != nil || out == "" {
		col.stats.EmptyPasses++
		col.logger.WarnContext(ctx, "tree listing returned no data", "error", err)

		return nil
	}

	entries, bad := gitparse.ParseTreeEntries(out)
	if bad > 0 {
		col.stats.MalformedLines += bad
		col.logger.WarnContext(ctx, "unexpected tree entries skipped", "count", bad)
	}

	exts := make([]string, len(entries))
	blobs := make([]string, len(entries))

	for i, entry := range entries {
		exts[i] = gitparse.Extension(entry.Path, col.cfg.MaxExtLength)
		blobs[i] = entry.Blob

		err = col.st.AddFile(exts[i], entry.Size)
		if err != nil {
			return err
		}
	}

	counts := col.lookup(ctx, "extensions", statcache.LinesInBlob, blobs, func(ctx context.Context, blob string) (int, error) {
		return col.count(ctx, blobLinesCmd(blob))
	})

	// Every occurrence is charged, so identical files count once per path.
	for i, blob := range blobs {
		lines, ok := counts[blob]
		if !ok {
			continue
		}

		err = col.st.AddExtensionLines(exts[i], lines)
		if err != nil {
			return err
		}
	}

	return nil
}

// collectLinearLineStats reads the shortstat log oldest first, so every
// summary line comes right before the header of its commit.
func (col *collection) collectLinearLineStats(ctx context.Context) error {
	const pass = "linestats"

	lines := col.output(ctx, pass, linearShortstatCmd(col.cfg.Range, col.cfg.LinearLinestats))
	slices.Reverse(lines)

	var files, inserted, deleted, total int

	for _, line := range lines {
		if line == "" {
			continue
		}

		if gitparse.IsStatSummary(line) {
			sum, err := gitparse.ParseStatSummary(line)
			if err != nil {
				col.malformed(ctx, pass, line, err)

				files, inserted, deleted = 0, 0, 0

				continue
			}

			files, inserted, deleted = sum.Files, sum.Insertions, sum.Deletions
			total += inserted - deleted

			continue
		}

		header, err := gitparse.ParseStampAuthor(line)
		if err != nil {
			col.malformed(ctx, pass, line, err)

			continue
		}

		err = col.st.AddLinearChange(header.Stamp, stats.Change{
			Files:      files,
			Insertions: inserted,
			Deletions:  deleted,
			Lines:      total,
		})
		if err != nil {
			return err
		}

		files, inserted, deleted = 0, 0, 0
	}

	return col.st.AddTotalLines(total)
}

// collectAuthorLineStats attributes lines over the full history. A commit
// older than its predecessor in the log keeps the predecessor's stamp so
// the per-author series stays monotonic under clock skew.
func (col *collection) collectAuthorLineStats(ctx context.Context) error {
	const pass = "author-linestats"

	lines := col.output(ctx, pass, authorShortstatCmd(col.cfg.Range))
	slices.Reverse(lines)

	var (
		inserted, deleted int
		stamp             int64
	)

	for _, line := range lines {
		if line == "" {
			continue
		}

		if gitparse.IsStatSummary(line) {
			sum, err := gitparse.ParseStatSummary(line)
			if err != nil {
				col.malformed(ctx, pass, line, err)

				inserted, deleted = 0, 0

				continue
			}

			inserted, deleted = sum.Insertions, sum.Deletions

			continue
		}

		header, err := gitparse.ParseStampAuthor(line)
		if err != nil {
			col.malformed(ctx, pass, line, err)

			continue
		}

		stamp = max(stamp, header.Stamp)

		err = col.st.AddAuthorChange(col.canonical(header.Author), stamp, inserted, deleted)
		if err != nil {
			return err
		}

		inserted, deleted = 0, 0
	}

	return nil
}
