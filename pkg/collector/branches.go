package collector

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// originHead is the symbolic remote HEAD; it names no branch of its own.
const originHead = "origin/HEAD"

// Branches lists the local branches and the branches of origin, sorted and
// without duplicates.
func (c *Collector) Branches(ctx context.Context, repoPath string) ([]string, error) {
	out, err := c.newRunner(repoPath).Run(ctx, cmdListBranches)
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}

	var branches []string

	for line := range strings.Lines(out) {
		name := strings.TrimSpace(line)
		if name == "" || name == originHead || name == "origin" {
			continue
		}

		branches = append(branches, name)
	}

	slices.Sort(branches)

	return slices.Compact(branches), nil
}

// ForBranch returns a copy of the range ending at branch.
func (r Range) ForBranch(branch string) Range {
	r.CommitEnd = branch

	return r
}
