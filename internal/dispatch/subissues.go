package dispatch

import (
	"context"

	"github.com/iota-uz/foundry/internal/providers"
)

// subIssueCache records the cached state of every sub-issue number seen
// across the whole queue so BlockedBy resolution never re-fetches.
type subIssueCache map[int]string

// PopulateSubIssues queries the sub-issues edge for every issue missing
// it, caching each sub-issue's state. A query failure for one issue is
// treated as "no sub-issues" for that issue — soft-fails per the
// optional-per-tenant GraphQL feature.
func PopulateSubIssues(ctx context.Context, queue []*QueuedIssue, issues providers.IssueREST) subIssueCache {
	cache := make(subIssueCache)
	for _, q := range queue {
		if len(q.SubIssueNumbers) > 0 {
			continue
		}
		subs, err := issues.ListSubIssues(ctx, q.Owner, q.Repo, q.Number)
		if err != nil {
			continue
		}
		for _, s := range subs {
			q.SubIssueNumbers = append(q.SubIssueNumbers, s.Number)
			cache[s.Number] = s.State
		}
	}
	return cache
}
