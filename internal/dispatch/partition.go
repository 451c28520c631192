package dispatch

import "sort"

// Partition splits resolved issues into the ready-to-dispatch set and
// everything else. Ready requires status READY and isLeaf — non-leaf
// issues are aggregators and are never dispatched directly. Nodes
// participating in a detected cycle are suppressed from ready even if
// their own status would otherwise qualify.
func Partition(resolved []*ResolvedIssue, cycleNodes map[string]struct{}) (ready, blocked []*ResolvedIssue) {
	for i, r := range resolved {
		_, inCycle := cycleNodes[r.Issue.ID()]
		if r.Status == StatusReady && r.IsLeaf && !inCycle {
			ready = append(ready, resolved[i])
		} else {
			blocked = append(blocked, resolved[i])
		}
	}

	sort.SliceStable(ready, func(i, j int) bool {
		return ready[i].PriorityScore < ready[j].PriorityScore
	})
	return ready, blocked
}
