package dispatch

import "strconv"

// Resolve computes each queued issue's dependency status: dependencies
// are its sub-issues, blockedBy is the subset whose cached state is open,
// status derives from closed/blocked/ready, isLeaf iff no sub-issues.
func Resolve(queue []*QueuedIssue, cache subIssueCache) []*ResolvedIssue {
	out := make([]*ResolvedIssue, 0, len(queue))
	for _, q := range queue {
		deps := make([]DependencyRef, 0, len(q.SubIssueNumbers))
		blocked := make([]DependencyRef, 0)
		for _, sub := range q.SubIssueNumbers {
			state := cache[sub]
			ref := DependencyRef{ID: subID(q, sub), State: state}
			deps = append(deps, ref)
			if state == "open" {
				blocked = append(blocked, ref)
			}
		}

		status := StatusReady
		switch {
		case q.State == "closed":
			status = StatusClosed
		case len(blocked) > 0:
			status = StatusBlocked
		}

		priority := ExtractPriority(q.ProjectPriority, q.Labels)
		out = append(out, &ResolvedIssue{
			Issue:         q,
			Status:        status,
			Dependencies:  deps,
			BlockedBy:     blocked,
			Priority:      priority,
			PriorityScore: priority.Score(),
			IsLeaf:        len(q.SubIssueNumbers) == 0,
		})
	}
	return out
}

func subID(parent *QueuedIssue, number int) string {
	return parent.Owner + "/" + parent.Repo + "#" + strconv.Itoa(number)
}

// BuildDAG constructs one DagNode per resolved issue, keyed owner/repo#number,
// with back-edges populated from each node's dependsOn.
func BuildDAG(resolved []*ResolvedIssue) map[string]*DagNode {
	nodes := make(map[string]*DagNode, len(resolved))
	for _, r := range resolved {
		id := r.Issue.ID()
		dependsOn := make([]string, len(r.Dependencies))
		for i, d := range r.Dependencies {
			dependsOn[i] = d.ID
		}
		nodes[id] = &DagNode{ID: id, Issue: r, DependsOn: dependsOn}
	}
	for _, n := range nodes {
		for _, depID := range n.DependsOn {
			if dep, ok := nodes[depID]; ok {
				dep.DependedBy = append(dep.DependedBy, n.ID)
			}
		}
	}
	return nodes
}
