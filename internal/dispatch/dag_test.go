package dispatch

import "testing"

func issue(owner, repo string, number int, state string, subs ...int) *QueuedIssue {
	return &QueuedIssue{Owner: owner, Repo: repo, Number: number, State: state, SubIssueNumbers: subs}
}

func TestResolveMarksLeafReadyWhenNoSubIssues(t *testing.T) {
	q := []*QueuedIssue{issue("acme", "core", 10, "open")}
	resolved := Resolve(q, subIssueCache{})
	if resolved[0].Status != StatusReady || !resolved[0].IsLeaf {
		t.Fatalf("expected ready leaf, got status=%s isLeaf=%v", resolved[0].Status, resolved[0].IsLeaf)
	}
}

func TestResolveMarksBlockedWhenSubIssueOpen(t *testing.T) {
	q := []*QueuedIssue{issue("acme", "core", 20, "open", 21)}
	cache := subIssueCache{21: "open"}
	resolved := Resolve(q, cache)
	if resolved[0].Status != StatusBlocked {
		t.Fatalf("expected blocked, got %s", resolved[0].Status)
	}
	if resolved[0].IsLeaf {
		t.Fatal("expected non-leaf since it has sub-issues")
	}
}

func TestResolveMarksClosedRegardlessOfSubIssues(t *testing.T) {
	q := []*QueuedIssue{issue("acme", "core", 30, "closed", 31)}
	cache := subIssueCache{31: "open"}
	resolved := Resolve(q, cache)
	if resolved[0].Status != StatusClosed {
		t.Fatalf("expected closed, got %s", resolved[0].Status)
	}
}

func TestResolveReadyWhenSubIssuesAllClosed(t *testing.T) {
	q := []*QueuedIssue{issue("acme", "core", 40, "open", 41)}
	cache := subIssueCache{41: "closed"}
	resolved := Resolve(q, cache)
	if resolved[0].Status != StatusReady {
		t.Fatalf("expected ready, got %s", resolved[0].Status)
	}
}

func TestBuildDAGPopulatesBackEdges(t *testing.T) {
	parent := issue("acme", "core", 20, "open", 21)
	child := issue("acme", "core", 21, "open")
	resolved := Resolve([]*QueuedIssue{parent, child}, subIssueCache{21: "open"})
	dag := BuildDAG(resolved)

	parentNode := dag["acme/core#20"]
	childNode := dag["acme/core#21"]
	if len(parentNode.DependsOn) != 1 || parentNode.DependsOn[0] != "acme/core#21" {
		t.Fatalf("expected parent to depend on child, got %v", parentNode.DependsOn)
	}
	if len(childNode.DependedBy) != 1 || childNode.DependedBy[0] != "acme/core#20" {
		t.Fatalf("expected child back-edge to parent, got %v", childNode.DependedBy)
	}
}
