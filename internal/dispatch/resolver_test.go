package dispatch

import (
	"context"
	"testing"

	"github.com/iota-uz/foundry/internal/providers"
)

type fakeIssueREST struct {
	issues   []providers.Issue
	subs     map[int][]providers.SubIssueRef
	prBodies map[int]string
	gotLabel string
}

func (f *fakeIssueREST) ListOpenIssuesByLabel(_ context.Context, _, _, label string) ([]providers.Issue, error) {
	f.gotLabel = label
	return f.issues, nil
}

func (f *fakeIssueREST) GetIssue(_ context.Context, _, _ string, number int) (providers.Issue, error) {
	for _, iss := range f.issues {
		if iss.Number == number {
			return iss, nil
		}
	}
	return providers.Issue{}, nil
}

func (f *fakeIssueREST) ListSubIssues(_ context.Context, _, _ string, number int) ([]providers.SubIssueRef, error) {
	return f.subs[number], nil
}

func (f *fakeIssueREST) PostComment(_ context.Context, _, _ string, _ int, _ string) error {
	return nil
}

func (f *fakeIssueREST) GetPRBody(_ context.Context, _, _ string, number int) (string, error) {
	return f.prBodies[number], nil
}

func (f *fakeIssueREST) UpdatePRBody(_ context.Context, _, _ string, number int, body string) error {
	if f.prBodies == nil {
		f.prBodies = make(map[int]string)
	}
	f.prBodies[number] = body
	return nil
}

func (f *fakeIssueREST) MarkPRReady(_ context.Context, _, _ string, _ int) error { return nil }

func TestRunDispatchesTwoIndependentReadyIssues(t *testing.T) {
	issues := &fakeIssueREST{
		issues: []providers.Issue{
			{Number: 10, Title: "first", State: "open"},
			{Number: 11, Title: "second", State: "open"},
		},
		subs: map[int][]providers.SubIssueRef{},
	}

	cfg := ResolveConfig{Fetch: FetchConfig{Source: SourceLabel, Owner: "acme", Repo: "core"}}
	result, err := Run(context.Background(), cfg, issues, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Ready) != 2 {
		t.Fatalf("expected both issues ready, got %d", len(result.Ready))
	}
	if len(result.Matrix.Include) != 2 {
		t.Fatalf("expected matrix with 2 entries, got %d", len(result.Matrix.Include))
	}
}

func TestRunBlocksParentOnOpenSubIssue(t *testing.T) {
	issues := &fakeIssueREST{
		issues: []providers.Issue{
			{Number: 20, Title: "parent", State: "open"},
		},
		subs: map[int][]providers.SubIssueRef{
			20: {{Number: 21, State: "open"}},
		},
	}

	cfg := ResolveConfig{Fetch: FetchConfig{Source: SourceLabel, Owner: "acme", Repo: "core"}}
	result, err := Run(context.Background(), cfg, issues, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Ready) != 0 {
		t.Fatalf("expected parent blocked (non-leaf with open sub-issue), got ready=%v", result.Ready)
	}
	if len(result.Blocked) != 1 {
		t.Fatalf("expected parent in blocked set, got %d", len(result.Blocked))
	}
}

func TestRunDetectsCycleAndSuppressesParticipants(t *testing.T) {
	issues := &fakeIssueREST{
		issues: []providers.Issue{
			{Number: 20, Title: "a", State: "open"},
			{Number: 21, Title: "b", State: "open"},
		},
		subs: map[int][]providers.SubIssueRef{
			20: {{Number: 21, State: "open"}},
			21: {{Number: 20, State: "open"}},
		},
	}

	cfg := ResolveConfig{Fetch: FetchConfig{Source: SourceLabel, Owner: "acme", Repo: "core"}}
	result, err := Run(context.Background(), cfg, issues, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Cycles) == 0 {
		t.Fatal("expected a detected cycle")
	}
	if len(result.Ready) != 0 {
		t.Fatalf("expected cycle participants suppressed from ready, got %v", result.Ready)
	}
}

func TestRunRespectsMaxConcurrentBound(t *testing.T) {
	issues := &fakeIssueREST{
		issues: []providers.Issue{
			{Number: 1, Title: "a", State: "open"},
			{Number: 2, Title: "b", State: "open"},
			{Number: 3, Title: "c", State: "open"},
		},
		subs: map[int][]providers.SubIssueRef{},
	}

	cfg := ResolveConfig{
		Fetch:         FetchConfig{Source: SourceLabel, Owner: "acme", Repo: "core"},
		MaxConcurrent: 1,
	}
	result, err := Run(context.Background(), cfg, issues, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Matrix.Include) != 1 {
		t.Fatalf("expected matrix bounded to 1, got %d", len(result.Matrix.Include))
	}
}
