package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/iota-uz/foundry/internal/providers"
)

type fakeTracker struct {
	validateErr error
	items       []providers.ProjectItem
	fetchErr    error
	gotStatus   string
}

func (f *fakeTracker) Validate(_ context.Context) error { return f.validateErr }

func (f *fakeTracker) FetchItemsByStatus(_ context.Context, _ string, _ int, status string) ([]providers.ProjectItem, error) {
	f.gotStatus = status
	return f.items, f.fetchErr
}

func (f *fakeTracker) UpdateStatus(_ context.Context, _ providers.UpdateStatusRequest) error { return nil }
func (f *fakeTracker) UpdateFields(_ context.Context, _ providers.UpdateFieldsRequest) error { return nil }
func (f *fakeTracker) GetIssueStatus(_ context.Context, _, _ string, _ int) (string, error) {
	return "", nil
}

func TestFetchFromLabelDefaultsToQueueLabel(t *testing.T) {
	rest := &fakeIssueREST{issues: []providers.Issue{{Number: 1, Title: "a", State: "open"}}}
	out, err := Fetch(context.Background(), FetchConfig{Source: SourceLabel, Owner: "acme", Repo: "core"}, rest, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].Owner != "acme" {
		t.Fatalf("unexpected result: %+v", out)
	}
	if rest.gotLabel != "queue" {
		t.Fatalf("expected default label %q, got %q", "queue", rest.gotLabel)
	}
}

func TestFetchFromProjectFailsFastOnValidationError(t *testing.T) {
	tracker := &fakeTracker{validateErr: errors.New("bad token")}
	_, err := Fetch(context.Background(), FetchConfig{Source: SourceProject}, nil, tracker)
	if err == nil {
		t.Fatal("expected validation error to propagate")
	}
}

func TestFetchFromProjectSynthesizesPriorityLabel(t *testing.T) {
	tracker := &fakeTracker{items: []providers.ProjectItem{
		{IssueNumber: 5, Title: "x", Priority: "high"},
	}}
	out, err := Fetch(context.Background(), FetchConfig{Source: SourceProject, Owner: "acme", Repo: "core"}, nil, tracker)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out[0].Labels) != 1 || out[0].Labels[0] != "priority:high" {
		t.Fatalf("expected synthesized priority label, got %v", out[0].Labels)
	}
}

func TestFetchFromProjectDefaultsReadyStatus(t *testing.T) {
	tracker := &fakeTracker{}
	_, err := Fetch(context.Background(), FetchConfig{Source: SourceProject}, nil, tracker)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tracker.gotStatus != "Ready" {
		t.Fatalf("expected default ready status %q, got %q", "Ready", tracker.gotStatus)
	}
}
