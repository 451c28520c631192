package dispatch

import (
	"context"
	"fmt"

	"github.com/iota-uz/foundry/internal/providers"
)

// SourceType selects which fetch strategy populates the initial queue.
type SourceType string

const (
	SourceLabel   SourceType = "label"
	SourceProject SourceType = "project"
)

// FetchConfig parameterizes either fetch strategy.
type FetchConfig struct {
	Source        SourceType
	Owner         string
	Repo          string
	Label         string
	ProjectOwner  string
	ProjectNumber int
	ReadyStatus   string
	PriorityField string
}

// Fetch lists issues via the configured source strategy.
func Fetch(ctx context.Context, cfg FetchConfig, issues providers.IssueREST, tracker providers.Tracker) ([]*QueuedIssue, error) {
	switch cfg.Source {
	case SourceProject:
		return fetchFromProject(ctx, cfg, tracker)
	default:
		return fetchFromLabel(ctx, cfg, issues)
	}
}

func fetchFromLabel(ctx context.Context, cfg FetchConfig, issues providers.IssueREST) ([]*QueuedIssue, error) {
	label := cfg.Label
	if label == "" {
		label = "queue"
	}
	listed, err := issues.ListOpenIssuesByLabel(ctx, cfg.Owner, cfg.Repo, label)
	if err != nil {
		return nil, fmt.Errorf("dispatch: fetch by label: %w", err)
	}

	out := make([]*QueuedIssue, 0, len(listed))
	for _, iss := range listed {
		out = append(out, &QueuedIssue{
			Number: iss.Number,
			Title:  iss.Title,
			Body:   iss.Body,
			State:  iss.State,
			Labels: iss.Labels,
			Owner:  cfg.Owner,
			Repo:   cfg.Repo,
			URL:    iss.URL,
		})
	}
	return out, nil
}

func fetchFromProject(ctx context.Context, cfg FetchConfig, tracker providers.Tracker) ([]*QueuedIssue, error) {
	if err := tracker.Validate(ctx); err != nil {
		return nil, fmt.Errorf("dispatch: project validation failed: %w", err)
	}

	readyStatus := cfg.ReadyStatus
	if readyStatus == "" {
		readyStatus = "Ready"
	}

	items, err := tracker.FetchItemsByStatus(ctx, cfg.ProjectOwner, cfg.ProjectNumber, readyStatus)
	if err != nil {
		return nil, fmt.Errorf("dispatch: fetch items by status: %w", err)
	}

	out := make([]*QueuedIssue, 0, len(items))
	for _, item := range items {
		owner, repo := cfg.Owner, cfg.Repo
		out = append(out, &QueuedIssue{
			Number:          item.IssueNumber,
			Title:           item.Title,
			State:           "open",
			Labels:          synthesizeLabelsFromPriority(item.Priority),
			Owner:           owner,
			Repo:            repo,
			ProjectPriority: item.Priority,
		})
	}
	return out, nil
}

func synthesizeLabelsFromPriority(priority string) []string {
	if priority == "" {
		return nil
	}
	return []string{"priority:" + priority}
}
