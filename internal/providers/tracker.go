package providers

import (
	"context"
	"fmt"
)

// ProjectsError reports a typed failure from the project tracker: an
// invalid project reference, an auth failure, or a field-mapping error.
type ProjectsError struct {
	Code    string
	Details string
}

func (e *ProjectsError) Error() string {
	return fmt.Sprintf("projects error [%s]: %s", e.Code, e.Details)
}

// ProjectItem is a single row from a project board query.
type ProjectItem struct {
	IssueNumber int
	Title       string
	Status      string
	Priority    string
	Repository  string
}

// UpdateStatusRequest moves a tracked item to a new status.
type UpdateStatusRequest struct {
	Owner       string
	Repo        string
	IssueNumber int
	Status      string
}

// UpdateFieldsRequest sets arbitrary project-field values on a tracked
// item (used for the Priority field and similar custom fields).
type UpdateFieldsRequest struct {
	Owner       string
	Repo        string
	IssueNumber int
	Fields      map[string]string
}

// Tracker is the project-tracker boundary the dispatch resolver and the
// issue-processor's SET_DONE_STATUS node consume. Concrete GraphQL/REST
// wiring lives outside this package.
type Tracker interface {
	Validate(ctx context.Context) error
	FetchItemsByStatus(ctx context.Context, owner string, projectNumber int, status string) ([]ProjectItem, error)
	UpdateStatus(ctx context.Context, req UpdateStatusRequest) error
	UpdateFields(ctx context.Context, req UpdateFieldsRequest) error
	GetIssueStatus(ctx context.Context, owner, repo string, issueNumber int) (string, error)
}
