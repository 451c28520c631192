package ghclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/iota-uz/foundry/internal/providers"
)

// ProjectsClient implements providers.Tracker against a GitHub Projects v2
// board. gh has no subcommand for reading or writing custom field values,
// so every operation here goes through gh api graphql.
type ProjectsClient struct {
	*Client
	Owner  string // project owner login (user or organization)
	Number int    // project number, as shown in the project's URL

	mu   sync.Mutex
	meta map[string]*projectMeta
}

// NewProjectsClient binds c to the project identified by owner/number. Owner
// and number default every Tracker call that doesn't carry its own (e.g.
// GetIssueStatus, UpdateStatus); FetchItemsByStatus accepts an explicit
// owner/number per call instead, to let the dispatch resolver query a
// project other than the one this client defaults to.
func NewProjectsClient(c *Client, owner string, number int) *ProjectsClient {
	return &ProjectsClient{Client: c, Owner: owner, Number: number, meta: map[string]*projectMeta{}}
}

var _ providers.Tracker = (*ProjectsClient)(nil)

type fieldMeta struct {
	id      string
	kind    string // "text" or "singleSelect"
	options map[string]string
}

type projectMeta struct {
	id     string
	fields map[string]fieldMeta // keyed by field name, case-insensitive lookup via fieldByName
}

func (m *projectMeta) fieldByName(name string) (fieldMeta, bool) {
	for k, v := range m.fields {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return fieldMeta{}, false
}

const projectMetaQuery = `query($login: String!, $number: Int!) {
  organization(login: $login) { projectV2(number: $number) { id fields(first: 50) { nodes {
    ... on ProjectV2FieldCommon { id name }
    ... on ProjectV2SingleSelectField { id name options { id name } }
  } } } }
  user(login: $login) { projectV2(number: $number) { id fields(first: 50) { nodes {
    ... on ProjectV2FieldCommon { id name }
    ... on ProjectV2SingleSelectField { id name options { id name } }
  } } } }
}`

type projectOwnerResult struct {
	ProjectV2 *struct {
		ID     string `json:"id"`
		Fields struct {
			Nodes []struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Options []struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"options"`
			} `json:"nodes"`
		} `json:"fields"`
	} `json:"projectV2"`
}

func (p *ProjectsClient) resolveMeta(ctx context.Context, owner string, number int) (*projectMeta, error) {
	key := fmt.Sprintf("%s/%d", owner, number)

	p.mu.Lock()
	if m, ok := p.meta[key]; ok {
		p.mu.Unlock()
		return m, nil
	}
	p.mu.Unlock()

	var resp struct {
		Data struct {
			Organization *projectOwnerResult `json:"organization"`
			User         *projectOwnerResult `json:"user"`
		} `json:"data"`
	}
	err := p.graphQL(ctx, &resp, projectMetaQuery,
		map[string]string{"login": owner},
		map[string]string{"number": strconv.Itoa(number)})
	if err != nil {
		return nil, err
	}

	result := resp.Data.Organization
	if result == nil || result.ProjectV2 == nil {
		result = resp.Data.User
	}
	if result == nil || result.ProjectV2 == nil {
		return nil, &providers.ProjectsError{Code: "not_found", Details: fmt.Sprintf("no ProjectV2 #%d found for owner %s", number, owner)}
	}

	meta := &projectMeta{id: result.ProjectV2.ID, fields: map[string]fieldMeta{}}
	for _, f := range result.ProjectV2.Fields.Nodes {
		fm := fieldMeta{id: f.ID, kind: "text"}
		if len(f.Options) > 0 {
			fm.kind = "singleSelect"
			fm.options = make(map[string]string, len(f.Options))
			for _, o := range f.Options {
				fm.options[o.Name] = o.ID
			}
		}
		meta.fields[f.Name] = fm
	}

	p.mu.Lock()
	p.meta[key] = meta
	p.mu.Unlock()
	return meta, nil
}

func (p *ProjectsClient) Validate(ctx context.Context) error {
	meta, err := p.resolveMeta(ctx, p.Owner, p.Number)
	if err != nil {
		return err
	}
	if _, ok := meta.fieldByName("Status"); !ok {
		return &providers.ProjectsError{Code: "no_status_field", Details: "project has no Status field"}
	}
	return nil
}

const projectItemsQuery = `query($id: ID!) {
  node(id: $id) {
    ... on ProjectV2 {
      items(first: 100) {
        nodes {
          id
          status: fieldValueByName(name: "Status") { ... on ProjectV2ItemFieldSingleSelectValue { name } }
          priority: fieldValueByName(name: "Priority") { ... on ProjectV2ItemFieldSingleSelectValue { name } }
          content { ... on Issue { number title repository { nameWithOwner } } }
        }
      }
    }
  }
}`

type projectItemNode struct {
	ID     string `json:"id"`
	Status *struct {
		Name string `json:"name"`
	} `json:"status"`
	Priority *struct {
		Name string `json:"name"`
	} `json:"priority"`
	Content *struct {
		Number     int    `json:"number"`
		Title      string `json:"title"`
		Repository struct {
			NameWithOwner string `json:"nameWithOwner"`
		} `json:"repository"`
	} `json:"content"`
}

func (p *ProjectsClient) fetchItems(ctx context.Context, meta *projectMeta) ([]projectItemNode, error) {
	var resp struct {
		Data struct {
			Node struct {
				Items struct {
					Nodes []projectItemNode `json:"nodes"`
				} `json:"items"`
			} `json:"node"`
		} `json:"data"`
	}
	err := p.graphQL(ctx, &resp, projectItemsQuery, map[string]string{"id": meta.id}, nil)
	if err != nil {
		return nil, err
	}
	return resp.Data.Node.Items.Nodes, nil
}

func (p *ProjectsClient) FetchItemsByStatus(ctx context.Context, owner string, projectNumber int, status string) ([]providers.ProjectItem, error) {
	meta, err := p.resolveMeta(ctx, owner, projectNumber)
	if err != nil {
		return nil, err
	}
	nodes, err := p.fetchItems(ctx, meta)
	if err != nil {
		return nil, err
	}

	var items []providers.ProjectItem
	for _, n := range nodes {
		if n.Content == nil || n.Status == nil || !strings.EqualFold(n.Status.Name, status) {
			continue
		}
		item := providers.ProjectItem{
			IssueNumber: n.Content.Number,
			Title:       n.Content.Title,
			Status:      n.Status.Name,
			Repository:  n.Content.Repository.NameWithOwner,
		}
		if n.Priority != nil {
			item.Priority = n.Priority.Name
		}
		items = append(items, item)
	}
	return items, nil
}

func (p *ProjectsClient) findItem(ctx context.Context, meta *projectMeta, owner, repo string, issueNumber int) (*projectItemNode, error) {
	nodes, err := p.fetchItems(ctx, meta)
	if err != nil {
		return nil, err
	}
	want := repoFlag(owner, repo)
	for i := range nodes {
		n := &nodes[i]
		if n.Content != nil && n.Content.Number == issueNumber && strings.EqualFold(n.Content.Repository.NameWithOwner, want) {
			return n, nil
		}
	}
	return nil, &providers.ProjectsError{Code: "item_not_found", Details: fmt.Sprintf("issue %s#%d not found on project", want, issueNumber)}
}

const updateFieldValueMutation = `mutation($project: ID!, $item: ID!, $field: ID!, $option: String!) {
  updateProjectV2ItemFieldValue(input: {projectId: $project, itemId: $item, fieldId: $field, value: {singleSelectOptionId: $option}}) {
    clientMutationId
  }
}`

const updateFieldTextMutation = `mutation($project: ID!, $item: ID!, $field: ID!, $text: String!) {
  updateProjectV2ItemFieldValue(input: {projectId: $project, itemId: $item, fieldId: $field, value: {text: $text}}) {
    clientMutationId
  }
}`

func (p *ProjectsClient) UpdateStatus(ctx context.Context, req providers.UpdateStatusRequest) error {
	meta, err := p.resolveMeta(ctx, p.Owner, p.Number)
	if err != nil {
		return err
	}
	field, ok := meta.fieldByName("Status")
	if !ok {
		return &providers.ProjectsError{Code: "no_status_field", Details: "project has no Status field"}
	}
	optionID, ok := field.options[req.Status]
	if !ok {
		return &providers.ProjectsError{Code: "unknown_status", Details: fmt.Sprintf("status %q is not an option on the project's Status field", req.Status)}
	}
	item, err := p.findItem(ctx, meta, req.Owner, req.Repo, req.IssueNumber)
	if err != nil {
		return err
	}

	var resp struct{}
	return p.graphQL(ctx, &resp, updateFieldValueMutation, map[string]string{
		"project": meta.id,
		"item":    item.ID,
		"field":   field.id,
		"option":  optionID,
	}, nil)
}

func (p *ProjectsClient) UpdateFields(ctx context.Context, req providers.UpdateFieldsRequest) error {
	meta, err := p.resolveMeta(ctx, p.Owner, p.Number)
	if err != nil {
		return err
	}
	item, err := p.findItem(ctx, meta, req.Owner, req.Repo, req.IssueNumber)
	if err != nil {
		return err
	}

	for name, value := range req.Fields {
		field, ok := meta.fieldByName(name)
		if !ok {
			return &providers.ProjectsError{Code: "unknown_field", Details: fmt.Sprintf("project has no field named %q", name)}
		}

		var resp struct{}
		if field.kind == "singleSelect" {
			optionID, ok := field.options[value]
			if !ok {
				return &providers.ProjectsError{Code: "unknown_option", Details: fmt.Sprintf("%q is not an option on field %q", value, name)}
			}
			err = p.graphQL(ctx, &resp, updateFieldValueMutation, map[string]string{
				"project": meta.id, "item": item.ID, "field": field.id, "option": optionID,
			}, nil)
		} else {
			err = p.graphQL(ctx, &resp, updateFieldTextMutation, map[string]string{
				"project": meta.id, "item": item.ID, "field": field.id, "text": value,
			}, nil)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *ProjectsClient) GetIssueStatus(ctx context.Context, owner, repo string, issueNumber int) (string, error) {
	meta, err := p.resolveMeta(ctx, p.Owner, p.Number)
	if err != nil {
		return "", err
	}
	item, err := p.findItem(ctx, meta, owner, repo, issueNumber)
	if err != nil {
		return "", err
	}
	if item.Status == nil {
		return "", nil
	}
	return item.Status.Name, nil
}
