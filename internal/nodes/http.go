package nodes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/iota-uz/foundry/internal/graph"
)

// HTTPResult is the shape stashed into context for an HTTP node.
type HTTPResult struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
	Success    bool   `json:"success"`
}

// httpRuntime issues a single HTTP request whose URL, body, and query are
// resolved from state.
type httpRuntime struct {
	name   string
	cfg    *graph.HTTPConfig
	then   graph.Then
	client *http.Client
}

// NewHTTP builds the Runtime for an HTTP node.
func NewHTTP(name string, cfg *graph.HTTPConfig, then graph.Then, client *http.Client) graph.Runtime {
	if client == nil {
		client = http.DefaultClient
	}
	return &httpRuntime{name: name, cfg: cfg, then: then, client: client}
}

func (r *httpRuntime) Kind() graph.Kind { return graph.KindHTTP }

func (r *httpRuntime) Execute(ctx context.Context, state *graph.WorkflowState) (graph.ExecResult, error) {
	rawURL := r.cfg.URL(state)
	if r.cfg.Query != nil {
		if q := r.cfg.Query(state); len(q) > 0 {
			u, err := url.Parse(rawURL)
			if err != nil {
				return graph.ExecResult{}, &graph.NodeExecutionError{NodeName: r.name, NodeKind: string(graph.KindHTTP), Cause: err}
			}
			values := u.Query()
			for k, v := range q {
				values.Set(k, v)
			}
			u.RawQuery = values.Encode()
			rawURL = u.String()
		}
	}

	method := r.cfg.Method
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if r.cfg.Body != nil {
		payload := r.cfg.Body(state)
		if payload != nil {
			encoded, err := json.Marshal(payload)
			if err != nil {
				return graph.ExecResult{}, &graph.NodeExecutionError{NodeName: r.name, NodeKind: string(graph.KindHTTP), Cause: err}
			}
			bodyReader = bytes.NewReader(encoded)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return graph.ExecResult{}, &graph.NodeExecutionError{NodeName: r.name, NodeKind: string(graph.KindHTTP), Cause: err}
	}
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return graph.ExecResult{}, &graph.NodeExecutionError{NodeName: r.name, NodeKind: string(graph.KindHTTP), Cause: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return graph.ExecResult{}, &graph.NodeExecutionError{NodeName: r.name, NodeKind: string(graph.KindHTTP), Cause: err}
	}

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	if r.cfg.ThrowOnError && !success {
		return graph.ExecResult{}, &graph.NodeExecutionError{
			NodeName: r.name, NodeKind: string(graph.KindHTTP),
			Cause: fmt.Errorf("http %s %s returned %d", method, rawURL, resp.StatusCode),
		}
	}

	key := resultKey(r.cfg.ResultKey, StashHTTPResult)
	return graph.ExecResult{
		Delta: graph.StateDelta{Context: graph.Context{key: HTTPResult{
			StatusCode: resp.StatusCode, Body: string(respBody), Success: success,
		}}},
	}, nil
}

func (r *httpRuntime) ResolveNext(state *graph.WorkflowState) string { return r.then(state) }
