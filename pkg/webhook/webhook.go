// Package webhook posts run summaries to HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ccollicutt/log2sql/pkg/output"
	"github.com/ccollicutt/log2sql/pkg/pipeline"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// maxResponseBody caps how much of a response body is kept.
const maxResponseBody = 1 << 20

// Request headers set on every delivery.
const (
	HeaderRunID = "X-Log2sql-Run-Id"
	HeaderEvent = "X-Log2sql-Event"
)

// Events name what happened to a run.
const (
	EventCompleted = "run.completed"
	EventIssues    = "run.issues"
	EventFailed    = "run.failed"
)

// Payload is the JSON body posted to a webhook. Report is only attached
// to issues and failed events.
type Payload struct {
	Event     string                   `json:"event"`
	RunID     string                   `json:"run_id,omitempty"`
	Table     string                   `json:"table"`
	Database  string                   `json:"database,omitempty"`
	LinesRead int                      `json:"lines_read"`
	Inserted  int                      `json:"inserted"`
	Skipped   int                      `json:"skipped"`
	SkippedBy map[pipeline.Outcome]int `json:"skipped_by,omitempty"`
	Pruning   *output.Pruning          `json:"pruning,omitempty"`
	Error     string                   `json:"error,omitempty"`
	Report    *output.Report           `json:"report,omitempty"`
}

// NewPayload builds the payload for a run. runErr is the error the
// conversion ended with, if any.
func NewPayload(report *output.Report, runErr error) *Payload {
	p := &Payload{
		Event:     EventCompleted,
		RunID:     report.Metadata.RunID,
		Table:     report.Metadata.Table,
		Database:  report.Metadata.Database,
		LinesRead: report.Summary.LinesRead,
		Inserted:  report.Summary.Inserted,
		Skipped:   report.Summary.Skipped,
		SkippedBy: report.SkippedByOutcome(),
		Pruning:   report.Summary.Pruning,
	}

	switch {
	case runErr != nil:
		p.Event = EventFailed
		p.Error = runErr.Error()
	case report.HasSkipped():
		p.Event = EventIssues
	}
	if p.Event != EventCompleted {
		p.Report = report
	}
	return p
}

// HasIssues reports whether the run skipped lines or failed.
func (p *Payload) HasIssues() bool {
	return p.Event != EventCompleted
}

// Client sends run summaries to webhook endpoints.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new webhook client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{},
	}
}

// SendOptions configures a webhook request.
type SendOptions struct {
	URL     string
	Token   string        // Bearer token (optional)
	Timeout time.Duration // Request timeout (uses DefaultTimeout if zero)
}

// Response contains the result of a webhook request.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error
}

// Success returns true if the webhook was sent successfully (2xx status).
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Send posts the payload to one endpoint. Failures are reported in the
// Response, never returned.
func (c *Client) Send(ctx context.Context, payload *Payload, opts SendOptions) *Response {
	start := time.Now()
	resp := c.post(ctx, payload, opts)
	resp.Duration = time.Since(start)
	return resp
}

func (c *Client) post(ctx context.Context, payload *Payload, opts SendOptions) *Response {
	body, err := json.Marshal(payload)
	if err != nil {
		return &Response{Error: fmt.Errorf("encoding payload: %w", err)}
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(body))
	if err != nil {
		return &Response{Error: fmt.Errorf("building request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "log2sql-webhook")
	req.Header.Set(HeaderEvent, payload.Event)
	if payload.RunID != "" {
		req.Header.Set(HeaderRunID, payload.RunID)
	}
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return &Response{Error: fmt.Errorf("posting to %s: %w", opts.URL, err)}
	}
	defer httpResp.Body.Close()

	resp := &Response{StatusCode: httpResp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		resp.Error = fmt.Errorf("reading response: %w", err)
		return resp
	}
	resp.Body = string(data)

	if resp.StatusCode >= 400 {
		resp.Error = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return resp
}
