// Package client is the HTTP client for the remote job service: job create,
// get, pause, resume, delete, and a blocking wait with polling.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/qirin-io/qirin/encoding"
)

// JobStatus is the lifecycle state of a remote job.
type JobStatus string

const (
	JobStarted JobStatus = "STARTED"
	JobPaused  JobStatus = "PAUSED"
	JobSuccess JobStatus = "SUCCESS"
	JobError   JobStatus = "ERROR"
)

// ParseJobStatus validates a status string from the server.
func ParseJobStatus(s string) (JobStatus, error) {
	switch JobStatus(s) {
	case JobStarted, JobPaused, JobSuccess, JobError:
		return JobStatus(s), nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// Job is the server-side view of a submitted run.
type Job struct {
	ID     uuid.UUID        `json:"id"`
	Slug   string           `json:"slug"`
	Status JobStatus        `json:"status"`
	Result *encoding.Result `json:"result,omitempty"`
	Error  *string          `json:"error,omitempty"`
}

// WaitOptions control the blocking wait on a job.
type WaitOptions struct {
	// Interval between polls. Zero means DefaultPollInterval.
	Interval time.Duration
	// MaxWait bounds the total wait. Zero means no bound.
	MaxWait time.Duration
}

// DefaultPollInterval is the poll spacing used when none is configured.
const DefaultPollInterval = time.Second

// ErrWaitTimeout reports that a job did not finish within MaxWait.
var ErrWaitTimeout = errors.New("timed out waiting for job")

// Client talks to the job service.
type Client struct {
	creds  Credentials
	client *http.Client
	log    zerolog.Logger
}

// New creates a client from credentials.
func New(creds Credentials, log zerolog.Logger) *Client {
	return &Client{
		creds: creds,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: log.With().Str("client", "jobs").Logger(),
	}
}

// Create submits a job request and returns the created job.
func (c *Client) Create(ctx context.Context, request any) (*Job, error) {
	return c.do(ctx, http.MethodPost, "/jobs", request)
}

// Get fetches a job by slug.
func (c *Client) Get(ctx context.Context, slug string) (*Job, error) {
	return c.do(ctx, http.MethodGet, "/jobs/"+slug, nil)
}

// Pause suspends a running job.
func (c *Client) Pause(ctx context.Context, slug string) (*Job, error) {
	return c.do(ctx, http.MethodPost, "/jobs/"+slug+"/pause", nil)
}

// Resume restarts a paused job.
func (c *Client) Resume(ctx context.Context, slug string) (*Job, error) {
	return c.do(ctx, http.MethodPost, "/jobs/"+slug+"/resume", nil)
}

// Delete removes a job.
func (c *Client) Delete(ctx context.Context, slug string) error {
	_, err := c.do(ctx, http.MethodDelete, "/jobs/"+slug, nil)
	return err
}

// Wait polls a job until it succeeds, surfacing the server's error detail if
// the job fails and ErrWaitTimeout if MaxWait elapses first.
func (c *Client) Wait(ctx context.Context, slug string, opts WaitOptions) (*Job, error) {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	var deadline time.Time
	if opts.MaxWait > 0 {
		deadline = time.Now().Add(opts.MaxWait)
	}
	for {
		job, err := c.Get(ctx, slug)
		if err != nil {
			return nil, err
		}
		switch job.Status {
		case JobSuccess:
			return job, nil
		case JobError:
			detail := "no detail provided"
			if job.Error != nil {
				detail = *job.Error
			}
			return nil, fmt.Errorf("job %s failed: %s", slug, detail)
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return nil, fmt.Errorf("job %s: %w", slug, ErrWaitTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}
}

type errorResponse struct {
	Details string `json:"details"`
}

// do sends one request and decodes the job payload.
func (c *Client) do(ctx context.Context, method, endpoint string, request any) (*Job, error) {
	var body io.Reader
	if request != nil {
		jsonData, err := json.Marshal(request)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.creds.URL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if request != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.SetBasicAuth(c.creds.ID, c.creds.Secret)

	c.log.Debug().Str("method", method).Str("endpoint", endpoint).Msg("calling job service")
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		var errResp errorResponse
		if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Details != "" {
			return nil, fmt.Errorf("job service returned %d: %s", httpResp.StatusCode, errResp.Details)
		}
		return nil, fmt.Errorf("job service returned %d", httpResp.StatusCode)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var job Job
	if err := json.Unmarshal(raw, &job); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if _, err := ParseJobStatus(string(job.Status)); err != nil {
		return nil, err
	}
	return &job, nil
}
