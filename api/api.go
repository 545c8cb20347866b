// Package api assembles job submissions: it wraps a built optimization
// problem into the transport payload the job service accepts and decodes the
// returned result.
package api

import (
	"context"
	"fmt"

	"github.com/qirin-io/qirin/client"
	"github.com/qirin-io/qirin/encoding"
	"github.com/qirin-io/qirin/vqe"
)

// RunOptions tune remote execution.
type RunOptions struct {
	// Shots per experiment on the remote backend. Zero lets the server pick.
	Shots int `json:"shots,omitempty"`
	// QubitBudget forces cutting to the given width on the server. Zero lets
	// the server use the device width.
	QubitBudget int `json:"qubit_budget,omitempty"`
	// Sampling requests a post-run measurement pass.
	Sampling bool `json:"sampling,omitempty"`
}

// JobRequest is the payload of a job submission.
type JobRequest struct {
	Input   *encoding.VQE `json:"input"`
	Options RunOptions    `json:"options"`
}

// NewJobRequest encodes a built problem into a submission payload.
func NewJobRequest(v *vqe.VQE, opts RunOptions) (*JobRequest, error) {
	input, err := encoding.EncodeVQE(v)
	if err != nil {
		return nil, fmt.Errorf("encode problem: %w", err)
	}
	return &JobRequest{Input: input, Options: opts}, nil
}

// Send submits the request and returns the created job.
func (r *JobRequest) Send(ctx context.Context, c *client.Client) (*client.Job, error) {
	return c.Create(ctx, r)
}

// Run submits the request, blocks until the job finishes and decodes the
// result.
func (r *JobRequest) Run(ctx context.Context, c *client.Client, wait client.WaitOptions) (*vqe.Result, error) {
	job, err := r.Send(ctx, c)
	if err != nil {
		return nil, err
	}
	done, err := c.Wait(ctx, job.Slug, wait)
	if err != nil {
		return nil, err
	}
	if done.Result == nil {
		return nil, fmt.Errorf("job %s finished without a result", job.Slug)
	}
	result, err := done.Result.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return result, nil
}
