// Package engine abstracts the asynchronous document-understanding
// engine: blueprint management, job submission and status queries.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Engine-owned job statuses. Anything else is treated as terminal-unknown.
const (
	StatusInProgress   = "InProgress"
	StatusSuccess      = "Success"
	StatusServiceError = "ServiceError"
	StatusClientError  = "ClientError"
	StatusCreated      = "Created"
)

// Terminal reports whether a status string ends the polling loop.
// Unrecognized statuses are terminal-unknown: surfaced, never retried.
func Terminal(status string) bool {
	return status != StatusInProgress
}

// Blueprint is a named extraction schema known to the engine.
type Blueprint struct {
	Name string
	ARN  string
}

// InvokeRequest describes one asynchronous extraction job.
type InvokeRequest struct {
	InputURI     string
	OutputURI    string
	BlueprintARN string
	ProfileARN   string
}

// Status is the observed state of a submitted job.
type Status struct {
	State     string
	OutputURI string
}

// Client is the engine surface the pipeline depends on.
type Client interface {
	// ListBlueprints returns the blueprints in the given lifecycle stage.
	ListBlueprints(ctx context.Context, stage string) ([]Blueprint, error)
	// CreateBlueprint registers a new document blueprint and returns its ARN.
	CreateBlueprint(ctx context.Context, name string, schema []byte) (string, error)
	// InvokeJob submits an asynchronous job and returns its invocation ARN
	// immediately; completion is signaled out of band.
	InvokeJob(ctx context.Context, req InvokeRequest) (string, error)
	// GetStatus queries the state of a submitted job.
	GetStatus(ctx context.Context, invocationARN string) (Status, error)
}

// FakeClient implements Client in memory for tests and offline runs.
// Submitted jobs complete immediately with the configured status and
// output location.
type FakeClient struct {
	mu         sync.Mutex
	blueprints []Blueprint
	jobs       map[string]Status

	// JobState and JobOutputURI control what GetStatus reports for newly
	// invoked jobs. JobState defaults to Success.
	JobState     string
	JobOutputURI string

	// Invocations records every InvokeJob request, in order.
	Invocations []InvokeRequest
	// Created counts CreateBlueprint calls.
	Created int
}

// NewFakeClient creates an empty fake engine.
func NewFakeClient() *FakeClient {
	return &FakeClient{jobs: make(map[string]Status)}
}

// ListBlueprints returns the registered blueprints. The stage filter is
// accepted and ignored; the fake keeps a single stage.
func (f *FakeClient) ListBlueprints(ctx context.Context, stage string) ([]Blueprint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Blueprint, len(f.blueprints))
	copy(out, f.blueprints)
	return out, nil
}

// CreateBlueprint registers a blueprint with a generated ARN.
func (f *FakeClient) CreateBlueprint(ctx context.Context, name string, schema []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	arn := fmt.Sprintf("arn:aws:bedrock:us-east-1:000000000000:blueprint/%s", uuid.NewString())
	f.blueprints = append(f.blueprints, Blueprint{Name: name, ARN: arn})
	f.Created++
	return arn, nil
}

// AddBlueprint seeds a pre-existing blueprint.
func (f *FakeClient) AddBlueprint(name, arn string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blueprints = append(f.blueprints, Blueprint{Name: name, ARN: arn})
}

// InvokeJob records the request and returns a fresh invocation ARN.
func (f *FakeClient) InvokeJob(ctx context.Context, req InvokeRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state := f.JobState
	if state == "" {
		state = StatusSuccess
	}

	arn := fmt.Sprintf("arn:aws:bedrock:us-east-1:000000000000:data-automation-invocation/%s", uuid.NewString())
	f.Invocations = append(f.Invocations, req)
	f.jobs[arn] = Status{State: state, OutputURI: f.JobOutputURI}
	return arn, nil
}

// GetStatus reports the state of a previously invoked job.
func (f *FakeClient) GetStatus(ctx context.Context, invocationARN string) (Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	status, ok := f.jobs[invocationARN]
	if !ok {
		return Status{}, fmt.Errorf("unknown invocation %s", invocationARN)
	}
	return status, nil
}

// SetStatus overrides the reported status for an invocation.
func (f *FakeClient) SetStatus(invocationARN string, status Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[invocationARN] = status
}
