// Package resolve locates the structured output of a finished extraction
// job and exposes a bounded synchronous polling fallback.
package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/inkwell-systems/invoice-pipeline/internal/blobstore"
	"github.com/inkwell-systems/invoice-pipeline/internal/engine"
	"github.com/inkwell-systems/invoice-pipeline/internal/events"
	"github.com/inkwell-systems/invoice-pipeline/internal/observability"
)

// ErrResolution indicates the completion payload, metadata pointer or
// result artifact is malformed or missing. Fatal; no partial result.
var ErrResolution = errors.New("output resolution failed")

// ErrPollTimeout indicates the polling budget lapsed before the job
// reached a terminal status.
var ErrPollTimeout = errors.New("status polling budget exhausted")

// Output is the structured result of one extraction job.
type Output struct {
	// InferenceResult is the raw extracted-field document.
	InferenceResult json.RawMessage
	// Explainability is the first explainability entry: per-field
	// success, confidence and bounding geometry.
	Explainability json.RawMessage
}

// metadataPointer is the engine-written indirection artifact.
type metadataPointer struct {
	OutputMetadata []struct {
		SegmentMetadata []struct {
			CustomOutputPath string `json:"custom_output_path"`
		} `json:"segment_metadata"`
	} `json:"output_metadata"`
}

// customOutput is the structured result artifact the pointer names.
type customOutput struct {
	InferenceResult json.RawMessage   `json:"inference_result"`
	Explainability  []json.RawMessage `json:"explainability_info"`
}

// Resolver follows the metadata indirection from a completion event to
// the actual result artifact.
type Resolver struct {
	store        blobstore.Store
	engine       engine.Client
	pollInterval time.Duration
	pollTimeout  time.Duration
	logger       *observability.Logger
}

// New creates a Resolver. pollInterval and pollTimeout bound Poll.
func New(store blobstore.Store, eng engine.Client, pollInterval, pollTimeout time.Duration, logger *observability.Logger) *Resolver {
	return &Resolver{
		store:        store,
		engine:       eng,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
		logger:       logger,
	}
}

// ResolveOutput reads the job-metadata pointer next to the raw output
// named by the completion event, follows its first segment descriptor to
// the custom output artifact, and returns the inference result plus the
// first explainability entry. Only the first segment is consulted: the
// pipeline processes single-page documents.
func (r *Resolver) ResolveOutput(ctx context.Context, ev events.CompletionEvent) (Output, error) {
	outputBucket := ev.Detail.OutputS3Location.S3Bucket
	outputKey := events.UnquotePlus(ev.Detail.OutputS3Location.Name)
	if outputBucket == "" || outputKey == "" {
		return Output{}, fmt.Errorf("%w: completion event missing output location", ErrResolution)
	}

	metadataURI := events.MetadataURI(events.FormatS3URI(outputBucket, outputKey))

	var pointer metadataPointer
	if err := r.readJSON(ctx, metadataURI, &pointer); err != nil {
		return Output{}, err
	}

	if len(pointer.OutputMetadata) == 0 || len(pointer.OutputMetadata[0].SegmentMetadata) == 0 {
		return Output{}, fmt.Errorf("%w: metadata pointer has no segments: %s", ErrResolution, metadataURI)
	}

	customPath := pointer.OutputMetadata[0].SegmentMetadata[0].CustomOutputPath
	if customPath == "" {
		return Output{}, fmt.Errorf("%w: empty custom output path: %s", ErrResolution, metadataURI)
	}

	var custom customOutput
	if err := r.readJSON(ctx, customPath, &custom); err != nil {
		return Output{}, err
	}

	if custom.InferenceResult == nil {
		return Output{}, fmt.Errorf("%w: result missing inference_result: %s", ErrResolution, customPath)
	}
	if len(custom.Explainability) == 0 {
		return Output{}, fmt.Errorf("%w: result missing explainability_info: %s", ErrResolution, customPath)
	}

	r.logger.WithContext(ctx).Info().
		Str("metadata_uri", metadataURI).
		Str("custom_output_path", customPath).
		Msg("Resolved job output")

	return Output{
		InferenceResult: custom.InferenceResult,
		Explainability:  custom.Explainability[0],
	}, nil
}

// readJSON fetches an s3:// URI and decodes it into v.
func (r *Resolver) readJSON(ctx context.Context, uri string, v any) error {
	bucket, key, err := events.ParseS3URI(uri)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResolution, err)
	}

	data, err := r.store.Get(ctx, bucket, key)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", ErrResolution, uri, err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrResolution, uri, err)
	}
	return nil
}

// Poll queries job status every poll interval while the job is in
// progress. It returns on any terminal status; unrecognized statuses are
// logged and returned as-is, never retried. The wall-clock budget bounds
// the loop; on expiry the last observed status is returned with
// ErrPollTimeout.
func (r *Resolver) Poll(ctx context.Context, invocationARN string) (engine.Status, error) {
	deadline := time.Now().Add(r.pollTimeout)

	var last engine.Status
	for {
		status, err := r.engine.GetStatus(ctx, invocationARN)
		if err != nil {
			return last, fmt.Errorf("poll %s: %w", invocationARN, err)
		}
		last = status

		if engine.Terminal(status.State) {
			switch status.State {
			case engine.StatusSuccess:
				r.logger.WithContext(ctx).Info().
					Str("invocation_arn", invocationARN).
					Msg("Job completed successfully")
			case engine.StatusServiceError, engine.StatusClientError, engine.StatusCreated:
				r.logger.WithContext(ctx).Warn().
					Str("invocation_arn", invocationARN).
					Str("status", status.State).
					Msg("Job ended without success")
			default:
				r.logger.WithContext(ctx).Warn().
					Str("invocation_arn", invocationARN).
					Str("status", status.State).
					Msg("Unknown job status, treating as terminal")
			}
			return status, nil
		}

		if time.Now().After(deadline) {
			return last, fmt.Errorf("%w after %s: %s", ErrPollTimeout, r.pollTimeout, invocationARN)
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(r.pollInterval):
		}
	}
}
