// Package pipeline coordinates the invoice-processing stages: routing an
// upload onto the queue, submitting queued documents to the extraction
// engine, and turning completion events into output artifacts.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/inkwell-systems/invoice-pipeline/internal/annotate"
	"github.com/inkwell-systems/invoice-pipeline/internal/blobstore"
	"github.com/inkwell-systems/invoice-pipeline/internal/blueprint"
	"github.com/inkwell-systems/invoice-pipeline/internal/events"
	"github.com/inkwell-systems/invoice-pipeline/internal/normalize"
	"github.com/inkwell-systems/invoice-pipeline/internal/observability"
	"github.com/inkwell-systems/invoice-pipeline/internal/queue"
	"github.com/inkwell-systems/invoice-pipeline/internal/resolve"
	"github.com/inkwell-systems/invoice-pipeline/internal/submit"
)

// Settings holds the coordinator's fixed routing and output parameters.
type Settings struct {
	// DocTypeFolder is the only accepted first path segment.
	DocTypeFolder string
	// BlueprintName is the schema looked up (by substring) at submission.
	BlueprintName string
	// OutputBucket receives the three derived artifacts.
	OutputBucket string
}

// Coordinator ties the pipeline stages together. It holds no per-document
// state; every invocation receives its full input via the event payload,
// so it is safe to invoke concurrently and re-runnable on redelivery
// (outputs are keyed by input and overwritten in place).
type Coordinator struct {
	settings   Settings
	mode       Mode
	fixture    Fixture
	queue      queue.Queue
	store      blobstore.Store
	normalizer *normalize.Normalizer
	blueprints *blueprint.Resolver
	submitter  *submit.Submitter
	resolver   *resolve.Resolver
	annotator  *annotate.Annotator
	logger     *observability.Logger
}

// New creates a Coordinator in Production mode.
func New(
	settings Settings,
	q queue.Queue,
	store blobstore.Store,
	normalizer *normalize.Normalizer,
	blueprints *blueprint.Resolver,
	submitter *submit.Submitter,
	resolver *resolve.Resolver,
	annotator *annotate.Annotator,
	logger *observability.Logger,
) *Coordinator {
	if settings.DocTypeFolder == "" {
		settings.DocTypeFolder = annotate.DocTypeInvoices
	}
	return &Coordinator{
		settings:   settings,
		mode:       Production,
		queue:      q,
		store:      store,
		normalizer: normalizer,
		blueprints: blueprints,
		submitter:  submitter,
		resolver:   resolver,
		annotator:  annotator,
		logger:     logger,
	}
}

// WithFixture switches the coordinator to OfflineFixture mode using the
// given substitute payloads.
func (c *Coordinator) WithFixture(f Fixture) *Coordinator {
	c.mode = OfflineFixture
	c.fixture = f
	return c
}

// UploadResult is the terminal outcome of the Received stage. A routing
// rejection is a normal outcome, not an error.
type UploadResult struct {
	Accepted bool
	Key      string
	Reason   string
}

// HandleUpload routes a storage-creation event: uploads under the
// recognized folder are forwarded verbatim onto the submission queue;
// everything else is rejected and goes no further.
func (c *Coordinator) HandleUpload(ctx context.Context, ev events.StorageEvent) (UploadResult, error) {
	log := c.logger.WithContext(ctx).WithStage("received")

	if len(ev.Records) == 0 {
		if c.mode != OfflineFixture {
			return UploadResult{}, fmt.Errorf("storage event has no records")
		}
		ev = c.fixture.StorageEvent
		log.Info().Msg("Substituting offline fixture event")
	}

	key, err := ev.Key()
	if err != nil {
		return UploadResult{}, err
	}

	folder := events.DocTypeFolder(key)
	if folder != c.settings.DocTypeFolder {
		reason := fmt.Sprintf("invalid document type %q: upload files to the %s folder", folder, c.settings.DocTypeFolder)
		log.Info().Str("key", key).Str("folder", folder).Msg("Rejected upload")
		return UploadResult{Accepted: false, Key: key, Reason: reason}, nil
	}

	// The original event travels unmodified as the queue message body.
	body, err := json.Marshal(ev)
	if err != nil {
		return UploadResult{}, fmt.Errorf("marshal queue message: %w", err)
	}
	if err := c.queue.Send(ctx, string(body)); err != nil {
		return UploadResult{}, fmt.Errorf("enqueue upload: %w", err)
	}

	log.Info().Str("key", key).Msg("Queued upload for submission")
	return UploadResult{Accepted: true, Key: key}, nil
}

// HandleQueued processes one queued upload: normalizes the document to a
// raster image if needed, resolves the blueprint and submits the
// extraction job. It returns the invocation ARN without waiting for
// completion, so the queue's visibility budget covers submission latency
// only. Redelivery may double-submit; downstream dedup absorbs that.
func (c *Coordinator) HandleQueued(ctx context.Context, messageBody string) (string, error) {
	log := c.logger.WithContext(ctx).WithStage("submitted")

	ev, err := events.ParseStorageEvent([]byte(messageBody))
	if err != nil {
		return "", err
	}
	if len(ev.Records) == 0 {
		if c.mode != OfflineFixture {
			return "", fmt.Errorf("queued event has no records")
		}
		ev = c.fixture.StorageEvent
		log.Info().Msg("Substituting offline fixture event")
	}

	bucket, err := ev.Bucket()
	if err != nil {
		return "", err
	}
	key, err := ev.Key()
	if err != nil {
		return "", err
	}

	image, err := c.normalizer.Normalize(ctx, blobstore.Ref{Bucket: bucket, Key: key})
	if err != nil {
		return "", err
	}

	blueprintARN, err := c.blueprints.Resolve(ctx, c.settings.BlueprintName)
	if err != nil {
		return "", err
	}

	invocationARN, err := c.submitter.Submit(ctx, image, blueprintARN)
	if err != nil {
		return "", err
	}

	log.Info().
		Str("key", key).
		Str("invocation_arn", invocationARN).
		Msg("Submission stage complete")
	return invocationARN, nil
}

// Artifacts names the three outputs written for one completed job.
type Artifacts struct {
	InferenceJSON      blobstore.Ref
	ExplainabilityJSON blobstore.Ref
	AnnotatedImage     blobstore.Ref
}

// HandleCompletion runs the Resolved and Annotated stages for a finished
// job: locates the structured output, persists the inference and
// explainability JSON, and writes the annotated image. Output keys are
// derived from the input key, so re-running a delivery overwrites the
// same artifacts.
func (c *Coordinator) HandleCompletion(ctx context.Context, ev events.CompletionEvent) (Artifacts, error) {
	log := c.logger.WithContext(ctx).WithStage("resolved")

	if ev.Detail.InputS3Object.S3Bucket == "" && ev.Detail.InputS3Object.Name == "" {
		if c.mode != OfflineFixture {
			return Artifacts{}, fmt.Errorf("%w: completion event missing input object", resolve.ErrResolution)
		}
		ev = c.fixture.CompletionEvent
		log.Info().Msg("Substituting offline fixture event")
	}

	inputBucket := ev.Detail.InputS3Object.S3Bucket
	inputKey := events.UnquotePlus(ev.Detail.InputS3Object.Name)

	output, err := c.resolver.ResolveOutput(ctx, ev)
	if err != nil {
		return Artifacts{}, err
	}

	keys := events.DeriveOutputKeys(inputKey)
	artifacts := Artifacts{
		InferenceJSON:      blobstore.Ref{Bucket: c.settings.OutputBucket, Key: keys.InferenceJSON},
		ExplainabilityJSON: blobstore.Ref{Bucket: c.settings.OutputBucket, Key: keys.ExplainabilityJSON},
		AnnotatedImage:     blobstore.Ref{Bucket: c.settings.OutputBucket, Key: keys.AnnotatedImage},
	}

	if err := c.putJSON(ctx, artifacts.InferenceJSON, output.InferenceResult); err != nil {
		return Artifacts{}, err
	}
	if err := c.putJSON(ctx, artifacts.ExplainabilityJSON, output.Explainability); err != nil {
		return Artifacts{}, err
	}

	imageData, err := c.store.Get(ctx, inputBucket, inputKey)
	if err != nil {
		return Artifacts{}, fmt.Errorf("read source image: %w", err)
	}

	annotated, err := c.annotator.Annotate(ctx, imageData, output.Explainability, c.settings.DocTypeFolder)
	if err != nil {
		return Artifacts{}, err
	}
	if err := c.store.Put(ctx, artifacts.AnnotatedImage.Bucket, artifacts.AnnotatedImage.Key, annotated); err != nil {
		return Artifacts{}, fmt.Errorf("write annotated image: %w", err)
	}

	log.WithStage("annotated").Info().
		Str("input_key", inputKey).
		Str("annotated_key", artifacts.AnnotatedImage.Key).
		Msg("Completion stage finished")
	return artifacts, nil
}

// putJSON writes raw JSON re-indented, so identical input always
// produces byte-identical artifacts.
func (c *Coordinator) putJSON(ctx context.Context, ref blobstore.Ref, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "    "); err != nil {
		return fmt.Errorf("indent %s: %w", ref.Key, err)
	}
	if err := c.store.Put(ctx, ref.Bucket, ref.Key, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", ref.Key, err)
	}
	return nil
}
