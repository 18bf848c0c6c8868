// Package submit issues asynchronous extraction jobs.
package submit

import (
	"context"
	"errors"
	"fmt"

	"github.com/inkwell-systems/invoice-pipeline/internal/blobstore"
	"github.com/inkwell-systems/invoice-pipeline/internal/engine"
	"github.com/inkwell-systems/invoice-pipeline/internal/events"
	"github.com/inkwell-systems/invoice-pipeline/internal/observability"
)

// ErrSubmission indicates the engine rejected the job request. Fatal
// here; retries belong to queue redelivery.
var ErrSubmission = errors.New("job submission rejected")

// Submitter submits normalized documents to the extraction engine.
type Submitter struct {
	engine       engine.Client
	outputBucket string
	outputPrefix string
	profileARN   string
	logger       *observability.Logger
}

// New creates a Submitter writing raw job output under
// outputBucket/outputPrefix.
func New(eng engine.Client, outputBucket, outputPrefix, profileARN string, logger *observability.Logger) *Submitter {
	return &Submitter{
		engine:       eng,
		outputBucket: outputBucket,
		outputPrefix: outputPrefix,
		profileARN:   profileARN,
		logger:       logger,
	}
}

// Submit invokes an asynchronous extraction job for image and returns
// the engine-assigned invocation ARN. It never blocks on completion;
// the engine emits a completion event on the shared bus.
func (s *Submitter) Submit(ctx context.Context, image blobstore.Ref, blueprintARN string) (string, error) {
	req := engine.InvokeRequest{
		InputURI:     events.FormatS3URI(image.Bucket, image.Key),
		OutputURI:    events.FormatS3URI(s.outputBucket, s.outputPrefix),
		BlueprintARN: blueprintARN,
		ProfileARN:   s.profileARN,
	}

	invocationARN, err := s.engine.InvokeJob(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrSubmission, req.InputURI, err)
	}

	s.logger.WithContext(ctx).Info().
		Str("input_uri", req.InputURI).
		Str("invocation_arn", invocationARN).
		Msg("Extraction job submitted")

	return invocationARN, nil
}
