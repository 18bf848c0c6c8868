package resolve

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-systems/invoice-pipeline/internal/blobstore"
	"github.com/inkwell-systems/invoice-pipeline/internal/engine"
	"github.com/inkwell-systems/invoice-pipeline/internal/events"
	"github.com/inkwell-systems/invoice-pipeline/internal/observability"
)

const (
	outputBucket = "pipeline-output"
	outputKey    = "raw_job_outputs/job-1/0"
)

func completionEvent() events.CompletionEvent {
	return events.CompletionEvent{
		Detail: events.CompletionDetail{
			InputS3Object:    events.CompletionLocation{S3Bucket: "staging", Name: "invoices/a.pdf.png"},
			OutputS3Location: events.CompletionLocation{S3Bucket: outputBucket, Name: outputKey},
		},
	}
}

// seedOutput writes a metadata pointer plus the custom output it names.
func seedOutput(t *testing.T, store blobstore.Store, customJSON string) {
	t.Helper()
	ctx := context.Background()

	customPath := events.FormatS3URI(outputBucket, "raw_job_outputs/job-1/custom_output/0/result.json")
	pointer := fmt.Sprintf(`{"output_metadata": [{"segment_metadata": [{"custom_output_path": %q}]}]}`, customPath)

	require.NoError(t, store.Put(ctx, outputBucket, "raw_job_outputs/job-1/job_metadata.json", []byte(pointer)))
	require.NoError(t, store.Put(ctx, outputBucket, "raw_job_outputs/job-1/custom_output/0/result.json", []byte(customJSON)))
}

func newTestResolver(store blobstore.Store, eng engine.Client) *Resolver {
	return New(store, eng, 5*time.Millisecond, 50*time.Millisecond, observability.Nop())
}

func TestResolveOutput(t *testing.T) {
	store := blobstore.NewMemoryStore()
	seedOutput(t, store, `{
		"inference_result": {"invoice_number": "INV-1"},
		"explainability_info": [{"invoice_number": {"success": true, "confidence": 0.9}}]
	}`)

	r := newTestResolver(store, engine.NewFakeClient())
	out, err := r.ResolveOutput(context.Background(), completionEvent())
	require.NoError(t, err)

	assert.JSONEq(t, `{"invoice_number": "INV-1"}`, string(out.InferenceResult))
	assert.JSONEq(t, `{"invoice_number": {"success": true, "confidence": 0.9}}`, string(out.Explainability))
}

func TestResolveOutputFirstSegmentOnly(t *testing.T) {
	store := blobstore.NewMemoryStore()
	ctx := context.Background()

	firstPath := events.FormatS3URI(outputBucket, "raw_job_outputs/job-1/custom_output/0/result.json")
	pointer := fmt.Sprintf(`{"output_metadata": [
		{"segment_metadata": [
			{"custom_output_path": %q},
			{"custom_output_path": "s3://%s/raw_job_outputs/job-1/custom_output/1/result.json"}
		]},
		{"segment_metadata": [{"custom_output_path": "s3://%s/other"}]}
	]}`, firstPath, outputBucket, outputBucket)
	require.NoError(t, store.Put(ctx, outputBucket, "raw_job_outputs/job-1/job_metadata.json", []byte(pointer)))
	require.NoError(t, store.Put(ctx, outputBucket, "raw_job_outputs/job-1/custom_output/0/result.json", []byte(
		`{"inference_result": {"page": 0}, "explainability_info": [{"f": {"success": false}}]}`,
	)))

	r := newTestResolver(store, engine.NewFakeClient())
	out, err := r.ResolveOutput(context.Background(), completionEvent())
	require.NoError(t, err)

	// Extra segments and metadata entries are ignored entirely.
	assert.JSONEq(t, `{"page": 0}`, string(out.InferenceResult))
}

func TestResolveOutputFirstExplainabilityEntry(t *testing.T) {
	store := blobstore.NewMemoryStore()
	seedOutput(t, store, `{
		"inference_result": {},
		"explainability_info": [{"first": {"success": true}}, {"second": {"success": true}}]
	}`)

	r := newTestResolver(store, engine.NewFakeClient())
	out, err := r.ResolveOutput(context.Background(), completionEvent())
	require.NoError(t, err)
	assert.JSONEq(t, `{"first": {"success": true}}`, string(out.Explainability))
}

func TestResolveOutputErrors(t *testing.T) {
	tests := []struct {
		name string
		seed func(t *testing.T, store blobstore.Store)
	}{
		{"missing metadata pointer", func(t *testing.T, store blobstore.Store) {}},
		{"pointer without segments", func(t *testing.T, store blobstore.Store) {
			require.NoError(t, store.Put(context.Background(), outputBucket,
				"raw_job_outputs/job-1/job_metadata.json", []byte(`{"output_metadata": []}`)))
		}},
		{"empty custom output path", func(t *testing.T, store blobstore.Store) {
			require.NoError(t, store.Put(context.Background(), outputBucket,
				"raw_job_outputs/job-1/job_metadata.json",
				[]byte(`{"output_metadata": [{"segment_metadata": [{"custom_output_path": ""}]}]}`)))
		}},
		{"missing inference_result", func(t *testing.T, store blobstore.Store) {
			seedOutput(t, store, `{"explainability_info": [{}]}`)
		}},
		{"missing explainability_info", func(t *testing.T, store blobstore.Store) {
			seedOutput(t, store, `{"inference_result": {}}`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := blobstore.NewMemoryStore()
			tt.seed(t, store)

			r := newTestResolver(store, engine.NewFakeClient())
			_, err := r.ResolveOutput(context.Background(), completionEvent())
			assert.ErrorIs(t, err, ErrResolution)
		})
	}
}

func TestResolveOutputMissingLocation(t *testing.T) {
	r := newTestResolver(blobstore.NewMemoryStore(), engine.NewFakeClient())

	_, err := r.ResolveOutput(context.Background(), events.CompletionEvent{})
	assert.ErrorIs(t, err, ErrResolution)
}

func TestPollTerminalStatuses(t *testing.T) {
	for _, state := range []string{
		engine.StatusSuccess,
		engine.StatusServiceError,
		engine.StatusClientError,
		engine.StatusCreated,
		"SomethingNew",
	} {
		t.Run(state, func(t *testing.T) {
			eng := engine.NewFakeClient()
			eng.JobState = state
			arn, err := eng.InvokeJob(context.Background(), engine.InvokeRequest{})
			require.NoError(t, err)

			r := newTestResolver(blobstore.NewMemoryStore(), eng)
			status, err := r.Poll(context.Background(), arn)
			require.NoError(t, err)
			assert.Equal(t, state, status.State)
		})
	}
}

func TestPollWaitsForTerminal(t *testing.T) {
	eng := engine.NewFakeClient()
	eng.JobState = engine.StatusInProgress
	arn, err := eng.InvokeJob(context.Background(), engine.InvokeRequest{})
	require.NoError(t, err)

	go func() {
		time.Sleep(15 * time.Millisecond)
		eng.SetStatus(arn, engine.Status{State: engine.StatusSuccess, OutputURI: "s3://out/raw_job_outputs/x/0"})
	}()

	r := newTestResolver(blobstore.NewMemoryStore(), eng)
	status, err := r.Poll(context.Background(), arn)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusSuccess, status.State)
	assert.Equal(t, "s3://out/raw_job_outputs/x/0", status.OutputURI)
}

func TestPollTimesOut(t *testing.T) {
	eng := engine.NewFakeClient()
	eng.JobState = engine.StatusInProgress
	arn, err := eng.InvokeJob(context.Background(), engine.InvokeRequest{})
	require.NoError(t, err)

	r := newTestResolver(blobstore.NewMemoryStore(), eng)
	status, err := r.Poll(context.Background(), arn)

	assert.ErrorIs(t, err, ErrPollTimeout)
	assert.Equal(t, engine.StatusInProgress, status.State)
}

func TestPollUnknownInvocation(t *testing.T) {
	r := newTestResolver(blobstore.NewMemoryStore(), engine.NewFakeClient())

	_, err := r.Poll(context.Background(), "arn:missing")
	assert.Error(t, err)
}
