package commands

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	fatihcolor "github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/inkwell-systems/invoice-pipeline/internal/bootstrap"
	"github.com/inkwell-systems/invoice-pipeline/internal/events"
)

var (
	runFile   string
	runOutDir string
)

// sampleExplainability is the canned extraction result used when no live
// engine is involved: three recognized fields plus a repeated line-item
// group, shaped exactly like real explainability output.
const sampleExplainability = `{
    "invoice_number": {"success": true, "confidence": 0.97, "geometry": [{"boundingBox": {"left": 0.62, "top": 0.08, "width": 0.25, "height": 0.03}}]},
    "vendor_name": {"success": true, "confidence": 0.97, "geometry": [{"boundingBox": {"left": 0.08, "top": 0.06, "width": 0.3, "height": 0.04}}]},
    "total_amount": {"success": true, "confidence": 0.91, "geometry": [{"boundingBox": {"left": 0.66, "top": 0.82, "width": 0.2, "height": 0.035}}]},
    "due_date": {"success": false, "confidence": 0.22, "geometry": []},
    "line_items": [
        {"description": {"success": true, "confidence": 0.88, "geometry": [{"boundingBox": {"left": 0.08, "top": 0.4, "width": 0.45, "height": 0.03}}]}}
    ]
}`

const sampleInference = `{
    "invoice_number": "INV-2024-0042",
    "vendor_name": "Acme Office Supply Co.",
    "total_amount": 1284.5,
    "line_items": [
        {"description": "A4 copier paper, 10 reams", "quantity": 10, "unit_price": 12.5, "amount": 125.0}
    ]
}`

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline offline against in-memory collaborators",
	Long: `run exercises every pipeline stage end to end without touching
live services: upload routing, queue transport, normalization, blueprint
resolution, job submission against a fake engine, output resolution and
annotation. Artifacts are written to the output directory.`,
	RunE: runOffline,
}

func init() {
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "local PDF or PNG to process (default: generated blank invoice)")
	runCmd.Flags().StringVarP(&runOutDir, "out", "o", "out", "directory for the produced artifacts")
	rootCmd.AddCommand(runCmd)
}

func runOffline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Storage.InputBucket == "" {
		cfg.Storage.InputBucket = "invoices-input"
	}
	if cfg.Storage.StagingBucket == "" {
		cfg.Storage.StagingBucket = "invoices-staging"
	}
	if cfg.Storage.OutputBucket == "" {
		cfg.Storage.OutputBucket = "invoices-output"
	}

	logger := newLogger(cfg)
	app := bootstrap.NewOffline(cfg, logger)
	ctx := cmd.Context()

	success := fatihcolor.New(fatihcolor.FgGreen)
	info := fatihcolor.New(fatihcolor.FgCyan)

	// Stage 0: place the source document in the input bucket.
	docData, docKey, err := sourceDocument()
	if err != nil {
		return err
	}
	if err := app.Store.Put(ctx, cfg.Storage.InputBucket, docKey, docData); err != nil {
		return err
	}
	info.Printf("Seeded s3://%s/%s (%d bytes)\n", cfg.Storage.InputBucket, docKey, len(docData))

	// Stage 1: Received -> Enqueued.
	ev := storageEvent(cfg.Storage.InputBucket, docKey)
	uploadResult, err := app.Coordinator.HandleUpload(ctx, ev)
	if err != nil {
		return fmt.Errorf("upload stage: %w", err)
	}
	if !uploadResult.Accepted {
		return fmt.Errorf("upload rejected: %s", uploadResult.Reason)
	}
	success.Println("✓ Upload accepted and queued")

	// Stage 2: Submitted.
	msg, err := app.Queue.Receive(ctx, time.Second)
	if err != nil {
		return fmt.Errorf("queue receive: %w", err)
	}
	if msg == nil {
		return fmt.Errorf("no message on queue")
	}
	invocationARN, err := app.Coordinator.HandleQueued(ctx, msg.Body)
	if err != nil {
		return fmt.Errorf("submission stage: %w", err)
	}
	if err := app.Queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		return err
	}
	success.Printf("✓ Job submitted: %s\n", invocationARN)

	// Stage 3: fabricate the engine's output artifacts and completion
	// event, as the real engine would after finishing the job.
	imageBucket, imageKey := stagedImage(cfg.Storage.InputBucket, cfg.Storage.StagingBucket, docKey)
	outputKey := fmt.Sprintf("%s/%s/0", cfg.Engine.OutputPrefix, uuid.NewString())
	completion, err := seedEngineOutput(ctx, app, cfg.Storage.OutputBucket, outputKey, imageBucket, imageKey)
	if err != nil {
		return err
	}

	// Stage 4: Resolved -> Annotated.
	artifacts, err := app.Coordinator.HandleCompletion(ctx, completion)
	if err != nil {
		return fmt.Errorf("completion stage: %w", err)
	}
	success.Println("✓ Output resolved and annotated")

	// Dump artifacts locally for inspection.
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return err
	}
	for _, ref := range []struct{ Bucket, Key string }{
		{artifacts.InferenceJSON.Bucket, artifacts.InferenceJSON.Key},
		{artifacts.ExplainabilityJSON.Bucket, artifacts.ExplainabilityJSON.Key},
		{artifacts.AnnotatedImage.Bucket, artifacts.AnnotatedImage.Key},
	} {
		data, err := app.Store.Get(ctx, ref.Bucket, ref.Key)
		if err != nil {
			return err
		}
		dest := filepath.Join(runOutDir, path.Base(ref.Key))
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return err
		}
		info.Printf("Wrote %s\n", dest)
	}

	success.Println("✓ Pipeline run complete")
	return nil
}

// sourceDocument loads --file, or generates a blank white page when no
// file was given.
func sourceDocument() ([]byte, string, error) {
	if runFile != "" {
		data, err := os.ReadFile(runFile)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", runFile, err)
		}
		return data, "invoices/" + filepath.Base(runFile), nil
	}

	img := image.NewRGBA(image.Rect(0, 0, 1000, 1400))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), "invoices/sample_invoice.png", nil
}

func storageEvent(bucket, key string) events.StorageEvent {
	return events.StorageEvent{
		Records: []events.StorageRecord{{
			S3: events.S3Entity{
				Bucket: events.S3Bucket{Name: bucket},
				Object: events.S3Object{Key: key},
			},
		}},
	}
}

// stagedImage mirrors the normalizer's placement: PDFs are rendered into
// the staging bucket under key+".png", rasters pass through unchanged.
func stagedImage(inputBucket, stagingBucket, docKey string) (bucket, key string) {
	if strings.EqualFold(path.Ext(docKey), ".pdf") {
		return stagingBucket, docKey + ".png"
	}
	return inputBucket, docKey
}

// seedEngineOutput writes the metadata pointer and custom output the
// engine would have produced, and returns the matching completion event.
func seedEngineOutput(ctx context.Context, app *bootstrap.App, outputBucket, outputKey, imageBucket, imageKey string) (events.CompletionEvent, error) {
	customPath := events.FormatS3URI(outputBucket, outputKey+"/custom_output/0/result.json")
	metadata := fmt.Sprintf(`{"output_metadata": [{"segment_metadata": [{"custom_output_path": %q}]}]}`, customPath)
	custom := fmt.Sprintf(`{"inference_result": %s, "explainability_info": [%s]}`, sampleInference, sampleExplainability)

	metadataURI := events.MetadataURI(events.FormatS3URI(outputBucket, outputKey))
	_, metadataKey, err := events.ParseS3URI(metadataURI)
	if err != nil {
		return events.CompletionEvent{}, err
	}
	if err := app.Store.Put(ctx, outputBucket, metadataKey, []byte(metadata)); err != nil {
		return events.CompletionEvent{}, err
	}

	_, customKey, err := events.ParseS3URI(customPath)
	if err != nil {
		return events.CompletionEvent{}, err
	}
	if err := app.Store.Put(ctx, outputBucket, customKey, []byte(custom)); err != nil {
		return events.CompletionEvent{}, err
	}

	return events.CompletionEvent{
		Detail: events.CompletionDetail{
			InputS3Object:    events.CompletionLocation{S3Bucket: imageBucket, Name: imageKey},
			OutputS3Location: events.CompletionLocation{S3Bucket: outputBucket, Name: outputKey},
		},
	}, nil
}
