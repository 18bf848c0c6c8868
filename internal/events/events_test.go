package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStorageEvent(t *testing.T) {
	payload := `{"Records": [{"s3": {"bucket": {"name": "invoices-input"}, "object": {"key": "invoices/acme+corp%2Finvoice.pdf"}}}]}`

	ev, err := ParseStorageEvent([]byte(payload))
	require.NoError(t, err)
	require.Len(t, ev.Records, 1)

	bucket, err := ev.Bucket()
	require.NoError(t, err)
	assert.Equal(t, "invoices-input", bucket)

	key, err := ev.Key()
	require.NoError(t, err)
	assert.Equal(t, "invoices/acme corp/invoice.pdf", key)
}

func TestStorageEventEmpty(t *testing.T) {
	var ev StorageEvent

	_, err := ev.Key()
	assert.Error(t, err)

	_, err = ev.Bucket()
	assert.Error(t, err)
}

func TestParseCompletionEvent(t *testing.T) {
	payload := `{"detail": {
		"input_s3_object": {"s3_bucket": "staging", "name": "invoices/a.pdf.png"},
		"output_s3_location": {"s3_bucket": "output", "name": "raw_job_outputs/job-1/0"}
	}}`

	ev, err := ParseCompletionEvent([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, "staging", ev.Detail.InputS3Object.S3Bucket)
	assert.Equal(t, "invoices/a.pdf.png", ev.Detail.InputS3Object.Name)
	assert.Equal(t, "output", ev.Detail.OutputS3Location.S3Bucket)
	assert.Equal(t, "raw_job_outputs/job-1/0", ev.Detail.OutputS3Location.Name)
}

func TestUnquotePlus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"invoices/plain.pdf", "invoices/plain.pdf"},
		{"invoices/with+spaces.pdf", "invoices/with spaces.pdf"},
		{"invoices/nested%2Fpath.pdf", "invoices/nested/path.pdf"},
		{"invoices/%C3%BCmlaut.pdf", "invoices/ümlaut.pdf"},
		// Malformed escapes fall back to the input untouched.
		{"invoices/bad%zz.pdf", "invoices/bad%zz.pdf"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, UnquotePlus(tt.in), "input %q", tt.in)
	}
}

func TestDocTypeFolder(t *testing.T) {
	assert.Equal(t, "invoices", DocTypeFolder("invoices/a.pdf"))
	assert.Equal(t, "receipts", DocTypeFolder("receipts/sub/b.png"))
	assert.Equal(t, "bare.pdf", DocTypeFolder("bare.pdf"))
}

func TestDeriveOutputKeys(t *testing.T) {
	keys := DeriveOutputKeys("invoices/test_invoice_0_1.pdf.png")

	assert.Equal(t, "processed_json/inference_results/invoices/test_invoice_0_1.pdf.png.json", keys.InferenceJSON)
	assert.Equal(t, "processed_json/explainability_info_result/invoices/test_invoice_0_1.pdf.png.json", keys.ExplainabilityJSON)
	assert.Equal(t, "annotated_img/invoices/test_invoice_0_1.pdf.png.png", keys.AnnotatedImage)
}

func TestMetadataURI(t *testing.T) {
	got := MetadataURI("s3://output/raw_job_outputs/abc-123/0")
	assert.Equal(t, "s3://output/raw_job_outputs/abc-123/job_metadata.json", got)
}

func TestParseS3URI(t *testing.T) {
	bucket, key, err := ParseS3URI("s3://my-bucket/some/key.json")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "some/key.json", key)

	bucket, key, err = ParseS3URI("https://my-bucket.s3.us-east-1.amazonaws.com/other/key.png")
	require.NoError(t, err)
	assert.Equal(t, "my-bucket", bucket)
	assert.Equal(t, "other/key.png", key)

	_, _, err = ParseS3URI("ftp://nope/key")
	assert.Error(t, err)
}

func TestFormatS3URIRoundTrip(t *testing.T) {
	uri := FormatS3URI("bucket", "a/b/c.json")
	assert.Equal(t, "s3://bucket/a/b/c.json", uri)

	bucket, key, err := ParseS3URI(uri)
	require.NoError(t, err)
	assert.Equal(t, "bucket", bucket)
	assert.Equal(t, "a/b/c.json", key)
}
