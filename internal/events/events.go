// Package events defines the trigger payloads exchanged between pipeline
// stages and the output-key conventions derived from them. The JSON shapes
// are a compatibility surface and must not change.
package events

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Fixed output locations, relative to the output bucket.
const (
	InferenceResultsPrefix     = "processed_json/inference_results/"
	ExplainabilityResultPrefix = "processed_json/explainability_info_result/"
	AnnotatedImagePrefix       = "annotated_img/"

	// MetadataFilename is written by the extraction engine next to its raw
	// output. The location is an engine convention, not configurable.
	MetadataFilename = "job_metadata.json"
)

// StorageEvent is the storage-creation trigger payload.
type StorageEvent struct {
	Records []StorageRecord `json:"Records"`
}

// StorageRecord is a single storage-creation record.
type StorageRecord struct {
	S3 S3Entity `json:"s3"`
}

// S3Entity carries the bucket and object of a storage record.
type S3Entity struct {
	Bucket S3Bucket `json:"bucket"`
	Object S3Object `json:"object"`
}

// S3Bucket names a bucket.
type S3Bucket struct {
	Name string `json:"name"`
}

// S3Object names an object key. Keys arrive URL-encoded.
type S3Object struct {
	Key string `json:"key"`
}

// QueueMessage wraps a storage event for queue transport: the original
// event is carried verbatim as the JSON message body.
type QueueMessage struct {
	Records []StorageRecord `json:"Records"`
}

// CompletionEvent is the engine's job-completion notification.
type CompletionEvent struct {
	Detail CompletionDetail `json:"detail"`
}

// CompletionDetail carries the input object and output location of a
// finished job.
type CompletionDetail struct {
	InputS3Object    CompletionLocation `json:"input_s3_object"`
	OutputS3Location CompletionLocation `json:"output_s3_location"`
}

// CompletionLocation is a bucket plus object name.
type CompletionLocation struct {
	S3Bucket string `json:"s3_bucket"`
	Name     string `json:"name"`
}

// ParseStorageEvent decodes a storage-creation event from raw JSON.
func ParseStorageEvent(data []byte) (StorageEvent, error) {
	var ev StorageEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return StorageEvent{}, fmt.Errorf("parse storage event: %w", err)
	}
	return ev, nil
}

// ParseCompletionEvent decodes a completion event from raw JSON.
func ParseCompletionEvent(data []byte) (CompletionEvent, error) {
	var ev CompletionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return CompletionEvent{}, fmt.Errorf("parse completion event: %w", err)
	}
	return ev, nil
}

// Key returns the URL-decoded object key of the first record.
func (e StorageEvent) Key() (string, error) {
	if len(e.Records) == 0 {
		return "", fmt.Errorf("storage event has no records")
	}
	return UnquotePlus(e.Records[0].S3.Object.Key), nil
}

// Bucket returns the bucket name of the first record.
func (e StorageEvent) Bucket() (string, error) {
	if len(e.Records) == 0 {
		return "", fmt.Errorf("storage event has no records")
	}
	return e.Records[0].S3.Bucket.Name, nil
}

// DocTypeFolder returns the routing key: the first path segment of an
// object key.
func DocTypeFolder(key string) string {
	return strings.SplitN(key, "/", 2)[0]
}

// UnquotePlus URL-decodes s, treating '+' as space. Malformed escapes
// leave the input unchanged rather than failing the invocation.
func UnquotePlus(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

// OutputKeys holds the derived destination keys for one input key.
type OutputKeys struct {
	InferenceJSON      string
	ExplainabilityJSON string
	AnnotatedImage     string
}

// DeriveOutputKeys maps an input key to its three output artifact keys.
// For input key K the JSON artifacts live at K+".json" under fixed
// prefixes and the annotated image swaps the ".json" suffix for ".png".
func DeriveOutputKeys(inputKey string) OutputKeys {
	jsonKey := inputKey + ".json"
	return OutputKeys{
		InferenceJSON:      InferenceResultsPrefix + jsonKey,
		ExplainabilityJSON: ExplainabilityResultPrefix + jsonKey,
		AnnotatedImage:     AnnotatedImagePrefix + strings.TrimSuffix(jsonKey, ".json") + ".png",
	}
}

// MetadataURI derives the job-metadata location from a job output
// location: the trailing path segment is dropped and the fixed metadata
// filename appended.
func MetadataURI(outputURI string) string {
	parts := strings.Split(outputURI, "/")
	base := strings.Join(parts[:len(parts)-1], "/")
	return base + "/" + MetadataFilename
}

// ParseS3URI splits an s3:// URI (or an https://bucket.s3.../key URL)
// into bucket and key. Keys are URL-decoded.
func ParseS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parse uri %q: %w", uri, err)
	}

	switch u.Scheme {
	case "s3":
		bucket = u.Host
		key = strings.TrimPrefix(u.Path, "/")
	case "https":
		bucket = strings.SplitN(u.Host, ".", 2)[0]
		key = strings.TrimPrefix(u.Path, "/")
	default:
		return "", "", fmt.Errorf("unsupported uri scheme %q", uri)
	}

	return bucket, UnquotePlus(key), nil
}

// FormatS3URI joins a bucket and key into an s3:// URI.
func FormatS3URI(bucket, key string) string {
	return fmt.Sprintf("s3://%s/%s", bucket, key)
}
