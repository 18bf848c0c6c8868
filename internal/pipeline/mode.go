package pipeline

import "github.com/inkwell-systems/invoice-pipeline/internal/events"

// Mode selects how the coordinator treats incomplete trigger payloads.
// Production fails loudly on missing event fields; OfflineFixture
// substitutes the configured fixture so stages can be smoke-tested
// without live triggers. The fixture path is opt-in only and never
// entered from a caught error.
type Mode int

const (
	Production Mode = iota
	OfflineFixture
)

// Fixture holds the substitute payloads used in OfflineFixture mode.
type Fixture struct {
	StorageEvent    events.StorageEvent
	CompletionEvent events.CompletionEvent
}

// DefaultFixture returns the smoke-test payloads for the given buckets.
func DefaultFixture(inputBucket, stagingBucket, outputBucket string) Fixture {
	return Fixture{
		StorageEvent: events.StorageEvent{
			Records: []events.StorageRecord{{
				S3: events.S3Entity{
					Bucket: events.S3Bucket{Name: inputBucket},
					Object: events.S3Object{Key: "invoices/test_invoice_0_1.pdf"},
				},
			}},
		},
		CompletionEvent: events.CompletionEvent{
			Detail: events.CompletionDetail{
				InputS3Object: events.CompletionLocation{
					S3Bucket: stagingBucket,
					Name:     "invoices/test_invoice_0_1.pdf.png",
				},
				OutputS3Location: events.CompletionLocation{
					S3Bucket: outputBucket,
					Name:     "raw_job_outputs/ef33d28a-8503-4cfa-9ea7-1b36ac8de7c2/0",
				},
			},
		},
	}
}
