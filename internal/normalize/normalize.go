// Package normalize converts multi-page source documents into single
// raster images suitable for extraction.
package normalize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"path"
	"strings"

	"github.com/gen2brain/go-fitz"

	"github.com/inkwell-systems/invoice-pipeline/internal/blobstore"
	"github.com/inkwell-systems/invoice-pipeline/internal/observability"
)

// ErrBadDocument indicates the source could not be parsed as the
// expected format. Fatal for the document; retries belong to the caller.
var ErrBadDocument = errors.New("document cannot be rasterized")

// renderDPI renders pages at 2x of the 72 DPI baseline, no rotation.
const renderDPI = 144

// Normalizer rasterizes paginated documents into the staging bucket.
type Normalizer struct {
	store         blobstore.Store
	stagingBucket string
	logger        *observability.Logger
}

// New creates a Normalizer writing derived images to stagingBucket.
func New(store blobstore.Store, stagingBucket string, logger *observability.Logger) *Normalizer {
	return &Normalizer{store: store, stagingBucket: stagingBucket, logger: logger}
}

// Normalize returns a raster-image reference for the source document.
// Raster sources pass through unchanged. Paginated documents have their
// first page rendered; remaining pages are discarded by policy.
func (n *Normalizer) Normalize(ctx context.Context, source blobstore.Ref) (blobstore.Ref, error) {
	if !isPaginated(source.Key) {
		return source, nil
	}

	data, err := n.store.Get(ctx, source.Bucket, source.Key)
	if err != nil {
		return blobstore.Ref{}, fmt.Errorf("read source document: %w", err)
	}

	rendered, pages, err := renderFirstPage(data)
	if err != nil {
		return blobstore.Ref{}, fmt.Errorf("%s: %w", source.Key, err)
	}

	staged := blobstore.Ref{
		Bucket: n.stagingBucket,
		Key:    source.Key + ".png",
	}
	if err := n.store.Put(ctx, staged.Bucket, staged.Key, rendered); err != nil {
		return blobstore.Ref{}, fmt.Errorf("write staged image: %w", err)
	}

	n.logger.WithContext(ctx).Info().
		Str("source_key", source.Key).
		Str("staged_key", staged.Key).
		Int("pages", pages).
		Msg("Rendered first page")

	return staged, nil
}

// renderFirstPage rasterizes page 0 of a PDF at fixed scale and encodes
// it as PNG. Returns the encoded image and the document's page count.
func renderFirstPage(data []byte) ([]byte, int, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrBadDocument, err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages == 0 {
		return nil, 0, fmt.Errorf("%w: document has no pages", ErrBadDocument)
	}

	img, err := doc.ImageDPI(0, renderDPI)
	if err != nil {
		return nil, pages, fmt.Errorf("%w: render page 0: %v", ErrBadDocument, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, pages, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), pages, nil
}

// isPaginated reports whether the key names a multi-page document format.
func isPaginated(key string) bool {
	return strings.EqualFold(path.Ext(key), ".pdf")
}
