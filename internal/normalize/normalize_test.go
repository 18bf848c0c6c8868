package normalize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell-systems/invoice-pipeline/internal/blobstore"
	"github.com/inkwell-systems/invoice-pipeline/internal/observability"
)

func TestNormalizeRasterPassThrough(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	n := New(store, "staging", observability.Nop())

	// Raster sources are returned untouched, no storage round trip.
	for _, key := range []string{
		"invoices/scan.png",
		"invoices/photo.jpg",
		"invoices/photo.jpeg",
	} {
		source := blobstore.Ref{Bucket: "input", Key: key}
		got, err := n.Normalize(ctx, source)
		require.NoError(t, err)
		assert.Equal(t, source, got)
	}
}

func TestNormalizeMissingSource(t *testing.T) {
	ctx := context.Background()
	n := New(blobstore.NewMemoryStore(), "staging", observability.Nop())

	_, err := n.Normalize(ctx, blobstore.Ref{Bucket: "input", Key: "invoices/missing.pdf"})
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestNormalizeCorruptDocument(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "input", "invoices/broken.pdf", []byte("not a pdf")))

	n := New(store, "staging", observability.Nop())
	_, err := n.Normalize(ctx, blobstore.Ref{Bucket: "input", Key: "invoices/broken.pdf"})
	assert.ErrorIs(t, err, ErrBadDocument)
}

func TestIsPaginated(t *testing.T) {
	assert.True(t, isPaginated("invoices/a.pdf"))
	assert.True(t, isPaginated("invoices/a.PDF"))
	assert.False(t, isPaginated("invoices/a.png"))
	assert.False(t, isPaginated("invoices/pdf"))
}
