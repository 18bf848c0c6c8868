// Package annotate renders confidence-labeled bounding-box overlays from
// extraction results onto source images.
package annotate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/inkwell-systems/invoice-pipeline/internal/observability"
)

// DocTypeInvoices is the only document type with an annotation ruleset.
const DocTypeInvoices = "invoices"

var boxColor = color.RGBA{R: 255, A: 255}

// Annotator draws extraction overlays.
type Annotator struct {
	logger *observability.Logger
}

// New creates an Annotator.
func New(logger *observability.Logger) *Annotator {
	return &Annotator{logger: logger}
}

// Annotate draws one outlined rectangle plus a key-path/confidence label
// for every successful leaf in the result tree, and returns the
// re-encoded PNG. The source image is never mutated.
//
// Unrecognized doc types get an unannotated re-encoded copy: an explicit
// no-op, not an error.
func (a *Annotator) Annotate(ctx context.Context, imageData []byte, resultTree json.RawMessage, docType string) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("decode source image: %w", err)
	}

	if docType != DocTypeInvoices {
		a.logger.WithContext(ctx).Warn().
			Str("doc_type", docType).
			Msg("No annotation ruleset for doc type, passing image through")
		return encodePNG(img)
	}

	annotations, err := Collect(resultTree)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	dc := gg.NewContextForImage(img)
	dc.SetFontFace(basicfont.Face7x13)

	for _, ann := range annotations {
		x, y, w, h := ann.Box.PixelRect(bounds.Dx(), bounds.Dy())

		dc.SetColor(boxColor)
		dc.SetLineWidth(2)
		dc.DrawRectangle(x, y, w, h)
		dc.Stroke()

		dc.DrawString(ann.Label(), x, y-4)
	}

	a.logger.WithContext(ctx).Info().
		Int("boxes", len(annotations)).
		Str("doc_type", docType).
		Msg("Annotated image")

	return encodePNG(dc.Image())
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode annotated image: %w", err)
	}
	return buf.Bytes(), nil
}
