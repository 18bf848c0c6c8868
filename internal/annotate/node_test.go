package annotate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPixelRect(t *testing.T) {
	box := BoundingBox{Left: 0.1, Top: 0.2, Width: 0.3, Height: 0.4}

	x, y, w, h := box.PixelRect(1000, 2000)
	assert.Equal(t, 100.0, x)
	assert.Equal(t, 400.0, y)
	assert.Equal(t, 300.0, w)
	assert.Equal(t, 800.0, h)
}

func TestAnnotationLabel(t *testing.T) {
	ann := Annotation{Path: "total_amount", Confidence: 0.87}
	assert.Equal(t, "total_amount: 0.87", ann.Label())
}

func TestCollectSuccessfulLeaf(t *testing.T) {
	tree := json.RawMessage(`{
		"total_amount": {
			"success": true,
			"confidence": 0.87,
			"geometry": [{"boundingBox": {"left": 0.1, "top": 0.2, "width": 0.3, "height": 0.4}}]
		}
	}`)

	anns, err := Collect(tree)
	require.NoError(t, err)
	require.Len(t, anns, 1)

	assert.Equal(t, "total_amount", anns[0].Path)
	assert.Equal(t, 0.87, anns[0].Confidence)
	assert.Equal(t, BoundingBox{Left: 0.1, Top: 0.2, Width: 0.3, Height: 0.4}, anns[0].Box)
}

func TestCollectSkipsFailedLeaves(t *testing.T) {
	tree := json.RawMessage(`{
		"found": {"success": true, "confidence": 0.9, "geometry": [{"boundingBox": {"left": 0, "top": 0, "width": 1, "height": 1}}]},
		"missed": {"success": false, "confidence": 0.1, "geometry": [{"boundingBox": {"left": 0, "top": 0, "width": 1, "height": 1}}]}
	}`)

	anns, err := Collect(tree)
	require.NoError(t, err)
	require.Len(t, anns, 1)
	assert.Equal(t, "found", anns[0].Path)
}

func TestCollectMultipleBoxesPerLeaf(t *testing.T) {
	tree := json.RawMessage(`{
		"address": {
			"success": true,
			"confidence": 0.8,
			"geometry": [
				{"boundingBox": {"left": 0.1, "top": 0.1, "width": 0.2, "height": 0.05}},
				{"boundingBox": {"left": 0.1, "top": 0.2, "width": 0.2, "height": 0.05}}
			]
		}
	}`)

	anns, err := Collect(tree)
	require.NoError(t, err)
	assert.Len(t, anns, 2)
}

func TestCollectRecursesNestedStructures(t *testing.T) {
	// Five levels of alternating lists and mappings; only the qualifying
	// leaves produce annotations and the walk terminates.
	tree := json.RawMessage(`{
		"line_items": [
			{
				"charges": [
					{
						"detail": {
							"amount": {
								"success": true,
								"confidence": 0.75,
								"geometry": [{"boundingBox": {"left": 0.5, "top": 0.5, "width": 0.1, "height": 0.02}}]
							},
							"note": "freeform text"
						}
					}
				]
			}
		],
		"scalar": 42,
		"empty_list": []
	}`)

	anns, err := Collect(tree)
	require.NoError(t, err)
	require.Len(t, anns, 1)
	assert.Equal(t, "line_items.charges.detail.amount", anns[0].Path)
}

func TestCollectDeterministicOrder(t *testing.T) {
	tree := json.RawMessage(`{
		"zulu": {"success": true, "confidence": 0.5, "geometry": [{"boundingBox": {"left": 0, "top": 0, "width": 1, "height": 1}}]},
		"alpha": {"success": true, "confidence": 0.5, "geometry": [{"boundingBox": {"left": 0, "top": 0, "width": 1, "height": 1}}]},
		"mike": {"success": true, "confidence": 0.5, "geometry": [{"boundingBox": {"left": 0, "top": 0, "width": 1, "height": 1}}]}
	}`)

	for range 5 {
		anns, err := Collect(tree)
		require.NoError(t, err)
		require.Len(t, anns, 3)
		assert.Equal(t, "alpha", anns[0].Path)
		assert.Equal(t, "mike", anns[1].Path)
		assert.Equal(t, "zulu", anns[2].Path)
	}
}

func TestCollectLeafWithoutGeometry(t *testing.T) {
	tree := json.RawMessage(`{"field": {"success": true, "confidence": 0.9}}`)

	anns, err := Collect(tree)
	require.NoError(t, err)
	assert.Empty(t, anns)
}

func TestCollectInvalidJSON(t *testing.T) {
	_, err := Collect(json.RawMessage(`{not json`))
	assert.Error(t, err)
}
