package annotate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// BoundingBox is a normalized rectangle: all coordinates are fractions
// of the image dimensions in [0,1].
type BoundingBox struct {
	Left   float64
	Top    float64
	Width  float64
	Height float64
}

// PixelRect converts a normalized box to pixel coordinates for an image
// of the given dimensions.
func (b BoundingBox) PixelRect(imageWidth, imageHeight int) (x, y, w, h float64) {
	return b.Left * float64(imageWidth),
		b.Top * float64(imageHeight),
		b.Width * float64(imageWidth),
		b.Height * float64(imageHeight)
}

// Annotation is one drawable finding: a recognized field's key path,
// extraction confidence and one bounding box.
type Annotation struct {
	Path       string
	Confidence float64
	Box        BoundingBox
}

// Label is the text drawn next to the annotation's rectangle.
func (a Annotation) Label() string {
	return fmt.Sprintf("%s: %.2f", a.Path, a.Confidence)
}

// The result tree has no fixed schema; nodes are classified by shape:
// a leaf carries a success flag, confidence and bounding geometry; a
// list is a repeated field group; any other mapping is a container to
// recurse into.
type nodeKind int

const (
	kindLeaf nodeKind = iota
	kindList
	kindMapping
	kindUnknown
)

func classify(value any) nodeKind {
	switch v := value.(type) {
	case map[string]any:
		if _, ok := v["success"].(bool); ok {
			return kindLeaf
		}
		return kindMapping
	case []any:
		return kindList
	default:
		return kindUnknown
	}
}

// Collect walks an explainability result tree and returns one Annotation
// per bounding box under every leaf with success set. The walk recurses
// into lists element-wise and into mappings uniformly; scalars end a
// branch. Finite acyclic input always terminates.
func Collect(tree json.RawMessage) ([]Annotation, error) {
	var root any
	if err := json.Unmarshal(tree, &root); err != nil {
		return nil, fmt.Errorf("parse result tree: %w", err)
	}

	var out []Annotation
	walk(nil, root, &out)
	return out, nil
}

func walk(path []string, value any, out *[]Annotation) {
	switch classify(value) {
	case kindLeaf:
		leaf := value.(map[string]any)
		if success, _ := leaf["success"].(bool); !success {
			return
		}
		confidence, _ := leaf["confidence"].(float64)
		for _, box := range leafBoxes(leaf) {
			*out = append(*out, Annotation{
				Path:       strings.Join(path, "."),
				Confidence: confidence,
				Box:        box,
			})
		}

	case kindList:
		for _, item := range value.([]any) {
			walk(path, item, out)
		}

	case kindMapping:
		mapping := value.(map[string]any)
		// Deterministic draw order regardless of map iteration order.
		keys := make([]string, 0, len(mapping))
		for k := range mapping {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(append(path, k), mapping[k], out)
		}
	}
}

// leafBoxes extracts the normalized bounding boxes under a leaf's
// geometry entries.
func leafBoxes(leaf map[string]any) []BoundingBox {
	geometry, _ := leaf["geometry"].([]any)

	var boxes []BoundingBox
	for _, entry := range geometry {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		bbox, ok := m["boundingBox"].(map[string]any)
		if !ok {
			continue
		}
		left, _ := bbox["left"].(float64)
		top, _ := bbox["top"].(float64)
		width, _ := bbox["width"].(float64)
		height, _ := bbox["height"].(float64)
		boxes = append(boxes, BoundingBox{Left: left, Top: top, Width: width, Height: height})
	}
	return boxes
}
