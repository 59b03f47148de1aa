package partition

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

type Kind string

const (
	KindNarrativeText Kind = "narrative_text"
	KindTitle         Kind = "title"
	KindTable         Kind = "table"
	KindImage         Kind = "image"
)

// Element is one typed unit of a parsed document, in reading order.
// ImagePath may be empty for images whose pixels could not be extracted.
type Element struct {
	Kind      Kind
	Text      string
	Page      int
	ImagePath string
	Caption   string
}

type Partitioner interface {
	Partition(ctx context.Context, path string) ([]Element, error)
}

// ByExtension dispatches on the lower-cased file extension.
type ByExtension map[string]Partitioner

func (b ByExtension) Partition(ctx context.Context, path string) ([]Element, error) {
	ext := strings.ToLower(filepath.Ext(path))
	p, ok := b[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported document type %q", ext)
	}
	return p.Partition(ctx, path)
}

func (b ByExtension) Supports(path string) bool {
	_, ok := b[strings.ToLower(filepath.Ext(path))]
	return ok
}
