package parser

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/pable/cs-round-features/internal/model"
)

// DemoSource loads a demo file.
type DemoSource struct {
	Path           string
	SampleInterval time.Duration
}

func (s DemoSource) Name() string { return s.Path }

func (s DemoSource) Load(ctx context.Context) (*model.RawMatch, error) {
	return ParseDemo(ctx, s.Path, s.SampleInterval)
}

// JSONLSource loads a record dump.
type JSONLSource struct {
	Path string
}

func (s JSONLSource) Name() string { return s.Path }

func (s JSONLSource) Load(ctx context.Context) (*model.RawMatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadJSONL(s.Path)
}

// IsJSONL reports whether path names a record dump rather than a demo.
func IsJSONL(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return true
	}
	return false
}
