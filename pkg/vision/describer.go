package vision

import (
	"context"
)

// Result distinguishes a usable label from a best-effort failure.
type Result struct {
	label  string
	reason string
}

func Described(label string) Result {
	return Result{label: label}
}

func Unavailable(reason string) Result {
	if reason == "" {
		reason = "unknown"
	}
	return Result{reason: reason}
}

func (r Result) IsDescribed() bool {
	return r.label != ""
}

func (r Result) Label() string {
	return r.label
}

func (r Result) Reason() string {
	return r.reason
}

// Describer labels an image file. It never returns an error: failures are Unavailable.
type Describer interface {
	Describe(ctx context.Context, imagePath string) Result
}

type NoopDescriber struct{}

func (NoopDescriber) Describe(ctx context.Context, imagePath string) Result {
	return Unavailable("visual describer disabled")
}
