package pipeline

import (
	"context"
)

// A Transform is the external step converting input image URLs into the URLs
// of their processed counterparts. It may be slow and it may fail, callers
// must bound it with a timeout and a retry budget.
//
// Given n input URLs it returns exactly n output URLs, in the same order.
type Transform interface {
	Transform(ctx context.Context, urls []string) ([]string, error)
}

// SuffixTransform is a stand-in for the real image pipeline. It uploads
// nothing and returns each URL with a fixed suffix appended.
type SuffixTransform struct {
	Suffix string
}

// Transform implements Transform.
func (t SuffixTransform) Transform(ctx context.Context, urls []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outputs := make([]string, 0, len(urls))
	for _, url := range urls {
		outputs = append(outputs, url+t.Suffix)
	}
	return outputs, nil
}
