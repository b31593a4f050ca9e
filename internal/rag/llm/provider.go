package llm

import (
	"context"
	"errors"
)

var ErrMissingCredential = errors.New("llm api key is not set")
var ErrEmptyCompletion = errors.New("llm returned no completion")

type SamplingParams struct {
	Temperature float32
}

// Provider sends a fully rendered prompt to a completion model and returns
// its text unchanged.
type Provider interface {
	Generate(ctx context.Context, prompt string, params SamplingParams) (string, error)
	ModelName() string
}
