package ai

import "context"

// AiInterface is a text-in, text-out language model backend.
type AiInterface interface {
	Name() string
	HandleText(ctx context.Context, msg string) (string, error)
}
