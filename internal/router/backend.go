package router

import (
	"context"

	"intentrelay/internal/generate"
	"intentrelay/internal/schema"
)

// backendGenerator adapts the backend client to the Generator contract.
type backendGenerator struct {
	client *generate.Client
}

// NewBackendGenerator wraps a backend client as a Generator.
func NewBackendGenerator(client *generate.Client) Generator {
	return backendGenerator{client: client}
}

func (g backendGenerator) GenerateObject(ctx context.Context, entry schema.Entry, prompt string) (schema.Object, error) {
	return g.client.GenerateObject(ctx, entry, prompt)
}

func (g backendGenerator) StreamObject(ctx context.Context, entry schema.Entry, prompt string) ObjectStream {
	return g.client.StreamObject(ctx, entry, prompt)
}

func (g backendGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	return g.client.GenerateText(ctx, prompt)
}

func (g backendGenerator) StreamText(ctx context.Context, prompt string) TextStream {
	return g.client.StreamText(ctx, prompt)
}
