// Package router wires the two-phase dispatch: classify the prompt into a
// label, look the label up in the schema registry, and hand the selected
// schema to the generation backend.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"intentrelay/internal/schema"
)

// ObjectStream is the consumable sequence of partial object snapshots
// produced by a streaming generation.
type ObjectStream interface {
	Next() bool
	Current() json.RawMessage
	FinalObject() schema.Object
	Err() error
	Close() error
}

// TextStream is the consumable sequence of text fragments produced by a
// streaming text generation.
type TextStream interface {
	Next() bool
	Current() string
	Err() error
	Close() error
}

// Classifier maps a prompt to one label from the registered set.
type Classifier interface {
	Classify(ctx context.Context, prompt string) (schema.Label, error)
}

// Generator is the structured-generation backend consumed by the router.
type Generator interface {
	GenerateObject(ctx context.Context, entry schema.Entry, prompt string) (schema.Object, error)
	StreamObject(ctx context.Context, entry schema.Entry, prompt string) ObjectStream
	GenerateText(ctx context.Context, prompt string) (string, error)
	StreamText(ctx context.Context, prompt string) TextStream
}

// Router dispatches prompts through the classifier and registry to the
// generator. It holds no per-request state.
type Router struct {
	classifier Classifier
	registry   *schema.Registry
	generator  Generator

	// fixed is the single always-selected entry used by the non-routed
	// object endpoint.
	fixed schema.Entry
}

// New constructs a router over the given collaborators.
func New(classifier Classifier, registry *schema.Registry, generator Generator) (*Router, error) {
	if classifier == nil {
		return nil, errors.New("classifier must not be nil")
	}
	if registry == nil {
		return nil, errors.New("registry must not be nil")
	}
	if generator == nil {
		return nil, errors.New("generator must not be nil")
	}
	return &Router{
		classifier: classifier,
		registry:   registry,
		generator:  generator,
		fixed:      schema.NotificationsEntry(),
	}, nil
}

// Detect classifies the prompt and resolves the registered entry for the
// label. A label outside the registry is surfaced, never defaulted.
func (r *Router) Detect(ctx context.Context, prompt string) (schema.Label, schema.Entry, error) {
	label, err := r.classifier.Classify(ctx, prompt)
	if err != nil {
		return "", schema.Entry{}, err
	}

	entry, err := r.registry.Route(label)
	if err != nil {
		return "", schema.Entry{}, err
	}
	return label, entry, nil
}

// StreamDetected runs the full streaming pipeline: classify, route, and open
// a partial-object stream for the selected schema.
func (r *Router) StreamDetected(ctx context.Context, prompt string) (schema.Label, ObjectStream, error) {
	label, entry, err := r.Detect(ctx, prompt)
	if err != nil {
		return "", nil, err
	}
	return label, r.generator.StreamObject(ctx, entry, prompt), nil
}

// GenerateDetected runs the blocking pipeline: classify, route, and generate
// a single final object for the selected schema.
func (r *Router) GenerateDetected(ctx context.Context, prompt string) (schema.Label, schema.Object, error) {
	label, entry, err := r.Detect(ctx, prompt)
	if err != nil {
		return "", nil, err
	}

	obj, err := r.generator.GenerateObject(ctx, entry, prompt)
	if err != nil {
		return "", nil, fmt.Errorf("generate %s object: %w", label, err)
	}
	return label, obj, nil
}

// GenerateFixed generates against the single non-routed entry, skipping
// classification entirely.
func (r *Router) GenerateFixed(ctx context.Context, prompt string) (schema.Object, error) {
	return r.generator.GenerateObject(ctx, r.fixed, prompt)
}

// GenerateText passes the prompt through for plain text generation.
func (r *Router) GenerateText(ctx context.Context, prompt string) (string, error) {
	return r.generator.GenerateText(ctx, prompt)
}

// StreamText passes the prompt through for streaming text generation.
func (r *Router) StreamText(ctx context.Context, prompt string) TextStream {
	return r.generator.StreamText(ctx, prompt)
}
