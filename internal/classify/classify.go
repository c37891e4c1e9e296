// Package classify maps a free-text prompt to one label from the closed
// intent set via a single enum-constrained backend call.
package classify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"intentrelay/internal/schema"
)

// ErrClassification indicates the backend could not produce a label from the
// candidate set.
var ErrClassification = errors.New("classification failed")

// Labeler is the narrow backend contract the classifier consumes.
type Labeler interface {
	GenerateLabel(ctx context.Context, prompt string, candidates []string) (string, error)
}

// Classifier detects the caller's intent over a fixed registry. The label set
// is read from the registry at each call; the registry itself is immutable
// after startup.
type Classifier struct {
	labeler  Labeler
	registry *schema.Registry
}

// New constructs a classifier. Both collaborators are required.
func New(labeler Labeler, registry *schema.Registry) (*Classifier, error) {
	if labeler == nil {
		return nil, errors.New("labeler must not be nil")
	}
	if registry == nil {
		return nil, errors.New("registry must not be nil")
	}
	return &Classifier{labeler: labeler, registry: registry}, nil
}

// Classify returns exactly one member of the registered label set. A result
// outside the set is retried once; a second miss surfaces ErrUnknownLabel so
// the caller never falls through to a default schema. Backend failures
// surface as ErrClassification.
func (c *Classifier) Classify(ctx context.Context, prompt string) (schema.Label, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt must not be empty", ErrClassification)
	}

	candidates := c.registry.Labels()

	raw, err := c.labeler.GenerateLabel(ctx, prompt, candidates)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrClassification, err)
	}

	label, parseErr := parseMember(raw, candidates)
	if parseErr == nil {
		return label, nil
	}

	// The backend is expected to enforce enum membership; one bounded retry
	// covers a transient contract violation.
	raw, err = c.labeler.GenerateLabel(ctx, prompt, candidates)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrClassification, err)
	}
	return parseMember(raw, candidates)
}

func parseMember(raw string, candidates []string) (schema.Label, error) {
	for _, candidate := range candidates {
		if raw == candidate {
			return schema.Label(raw), nil
		}
	}
	return "", fmt.Errorf("%w: %q", schema.ErrUnknownLabel, raw)
}
