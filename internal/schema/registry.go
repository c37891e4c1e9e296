package schema

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownLabel indicates a label outside the registered set reached the
// router. This is a contract violation by the classifier or the backend and
// is always surfaced, never mapped to a default schema.
var ErrUnknownLabel = errors.New("unknown label")

// ErrDuplicateLabel indicates an attempt to register the same label twice.
var ErrDuplicateLabel = errors.New("label already registered")

// Entry binds a label to its fixed output schema and the decoder for the
// final object.
type Entry struct {
	Label       Label
	Name        string
	Description string

	// JSONSchema is the strict-mode schema document sent to the backend.
	JSONSchema map[string]any

	decode func(raw json.RawMessage) (Object, error)
}

// Decode parses a schema-valid final object into its typed variant. Required
// fields are verified against the entry's schema so a strict-mode violation by
// the backend fails here instead of producing a hollow object.
func (e Entry) Decode(raw json.RawMessage) (Object, error) {
	if e.decode == nil {
		return nil, fmt.Errorf("entry %q has no decoder", e.Label)
	}
	if err := validateRequired(e.JSONSchema, raw); err != nil {
		return nil, fmt.Errorf("decode final object: %w", err)
	}
	return e.decode(raw)
}

// Registry is the static mapping from labels to schema entries. It is built
// once at startup and read-only afterwards.
type Registry struct {
	entries map[Label]Entry
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Label]Entry)}
}

// Register adds an entry, rejecting duplicates.
func (r *Registry) Register(entry Entry) error {
	if entry.Label == "" {
		return errors.New("entry label must not be empty")
	}
	if entry.JSONSchema == nil {
		return fmt.Errorf("entry %q must carry a JSON schema", entry.Label)
	}
	if _, exists := r.entries[entry.Label]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateLabel, entry.Label)
	}
	r.entries[entry.Label] = entry
	return nil
}

// Route returns the entry registered for the label. A miss is an explicit
// error path, not a fallback.
func (r *Registry) Route(label Label) (Entry, error) {
	entry, ok := r.entries[label]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrUnknownLabel, label)
	}
	return entry, nil
}

// Labels returns the registered label set in declaration order.
func (r *Registry) Labels() []string {
	out := make([]string, 0, len(r.entries))
	for _, l := range Labels() {
		if _, ok := r.entries[l]; ok {
			out = append(out, string(l))
		}
	}
	return out
}

func decodeInto[T Object](raw json.RawMessage) (Object, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode final object: %w", err)
	}
	return v, nil
}

// DefaultRegistry returns the registry holding the routed schema set.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	entries := []Entry{
		{
			Label:       LabelRecipe,
			Name:        "Recipe",
			Description: "A cooking recipe with ingredients and preparation steps",
			JSONSchema:  generateJSONSchema[Recipe](),
			decode:      decodeInto[Recipe],
		},
		{
			Label:       LabelPerson,
			Name:        "Person",
			Description: "A fictional person profile",
			JSONSchema:  generateJSONSchema[Person](),
			decode:      decodeInto[Person],
		},
		{
			Label:       LabelProduct,
			Name:        "Product",
			Description: "A product listing with price and features",
			JSONSchema:  generateJSONSchema[Product](),
			decode:      decodeInto[Product],
		},
		{
			Label:       LabelStory,
			Name:        "Story",
			Description: "A short story outline with characters",
			JSONSchema:  generateJSONSchema[Story](),
			decode:      decodeInto[Story],
		},
	}
	for _, entry := range entries {
		if err := r.Register(entry); err != nil {
			panic(err)
		}
	}
	return r
}

// NotificationsEntry is the single always-selected entry used by the
// non-routed generate-object endpoint.
func NotificationsEntry() Entry {
	return Entry{
		Label:       Label("notifications"),
		Name:        "NotificationList",
		Description: "A list of synthetic app notifications",
		JSONSchema:  generateJSONSchema[NotificationList](),
		decode:      decodeInto[NotificationList],
	}
}
