package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"intentrelay/internal/schema"
)

type fakeClassifier struct {
	label schema.Label
	err   error
}

func (f fakeClassifier) Classify(ctx context.Context, prompt string) (schema.Label, error) {
	return f.label, f.err
}

type fakeObjectStream struct {
	snapshots []string
	idx       int
	final     schema.Object
	err       error
	closed    bool
}

func (s *fakeObjectStream) Next() bool {
	if s.idx >= len(s.snapshots) {
		return false
	}
	s.idx++
	return true
}

func (s *fakeObjectStream) Current() json.RawMessage {
	return json.RawMessage(s.snapshots[s.idx-1])
}

func (s *fakeObjectStream) FinalObject() schema.Object { return s.final }
func (s *fakeObjectStream) Err() error                 { return s.err }
func (s *fakeObjectStream) Close() error               { s.closed = true; return nil }

type fakeGenerator struct {
	stream     *fakeObjectStream
	object     schema.Object
	objectErr  error
	lastEntry  schema.Entry
	lastPrompt string
}

func (g *fakeGenerator) GenerateObject(ctx context.Context, entry schema.Entry, prompt string) (schema.Object, error) {
	g.lastEntry = entry
	g.lastPrompt = prompt
	return g.object, g.objectErr
}

func (g *fakeGenerator) StreamObject(ctx context.Context, entry schema.Entry, prompt string) ObjectStream {
	g.lastEntry = entry
	g.lastPrompt = prompt
	return g.stream
}

func (g *fakeGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	return "text for " + prompt, nil
}

func (g *fakeGenerator) StreamText(ctx context.Context, prompt string) TextStream {
	return nil
}

func newTestRouter(t *testing.T, classifier Classifier, generator Generator) *Router {
	t.Helper()
	rt, err := New(classifier, schema.DefaultRegistry(), generator)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return rt
}

func TestDetect_RoutesClassifiedLabel(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{}
	rt := newTestRouter(t, fakeClassifier{label: schema.LabelProduct}, gen)

	label, entry, err := rt.Detect(context.Background(), "describe a kettle")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if label != schema.LabelProduct {
		t.Fatalf("label=%s, want product", label)
	}
	if entry.Label != schema.LabelProduct {
		t.Fatalf("entry.Label=%s, want product", entry.Label)
	}
}

func TestDetect_UnregisteredLabelIsSurfaced(t *testing.T) {
	t.Parallel()

	// A classifier that violates its contract must hit the explicit
	// unknown-label path, never a default schema.
	rt := newTestRouter(t, fakeClassifier{label: schema.Label("poem")}, &fakeGenerator{})

	_, _, err := rt.Detect(context.Background(), "write a poem")
	if !errors.Is(err, schema.ErrUnknownLabel) {
		t.Fatalf("err=%v, want ErrUnknownLabel", err)
	}
}

func TestStreamDetected_PassesSelectedEntry(t *testing.T) {
	t.Parallel()

	stream := &fakeObjectStream{snapshots: []string{`{"name":"Curry"}`}}
	gen := &fakeGenerator{stream: stream}
	rt := newTestRouter(t, fakeClassifier{label: schema.LabelRecipe}, gen)

	label, got, err := rt.StreamDetected(context.Background(), "a curry recipe")
	if err != nil {
		t.Fatalf("StreamDetected: %v", err)
	}
	if label != schema.LabelRecipe {
		t.Fatalf("label=%s, want recipe", label)
	}
	if got != ObjectStream(stream) {
		t.Fatalf("stream not passed through")
	}
	if gen.lastEntry.Label != schema.LabelRecipe {
		t.Fatalf("generator got entry %s, want recipe", gen.lastEntry.Label)
	}
	if gen.lastPrompt != "a curry recipe" {
		t.Fatalf("generator got prompt %q", gen.lastPrompt)
	}
}

func TestStreamDetected_ClassificationFailureShortCircuits(t *testing.T) {
	t.Parallel()

	classifyErr := fmt.Errorf("classification failed")
	gen := &fakeGenerator{stream: &fakeObjectStream{}}
	rt := newTestRouter(t, fakeClassifier{err: classifyErr}, gen)

	_, _, err := rt.StreamDetected(context.Background(), "hello")
	if !errors.Is(err, classifyErr) {
		t.Fatalf("err=%v, want classifier error", err)
	}
	if gen.lastPrompt != "" {
		t.Fatalf("generator was invoked despite classification failure")
	}
}

func TestGenerateDetected_TagsResult(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{object: schema.Person{Name: "Ava", Age: 34}}
	rt := newTestRouter(t, fakeClassifier{label: schema.LabelPerson}, gen)

	label, obj, err := rt.GenerateDetected(context.Background(), "a detective from Oslo")
	if err != nil {
		t.Fatalf("GenerateDetected: %v", err)
	}
	if label != schema.LabelPerson {
		t.Fatalf("label=%s, want person", label)
	}
	if obj.ObjectLabel() != schema.LabelPerson {
		t.Fatalf("object label=%s, want person", obj.ObjectLabel())
	}
}

func TestGenerateFixed_UsesNotificationsEntry(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{object: schema.NotificationList{}}
	rt := newTestRouter(t, fakeClassifier{label: schema.LabelRecipe}, gen)

	if _, err := rt.GenerateFixed(context.Background(), "three messages"); err != nil {
		t.Fatalf("GenerateFixed: %v", err)
	}
	if got, want := string(gen.lastEntry.Label), "notifications"; got != want {
		t.Fatalf("entry label=%s, want %s", got, want)
	}
}
