package generate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/responses"

	"intentrelay/internal/partialjson"
	"intentrelay/internal/schema"
)

const (
	eventOutputTextDelta = "response.output_text.delta"
	eventResponseFailed  = "response.failed"
	eventIncomplete      = "response.incomplete"
	eventError           = "error"
)

// ObjectStream is the lazy, finite, non-restartable sequence of partial
// object snapshots for one generation. Each snapshot is a superset-refinement
// of the previous one: snapshots are parses of ever-longer prefixes of the
// same backend document, so fields are never retracted and arrays never
// shrink. Iterate with Next/Current in the ssestream idiom.
type ObjectStream struct {
	stream *ssestream.Stream[responses.ResponseStreamEventUnion]
	entry  schema.Entry

	buf  []byte
	last []byte
	cur  json.RawMessage

	final    schema.Object
	finished bool
	done     bool
	err      error
}

// StreamObject starts a streaming generation for the entry's schema. The
// request context cancels the backend stream when the caller goes away.
func (c *Client) StreamObject(ctx context.Context, entry schema.Entry, prompt string) *ObjectStream {
	return &ObjectStream{
		stream: c.client.Responses.NewStreaming(ctx, c.objectParams(entry, prompt)),
		entry:  entry,
	}
}

// Next advances to the next distinct snapshot. It returns false when the
// sequence is exhausted or failed; check Err afterwards.
func (s *ObjectStream) Next() bool {
	if s.err != nil || s.done {
		return false
	}

	for !s.finished && s.stream.Next() {
		event := s.stream.Current()
		switch event.Type {
		case eventOutputTextDelta:
			s.buf = append(s.buf, event.Delta.OfString...)
			if snap, ok := s.snapshot(); ok {
				s.cur = snap
				return true
			}
		case eventResponseFailed, eventIncomplete:
			s.err = fmt.Errorf("%w: backend reported %s", ErrGeneration, event.Type)
			return false
		case eventError:
			s.err = fmt.Errorf("%w: %s", ErrGeneration, event.Message)
			return false
		}
	}

	if !s.finished {
		s.finished = true
		if err := s.stream.Err(); err != nil {
			s.err = fmt.Errorf("%w: %w", ErrGeneration, err)
			return false
		}
	}

	// Underlying stream exhausted: validate the full document against the
	// schema and emit it as the last snapshot if it was not already sent.
	s.done = true
	final, err := s.entry.Decode(json.RawMessage(s.buf))
	if err != nil {
		s.err = fmt.Errorf("%w: %v", ErrGeneration, err)
		return false
	}
	s.final = final

	canonical, err := canonicalize(s.buf)
	if err != nil {
		s.err = fmt.Errorf("%w: %v", ErrGeneration, err)
		return false
	}
	if string(canonical) == string(s.last) {
		return false
	}
	s.last = canonical
	s.cur = canonical
	return true
}

// Current returns the snapshot produced by the last successful Next.
func (s *ObjectStream) Current() json.RawMessage {
	return s.cur
}

// FinalObject returns the typed final object. It is non-nil only after Next
// has returned false with a nil Err.
func (s *ObjectStream) FinalObject() schema.Object {
	return s.final
}

// Err returns the terminal error, if any.
func (s *ObjectStream) Err() error {
	return s.err
}

// Close releases the backend stream. Safe to call at any point; required when
// abandoning the stream before exhaustion.
func (s *ObjectStream) Close() error {
	return s.stream.Close()
}

// snapshot completes the accumulated prefix and reports whether it parses
// into a snapshot distinct from the previously emitted one.
func (s *ObjectStream) snapshot() (json.RawMessage, bool) {
	completed, ok := partialjson.Complete(s.buf)
	if !ok {
		return nil, false
	}
	canonical, err := canonicalize(completed)
	if err != nil {
		return nil, false
	}
	if string(canonical) == string(s.last) {
		return nil, false
	}
	s.last = canonical
	return canonical, true
}

func canonicalize(doc []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// TextStream is the incremental text counterpart of ObjectStream: each
// element is one appended text fragment.
type TextStream struct {
	stream *ssestream.Stream[responses.ResponseStreamEventUnion]

	cur      string
	finished bool
	err      error
}

// StreamText starts a streaming plain-text generation.
func (c *Client) StreamText(ctx context.Context, prompt string) *TextStream {
	return &TextStream{stream: c.client.Responses.NewStreaming(ctx, c.textParams(prompt))}
}

// Next advances to the next text fragment.
func (s *TextStream) Next() bool {
	if s.err != nil || s.finished {
		return false
	}

	for s.stream.Next() {
		event := s.stream.Current()
		switch event.Type {
		case eventOutputTextDelta:
			if event.Delta.OfString == "" {
				continue
			}
			s.cur = event.Delta.OfString
			return true
		case eventResponseFailed, eventIncomplete:
			s.err = fmt.Errorf("%w: backend reported %s", ErrGeneration, event.Type)
			return false
		case eventError:
			s.err = fmt.Errorf("%w: %s", ErrGeneration, event.Message)
			return false
		}
	}

	s.finished = true
	if err := s.stream.Err(); err != nil {
		s.err = fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return false
}

// Current returns the fragment produced by the last successful Next.
func (s *TextStream) Current() string {
	return s.cur
}

// Err returns the terminal error, if any.
func (s *TextStream) Err() error {
	return s.err
}

// Close releases the backend stream.
func (s *TextStream) Close() error {
	return s.stream.Close()
}
