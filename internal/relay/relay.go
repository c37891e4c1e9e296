// Package relay frames the outbound stream: one JSON document per line,
// flushed as soon as it is produced. A stream is exactly one intent frame,
// zero or more partial frames in generator order, and exactly one terminal
// frame.
package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"intentrelay/internal/schema"
)

// ErrTransport indicates the underlying response writer failed, typically
// because the caller disconnected. It is a signal to stop consuming the
// generator; nothing further can reach the caller.
var ErrTransport = errors.New("transport write failed")

// ErrFrameOrder indicates a frame was emitted out of the mandated order.
var ErrFrameOrder = errors.New("frame emitted out of order")

// Frame types, in mandated emission order.
const (
	FrameIntent   = "intent"
	FramePartial  = "partial"
	FrameDelta    = "delta"
	FrameComplete = "complete"
	FrameError    = "error"
)

// Frame is the discriminated envelope written to the wire.
type Frame struct {
	Type   string          `json:"type"`
	Intent schema.Label    `json:"intent,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Text   string          `json:"text,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Encoder serializes frames to a response writer, one line per frame, with no
// buffering beyond the frame being written. It never writes past a terminal
// frame.
type Encoder struct {
	w       io.Writer
	flusher http.Flusher

	started    bool
	terminated bool
}

// NewEncoder wraps a response writer. If the writer supports http.Flusher,
// every frame is flushed to the transport immediately.
func NewEncoder(w io.Writer) *Encoder {
	enc := &Encoder{w: w}
	if flusher, ok := w.(http.Flusher); ok {
		enc.flusher = flusher
	}
	return enc
}

// Started reports whether the intent frame has been flushed. The HTTP layer
// uses this to decide between a JSON error body and a terminal error frame.
func (e *Encoder) Started() bool {
	return e.started
}

// Intent emits the leading frame announcing the detected label.
func (e *Encoder) Intent(label schema.Label) error {
	if e.started || e.terminated {
		return ErrFrameOrder
	}
	if err := e.write(Frame{Type: FrameIntent, Intent: label}); err != nil {
		return err
	}
	e.started = true
	return nil
}

// Partial emits one object snapshot.
func (e *Encoder) Partial(data json.RawMessage) error {
	if !e.started || e.terminated {
		return ErrFrameOrder
	}
	return e.write(Frame{Type: FramePartial, Data: data})
}

// Delta emits one appended text fragment. Text streams carry no intent
// frame, so a delta may open the stream.
func (e *Encoder) Delta(text string) error {
	if e.terminated {
		return ErrFrameOrder
	}
	e.started = true
	return e.write(Frame{Type: FrameDelta, Text: text})
}

// Complete emits the success terminal frame and seals the stream.
func (e *Encoder) Complete() error {
	if e.terminated {
		return ErrFrameOrder
	}
	e.terminated = true
	return e.write(Frame{Type: FrameComplete})
}

// Error emits the failure terminal frame and seals the stream. If the
// transport is already gone the write failure is reported, not raised past
// the transport boundary.
func (e *Encoder) Error(message string) error {
	if e.terminated {
		return ErrFrameOrder
	}
	e.terminated = true
	e.started = true
	return e.write(Frame{Type: FrameError, Error: message})
}

func (e *Encoder) write(frame Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	data = append(data, '\n')
	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}
