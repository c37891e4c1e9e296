package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"intentrelay/internal/relay"
	"intentrelay/internal/schema"
)

type smartObjectResponse struct {
	Type schema.Label  `json:"type"`
	Data schema.Object `json:"data"`
}

type textResponse struct {
	Text string `json:"text"`
}

func decodePrompt(c echo.Context) (string, error) {
	var req promptRequest
	if err := decodeRequestBody(c, &req); err != nil {
		return "", err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", requestError{Status: http.StatusBadRequest, Message: "prompt must not be empty"}
	}
	return req.Prompt, nil
}

// handleStreamObject runs the full pipeline and relays partial object
// snapshots as newline-delimited JSON frames: one intent frame, the partials
// in generator order, then exactly one terminal frame.
func (s *Server) handleStreamObject(c echo.Context) error {
	prompt, err := decodePrompt(c)
	if err != nil {
		return err
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	label, stream, err := s.dispatcher.StreamDetected(ctx, prompt)
	if err != nil {
		// Nothing has been flushed yet; a plain JSON error body is still
		// possible.
		return toHTTPError(err)
	}
	defer stream.Close()

	enc := startFrameStream(c)
	if err := enc.Intent(label); err != nil {
		slog.Warn("stream aborted before intent frame", "err", err)
		return nil
	}

	for stream.Next() {
		if err := enc.Partial(stream.Current()); err != nil {
			// Caller is gone: stop consuming so the backend stream is
			// released, surface nothing.
			slog.Warn("stream write failed, abandoning generation", "err", err)
			return nil
		}
	}

	if err := stream.Err(); err != nil {
		if werr := enc.Error(frameErrorMessage(err)); werr != nil {
			slog.Warn("failed to write terminal error frame", "err", werr)
		}
		return nil
	}

	if err := enc.Complete(); err != nil {
		slog.Warn("failed to write terminal frame", "err", err)
	}
	return nil
}

// handleGenerateObjectSmart is the non-streaming variant of the pipeline:
// classify, route, generate, and answer with one tagged JSON body.
func (s *Server) handleGenerateObjectSmart(c echo.Context) error {
	prompt, err := decodePrompt(c)
	if err != nil {
		return err
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	label, obj, err := s.dispatcher.GenerateDetected(ctx, prompt)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, smartObjectResponse{Type: label, Data: obj})
}

// handleGenerateObject generates against the single fixed schema with no
// classification step.
func (s *Server) handleGenerateObject(c echo.Context) error {
	prompt, err := decodePrompt(c)
	if err != nil {
		return err
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	obj, err := s.dispatcher.GenerateFixed(ctx, prompt)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, obj)
}

func (s *Server) handleGenerateText(c echo.Context) error {
	prompt, err := decodePrompt(c)
	if err != nil {
		return err
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	text, err := s.dispatcher.GenerateText(ctx, prompt)
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, textResponse{Text: text})
}

// handleStreamText relays text fragments as delta frames. Text streams carry
// no intent frame but keep the single-terminal-frame guarantee.
func (s *Server) handleStreamText(c echo.Context) error {
	prompt, err := decodePrompt(c)
	if err != nil {
		return err
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	stream := s.dispatcher.StreamText(ctx, prompt)
	defer stream.Close()

	enc := startFrameStream(c)
	for stream.Next() {
		if err := enc.Delta(stream.Current()); err != nil {
			slog.Warn("stream write failed, abandoning generation", "err", err)
			return nil
		}
	}

	if err := stream.Err(); err != nil {
		if werr := enc.Error(frameErrorMessage(err)); werr != nil {
			slog.Warn("failed to write terminal error frame", "err", werr)
		}
		return nil
	}

	if err := enc.Complete(); err != nil {
		slog.Warn("failed to write terminal frame", "err", err)
	}
	return nil
}

// startFrameStream commits the streaming response headers and wraps the
// response writer in a frame encoder. echo's Response implements
// http.Flusher, so every frame reaches the wire as soon as it is encoded.
func startFrameStream(c echo.Context) *relay.Encoder {
	header := c.Response().Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)
	return relay.NewEncoder(c.Response())
}

// frameErrorMessage keeps backend detail out of terminal error frames.
func frameErrorMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "generation deadline exceeded"
	default:
		return "generation failed"
	}
}
