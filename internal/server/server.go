package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"intentrelay/internal/classify"
	"intentrelay/internal/config"
	"intentrelay/internal/generate"
	"intentrelay/internal/router"
	"intentrelay/internal/schema"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	idleTimeout         = 120 * time.Second
)

// Dispatcher is the pipeline surface the HTTP layer depends on. It is
// satisfied by router.Router.
type Dispatcher interface {
	StreamDetected(ctx context.Context, prompt string) (schema.Label, router.ObjectStream, error)
	GenerateDetected(ctx context.Context, prompt string) (schema.Label, schema.Object, error)
	GenerateFixed(ctx context.Context, prompt string) (schema.Object, error)
	GenerateText(ctx context.Context, prompt string) (string, error)
	StreamText(ctx context.Context, prompt string) router.TextStream
}

type Server struct {
	cfg        config.Config
	dispatcher Dispatcher
	app        *echo.Echo
	address    string
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, dispatcher Dispatcher) (*Server, error) {
	if dispatcher == nil {
		return nil, errors.New("dispatcher must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency: true,
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))

	srv := &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		app:        e,
		address:    fmt.Sprintf(":%d", cfg.Server.Port),
	}

	srv.registerRoutes()

	return srv, nil
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server.Port)
	slog.Info("starting server", "addr", s.address)

	httpServer := &http.Server{
		Addr:        s.address,
		Handler:     s.app,
		ReadTimeout: readTimeout,
		IdleTimeout: idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	s.app.POST("/api/stream-object", s.handleStreamObject)
	s.app.POST("/api/generate-object-smart", s.handleGenerateObjectSmart)
	s.app.POST("/api/generate-object", s.handleGenerateObject)
	s.app.POST("/api/generate-text", s.handleGenerateText)
	s.app.POST("/api/stream-text", s.handleStreamText)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// requestContext applies the wrapping generation deadline to the request
// context. The pipeline itself enforces no timeouts.
func (s *Server) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	ctx := c.Request().Context()
	if timeout := s.cfg.RequestTimeout(); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return ctx, func() {}
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
		}
	}
	return nil
}

type requestError struct {
	Status  int
	Message string
}

func (e requestError) Error() string {
	return e.Message
}

type errorBody struct {
	Error string `json:"error"`
}

func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = c.JSON(reqErr.Status, errorBody{Error: reqErr.Message})
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		_ = c.JSON(httpErr.Code, errorBody{Error: fmt.Sprintf("%v", httpErr.Message)})
		return
	}

	_ = c.JSON(http.StatusInternalServerError, errorBody{Error: "internal server error"})
}

// toHTTPError maps pipeline failures onto the JSON error contract. Each
// taxonomy member keeps its own status: classification and routing failures
// are the caller's 4xx, backend failures are 5xx.
func toHTTPError(err error) error {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	switch {
	case errors.Is(err, classify.ErrClassification):
		return requestError{Status: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, schema.ErrUnknownLabel):
		return requestError{Status: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return requestError{Status: http.StatusGatewayTimeout, Message: "generation deadline exceeded"}
	case errors.Is(err, generate.ErrGeneration):
		return requestError{Status: http.StatusBadGateway, Message: "generation backend error"}
	}

	return requestError{Status: http.StatusBadGateway, Message: "upstream backend error"}
}

func printStartupBanner(port int) {
	host := "127.0.0.1"
	fmt.Println()
	fmt.Println("intentrelay ready")
	fmt.Printf("Listening on http://%s:%d\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  POST /api/stream-object")
	fmt.Println("  POST /api/generate-object-smart")
	fmt.Println("  POST /api/generate-object")
	fmt.Println("  POST /api/generate-text")
	fmt.Println("  POST /api/stream-text")
	fmt.Printf("Example:\n  curl -N http://%s:%d/api/stream-object -H 'Content-Type: application/json' -d '{\"prompt\":\"Generate a spicy Thai curry recipe\"}'\n\n", host, port)
}
