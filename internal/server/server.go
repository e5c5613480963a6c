// Package server exposes the render pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz           liveness probe
//	POST /v1/render         render a GeoJSON, WKT or CSV body
//	POST /v1/render/tiles   render a JSON array of tiles to PNG
//
// Render options are query parameters named like the JSON fields of
// [pipeline.GeometryOptions] (width, height, bbox, flip, fill, world,
// point_size, color, clip, format). The response body is the encoded image;
// the run ID and the number of skipped records are returned in the
// X-Run-ID and X-Skipped-Records headers.
package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/starkviz/pkg/engine"
	"github.com/matzehuels/starkviz/pkg/errors"
	"github.com/matzehuels/starkviz/pkg/pipeline"
	"github.com/matzehuels/starkviz/pkg/sink"
	"github.com/matzehuels/starkviz/pkg/source"
)

// Server defaults.
const (
	DefaultAddr         = ":8080"
	DefaultMaxBodyBytes = 32 << 20
	DefaultTimeout      = 2 * time.Minute
	shutdownTimeout     = 10 * time.Second
)

// Response headers.
const (
	HeaderRunID   = "X-Run-ID"
	HeaderSkipped = "X-Skipped-Records"
	HeaderCache   = "X-Cache"
)

// Server serves render requests with a shared Runner.
type Server struct {
	Runner *pipeline.Runner
	Logger *log.Logger

	// MaxBodyBytes caps a request body.
	MaxBodyBytes int64

	// Partitions is the number of partitions a request is split into when
	// it does not say. Zero uses GOMAXPROCS.
	Partitions int

	// Timeout bounds a single request.
	Timeout time.Duration
}

// New returns a server with default limits.
func New(runner *pipeline.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Server{
		Runner:       runner,
		Logger:       logger,
		MaxBodyBytes: DefaultMaxBodyBytes,
		Timeout:      DefaultTimeout,
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if s.Timeout > 0 {
		r.Use(middleware.Timeout(s.Timeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/v1/render", func(r chi.Router) {
		r.Post("/", s.handleRender)
		r.Post("/tiles", s.handleTiles)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.Logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	p := newParams(r.URL.Query())
	opts, err := p.geometryOptions()
	if err != nil {
		s.writeError(w, err)
		return
	}
	partitions := p.int("partitions", s.defaultPartitions())
	explode := p.bool("explode", false)
	inputFormat := p.string("input", source.FormatGeoJSON)
	if err := p.err(); err != nil {
		s.writeError(w, err)
		return
	}
	if err := source.ValidateFormat(inputFormat); err != nil {
		s.writeError(w, err)
		return
	}

	records, err := source.Read(http.MaxBytesReader(w, r.Body, s.MaxBodyBytes), inputFormat)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if explode {
		records = source.Explode(records)
	}

	ok, res := s.Runner.VisualizeGeometries(r.Context(), engine.Split(records, partitions), opts)
	s.writeResult(w, ok, res)
}

func (s *Server) handleTiles(w http.ResponseWriter, r *http.Request) {
	p := newParams(r.URL.Query())
	opts := pipeline.TileOptions{Options: p.options()}
	partitions := p.int("partitions", s.defaultPartitions())
	if err := p.err(); err != nil {
		s.writeError(w, err)
		return
	}

	tiles, err := source.ReadTiles(http.MaxBytesReader(w, r.Body, s.MaxBodyBytes))
	if err != nil {
		s.writeError(w, err)
		return
	}

	ok, res := s.Runner.VisualizeTiles(r.Context(), engine.Split(tiles, partitions), opts)
	s.writeResult(w, ok, res)
}

func (s *Server) defaultPartitions() int {
	if s.Partitions > 0 {
		return s.Partitions
	}
	return runtime.GOMAXPROCS(0)
}

func (s *Server) writeResult(w http.ResponseWriter, ok bool, res *pipeline.Result) {
	w.Header().Set(HeaderRunID, res.RunID)
	if !ok {
		s.writeError(w, res.Err)
		return
	}
	cacheState := "miss"
	if res.CacheHit {
		cacheState = "hit"
	}
	w.Header().Set(HeaderCache, cacheState)
	w.Header().Set(HeaderSkipped, strconv.Itoa(res.Stats.Skipped))
	w.Header().Set("Content-Type", sink.ContentType(res.Format))
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Image)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Image); err != nil {
		s.Logger.Debug("write response", "run", res.RunID, "error", err)
	}
}

type errorBody struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= 500 {
		s.Logger.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorBody{Error: errors.UserMessage(err), Code: errors.GetCode(err)})
}

// StatusFor maps an error to an HTTP status code.
func StatusFor(err error) int {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidEnvelope,
		errors.ErrCodeInvalidSize, errors.ErrCodeInvalidColor, errors.ErrCodeInvalidPath,
		errors.ErrCodeDecode:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Info("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(),
			"bytes", ww.BytesWritten(), "duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}
