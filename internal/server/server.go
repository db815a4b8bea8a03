// Package server exposes the synthesis engine over HTTP: /health, /styles,
// and POST /synthesis (accent-phrase JSON in, WAV out).
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/example/go-voxcore/internal/audio"
	"github.com/example/go-voxcore/internal/engine"
	"github.com/example/go-voxcore/internal/feature"
	"github.com/example/go-voxcore/internal/ling"
	"github.com/example/go-voxcore/internal/session"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// Synthesizer runs the synthesis pipeline for one utterance.
type Synthesizer interface {
	Synthesize(ctx context.Context, u ling.Utterance, style session.StyleID, params engine.ProsodyParams) (audio.Buffer, error)
}

// StyleLister returns the registered styles.
type StyleLister interface {
	Styles() []session.Style
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxBodyBytes   int64
	workers        int
	requestTimeout time.Duration
	defaults       engine.ProsodyParams
	logger         *slog.Logger
}

func defaultOptions() options {
	return options{
		maxBodyBytes:   1 << 20,
		workers:        2,
		requestTimeout: 60 * time.Second,
		defaults:       engine.DefaultParams(),
		logger:         slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxBodyBytes sets the maximum allowed request body size for POST /synthesis.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) { o.maxBodyBytes = n }
}

// WithWorkers sets the maximum number of concurrent synthesis calls.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRequestTimeout sets the per-request synthesis deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithDefaultParams sets the prosody values used when a request omits them.
func WithDefaultParams(p engine.ProsodyParams) Option {
	return func(o *options) { o.defaults = p }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

// handler holds the dependencies needed to serve HTTP requests.
type handler struct {
	synth  Synthesizer
	styles StyleLister
	opts   options
	sem    chan struct{} // semaphore for worker pool
	log    *slog.Logger
}

// NewHandler returns an http.Handler that serves /health, /styles, and
// POST /synthesis.
func NewHandler(synth Synthesizer, styles StyleLister, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		synth:  synth,
		styles: styles,
		opts:   opts,
		log:    opts.logger,
	}
	if opts.workers > 0 {
		h.sem = make(chan struct{}, opts.workers)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)
	mux.HandleFunc("/styles", h.handleStyles)
	mux.HandleFunc("/synthesis", h.handleSynthesis)
	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

type styleInfo struct {
	ID   session.StyleID `json:"id"`
	Name string          `json:"name"`
}

func (h *handler) handleStyles(w http.ResponseWriter, _ *http.Request) {
	styles := h.styles.Styles()
	out := make([]styleInfo, 0, len(styles))
	for _, s := range styles {
		out = append(out, styleInfo{ID: s.ID, Name: s.Name})
	}
	writeJSON(w, http.StatusOK, out)
}

type synthesisRequest struct {
	AccentPhrases []ling.AccentPhrase `json:"accent_phrases"`
	StyleID       session.StyleID     `json:"style_id"`

	SpeedScale           *float32 `json:"speed_scale,omitempty"`
	PitchScale           *float32 `json:"pitch_scale,omitempty"`
	IntonationScale      *float32 `json:"intonation_scale,omitempty"`
	VolumeScale          *float32 `json:"volume_scale,omitempty"`
	PrePauseSeconds      *float32 `json:"pre_pause_seconds,omitempty"`
	PostPauseSeconds     *float32 `json:"post_pause_seconds,omitempty"`
	InterrogativeUpspeak *bool    `json:"interrogative_upspeak,omitempty"`
}

func (r synthesisRequest) params(defaults engine.ProsodyParams) engine.ProsodyParams {
	p := defaults
	if r.SpeedScale != nil {
		p.SpeedScale = *r.SpeedScale
	}
	if r.PitchScale != nil {
		p.PitchScale = *r.PitchScale
	}
	if r.IntonationScale != nil {
		p.IntonationScale = *r.IntonationScale
	}
	if r.VolumeScale != nil {
		p.VolumeScale = *r.VolumeScale
	}
	if r.PrePauseSeconds != nil {
		p.PrePauseSeconds = *r.PrePauseSeconds
	}
	if r.PostPauseSeconds != nil {
		p.PostPauseSeconds = *r.PostPauseSeconds
	}
	if r.InterrogativeUpspeak != nil {
		p.InterrogativeUpspeak = *r.InterrogativeUpspeak
	}
	return p
}

func (h *handler) handleSynthesis(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body is required")
		return
	}

	var req synthesisRequest
	body := http.MaxBytesReader(w, r.Body, h.opts.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if len(req.AccentPhrases) == 0 {
		writeError(w, http.StatusBadRequest, "accent_phrases field is required")
		return
	}

	// Acquire a worker slot, honouring context cancellation while waiting.
	if h.sem != nil {
		select {
		case h.sem <- struct{}{}:
			// slot acquired
		case <-r.Context().Done():
			writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for worker")
			return
		}
		defer func() { <-h.sem }()
	}

	// Apply per-request timeout.
	ctx, cancel := context.WithTimeout(r.Context(), h.opts.requestTimeout)
	defer cancel()

	start := time.Now()
	buf, err := h.synth.Synthesize(ctx, ling.Utterance(req.AccentPhrases), req.StyleID, req.params(h.opts.defaults))
	durationMS := time.Since(start).Milliseconds()

	if err != nil {
		status := errorStatus(err)
		if status >= http.StatusInternalServerError {
			h.log.ErrorContext(r.Context(), "synthesis failed",
				slog.Int64("style", int64(req.StyleID)),
				slog.Int("phrases", len(req.AccentPhrases)),
				slog.Int64("duration_ms", durationMS),
				slog.String("error", err.Error()),
			)
		} else {
			h.log.WarnContext(r.Context(), "synthesis rejected",
				slog.Int64("style", int64(req.StyleID)),
				slog.Int("phrases", len(req.AccentPhrases)),
				slog.String("error", err.Error()),
			)
		}
		writeError(w, status, err.Error())
		return
	}

	h.log.InfoContext(r.Context(), "synthesis complete",
		slog.Int64("style", int64(req.StyleID)),
		slog.Int("phrases", len(req.AccentPhrases)),
		slog.Int64("duration_ms", durationMS),
		slog.Int("samples", len(buf.Samples)),
	)

	// Stream the WAV straight to the connection; no seeking needed, so the
	// full file never sits in memory.
	w.Header().Set("Content-Type", "audio/wav")
	if n, err := audio.StreamWAV(w, buf); err != nil {
		if n == 0 {
			// Nothing written yet, the status line is still ours.
			w.Header().Del("Content-Type")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		h.log.WarnContext(r.Context(), "streaming response aborted",
			slog.String("error", err.Error()),
		)
	}
}

// errorStatus maps pipeline error kinds to HTTP statuses: caller faults get
// 4xx, executor and load failures get 5xx, timeouts get 504.
func errorStatus(err error) int {
	var (
		encodingErr  *feature.EncodingError
		unknownStyle *session.UnknownStyleError
		emptyInput   *audio.EmptyInputError
		loadErr      *session.ModelLoadError
		inferenceErr *engine.InferenceError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	case errors.As(err, &encodingErr), errors.As(err, &emptyInput):
		return http.StatusBadRequest
	case errors.As(err, &unknownStyle):
		return http.StatusNotFound
	case errors.As(err, &loadErr), errors.As(err, &inferenceErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Server
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	addr            string
	handler         http.Handler
	shutdownTimeout time.Duration
}

func New(addr string, h http.Handler) *Server {
	return &Server{
		addr:            addr,
		handler:         h,
		shutdownTimeout: 30 * time.Second,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

// Start serves until ctx is cancelled, then drains gracefully.
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}
