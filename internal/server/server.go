// Package server exposes a Runtime over HTTP.
//
// Routes:
//
//	GET  /healthz            session and current seq
//	GET  /forms              every form; ?seq=N reads a retained snapshot
//	GET  /forms/{formKey}    one form
//	POST /commands           apply one wire command and wait for the result
//	GET  /metrics            Prometheus metrics, when a handler is configured
//	GET  /entities           load/save status of every tracked entity
//	GET  /entities/{name}    one entity's status
//	POST /entities/events    apply a load/save lifecycle event
//
// Commands are applied by the Runtime's single writer; handlers only
// enqueue and read snapshots.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/roach88/formsync/internal/command"
	"github.com/roach88/formsync/internal/engine"
	"github.com/roach88/formsync/internal/form"
	"github.com/roach88/formsync/internal/status"
)

// Error codes returned in error responses, alongside the engine's
// transition error codes.
const (
	CodeInvalidCommand = "INVALID_COMMAND"
	CodeInvalidSeq     = "INVALID_SEQ"
	CodeSeqNotRetained = "SEQ_NOT_RETAINED"
	CodeUnavailable    = "UNAVAILABLE"
	CodeTimeout        = "TIMEOUT"
	CodeInvalidEvent   = "INVALID_EVENT"
	CodeUnhandledEvent = "UNHANDLED_EVENT"
	CodeEntityNotFound = "ENTITY_NOT_FOUND"
)

// maxCommandBytes bounds a POST /commands body.
const maxCommandBytes = 1 << 20

// Dispatcher is the part of engine.Runtime the server uses.
type Dispatcher interface {
	Submit(ctx context.Context, cmd command.Command) (engine.Applied, error)
	State() form.Forms
	Seq() int64
	At(seq int64) (form.Forms, bool)
	Session() string
}

var _ Dispatcher = (*engine.Runtime)(nil)

// Server routes HTTP requests to a Dispatcher.
type Server struct {
	dispatcher    Dispatcher
	metrics       http.Handler
	entities      *status.Tracker
	submitTimeout time.Duration
	router        chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves h on GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithEntities serves the load/save status of t under /entities.
func WithEntities(t *status.Tracker) Option {
	return func(s *Server) {
		s.entities = t
	}
}

// WithSubmitTimeout bounds how long POST /commands waits for the Runtime.
// Zero waits until the request is cancelled.
func WithSubmitTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.submitTimeout = d
	}
}

// New creates a Server for d.
func New(d Dispatcher, opts ...Option) *Server {
	s := &Server{
		dispatcher:    d,
		submitTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Route("/forms", func(r chi.Router) {
		r.Get("/", s.listForms)
		r.Get("/{formKey}", s.getForm)
	})
	r.Post("/commands", s.postCommand)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	if s.entities != nil {
		r.Route("/entities", func(r chi.Router) {
			r.Get("/", s.listEntities)
			r.Post("/events", s.postEvent)
			r.Get("/{name}", s.getEntity)
		})
	}
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type healthResponse struct {
	Status  string `json:"status"`
	Session string `json:"session"`
	Seq     int64  `json:"seq"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Session: s.dispatcher.Session(),
		Seq:     s.dispatcher.Seq(),
	})
}

type formsResponse struct {
	Seq   int64      `json:"seq"`
	Forms form.Forms `json:"forms"`
}

func (s *Server) listForms(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("seq")
	if raw == "" {
		// Read seq before state: a command applied in between only makes
		// the reported seq conservative.
		seq := s.dispatcher.Seq()
		writeJSON(w, http.StatusOK, formsResponse{Seq: seq, Forms: s.dispatcher.State()})
		return
	}

	seq, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seq < 0 {
		writeError(w, http.StatusBadRequest, CodeInvalidSeq, "invalid seq: "+raw)
		return
	}
	forms, ok := s.dispatcher.At(seq)
	if !ok {
		writeError(w, http.StatusNotFound, CodeSeqNotRetained, fmt.Sprintf("no snapshot retained for seq %d", seq))
		return
	}
	writeJSON(w, http.StatusOK, formsResponse{Seq: seq, Forms: forms})
}

func (s *Server) getForm(w http.ResponseWriter, r *http.Request) {
	formKey := chi.URLParam(r, "formKey")
	f, ok := s.dispatcher.State().Find(formKey)
	if !ok {
		writeError(w, http.StatusNotFound, string(engine.CodeFormNotFound), "no form with key "+formKey)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// commandResponse reports the outcome of one applied command.
type commandResponse struct {
	Session string `json:"session"`
	Seq     int64  `json:"seq"`
	Type    string `json:"type"`
	Outcome string `json:"outcome"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) postCommand(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCommandBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidCommand, "read body: "+err.Error())
		return
	}
	cmd, err := command.Unmarshal(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidCommand, err.Error())
		return
	}

	ctx := r.Context()
	if s.submitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.submitTimeout)
		defer cancel()
	}

	a, err := s.dispatcher.Submit(ctx, cmd)
	switch {
	case errors.Is(err, engine.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, CodeUnavailable, err.Error())
		return
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, CodeTimeout, "command not applied before timeout")
		return
	case err != nil:
		slog.Warn("submit command failed", "type", cmd.Type(), "error", err)
		writeError(w, http.StatusServiceUnavailable, CodeUnavailable, err.Error())
		return
	}

	resp := commandResponse{
		Session: a.Session,
		Seq:     a.Seq,
		Type:    string(a.Command.Type()),
		Outcome: "OK",
	}
	httpStatus := http.StatusOK
	if a.Err != nil {
		// The command was logged as a no-op; report it but keep the seq.
		resp.Outcome = string(engine.Code(a.Err))
		resp.Error = a.Err.Error()
		httpStatus = http.StatusUnprocessableEntity
	}
	writeJSON(w, httpStatus, resp)
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("http server stopped", "addr", addr)
	return nil
}
