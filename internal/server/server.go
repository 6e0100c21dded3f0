// Package server exposes the experiment over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/san-kum/rtmsim/internal/config"
	"github.com/san-kum/rtmsim/internal/logging"
	"github.com/san-kum/rtmsim/internal/sim"
	"github.com/san-kum/rtmsim/internal/trials"
)

const (
	defaultTrials = 200
	maxTrials     = 10000
	maxBodyBytes  = 1 << 16
	maxPopulation = 1_000_000
)

type Server struct {
	router   *chi.Mux
	engine   *sim.Engine
	ensemble *trials.Ensemble
	log      *slog.Logger
}

func New(engine *sim.Engine, ensemble *trials.Ensemble, log *slog.Logger) *Server {
	if log == nil {
		log = logging.Discard()
	}
	s := &Server{
		router:   chi.NewRouter(),
		engine:   engine,
		ensemble: ensemble,
		log:      log,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/presets", s.handlePresets)
		r.Post("/simulate", s.handleSimulate)
		r.Post("/trials", s.handleTrials)
	})
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type simulateResponse struct {
	Params    sim.Params  `json:"params"`
	Summary   sim.Summary `json:"summary"`
	Text      string      `json:"text"`
	Primary   []float64   `json:"primary"`
	Secondary []float64   `json:"secondary"`
	Selected  []bool      `json:"selected"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, "ok")
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, config.Presets)
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	p, err := decodeParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := checkLimits(p); err != nil {
		s.writeRunError(w, err)
		return
	}

	res, err := s.engine.Run(p)
	if err != nil {
		s.writeRunError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, simulateResponse{
		Params:    res.Params,
		Summary:   res.Summary,
		Text:      res.Summary.Text(),
		Primary:   res.Primary,
		Secondary: res.Secondary,
		Selected:  res.Mask,
	})
}

func (s *Server) handleTrials(w http.ResponseWriter, r *http.Request) {
	n := defaultTrials
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxTrials {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "n must be an integer in [1, 10000]"})
			return
		}
		n = v
	}

	p, err := decodeParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := checkLimits(p); err != nil {
		s.writeRunError(w, err)
		return
	}

	report, err := s.ensemble.Run(r.Context(), p, n)
	if err != nil {
		s.writeRunError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// decodeParams reads a JSON parameter set. Missing fields keep their
// defaults, so an empty body runs the default experiment.
func decodeParams(r *http.Request) (sim.Params, error) {
	p := sim.DefaultParams()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return p, err
	}
	if len(body) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(body, &p); err != nil {
		return p, err
	}
	return p, nil
}

// checkLimits rejects requests too large to serve before anything is
// allocated for them.
func checkLimits(p sim.Params) error {
	if p.PopulationSize > maxPopulation {
		return &sim.ParamError{
			Field:  "population_size",
			Value:  float64(p.PopulationSize),
			Reason: "exceeds the server limit of " + strconv.Itoa(maxPopulation),
		}
	}
	return nil
}

func (s *Server) writeRunError(w http.ResponseWriter, err error) {
	var pe *sim.ParamError
	switch {
	case errors.As(err, &pe):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Field: pe.Field})
	case errors.Is(err, sim.ErrInvalidParameters):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, sim.ErrEmptySelection):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, context.Canceled):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		s.log.Error("run failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
