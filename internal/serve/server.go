// Package serve exposes a finished report directory over HTTP: the
// rendered report files, the score matrix as JSON, and, when a history
// store is attached, run listings and per-metric trends.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"msqc/domain/core"
	"msqc/internal/export"
	"msqc/internal/qclog"
	"msqc/ports"
)

// Server serves one report directory.
type Server struct {
	dir     string
	addr    string
	log     *zap.SugaredLogger
	history ports.HistoryPort

	router   chi.Router
	requests *prometheus.CounterVec
}

// Option configures optional server collaborators.
type Option func(*Server)

// WithHistory attaches a history store, enabling the runs and trend
// endpoints.
func WithHistory(h ports.HistoryPort) Option {
	return func(s *Server) { s.history = h }
}

// WithLogger sets the server logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// New builds a server over the report directory.
func New(dir, addr string, opts ...Option) *Server {
	s := &Server{dir: dir, addr: addr, log: qclog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.buildRouter()
	return s
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Infow("report server listening", "addr", s.addr, "dir", s.dir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve reports: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) buildRouter() {
	reg := prometheus.NewRegistry()
	s.requests = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
		Namespace: "msqc",
		Subsystem: "serve",
		Name:      "requests_total",
		Help:      "HTTP requests served, by route and status class.",
	}, []string{"route", "status"})
	promauto.With(reg).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "msqc",
		Subsystem: "serve",
		Name:      "report_built_at_seconds",
		Help:      "Unix mtime of the served score matrix, 0 while absent.",
	}, func() float64 {
		info, err := os.Stat(filepath.Join(s.dir, export.HeatMapFile))
		if err != nil {
			return 0
		}
		return float64(info.ModTime().Unix())
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(s.countRequests)

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/scores", s.handleScores)
	r.Get("/api/runs", s.handleRuns)
	r.Get("/api/trend/{metricID}", s.handleTrend)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Handle("/*", http.FileServer(http.Dir(s.dir)))
	s.router = r
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		s.requests.WithLabelValues(route, fmt.Sprintf("%dxx", ww.Status()/100)).Inc()
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warnw("failed to encode response", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "dir": s.dir})
}

type scoreRow struct {
	MetricID string              `json:"metric_id"`
	Cells    map[string]*float64 `json:"cells"`
}

type scoreMatrix struct {
	Samples []string   `json:"samples"`
	Rows    []scoreRow `json:"rows"`
}

// handleScores serves the score matrix parsed back from the exported
// heatmap file; null cells stay null.
func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(s.dir, export.HeatMapFile)
	hm, err := export.ReadHeatMap(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "no report in directory"})
			return
		}
		s.log.Warnw("failed to read heatmap", "path", path, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read score matrix"})
		return
	}

	matrix := scoreMatrix{Samples: hm.Samples, Rows: make([]scoreRow, 0, hm.Rows())}
	for _, id := range hm.MetricIDs {
		row := scoreRow{MetricID: string(id), Cells: make(map[string]*float64, len(hm.Samples))}
		for _, sample := range hm.Samples {
			if v, ok := hm.Get(id, sample); ok {
				score := v
				row.Cells[sample] = &score
			} else {
				row.Cells[sample] = nil
			}
		}
		matrix.Rows = append(matrix.Rows, row)
	}
	s.writeJSON(w, http.StatusOK, matrix)
}

type runResponse struct {
	RunID      string          `json:"run_id"`
	Source     string          `json:"source"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Scores     []scoreResponse `json:"scores"`
}

type scoreResponse struct {
	MetricID string   `json:"metric_id"`
	Status   string   `json:"status"`
	Score    *float64 `json:"score"`
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "history not enabled"})
		return
	}
	runs, err := s.history.ListRuns(r.Context(), queryLimit(r, 20))
	if err != nil {
		s.log.Warnw("failed to list runs", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list runs"})
		return
	}

	resp := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		rr := runResponse{
			RunID:      string(run.RunID),
			Source:     run.Source,
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
			Scores:     make([]scoreResponse, 0, len(run.Scores)),
		}
		for _, sc := range run.Scores {
			entry := scoreResponse{MetricID: string(sc.MetricID), Status: sc.Status}
			if !math.IsNaN(sc.Score) {
				score := sc.Score
				entry.Score = &score
			}
			rr.Scores = append(rr.Scores, entry)
		}
		resp = append(resp, rr)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type trendResponse struct {
	RunID      string    `json:"run_id"`
	FinishedAt time.Time `json:"finished_at"`
	Score      float64   `json:"score"`
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.writeJSON(w, http.StatusNotFound, map[string]string{"error": "history not enabled"})
		return
	}
	id := core.MetricID(chi.URLParam(r, "metricID"))
	points, err := s.history.Trend(r.Context(), id, queryLimit(r, 50))
	if err != nil {
		s.log.Warnw("failed to load trend", "metric", id, "error", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load trend"})
		return
	}

	resp := make([]trendResponse, 0, len(points))
	for _, p := range points {
		resp = append(resp, trendResponse{RunID: string(p.RunID), FinishedAt: p.FinishedAt, Score: p.Score})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
