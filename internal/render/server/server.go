package server

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"strings"
	"time"

	"github.com/cwbudde/mandelcore/internal/numeric/hdr"
	"github.com/cwbudde/mandelcore/internal/render"
)

// Server is the HTTP front end over a JobManager.
type Server struct {
	jobManager *JobManager
	addr       string
	server     *http.Server
}

// NewServer returns a server dispatching render jobs onto driver.
func NewServer(addr string, driver *render.Driver) *Server {
	return &Server{
		jobManager: NewJobManager(driver),
		addr:       addr,
	}
}

// Start runs the HTTP server until it errors or Shutdown is called.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)

	// Register pprof routes for profiling
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	handler := s.loggingMiddleware(s.corsMiddleware(mux))
	s.server = &http.Server{Addr: s.addr, Handler: handler}

	slog.Info("render server listening", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// jobRequest is the wire shape for POST /api/v1/jobs — a JSON-friendly
// rendering of render.JobSpec (which carries an hdr.HDR and a
// context.Context, neither directly JSON-marshalable).
type jobRequest struct {
	CenterRe string `json:"centerRe"`
	CenterIm string `json:"centerIm"`

	// Width, Height are plain decimal floats here; HTTP callers are not
	// expected to need HDRFloat's range for the viewport extent itself.
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	ImageWidthPx  uint32 `json:"imageWidthPx"`
	ImageHeightPx uint32 `json:"imageHeightPx"`

	IterationCap   uint32  `json:"iterationCap"`
	EscapeRadiusSq float32 `json:"escapeRadiusSq"`
	TauSq          float32 `json:"tauSq"`
	BLAEnabled     bool    `json:"blaEnabled"`
}

func (req jobRequest) toSpec() render.JobSpec {
	escapeRSq := req.EscapeRadiusSq
	if escapeRSq == 0 {
		escapeRSq = 65536
	}
	tauSq := req.TauSq
	if tauSq == 0 {
		tauSq = 1e-6
	}
	return render.JobSpec{
		CenterRe:       req.CenterRe,
		CenterIm:       req.CenterIm,
		Width:          hdr.FromFloat64(req.Width),
		Height:         hdr.FromFloat64(req.Height),
		ImageWidthPx:   req.ImageWidthPx,
		ImageHeightPx:  req.ImageHeightPx,
		IterationCap:   req.IterationCap,
		EscapeRadiusSq: escapeRSq,
		TauSq:          tauSq,
		BLAEnabled:     req.BLAEnabled,
	}
}

// handleJobs handles /api/v1/jobs.
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		s.handleListJobs(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobsWithID handles /api/v1/jobs/:id/*.
func (s *Server) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	parts := strings.SplitN(path, "/", 2)
	if parts[0] == "" {
		http.Error(w, "job id required", http.StatusBadRequest)
		return
	}
	jobID := parts[0]
	sub := ""
	if len(parts) > 1 {
		sub = parts[1]
	}

	switch sub {
	case "", "status":
		s.handleGetJobStatus(w, r, jobID)
	case "stream":
		s.handleJobStream(w, r, jobID)
	case "cancel":
		s.handleCancelJob(w, r, jobID)
	case "preview.png":
		s.handlePreviewImage(w, r, jobID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// handleCreateJob handles POST /api/v1/jobs.
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	spec := req.toSpec()
	if err := spec.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := s.jobManager.CreateJob(spec)
	go runJob(s.jobManager, job.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(job)
}

// handleListJobs handles GET /api/v1/jobs.
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.jobManager.ListJobs())
}

// jobStatusResponse is the GET status payload, including elapsed time.
type jobStatusResponse struct {
	ID          string     `json:"id"`
	State       JobState   `json:"state"`
	RowSetsDone int        `json:"rowSetsDone"`
	RowSetCount int        `json:"rowSetCount"`
	StartTime   time.Time  `json:"startTime"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	ElapsedSec  float64    `json:"elapsedSeconds"`
	Error       string     `json:"error,omitempty"`
}

// handleGetJobStatus handles GET /api/v1/jobs/:id[/status].
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, ok := s.jobManager.GetJob(jobID)
	if !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}

	elapsed := time.Since(job.StartTime)
	if job.EndTime != nil {
		elapsed = job.EndTime.Sub(job.StartTime)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jobStatusResponse{
		ID:          job.ID,
		State:       job.State,
		RowSetsDone: job.RowSetsDone,
		RowSetCount: job.RowSetCount,
		StartTime:   job.StartTime,
		EndTime:     job.EndTime,
		ElapsedSec:  elapsed.Seconds(),
		Error:       job.Error,
	})
}

// handleCancelJob handles POST /api/v1/jobs/:id/cancel.
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.jobManager.Cancel(jobID) {
		http.Error(w, "job not found or not running", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// handlePreviewImage handles GET /api/v1/jobs/:id/preview.png.
func (s *Server) handlePreviewImage(w http.ResponseWriter, r *http.Request, jobID string) {
	job, ok := s.jobManager.GetJob(jobID)
	if !ok {
		http.Error(w, "job not found", http.StatusNotFound)
		return
	}
	if job.Buffer == nil {
		http.Error(w, "no results yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	img := previewImage(job.Buffer, job.Spec.IterationCap)
	if err := png.Encode(w, img); err != nil {
		slog.Error("failed to encode preview PNG", "error", err)
	}
}

// corsMiddleware allows any origin, mirroring the teacher's permissive
// local-debugging stance.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request at debug level.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("http request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
