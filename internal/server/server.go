// Package server exposes the scan API: submission, status polling, report
// retrieval and a websocket progress stream.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/interfaces"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/model"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/pipeline"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/queue"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/secrets"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/store"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/utils"
)

// Server is the HTTP + WebSocket API surface. With a queue configured,
// submissions are enqueued for a worker; without one the orchestrator runs
// in the submitting request.
type Server struct {
	cfg      Config
	jobs     *store.JobStateStore
	reports  *store.ReportStore
	bus      interfaces.Bus
	queue    *queue.Queue // nil enables inline mode
	orch     *pipeline.Orchestrator
	box      *secrets.Box // nil disables credentialed scans
	router   chi.Router
	upgrader websocket.Upgrader
	logger   logging.Logger
}

// New wires the server from already-constructed parts.
func New(cfg Config, jobs *store.JobStateStore, reports *store.ReportStore, bus interfaces.Bus, q *queue.Queue, orch *pipeline.Orchestrator, box *secrets.Box) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewStdoutLogger("Server")
	}

	s := &Server{
		cfg:     cfg,
		jobs:    jobs,
		reports: reports,
		bus:     bus,
		queue:   q,
		orch:    orch,
		box:     box,
		router:  chi.NewRouter(),
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: tighten for production
				return true
			},
		},
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router

	r.Use(s.logRequests)
	r.Use(s.corsMiddleware)

	r.Options("/api/v1/scans", s.optionsHandler("POST"))
	r.Options("/api/v1/scans/{jobID}", s.optionsHandler("GET"))
	r.Options("/api/v1/scans/{jobID}/report", s.optionsHandler("GET"))
	r.Options("/api/v1/scans/{jobID}/preview", s.optionsHandler("GET"))

	r.Post("/api/v1/scans", s.handleSubmit)
	r.Get("/api/v1/scans/{jobID}", s.handleStatus)
	r.Get("/api/v1/scans/{jobID}/report", s.handleReport)
	r.Get("/api/v1/scans/{jobID}/preview", s.handlePreview)

	r.Get("/ws/scans/{jobID}", s.handleWS)

	r.Get("/healthz", s.handleHealthz)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request",
			logging.Field{Key: "method", Value: r.Method},
			logging.Field{Key: "path", Value: r.URL.Path},
			logging.Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()},
		)
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		next.ServeHTTP(w, r)
	})
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler with request logging. Submission bodies
// carry credentials, so bodies are never logged.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("http_request",
		logging.Field{Key: "method", Value: r.Method},
		logging.Field{Key: "path", Value: r.URL.Path})
	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // allow streaming and long inline scans
	}
}

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Code: code, Error: msg})
}

// --- HTTP handlers ---

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "could not read request body")
		return
	}
	var req submitRequest
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON")
		return
	}

	target, err := utils.ValidateScanURL(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_URL", err.Error())
		return
	}
	if req.Email != "" {
		if err := utils.ValidateEmail(req.Email); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_EMAIL", err.Error())
			return
		}
	}

	job := &model.Job{
		ID:        uuid.New().String(),
		URL:       target,
		Status:    model.JobPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.jobs.Create(r.Context(), job); err != nil {
		s.logger.Error("creating job record", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "INTERNAL", "could not create job")
		return
	}

	creds := requestCredentials(req)

	if s.queue != nil {
		task := &queue.ScanTask{JobID: job.ID, URL: target, Email: req.Email}
		if !creds.Empty() {
			raw, err := s.encryptCredentials(creds)
			if err != nil {
				s.logger.Error("encrypting credentials", logging.Field{Key: "error", Value: err.Error()})
				writeError(w, http.StatusInternalServerError, "INTERNAL", "could not protect credentials")
				return
			}
			task.RawCredentials = raw
		}
		if err := s.queue.Enqueue(r.Context(), task); err != nil {
			s.logger.Error("enqueueing scan", logging.Field{Key: "error", Value: err.Error()})
			writeError(w, http.StatusInternalServerError, "INTERNAL", "could not enqueue scan")
			return
		}
		s.logger.Info("scan queued",
			logging.Field{Key: "job_id", Value: job.ID},
			logging.Field{Key: "url", Value: target})
		writeJSON(w, http.StatusAccepted, submitResponse{JobID: job.ID, Status: string(model.JobPending)})
		return
	}

	// Inline mode: same writes as the queued path, synchronous in this
	// request. Run errors are already recorded on the job.
	s.logger.Info("scan running inline",
		logging.Field{Key: "job_id", Value: job.ID},
		logging.Field{Key: "url", Value: target})
	_ = s.orch.Run(context.WithoutCancel(r.Context()), job.ID, target, creds)
	// The acknowledgment is identical in both execution modes; clients learn
	// the outcome from the status endpoint.
	writeJSON(w, http.StatusAccepted, submitResponse{JobID: job.ID, Status: string(model.JobPending)})
}

func requestCredentials(req submitRequest) *model.Credentials {
	if req.Credentials == nil {
		return nil
	}
	return &model.Credentials{
		Username: req.Credentials.Username,
		Password: req.Credentials.Password,
		Email:    req.Credentials.Email,
	}
}

func (s *Server) encryptCredentials(creds *model.Credentials) ([]byte, error) {
	if s.box == nil {
		return nil, errors.New("no credential key configured")
	}
	payload, err := s.box.EncryptCredentials(creds)
	if err != nil {
		return nil, err
	}
	return json.Marshal(payload)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job, err := s.jobs.Get(r.Context(), jobID)
	if err != nil {
		s.logger.Warn("reading job", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "INTERNAL", "could not read job")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "JOB_NOT_FOUND", "unknown job id")
		return
	}

	resp := statusResponse{
		JobID:        job.ID,
		Status:       string(job.Status),
		Progress:     job.Progress,
		CurrentStage: job.CurrentStage,
		StageMessage: job.StageMessage,
		Error:        job.Error,
	}
	if job.Status == model.JobCompleted {
		resp.ReportURL = "/api/v1/scans/" + job.ID + "/report"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	rpt, err := s.reports.Get(r.Context(), jobID)
	if errors.Is(err, store.ErrReportNotFound) {
		writeError(w, http.StatusNotFound, "REPORT_NOT_FOUND", "report not available for this job")
		return
	}
	if err != nil {
		s.logger.Warn("reading report", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "INTERNAL", "could not read report")
		return
	}
	writeJSON(w, http.StatusOK, rpt)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	rpt, err := s.reports.Get(r.Context(), jobID)
	if errors.Is(err, store.ErrReportNotFound) {
		writeError(w, http.StatusNotFound, "REPORT_NOT_FOUND", "report not available for this job")
		return
	}
	if err != nil {
		s.logger.Warn("reading report", logging.Field{Key: "error", Value: err.Error()})
		writeError(w, http.StatusInternalServerError, "INTERNAL", "could not read report")
		return
	}
	writeJSON(w, http.StatusOK, rpt.Preview())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleWS relays bus events for one job. The current job snapshot is sent
// first so late subscribers do not start blind; for a terminal job that
// snapshot is all they get.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := s.jobs.Get(r.Context(), jobID)
	if err != nil || job == nil {
		writeError(w, http.StatusNotFound, "JOB_NOT_FOUND", "unknown job id")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Field{Key: "error", Value: err.Error()})
		return
	}
	defer conn.Close()

	_ = conn.WriteJSON(job)
	if job.Status.Terminal() {
		return
	}

	// The handler runs on the subscription's drain goroutine, so writes
	// after the snapshot are already serialized and ordered. done closes
	// exactly once on terminal events, write failure or client disconnect.
	done := make(chan struct{})
	var once sync.Once
	closeOnce := func() { once.Do(func() { close(done) }) }

	sub := s.bus.Subscribe(jobID, func(ev model.AgentEvent) {
		select {
		case <-done:
			return
		default:
		}
		if err := conn.WriteJSON(ev); err != nil {
			closeOnce()
			return
		}
		if ev.Type == model.EventCompleted || ev.Type == model.EventFailed {
			closeOnce()
		}
	})
	defer sub.Unsubscribe()

	// Drain client frames so pings/closes are processed; a read error means
	// the client went away.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeOnce()
				return
			}
		}
	}()

	select {
	case <-done:
	case <-r.Context().Done():
	}
}
