// Package api provides the HTTP REST surface of the analysis service.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/hugo-lorenzo-mato/partitura-ai/internal/core"
	"github.com/hugo-lorenzo-mato/partitura-ai/internal/events"
	"github.com/hugo-lorenzo-mato/partitura-ai/internal/pdf"
	"github.com/hugo-lorenzo-mato/partitura-ai/internal/source"
)

// AnalysisService is the consensus pipeline as seen by the HTTP layer.
type AnalysisService interface {
	AnalyzeScore(ctx context.Context, doc []byte, progress core.ProgressFunc) (core.ScoreAnalysis, error)
	AnalyzeScoreURL(ctx context.Context, url string, progress core.ProgressFunc) (core.ScoreAnalysis, error)
	IdentifyPart(ctx context.Context, doc []byte, progress core.ProgressFunc) (core.PartIdentity, error)
	IdentifyPartURL(ctx context.Context, url string, progress core.ProgressFunc) (core.PartIdentity, error)
}

// ServiceFactory builds an analysis service for a replicate count.
// A count of 0 means the configured default.
type ServiceFactory func(replicates int) (AnalysisService, error)

// Server provides the HTTP endpoints of the analysis service.
type Server struct {
	router    chi.Router
	factory   ServiceFactory
	eventBus  *events.EventBus
	retriever *source.Retriever
	splitter  PartSplitter
	logger    *slog.Logger
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRetriever sets the document retriever used for uploaded files.
func WithRetriever(r *source.Retriever) ServerOption {
	return func(s *Server) {
		s.retriever = r
	}
}

// WithSplitter sets the part splitter used by the split endpoint.
func WithSplitter(sp PartSplitter) ServerOption {
	return func(s *Server) {
		s.splitter = sp
	}
}

// NewServer creates a new API server.
func NewServer(factory ServiceFactory, eventBus *events.EventBus, opts ...ServerOption) *Server {
	s := &Server{
		factory:   factory,
		eventBus:  eventBus,
		retriever: source.NewRetriever(),
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.splitter == nil {
		s.splitter = pdf.NewSplitter(s.logger)
	}

	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
		MaxAge:           300,
	})
	r.Use(corsHandler.Handler)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/analyze", s.handleAnalyze)
		r.Post("/identify", s.handleIdentify)
		r.Post("/split", s.handleSplit)
		r.Get("/events", s.handleSSE)
	})

	return r
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// analyzeRequest is the JSON body of URL-based requests.
type analyzeRequest struct {
	URL string `json:"url"`
}

// analyzeResponse is the consensus result envelope.
type analyzeResponse struct {
	JobID       string                `json:"job_id"`
	Instruments []core.InstrumentPart `json:"instruments"`
}

// identifyResponse is the single-part result envelope.
type identifyResponse struct {
	JobID string `json:"job_id"`
	Name  string `json:"name"`
	Voice string `json:"voice,omitempty"`
}

// handleAnalyze runs the consensus analysis of a score book. The
// document arrives as a multipart "file" field or as {"url": ...}
// JSON; ?replicates= overrides the configured replicate count.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	replicates, err := parseReplicates(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	svc, err := s.factory(replicates)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	jobID := uuid.NewString()
	s.publish(events.NewAnalysisStartedEvent(jobID, replicates))

	doc, url, err := s.document(r)
	if err != nil {
		s.publish(events.NewAnalysisFailedEvent(jobID, err.Error()))
		respondDomainError(w, err)
		return
	}

	progress := s.progressFunc(jobID)
	var analysis core.ScoreAnalysis
	if url != "" {
		analysis, err = svc.AnalyzeScoreURL(r.Context(), url, progress)
	} else {
		analysis, err = svc.AnalyzeScore(r.Context(), doc, progress)
	}
	if err != nil {
		s.publish(events.NewAnalysisFailedEvent(jobID, err.Error()))
		respondDomainError(w, err)
		return
	}

	s.publish(events.NewAnalysisCompletedEvent(jobID, analysis.Parts))
	respondJSON(w, http.StatusOK, analyzeResponse{JobID: jobID, Instruments: analysis.Parts})
}

// handleIdentify runs the consensus identification of a single-part
// document.
func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	replicates, err := parseReplicates(r)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	svc, err := s.factory(replicates)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	jobID := uuid.NewString()
	s.publish(events.NewAnalysisStartedEvent(jobID, replicates))

	doc, url, err := s.document(r)
	if err != nil {
		s.publish(events.NewAnalysisFailedEvent(jobID, err.Error()))
		respondDomainError(w, err)
		return
	}

	progress := s.progressFunc(jobID)
	var identity core.PartIdentity
	if url != "" {
		identity, err = svc.IdentifyPartURL(r.Context(), url, progress)
	} else {
		identity, err = svc.IdentifyPart(r.Context(), doc, progress)
	}
	if err != nil {
		s.publish(events.NewAnalysisFailedEvent(jobID, err.Error()))
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, identifyResponse{JobID: jobID, Name: identity.Name, Voice: identity.Voice})
}

// document extracts the request document: either uploaded bytes or a
// URL for the analysis service to fetch itself.
func (s *Server) document(r *http.Request) (doc []byte, url string, err error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, "", core.ErrValidation(core.CodeEmptyDocument, "multipart request without a file field").WithCause(err)
		}
		defer file.Close()

		doc, err := s.retriever.FromReader(file)
		if err != nil {
			return nil, "", err
		}
		return doc, "", nil
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, "", core.ErrValidation(core.CodeEmptyDocument, "request body is neither multipart nor JSON").WithCause(err)
	}
	if req.URL == "" {
		return nil, "", core.ErrValidation(core.CodeEmptyDocument, "request names no document")
	}
	return nil, req.URL, nil
}

func (s *Server) progressFunc(jobID string) core.ProgressFunc {
	return func(done, total int) {
		s.publish(events.NewReplicateProgressEvent(jobID, done, total))
	}
}

func (s *Server) publish(event events.Event) {
	if s.eventBus != nil {
		s.eventBus.Publish(event)
	}
}

func parseReplicates(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("replicates")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, core.ErrValidation(core.CodeInvalidReplicates, "replicates must be a positive integer")
	}
	return n, nil
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}

// respondError sends a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListenAndServe starts the HTTP server with graceful shutdown tied to
// the context.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("starting API server", "addr", addr)
	return srv.ListenAndServe()
}
