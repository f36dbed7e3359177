// Package http exposes the extraction operations plus health, readiness,
// and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/powertothepeople/usage-engine/internal/domain"
)

// Extractor is the orchestration surface the server fronts.
type Extractor interface {
	ExtractFile(ctx context.Context, in domain.RawInput) (domain.NormalizedUsageRecord, domain.ClassificationResult)
	ExtractBillScan(ctx context.Context, scan domain.BillScan) (domain.NormalizedUsageRecord, error)
	ExtractPortal(ctx context.Context, username, password string) (domain.NormalizedUsageRecord, error)
	CheckReadiness(ctx context.Context) error
}

// Server exposes the extraction API over HTTP.
type Server struct {
	httpServer *http.Server
	extractor  Extractor
	logger     *slog.Logger
	maxUpload  int64
}

// fileResponse pairs the normalized record with the classifier's verdict so
// clients can show the rejection diagnostic next to the fallback figure.
type fileResponse struct {
	Record         domain.NormalizedUsageRecord `json:"record"`
	Classification domain.ClassificationResult  `json:"classification"`
}

type portalRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewServer creates an HTTP server with the extraction and observability routes.
func NewServer(addr string, extractor Extractor, maxUpload int64, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		extractor: extractor,
		logger:    logger,
		maxUpload: maxUpload,
	}

	mux.HandleFunc("POST /v1/usage/file", s.handleFile)
	mux.HandleFunc("POST /v1/usage/bill-scan", s.handleBillScan)
	mux.HandleFunc("POST /v1/usage/portal", s.handlePortal)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleFile accepts a multipart upload under the "file" field and returns
// the normalized record plus the classification verdict. Unusable files are
// a 200 with the regional-default record, not an error: the record always
// exists.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart upload with a \"file\" field is required")
		return
	}
	defer file.Close() //nolint:errcheck // read-only handle

	content, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "could not read upload")
		return
	}

	rec, cls := s.extractor.ExtractFile(r.Context(), domain.RawInput{
		Filename:  header.Filename,
		MediaType: header.Header.Get("Content-Type"),
		Content:   content,
	})

	writeJSON(w, http.StatusOK, fileResponse{Record: rec, Classification: cls})
}

func (s *Server) handleBillScan(w http.ResponseWriter, r *http.Request) {
	var scan domain.BillScan
	if err := json.NewDecoder(r.Body).Decode(&scan); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rec, err := s.extractor.ExtractBillScan(r.Context(), scan)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handlePortal runs a live portal session. Credentials exist only in the
// request; they are never logged and never reach a response.
func (s *Server) handlePortal(w http.ResponseWriter, r *http.Request) {
	var req portalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	rec, err := s.extractor.ExtractPortal(r.Context(), req.Username, req.Password)
	if err != nil {
		var authErr *domain.AuthError
		if errors.As(err, &authErr) {
			writeError(w, http.StatusUnauthorized, "the portal rejected these credentials")
			return
		}
		writeError(w, http.StatusBadGateway, "could not fetch usage from the portal")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.extractor.CheckReadiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
