package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/docverify/internal/async"
	"github.com/joseph-ayodele/docverify/internal/common"
	"github.com/joseph-ayodele/docverify/internal/entity"
	"github.com/joseph-ayodele/docverify/internal/export"
	"github.com/joseph-ayodele/docverify/internal/ocr"
	"github.com/joseph-ayodele/docverify/internal/pipeline"
)

const maxBodyBytes = 1 << 20

// Submitter runs one query to completion.
type Submitter interface {
	Submit(ctx context.Context, input string) (entity.Session, error)
}

// QueryRequest is the body of POST /v1/query.
type QueryRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
	Format  string `json:"format" validate:"omitempty,oneof=json html xlsx"`
}

// QueryResponse is the JSON answer to a completed run.
type QueryResponse struct {
	SessionID       string                      `json:"session_id"`
	DocumentPath    string                      `json:"document_path"`
	Query           string                      `json:"query"`
	VerifiedResults []entity.VerificationRecord `json:"verified_results"`
	Answer          string                      `json:"answer"`
}

// ErrorResponse is written for every non-2xx reply.
type ErrorResponse struct {
	Error   string                   `json:"error"`
	Stage   string                   `json:"stage,omitempty"`
	Details common.ValidationErrors `json:"details,omitempty"`
}

// QueryServer exposes the pipeline over HTTP.
type QueryServer struct {
	runs     Submitter
	exporter *export.Service
	timeout  time.Duration
	logger   *slog.Logger
}

func NewQueryServer(runs Submitter, exporter *export.Service, timeout time.Duration, logger *slog.Logger) *QueryServer {
	if logger == nil {
		logger = slog.Default()
	}
	if exporter == nil {
		exporter = export.NewService(logger)
	}
	return &QueryServer{runs: runs, exporter: exporter, timeout: timeout, logger: logger}
}

// Routes returns the chi router for the daemon.
func (s *QueryServer) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(withRequestID)

	r.Get("/health", s.handleHealth)
	r.Post("/v1/query", s.handleQuery)
	return r
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			r = r.WithContext(common.WithRequestID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *QueryServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "docverify"})
}

func (s *QueryServer) handleQuery(w http.ResponseWriter, r *http.Request) {
	logger := common.LoggerFromContext(r.Context(), s.logger)

	var req QueryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "request body must be a JSON object"})
		return
	}
	if f := r.URL.Query().Get("format"); f != "" && req.Format == "" {
		req.Format = f
	}
	if err := common.ValidateStruct(req); err != nil {
		resp := ErrorResponse{Error: "invalid request"}
		var verrs common.ValidationErrors
		if errors.As(err, &verrs) {
			resp.Details = verrs
		}
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	sess, err := s.runs.Submit(ctx, req.Message)
	if err != nil {
		status, resp := errorStatus(err)
		logger.Warn("http.query.failed", "status", status, "stage", resp.Stage, "error", err)
		writeJSON(w, status, resp)
		return
	}

	switch req.Format {
	case "xlsx":
		data, err := s.exporter.VerifiedResultsXLSX(sess)
		if err != nil {
			logger.Error("http.query.export_failed", "format", req.Format, "error", err)
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "export failed"})
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="verified-results.xlsx"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	case "html":
		data, err := s.exporter.VerifiedResultsHTML(sess)
		if err != nil {
			logger.Error("http.query.export_failed", "format", req.Format, "error", err)
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "export failed"})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	default:
		writeJSON(w, http.StatusOK, toResponse(sess))
	}
}

func toResponse(sess entity.Session) QueryResponse {
	resp := QueryResponse{
		SessionID:       sess.ID.String(),
		DocumentPath:    sess.DocumentPath,
		Query:           sess.Query,
		VerifiedResults: sess.VerifiedResults,
	}
	if resp.VerifiedResults == nil {
		resp.VerifiedResults = []entity.VerificationRecord{}
	}
	if msg, ok := sess.LastAssistantMessage(); ok {
		resp.Answer = msg.Content
	}
	return resp
}

func errorStatus(err error) (int, ErrorResponse) {
	resp := ErrorResponse{Error: err.Error()}
	if stage, ok := common.FailedStage(err); ok {
		resp.Stage = string(stage)
	}
	switch {
	case errors.Is(err, async.ErrQueueClosed):
		return http.StatusServiceUnavailable, resp
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, resp
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, resp
	case errors.Is(err, pipeline.ErrNoInput),
		errors.Is(err, pipeline.ErrMissingDocumentPath),
		errors.Is(err, pipeline.ErrMissingQuery),
		errors.Is(err, ocr.ErrOutsideRoot),
		errors.Is(err, ocr.ErrInvalidPath),
		errors.Is(err, ocr.ErrUnsupported):
		return http.StatusBadRequest, resp
	case resp.Stage != "":
		return http.StatusUnprocessableEntity, resp
	default:
		return http.StatusInternalServerError, resp
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
