package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"truckbrick/api/internal/brick"
	"truckbrick/api/internal/llm"
	"truckbrick/api/internal/logger"
	"truckbrick/api/internal/pipeline"
)

// DefaultDeadline covers description plus instruction generation at their default
// timeouts. X-Request-Timeout overrides it.
const DefaultDeadline = 180 * time.Second

type Handle struct {
	pipe *pipeline.Pipeline
	engs *llm.Engines
	log  logger.Logger
}

func New(pipe *pipeline.Pipeline, engs *llm.Engines, log logger.Logger) *Handle {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Handle{
		pipe: pipe,
		engs: engs,
		log:  log,
	}
}

// Register mounts the API routes.
func (h *Handle) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/build", h.Build)
	mux.HandleFunc("/v1/scales", h.Scales)
	mux.HandleFunc("/v1/styles", h.Styles)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Stage   string `json:"stage,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	body := errorBody{Error: brick.UserMessage(err)}
	var se *brick.StandardError
	if errors.As(err, &se) {
		body.Code = string(se.Code)
		body.Stage = string(se.Stage)
		body.Details = se.Details
	}
	writeJSON(w, statusFor(err), body)
}

// statusFor maps a pipeline error to an HTTP status: caller mistakes are 400,
// upstream failures 502, and an exceeded deadline 504.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	}
	switch brick.CodeOf(err) {
	case brick.ErrCodeConfiguration, brick.ErrCodeInvalidImage:
		return http.StatusBadRequest
	case brick.ErrCodeDescriptionService, brick.ErrCodeInstructionService, brick.ErrCodeRenderService:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func requestDeadline(r *http.Request) time.Duration {
	deadline := DefaultDeadline
	if ts := r.Header.Get("X-Request-Timeout"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	} else if ts := r.URL.Query().Get("timeoutSec"); ts != "" {
		if v, _ := strconv.Atoi(ts); v > 0 {
			deadline = time.Duration(v) * time.Second
		}
	}
	return deadline
}
