package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/thinkfirst/coderunner/internal/apperror"
	"github.com/thinkfirst/coderunner/internal/auth"
	"github.com/thinkfirst/coderunner/internal/executor"
	"github.com/thinkfirst/coderunner/internal/service"
)

// ExecuteHandler accepts code execution requests and serves the caller's
// execution history. All real work happens in the execution service; this
// handler owns only the wire shapes.
type ExecuteHandler struct {
	executions *service.ExecutionService
	logger     *slog.Logger
}

// NewExecuteHandler creates a new ExecuteHandler.
func NewExecuteHandler(executions *service.ExecutionService, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		executions: executions,
		logger:     logger,
	}
}

// ExecuteResponse is the wire shape of one execution result. The pointer
// fields render as JSON null when the value is absent: stderr when the
// program wrote nothing, exitCode when the process never exited on its own.
type ExecuteResponse struct {
	Stdout        string  `json:"stdout"`
	Stderr        *string `json:"stderr"`
	Outcome       string  `json:"outcome"`
	Stage         string  `json:"stage,omitempty"`
	ExitCode      *int    `json:"exitCode"`
	ElapsedMillis int64   `json:"elapsedMillis"`
	Success       bool    `json:"success"`
}

func toExecuteResponse(res *executor.ExecutionResult) ExecuteResponse {
	resp := ExecuteResponse{
		Stdout:        res.Stdout,
		Outcome:       string(res.Outcome),
		Stage:         string(res.Stage),
		ElapsedMillis: res.Duration.Milliseconds(),
		Success:       res.Outcome == executor.OutcomeSuccess,
	}
	if res.Stderr != "" {
		resp.Stderr = &res.Stderr
	}
	if res.ExitCode != executor.NoExitCode {
		code := res.ExitCode
		resp.ExitCode = &code
	}
	return resp
}

// HandleExecute runs one submitted program and returns the classified result.
//
// Compile errors, runtime errors, timeouts, and unsupported languages are
// ordinary 200 responses with success=false — they describe the submitted
// program, not this API. Only engine faults surface as HTTP errors.
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	var req executor.ExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid execution request body", slog.String("error", err.Error()))
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}

	result, err := h.executions.Execute(r.Context(), userID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toExecuteResponse(result))
}
