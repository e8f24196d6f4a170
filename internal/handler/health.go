package handler

import (
	"net/http"

	"github.com/thinkfirst/coderunner/internal/service"
)

// EngineStatus is the view of the execution engine the status endpoints
// need. *host.Executor satisfies it.
type EngineStatus interface {
	Languages() []string
	Aliases() map[string]string
	InFlight() int
}

// HealthHandler serves the unauthenticated status endpoints.
type HealthHandler struct {
	engine EngineStatus
	stats  *service.Stats
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(engine EngineStatus, stats *service.Stats) *HealthHandler {
	return &HealthHandler{
		engine: engine,
		stats:  stats,
	}
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status     string                `json:"status"`
	Languages  []string              `json:"languages"`
	InFlight   int                   `json:"inFlight"`
	Executions service.StatsSnapshot `json:"executions"`
}

// LanguagesResponse lists what the engine will accept.
type LanguagesResponse struct {
	Languages []string          `json:"languages"`
	Aliases   map[string]string `json:"aliases"`
}

// HandleRoot identifies the service.
//
// HTTP: GET /
func (h *HealthHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "coderunner",
		"status":  "ok",
	})
}

// HandleHealth reports engine status: registered languages, executions
// currently holding a workspace, and per-outcome counters since start.
//
// HTTP: GET /health
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		Languages:  h.engine.Languages(),
		InFlight:   h.engine.InFlight(),
		Executions: h.stats.Snapshot(),
	})
}

// HandleLanguages lists canonical language identifiers and the aliases that
// fold into them.
//
// HTTP: GET /api/languages
func (h *HealthHandler) HandleLanguages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, LanguagesResponse{
		Languages: h.engine.Languages(),
		Aliases:   h.engine.Aliases(),
	})
}
