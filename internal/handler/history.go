package handler

import (
	"net/http"
	"strconv"

	"github.com/thinkfirst/coderunner/internal/apperror"
	"github.com/thinkfirst/coderunner/internal/auth"
)

// HandleHistory lists the caller's past executions, newest first.
//
// HTTP: GET /api/executions?limit=20&offset=0
//
// The service clamps limit and offset, so out-of-range or malformed values
// degrade to the defaults instead of erroring.
func (h *ExecuteHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("authentication required"))
		return
	}

	records, err := h.executions.History(r.Context(), userID, queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// queryInt reads an integer query parameter, treating absent or malformed
// values as 0.
func queryInt(r *http.Request, name string) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return n
}
