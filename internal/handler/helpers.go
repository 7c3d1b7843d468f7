package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/harborstay/loyalty/internal/loyalty"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// writeEngineError maps a domain error to an HTTP status, keeping the
// stable error code in the body. Anything that is not a domain error is a
// persistence failure and surfaces as a 500.
func writeEngineError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var de *loyalty.Error
	if !errors.As(err, &de) {
		logger.Error("engine operation failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	status := http.StatusBadRequest
	switch de.Code {
	case "AccountNotFound":
		status = http.StatusNotFound
	case "AccountExists", "InsufficientPoints", "NegativeBalance":
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": de.Error(), "code": de.Code})
}
