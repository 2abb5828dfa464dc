package handlers

import (
	"net/http"

	"media-variants/internal/filesystem"
	"media-variants/internal/logging"

	"github.com/goccy/go-json"
)

// writeJSON encodes v as JSON and writes it to the response writer.
// Encoding or write errors are only logged.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// statusFor maps an error's kind to an HTTP status.
func statusFor(err error) int {
	switch filesystem.KindOf(err) {
	case filesystem.KindInvalid:
		return http.StatusBadRequest
	case filesystem.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, rel string, err error) {
	status := statusFor(err)
	switch status {
	case http.StatusBadRequest:
		logging.Debug("Rejected request for %q: %v", rel, err)
		http.Error(w, "Invalid request", status)
	case http.StatusNotFound:
		logging.Debug("Not found: %q: %v", rel, err)
		http.Error(w, "File not found", status)
	default:
		logging.Error("Request for %q failed: %v", rel, err)
		http.Error(w, "Failed to produce derivative", status)
	}
}
