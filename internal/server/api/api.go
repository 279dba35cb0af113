// Package api provides the HTTP handlers behind mudra's settings UI.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/mudra/internal/store"
)

// ProfileSwitcher applies profile changes to the running recognizer.
type ProfileSwitcher interface {
	ActivateProfile(id string) (*store.Profile, error)
	ActiveProfile() *store.Profile
	ProfileChanged(p *store.Profile)
	ProfileDeleted(id string)
}

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

const timeFormat = "2006-01-02T15:04:05Z07:00"
