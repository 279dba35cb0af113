package api

import (
	"encoding/json"
	"net/http"
)

// Recognizer is the on/off switch of gesture recognition.
type Recognizer interface {
	IsEnabled() bool
	SetEnabled(enabled bool)
}

// RecognitionHandler serves GET and POST /api/recognition.
type RecognitionHandler struct {
	rec Recognizer
}

// NewRecognitionHandler creates a RecognitionHandler for rec.
func NewRecognitionHandler(rec Recognizer) *RecognitionHandler {
	return &RecognitionHandler{rec: rec}
}

type recognitionState struct {
	Enabled *bool `json:"enabled"`
}

func (h *RecognitionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost:
		var req recognitionState
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		h.rec.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	enabled := h.rec.IsEnabled()
	writeJSON(w, http.StatusOK, recognitionState{Enabled: &enabled})
}
