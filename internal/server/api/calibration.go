package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// CalibrationHandler exposes the guided calibration workflow.
type CalibrationHandler struct {
	coord *calibration.Coordinator
}

// NewCalibrationHandler creates a CalibrationHandler driving coord.
func NewCalibrationHandler(coord *calibration.Coordinator) *CalibrationHandler {
	return &CalibrationHandler{coord: coord}
}

type startCalibrationRequest struct {
	Name string `json:"name"`
}

type recalibrateRequest struct {
	Gesture *gesture.Kind `json:"gesture"`
}

type saveCalibrationResponse struct {
	ProfileID string             `json:"profile_id"`
	Status    calibration.Status `json:"status"`
}

// ServeHTTP routes GET /api/calibration and POST /api/calibration/{step}.
func (h *CalibrationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	step := strings.TrimPrefix(r.URL.Path, "/api/calibration")
	step = strings.Trim(step, "/")

	if step == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, h.coord.Status())
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch step {
	case "start":
		h.start(w, r)
	case "begin":
		h.reply(w, h.coord.Begin())
	case "skip":
		h.reply(w, h.coord.Skip())
	case "undo":
		_, err := h.coord.RemoveLastSample()
		h.reply(w, err)
	case "recalibrate":
		h.recalibrate(w, r)
	case "save":
		h.save(w, r)
	case "cancel":
		h.coord.Cancel()
		h.reply(w, nil)
	default:
		http.NotFound(w, r)
	}
}

func (h *CalibrationHandler) start(w http.ResponseWriter, r *http.Request) {
	var req startCalibrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	h.reply(w, h.coord.Start(strings.TrimSpace(req.Name)))
}

func (h *CalibrationHandler) recalibrate(w http.ResponseWriter, r *http.Request) {
	var req recalibrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Gesture == nil {
		writeError(w, http.StatusBadRequest, "gesture is required")
		return
	}
	h.reply(w, h.coord.Recalibrate(*req.Gesture))
}

func (h *CalibrationHandler) save(w http.ResponseWriter, r *http.Request) {
	id, err := h.coord.Save(r.Context())
	if err != nil {
		writeCalibrationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saveCalibrationResponse{ProfileID: id, Status: h.coord.Status()})
}

// reply writes the workflow status after a step, or the step's error.
func (h *CalibrationHandler) reply(w http.ResponseWriter, err error) {
	if err != nil {
		writeCalibrationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.coord.Status())
}

func writeCalibrationError(w http.ResponseWriter, err error) {
	var (
		invalid *calibration.InvalidThresholdsError
		failed  *calibration.SaveFailedError
	)
	switch {
	case errors.Is(err, calibration.ErrEmptyName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, calibration.ErrInvalidState),
		errors.Is(err, calibration.ErrNotCollecting),
		errors.Is(err, calibration.ErrNoSamples),
		errors.Is(err, calibration.ErrNoProfile):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &invalid):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &failed) && errors.Is(err, store.ErrNameTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &failed):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
