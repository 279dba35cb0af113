package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// ProfileHandler handles HTTP requests for threshold profiles.
type ProfileHandler struct {
	store    *store.Store
	switcher ProfileSwitcher
}

// NewProfileHandler creates a ProfileHandler. switcher may be nil, in which
// case activation is only recorded in the store.
func NewProfileHandler(s *store.Store, switcher ProfileSwitcher) *ProfileHandler {
	return &ProfileHandler{store: s, switcher: switcher}
}

// ServeHTTP routes /api/profiles, /api/profiles/active, /api/profiles/{id},
// /api/profiles/{id}/activate and /api/profiles/{id}/samples.
func (h *ProfileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/profiles")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if path == "active" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.active(w, r)
		return
	}

	id, sub, _ := strings.Cut(path, "/")
	switch sub {
	case "":
	case "activate":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.activate(w, r, id)
		return
	case "samples":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.samples(w, r, id)
		return
	default:
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createProfileRequest struct {
	Name       string              `json:"name"`
	Thresholds *gesture.Thresholds `json:"thresholds"`
}

type updateProfileRequest struct {
	Name       string              `json:"name"`
	Thresholds *gesture.Thresholds `json:"thresholds"`
}

type profileResponse struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	IsDefault  bool               `json:"is_default"`
	Active     bool               `json:"active"`
	Thresholds gesture.Thresholds `json:"thresholds"`
	CreatedAt  string             `json:"created_at"`
	ModifiedAt string             `json:"modified_at"`
}

type listProfilesResponse struct {
	Profiles []profileResponse `json:"profiles"`
}

type sampleResponse struct {
	Gesture   gesture.Kind    `json:"gesture"`
	Seq       int             `json:"seq"`
	Data      json.RawMessage `json:"data"`
	CreatedAt string          `json:"created_at"`
}

type listSamplesResponse struct {
	Samples []sampleResponse `json:"samples"`
}

func toProfileResponse(p *store.Profile, activeID string) profileResponse {
	return profileResponse{
		ID:         p.ID,
		Name:       p.Name,
		IsDefault:  p.IsDefault,
		Active:     p.ID == activeID,
		Thresholds: p.Thresholds,
		CreatedAt:  p.CreatedAt.Format(timeFormat),
		ModifiedAt: p.ModifiedAt.Format(timeFormat),
	}
}

func (h *ProfileHandler) activeID() string {
	if h.switcher != nil {
		if p := h.switcher.ActiveProfile(); p != nil {
			return p.ID
		}
	}
	if p, err := h.store.Profiles().Active(); err == nil {
		return p.ID
	}
	return ""
}

// writeStoreError maps profile store failures to status codes.
func writeStoreError(w http.ResponseWriter, err error, what string) {
	var rangeErr *gesture.RangeError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, store.ErrNameTaken), errors.Is(err, store.ErrDefaultProfile), errors.Is(err, store.ErrGestureBound):
		writeError(w, http.StatusConflict, err.Error())
	case errors.As(err, &rangeErr):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "Failed to access "+strings.ToLower(what))
	}
}

// list handles GET /api/profiles.
func (h *ProfileHandler) list(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.store.Profiles().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list profiles")
		return
	}

	activeID := h.activeID()
	response := listProfilesResponse{Profiles: make([]profileResponse, 0, len(profiles))}
	for _, p := range profiles {
		response.Profiles = append(response.Profiles, toProfileResponse(p, activeID))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/profiles/{id}.
func (h *ProfileHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		writeStoreError(w, err, "Profile")
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p, h.activeID()))
}

// active handles GET /api/profiles/active.
func (h *ProfileHandler) active(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Profiles().Active()
	if err != nil {
		writeStoreError(w, err, "Profile")
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p, p.ID))
}

// create handles POST /api/profiles. Omitted thresholds start from the
// factory defaults.
func (h *ProfileHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	p := &store.Profile{Name: req.Name, Thresholds: gesture.DefaultThresholds()}
	if req.Thresholds != nil {
		p.Thresholds = *req.Thresholds
	}
	if err := h.store.Profiles().Create(p); err != nil {
		writeStoreError(w, err, "Profile")
		return
	}
	writeJSON(w, http.StatusCreated, toProfileResponse(p, h.activeID()))
}

// update handles PUT /api/profiles/{id}.
func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	p, err := h.store.Profiles().GetByID(id)
	if err != nil {
		writeStoreError(w, err, "Profile")
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Thresholds != nil {
		p.Thresholds = *req.Thresholds
	}

	if err := h.store.Profiles().Update(p); err != nil {
		writeStoreError(w, err, "Profile")
		return
	}
	if h.switcher != nil {
		h.switcher.ProfileChanged(p)
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p, h.activeID()))
}

// delete handles DELETE /api/profiles/{id}.
func (h *ProfileHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Profiles().Delete(id); err != nil {
		writeStoreError(w, err, "Profile")
		return
	}
	if h.switcher != nil {
		h.switcher.ProfileDeleted(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// activate handles POST /api/profiles/{id}/activate.
func (h *ProfileHandler) activate(w http.ResponseWriter, r *http.Request, id string) {
	var (
		p   *store.Profile
		err error
	)
	if h.switcher != nil {
		p, err = h.switcher.ActivateProfile(id)
	} else if err = h.store.Profiles().SetActive(id); err == nil {
		p, err = h.store.Profiles().GetByID(id)
	}
	if err != nil {
		writeStoreError(w, err, "Profile")
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p, p.ID))
}

// samples handles GET /api/profiles/{id}/samples.
func (h *ProfileHandler) samples(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.store.Profiles().GetByID(id); err != nil {
		writeStoreError(w, err, "Profile")
		return
	}
	samples, err := h.store.Samples().ListByProfile(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}

	response := listSamplesResponse{Samples: make([]sampleResponse, 0, len(samples))}
	for _, s := range samples {
		response.Samples = append(response.Samples, sampleResponse{
			Gesture:   s.Gesture,
			Seq:       s.Seq,
			Data:      s.Data,
			CreatedAt: s.CreatedAt.Format(timeFormat),
		})
	}
	writeJSON(w, http.StatusOK, response)
}
