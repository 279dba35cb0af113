package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/calibration"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// fakeRuntime stands in for the running app: it tracks the active profile
// and saves calibrations straight to the store.
type fakeRuntime struct {
	mu      sync.Mutex
	store   *store.Store
	enabled bool
	active  *store.Profile
	coord   *calibration.Coordinator
}

func newFakeRuntime(t *testing.T, s *store.Store) *fakeRuntime {
	t.Helper()
	def, err := s.Profiles().EnsureDefault()
	if err != nil {
		t.Fatalf("EnsureDefault: %v", err)
	}
	rt := &fakeRuntime{store: s, enabled: true, active: def}
	cfg := calibration.Config{RequiredSamples: calibration.MinSamplesPerGesture, MinConfidence: 0.5}
	rt.coord = calibration.NewCoordinator(cfg, calibration.NewEngine(gesture.DefaultThresholds()), rt, nil)
	t.Cleanup(rt.coord.Cancel)
	return rt
}

func (r *fakeRuntime) ActivateProfile(id string) (*store.Profile, error) {
	if err := r.store.Profiles().SetActive(id); err != nil {
		return nil, err
	}
	p, err := r.store.Profiles().GetByID(id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.active = p
	r.mu.Unlock()
	return p, nil
}

func (r *fakeRuntime) ActiveProfile() *store.Profile {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *fakeRuntime) ProfileChanged(p *store.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil && r.active.ID == p.ID {
		r.active = p
	}
}

func (r *fakeRuntime) ProfileDeleted(id string) {
	p, err := r.store.Profiles().Active()
	if err != nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active != nil && r.active.ID == id {
		r.active = p
	}
}

func (r *fakeRuntime) IsEnabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

func (r *fakeRuntime) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = enabled
}

func (r *fakeRuntime) Calibration() *calibration.Coordinator { return r.coord }
func (r *fakeRuntime) Dropped() uint64                        { return 7 }
func (r *fakeRuntime) Running() bool                          { return true }

func (r *fakeRuntime) SaveCalibratedProfile(ctx context.Context, name string, t gesture.Thresholds, samples []calibration.Sample) (string, error) {
	p := &store.Profile{Name: name, Thresholds: t}
	if err := r.store.SaveCalibrated(p, nil); err != nil {
		return "", err
	}
	r.mu.Lock()
	r.active = p
	r.mu.Unlock()
	return p.ID, nil
}

type testEnv struct {
	store *store.Store
	rt    *fakeRuntime
	hub   *EventHub
	ts    *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	rt := newFakeRuntime(t, s)
	hub := NewEventHub()
	rt.coord.AddObserver(hub)

	ts := httptest.NewServer(New(Config{Store: s, Runtime: rt, Events: hub}))
	t.Cleanup(ts.Close)
	return &testEnv{store: s, rt: rt, hub: hub, ts: ts}
}

// call sends a JSON request and decodes the reply into out when it is non-nil.
func (e *testEnv) call(t *testing.T, method, path, body string, out any) int {
	t.Helper()
	var rdr *bytes.Buffer
	if body != "" {
		rdr = bytes.NewBufferString(body)
	} else {
		rdr = &bytes.Buffer{}
	}
	req, err := http.NewRequest(method, e.ts.URL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type profileBody struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	IsDefault  bool               `json:"is_default"`
	Active     bool               `json:"active"`
	Thresholds gesture.Thresholds `json:"thresholds"`
}

func TestAPI_ProfileWorkflow(t *testing.T) {
	env := newTestEnv(t)

	// 1. Create with default thresholds
	var created profileBody
	if code := env.call(t, http.MethodPost, "/api/profiles", `{"name":"desk"}`, &created); code != http.StatusCreated {
		t.Fatalf("POST /api/profiles status = %d, want %d", code, http.StatusCreated)
	}
	if created.Thresholds != gesture.DefaultThresholds() {
		t.Errorf("new profile thresholds = %+v, want defaults", created.Thresholds)
	}
	if created.Active {
		t.Error("new profile should not be active")
	}

	// 2. Duplicate names conflict
	if code := env.call(t, http.MethodPost, "/api/profiles", `{"name":"desk"}`, nil); code != http.StatusConflict {
		t.Errorf("duplicate POST status = %d, want %d", code, http.StatusConflict)
	}

	// 3. Out-of-range thresholds are rejected
	th := gesture.DefaultThresholds()
	th.PinchDistance = 0.9
	bad, _ := json.Marshal(map[string]any{"thresholds": th})
	if code := env.call(t, http.MethodPut, "/api/profiles/"+created.ID, string(bad), nil); code != http.StatusBadRequest {
		t.Errorf("PUT invalid thresholds status = %d, want %d", code, http.StatusBadRequest)
	}

	// 4. Activate
	var activated profileBody
	if code := env.call(t, http.MethodPost, "/api/profiles/"+created.ID+"/activate", "", &activated); code != http.StatusOK {
		t.Fatalf("activate status = %d", code)
	}
	if !activated.Active || env.rt.ActiveProfile().ID != created.ID {
		t.Errorf("profile %s not active after activate", created.ID)
	}

	var active profileBody
	env.call(t, http.MethodGet, "/api/profiles/active", "", &active)
	if active.ID != created.ID {
		t.Errorf("GET active = %s, want %s", active.ID, created.ID)
	}

	// 5. List puts the default first
	var listed struct {
		Profiles []profileBody `json:"profiles"`
	}
	env.call(t, http.MethodGet, "/api/profiles", "", &listed)
	if len(listed.Profiles) != 2 || !listed.Profiles[0].IsDefault {
		t.Fatalf("list = %+v", listed.Profiles)
	}

	// 6. The default cannot be deleted
	if code := env.call(t, http.MethodDelete, "/api/profiles/"+listed.Profiles[0].ID, "", nil); code != http.StatusConflict {
		t.Errorf("DELETE default status = %d, want %d", code, http.StatusConflict)
	}

	// 7. Deleting the active profile falls back to the default
	if code := env.call(t, http.MethodDelete, "/api/profiles/"+created.ID, "", nil); code != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want %d", code, http.StatusNoContent)
	}
	if env.rt.ActiveProfile().ID != listed.Profiles[0].ID {
		t.Error("runtime should fall back to the default profile")
	}
	if code := env.call(t, http.MethodGet, "/api/profiles/"+created.ID, "", nil); code != http.StatusNotFound {
		t.Errorf("GET after delete status = %d, want %d", code, http.StatusNotFound)
	}
}

func TestAPI_BindingWorkflow(t *testing.T) {
	env := newTestEnv(t)

	var created struct {
		ID      string `json:"id"`
		Gesture string `json:"gesture"`
		Enabled bool   `json:"enabled"`
	}
	body := `{"gesture":"swipe_left","plugin_name":"system-control","action_name":"previous-track"}`
	if code := env.call(t, http.MethodPost, "/api/bindings", body, &created); code != http.StatusCreated {
		t.Fatalf("POST /api/bindings status = %d", code)
	}
	if created.Gesture != "swipe_left" || !created.Enabled {
		t.Errorf("created = %+v", created)
	}

	if code := env.call(t, http.MethodPost, "/api/bindings", body, nil); code != http.StatusConflict {
		t.Errorf("second binding status = %d, want %d", code, http.StatusConflict)
	}
	if code := env.call(t, http.MethodPost, "/api/bindings", `{"gesture":"wave","plugin_name":"p","action_name":"a"}`, nil); code != http.StatusBadRequest {
		t.Errorf("unknown gesture status = %d, want %d", code, http.StatusBadRequest)
	}

	if code := env.call(t, http.MethodPut, "/api/bindings/"+created.ID, `{"enabled":false}`, &created); code != http.StatusOK {
		t.Fatalf("PUT status = %d", code)
	}
	if created.Enabled {
		t.Error("binding should be disabled")
	}

	if code := env.call(t, http.MethodDelete, "/api/bindings/"+created.ID, "", nil); code != http.StatusNoContent {
		t.Errorf("DELETE status = %d", code)
	}
}

func TestAPI_CalibrationWorkflow(t *testing.T) {
	env := newTestEnv(t)

	var st calibration.Status
	if code := env.call(t, http.MethodPost, "/api/calibration/begin", "", nil); code != http.StatusConflict {
		t.Errorf("begin before start status = %d, want %d", code, http.StatusConflict)
	}
	if code := env.call(t, http.MethodPost, "/api/calibration/start", `{"name":"  "}`, nil); code != http.StatusBadRequest {
		t.Errorf("start without name status = %d, want %d", code, http.StatusBadRequest)
	}

	env.call(t, http.MethodPost, "/api/calibration/start", `{"name":"couch"}`, &st)
	if st.State != calibration.StateWelcome {
		t.Fatalf("state after start = %s", st.State)
	}
	env.call(t, http.MethodPost, "/api/calibration/begin", "", &st)
	if st.State != calibration.StateCalibrating {
		t.Fatalf("state after begin = %s", st.State)
	}

	if code := env.call(t, http.MethodPost, "/api/calibration/undo", "", nil); code != http.StatusConflict {
		t.Errorf("undo on empty session status = %d, want %d", code, http.StatusConflict)
	}

	// Collect open palm, then skip the rest.
	for i := 0; i < calibration.MinSamplesPerGesture; i++ {
		if _, err := env.rt.coord.AddSample(detector.OpenPalmLandmarks()); err != nil {
			t.Fatalf("AddSample: %v", err)
		}
	}
	deadline := time.Now().Add(2 * time.Second)
	for env.rt.coord.State() != calibration.StateReview && time.Now().Before(deadline) {
		if env.rt.coord.State() == calibration.StateCalibrating || env.rt.coord.State() == calibration.StateTransition {
			if st := env.rt.coord.Status(); st.Gesture != nil && *st.Gesture != gesture.OpenPalm {
				env.call(t, http.MethodPost, "/api/calibration/skip", "", nil)
				continue
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	if env.rt.coord.State() != calibration.StateReview {
		t.Fatalf("state = %s, want review", env.rt.coord.State())
	}

	var saved struct {
		ProfileID string             `json:"profile_id"`
		Status    calibration.Status `json:"status"`
	}
	if code := env.call(t, http.MethodPost, "/api/calibration/save", "", &saved); code != http.StatusOK {
		t.Fatalf("save status = %d", code)
	}
	if saved.Status.State != calibration.StateCompleted || saved.ProfileID == "" {
		t.Errorf("save reply = %+v", saved)
	}
	if env.rt.ActiveProfile().ID != saved.ProfileID {
		t.Error("saved profile should be active")
	}

	env.call(t, http.MethodGet, "/api/calibration", "", &st)
	if st.State != calibration.StateCompleted {
		t.Errorf("GET state = %s", st.State)
	}
	env.call(t, http.MethodPost, "/api/calibration/cancel", "", &st)
	if st.State != calibration.StateNotStarted {
		t.Errorf("state after cancel = %s", st.State)
	}
}

func TestAPI_Recognition(t *testing.T) {
	env := newTestEnv(t)

	var state struct {
		Enabled bool `json:"enabled"`
	}
	env.call(t, http.MethodGet, "/api/recognition", "", &state)
	if !state.Enabled {
		t.Error("recognition should start enabled")
	}

	env.call(t, http.MethodPost, "/api/recognition", `{"enabled":false}`, &state)
	if state.Enabled || env.rt.IsEnabled() {
		t.Error("recognition should be disabled")
	}

	if code := env.call(t, http.MethodPost, "/api/recognition", `{}`, nil); code != http.StatusBadRequest {
		t.Errorf("missing enabled status = %d, want %d", code, http.StatusBadRequest)
	}
}

func TestAPI_EventStream(t *testing.T) {
	env := newTestEnv(t)

	url := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/api/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(time.Second)
	for env.hub.Clients() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	env.hub.GestureDetected(gesture.Event{Kind: gesture.ThumbsUp, Time: time.Now()})
	env.call(t, http.MethodPost, "/api/calibration/start", `{"name":"stream"}`, nil)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var types []string
	for len(types) < 2 {
		var ev struct {
			Type    string `json:"type"`
			Gesture string `json:"gesture"`
			Status  *struct {
				State string `json:"state"`
			} `json:"status"`
		}
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read event: %v", err)
		}
		types = append(types, ev.Type)
		switch ev.Type {
		case EventGesture:
			if ev.Gesture != "thumbs_up" {
				t.Errorf("gesture = %q", ev.Gesture)
			}
		case EventCalibrationState:
			if ev.Status == nil || ev.Status.State != "welcome" {
				t.Errorf("status = %+v", ev.Status)
			}
		}
	}
	if types[0] != EventGesture || types[1] != EventCalibrationState {
		t.Errorf("event types = %v", types)
	}
}

func TestAPI_HealthCheck(t *testing.T) {
	env := newTestEnv(t)

	var health struct {
		Status        string `json:"status"`
		Uptime        string `json:"uptime"`
		Running       bool   `json:"running"`
		DroppedFrames int    `json:"dropped_frames"`
		Profile       string `json:"profile"`
	}
	if code := env.call(t, http.MethodGet, "/api/health", "", &health); code != http.StatusOK {
		t.Fatalf("status = %d, want %d", code, http.StatusOK)
	}

	if health.Status != "ok" {
		t.Errorf("status = %s, want ok", health.Status)
	}
	if !health.Running || health.DroppedFrames != 7 || health.Profile != store.DefaultProfileName {
		t.Errorf("health = %+v", health)
	}
}
