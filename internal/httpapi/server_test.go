package httpapi_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/BrandonDHaskell/visitrack/internal/httpapi"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/camera"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/inference"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/service"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/store/memory"
	"github.com/BrandonDHaskell/visitrack/internal/visitrack/types"
)

type stubAnalyzer struct {
	err error
}

func (a *stubAnalyzer) Analyze(context.Context, []byte) (inference.Analysis, error) {
	if a.err != nil {
		return inference.Analysis{}, a.err
	}
	return inference.Analysis{AgeRange: "22-25", Gender: "Male", Emotion: "Neutral", Confidence: 0.96}, nil
}

// alwaysKnown recognizes everyone as the first roster profile.
type alwaysKnown struct{}

func (alwaysKnown) Match(context.Context, []byte, types.Attributes) (service.Identity, error) {
	return service.Identity{Name: "Rahul Sharma", Known: true, ProfileID: "v-001"}, nil
}

type stubTrack struct{ stopped bool }

func (t *stubTrack) ID() string   { return "t" }
func (t *stubTrack) Kind() string { return "video" }
func (t *stubTrack) Stop()        { t.stopped = true }
func (t *stubTrack) Live() bool   { return !t.stopped }

type stubStream struct {
	track *stubTrack
	frame []byte
}

func (s *stubStream) Tracks() []camera.Track { return []camera.Track{s.track} }
func (s *stubStream) Snapshot(context.Context) (camera.Frame, error) {
	return camera.Frame{Data: s.frame, CapturedAt: time.Now()}, nil
}

type stubDevice struct {
	err   error
	frame []byte
}

func (d *stubDevice) Open(context.Context, camera.Constraints) (camera.Stream, error) {
	if d.err != nil {
		return nil, d.err
	}
	return &stubStream{track: &stubTrack{}, frame: d.frame}, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type testEnv struct {
	ts       *httptest.Server
	logs     *memory.LogStore
	analyzer *stubAnalyzer
	device   *stubDevice
}

// newTestServer wires the full dependency graph on in-memory stores with
// stub camera and inference collaborators.
func newTestServer(t *testing.T) *testEnv {
	t.Helper()

	logs := memory.NewLogStore()
	profiles := memory.NewProfileStore(service.DemoProfiles())
	if err := service.SeedDemo(context.Background(), logs, memory.NewProfileStore(nil), time.Now().UTC()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	analyzer := &stubAnalyzer{}
	device := &stubDevice{frame: pngBytes(t)}
	logger := log.New(io.Discard, "", 0)

	pipeline := service.NewPipeline(service.PipelineDeps{
		Analyzer: analyzer,
		Matcher:  alwaysKnown{},
		Logs:     logs,
		Profiles: profiles,
		Logger:   logger,
	})
	session := service.NewSession(service.SessionDeps{
		Device:      device,
		Constraints: camera.DefaultConstraints(),
		Pipeline:    pipeline,
		Logger:      logger,
	})

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:   logger,
		Addr:     ":0",
		Logs:     logs,
		Profiles: profiles,
		Pipeline: pipeline,
		Session:  session,
		Presence: service.NewPresenceService(memory.NewPresenceStore()),
		UI: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "ui")
		}),
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{ts: ts, logs: logs, analyzer: analyzer, device: device}
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func do(t *testing.T, method, url, contentType string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// ── Logs ─────────────────────────────────────────────────────────────────────

func TestListLogs_Filter(t *testing.T) {
	env := newTestServer(t)

	cases := []struct {
		query string
		want  int
	}{
		{"", 4},
		{"?type=All", 4},
		{"?type=denied", 1},
		{"?q=SHARMA", 1},
		{"?q=a&type=Check-In", 3},
		{"?q=nobody", 0},
	}
	for _, tc := range cases {
		resp := do(t, http.MethodGet, env.ts.URL+"/v1/logs"+tc.query, "", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", tc.query, resp.StatusCode)
		}
		var entries []types.LogEntry
		if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
			t.Fatalf("%s: decode: %v", tc.query, err)
		}
		if len(entries) != tc.want {
			t.Errorf("%s: expected %d entries, got %d", tc.query, tc.want, len(entries))
		}
	}
}

func TestListLogs_InvalidType(t *testing.T) {
	env := newTestServer(t)
	resp := do(t, http.MethodGet, env.ts.URL+"/v1/logs?type=Maybe", "", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if code := decodeError(t, resp); code != "invalid_entry_type" {
		t.Errorf("expected invalid_entry_type, got %s", code)
	}
}

func TestListLogs_Protobuf(t *testing.T) {
	env := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, env.ts.URL+"/v1/logs", nil)
	req.Header.Set("Accept", "application/x-protobuf")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/x-protobuf" {
		t.Fatalf("expected protobuf content type, got %q", ct)
	}
	data, _ := io.ReadAll(resp.Body)
	var list structpb.ListValue
	if err := proto.Unmarshal(data, &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list.GetValues()) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(list.GetValues()))
	}
	first := list.GetValues()[0].GetStructValue().GetFields()
	if first["name"].GetStringValue() != "Rahul Sharma" {
		t.Errorf("expected newest entry first, got %v", first["name"])
	}
}

func TestExportCSV(t *testing.T) {
	env := newTestServer(t)
	resp := do(t, http.MethodGet, env.ts.URL+"/v1/logs/export.csv?type=Check-In", "", nil)

	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/csv") {
		t.Fatalf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "attachment") {
		t.Error("expected attachment disposition")
	}
	rows, err := csv.NewReader(resp.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 4 {
		t.Errorf("expected header + 3 check-ins, got %d rows", len(rows))
	}
}

func TestStatsAndProfiles(t *testing.T) {
	env := newTestServer(t)

	var st service.DashboardStats
	resp := do(t, http.MethodGet, env.ts.URL+"/v1/stats", "", nil)
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if st.TotalEntries != 4 || st.SecurityAlerts != 1 {
		t.Errorf("unexpected stats %+v", st)
	}

	var profiles []types.VisitorProfile
	resp = do(t, http.MethodGet, env.ts.URL+"/v1/profiles", "", nil)
	if err := json.NewDecoder(resp.Body).Decode(&profiles); err != nil {
		t.Fatalf("decode profiles: %v", err)
	}
	if len(profiles) != 5 {
		t.Errorf("expected 5 profiles, got %d", len(profiles))
	}
}

// ── Analyze ──────────────────────────────────────────────────────────────────

func TestAnalyze_JSONDataURI(t *testing.T) {
	env := newTestServer(t)

	body, _ := json.Marshal(types.AnalyzeRequest{
		Image: "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t)),
	})
	resp := do(t, http.MethodPost, env.ts.URL+"/v1/analyze", "application/json", body)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var entry types.LogEntry
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry.EntryType != types.CheckIn || entry.Name != "Rahul Sharma" || entry.Confidence != 0.96 {
		t.Errorf("unexpected entry %+v", entry)
	}
	if env.logs.Len() != 5 {
		t.Errorf("expected entry appended, log has %d", env.logs.Len())
	}
}

func TestAnalyze_RawImage(t *testing.T) {
	env := newTestServer(t)
	resp := do(t, http.MethodPost, env.ts.URL+"/v1/analyze", "image/png", pngBytes(t))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
}

func TestAnalyze_Protobuf(t *testing.T) {
	env := newTestServer(t)

	data, _ := proto.Marshal(wrapperspb.Bytes(pngBytes(t)))
	req, _ := http.NewRequest(http.MethodPost, env.ts.URL+"/v1/analyze", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/x-protobuf")
	req.Header.Set("Accept", "application/x-protobuf")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	out, _ := io.ReadAll(resp.Body)
	var entry structpb.Struct
	if err := proto.Unmarshal(out, &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry.GetFields()["entryType"].GetStringValue() != "Check-In" {
		t.Errorf("unexpected entry %v", entry.GetFields())
	}
}

func TestAnalyze_Errors(t *testing.T) {
	env := newTestServer(t)

	resp := do(t, http.MethodPost, env.ts.URL+"/v1/analyze", "application/json", []byte(`{"image":"%%%"}`))
	if resp.StatusCode != http.StatusBadRequest || decodeError(t, resp) != "bad_image" {
		t.Errorf("expected 400 bad_image, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodPost, env.ts.URL+"/v1/analyze", "application/json", []byte(`{"img":1}`))
	if resp.StatusCode != http.StatusBadRequest || decodeError(t, resp) != "bad_body" {
		t.Errorf("expected 400 bad_body, got %d", resp.StatusCode)
	}

	env.analyzer.err = &inference.InferenceError{Reason: inference.ReasonMalformed}
	resp = do(t, http.MethodPost, env.ts.URL+"/v1/analyze", "image/png", pngBytes(t))
	if resp.StatusCode != http.StatusBadGateway || decodeError(t, resp) != "inference_failed" {
		t.Errorf("expected 502 inference_failed, got %d", resp.StatusCode)
	}
	if env.logs.Len() != 4 {
		t.Errorf("expected no append on failure, log has %d", env.logs.Len())
	}
}

// ── Scanner ──────────────────────────────────────────────────────────────────

type sessionBody struct {
	State     string `json:"state"`
	Streaming bool   `json:"streaming"`
	Message   string `json:"message"`
	Outcome   *struct {
		Status string          `json:"status"`
		Entry  *types.LogEntry `json:"entry"`
	} `json:"outcome"`
}

func decodeSession(t *testing.T, resp *http.Response) sessionBody {
	t.Helper()
	var s sessionBody
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return s
}

func TestScanner_Flow(t *testing.T) {
	env := newTestServer(t)
	base := env.ts.URL + "/v1/scanner"

	resp := do(t, http.MethodPost, base+"/capture", "", nil)
	if resp.StatusCode != http.StatusConflict || decodeError(t, resp) != "stream_inactive" {
		t.Fatalf("expected 409 stream_inactive before open, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodPost, base+"/session", "", nil)
	if s := decodeSession(t, resp); s.State != "stream_active" || !s.Streaming {
		t.Fatalf("unexpected session after open %+v", s)
	}

	resp = do(t, http.MethodGet, base+"/frame", "", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Errorf("expected png frame, got %d %q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	resp = do(t, http.MethodPost, base+"/capture", "", nil)
	s := decodeSession(t, resp)
	if s.State != "result_ready" || s.Outcome == nil || s.Outcome.Status != "succeeded" || s.Outcome.Entry == nil {
		t.Fatalf("unexpected session after capture %+v", s)
	}

	resp = do(t, http.MethodPost, base+"/reset", "", nil)
	if s := decodeSession(t, resp); s.State != "stream_active" || s.Outcome != nil {
		t.Errorf("unexpected session after reset %+v", s)
	}

	resp = do(t, http.MethodDelete, base+"/session?view_id=tab-1", "", nil)
	if s := decodeSession(t, resp); s.State != "idle" || s.Streaming {
		t.Errorf("unexpected session after close %+v", s)
	}
}

func TestScanner_CameraUnavailable(t *testing.T) {
	env := newTestServer(t)
	env.device.err = &camera.CameraAccessError{Reason: camera.ReasonPermissionDenied}

	resp := do(t, http.MethodPost, env.ts.URL+"/v1/scanner/session", "", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	if code := decodeError(t, resp); code != "camera_unavailable" {
		t.Errorf("expected camera_unavailable, got %s", code)
	}

	resp = do(t, http.MethodGet, env.ts.URL+"/v1/scanner/session", "", nil)
	if s := decodeSession(t, resp); s.State != "error" || s.Message != service.MsgCameraAccess {
		t.Errorf("unexpected session %+v", s)
	}
}

func TestScanner_InferenceFailure(t *testing.T) {
	env := newTestServer(t)
	env.analyzer.err = &inference.InferenceError{Reason: inference.ReasonTransport}

	do(t, http.MethodPost, env.ts.URL+"/v1/scanner/session", "", nil)
	resp := do(t, http.MethodPost, env.ts.URL+"/v1/scanner/capture", "", nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, env.ts.URL+"/v1/scanner/session", "", nil)
	s := decodeSession(t, resp)
	if s.State != "error" || s.Message != service.MsgProcessing || s.Outcome == nil || s.Outcome.Status != "failed" {
		t.Errorf("unexpected session %+v", s)
	}
}

func TestScanner_Heartbeat(t *testing.T) {
	env := newTestServer(t)

	resp := do(t, http.MethodPost, env.ts.URL+"/v1/scanner/heartbeat", "application/json", []byte(`{"view_id":"tab-1"}`))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var hb types.ViewHeartbeatResponse
	if err := json.NewDecoder(resp.Body).Decode(&hb); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !hb.OK || hb.ViewID != "tab-1" {
		t.Errorf("unexpected response %+v", hb)
	}

	resp = do(t, http.MethodPost, env.ts.URL+"/v1/scanner/heartbeat", "application/json", []byte(`{"view_id":""}`))
	if resp.StatusCode != http.StatusBadRequest || decodeError(t, resp) != "invalid_view_id" {
		t.Errorf("expected 400 invalid_view_id, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodPost, env.ts.URL+"/v1/scanner/heartbeat", "application/json", []byte(`{"view_id":"x","extra":1}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown field, got %d", resp.StatusCode)
	}
}

// ── Misc ─────────────────────────────────────────────────────────────────────

func TestHealthAndUIFallback(t *testing.T) {
	env := newTestServer(t)

	resp := do(t, http.MethodGet, env.ts.URL+"/healthz", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from healthz, got %d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, env.ts.URL+"/logs", "", nil)
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ui" {
		t.Errorf("expected UI fallback, got %q", body)
	}
}
