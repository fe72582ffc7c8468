package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"watch-transcoder/internal/database"
	"watch-transcoder/internal/probe"
	"watch-transcoder/internal/transcode"
)

// testProber returns canned media info.
type testProber struct {
	info probe.MediaInfo
}

func (p *testProber) Probe(ctx context.Context, path string) (*probe.MediaInfo, error) {
	info := p.info
	return &info, nil
}

// testEncoder writes a stub output file.
type testEncoder struct{}

func (e *testEncoder) Encode(ctx context.Context, req transcode.EncodeRequest) error {
	return os.WriteFile(req.OutputPath, []byte("encoded payload"), 0o644)
}

type testEnv struct {
	db  *database.Database
	svc *transcode.Service
	h   *Handlers
	r   *mux.Router
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	root := t.TempDir()
	scratch := filepath.Join(root, "scratch")
	cache := filepath.Join(root, "renditions")
	for _, dir := range []string{scratch, cache} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}

	db, err := database.New(context.Background(), filepath.Join(root, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})

	svc := transcode.New(db, &testProber{info: probe.MediaInfo{Height: 1080, Duration: 30}}, &testEncoder{}, transcode.Config{
		Workers:       1,
		EncodeTimeout: 30 * time.Second,
		ScratchDir:    scratch,
		CacheDir:      cache,
	})
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("failed to start service: %v", err)
	}
	t.Cleanup(svc.Stop)

	janitor := transcode.NewJanitor(db, 24*time.Hour, time.Hour)
	h := New(svc, janitor, db)

	r := mux.NewRouter()
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/transcode", h.SubmitTranscode).Methods("POST")
	api.HandleFunc("/transcode/{jobID}", h.GetTranscodeStatus).Methods("GET")
	api.HandleFunc("/media/{mediaID}/qualities", h.GetAvailableQualities).Methods("GET")
	api.HandleFunc("/media/{mediaID}/rendition", h.GetRendition).Methods("GET")
	api.HandleFunc("/media/{mediaID}/stream", h.StreamRendition).Methods("GET")
	api.HandleFunc("/cache/purge", h.PurgeCache).Methods("POST")
	api.HandleFunc("/jobs/prune", h.PruneJobs).Methods("POST")

	return &testEnv{db: db, svc: svc, h: h, r: r}
}

func (e *testEnv) request(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

// submitAndWait submits a transcode and polls the status endpoint until
// the job reaches a terminal state.
func (e *testEnv) submitAndWait(t *testing.T, mediaID, quality string) database.TranscodeJob {
	t.Helper()

	body := `{"mediaId":"` + mediaID + `","inputPath":"/media/in.mkv","quality":"` + quality + `"}`
	w := e.request(t, "POST", "/api/transcode", body)
	if w.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d, want 202 (body: %s)", w.Code, w.Body.String())
	}

	var resp struct {
		JobID string `json:"jobId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode submit response: %v", err)
	}
	if resp.JobID == "" {
		t.Fatal("submit response carries no job id")
	}

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		w := e.request(t, "GET", "/api/transcode/"+resp.JobID, "")
		if w.Code != http.StatusOK {
			t.Fatalf("status endpoint = %d, want 200", w.Code)
		}
		var job database.TranscodeJob
		if err := json.Unmarshal(w.Body.Bytes(), &job); err != nil {
			t.Fatalf("failed to decode job: %v", err)
		}
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal state in time")
	return database.TranscodeJob{}
}

func TestSubmitTranscodeValidation(t *testing.T) {
	env := setupTestEnv(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid JSON", "{not json", http.StatusBadRequest},
		{"missing fields", `{"mediaId":"m1"}`, http.StatusBadRequest},
		{"unknown quality", `{"mediaId":"m1","inputPath":"/media/in.mkv","quality":"8k"}`, http.StatusBadRequest},
		{"valid request", `{"mediaId":"m1","inputPath":"/media/in.mkv","quality":"720p"}`, http.StatusAccepted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.request(t, "POST", "/api/transcode", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d (body: %s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestGetTranscodeStatusNotFound(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, "GET", "/api/transcode/no-such-job", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestTranscodeLifecycleOverHTTP(t *testing.T) {
	env := setupTestEnv(t)

	job := env.submitAndWait(t, "media-1", "1080p")
	if job.Status != database.JobCompleted {
		t.Fatalf("job status = %v, want completed (error: %s)", job.Status, job.ErrorMessage)
	}
	if job.ResolvedQuality != "1080p" {
		t.Errorf("ResolvedQuality = %q, want 1080p", job.ResolvedQuality)
	}
	if job.Progress != 100 {
		t.Errorf("Progress = %v, want 100", job.Progress)
	}
}

func TestGetAvailableQualities(t *testing.T) {
	env := setupTestEnv(t)

	// Unknown media: empty list, not an error
	w := env.request(t, "GET", "/api/media/media-1/qualities", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		MediaID   string   `json:"mediaId"`
		Qualities []string `json:"qualities"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Qualities == nil || len(resp.Qualities) != 0 {
		t.Errorf("qualities = %v, want empty array", resp.Qualities)
	}

	env.submitAndWait(t, "media-1", "720p")

	w = env.request(t, "GET", "/api/media/media-1/qualities", "")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Qualities) != 1 || resp.Qualities[0] != "720p" {
		t.Errorf("qualities = %v, want [720p]", resp.Qualities)
	}
}

func TestGetRendition(t *testing.T) {
	env := setupTestEnv(t)

	// quality parameter is required
	w := env.request(t, "GET", "/api/media/media-1/rendition", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 without quality", w.Code)
	}

	// invalid quality is rejected
	w = env.request(t, "GET", "/api/media/media-1/rendition?quality=8k", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for invalid quality", w.Code)
	}

	// cache miss
	w = env.request(t, "GET", "/api/media/media-1/rendition?quality=720p", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 on cache miss", w.Code)
	}

	env.submitAndWait(t, "media-1", "720p")

	w = env.request(t, "GET", "/api/media/media-1/rendition?quality=720p", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 on cache hit", w.Code)
	}

	var rendition database.CachedRendition
	if err := json.Unmarshal(w.Body.Bytes(), &rendition); err != nil {
		t.Fatalf("failed to decode rendition: %v", err)
	}
	if rendition.Quality != "720p" {
		t.Errorf("Quality = %q, want 720p", rendition.Quality)
	}
	if rendition.FilePath == "" {
		t.Error("FilePath is empty")
	}
}

func TestStreamRendition(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, "GET", "/api/media/media-1/stream?quality=720p", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 before transcode", w.Code)
	}

	env.submitAndWait(t, "media-1", "720p")

	w = env.request(t, "GET", "/api/media/media-1/stream?quality=720p", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "video/mp4" {
		t.Errorf("Content-Type = %q, want video/mp4", ct)
	}
	if !strings.Contains(w.Body.String(), "encoded payload") {
		t.Error("stream body does not contain the rendition payload")
	}
}

func TestPurgeCacheEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	env.submitAndWait(t, "media-1", "720p")

	// Validation failures
	for _, body := range []string{"{bad", `{"maxAge":"-1h"}`, `{"maxAge":"soon"}`} {
		w := env.request(t, "POST", "/api/cache/purge", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("purge with body %q: status = %d, want 400", body, w.Code)
		}
	}

	// A large maxAge evicts nothing
	w := env.request(t, "POST", "/api/cache/purge", `{"maxAge":"24h"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Evicted int `json:"evicted"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Evicted != 0 {
		t.Errorf("evicted = %d, want 0 for fresh rendition", resp.Evicted)
	}
}

func TestPruneJobsEndpoint(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, "POST", "/api/jobs/prune", `{"olderThan":"bogus"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for bad duration", w.Code)
	}

	w = env.request(t, "POST", "/api/jobs/prune", `{"olderThan":"24h"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp struct {
		Pruned int64 `json:"pruned"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Pruned != 0 {
		t.Errorf("pruned = %d, want 0 with no old jobs", resp.Pruned)
	}
}

func TestHealthCheck(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != statusHealthy {
		t.Errorf("status = %q, want %q", resp.Status, statusHealthy)
	}
}

func TestGetVersion(t *testing.T) {
	env := setupTestEnv(t)

	w := env.request(t, "GET", "/version", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["version"] == "" {
		t.Error("version field is empty")
	}
}
