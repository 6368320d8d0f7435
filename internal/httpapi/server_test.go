package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"foleyforge/internal/analysis"
	"foleyforge/internal/config"
	"foleyforge/internal/generation"
	"foleyforge/internal/model"
	"foleyforge/internal/pipeline"
	"foleyforge/internal/upstream/gemini"
	"foleyforge/internal/upstream/mirelo"
)

type stubPipeline struct {
	result pipeline.ProcessResult
	err    error
	input  pipeline.ProcessInput
	calls  int
}

func (s *stubPipeline) Process(_ context.Context, in pipeline.ProcessInput) (pipeline.ProcessResult, error) {
	s.calls++
	s.input = in
	return s.result, s.err
}

type stubUpstream struct{ err error }

func (s stubUpstream) ListModels(context.Context) error { return s.err }

func newTestHandler(t *testing.T, deps Dependencies) http.Handler {
	t.Helper()
	cfg := config.Config{
		MaxUploadBytes:     1024 * 1024,
		CORSAllowedOrigins: []string{"*"},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(cfg, logger, deps)
}

func newVoiceToSFXRequest(t *testing.T, project string, audio []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if project != "" {
		if err := writer.WriteField("project", project); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if audio != nil {
		part, err := writer.CreateFormFile("audio", "sketch.mp3")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write(audio); err != nil {
			t.Fatalf("write audio: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/voice_to_sfx", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, Dependencies{Pipeline: &stubPipeline{}, Upstream: stubUpstream{}})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestReadyzReportsUpstreamFailure(t *testing.T) {
	h := newTestHandler(t, Dependencies{Pipeline: &stubPipeline{}, Upstream: stubUpstream{err: errors.New("down")}})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status: %d", w.Code)
	}
}

func TestVoiceToSFXReturnsEnvelope(t *testing.T) {
	pl := &stubPipeline{result: pipeline.ProcessResult{
		Interpretation: model.Interpretation{SuggestedName: "Hydraulic_Door", Prompt: "Sci-fi hydraulic door"},
		Assets:         []string{"https://x/0.mp3", "https://x/1.mp3", "https://x/2.mp3"},
		Requested:      3,
		Succeeded:      3,
	}}
	h := newTestHandler(t, Dependencies{Pipeline: pl, Upstream: stubUpstream{}})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, newVoiceToSFXRequest(t, "demo-project", []byte("vocal-sketch")))

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body: %s", w.Code, w.Body.String())
	}

	var resp model.VoiceToSFXResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "success" {
		t.Fatalf("unexpected status field: %q", resp.Status)
	}
	if resp.Interpretation.SuggestedName != "Hydraulic_Door" {
		t.Fatalf("unexpected interpretation: %+v", resp.Interpretation)
	}
	if len(resp.Assets) != 3 || resp.Assets[0] != "https://x/0.mp3" {
		t.Fatalf("unexpected assets: %v", resp.Assets)
	}
	if resp.Attempts.Requested != 3 || resp.Attempts.Succeeded != 3 {
		t.Fatalf("unexpected attempts: %+v", resp.Attempts)
	}

	if pl.input.Project != "demo-project" {
		t.Fatalf("project not forwarded: %q", pl.input.Project)
	}
	if string(pl.input.Audio) != "vocal-sketch" {
		t.Fatalf("audio not forwarded: %q", pl.input.Audio)
	}
}

func TestVoiceToSFXDegradedSuccessWithEmptyAssets(t *testing.T) {
	pl := &stubPipeline{result: pipeline.ProcessResult{
		Interpretation: model.Interpretation{SuggestedName: "Laser", Prompt: "laser zap"},
		Assets:         []string{},
		Requested:      3,
	}}
	h := newTestHandler(t, Dependencies{Pipeline: pl, Upstream: stubUpstream{}})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, newVoiceToSFXRequest(t, "demo", []byte("x")))

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"assets":[]`) {
		t.Fatalf("expected empty assets array, body: %s", w.Body.String())
	}
}

func TestVoiceToSFXRequiresProject(t *testing.T) {
	pl := &stubPipeline{}
	h := newTestHandler(t, Dependencies{Pipeline: pl, Upstream: stubUpstream{}})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, newVoiceToSFXRequest(t, "", []byte("x")))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if pl.calls != 0 {
		t.Fatal("pipeline must not run without a project")
	}
}

func TestVoiceToSFXRequiresAudioFile(t *testing.T) {
	pl := &stubPipeline{}
	h := newTestHandler(t, Dependencies{Pipeline: pl, Upstream: stubUpstream{}})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, newVoiceToSFXRequest(t, "demo", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	if pl.calls != 0 {
		t.Fatal("pipeline must not run without an audio file")
	}
}

func TestVoiceToSFXMapsAnalysisFailureTo500(t *testing.T) {
	pl := &stubPipeline{err: &gemini.Error{StatusCode: http.StatusBadRequest, Body: "bad audio"}}
	h := newTestHandler(t, Dependencies{Pipeline: pl, Upstream: stubUpstream{}})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, newVoiceToSFXRequest(t, "demo", []byte("x")))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", w.Code)
	}

	var resp model.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Error.Code != "analysis_failed" {
		t.Fatalf("unexpected error code: %q", resp.Error.Code)
	}
	if resp.Error.Details["upstream_body"] != "bad audio" {
		t.Fatalf("expected upstream body in details: %+v", resp.Error.Details)
	}
}

func TestOpenAPIDocumentIsServed(t *testing.T) {
	h := newTestHandler(t, Dependencies{Pipeline: &stubPipeline{}, Upstream: stubUpstream{}})

	req := httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}
	var doc map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("openapi document is not valid JSON: %v", err)
	}
	if doc["openapi"] == "" {
		t.Fatalf("unexpected document: %v", doc)
	}
}

// End-to-end over real services with fake upstream servers: upload →
// analysis → three seeded generation calls → envelope with three assets.
func TestVoiceToSFXEndToEnd(t *testing.T) {
	analysisUpstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"{\"suggested_name\":\"Hydraulic_Door\",\"prompt\":\"Sci-fi hydraulic door opening\"}"}]}}]}`)
	}))
	defer analysisUpstream.Close()

	var seeds []int
	generationUpstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req mirelo.VideoToSFXRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode generation request: %v", err)
		}
		seeds = append(seeds, req.Seed)
		_, _ = io.WriteString(w, `{"output_paths":["https://x/seed.mp3"]}`)
	}))
	defer generationUpstream.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	geminiClient := gemini.New(analysisUpstream.URL, "k", analysisUpstream.Client())
	mireloClient := mirelo.New(generationUpstream.URL, "k", generationUpstream.Client())
	analysisService := analysis.New(geminiClient, "gemini-flash-latest")
	generationService := generation.New(mireloClient, logger, nil, generation.Options{
		ReferenceVideoURL: "https://assets.example/ref.mp4",
		ModelVersion:      "latest",
		VariationCount:    3,
		SeedStride:        150,
		AttemptTimeout:    time.Minute,
	})
	pipelineService := pipeline.New(analysisService, generationService, logger)

	h := newTestHandler(t, Dependencies{Pipeline: pipelineService, Upstream: geminiClient})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, newVoiceToSFXRequest(t, "demo", []byte("pshhh-krrrt")))

	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d body: %s", w.Code, w.Body.String())
	}
	if len(seeds) != 3 || seeds[0] != 0 || seeds[1] != 150 || seeds[2] != 300 {
		t.Fatalf("unexpected seeds: %v", seeds)
	}

	var resp model.VoiceToSFXResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "success" || len(resp.Assets) != 3 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Interpretation.SuggestedName != "Hydraulic_Door" {
		t.Fatalf("unexpected interpretation: %+v", resp.Interpretation)
	}
}
