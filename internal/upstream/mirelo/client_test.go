package mirelo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestVideoToSFXPrefersOutputPaths(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/video-to-sfx" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Fatalf("unexpected api key header: %q", got)
		}

		var body VideoToSFXRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.VideoURL != "https://assets.example/ref.mp4" {
			t.Fatalf("unexpected video url: %q", body.VideoURL)
		}
		if body.Duration != 10 || body.StartOffset != 0 {
			t.Fatalf("unexpected clip window: %+v", body)
		}
		if body.Seed != 150 {
			t.Fatalf("unexpected seed: %d", body.Seed)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"output_paths":["https://x/a.mp3"],"audio_url":"https://x/ignored.mp3"}`)
	}))
	defer ts.Close()

	c := New(ts.URL, "test-key", ts.Client())
	url, err := c.VideoToSFX(context.Background(), VideoToSFXRequest{
		VideoURL:     "https://assets.example/ref.mp4",
		StartOffset:  0,
		Duration:     10,
		TextPrompt:   "laser gun",
		ModelVersion: "latest",
		Seed:         150,
	})
	if err != nil {
		t.Fatalf("VideoToSFX() error = %v", err)
	}
	if url != "https://x/a.mp3" {
		t.Fatalf("unexpected url: %q", url)
	}
}

func TestVideoToSFXFallsBackToAudioURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"audio_url":"https://x/b.mp3"}`)
	}))
	defer ts.Close()

	c := New(ts.URL, "test-key", ts.Client())
	url, err := c.VideoToSFX(context.Background(), VideoToSFXRequest{Seed: 0})
	if err != nil {
		t.Fatalf("VideoToSFX() error = %v", err)
	}
	if url != "https://x/b.mp3" {
		t.Fatalf("unexpected url: %q", url)
	}
}

func TestVideoToSFXReturnsEmptyURLWithoutError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"queued"}`)
	}))
	defer ts.Close()

	c := New(ts.URL, "test-key", ts.Client())
	url, err := c.VideoToSFX(context.Background(), VideoToSFXRequest{})
	if err != nil {
		t.Fatalf("VideoToSFX() error = %v", err)
	}
	if url != "" {
		t.Fatalf("expected empty url, got %q", url)
	}
}

func TestVideoToSFXReturnsUpstreamError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer ts.Close()

	c := New(ts.URL, "test-key", ts.Client())
	_, err := c.VideoToSFX(context.Background(), VideoToSFXRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	upErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if upErr.StatusCode != http.StatusNotFound {
		t.Fatalf("unexpected status code: %d", upErr.StatusCode)
	}
}
