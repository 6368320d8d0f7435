package mirelo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type ObserverFunc func(endpoint string, status int, duration time.Duration)

type Option func(*Client)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	observer   ObserverFunc
}

type Error struct {
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("mirelo request failed with status %d", e.StatusCode)
}

type VideoToSFXRequest struct {
	VideoURL     string  `json:"video_url"`
	StartOffset  float64 `json:"start_offset"`
	Duration     int     `json:"duration"`
	TextPrompt   string  `json:"text_prompt"`
	ModelVersion string  `json:"model_version"`
	Seed         int     `json:"seed"`
}

func WithObserver(observer ObserverFunc) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

func New(baseURL, apiKey string, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: httpClient,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// VideoToSFX synthesizes one audio variation and returns its asset URL.
// The API reports the asset either as the first element of output_paths or
// as a single audio_url field; when neither is present the returned URL is
// empty with a nil error, which callers treat as a non-productive attempt.
func (c *Client) VideoToSFX(ctx context.Context, reqPayload VideoToSFXRequest) (string, error) {
	started := time.Now()
	statusCode := 0
	defer func() { c.observe("video_to_sfx", statusCode, time.Since(started)) }()

	payload, err := json.Marshal(reqPayload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/video-to-sfx", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	statusCode = resp.StatusCode

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", &Error{StatusCode: resp.StatusCode, Body: truncateBody(string(respBody))}
	}

	return parseAssetURL(respBody)
}

func (c *Client) observe(endpoint string, status int, duration time.Duration) {
	if c.observer != nil {
		c.observer(endpoint, status, duration)
	}
}

func parseAssetURL(data []byte) (string, error) {
	var parsed struct {
		OutputPaths []string `json:"output_paths"`
		AudioURL    string   `json:"audio_url"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("invalid video-to-sfx response: %w", err)
	}
	if len(parsed.OutputPaths) > 0 && strings.TrimSpace(parsed.OutputPaths[0]) != "" {
		return strings.TrimSpace(parsed.OutputPaths[0]), nil
	}
	return strings.TrimSpace(parsed.AudioURL), nil
}

func truncateBody(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 4096 {
		return s
	}
	return s[:4096] + "..."
}
