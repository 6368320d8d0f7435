package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
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
	return fmt.Sprintf("gemini request failed with status %d", e.StatusCode)
}

// GenerateContentRequest is a single-turn multimodal request: one inline
// binary part plus one text part, with the response forced to JSON when
// ResponseMIMEType is set.
type GenerateContentRequest struct {
	Model            string
	Data             []byte
	MIMEType         string
	Prompt           string
	ResponseMIMEType string
}

type wireRequest struct {
	Contents         []wireContent  `json:"contents"`
	GenerationConfig map[string]any `json:"generationConfig,omitempty"`
}

type wireContent struct {
	Parts []wirePart `json:"parts"`
}

type wirePart struct {
	InlineData *wireBlob `json:"inline_data,omitempty"`
	Text       string    `json:"text,omitempty"`
}

type wireBlob struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
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

// GenerateContent posts the multimodal request and returns the text of the
// first candidate part, which in structured-output mode is a JSON document.
func (c *Client) GenerateContent(ctx context.Context, reqPayload GenerateContentRequest) (string, error) {
	started := time.Now()
	statusCode := 0
	defer func() { c.observe("generate_content", statusCode, time.Since(started)) }()

	body := wireRequest{
		Contents: []wireContent{{
			Parts: []wirePart{
				{InlineData: &wireBlob{
					MIMEType: reqPayload.MIMEType,
					Data:     base64.StdEncoding.EncodeToString(reqPayload.Data),
				}},
				{Text: reqPayload.Prompt},
			},
		}},
	}
	if reqPayload.ResponseMIMEType != "" {
		body.GenerationConfig = map[string]any{"response_mime_type": reqPayload.ResponseMIMEType}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, reqPayload.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
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

	if resp.StatusCode != http.StatusOK {
		return "", &Error{StatusCode: resp.StatusCode, Body: truncateBody(string(respBody))}
	}

	return parseCandidateText(respBody)
}

// ListModels is a cheap authenticated call used for readiness probing.
func (c *Client) ListModels(ctx context.Context) error {
	started := time.Now()
	statusCode := 0
	defer func() { c.observe("list_models", statusCode, time.Since(started)) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1beta/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	statusCode = resp.StatusCode

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &Error{StatusCode: resp.StatusCode, Body: truncateBody(string(body))}
	}
	return nil
}

func (c *Client) observe(endpoint string, status int, duration time.Duration) {
	if c.observer != nil {
		c.observer(endpoint, status, duration)
	}
}

func parseCandidateText(data []byte) (string, error) {
	var parsed struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("invalid generate content response: %w", err)
	}
	if len(parsed.Candidates) == 0 {
		return "", fmt.Errorf("missing candidates")
	}
	var b strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("missing candidates[0].content.parts text")
	}
	return text, nil
}

func truncateBody(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 4096 {
		return s
	}
	return s[:4096] + "..."
}
