package model

type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error     APIError `json:"error"`
	RequestID string   `json:"request_id,omitempty"`
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

type ReadyResponse struct {
	OK          bool   `json:"ok"`
	ServiceName string `json:"service_name,omitempty"`
}

// Interpretation is the analysis model's reading of the vocal sketch: a
// short asset name plus the text prompt handed to the generation service.
type Interpretation struct {
	SuggestedName string `json:"suggested_name"`
	Prompt        string `json:"prompt"`
}

type AttemptStats struct {
	Requested int `json:"requested"`
	Succeeded int `json:"succeeded"`
}

// VoiceToSFXResponse is the envelope returned by POST /api/voice_to_sfx.
// Assets holds the generated variation URLs in attempt order and may be
// empty when every generation attempt failed; status stays "success" as
// long as the analysis stage succeeded.
type VoiceToSFXResponse struct {
	Status         string         `json:"status"`
	Interpretation Interpretation `json:"interpretation"`
	Assets         []string       `json:"assets"`
	Attempts       AttemptStats   `json:"attempts"`
}
