package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"foleyforge/internal/model"
	"foleyforge/internal/upstream/gemini"
)

// ErrInvalidInterpretation marks analysis responses that parsed as JSON but
// do not carry both required fields.
var ErrInvalidInterpretation = errors.New("analysis response missing suggested_name or prompt")

// AudioMIMEType is asserted on every upload regardless of actual content;
// the analysis model tolerates mislabelled containers well enough that no
// local sniffing is done.
const AudioMIMEType = "audio/mp3"

const designerPrompt = `You are an Expert Sound Designer. Listen to this user's vocal imitation.
They are trying to mimic a sound effect with their voice.

Your task:
1. Analyze the pitch, envelope, and texture.
2. Identify what object or event they are trying to simulate (e.g., "Laser gun", "Heavy impact", "Car engine").
3. Write a HIGH-FIDELITY text prompt to generate the *real* version of this sound.

Example Input: User says "Pshhh-krrrt!"
Example Output: "Sci-fi hydraulic door opening, heavy pneumatic release followed by metallic friction, industrial texture."

Return JSON: { "suggested_name": "Hydraulic_Door", "prompt": "..." }`

type Client interface {
	GenerateContent(ctx context.Context, req gemini.GenerateContentRequest) (string, error)
}

type Service struct {
	client       Client
	defaultModel string
}

func New(client Client, defaultModel string) *Service {
	return &Service{
		client:       client,
		defaultModel: strings.TrimSpace(defaultModel),
	}
}

// Interpret sends the vocal sketch to the analysis model and returns the
// structured interpretation. No timeout is applied here: interpretation
// latency is unbounded by design and the request context alone governs
// cancellation.
func (s *Service) Interpret(ctx context.Context, audio []byte) (model.Interpretation, error) {
	text, err := s.client.GenerateContent(ctx, gemini.GenerateContentRequest{
		Model:            s.defaultModel,
		Data:             audio,
		MIMEType:         AudioMIMEType,
		Prompt:           designerPrompt,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return model.Interpretation{}, err
	}

	var interpretation model.Interpretation
	if err := json.Unmarshal([]byte(text), &interpretation); err != nil {
		return model.Interpretation{}, fmt.Errorf("invalid analysis JSON: %w", err)
	}

	interpretation.SuggestedName = strings.TrimSpace(interpretation.SuggestedName)
	interpretation.Prompt = strings.TrimSpace(interpretation.Prompt)
	if interpretation.SuggestedName == "" || interpretation.Prompt == "" {
		return model.Interpretation{}, ErrInvalidInterpretation
	}
	return interpretation, nil
}
