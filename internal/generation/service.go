package generation

import (
	"context"
	"log/slog"
	"time"

	"foleyforge/internal/upstream/mirelo"
)

// Clip parameters sent with every generation request. The reference video
// acts purely as a generation anchor; the user's upload never reaches the
// generation service.
const (
	clipStartOffset = 0.0
	clipDuration    = 10
)

type Client interface {
	VideoToSFX(ctx context.Context, req mirelo.VideoToSFXRequest) (string, error)
}

type AttemptObserver interface {
	ObserveGenerationAttempt(outcome string)
}

type Options struct {
	ReferenceVideoURL string
	ModelVersion      string
	VariationCount    int
	SeedStride        int
	AttemptTimeout    time.Duration
}

type Result struct {
	Assets    []string
	Requested int
	Succeeded int
}

type Service struct {
	client  Client
	logger  *slog.Logger
	metrics AttemptObserver
	opts    Options
}

func New(client Client, logger *slog.Logger, metrics AttemptObserver, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:  client,
		logger:  logger,
		metrics: metrics,
		opts:    opts,
	}
}

// Generate runs the variation attempts strictly in sequence, one fully
// awaited before the next. Seed for attempt i is i * SeedStride. A failed
// attempt is logged and skipped; it never aborts the remaining attempts and
// never surfaces as an error, so Generate always returns a nil error and
// between 0 and VariationCount asset URLs in attempt order.
func (s *Service) Generate(ctx context.Context, prompt string) Result {
	result := Result{
		Assets:    make([]string, 0, s.opts.VariationCount),
		Requested: s.opts.VariationCount,
	}

	for i := 0; i < s.opts.VariationCount; i++ {
		seed := i * s.opts.SeedStride
		url, err := s.attempt(ctx, prompt, seed)
		switch {
		case err != nil:
			s.observe("failed")
			s.logger.Warn("generation attempt failed", "attempt", i, "seed", seed, "error", err)
		case url == "":
			s.observe("no_url")
			s.logger.Warn("generation attempt returned no asset url", "attempt", i, "seed", seed)
		default:
			s.observe("succeeded")
			s.logger.Info("generated variation", "attempt", i, "seed", seed, "url", url)
			result.Assets = append(result.Assets, url)
			result.Succeeded++
		}
	}

	return result
}

func (s *Service) attempt(ctx context.Context, prompt string, seed int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.AttemptTimeout)
	defer cancel()

	return s.client.VideoToSFX(ctx, mirelo.VideoToSFXRequest{
		VideoURL:     s.opts.ReferenceVideoURL,
		StartOffset:  clipStartOffset,
		Duration:     clipDuration,
		TextPrompt:   prompt,
		ModelVersion: s.opts.ModelVersion,
		Seed:         seed,
	})
}

func (s *Service) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveGenerationAttempt(outcome)
	}
}
