package pipeline

import (
	"context"
	"log/slog"
	"time"

	"foleyforge/internal/generation"
	"foleyforge/internal/model"
)

type Analyzer interface {
	Interpret(ctx context.Context, audio []byte) (model.Interpretation, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) generation.Result
}

type Timings struct {
	Analysis   time.Duration
	Generation time.Duration
	Total      time.Duration
}

type ProcessInput struct {
	// Project is an opaque caller-supplied identifier. It is logged for
	// traceability but plays no part in analysis or generation.
	Project string
	Audio   []byte
}

type ProcessResult struct {
	Interpretation model.Interpretation
	Assets         []string
	Requested      int
	Succeeded      int
	Timings        Timings
}

type Service struct {
	analyzer  Analyzer
	generator Generator
	logger    *slog.Logger
}

func New(analyzer Analyzer, generator Generator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		analyzer:  analyzer,
		generator: generator,
		logger:    logger,
	}
}

// Process drives the two-stage sequence: interpret the vocal sketch, then
// generate the variations. An analysis error aborts before any generation
// request is issued; generation failures are absorbed inside the generator
// and only reduce the asset count.
func (s *Service) Process(ctx context.Context, in ProcessInput) (ProcessResult, error) {
	started := time.Now()

	analysisStarted := time.Now()
	interpretation, err := s.analyzer.Interpret(ctx, in.Audio)
	analysisDuration := time.Since(analysisStarted)
	if err != nil {
		return ProcessResult{}, err
	}

	s.logger.Info("sketch interpreted",
		"project", in.Project,
		"suggested_name", interpretation.SuggestedName,
		"prompt", interpretation.Prompt,
	)

	generationStarted := time.Now()
	genResult := s.generator.Generate(ctx, interpretation.Prompt)
	generationDuration := time.Since(generationStarted)

	return ProcessResult{
		Interpretation: interpretation,
		Assets:         genResult.Assets,
		Requested:      genResult.Requested,
		Succeeded:      genResult.Succeeded,
		Timings: Timings{
			Analysis:   analysisDuration,
			Generation: generationDuration,
			Total:      time.Since(started),
		},
	}, nil
}
