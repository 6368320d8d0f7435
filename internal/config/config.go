package config

import (
	"errors"
	"strings"
	"time"

	cenv "github.com/caarlos0/env/v11"
)

type Config struct {
	ListenAddr         string
	GeminiBaseURL      string
	GeminiAPIKey       string
	AnalysisModel      string
	MireloBaseURL      string
	MireloAPIKey       string
	MireloModelVersion string
	ReferenceVideoURL  string
	VariationCount     int
	SeedStride         int
	GenerationTimeout  time.Duration
	InsecureSkipVerify bool
	MaxUploadBytes     int64
	CORSAllowedOrigins []string
	LogLevel           string
}

type envConfig struct {
	ListenAddr               string `env:"LISTEN_ADDR" envDefault:":8080"`
	GeminiBaseURL            string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com"`
	GeminiAPIKey             string `env:"GEMINI_API_KEY"`
	AnalysisModel            string `env:"ANALYSIS_MODEL" envDefault:"gemini-flash-latest"`
	MireloBaseURL            string `env:"MIRELO_BASE_URL" envDefault:"https://api.mirelo.ai"`
	MireloAPIKey             string `env:"MIRELO_API_KEY"`
	MireloModelVersion       string `env:"MIRELO_MODEL_VERSION" envDefault:"latest"`
	ReferenceVideoURL        string `env:"REFERENCE_VIDEO_URL" envDefault:"https://ruswfclwojxpqskjuuim.supabase.co/storage/v1/object/public/videos/3611035-hd_1920_1080_24fps.mp4"`
	VariationCount           int    `env:"VARIATION_COUNT" envDefault:"3"`
	SeedStride               int    `env:"SEED_STRIDE" envDefault:"150"`
	GenerationTimeoutSeconds int    `env:"GENERATION_TIMEOUT_SECONDS" envDefault:"60"`
	MireloInsecureSkipVerify bool   `env:"MIRELO_INSECURE_SKIP_VERIFY" envDefault:"false"`
	MaxUploadBytes           int64  `env:"MAX_UPLOAD_BYTES" envDefault:"26214400"`
	CORSAllowedOrigins       string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`
	LogLevel                 string `env:"LOG_LEVEL" envDefault:"info"`
}

func Load() (Config, error) {
	var raw envConfig
	if err := cenv.Parse(&raw); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:         strings.TrimSpace(raw.ListenAddr),
		GeminiBaseURL:      strings.TrimRight(strings.TrimSpace(raw.GeminiBaseURL), "/"),
		GeminiAPIKey:       strings.TrimSpace(raw.GeminiAPIKey),
		AnalysisModel:      strings.TrimSpace(raw.AnalysisModel),
		MireloBaseURL:      strings.TrimRight(strings.TrimSpace(raw.MireloBaseURL), "/"),
		MireloAPIKey:       strings.TrimSpace(raw.MireloAPIKey),
		MireloModelVersion: strings.TrimSpace(raw.MireloModelVersion),
		ReferenceVideoURL:  strings.TrimSpace(raw.ReferenceVideoURL),
		VariationCount:     raw.VariationCount,
		SeedStride:         raw.SeedStride,
		GenerationTimeout:  time.Duration(raw.GenerationTimeoutSeconds) * time.Second,
		InsecureSkipVerify: raw.MireloInsecureSkipVerify,
		MaxUploadBytes:     raw.MaxUploadBytes,
		CORSAllowedOrigins: splitOrigins(raw.CORSAllowedOrigins),
		LogLevel:           strings.ToLower(strings.TrimSpace(raw.LogLevel)),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("LISTEN_ADDR must not be empty")
	}
	if c.GeminiBaseURL == "" {
		return errors.New("GEMINI_BASE_URL must not be empty")
	}
	if c.GeminiAPIKey == "" {
		return errors.New("GEMINI_API_KEY must not be empty")
	}
	if c.AnalysisModel == "" {
		return errors.New("ANALYSIS_MODEL must not be empty")
	}
	if c.MireloBaseURL == "" {
		return errors.New("MIRELO_BASE_URL must not be empty")
	}
	if c.MireloAPIKey == "" {
		return errors.New("MIRELO_API_KEY must not be empty")
	}
	if c.MireloModelVersion == "" {
		return errors.New("MIRELO_MODEL_VERSION must not be empty")
	}
	if c.ReferenceVideoURL == "" {
		return errors.New("REFERENCE_VIDEO_URL must not be empty")
	}
	if c.VariationCount <= 0 {
		return errors.New("VARIATION_COUNT must be > 0")
	}
	if c.SeedStride < 0 {
		return errors.New("SEED_STRIDE must be >= 0")
	}
	if c.GenerationTimeout <= 0 {
		return errors.New("GENERATION_TIMEOUT_SECONDS must be > 0")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be > 0")
	}
	if len(c.CORSAllowedOrigins) == 0 {
		return errors.New("CORS_ALLOWED_ORIGINS must not be empty")
	}
	return nil
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
