package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Conversion polling budget. These are product constants, not per-call settings.
const (
	ConversionMaxAttempts  = 30
	ConversionPollInterval = 2 * time.Second
)

const (
	DefaultConversionBaseURL    = "https://youtube-mp36.p.rapidapi.com"
	DefaultConversionHost       = "youtube-mp36.p.rapidapi.com"
	DefaultSearchBaseURL        = "https://yt-api.p.rapidapi.com"
	DefaultSearchHost           = "yt-api.p.rapidapi.com"
	DefaultTranscriptionBaseURL = "https://api.groq.com/openai/v1"
	DefaultTranscriptionModel   = "whisper-large-v3-turbo"
	DefaultTranscriptionTimeout = 2 * time.Minute
	DefaultSynthesisTimeout     = 5 * time.Minute
	DefaultFetchTimeout         = 10 * time.Minute
	DefaultFFmpegPath           = "ffmpeg"
	DefaultPort                 = "8080"
)

// RapidAPI holds the credentials shared by the conversion and search providers.
type RapidAPI struct {
	Key               string
	ConversionHost    string
	ConversionBaseURL string
	SearchHost        string
	SearchBaseURL     string
}

type Transcription struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type Synthesis struct {
	URL      string
	APIKey   string
	ClientID string
	Timeout  time.Duration
}

// Config is resolved once at startup and passed by value to every component.
type Config struct {
	Environment  string
	LogLevel     string
	Port         string
	WorkDir      string
	FFmpegPath   string
	Concurrency  int
	FetchTimeout time.Duration

	RapidAPI      RapidAPI
	Transcription Transcription
	Synthesis     Synthesis
}

// Load resolves every known key against the providers in order. The first
// provider that returns a non-empty value wins.
func Load(providers ...Provider) (Config, error) {
	r := resolver{providers: providers}
	cfg := Config{
		Environment: r.str("ENVIRONMENT", "local"),
		LogLevel:    strings.ToLower(r.str("LOG_LEVEL", "info")),
		Port:        r.str("PORT", DefaultPort),
		WorkDir:     r.str("WORK_DIR", ""),
		FFmpegPath:  r.str("FFMPEG_PATH", DefaultFFmpegPath),
		RapidAPI: RapidAPI{
			Key:               r.str("RAPIDAPI_KEY", ""),
			ConversionHost:    r.str("RAPIDAPI_HOST", DefaultConversionHost),
			ConversionBaseURL: r.str("CONVERSION_BASE_URL", DefaultConversionBaseURL),
			SearchHost:        r.str("YT_RAPIDAPI_HOST", DefaultSearchHost),
			SearchBaseURL:     r.str("SEARCH_BASE_URL", DefaultSearchBaseURL),
		},
		Transcription: Transcription{
			APIKey:  r.str("GROQ_API_KEY", ""),
			BaseURL: r.str("TRANSCRIPTION_BASE_URL", DefaultTranscriptionBaseURL),
			Model:   r.str("TRANSCRIPTION_MODEL", DefaultTranscriptionModel),
		},
		Synthesis: Synthesis{
			URL:      r.str("SYNTHESIS_URL", ""),
			APIKey:   r.str("SYNTHESIS_API_KEY", ""),
			ClientID: r.str("CLIENT_ID", ""),
		},
	}

	var errs []error
	var err error
	if cfg.Concurrency, err = r.integer("CONCURRENCY", 1); err != nil {
		errs = append(errs, err)
	}
	if cfg.FetchTimeout, err = r.duration("FETCH_TIMEOUT", DefaultFetchTimeout); err != nil {
		errs = append(errs, err)
	}
	if cfg.Transcription.Timeout, err = r.duration("TRANSCRIPTION_TIMEOUT", DefaultTranscriptionTimeout); err != nil {
		errs = append(errs, err)
	}
	if cfg.Synthesis.Timeout, err = r.duration("SYNTHESIS_TIMEOUT", DefaultSynthesisTimeout); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}

	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Synthesis.ClientID == "" {
		cfg.Synthesis.ClientID = "vikb-" + uuid.New().String()
	}
	return cfg, nil
}

// ValidatePipeline reports the credentials missing for the transcription batch.
func (c Config) ValidatePipeline() error {
	return missing(map[string]string{
		"RAPIDAPI_KEY": c.RapidAPI.Key,
		"GROQ_API_KEY": c.Transcription.APIKey,
	})
}

// ValidateSynthesis reports the credentials missing for knowledge base synthesis.
func (c Config) ValidateSynthesis() error {
	return missing(map[string]string{
		"SYNTHESIS_URL":     c.Synthesis.URL,
		"SYNTHESIS_API_KEY": c.Synthesis.APIKey,
	})
}

// ValidateSearch reports the credentials missing for search.
func (c Config) ValidateSearch() error {
	return missing(map[string]string{
		"RAPIDAPI_KEY": c.RapidAPI.Key,
	})
}

func missing(values map[string]string) error {
	var keys []string
	for k, v := range values {
		if strings.TrimSpace(v) == "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Strings(keys)
	return fmt.Errorf("missing configuration: %s", strings.Join(keys, ", "))
}

type resolver struct {
	providers []Provider
}

func (r resolver) str(key, def string) string {
	for _, p := range r.providers {
		if v, ok := p.Lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return def
}

func (r resolver) integer(key string, def int) (int, error) {
	raw := r.str(key, "")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, raw)
	}
	return n, nil
}

func (r resolver) duration(key string, def time.Duration) (time.Duration, error) {
	raw := r.str(key, "")
	if raw == "" {
		return def, nil
	}
	// bare numbers are seconds
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, raw)
	}
	return d, nil
}
