package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds everything that can change between deployments. Constants in
// environmentVariables.go are the defaults.
type Settings struct {
	Env        string `yaml:"env"`
	LogLevel   string `yaml:"log_level"`
	ListenAddr string `yaml:"listen_addr"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`

	AuthToken    string `yaml:"auth_token"`
	NoAuthBypass bool   `yaml:"no_auth_bypass"`

	Extraction ExtractionSettings `yaml:"extraction"`
	FileStore  FileStoreSettings  `yaml:"file_store"`

	UnsavedRetention int `yaml:"unsaved_retention"`
}

type ExtractionSettings struct {
	Provider    string        `yaml:"provider"`
	ServiceURL  string        `yaml:"service_url"`
	APIKey      string        `yaml:"api_key"`
	GeminiKey   string        `yaml:"gemini_api_key"`
	GeminiModel string        `yaml:"gemini_model"`
	OpenAIKey   string        `yaml:"openai_api_key"`
	OpenAIModel string        `yaml:"openai_model"`
	Timeout     time.Duration `yaml:"timeout"`
}

type FileStoreSettings struct {
	Kind      string `yaml:"kind"`
	Dir       string `yaml:"dir"`
	GCSBucket string `yaml:"gcs_bucket"`
}

func defaultSettings() Settings {
	return Settings{
		Env:        "development",
		LogLevel:   "debug",
		ListenAddr: ServerListenAddr,
		RedisAddr:  RedisAddr,
		Extraction: ExtractionSettings{
			Provider:    ExtractionProviderHTTP,
			GeminiModel: GeminiModelName,
			OpenAIModel: OpenAIModelName,
			Timeout:     ExtractionTimeout,
		},
		FileStore: FileStoreSettings{
			Kind: FileStoreLocal,
			Dir:  FileStoreDir,
		},
		UnsavedRetention: UnsavedRetentionLimit,
	}
}

// Load builds the settings from defaults, an optional YAML file named by
// DOCSCAN_CONFIG, and finally environment variables.
func Load() (Settings, error) {
	s := defaultSettings()

	if path := os.Getenv("DOCSCAN_CONFIG"); path != "" {
		if err := s.mergeFile(path); err != nil {
			return s, err
		}
	}
	s.mergeEnv()

	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func (s *Settings) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

func (s *Settings) mergeEnv() {
	setString(&s.Env, "APP_ENV")
	setString(&s.LogLevel, "LOG_LEVEL")
	setString(&s.ListenAddr, "LISTEN_ADDR")
	setString(&s.RedisAddr, "REDIS_ADDR")
	setString(&s.RedisPassword, "REDIS_PASSWORD")
	setString(&s.AuthToken, "AUTH_TOKEN")
	setBool(&s.NoAuthBypass, "NO_AUTH_BYPASS")

	setString(&s.Extraction.Provider, "EXTRACTION_PROVIDER")
	setString(&s.Extraction.ServiceURL, "EXTRACTION_SERVICE_URL")
	setString(&s.Extraction.APIKey, "EXTRACTION_API_KEY")
	setString(&s.Extraction.GeminiKey, "GEMINI_API_KEY")
	setString(&s.Extraction.GeminiModel, "GEMINI_MODEL")
	setString(&s.Extraction.OpenAIKey, "OPENAI_API_KEY")
	setString(&s.Extraction.OpenAIModel, "OPENAI_MODEL")
	setDuration(&s.Extraction.Timeout, "EXTRACTION_TIMEOUT")

	setString(&s.FileStore.Kind, "FILE_STORE")
	setString(&s.FileStore.Dir, "FILE_STORE_DIR")
	setString(&s.FileStore.GCSBucket, "GCS_BUCKET")

	setInt(&s.UnsavedRetention, "UNSAVED_RETENTION")
}

// Validate only rejects settings the service cannot start with. A missing
// extraction credential is not fatal: scans fail fast with a configuration error instead.
func (s Settings) Validate() error {
	var errs []error
	switch s.Extraction.Provider {
	case ExtractionProviderHTTP, ExtractionProviderGemini, ExtractionProviderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("unknown extraction provider %q", s.Extraction.Provider))
	}
	switch s.FileStore.Kind {
	case FileStoreLocal:
		if s.FileStore.Dir == "" {
			errs = append(errs, errors.New("file store dir is required for the local file store"))
		}
	case FileStoreGCS:
		if s.FileStore.GCSBucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required for the gcs file store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown file store %q", s.FileStore.Kind))
	}
	if s.UnsavedRetention < 1 {
		errs = append(errs, errors.New("unsaved retention must be at least 1"))
	}
	if s.Extraction.Timeout <= 0 {
		errs = append(errs, errors.New("extraction timeout must be positive"))
	}
	if !s.NoAuthBypass && s.AuthToken == "" {
		errs = append(errs, errors.New("AUTH_TOKEN is required unless NO_AUTH_BYPASS is set"))
	}
	return errors.Join(errs...)
}

// HasExtractionCredential reports whether the selected provider has what it
// needs to be called.
func (s Settings) HasExtractionCredential() bool {
	switch s.Extraction.Provider {
	case ExtractionProviderGemini:
		return s.Extraction.GeminiKey != ""
	case ExtractionProviderOpenAI:
		return s.Extraction.OpenAIKey != ""
	default:
		return s.Extraction.ServiceURL != ""
	}
}

// MissingCredential names the setting to fill in when HasExtractionCredential is false.
func (s Settings) MissingCredential() string {
	switch s.Extraction.Provider {
	case ExtractionProviderGemini:
		return "GEMINI_API_KEY"
	case ExtractionProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return "EXTRACTION_SERVICE_URL"
	}
}

func (s Settings) IsProd() bool {
	return IS_PROD || strings.EqualFold(s.Env, "production")
}

func (s Settings) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		if s.IsProd() {
			return LOG_LEVEL_PROD
		}
		return slog.LevelDebug
	}
}

func setString(target *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*target = v
	}
}

func setBool(target *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

func setInt(target *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

func setDuration(target *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*target = d
		}
	}
}
