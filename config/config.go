// videosumapi/config/config.go
package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// AI provider names accepted in AI_PROVIDER.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGoogle    = "google"
)

// Transcription methods accepted in TRANSCRIPTION_METHOD.
const (
	MethodWhisper  = "whisper"  // local whisper.cpp
	MethodProvider = "provider" // delegate to the AI provider
)

type Config struct {
	Host       string `mapstructure:"HOST"`
	Port       string `mapstructure:"PORT"`
	AuthEnable bool   `mapstructure:"AUTH_ENABLE"`
	AuthKey    string `mapstructure:"AUTH_KEY"`

	InputFolder  string `mapstructure:"VIDEO_INPUT_FOLDER"`
	OutputFolder string `mapstructure:"VIDEO_OUTPUT_FOLDER"`

	AIProvider string `mapstructure:"AI_PROVIDER"`

	OpenAIAPIKey    string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel     string `mapstructure:"OPENAI_MODEL"`
	AnthropicAPIKey string `mapstructure:"ANTHROPIC_API_KEY"`
	AnthropicModel  string `mapstructure:"ANTHROPIC_MODEL"`
	GoogleAPIKey    string `mapstructure:"GOOGLE_API_KEY"`
	GoogleModel     string `mapstructure:"GOOGLE_MODEL"`

	TranscriptionMethod string `mapstructure:"TRANSCRIPTION_METHOD"`
	WhisperBin          string `mapstructure:"WHISPER_BIN"`
	WhisperModel        string `mapstructure:"WHISPER_MODEL"`
	WhisperLanguage     string `mapstructure:"WHISPER_LANGUAGE"`

	FFBin       string `mapstructure:"FF_BIN"`
	FFProbeBin  string `mapstructure:"FFPROBE_BIN"`
	FFExtraArgs string `mapstructure:"FF_EXTRA_ARGS"`

	MaxVideoSize     int64    `mapstructure:"MAX_VIDEO_SIZE"`
	SupportedFormats []string `mapstructure:"SUPPORTED_FORMATS"`

	MaxConcurrency   int           `mapstructure:"MAX_CONCURRENCY"`
	QueueSize        int           `mapstructure:"QUEUE_SIZE"`
	SummaryChunkSize int           `mapstructure:"SUMMARY_CHUNK_SIZE"`
	TempMaxAge       time.Duration `mapstructure:"TEMP_MAX_AGE"`

	ThrottleCPU      float64 `mapstructure:"THROTTLE_CPU"`
	ThrottleFreeMem  int64   `mapstructure:"THROTTLE_FREEMEM"`
	ThrottleFreeDisk int64   `mapstructure:"THROTTLE_FREEDISK"`

	// Set at runtime by media.NewExtractor, not read from the environment.
	TempDir string
}

// ConfigurationError collects every startup validation problem so the
// operator sees all of them at once instead of fixing one per restart.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// stringToDurationHookFunc is a custom Viper hook for parsing Go's duration strings.
func stringToDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		return time.ParseDuration(data.(string))
	}
}

// stringToByteSizeHookFunc is a custom Viper hook for parsing human-readable size strings.
func stringToByteSizeHookFunc() mapstructure.DecodeHookFunc {
	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if f.Kind() != reflect.String || t.Kind() != reflect.Int64 {
			return data, nil
		}

		var size datasize.ByteSize
		err := size.UnmarshalText([]byte(data.(string)))
		if err != nil {
			// Not a valid size string, let other parsers handle it.
			return data, nil
		}

		return int64(size.Bytes()), nil
	}
}

func Load() (*Config, error) {
	vp := viper.New()

	// Set default values as strings, the hooks will handle them.
	vp.SetDefault("HOST", "0.0.0.0")
	vp.SetDefault("PORT", "3300")
	vp.SetDefault("AUTH_ENABLE", false)
	vp.SetDefault("AUTH_KEY", "")
	vp.SetDefault("VIDEO_INPUT_FOLDER", "./videos")
	vp.SetDefault("VIDEO_OUTPUT_FOLDER", "./processed")
	vp.SetDefault("AI_PROVIDER", ProviderOpenAI)
	vp.SetDefault("OPENAI_API_KEY", "")
	vp.SetDefault("OPENAI_MODEL", "gpt-4")
	vp.SetDefault("ANTHROPIC_API_KEY", "")
	vp.SetDefault("ANTHROPIC_MODEL", "claude-3-sonnet-20240229")
	vp.SetDefault("GOOGLE_API_KEY", "")
	vp.SetDefault("GOOGLE_MODEL", "gemini-1.5-flash")
	vp.SetDefault("TRANSCRIPTION_METHOD", MethodWhisper)
	vp.SetDefault("WHISPER_BIN", "whisper-cli")
	vp.SetDefault("WHISPER_MODEL", "./models/ggml-base.bin")
	vp.SetDefault("WHISPER_LANGUAGE", "auto")
	vp.SetDefault("FF_BIN", "ffmpeg")
	vp.SetDefault("FFPROBE_BIN", "ffprobe")
	vp.SetDefault("FF_EXTRA_ARGS", "")
	vp.SetDefault("MAX_VIDEO_SIZE", "1000MB")
	vp.SetDefault("SUPPORTED_FORMATS", "mp4,avi,mov,mkv,webm")
	vp.SetDefault("MAX_CONCURRENCY", 2)
	vp.SetDefault("QUEUE_SIZE", 100)
	vp.SetDefault("SUMMARY_CHUNK_SIZE", 30000)
	vp.SetDefault("TEMP_MAX_AGE", "2h")
	vp.SetDefault("THROTTLE_CPU", 50.0)
	vp.SetDefault("THROTTLE_FREEMEM", "200MB")
	vp.SetDefault("THROTTLE_FREEDISK", "200MB")

	// Load from config file
	vp.SetConfigName("videosum_config")
	vp.SetConfigType("yaml")
	vp.AddConfigPath(".")
	vp.AddConfigPath("/etc/videosum/")

	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Load from environment variables
	vp.SetEnvPrefix("VIDEOSUM")
	vp.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vp.AutomaticEnv()

	var cfg Config
	err := vp.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			stringToDurationHookFunc(),
			stringToByteSizeHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return nil, err
	}

	cfg.AIProvider = strings.ToLower(cfg.AIProvider)
	cfg.TranscriptionMethod = strings.ToLower(cfg.TranscriptionMethod)

	return &cfg, nil
}

// Validate checks the startup configuration and creates the working folders.
// A non-nil return means the process must refuse to serve.
func (c *Config) Validate() error {
	var problems []string

	if err := os.MkdirAll(c.InputFolder, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("cannot create input folder %s: %v", c.InputFolder, err))
	}
	if err := os.MkdirAll(c.OutputFolder, 0755); err != nil {
		problems = append(problems, fmt.Sprintf("cannot create output folder %s: %v", c.OutputFolder, err))
	}

	switch c.AIProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			problems = append(problems, "OPENAI_API_KEY is required for the openai provider")
		}
	case ProviderAnthropic:
		if c.AnthropicAPIKey == "" {
			problems = append(problems, "ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case ProviderGoogle:
		if c.GoogleAPIKey == "" {
			problems = append(problems, "GOOGLE_API_KEY is required for the google provider")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown AI provider: %s", c.AIProvider))
	}

	if c.TranscriptionMethod != MethodWhisper && c.TranscriptionMethod != MethodProvider {
		problems = append(problems, fmt.Sprintf("unknown transcription method: %s", c.TranscriptionMethod))
	}

	if c.NeedsLocalWhisper() {
		if c.WhisperBin == "" {
			problems = append(problems, "WHISPER_BIN is required for local transcription")
		}
		if c.WhisperModel == "" {
			problems = append(problems, "WHISPER_MODEL is required for local transcription")
		}
	}

	if len(c.SupportedFormats) == 0 {
		problems = append(problems, "SUPPORTED_FORMATS must not be empty")
	}
	if c.MaxVideoSize <= 0 {
		problems = append(problems, "MAX_VIDEO_SIZE must be positive")
	}
	if c.MaxConcurrency < 1 {
		problems = append(problems, "MAX_CONCURRENCY must be at least 1")
	}
	if c.SummaryChunkSize < 1 {
		problems = append(problems, "SUMMARY_CHUNK_SIZE must be at least 1")
	}

	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

// NeedsLocalWhisper reports whether the local whisper.cpp transcriber must be
// available: either it is the configured method, or the configured provider
// has no server-side transcription endpoint and falls back to it.
func (c *Config) NeedsLocalWhisper() bool {
	if c.TranscriptionMethod == MethodWhisper {
		return true
	}
	return c.AIProvider == ProviderAnthropic || c.AIProvider == ProviderGoogle
}

// MaxVideoSizeMB is the size policy limit expressed in megabytes.
func (c *Config) MaxVideoSizeMB() float64 {
	return float64(c.MaxVideoSize) / (1 << 20)
}
