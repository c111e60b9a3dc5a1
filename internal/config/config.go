package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config stores runtime configuration for the desktop app, CLI and backend.
type Config struct {
	Lemonfox LemonfoxConfig `yaml:"lemonfox"`
	OpenAI   OpenAIConfig   `yaml:"openai"`
	Audio    AudioConfig    `yaml:"audio"`
	Storage  StorageConfig  `yaml:"storage"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

type LemonfoxConfig struct {
	APIKey   string `yaml:"api_key"  env:"LEMONFOX_API_KEY"`
	URL      string `yaml:"url"      env:"LEMONFOX_API_URL"  env-default:"https://api.lemonfox.ai/v1/audio/transcriptions"`
	Language string `yaml:"language" env:"LEMONFOX_LANGUAGE" env-default:"english"`
}

type OpenAIConfig struct {
	APIKey      string  `yaml:"api_key"     env:"OPENAI_API_KEY"`
	BaseURL     string  `yaml:"base_url"    env:"OPENAI_API_BASE"    env-default:"https://api.openai.com/v1"`
	Model       string  `yaml:"model"       env:"OPENAI_MODEL"       env-default:"gpt-3.5-turbo"`
	Temperature float64 `yaml:"temperature" env:"OPENAI_TEMPERATURE" env-default:"0.5"`
	MaxTokens   int     `yaml:"max_tokens"  env:"OPENAI_MAX_TOKENS"  env-default:"800"`
}

type AudioConfig struct {
	RecorderCommand string `yaml:"recorder_command" env:"LECTERN_FFMPEG_COMMAND"     env-default:"ffmpeg"`
	InputFormat     string `yaml:"input_format"     env:"LECTERN_AUDIO_INPUT_FORMAT" env-default:"pulse"`
	InputDevice     string `yaml:"input_device"     env:"LECTERN_AUDIO_INPUT_DEVICE" env-default:"default"`
	SampleRate      int    `yaml:"sample_rate"      env:"LECTERN_SAMPLE_RATE"        env-default:"44100"`
	Channels        int    `yaml:"channels"         env:"LECTERN_CHANNELS"           env-default:"1"`
	Format          string `yaml:"format"           env:"LECTERN_AUDIO_FORMAT"       env-default:"m4a"`
	// Dir receives recordings; empty means <data dir>/recordings.
	Dir string `yaml:"dir" env:"LECTERN_RECORDINGS_DIR"`
}

type StorageConfig struct {
	// Path of the SQLite document store; empty means <data dir>/lectern.db.
	Path string `yaml:"path" env:"LECTERN_DB_PATH"`
}

type PipelineConfig struct {
	StageTimeout time.Duration `yaml:"stage_timeout" env:"LECTERN_STAGE_TIMEOUT" env-default:"30s"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"             env:"LECTERN_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"PORT"                     env-default:"3000"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" env:"LECTERN_MAX_UPLOAD_BYTES" env-default:"26214400"`
	UploadDir       string        `yaml:"upload_dir"       env:"LECTERN_UPLOAD_DIR"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"LECTERN_READ_TIMEOUT"     env-default:"60s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"LECTERN_WRITE_TIMEOUT"    env-default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"LECTERN_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"LECTERN_LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LECTERN_LOG_FORMAT" env-default:"text"`
}

// Addr is the listen address for the backend.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads LECTERN_CONFIG (YAML) when set, then the environment, then
// defaults. A LECTERN_CONFIG that names a missing file is an error.
func Load() (Config, error) {
	var cfg Config

	path := strings.TrimSpace(os.Getenv("LECTERN_CONFIG"))
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config: file %s: %w", path, err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.resolvePaths(); err != nil {
		return Config{}, err
	}
	cfg.clamp()
	return cfg, nil
}

func (c *Config) resolvePaths() error {
	if c.Storage.Path != "" && c.Audio.Dir != "" {
		return nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return errors.New("could not determine home directory")
	}
	dataDir := filepath.Join(home, ".local", "share", "lectern")
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(dataDir, "lectern.db")
	}
	if c.Audio.Dir == "" {
		c.Audio.Dir = filepath.Join(dataDir, "recordings")
	}
	return nil
}

// clamp replaces non-positive numbers with their defaults.
func (c *Config) clamp() {
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = 44100
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = 1
	}
	if c.OpenAI.Temperature < 0 {
		c.OpenAI.Temperature = 0.5
	}
	if c.OpenAI.MaxTokens <= 0 {
		c.OpenAI.MaxTokens = 800
	}
	if c.Pipeline.StageTimeout <= 0 {
		c.Pipeline.StageTimeout = 30 * time.Second
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 3000
	}
	if c.Server.MaxUploadBytes <= 0 {
		c.Server.MaxUploadBytes = 25 << 20
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
}
