package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts "5s"-style strings or integer seconds in YAML.
type Duration time.Duration

func (d Duration) ToDuration() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		*d = 0
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be a scalar")
	}
	parsed, err := parseDuration(value.Value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Config stores runtime configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Audio    AudioConfig    `yaml:"audio"`
	Session  SessionConfig  `yaml:"session"`
	Playback PlaybackConfig `yaml:"playback"`
	Feedback FeedbackConfig `yaml:"feedback"`
	Log      LogConfig      `yaml:"log"`

	// Path is the YAML file that was applied, if any.
	Path string `yaml:"-"`
}

type ServerConfig struct {
	BaseURL        string   `yaml:"base_url"`
	UploadPath     string   `yaml:"upload_path"`
	ScalesPath     string   `yaml:"scales_path"`
	StaticPrefix   string   `yaml:"static_prefix"`
	UploadTimeout  Duration `yaml:"upload_timeout"`
	RequestTimeout Duration `yaml:"request_timeout"`
}

type AudioConfig struct {
	RecorderCommand string `yaml:"recorder_command"`
	InputFormat     string `yaml:"input_format"`
	InputDevice     string `yaml:"input_device"`
	SampleRate      int    `yaml:"sample_rate"`
	Channels        int    `yaml:"channels"`
}

type SessionConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`
	RecordingDir string `yaml:"recording_dir"`
}

type PlaybackConfig struct {
	OutputRate int `yaml:"output_rate"`
}

type FeedbackConfig struct {
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			BaseURL:        "http://127.0.0.1:5000",
			UploadPath:     "/upload",
			ScalesPath:     "/scales",
			StaticPrefix:   "/static/",
			UploadTimeout:  Duration(60 * time.Second),
			RequestTimeout: Duration(10 * time.Second),
		},
		Audio: AudioConfig{
			RecorderCommand: "ffmpeg",
			InputFormat:     "pulse",
			InputDevice:     "default",
			SampleRate:      16000,
			Channels:        1,
		},
		Session: SessionConfig{
			ChunkSize:    4096,
			RecordingDir: filepath.Join(os.TempDir(), "voicecoach"),
		},
		Playback: PlaybackConfig{OutputRate: 44100},
		Feedback: FeedbackConfig{Addr: "127.0.0.1:0"},
		Log:      LogConfig{Level: "info"},
	}
}

// Load resolves configuration from defaults, an optional YAML file and
// environment variables, in that order.
func Load() (Config, error) {
	cfg := Default()

	path, err := configPath()
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func configPath() (string, error) {
	if explicit := strings.TrimSpace(os.Getenv("VOICECOACH_CONFIG")); explicit != "" {
		return explicit, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("could not determine home directory")
	}
	candidate := filepath.Join(home, ".config", "voicecoach", "config.yaml")
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.Path = path
	return nil
}

func (c *Config) applyEnv() {
	c.Server.BaseURL = envOrDefault("VOICECOACH_SERVER_URL", c.Server.BaseURL)
	c.Server.UploadPath = envOrDefault("VOICECOACH_UPLOAD_PATH", c.Server.UploadPath)
	c.Server.ScalesPath = envOrDefault("VOICECOACH_SCALES_PATH", c.Server.ScalesPath)
	c.Server.UploadTimeout = Duration(envOrDefaultDuration("VOICECOACH_UPLOAD_TIMEOUT", c.Server.UploadTimeout.ToDuration()))
	c.Server.RequestTimeout = Duration(envOrDefaultDuration("VOICECOACH_REQUEST_TIMEOUT", c.Server.RequestTimeout.ToDuration()))

	c.Audio.RecorderCommand = envOrDefault("VOICECOACH_FFMPEG_COMMAND", c.Audio.RecorderCommand)
	c.Audio.InputFormat = envOrDefault("VOICECOACH_AUDIO_INPUT_FORMAT", c.Audio.InputFormat)
	c.Audio.InputDevice = firstNonEmpty(os.Getenv("VOICECOACH_AUDIO_INPUT_DEVICE"), c.Audio.InputDevice, "default")
	c.Audio.SampleRate = envOrDefaultInt("VOICECOACH_SAMPLE_RATE", c.Audio.SampleRate)
	c.Audio.Channels = envOrDefaultInt("VOICECOACH_CHANNELS", c.Audio.Channels)

	c.Session.ChunkSize = envOrDefaultInt("VOICECOACH_AUDIO_CHUNK_SIZE", c.Session.ChunkSize)
	c.Session.RecordingDir = envOrDefault("VOICECOACH_RECORDING_DIR", c.Session.RecordingDir)

	c.Playback.OutputRate = envOrDefaultInt("VOICECOACH_PLAYBACK_RATE", c.Playback.OutputRate)
	c.Feedback.Addr = envOrDefault("VOICECOACH_FEEDBACK_ADDR", c.Feedback.Addr)
	c.Log.Level = envOrDefault("VOICECOACH_LOG_LEVEL", c.Log.Level)
}

func (c *Config) normalize() {
	def := Default()
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	if c.Server.UploadTimeout <= 0 {
		c.Server.UploadTimeout = def.Server.UploadTimeout
	}
	if c.Server.RequestTimeout <= 0 {
		c.Server.RequestTimeout = def.Server.RequestTimeout
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = def.Audio.SampleRate
	}
	if c.Audio.Channels <= 0 {
		c.Audio.Channels = def.Audio.Channels
	}
	if c.Session.ChunkSize < 256 {
		c.Session.ChunkSize = def.Session.ChunkSize
	}
	if c.Playback.OutputRate <= 0 {
		c.Playback.OutputRate = def.Playback.OutputRate
	}
}

func parseDuration(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	if dur, err := time.ParseDuration(value); err == nil {
		return dur, nil
	}
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(i) * time.Second, nil
	}
	return 0, fmt.Errorf("invalid duration: %q", value)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := parseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
