package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VOICECOACH_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Path != "" {
		t.Fatalf("expected no config file, got %q", cfg.Path)
	}
	if cfg.Server.BaseURL != "http://127.0.0.1:5000" || cfg.Server.UploadPath != "/upload" {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Audio.Channels != 1 || cfg.Audio.RecorderCommand != "ffmpeg" {
		t.Fatalf("unexpected audio defaults: %+v", cfg.Audio)
	}
	if cfg.Server.UploadTimeout.ToDuration() != time.Minute {
		t.Fatalf("unexpected upload timeout: %v", cfg.Server.UploadTimeout.ToDuration())
	}
}

func TestLoadYAMLFromHome(t *testing.T) {
	home := t.TempDir()
	path := filepath.Join(home, ".config", "voicecoach", "config.yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	contents := `
server:
  base_url: http://analysis.local:8080/
  upload_timeout: 90
  request_timeout: 3s
audio:
  input_device: hw:1
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("HOME", home)
	t.Setenv("VOICECOACH_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Path != path {
		t.Fatalf("expected config path %q, got %q", path, cfg.Path)
	}
	if cfg.Server.BaseURL != "http://analysis.local:8080" {
		t.Fatalf("unexpected base url: %q", cfg.Server.BaseURL)
	}
	if cfg.Server.UploadTimeout.ToDuration() != 90*time.Second || cfg.Server.RequestTimeout.ToDuration() != 3*time.Second {
		t.Fatalf("unexpected timeouts: %+v", cfg.Server)
	}
	if cfg.Audio.InputDevice != "hw:1" || cfg.Log.Level != "debug" {
		t.Fatalf("unexpected overrides: %+v %+v", cfg.Audio, cfg.Log)
	}
	if cfg.Server.UploadPath != "/upload" {
		t.Fatalf("expected untouched defaults to remain, got %q", cfg.Server.UploadPath)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("server:\n  base_url: http://file\naudio:\n  sample_rate: 22050\n"), 0o600); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	t.Setenv("HOME", dir)
	t.Setenv("VOICECOACH_CONFIG", path)
	t.Setenv("VOICECOACH_SERVER_URL", "http://env")
	t.Setenv("VOICECOACH_UPLOAD_TIMEOUT", "2m")
	t.Setenv("VOICECOACH_CHANNELS", "-1")
	t.Setenv("VOICECOACH_AUDIO_CHUNK_SIZE", "12")
	t.Setenv("VOICECOACH_SAMPLE_RATE", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.BaseURL != "http://env" {
		t.Fatalf("expected env to win, got %q", cfg.Server.BaseURL)
	}
	if cfg.Server.UploadTimeout.ToDuration() != 2*time.Minute {
		t.Fatalf("unexpected upload timeout: %v", cfg.Server.UploadTimeout.ToDuration())
	}
	if cfg.Audio.SampleRate != 22050 {
		t.Fatalf("expected file sample rate to survive a bad env value, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.Channels != 1 || cfg.Session.ChunkSize != 4096 {
		t.Fatalf("expected invalid values to fall back, got %+v %+v", cfg.Audio, cfg.Session)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("VOICECOACH_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}

func TestDurationUnmarshal(t *testing.T) {
	t.Parallel()

	cases := map[string]time.Duration{
		"d: 5s":   5 * time.Second,
		"d: 30":   30 * time.Second,
		`d: "45"`: 45 * time.Second,
		`d: ""`:   0,
	}
	for input, want := range cases {
		var out struct {
			D Duration `yaml:"d"`
		}
		if err := yaml.Unmarshal([]byte(input), &out); err != nil {
			t.Fatalf("%s: unmarshal failed: %v", input, err)
		}
		if out.D.ToDuration() != want {
			t.Fatalf("%s: expected %v, got %v", input, want, out.D.ToDuration())
		}
	}

	var bad struct {
		D Duration `yaml:"d"`
	}
	if err := yaml.Unmarshal([]byte("d: soon"), &bad); err == nil {
		t.Fatalf("expected invalid duration error")
	}
	if err := yaml.Unmarshal([]byte("d: [1]"), &bad); err == nil {
		t.Fatalf("expected non-scalar error")
	}
}
