package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != DefaultAPIURL || cfg.ChannelURL != DefaultChannelURL {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Reconnect.Enabled {
		t.Error("reconnect must be off by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yamlDoc := `api_url: http://backend:8000/projects
ws_url: ws://backend:8000/ws/tasks
upload_timeout: 5s
reconnect:
  enabled: true
  max_attempts: 3
  initial_delay: 250ms
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(yamlDoc), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvChannelURL, "wss://prod.example.com/ws/tasks")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://backend:8000/projects" {
		t.Errorf("api url = %s", cfg.APIURL)
	}
	if cfg.ChannelURL != "wss://prod.example.com/ws/tasks" {
		t.Errorf("env should win over file, got %s", cfg.ChannelURL)
	}
	if cfg.UploadTimeout != 5*time.Second {
		t.Errorf("upload timeout = %s", cfg.UploadTimeout)
	}
	if !cfg.Reconnect.Enabled || cfg.Reconnect.MaxAttempts != 3 || cfg.Reconnect.InitialDelay != 250*time.Millisecond {
		t.Errorf("unexpected reconnect %+v", cfg.Reconnect)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv(EnvAPIURL, "")

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FLOWBOARD_API_URL=http://dotenv:9000/projects\n"), 0600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	// godotenv only fills variables that are unset; t.Setenv restores it afterwards.
	os.Unsetenv(EnvAPIURL)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIURL != "http://dotenv:9000/projects" {
		t.Errorf("api url = %s", cfg.APIURL)
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load("nope.yaml"); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvReconnect, "sometimes")
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), EnvReconnect) {
		t.Fatalf("expected reconnect parse error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"wss channel", func(c *Config) { c.ChannelURL = "wss://x/ws" }, true},
		{"http channel", func(c *Config) { c.ChannelURL = "http://x/ws" }, false},
		{"ws api", func(c *Config) { c.APIURL = "ws://x/projects" }, false},
		{"no host", func(c *Config) { c.APIURL = "http:///projects" }, false},
		{"zero timeout", func(c *Config) { c.UploadTimeout = 0 }, false},
		{"reconnect without attempts", func(c *Config) {
			c.Reconnect.Enabled = true
			c.Reconnect.MaxAttempts = 0
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Chdir(t.TempDir())
	in := Default()
	in.ChannelURL = "ws://saved:1/ws/tasks"
	in.Reconnect.Enabled = true
	if err := Save("", in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.ChannelURL != in.ChannelURL || !out.Reconnect.Enabled || out.UploadTimeout != in.UploadTimeout {
		t.Errorf("round trip mismatch: %+v vs %+v", out, in)
	}
	if err := Save("", nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestSave_ReadableDurations(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := Save("", Default()); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(FileName)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := string(data)
	for _, want := range []string{"upload_timeout: 1m0s", "initial_delay: 500ms"} {
		if !strings.Contains(text, want) {
			t.Errorf("saved config missing %q:\n%s", want, text)
		}
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.UploadTimeout != time.Minute || cfg.Reconnect.InitialDelay != 500*time.Millisecond {
		t.Errorf("durations did not round trip: %+v", cfg)
	}
}

func TestLoad_NanosecondDurations(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := os.WriteFile(FileName, []byte("upload_timeout: 60000000000\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.UploadTimeout != time.Minute {
		t.Errorf("upload timeout = %s", cfg.UploadTimeout)
	}
}
