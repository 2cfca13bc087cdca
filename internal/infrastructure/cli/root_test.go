package cli

import (
	"errors"
	"strings"
	"testing"
)

func TestExecute_Help(t *testing.T) {
	out, err := runCLI(t, "--help")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	for _, sub := range []string{"board", "upload", "stream", "config", "devserver"} {
		if !strings.Contains(out, sub) {
			t.Errorf("help does not list %q", sub)
		}
	}
}

func TestLoadSettings_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("FLOWBOARD_API_URL", "http://env.example/projects")
	t.Setenv("FLOWBOARD_WS_URL", "ws://env.example/ws/tasks")

	out, err := runCLI(t, "config", "show", "--api-url", "https://flag.example/projects")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "api_url: https://flag.example/projects") {
		t.Errorf("flag should win over env:\n%s", out)
	}
	if !strings.Contains(out, "ws_url: ws://env.example/ws/tasks") {
		t.Errorf("env should win over defaults:\n%s", out)
	}
}

func TestLoadSettings_InvalidURL(t *testing.T) {
	_, err := runCLI(t, "config", "show", "--ws-url", "http://wrong-scheme/ws")
	var cliErr *CLIError
	if !errors.As(err, &cliErr) {
		t.Fatalf("expected CLIError, got %v", err)
	}
	if cliErr.Message != "invalid configuration" {
		t.Errorf("message = %q", cliErr.Message)
	}
}

func TestLoadSettings_InvalidLogFormat(t *testing.T) {
	_, err := runCLI(t, "config", "show", "--log-format", "xml")
	var cliErr *CLIError
	if !errors.As(err, &cliErr) || cliErr.Message != "invalid logging flags" {
		t.Fatalf("expected logging CLIError, got %v", err)
	}
}
