package observability

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := strings.Join([]string{
		"# comment",
		"SITEWATCH_TEST_PLAIN=value # trailing",
		`export SITEWATCH_TEST_QUOTED="a # b"`,
		"SITEWATCH_TEST_SINGLE='x y'",
		"SITEWATCH_TEST_KEEP=from-file",
		"not-a-pair",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	for _, key := range []string{"SITEWATCH_TEST_PLAIN", "SITEWATCH_TEST_QUOTED", "SITEWATCH_TEST_SINGLE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	t.Setenv("SITEWATCH_TEST_KEEP", "from-env")

	var logs bytes.Buffer
	applied := LoadDotEnv(slog.New(slog.NewTextHandler(&logs, nil)), path)

	if applied != 3 {
		t.Fatalf("expected 3 applied variables, got %d", applied)
	}
	checks := map[string]string{
		"SITEWATCH_TEST_PLAIN":  "value",
		"SITEWATCH_TEST_QUOTED": "a # b",
		"SITEWATCH_TEST_SINGLE": "x y",
		"SITEWATCH_TEST_KEEP":   "from-env",
	}
	for key, want := range checks {
		if got := os.Getenv(key); got != want {
			t.Fatalf("%s = %q, want %q", key, got, want)
		}
	}
	if !strings.Contains(logs.String(), "skipping invalid env file entry") {
		t.Fatalf("expected warning for invalid line: %s", logs.String())
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	var logs bytes.Buffer
	applied := LoadDotEnv(slog.New(slog.NewTextHandler(&logs, nil)), filepath.Join(t.TempDir(), ".env"))
	if applied != 0 || logs.Len() != 0 {
		t.Fatalf("missing file should be silent, got %d applied, logs %q", applied, logs.String())
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "text", "warn")
	logger.Info("hidden")
	logger.Warn("shown", "reason", "HTTP 503")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, `reason="HTTP 503"`) {
		t.Fatalf("unexpected text output: %s", out)
	}
	if strings.Count(strings.TrimSpace(out), "\n") != 0 {
		t.Fatalf("expected a single line: %q", out)
	}

	buf.Reset()
	NewLogger(&buf, "json", "info").Info("event")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected json output: %s", buf.String())
	}
}

func TestSetupRollbarDisabledWithoutToken(t *testing.T) {
	t.Setenv("ROLLBAR_ACCESS_TOKEN", "")
	reporter, flush := SetupRollbar(slog.New(slog.NewTextHandler(io.Discard, nil)), "https://example.org")
	defer flush()
	if reporter.Enabled() {
		t.Fatalf("rollbar should be disabled")
	}
	reporter.Report(errors.New("ignored"))
}

func TestCapturePanicRepanics(t *testing.T) {
	defer func() {
		if rec := recover(); rec != "boom" {
			t.Fatalf("expected re-panic with boom, got %v", rec)
		}
	}()
	func() {
		defer CapturePanic(slog.New(slog.NewTextHandler(io.Discard, nil)), Reporter{})()
		panic("boom")
	}()
}
