package observability

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rollbar/rollbar-go"
)

// Reporter forwards swallowed failures to Rollbar when it is enabled.
type Reporter struct {
	enabled bool
	target  string
}

// Enabled reports whether items are sent to Rollbar.
func (r Reporter) Enabled() bool {
	return r.enabled
}

// Report sends err to Rollbar at error level. It is a no-op when disabled.
func (r Reporter) Report(err error) {
	if !r.enabled || err == nil {
		return
	}
	rollbar.Error(err, map[string]interface{}{
		"target": r.target,
	})
}

// SetupRollbar configures the Rollbar SDK if the access token is present.
// The returned function flushes pending items and should be deferred.
func SetupRollbar(logger *slog.Logger, target string) (Reporter, func()) {
	token := strings.TrimSpace(os.Getenv("ROLLBAR_ACCESS_TOKEN"))
	if token == "" {
		rollbar.SetEnabled(false)
		logger.Debug("rollbar disabled", "reason", "missing access token")
		return Reporter{target: target}, func() {}
	}

	rollbar.SetEnabled(true)
	rollbar.SetToken(token)

	env := strings.TrimSpace(os.Getenv("ROLLBAR_ENVIRONMENT"))
	if env == "" {
		env = "production"
	}
	rollbar.SetEnvironment(env)

	if codeVersion := strings.TrimSpace(os.Getenv("ROLLBAR_CODE_VERSION")); codeVersion != "" {
		rollbar.SetCodeVersion(codeVersion)
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		rollbar.SetServerHost(hostname)
	}
	if wd, err := os.Getwd(); err == nil {
		rollbar.SetServerRoot(filepath.Clean(wd))
	}

	logger.Info("rollbar enabled", "environment", env)

	return Reporter{enabled: true, target: target}, func() {
		rollbar.Wait()
	}
}

// CapturePanic reports panics to Rollbar when enabled and re-panics.
func CapturePanic(logger *slog.Logger, r Reporter) func() {
	return func() {
		if rec := recover(); rec != nil {
			if r.enabled {
				switch err := rec.(type) {
				case error:
					rollbar.Critical(err)
				default:
					rollbar.Critical(fmt.Errorf("panic: %v", rec))
				}
				rollbar.Wait()
			}
			logger.Error("panic captured", "panic", rec)
			panic(rec)
		}
	}
}
