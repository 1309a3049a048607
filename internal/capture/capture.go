// Package capture renders a page in headless Chrome and stores a PNG
// screenshot as evidence of a failed check.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
)

const fileTimeLayout = "20060102T150405Z"

// Stage names the step of a capture that failed.
type Stage string

const (
	StageLaunch     Stage = "launch"
	StageNavigate   Stage = "navigate"
	StageScreenshot Stage = "screenshot"
	StageWrite      Stage = "write"
)

// Error is returned for any failure while producing evidence. Callers treat
// it as "no evidence available".
type Error struct {
	Stage Stage
	URL   string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("capture %s %s: %v", e.Stage, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Evidence references a stored screenshot.
type Evidence struct {
	Path       string
	CapturedAt time.Time
}

// Name returns the file name of the screenshot.
func (e Evidence) Name() string {
	return filepath.Base(e.Path)
}

// FileName builds the artifact name for a capture taken at t.
func FileName(t time.Time) string {
	return "crash_" + t.UTC().Format(fileTimeLayout) + ".png"
}

// Options configures the browser session.
type Options struct {
	Dir             string
	ExecPath        string
	PageLoadTimeout time.Duration
	SettleWait      time.Duration
	Width           int
	Height          int
}

// Capturer takes screenshots with a fresh headless browser per call.
type Capturer struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New constructs a capturer.
func New(opts Options, logger *slog.Logger) *Capturer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Capturer{
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

func (c *Capturer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Headless,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if c.opts.Width > 0 && c.opts.Height > 0 {
		opts = append(opts, chromedp.WindowSize(c.opts.Width, c.opts.Height))
	}
	if c.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.opts.ExecPath))
	}
	return opts
}

// Capture loads url and writes a screenshot under the configured directory.
// The browser is shut down before Capture returns, whatever the outcome.
func (c *Capturer) Capture(ctx context.Context, url string) (*Evidence, error) {
	capturedAt := c.now().UTC()
	path := filepath.Join(c.opts.Dir, FileName(capturedAt))

	if err := os.MkdirAll(c.opts.Dir, 0o755); err != nil {
		return nil, &Error{Stage: StageWrite, URL: url, Err: fmt.Errorf("create screenshot directory: %w", err)}
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// The first Run starts the browser; it must not carry the page-load
	// deadline or the browser would die with it.
	if err := chromedp.Run(browserCtx); err != nil {
		return nil, &Error{Stage: StageLaunch, URL: url, Err: err}
	}

	loadCtx, cancelLoad := context.WithTimeout(browserCtx, c.opts.PageLoadTimeout)
	err := chromedp.Run(loadCtx, chromedp.Navigate(url))
	cancelLoad()
	if err != nil {
		return nil, &Error{Stage: StageNavigate, URL: url, Err: err}
	}

	var buf []byte
	if err := chromedp.Run(browserCtx,
		chromedp.Sleep(c.opts.SettleWait),
		chromedp.CaptureScreenshot(&buf),
	); err != nil {
		return nil, &Error{Stage: StageScreenshot, URL: url, Err: err}
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return nil, &Error{Stage: StageWrite, URL: url, Err: err}
	}
	c.logger.Info("saved screenshot", "path", path, "bytes", len(buf))
	return &Evidence{Path: path, CapturedAt: capturedAt}, nil
}
