package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/osbits/sitewatch/internal/capture"
	"github.com/osbits/sitewatch/internal/checks"
	"github.com/osbits/sitewatch/internal/config"
	"github.com/osbits/sitewatch/internal/monitor"
	"github.com/osbits/sitewatch/internal/notifier"
	"github.com/osbits/sitewatch/internal/observability"
	"github.com/osbits/sitewatch/internal/render"
)

func main() {
	os.Exit(run())
}

func run() int {
	bootstrap := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	observability.LoadDotEnv(bootstrap, ".env")

	cfg, err := config.Load(os.Getenv("MONITOR_CONFIG"))
	if err != nil {
		bootstrap.Error("failed to load config", "error", err)
		return 1
	}
	logger := observability.NewLogger(os.Stdout, cfg.Service.LogFormat, cfg.Service.LogLevel)

	reporter, flush := observability.SetupRollbar(logger, cfg.Target.URL)
	defer flush()
	defer observability.CapturePanic(logger, reporter)()

	location, err := time.LoadLocation(cfg.Service.Timezone)
	if err != nil {
		logger.Warn("failed to load timezone, defaulting to UTC", "timezone", cfg.Service.Timezone, "error", err)
		location = time.UTC
	}

	mailer, err := notifier.NewEmailNotifier(notifier.EmailConfig{
		SMTPHost:        cfg.SMTP.Host,
		SMTPPort:        cfg.SMTP.Port,
		Username:        cfg.SMTP.Username,
		Password:        cfg.SMTP.Password,
		From:            cfg.SMTP.From,
		To:              cfg.SMTP.To,
		SubjectTemplate: cfg.Alert.Subject,
		BodyTemplate:    cfg.Alert.Body,
	}, cfg.Target.URL, render.New(), logger, notifier.WithErrorHook(reporter.Report))
	if err != nil {
		logger.Error("failed to initialize notifier", "error", err)
		return 1
	}
	if len(cfg.SMTP.To) == 0 {
		logger.Warn("no recipients configured, alerts will not be delivered")
	}

	capturer := capture.New(capture.Options{
		Dir:             cfg.Capture.Dir,
		ExecPath:        cfg.Capture.ChromePath,
		PageLoadTimeout: cfg.Capture.PageLoadTimeout.Duration,
		SettleWait:      cfg.Capture.SettleWait.Duration,
		Width:           cfg.Capture.Width,
		Height:          cfg.Capture.Height,
	}, logger)

	checker := checks.NewChecker(cfg.Target.Timeout.Duration, nil)

	mon, err := monitor.New(cfg, checker, capturer, mailer, logger, location, monitor.WithErrorReporter(reporter.Report))
	if err != nil {
		logger.Error("failed to initialize monitor", "error", err)
		return 1
	}

	ctx, cancel := signalContext(logger)
	defer cancel()

	outcome := mon.Run(ctx)
	return monitor.ExitCode(outcome, cfg.Service.FailOnCrash)
}

func signalContext(logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-signals:
			logger.Info("shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
