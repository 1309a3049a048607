package config

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to allow YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		raw := strings.TrimSpace(value.Value)
		if raw == "" {
			d.Duration = 0
			return nil
		}
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		d.Duration = parsed
		return nil
	default:
		return fmt.Errorf("duration must be a string, got %s", value.ShortTag())
	}
}

// Config is the root configuration. It is built once at startup and passed
// by pointer to each component; nothing mutates it afterwards.
type Config struct {
	Target  TargetConfig  `yaml:"target"`
	SMTP    SMTPConfig    `yaml:"smtp"`
	Capture CaptureConfig `yaml:"capture"`
	Alert   AlertConfig   `yaml:"alert"`
	Service ServiceConfig `yaml:"service"`
}

// TargetConfig describes the monitored site.
type TargetConfig struct {
	URL     string   `yaml:"url"`
	Timeout Duration `yaml:"timeout"`
}

// SMTPConfig contains the mail relay settings and addressing.
type SMTPConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
	From     string   `yaml:"from"`
	To       []string `yaml:"to"`
}

// CaptureConfig controls the headless browser used for screenshots.
type CaptureConfig struct {
	Dir             string   `yaml:"dir"`
	ChromePath      string   `yaml:"chrome_path"`
	PageLoadTimeout Duration `yaml:"page_load_timeout"`
	SettleWait      Duration `yaml:"settle_wait"`
	Width           int      `yaml:"width"`
	Height          int      `yaml:"height"`
}

// AlertConfig holds optional text/template overrides for the alert email.
type AlertConfig struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}

// ServiceConfig contains process-wide settings.
type ServiceConfig struct {
	Timezone            string            `yaml:"timezone"`
	LogLevel            string            `yaml:"log_level"`
	LogFormat           string            `yaml:"log_format"`
	FailOnCrash         bool              `yaml:"fail_on_crash"`
	MaintenanceWindows  []MaintenanceSpec `yaml:"maintenance_windows"`
	MaintenanceDuration Duration          `yaml:"maintenance_duration"`
}

// MaintenanceSpec includes cron or range expressions.
type MaintenanceSpec struct {
	Expr string
	Kind MaintenanceKind
}

// MaintenanceKind indicates the maintenance window type.
type MaintenanceKind string

const (
	MaintenanceKindCron  MaintenanceKind = "cron"
	MaintenanceKindRange MaintenanceKind = "range"
)

// UnmarshalYAML allows parsing "cron: ..." or "range: ...".
func (m *MaintenanceSpec) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("maintenance spec must be scalar, got %s", value.ShortTag())
	}
	return m.parse(value.Value)
}

func (m *MaintenanceSpec) parse(raw string) error {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(raw, "cron:"):
		m.Kind = MaintenanceKindCron
		m.Expr = strings.TrimSpace(strings.TrimPrefix(raw, "cron:"))
	case strings.HasPrefix(raw, "range:"):
		m.Kind = MaintenanceKindRange
		m.Expr = strings.TrimSpace(strings.TrimPrefix(raw, "range:"))
	default:
		return fmt.Errorf("unsupported maintenance spec %q", raw)
	}
	return nil
}
