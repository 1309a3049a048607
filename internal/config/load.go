package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTargetURL = "https://www.alsalaam.ca/"

	defaultRequestTimeout      = 8 * time.Second
	defaultSMTPPort            = 587
	defaultScreenshotDir       = "screenshots"
	defaultPageLoadTimeout     = 20 * time.Second
	defaultSettleWait          = 3 * time.Second
	defaultViewportWidth       = 1366
	defaultViewportHeight      = 768
	defaultMaintenanceDuration = time.Hour
)

// envOverrides lists every environment variable the monitor understands.
// Timeouts are whole seconds.
type envOverrides struct {
	TargetURL          *string `mapstructure:"TARGET_URL"`
	RequestTimeout     *int    `mapstructure:"REQUEST_TIMEOUT"`
	SMTPHost           *string `mapstructure:"SMTP_HOST"`
	SMTPPort           *int    `mapstructure:"SMTP_PORT"`
	SMTPUser           *string `mapstructure:"SMTP_USER"`
	SMTPPass           *string `mapstructure:"SMTP_PASS" env:"raw"`
	Sender             *string `mapstructure:"SENDER"`
	Recipients         *string `mapstructure:"RECIPIENTS"`
	ScreenshotDir      *string `mapstructure:"SCREENSHOT_DIR"`
	ChromePath         *string `mapstructure:"CHROME_PATH"`
	PageLoadTimeout    *int    `mapstructure:"PAGE_LOAD_TIMEOUT"`
	SettleWait         *int    `mapstructure:"SETTLE_WAIT"`
	Timezone           *string `mapstructure:"MONITOR_TIMEZONE"`
	LogLevel           *string `mapstructure:"LOG_LEVEL"`
	LogFormat          *string `mapstructure:"LOG_FORMAT"`
	FailOnCrash        *bool   `mapstructure:"FAIL_ON_CRASH"`
	MaintenanceWindows *string `mapstructure:"MAINTENANCE_WINDOWS"`
}

// Default returns the configuration used when neither a file nor the
// environment provides a value.
func Default() *Config {
	return &Config{
		Target: TargetConfig{
			URL:     DefaultTargetURL,
			Timeout: Duration{defaultRequestTimeout},
		},
		SMTP: SMTPConfig{
			Port: defaultSMTPPort,
		},
		Capture: CaptureConfig{
			Dir:             defaultScreenshotDir,
			PageLoadTimeout: Duration{defaultPageLoadTimeout},
			SettleWait:      Duration{defaultSettleWait},
			Width:           defaultViewportWidth,
			Height:          defaultViewportHeight,
		},
		Service: ServiceConfig{
			Timezone:            "UTC",
			LogLevel:            "info",
			LogFormat:           "text",
			MaintenanceDuration: Duration{defaultMaintenanceDuration},
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path and then the process environment, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}
	if err := cfg.applyEnv(lookupEnv()); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func lookupEnv() map[string]interface{} {
	out := map[string]interface{}{}
	t := reflect.TypeOf(envOverrides{})
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		key := field.Tag.Get("mapstructure")
		val, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(val) == "" {
			continue
		}
		// Secrets are passed through untouched.
		if field.Tag.Get("env") == "raw" {
			out[key] = val
			continue
		}
		out[key] = strings.TrimSpace(val)
	}
	return out
}

func (c *Config) applyEnv(values map[string]interface{}) error {
	var env envOverrides
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &env,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(values); err != nil {
		return fmt.Errorf("decode environment: %w", err)
	}

	setString(&c.Target.URL, env.TargetURL)
	setSeconds(&c.Target.Timeout, env.RequestTimeout)
	setString(&c.SMTP.Host, env.SMTPHost)
	if env.SMTPPort != nil {
		c.SMTP.Port = *env.SMTPPort
	}
	setString(&c.SMTP.Username, env.SMTPUser)
	setString(&c.SMTP.Password, env.SMTPPass)
	setString(&c.SMTP.From, env.Sender)
	if env.Recipients != nil {
		c.SMTP.To = ParseRecipients(*env.Recipients)
	}
	setString(&c.Capture.Dir, env.ScreenshotDir)
	setString(&c.Capture.ChromePath, env.ChromePath)
	setSeconds(&c.Capture.PageLoadTimeout, env.PageLoadTimeout)
	setSeconds(&c.Capture.SettleWait, env.SettleWait)
	setString(&c.Service.Timezone, env.Timezone)
	setString(&c.Service.LogLevel, env.LogLevel)
	setString(&c.Service.LogFormat, env.LogFormat)
	if env.FailOnCrash != nil {
		c.Service.FailOnCrash = *env.FailOnCrash
	}
	if env.MaintenanceWindows != nil {
		specs, err := parseMaintenanceList(*env.MaintenanceWindows)
		if err != nil {
			return fmt.Errorf("invalid MAINTENANCE_WINDOWS: %w", err)
		}
		c.Service.MaintenanceWindows = specs
	}
	return nil
}

func (c *Config) normalize() {
	c.Target.URL = strings.TrimSpace(c.Target.URL)
	c.SMTP.To = ParseRecipients(strings.Join(c.SMTP.To, ","))
	if c.SMTP.From == "" {
		c.SMTP.From = c.SMTP.Username
	}
	c.Service.LogLevel = strings.ToLower(strings.TrimSpace(c.Service.LogLevel))
	c.Service.LogFormat = strings.ToLower(strings.TrimSpace(c.Service.LogFormat))
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	u, err := url.ParseRequestURI(c.Target.URL)
	if err != nil {
		return fmt.Errorf("invalid target url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("target url must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("target url has no host")
	}
	if c.Target.Timeout.Duration <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.SMTP.Port <= 0 || c.SMTP.Port > 65535 {
		return fmt.Errorf("smtp port %d out of range", c.SMTP.Port)
	}
	if strings.TrimSpace(c.Capture.Dir) == "" {
		return errors.New("screenshot directory is required")
	}
	if c.Capture.PageLoadTimeout.Duration <= 0 {
		return errors.New("page load timeout must be positive")
	}
	if c.Capture.SettleWait.Duration < 0 {
		return errors.New("settle wait must not be negative")
	}
	if c.Capture.Width <= 0 || c.Capture.Height <= 0 {
		return fmt.Errorf("invalid viewport %dx%d", c.Capture.Width, c.Capture.Height)
	}
	switch c.Service.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unsupported log level %q", c.Service.LogLevel)
	}
	switch c.Service.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.Service.LogFormat)
	}
	return nil
}

// ParseRecipients splits a comma-delimited address list, trimming
// whitespace and dropping empty entries.
func ParseRecipients(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

func parseMaintenanceList(raw string) ([]MaintenanceSpec, error) {
	var specs []MaintenanceSpec
	for _, part := range strings.Split(raw, ";") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		var spec MaintenanceSpec
		if err := spec.parse(part); err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setSeconds(dst *Duration, src *int) {
	if src != nil {
		dst.Duration = time.Duration(*src) * time.Second
	}
}
