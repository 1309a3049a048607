package notifier

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/jordan-wright/email"
	"golang.org/x/net/publicsuffix"

	"github.com/osbits/sitewatch/internal/capture"
	"github.com/osbits/sitewatch/internal/render"
)

const (
	DefaultSubjectTemplate = "[ALERT] {{ .Site }} crash detected"
	DefaultBodyTemplate    = `
Website: {{ .Target }}
Status: {{ .Reason }}
Time: {{ .Time }}

{{ if .Screenshot }}Screenshot attached.{{ else }}No screenshot available.{{ end }}

-- Automated crash detector
`

	timestampLayout = "2006-01-02 15:04:05 UTC"
)

var errNoRecipients = errors.New("no recipients configured")

// EmailConfig contains SMTP configuration.
type EmailConfig struct {
	SMTPHost        string
	SMTPPort        int
	Username        string
	Password        string
	From            string
	To              []string
	SubjectTemplate string
	BodyTemplate    string
}

// AlertData is the data passed to the subject and body templates.
type AlertData struct {
	Target     string
	Site       string
	Reason     string
	Time       string
	Screenshot string
}

// SendFunc transmits a composed message. The default negotiates STARTTLS
// before authenticating.
type SendFunc func(addr string, auth smtp.Auth, tlsConfig *tls.Config, em *email.Email) error

// Option customizes an EmailNotifier.
type Option func(*EmailNotifier)

// WithSendFunc replaces the SMTP transport.
func WithSendFunc(fn SendFunc) Option {
	return func(n *EmailNotifier) {
		n.send = fn
	}
}

// WithErrorHook registers a callback invoked with every swallowed failure.
func WithErrorHook(fn func(error)) Option {
	return func(n *EmailNotifier) {
		n.onError = fn
	}
}

// EmailNotifier sends crash alerts through an authenticated SMTP relay.
type EmailNotifier struct {
	cfg      EmailConfig
	target   string
	site     string
	renderer *render.Engine
	logger   *slog.Logger
	send     SendFunc
	onError  func(error)
	now      func() time.Time
}

// NewEmailNotifier creates an email notifier for alerts about target.
func NewEmailNotifier(cfg EmailConfig, target string, engine *render.Engine, logger *slog.Logger, opts ...Option) (*EmailNotifier, error) {
	if cfg.SubjectTemplate == "" {
		cfg.SubjectTemplate = DefaultSubjectTemplate
	}
	if cfg.BodyTemplate == "" {
		cfg.BodyTemplate = DefaultBodyTemplate
	}
	if engine == nil {
		engine = render.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	n := &EmailNotifier{
		cfg:      cfg,
		target:   target,
		site:     siteName(target),
		renderer: engine,
		logger:   logger,
		send:     sendStartTLS,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(n)
	}
	// Render once up front so a broken template fails at startup rather
	// than in the middle of an outage.
	if _, err := n.render(AlertData{Target: target, Site: n.site}); err != nil {
		return nil, fmt.Errorf("alert templates: %w", err)
	}
	return n, nil
}

func sendStartTLS(addr string, auth smtp.Auth, tlsConfig *tls.Config, em *email.Email) error {
	return em.SendWithStartTLS(addr, auth, tlsConfig)
}

// Notify composes and sends an alert. Failures are logged and passed to the
// error hook; they are never returned.
func (n *EmailNotifier) Notify(ctx context.Context, reason string, evidence *capture.Evidence) {
	alert, err := n.Compose(reason, evidence)
	if err != nil {
		n.fail(err)
		return
	}
	if err := n.Send(ctx, alert); err != nil {
		n.fail(err)
		return
	}
	attrs := []any{"recipients", alert.To}
	if alert.Attachment != nil {
		attrs = append(attrs, "attachment", alert.Attachment.Name())
	}
	n.logger.Info("alert email sent", attrs...)
}

func (n *EmailNotifier) fail(err error) {
	n.logger.Error("failed to send alert email",
		"error", err,
		"smtp_host", n.cfg.SMTPHost,
		"smtp_port", n.cfg.SMTPPort,
		"smtp_user", n.cfg.Username,
		"from", n.cfg.From,
		"recipients", n.cfg.To,
	)
	if n.onError != nil {
		n.onError(err)
	}
}

// Compose renders the alert for reason. The evidence is attached only if
// its file still exists.
func (n *EmailNotifier) Compose(reason string, evidence *capture.Evidence) (Alert, error) {
	data := AlertData{
		Target: n.target,
		Site:   n.site,
		Reason: reason,
		Time:   n.now().UTC().Format(timestampLayout),
	}
	var attachment *capture.Evidence
	if evidence != nil {
		if _, err := os.Stat(evidence.Path); err == nil {
			attachment = evidence
			data.Screenshot = evidence.Name()
		} else {
			n.logger.Warn("screenshot missing, sending without attachment", "path", evidence.Path, "error", err)
		}
	}
	rendered, err := n.render(data)
	if err != nil {
		return Alert{}, &Error{Op: "compose", Err: err}
	}
	return Alert{
		From:       n.cfg.From,
		To:         append([]string{}, n.cfg.To...),
		Subject:    rendered["subject"],
		Body:       rendered["body"],
		Attachment: attachment,
	}, nil
}

func (n *EmailNotifier) render(data AlertData) (map[string]string, error) {
	return render.RenderMap(map[string]string{
		"subject": n.cfg.SubjectTemplate,
		"body":    n.cfg.BodyTemplate,
	}, data, n.renderer)
}

// Send transmits alert over SMTP with STARTTLS and PLAIN authentication.
func (n *EmailNotifier) Send(ctx context.Context, alert Alert) error {
	if len(alert.To) == 0 {
		return &Error{Op: "send", Err: errNoRecipients}
	}
	if err := ctx.Err(); err != nil {
		return &Error{Op: "send", Err: err}
	}
	em, err := buildMessage(alert)
	if err != nil {
		return &Error{Op: "compose", Err: err}
	}

	addr := net.JoinHostPort(n.cfg.SMTPHost, strconv.Itoa(n.cfg.SMTPPort))
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.SMTPHost)
	}
	tlsConfig := &tls.Config{
		ServerName: n.cfg.SMTPHost,
	}
	if err := n.send(addr, auth, tlsConfig, em); err != nil {
		return &Error{Op: "send", Err: err}
	}
	return nil
}

func buildMessage(alert Alert) (*email.Email, error) {
	em := email.NewEmail()
	em.From = alert.From
	em.To = append([]string{}, alert.To...)
	em.Subject = alert.Subject
	em.Text = []byte(alert.Body)
	if alert.Attachment != nil {
		f, err := os.Open(alert.Attachment.Path)
		if err != nil {
			return nil, fmt.Errorf("open screenshot: %w", err)
		}
		defer f.Close()
		if _, err := em.Attach(f, alert.Attachment.Name(), "image/png"); err != nil {
			return nil, fmt.Errorf("attach screenshot: %w", err)
		}
	}
	return em, nil
}

// siteName returns the registrable domain of target, used to identify the
// site in the subject line.
func siteName(target string) string {
	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" {
		return target
	}
	host := u.Hostname()
	if net.ParseIP(host) != nil {
		return host
	}
	if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return domain
	}
	return host
}
