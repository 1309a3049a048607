package notifier

import (
	"context"
	"fmt"

	"github.com/osbits/sitewatch/internal/capture"
)

// Alert is a fully rendered message, built fresh for each notification.
type Alert struct {
	From       string
	To         []string
	Subject    string
	Body       string
	Attachment *capture.Evidence
}

// Notifier delivers crash alerts. Implementations report their own failures
// and never surface them to the caller.
type Notifier interface {
	Notify(ctx context.Context, reason string, evidence *capture.Evidence)
}

// Error wraps a failure to compose or deliver an alert.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
