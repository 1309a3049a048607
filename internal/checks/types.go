package checks

import "time"

// FailureKind tags why a check did not pass.
type FailureKind int

const (
	FailureNone FailureKind = iota
	// FailureTransport covers connection, DNS, TLS and timeout errors.
	FailureTransport
	// FailureStatus means the response code was not 200.
	FailureStatus
	// FailureContent means the body matched an error marker.
	FailureContent
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureTransport:
		return "transport"
	case FailureStatus:
		return "status"
	case FailureContent:
		return "content"
	default:
		return "unknown"
	}
}

// Result captures the outcome of a single check execution.
type Result struct {
	URL         string
	Success     bool
	Reason      string
	Kind        FailureKind
	StatusCode  int
	Error       error
	StartedAt   time.Time
	CompletedAt time.Time
	Latency     time.Duration
}
