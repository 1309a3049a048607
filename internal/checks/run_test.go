package checks

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCheckNonOKStatus(t *testing.T) {
	for _, code := range []int{201, 204, 301, 404, 500, 503} {
		t.Run(fmt.Sprint(code), func(t *testing.T) {
			srv := serve(t, code, "all good")
			checker := NewChecker(2*time.Second, nil)
			checker.client.CheckRedirect = func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			}

			res := checker.Check(context.Background(), srv.URL)
			if res.Success {
				t.Fatalf("expected failure for %d", code)
			}
			want := fmt.Sprintf("HTTP %d", code)
			if res.Reason != want {
				t.Fatalf("expected reason %q, got %q", want, res.Reason)
			}
			if res.Kind != FailureStatus || res.StatusCode != code {
				t.Fatalf("unexpected result %+v", res)
			}
		})
	}
}

func TestCheckContentMarkers(t *testing.T) {
	bodies := []string{
		"<h1>Internal Server ERROR</h1>",
		"Unhandled Exception in module",
		"Service Unavailable",
		"Page NOT FOUND",
	}
	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			srv := serve(t, http.StatusOK, body)
			res := NewChecker(2*time.Second, nil).Check(context.Background(), srv.URL)
			if res.Success {
				t.Fatalf("expected content failure")
			}
			if res.Reason != ReasonContentError || res.Kind != FailureContent {
				t.Fatalf("unexpected result %+v", res)
			}
		})
	}
}

func TestCheckHealthy(t *testing.T) {
	srv := serve(t, http.StatusOK, "<html><body>Welcome</body></html>")
	res := NewChecker(2*time.Second, nil).Check(context.Background(), srv.URL)
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Reason != ReasonOK || res.Kind != FailureNone || res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.CompletedAt.Before(res.StartedAt) {
		t.Fatalf("completion precedes start")
	}
}

func TestCheckConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	res := NewChecker(2*time.Second, nil).Check(context.Background(), url)
	if res.Success {
		t.Fatalf("expected transport failure")
	}
	if res.Kind != FailureTransport || res.Error == nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if !strings.HasPrefix(res.Reason, "Request failed: ") {
		t.Fatalf("unexpected reason %q", res.Reason)
	}
}

func TestCheckTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	res := NewChecker(50*time.Millisecond, nil).Check(context.Background(), srv.URL)
	if res.Success || res.Kind != FailureTransport {
		t.Fatalf("expected timeout failure, got %+v", res)
	}
}

func TestCheckSetsUserAgent(t *testing.T) {
	agents := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("fine"))
	}))
	t.Cleanup(srv.Close)

	NewChecker(time.Second, nil).Check(context.Background(), srv.URL)
	if got := <-agents; got != defaultUserAgent {
		t.Fatalf("expected user agent %q, got %q", defaultUserAgent, got)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		status int
		body   string
		kind   FailureKind
		reason string
	}{
		{200, "hello", FailureNone, ReasonOK},
		{200, "", FailureNone, ReasonOK},
		{200, "we support error reporting", FailureContent, ReasonContentError},
		{503, "error", FailureStatus, "HTTP 503"},
	}
	for _, tc := range cases {
		kind, reason := classify(tc.status, tc.body)
		if kind != tc.kind || reason != tc.reason {
			t.Fatalf("classify(%d, %q) = %v %q, want %v %q", tc.status, tc.body, kind, reason, tc.kind, tc.reason)
		}
	}
}
