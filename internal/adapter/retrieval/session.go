// Package retrieval fetches upstream pages with bounded retries, a circuit
// breaker, and optional response caching.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	neturl "net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/couchcryptid/sounding-forecast/internal/observability"
)

// retryStatuses are the upstream statuses worth another attempt.
var retryStatuses = map[int]bool{
	http.StatusBadRequest:          true,
	http.StatusForbidden:           true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// ErrCircuitOpen marks a fetch refused locally because the breaker is open or
// half-open and busy. Callers may wait out BreakerTimeout and try again.
var ErrCircuitOpen = errors.New("circuit open")

// TransportError reports a request that did not produce a 2xx body, either
// because retries were exhausted or the status was not retryable.
type TransportError struct {
	URL    string
	Status int // 0 when no response was received
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Options configures a Session.
type Options struct {
	Source         string // metric label, e.g. "uwyo"
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BreakerTimeout time.Duration // open period before a half-open trial; zero means 30s
}

// DefaultOptions returns ten attempts with a 100ms initial backoff.
func DefaultOptions(source string) Options {
	return Options{
		Source:         source,
		Timeout:        30 * time.Second,
		MaxAttempts:    10,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		BreakerTimeout: defaultBreakerTimeout,
	}
}

const defaultBreakerTimeout = 30 * time.Second

// Session is a retrying HTTP GET client guarded by a circuit breaker.
type Session struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
	source  string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewSession builds a session from opts.
func NewSession(opts Options, metrics *observability.Metrics, logger *slog.Logger) *Session {
	attempts := opts.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	breakerTimeout := opts.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = defaultBreakerTimeout
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetRetryCount(attempts - 1)
	client.SetRetryWaitTime(opts.InitialBackoff)
	client.SetRetryMaxWaitTime(opts.MaxBackoff)
	client.AddRetryCondition(func(resp *resty.Response, err error) bool {
		if err != nil {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}
		return retryStatuses[resp.StatusCode()]
	})

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    opts.Source,
		Timeout: breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "source", name, "from", from.String(), "to", to.String())
		},
	})

	return &Session{
		client:  client,
		breaker: breaker,
		source:  opts.Source,
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch GETs url and returns the body. Any failure is a *TransportError.
func (s *Session) Fetch(ctx context.Context, url string) (string, error) {
	start := time.Now()
	body, err := s.breaker.Execute(func() (interface{}, error) {
		return s.get(ctx, url)
	})
	s.metrics.FetchDuration.WithLabelValues(s.source).Observe(time.Since(start).Seconds())

	if err != nil {
		s.metrics.FetchRequests.WithLabelValues(s.source, "error").Inc()
		var te *TransportError
		switch {
		case errors.As(err, &te):
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			te = &TransportError{URL: redact(url), Err: ErrCircuitOpen}
		default:
			te = &TransportError{URL: redact(url), Err: err}
		}
		s.logger.Debug("fetch failed", "source", s.source, "status", te.Status, "error", te)
		return "", te
	}

	s.metrics.FetchRequests.WithLabelValues(s.source, "success").Inc()
	return body.(string), nil
}

func (s *Session) get(ctx context.Context, url string) (string, error) {
	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		// *url.Error repeats the raw URL, credentials included.
		var ue *neturl.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return "", &TransportError{URL: redact(url), Err: err}
	}
	if !resp.IsSuccess() {
		return "", &TransportError{URL: redact(url), Status: resp.StatusCode(), Err: errors.New(resp.Status())}
	}
	return string(resp.Body()), nil
}

// redact masks credentials carried in query strings before a URL is logged.
func redact(raw string) string {
	u, err := neturl.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	masked := false
	for _, k := range []string{"apiKey", "api_key", "key"} {
		if q.Has(k) {
			q.Set(k, "REDACTED")
			masked = true
		}
	}
	if !masked {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}
