// Package portal implements the PortalDetector of spec.md section 4.6: a
// bounded-attempt state machine that issues an HTTP probe over a given
// connection and classifies the outcome into a (phase, status) pair. It is
// grounded on the teacher's pkg/failsafe.Timer for the
// state-plus-time.AfterFunc-callback shape (here: dispatcher.PostDelayed
// instead of a bare time.Timer, so the detector's own callbacks run on the
// single dispatcher thread per spec.md section 5) and on pkg/discovery's
// goroutine-does-blocking-I/O idiom for the HTTP probe itself. Constants and
// the 204-probe semantics are grounded on the original implementation's
// portal_detector.cc.
package portal

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/shillgo/shillgo/pkg/dispatcher"
)

// Detection constants, named and valued after the original implementation.
const (
	DefaultURL                 = "http://clients3.google.com/generate_204"
	MaxRequestAttempts         = 3
	MinTimeBetweenAttempts     = 3 * time.Second
	RequestTimeout             = 10 * time.Second
)

// Phase identifies which stage of the probe produced a Result.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhaseConnection
	PhaseDNS
	PhaseHTTP
	PhaseContent
)

func (p Phase) String() string {
	switch p {
	case PhaseConnection:
		return "Connection"
	case PhaseDNS:
		return "DNS"
	case PhaseHTTP:
		return "HTTP"
	case PhaseContent:
		return "Content"
	default:
		return "Unknown"
	}
}

// Status is the outcome of a single attempt.
type Status int

const (
	StatusFailure Status = iota
	StatusSuccess
	StatusTimeout
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "Success"
	case StatusTimeout:
		return "Timeout"
	default:
		return "Failure"
	}
}

// Result is delivered to the caller's callback on every attempt completion.
type Result struct {
	Phase Phase
	Status Status
	// Final is true once no further attempt will be made: either the probe
	// succeeded, or the attempt budget is exhausted.
	Final bool
}

// Fetcher performs the HTTP probe; the default implementation wraps
// http.Client, tests inject a fake to control phase/status classification
// deterministically.
type Fetcher interface {
	Get(ctx context.Context, url string) (*http.Response, error)
}

// httpFetcher is the production Fetcher.
type httpFetcher struct {
	client *http.Client
}

func (f *httpFetcher) Get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	return f.client.Do(req)
}

// Detector runs the Idle -> Attempt(n) -> Idle state machine of spec.md
// section 4.6.
type Detector struct {
	disp    *dispatcher.Dispatcher
	fetcher Fetcher
	now     func() time.Time

	onResult func(Result)

	url           *url.URL
	attemptCount  int
	attemptStart  time.Time
	running       bool
	timeoutToken  dispatcher.Token
	hasTimeout    bool
	generation    int
}

// New creates a Detector that schedules its attempts on disp and probes with
// fetcher. A nil fetcher uses a production http.Client.
func New(disp *dispatcher.Dispatcher, fetcher Fetcher) *Detector {
	if fetcher == nil {
		fetcher = &httpFetcher{client: &http.Client{Timeout: RequestTimeout}}
	}
	return &Detector{disp: disp, fetcher: fetcher, now: time.Now}
}

// SetClock overrides the time source, for deterministic tests of the
// minimum-time-between-attempts spacing.
func (d *Detector) SetClock(now func() time.Time) { d.now = now }

// Start parses urlString, resets attempt_count to 0, and begins the first
// attempt. cb is invoked once per completed attempt. Returns an error if
// urlString does not parse.
func (d *Detector) Start(urlString string, cb func(Result)) error {
	u, err := url.Parse(urlString)
	if err != nil {
		return err
	}
	d.generation++
	d.url = u
	d.attemptCount = 0
	d.running = true
	d.onResult = cb
	d.startAttempt()
	return nil
}

// Stop turns any scheduled attempt into a no-op, cancels the request
// timeout timer and discards the result of an attempt still in flight; the
// HTTP request itself is not aborted and runs until it completes or
// RequestTimeout expires. A no-op when idle.
func (d *Detector) Stop() {
	if !d.running {
		return
	}
	d.running = false
	d.generation++ // invalidates any in-flight fetch's result delivery
	if d.hasTimeout {
		d.timeoutToken.Cancel()
		d.hasTimeout = false
	}
}

func (d *Detector) startAttempt() {
	delay := time.Duration(0)
	if d.attemptCount > 0 {
		elapsed := d.now().Sub(d.attemptStart)
		if elapsed < MinTimeBetweenAttempts {
			delay = MinTimeBetweenAttempts - elapsed
		}
	}
	d.disp.PostDelayed(delay, d.startAttemptTask)
}

func (d *Detector) startAttemptTask() {
	if !d.running {
		return
	}
	d.attemptStart = d.now()
	d.attemptCount++
	gen := d.generation

	ctx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
	d.timeoutToken = d.disp.PostDelayed(RequestTimeout, func() {
		cancel()
	})
	d.hasTimeout = true

	u := d.url.String()
	go func() {
		resp, err := d.fetcher.Get(ctx, u)
		cancel()
		result := classify(resp, err)
		d.disp.Post(func() {
			if gen != d.generation {
				return // Stop (or a fresh Start) happened while this attempt was in flight.
			}
			d.completeAttempt(result)
		})
	}()
}

func (d *Detector) completeAttempt(result Result) {
	if d.hasTimeout {
		d.timeoutToken.Cancel()
		d.hasTimeout = false
	}

	if result.Status != StatusSuccess && d.attemptCount < MaxRequestAttempts {
		d.startAttempt()
	} else {
		result.Final = true
		d.running = false
	}

	if d.onResult != nil {
		d.onResult(result)
	}
}

// classify maps an HTTP round trip's outcome to a (phase, status) pair per
// spec.md section 4.6.
func classify(resp *http.Response, err error) Result {
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNoContent {
			return Result{Phase: PhaseContent, Status: StatusSuccess}
		}
		return Result{Phase: PhaseContent, Status: StatusFailure}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Result{Phase: PhaseHTTP, Status: StatusTimeout}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return Result{Phase: PhaseDNS, Status: StatusTimeout}
		}
		return Result{Phase: PhaseDNS, Status: StatusFailure}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		if opErr.Timeout() {
			return Result{Phase: PhaseConnection, Status: StatusTimeout}
		}
		return Result{Phase: PhaseConnection, Status: StatusFailure}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Result{Phase: PhaseHTTP, Status: StatusTimeout}
	}

	return Result{Phase: PhaseUnknown, Status: StatusFailure}
}
