package portal

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/shillgo/shillgo/pkg/dispatcher"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	responses []fakeResponse
	call      int
	starts    []time.Time
	now       func() time.Time
}

type fakeResponse struct {
	status int
	err    error
}

func (f *fakeFetcher) Get(ctx context.Context, url string) (*http.Response, error) {
	f.starts = append(f.starts, f.now())
	r := f.responses[f.call]
	if f.call < len(f.responses)-1 {
		f.call++
	}
	if r.err != nil {
		return nil, r.err
	}
	return &http.Response{StatusCode: r.status, Body: http.NoBody}, nil
}

func waitForAttempt(t *testing.T, d *dispatcher.Dispatcher, results *[]Result, want int) {
	t.Helper()
	for i := 0; i < 1000 && len(*results) < want; i++ {
		d.DispatchPendingEvents()
		time.Sleep(time.Millisecond)
	}
	require.Len(t, *results, want)
}

func TestPortal204SucceedsOnFirstAttempt(t *testing.T) {
	now := time.Unix(1700000000, 0)
	d := dispatcher.NewWithClock(func() time.Time { return now })
	fetcher := &fakeFetcher{responses: []fakeResponse{{status: http.StatusNoContent}}, now: func() time.Time { return now }}
	det := New(d, fetcher)
	det.SetClock(func() time.Time { return now })

	var results []Result
	require.NoError(t, det.Start(DefaultURL, func(r Result) { results = append(results, r) }))
	waitForAttempt(t, d, &results, 1)

	require.Equal(t, PhaseContent, results[0].Phase)
	require.Equal(t, StatusSuccess, results[0].Status)
	require.True(t, results[0].Final)
}

func TestPortalDNSTimeoutExhaustsAttempts(t *testing.T) {
	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }
	d := dispatcher.NewWithClock(clock)
	dnsErr := &net.DNSError{IsTimeout: true}
	fetcher := &fakeFetcher{
		responses: []fakeResponse{{err: dnsErr}, {err: dnsErr}, {err: dnsErr}},
		now:       clock,
	}
	det := New(d, fetcher)
	det.SetClock(clock)

	var results []Result
	require.NoError(t, det.Start(DefaultURL, func(r Result) { results = append(results, r) }))
	waitForAttempt(t, d, &results, 1)
	now = now.Add(MinTimeBetweenAttempts)
	waitForAttempt(t, d, &results, 2)
	now = now.Add(MinTimeBetweenAttempts)
	waitForAttempt(t, d, &results, 3)

	require.Len(t, results, MaxRequestAttempts)
	for i, r := range results {
		require.Equal(t, PhaseDNS, r.Phase)
		require.Equal(t, StatusTimeout, r.Status)
		require.Equal(t, i == MaxRequestAttempts-1, r.Final)
	}
}

func TestStopIsNoopWhenIdle(t *testing.T) {
	d := dispatcher.New()
	det := New(d, &fakeFetcher{responses: []fakeResponse{{status: 200}}, now: time.Now})
	require.NotPanics(t, func() { det.Stop() })
}

func TestStopCancelsInFlightAttempt(t *testing.T) {
	d := dispatcher.New()
	fetcher := &fakeFetcher{responses: []fakeResponse{{status: http.StatusNoContent}}, now: time.Now}
	det := New(d, fetcher)

	var results []Result
	require.NoError(t, det.Start(DefaultURL, func(r Result) { results = append(results, r) }))
	det.Stop()
	d.DispatchPendingEvents()
	time.Sleep(20 * time.Millisecond)
	d.DispatchPendingEvents()

	require.Empty(t, results, "a result delivered after Stop must be dropped")
}

func TestClassifyContentMismatchIsFailureNotSuccess(t *testing.T) {
	r := classify(&http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil)
	require.Equal(t, PhaseContent, r.Phase)
	require.Equal(t, StatusFailure, r.Status)
}

func TestClassifyDeadlineExceededIsHTTPTimeout(t *testing.T) {
	r := classify(nil, context.DeadlineExceeded)
	require.Equal(t, PhaseHTTP, r.Phase)
	require.Equal(t, StatusTimeout, r.Status)
}

func TestClassifyDialFailureIsConnectionPhase(t *testing.T) {
	r := classify(nil, &net.OpError{Op: "dial", Err: context.DeadlineExceeded})
	require.Equal(t, PhaseConnection, r.Phase)
}

func TestStartFailsOnUnparsableURL(t *testing.T) {
	d := dispatcher.New()
	det := New(d, &fakeFetcher{responses: []fakeResponse{{status: 200}}, now: time.Now})
	err := det.Start("http://[::1", func(Result) {})
	require.Error(t, err)
}
