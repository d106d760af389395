package retry_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"pixel-compare/internal/retry"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type transportMock struct {
	fakeRoundTrip func(*http.Request) (*http.Response, error)
}

func (m *transportMock) RoundTrip(request *http.Request) (*http.Response, error) {
	return m.fakeRoundTrip(request)
}

type temporaryError struct {
	s string
}

func (te *temporaryError) Error() string {
	return te.s
}

func (te *temporaryError) Temporary() bool {
	return true
}

// outcome is either a status code or a transport error.
type outcome struct {
	statusCode int
	err        error
}

// scripted replays outcomes in order and repeats the last one.
func scripted(attempts *atomic.Int32, outcomes ...outcome) *transportMock {
	return &transportMock{
		fakeRoundTrip: func(request *http.Request) (*http.Response, error) {
			i := int(attempts.Add(1)) - 1
			o := outcomes[min(i, len(outcomes)-1)]
			if o.err != nil {
				return nil, o.err
			}
			return &http.Response{
				StatusCode: o.statusCode,
				Body:       io.NopCloser(strings.NewReader(http.StatusText(o.statusCode))),
			}, nil
		},
	}
}

func TestHTTPClientDo(t *testing.T) {
	tests := []struct {
		name            string
		outcomes        []outcome
		wantStatusCode  int
		wantErrorString string
		wantAttempts    int32
	}{
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			[]outcome{{statusCode: http.StatusOK}},
			http.StatusOK,
			"",
			1,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			[]outcome{{statusCode: http.StatusBadGateway}, {statusCode: http.StatusServiceUnavailable}, {statusCode: http.StatusOK}},
			http.StatusOK,
			"",
			3,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			[]outcome{{statusCode: http.StatusBadGateway}},
			http.StatusBadGateway,
			"",
			4,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			[]outcome{{statusCode: http.StatusNotFound}},
			http.StatusNotFound,
			"",
			1,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			[]outcome{{err: &temporaryError{"fake"}}, {statusCode: http.StatusOK}},
			http.StatusOK,
			"",
			2,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			[]outcome{{err: &temporaryError{"fake"}}},
			0,
			`Get "/image.png": fake`,
			4,
		},
		{
			func() string {
				_, _, line, _ := runtime.Caller(1)
				return fmt.Sprintf("L%d", line)
			}(),
			[]outcome{{err: errors.New("fake")}},
			0,
			`Get "/image.png": fake`,
			1,
		},
	}
	for _, tt := range tests {
		name := tt.name
		outcomes := tt.outcomes
		wantStatusCode := tt.wantStatusCode
		wantErrorString := tt.wantErrorString
		wantAttempts := tt.wantAttempts
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var attempts atomic.Int32
			client := &http.Client{
				Transport: &retry.Transport{
					Base:          scripted(&attempts, outcomes...),
					RetryStrategy: retry.NewExponentialBackOff(time.Millisecond, 10*time.Millisecond, 3, nil),
					RetryOn:       retry.NewDefaultRetryOn(),
				},
			}

			request, err := http.NewRequest(http.MethodGet, "/image.png", nil)
			if err != nil {
				t.Fatal(err)
			}

			response, err := client.Do(request)
			if err == nil {
				defer response.Body.Close()
				if diff := cmp.Diff(wantStatusCode, response.StatusCode); diff != "" {
					t.Errorf("(-want +got):\n%s", diff)
				}
			}

			gotErrorString := ""
			if err != nil {
				gotErrorString = err.Error()
			}
			if diff := cmp.Diff(wantErrorString, gotErrorString); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(wantAttempts, attempts.Load()); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestHTTPClientDoWithoutRetryOn(t *testing.T) {
	var attempts atomic.Int32
	client := &http.Client{
		Transport: &retry.Transport{
			Base:          scripted(&attempts, outcome{statusCode: http.StatusBadGateway}),
			RetryStrategy: retry.NewExponentialBackOff(time.Millisecond, 10*time.Millisecond, 3, nil),
		},
	}

	response, err := client.Get("/image.png")
	if err != nil {
		t.Fatal(err)
	}
	defer response.Body.Close()

	if attempts.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", attempts.Load())
	}
}

func TestHTTPClientDoCanceledWhileWaiting(t *testing.T) {
	var attempts atomic.Int32
	client := &http.Client{
		Transport: &retry.Transport{
			Base:          scripted(&attempts, outcome{statusCode: http.StatusBadGateway}),
			RetryStrategy: retry.NewExponentialBackOff(time.Hour, time.Hour, 3, func(n int64) int64 { return n }),
			RetryOn:       retry.NewDefaultRetryOn(),
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, "/image.png", nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.Do(request); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", attempts.Load())
	}
}

func TestHTTPClientDoRewindsBody(t *testing.T) {
	var bodies []string
	client := &http.Client{
		Transport: &retry.Transport{
			Base: &transportMock{
				fakeRoundTrip: func(request *http.Request) (*http.Response, error) {
					b, err := io.ReadAll(request.Body)
					if err != nil {
						return nil, err
					}
					bodies = append(bodies, string(b))
					statusCode := http.StatusOK
					if len(bodies) == 1 {
						statusCode = http.StatusBadGateway
					}
					return &http.Response{
						StatusCode: statusCode,
						Body:       io.NopCloser(strings.NewReader("")),
					}, nil
				},
			},
			RetryStrategy: retry.NewExponentialBackOff(time.Millisecond, 10*time.Millisecond, 3, nil),
			RetryOn:       retry.NewDefaultRetryOn(),
		},
	}

	request, err := http.NewRequest(http.MethodPatch, "/callback", strings.NewReader(`{"equal":true}`))
	if err != nil {
		t.Fatal(err)
	}

	response, err := client.Do(request)
	if err != nil {
		t.Fatal(err)
	}
	defer response.Body.Close()

	if diff := cmp.Diff([]string{`{"equal":true}`, `{"equal":true}`}, bodies); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestHTTPClientDoRejectsUnrewindableBody(t *testing.T) {
	var attempts atomic.Int32
	client := &http.Client{
		Transport: &retry.Transport{
			Base:          scripted(&attempts, outcome{err: &temporaryError{"fake"}}),
			RetryStrategy: retry.NewExponentialBackOff(time.Millisecond, 10*time.Millisecond, 3, nil),
			RetryOn:       retry.NewDefaultRetryOn(),
		},
	}

	request, err := http.NewRequest(http.MethodPatch, "/callback", io.NopCloser(strings.NewReader("{}")))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.Do(request); err == nil || !strings.Contains(err.Error(), "request body is not rewindable") {
		t.Errorf("expected rewind error, got %v", err)
	}
}
