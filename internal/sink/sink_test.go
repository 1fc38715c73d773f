package sink

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	require.NoError(t, c.WriteLine(context.Background(), "BigInt: OK"))
	require.NoError(t, c.WriteLine(context.Background(), ""))
	assert.Equal(t, "BigInt: OK\n\n", buf.String())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.WriteLine(ctx, "late"), context.Canceled)
}

type failing struct{}

func (failing) WriteLine(context.Context, string) error { return errors.New("closed") }

func TestTee(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	require.NoError(t, Tee{a, b}.WriteLine(context.Background(), "x"))
	assert.Equal(t, []string{"x"}, a.Lines())
	assert.Equal(t, []string{"x"}, b.Lines())

	c := &Recorder{}
	err := Tee{failing{}, c}.WriteLine(context.Background(), "y")
	assert.Error(t, err)
	assert.Empty(t, c.Lines())
}

func TestHTTPPostsLines(t *testing.T) {
	var (
		mu    sync.Mutex
		got   []string
		ctype string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		got = append(got, string(body))
		ctype = r.Header.Get("Content-Type")
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewHTTP(HTTPConfig{URL: srv.URL + "/log"})
	for _, line := range []string{"Core Feature Detection", "BigInt: OK"} {
		require.NoError(t, s.WriteLine(context.Background(), line))
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"Core Feature Detection", "BigInt: OK"}, got)
	assert.Equal(t, "text/plain; charset=utf-8", ctype)
}

func TestHTTPRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewHTTP(HTTPConfig{URL: srv.URL, RetryWaitMin: time.Millisecond, RetryWaitMax: 5 * time.Millisecond})
	require.NoError(t, s.WriteLine(context.Background(), "line"))
	assert.Equal(t, int32(3), hits.Load())
}

func TestHTTPRejectsClientErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	s := NewHTTP(HTTPConfig{URL: srv.URL, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond})
	err := s.WriteLine(context.Background(), "line")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestHTTPGivesUp(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewHTTP(HTTPConfig{URL: srv.URL, RetryMax: 2, RetryWaitMin: time.Millisecond, RetryWaitMax: time.Millisecond})
	assert.Error(t, s.WriteLine(context.Background(), "line"))
	assert.Equal(t, int32(3), hits.Load())
}
