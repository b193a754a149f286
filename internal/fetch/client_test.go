package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	scrapeerrors "bookscrape/internal/errors"
	"bookscrape/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.MaxRetries = 2
	cfg.RetryBackoff = 5 * time.Millisecond
	cfg.MaxBackoff = 20 * time.Millisecond
	cfg.Logger = zap.NewNop()
	return cfg
}

// TestNewClient tests client creation with various configurations.
func TestNewClient(t *testing.T) {
	t.Cleanup(func() { _ = logging.Close() })

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errSubstr string
	}{
		{
			name:    "default config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:      "invalid Timeout",
			mutate:    func(c *Config) { c.Timeout = 0 },
			wantErr:   true,
			errSubstr: "Timeout",
		},
		{
			name:      "invalid MaxRetries",
			mutate:    func(c *Config) { c.MaxRetries = -1 },
			wantErr:   true,
			errSubstr: "MaxRetries",
		},
		{
			name:      "invalid MaxBodySize",
			mutate:    func(c *Config) { c.MaxBodySize = 0 },
			wantErr:   true,
			errSubstr: "MaxBodySize",
		},
		{
			name:      "negative Delay",
			mutate:    func(c *Config) { c.Delay = -time.Second },
			wantErr:   true,
			errSubstr: "Delay",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(cfg)

			client, err := NewClient(cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, client)
		})
	}
}

// TestClientGet tests a successful fetch.
func TestClientGet(t *testing.T) {
	t.Cleanup(func() { _ = logging.Close() })

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig())
	require.NoError(t, err)

	body, err := client.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", string(body))
	assert.Equal(t, DefaultUserAgent, gotUA)
}

// TestClientGetNotFound tests that 404 fails fast without retries.
func TestClientGetNotFound(t *testing.T) {
	t.Cleanup(func() { _ = logging.Close() })

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := NewClient(testConfig())
	require.NoError(t, err)

	_, err = client.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, scrapeerrors.ErrCodeFetchBadStatus, scrapeerrors.GetErrorCode(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "404 should not be retried")
}

// TestClientGetRetriesServerError tests retry on 5xx followed by success.
func TestClientGetRetriesServerError(t *testing.T) {
	t.Cleanup(func() { _ = logging.Close() })

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	client, err := NewClient(testConfig())
	require.NoError(t, err)

	body, err := client.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "recovered", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

// TestClientGetRetriesExhausted tests failure after all retries.
func TestClientGetRetriesExhausted(t *testing.T) {
	t.Cleanup(func() { _ = logging.Close() })

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient(testConfig())
	require.NoError(t, err)

	_, err = client.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch failed after 3 attempts")
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits), "initial attempt plus two retries")
}

// TestClientGetContextCancelled tests that cancellation aborts the fetch.
func TestClientGetContextCancelled(t *testing.T) {
	t.Cleanup(func() { _ = logging.Close() })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.RetryBackoff = 10 * time.Second // cancellation must win, not the backoff
	client, err := NewClient(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err = client.Get(ctx, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestClientGetBodyLimit tests that oversized bodies are truncated.
func TestClientGetBodyLimit(t *testing.T) {
	t.Cleanup(func() { _ = logging.Close() })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 4096))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.MaxBodySize = 1024
	client, err := NewClient(cfg)
	require.NoError(t, err)

	body, err := client.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, body, 1024)
}

// TestClientDelay tests that the politeness delay spaces out requests.
func TestClientDelay(t *testing.T) {
	t.Cleanup(func() { _ = logging.Close() })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := testConfig()
	cfg.Delay = 50 * time.Millisecond
	client, err := NewClient(cfg)
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Get(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	// First request is immediate, the next two wait out the delay.
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}
