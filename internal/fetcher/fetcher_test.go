package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/geocontext/internal/protocol"
)

func TestSend_AppliesHeadersAndCredentials(t *testing.T) {
	var gotUA, gotAPIKey string
	var gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAPIKey = r.Header.Get("X-Api-Key")
		gotUser, gotPass, _ = r.BasicAuth()
		_, _ = w.Write([]byte("payload"))
	}))
	defer srv.Close()

	c := New(Options{UserAgent: "geocontext-test/1.0"})
	body, resolvedURL, err := c.Send(context.Background(), &protocol.Request{
		URL:      srv.URL + "/wfs",
		Username: "user",
		Password: "secret",
		APIKey:   "abc123",
	})
	require.NoError(t, err)

	assert.Equal(t, []byte("payload"), body)
	assert.Equal(t, srv.URL+"/wfs", resolvedURL)
	assert.Equal(t, "geocontext-test/1.0", gotUA)
	assert.Equal(t, "abc123", gotAPIKey)
	assert.Equal(t, "user", gotUser)
	assert.Equal(t, "secret", gotPass)
}

func TestSend_ResolvedURLFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("moved"))
	})

	c := New(Options{})
	body, resolvedURL, err := c.Send(context.Background(), &protocol.Request{URL: srv.URL + "/old"})
	require.NoError(t, err)
	assert.Equal(t, []byte("moved"), body)
	assert.Equal(t, srv.URL+"/new", resolvedURL)
}

func TestSend_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Options{})
	_, _, err := c.Send(context.Background(), &protocol.Request{URL: srv.URL})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSend_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := New(Options{Timeout: 10 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err := c.Send(ctx, &protocol.Request{URL: srv.URL})
	assert.Error(t, err)
}

func TestSend_RateLimiterWaits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	host := srv.Listener.Addr().String()
	c := New(Options{RateLimits: map[string]*rate.Limiter{
		host: rate.NewLimiter(rate.Every(30*time.Millisecond), 1),
	}})

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, _, err := c.Send(context.Background(), &protocol.Request{URL: srv.URL})
		require.NoError(t, err)
	}
	// Burst 1 at ~33 req/s: three calls need at least two full intervals.
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}
