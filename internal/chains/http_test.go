package chains

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRESTClientPacesRequests(t *testing.T) {
	var hits int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		assert.Equal(t, "node-key", r.Header.Get(tronAPIKeyHeader))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newRESTClient(server.URL, tronAPIKeyHeader, "node-key", 20)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.R().SetContext(context.Background()).Get("/")
		require.NoError(t, err)
	}
	// one request up front, then one every 50ms
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Equal(t, int64(3), atomic.LoadInt64(&hits))

	// a caller that cannot wait for its turn never reaches the node
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	_, err := client.R().SetContext(ctx).Get("/")
	require.Error(t, err)
	assert.Equal(t, int64(3), atomic.LoadInt64(&hits))
}

func TestRESTClientUnpaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(tronAPIKeyHeader))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newRESTClient(server.URL, tronAPIKeyHeader, "", 0)
	start := time.Now()
	for i := 0; i < 5; i++ {
		_, err := client.R().Get("/")
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), time.Second)
}
