package ai_test

import (
	"context"
	"encoding/json"
	"github.com/myrjola/caselink/internal/ai"
	"github.com/myrjola/caselink/internal/testhelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const embeddingResponse = `{
	"object": "list",
	"data": [{"object": "embedding", "embedding": [0.5, -0.25, 1], "index": 0}],
	"model": "text-embedding-ada-002",
	"usage": {"prompt_tokens": 3, "total_tokens": 3}
}`

type embeddingServer struct {
	*httptest.Server
	requests atomic.Int32
}

func newEmbeddingServer(t *testing.T, status int, body string) *embeddingServer {
	t.Helper()
	s := &embeddingServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"masked suspects"}, req.Input)
		assert.Equal(t, "text-embedding-ada-002", req.Model)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s
}

func newClient(t *testing.T, baseURL string, timeout time.Duration) *ai.EmbeddingClient {
	t.Helper()
	client, err := ai.NewEmbeddingClient(ai.EmbeddingConfig{
		APIKey:    "test-key",
		BaseURL:   baseURL,
		Model:     "",
		Timeout:   timeout,
		CacheSize: 2,
	}, testhelpers.NewLogger(io.Discard))
	require.NoError(t, err)
	return client
}

func TestEmbeddingClient_Embed(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		status  int
		body    string
		want    []float64
		wantErr bool
	}{
		{name: "success", status: http.StatusOK, body: embeddingResponse, want: []float64{0.5, -0.25, 1}},
		{
			name:    "rate limited",
			status:  http.StatusTooManyRequests,
			body:    `{"error": {"message": "Rate limit exceeded", "type": "rate_limit_exceeded"}}`,
			wantErr: true,
		},
		{
			name:    "empty data",
			status:  http.StatusOK,
			body:    `{"object": "list", "data": [], "model": "text-embedding-ada-002"}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := newEmbeddingServer(t, tt.status, tt.body)
			client := newClient(t, server.URL, time.Second)

			got, err := client.Embed(context.Background(), "  masked suspects ")
			if tt.wantErr {
				require.Error(t, err)
				require.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestEmbeddingClient_EmbedCaches(t *testing.T) {
	t.Parallel()
	server := newEmbeddingServer(t, http.StatusOK, embeddingResponse)
	client := newClient(t, server.URL, time.Second)
	ctx := context.Background()

	first, err := client.Embed(ctx, "masked suspects")
	require.NoError(t, err)
	second, err := client.Embed(ctx, "masked suspects")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, int32(1), server.requests.Load())

	// Modifying a result leaves the cached vector intact.
	first[0] = 42
	second[1] = 42
	third, err := client.Embed(ctx, "masked suspects")
	require.NoError(t, err)
	require.Equal(t, []float64{0.5, -0.25, 1}, third)
}

func TestEmbeddingClient_EmbedEmptyText(t *testing.T) {
	t.Parallel()
	client := newClient(t, "http://127.0.0.1:1", time.Second)
	_, err := client.Embed(context.Background(), "   ")
	require.ErrorIs(t, err, ai.ErrEmptyText)
}

func TestEmbeddingClient_EmbedTimeout(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	t.Cleanup(server.Close)
	client := newClient(t, server.URL, 20*time.Millisecond)

	start := time.Now()
	_, err := client.Embed(context.Background(), "masked suspects")
	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
}
