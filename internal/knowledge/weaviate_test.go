// internal/knowledge/weaviate_test.go
package knowledge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lodestar-research/lodestar/api/schemas"
	"github.com/lodestar-research/lodestar/internal/config"
)

func TestWeaviateStore_Insert(t *testing.T) {
	var captured weaviateObject
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/objects", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	defer server.Close()

	store := NewWeaviateStore(config.WeaviateConfig{
		URL:    server.URL,
		APIKey: "secret",
		Class:  "News",
	}, zaptest.NewLogger(t))

	err := store.Insert(context.Background(), schemas.DBEntry{
		Ticker: "ACME",
		Signal: schemas.SignalPositive,
		Title:  "ACME beats estimates",
		Body:   "Revenue above expectations.",
		Time:   "2026-08-30T12:00:00Z",
	})
	require.NoError(t, err)

	assert.Equal(t, "News", captured.Class)
	assert.Equal(t, "ACME", captured.Properties["ticker"])
	assert.Equal(t, "Positive", captured.Properties["signal"])
	assert.Equal(t, "2026-08-30T12:00:00Z", captured.Properties["time"])
	assert.True(t, store.Enabled())
}

func TestWeaviateStore_InsertErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":[{"message":"invalid class"}]}`))
	}))
	defer server.Close()

	store := NewWeaviateStore(config.WeaviateConfig{URL: server.URL}, zaptest.NewLogger(t))
	err := store.Insert(context.Background(), schemas.DBEntry{Ticker: "ACME"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 422")
}

func TestNewStore_FallsBackToDisabled(t *testing.T) {
	logger := zaptest.NewLogger(t)

	store, err := NewStore(context.Background(), config.StoreConfig{
		Backend: config.StoreWeaviate,
	}, logger)
	require.NoError(t, err)
	assert.False(t, store.Enabled())
	require.NoError(t, store.Insert(context.Background(), schemas.DBEntry{Ticker: "ACME"}))

	store, err = NewStore(context.Background(), config.StoreConfig{}, logger)
	require.NoError(t, err)
	assert.False(t, store.Enabled())
}

func TestNewStore_UnsupportedBackend(t *testing.T) {
	_, err := NewStore(context.Background(), config.StoreConfig{Backend: "redis"}, zaptest.NewLogger(t))
	require.Error(t, err)
}
