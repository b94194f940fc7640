// internal/knowledge/weaviate.go
package knowledge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/lodestar-research/lodestar/api/schemas"
	"github.com/lodestar-research/lodestar/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Static assertion.
var _ schemas.KnowledgeStore = (*WeaviateStore)(nil)

// WeaviateStore writes entries as objects of the configured class via the
// Weaviate REST API.
type WeaviateStore struct {
	baseURL    string
	apiKey     string
	class      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewWeaviateStore builds a store for the given cluster.
func NewWeaviateStore(cfg config.WeaviateConfig, logger *zap.Logger) *WeaviateStore {
	class := cfg.Class
	if class == "" {
		class = "News"
	}
	return &WeaviateStore{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		class:      class,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.Named("weaviate"),
	}
}

type weaviateObject struct {
	Class      string         `json:"class"`
	Properties map[string]any `json:"properties"`
}

// Insert creates one object for the entry. The stored time is the entry's
// timestamp if set, otherwise now, in RFC3339.
func (s *WeaviateStore) Insert(ctx context.Context, entry schemas.DBEntry) error {
	stamp := entry.Time
	if stamp == "" {
		stamp = time.Now().UTC().Format(time.RFC3339)
	}
	body, err := json.Marshal(weaviateObject{
		Class: s.class,
		Properties: map[string]any{
			"ticker": entry.Ticker,
			"signal": string(entry.Signal),
			"title":  entry.Title,
			"body":   entry.Body,
			"time":   stamp,
		},
	})
	if err != nil {
		return fmt.Errorf("knowledge: marshal weaviate object: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/objects", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("knowledge: build weaviate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("knowledge: weaviate insert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("knowledge: weaviate insert failed (status %d): %s", resp.StatusCode, string(detail))
	}

	s.logger.Debug("Entry stored in Weaviate.",
		zap.String("ticker", entry.Ticker), zap.String("signal", string(entry.Signal)))
	return nil
}

// Enabled reports true.
func (s *WeaviateStore) Enabled() bool { return true }

// Close is a no-op for the HTTP-backed store.
func (s *WeaviateStore) Close() {}
