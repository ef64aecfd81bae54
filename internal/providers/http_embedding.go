package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPEmbeddingBackend calls a remote embedding model over HTTP. It
// implements EmbeddingBackend and is safe for concurrent use (§4.1:
// "fully reentrant").
type HTTPEmbeddingBackend struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	httpClient *http.Client
}

// NewHTTPEmbeddingBackend constructs an embedding backend for the given
// model tag, truncating every response vector to dimension D per spec.md
// §9 (a single D per embedding_model, schema-homogeneous index).
func NewHTTPEmbeddingBackend(baseURL, apiKey, model string, dimension int, timeout time.Duration) *HTTPEmbeddingBackend {
	return &HTTPEmbeddingBackend{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		dimension:  dimension,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (b *HTTPEmbeddingBackend) Model() string   { return b.model }
func (b *HTTPEmbeddingBackend) Dimension() int  { return b.dimension }

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Task  string `json:"task"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed calls the remote embedding endpoint. Transport failures (network
// errors, timeouts, 5xx) are returned as retryable; 4xx responses are
// terminal — the caller (the Retrieval Pipeline or Indexer) decides what
// to degrade to.
func (b *HTTPEmbeddingBackend) Embed(ctx context.Context, text, task string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Model: b.model, Input: text, Task: task})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, &retryableError{cause: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 500 {
		return nil, &retryableError{cause: fmt.Errorf("embedding provider %d: %s", resp.StatusCode, string(raw))}
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("embedding provider rejected request: %d: %s", resp.StatusCode, string(raw))
	}

	var out embedResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}

	vec := out.Embedding
	if len(vec) > b.dimension {
		vec = vec[:b.dimension]
	}
	return vec, nil
}

// retryableError marks a transport-level failure (timeout, connection
// refused, 5xx) as retryable, per the Retryable/Terminal split in §4.1.
type retryableError struct{ cause error }

func (e *retryableError) Error() string { return e.cause.Error() }
func (e *retryableError) Unwrap() error { return e.cause }

// IsRetryable reports whether err represents a retryable transport failure.
func IsRetryable(err error) bool {
	var r *retryableError
	return errors.As(err, &r)
}
