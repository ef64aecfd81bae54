package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

// HTTPReranker calls a remote cross-encoder reranking model over HTTP.
// It implements Reranker. A nil *HTTPReranker is never constructed by
// NewHTTPReranker's caller when RERANKER_PROVIDER_KEY is unset — wiring
// code passes a nil Reranker interface value instead (§4.2).
type HTTPReranker struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPReranker constructs a reranker client.
func NewHTTPReranker(baseURL, apiKey string, timeout time.Duration) *HTTPReranker {
	return &HTTPReranker{baseURL: baseURL, apiKey: apiKey, httpClient: &http.Client{Timeout: timeout}}
}

type rerankRequest struct {
	Query      string   `json:"query"`
	Documents  []string `json:"documents"`
	TopN       int      `json:"top_n"`
}

type rerankResponseItem struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type rerankResponse struct {
	Results []rerankResponseItem `json:"results"`
}

// Rerank scores up to len(candidates) (query, text) pairs and returns the
// top topK sorted by relevance descending. candidates[i].Index is the
// caller's original index, preserved in the result so the caller can map
// back to its own candidate list.
func (r *HTTPReranker) Rerank(ctx context.Context, query string, candidates []RerankCandidate, topK int) ([]RerankResult, error) {
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	body, err := json.Marshal(rerankRequest{Query: query, Documents: texts, TopN: topK})
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, &retryableError{cause: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 500 {
		return nil, &retryableError{cause: fmt.Errorf("reranker provider %d: %s", resp.StatusCode, string(raw))}
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("reranker provider rejected request: %d: %s", resp.StatusCode, string(raw))
	}

	var out rerankResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}

	results := make([]RerankResult, 0, len(out.Results))
	for _, item := range out.Results {
		origIndex := item.Index
		if origIndex >= 0 && origIndex < len(candidates) {
			origIndex = candidates[origIndex].Index
		}
		results = append(results, RerankResult{Index: origIndex, Relevance: item.RelevanceScore})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Relevance > results[j].Relevance })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}
