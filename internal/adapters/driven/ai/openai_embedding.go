package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/retriva-core/internal/core/domain"
	"github.com/custodia-labs/retriva-core/internal/core/ports/driven"
)

// Ensure OpenAIEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*OpenAIEmbedding)(nil)

// embedBatchSize caps how many chunk texts go into a single API call when
// ingestion embeds a document batch.
const embedBatchSize = 128

// OpenAIEmbedding implements EmbeddingService against OpenAI's embeddings
// API. Document embedding splits large chunk batches across sequential API
// calls; query embedding is a single-input call on the same model. Transport
// and API failures surface as domain.ErrServiceUnavailable so the query
// pipeline can degrade to text-only retrieval and ingestion can retry.
type OpenAIEmbedding struct {
	apiKey    string
	model     string
	baseURL   string
	batchSize int
	client    *http.Client
}

// NewOpenAIEmbedding creates a new OpenAI embedding service
func NewOpenAIEmbedding(apiKey, model, baseURL string) (driven.EmbeddingService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", domain.ErrInvalidInput)
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAIEmbedding{
		apiKey:    apiKey,
		model:     model,
		baseURL:   baseURL,
		batchSize: embedBatchSize,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// dimensionsFor maps supported OpenAI models to their vector width. Unknown
// models get the small model's width; the dense index rejects mismatched
// vectors at insert time either way.
func dimensionsFor(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	default:
		return 1536
	}
}

// embedRequest is the request body for the embeddings API
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse is the response from the embeddings API
type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Embed generates embeddings for a batch of chunk texts. The result is
// index-aligned with the input; batches larger than embedBatchSize are split
// across multiple API calls.
func (e *OpenAIEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		batch, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// EmbedQuery generates an embedding for a single search query.
func (e *OpenAIEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	vectors, err := e.embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// embed issues one embeddings API call and returns vectors aligned with the
// batch. A response that does not cover the whole batch is an error, never a
// partial result with holes.
func (e *OpenAIEmbedding) embed(ctx context.Context, batch []string) ([][]float32, error) {
	resp, err := e.post(ctx, embedRequest{Model: e.model, Input: batch})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(batch) {
		return nil, fmt.Errorf("%w: embeddings API returned %d vectors for %d inputs",
			domain.ErrServiceUnavailable, len(resp.Data), len(batch))
	}

	vectors := make([][]float32, len(batch))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: embeddings API returned out-of-range index %d",
				domain.ErrServiceUnavailable, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

// post sends one request to the embeddings endpoint.
func (e *OpenAIEmbedding) post(ctx context.Context, reqBody embedRequest) (*embedResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build embeddings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: embeddings API: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read embeddings response: %v", domain.ErrServiceUnavailable, err)
	}

	var parsed embedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse embeddings response: %v", domain.ErrServiceUnavailable, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("%w: embeddings API: %s", domain.ErrServiceUnavailable, parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: embeddings API returned status %d", domain.ErrServiceUnavailable, resp.StatusCode)
	}

	return &parsed, nil
}

// Dimensions returns the vector width of the configured model
func (e *OpenAIEmbedding) Dimensions() int {
	return dimensionsFor(e.model)
}

// Model returns the model name being used
func (e *OpenAIEmbedding) Model() string {
	return e.model
}

// HealthCheck verifies the embedding service is reachable
func (e *OpenAIEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "ping")
	return err
}

// Close releases resources held by the embedding service
func (e *OpenAIEmbedding) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
