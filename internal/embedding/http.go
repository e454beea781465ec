package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPEmbedder calls an OpenAI-compatible /embeddings endpoint (LM Studio,
// Ollama, etc.). Success requires a vector of exactly the configured dimension;
// a mismatch indicates a misconfigured model and is always an error.
type HTTPEmbedder struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

// NewHTTPEmbedder creates an embedder for the provider at baseURL (e.g.
// "http://127.0.0.1:1338/v1"). timeout bounds each embedding call.
func NewHTTPEmbedder(baseURL, model string, dimensions int, timeout time.Duration) (*HTTPEmbedder, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("embedding URL is required")
	}
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &HTTPEmbedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		dimensions: dimensions,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

type embeddingRequest struct {
	Input          string `json:"input"`
	Model          string `json:"model"`
	EncodingFormat string `json:"encoding_format"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding for text, or an error if the provider is
// unreachable, responds with an error status, or returns the wrong dimension.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{
		Input:          text,
		Model:          e.model,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("embedding provider returned %d: %s", resp.StatusCode, string(b))
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode embedding response: %w", err)
	}
	if len(out.Data) == 0 {
		return nil, fmt.Errorf("embedding provider returned no data")
	}
	emb := out.Data[0].Embedding
	if len(emb) != e.dimensions {
		return nil, fmt.Errorf("embedding dimension mismatch: got %d, expected %d", len(emb), e.dimensions)
	}
	return emb, nil
}

// EmbedBatch calls Embed for each text. The provider may not support batch
// requests, so texts are embedded one by one.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the configured embedding dimension.
func (e *HTTPEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for HTTPEmbedder.
func (e *HTTPEmbedder) Close() error {
	return nil
}
