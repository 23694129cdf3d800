package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"foodtrend/internal/model"
	"foodtrend/internal/util"
)

type encodeRequest struct {
	Model string   `json:"model,omitempty"`
	Texts []string `json:"texts"`
}

type encodeResponse struct {
	Vectors [][]float64 `json:"vectors"`
}

// HTTPEmbedder calls an external encoder service (a BERT-style model behind
// a JSON API) to embed text batches. The service owns the model snapshot;
// this client only enforces the dimension contract and truncation budget.
type HTTPEmbedder struct {
	endpoint string
	model    string
	dim      int
	maxChars int
	client   *http.Client
}

// NewHTTPEmbedder creates a service-backed embedder.
func NewHTTPEmbedder(endpoint, modelName string, dim, maxChars int) *HTTPEmbedder {
	if dim <= 0 {
		dim = 768
	}
	return &HTTPEmbedder{
		endpoint: endpoint,
		model:    modelName,
		dim:      dim,
		maxChars: maxChars,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (e *HTTPEmbedder) Dimension() int { return e.dim }

// Encode posts one batch of texts and returns their vectors in input order.
// A response whose vectors disagree with the configured dimension is a
// ShapeMismatch, not something to pad or truncate.
func (e *HTTPEmbedder) Encode(ctx context.Context, texts []string) ([][]float64, error) {
	trimmed := make([]string, len(texts))
	for i, t := range texts {
		trimmed[i] = util.TruncateRunes(t, e.maxChars)
	}
	body, err := json.Marshal(encodeRequest{Model: e.model, Texts: trimmed})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding service: %v: %w", err, model.ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding service status %d: %s: %w", resp.StatusCode, string(b), model.ErrUpstreamUnavailable)
	}
	var out encodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embedding service decode: %w", err)
	}
	if len(out.Vectors) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts: %w",
			len(out.Vectors), len(texts), model.ErrShapeMismatch)
	}
	for i, v := range out.Vectors {
		if len(v) != e.dim {
			return nil, fmt.Errorf("embedding %d has dimension %d, contract %d: %w",
				i, len(v), e.dim, model.ErrShapeMismatch)
		}
	}
	return out.Vectors, nil
}
