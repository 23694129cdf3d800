// Package embed maps free text to fixed-length dense vectors. Two providers
// share one contract: an external BERT-style HTTP encoder service and a
// dependency-free feature-hashing vectorizer.
package embed

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"foodtrend/internal/config"
	"foodtrend/internal/util"
)

// Embedder encodes texts into fixed-length dense vectors.
//
// Contract: deterministic for identical input text (given a fixed model
// snapshot); empty text yields a zero vector; input longer than the
// configured budget is head-truncated before encoding.
type Embedder interface {
	Encode(ctx context.Context, texts []string) ([][]float64, error)
	Dimension() int
}

// FromConfig builds the configured embedding provider.
func FromConfig(cfg config.EmbedderConfig) (Embedder, error) {
	switch cfg.Provider {
	case "", "hashing":
		return NewHashingEmbedder(cfg.Dimension, cfg.MaxChars), nil
	case "http":
		return NewHTTPEmbedder(cfg.Endpoint, cfg.Model, cfg.Dimension, cfg.MaxChars), nil
	default:
		return nil, fmt.Errorf("unknown embedder provider %q", cfg.Provider)
	}
}

// HashingEmbedder vectorizes text with the hashing trick: each token hashes
// to one of dim slots, counts are accumulated and the vector L2-normalized.
// No vocabulary, no model file, fully deterministic.
type HashingEmbedder struct {
	dim      int
	maxChars int
}

// NewHashingEmbedder creates a hashing embedder with a fixed output size.
func NewHashingEmbedder(dim, maxChars int) *HashingEmbedder {
	if dim <= 0 {
		dim = 768
	}
	return &HashingEmbedder{dim: dim, maxChars: maxChars}
}

func (h *HashingEmbedder) Dimension() int { return h.dim }

// Encode vectorizes each text independently. Never fails; an empty or
// all-punctuation text maps to the zero vector.
func (h *HashingEmbedder) Encode(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.encodeOne(text)
	}
	return out, nil
}

func (h *HashingEmbedder) encodeOne(text string) []float64 {
	vec := make([]float64, h.dim)
	for _, tok := range util.Tokenize(util.TruncateRunes(text, h.maxChars)) {
		f := fnv.New32a()
		f.Write([]byte(tok))
		vec[int(f.Sum32())%h.dim]++
	}
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
