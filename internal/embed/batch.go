package embed

import (
	"context"

	"golang.org/x/sync/errgroup"

	"foodtrend/internal/metrics"
)

// EncodeGroups embeds texts in fixed-size batches with bounded parallelism.
// Batching bounds peak memory; groups are independent (no shared state), so
// batches run concurrently. The result preserves input order. One failed
// batch cancels the rest and fails the whole call — a scoring run either
// completes or is abandoned wholesale.
func EncodeGroups(ctx context.Context, e Embedder, texts []string, batchSize, parallelism int) ([][]float64, error) {
	if batchSize <= 0 {
		batchSize = 16
	}
	if parallelism <= 0 {
		parallelism = 1
	}
	out := make([][]float64, len(texts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)
	for start := 0; start < len(texts); start += batchSize {
		endIdx := start + batchSize
		if endIdx > len(texts) {
			endIdx = len(texts)
		}
		start, endIdx := start, endIdx
		g.Go(func() error {
			vecs, err := e.Encode(ctx, texts[start:endIdx])
			if err != nil {
				return err
			}
			copy(out[start:], vecs)
			metrics.EmbeddingBatches.Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
