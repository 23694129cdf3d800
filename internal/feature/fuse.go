package feature

import (
	"fmt"

	"foodtrend/internal/model"
)

// StructuredFeatureNames is the fixed structured feature order. The trained
// classifier depends on these positions; never reorder. Appending a feature
// requires retraining and is caught at fuse time by the dimension check.
var StructuredFeatureNames = []string{
	"mention_count",
	"avg_score",
	"max_score",
	"avg_comments",
	"avg_engagement",
	"unique_subreddits",
	"weekend_ratio",
	"velocity",
	"growth_rate",
	"avg_upvote_ratio",
	"total_engagement",
}

// StructuredVector emits the aggregate's features in StructuredFeatureNames
// order.
func StructuredVector(a model.FoodWindowAggregate) []float64 {
	return []float64{
		float64(a.MentionCount),
		a.AvgScore,
		a.MaxScore,
		a.AvgComments,
		a.AvgEngagement,
		float64(a.UniqueSubreddits),
		a.WeekendRatio,
		a.Velocity,
		a.GrowthRate,
		a.AvgUpvoteRatio,
		a.TotalEngagement,
	}
}

// Fuser concatenates structured features with a text embedding into one
// fused vector of fixed total dimension.
type Fuser struct {
	embeddingDim int
}

// NewFuser fixes the embedding dimension of the fusion contract.
func NewFuser(embeddingDim int) *Fuser {
	return &Fuser{embeddingDim: embeddingDim}
}

// Dimension is the fused vector length.
func (f *Fuser) Dimension() int { return len(StructuredFeatureNames) + f.embeddingDim }

// FeatureNames returns the fused feature names in positional order.
func (f *Fuser) FeatureNames() []string {
	names := append([]string(nil), StructuredFeatureNames...)
	for i := 0; i < f.embeddingDim; i++ {
		names = append(names, fmt.Sprintf("embed_%d", i))
	}
	return names
}

// Fuse concatenates structured ⊕ embedding. A dimension that deviates from
// the contract is a fatal configuration error, never a silent pad/truncate.
func (f *Fuser) Fuse(structured, embedding []float64) ([]float64, error) {
	if len(structured) != len(StructuredFeatureNames) {
		return nil, fmt.Errorf("fuse: structured features %d, contract %d: %w",
			len(structured), len(StructuredFeatureNames), model.ErrShapeMismatch)
	}
	if len(embedding) != f.embeddingDim {
		return nil, fmt.Errorf("fuse: embedding dimension %d, contract %d: %w",
			len(embedding), f.embeddingDim, model.ErrShapeMismatch)
	}
	out := make([]float64, 0, f.Dimension())
	out = append(out, structured...)
	out = append(out, embedding...)
	return out, nil
}

// FuseAggregate is the common path: structured features straight from the
// aggregate plus its window embedding.
func (f *Fuser) FuseAggregate(a model.FoodWindowAggregate, embedding []float64) ([]float64, error) {
	return f.Fuse(StructuredVector(a), embedding)
}
