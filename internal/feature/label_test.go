package feature

import (
	"testing"

	"foodtrend/internal/model"
)

func agg(food string, velocity, growth, engagement float64) model.FoodWindowAggregate {
	return model.FoodWindowAggregate{
		Food: food, MentionCount: 1,
		Velocity: velocity, GrowthRate: growth, AvgEngagement: engagement,
	}
}

func TestLabelsRelativeTopQuartile(t *testing.T) {
	aggs := []model.FoodWindowAggregate{
		agg("a", 0.1, 0.0, 10),
		agg("b", 0.2, 0.1, 20),
		agg("c", 0.3, 0.2, 30),
		agg("d", 4.0, 3.0, 400), // dominates every component
	}
	labels := Labels(aggs, DefaultLabelParams())
	if len(labels) != 4 {
		t.Fatalf("labels = %d", len(labels))
	}
	if labels[3] != 1 {
		t.Fatal("dominant aggregate must be labeled trending")
	}
	positives := 0
	for _, l := range labels {
		positives += l
	}
	if positives == 0 || positives == len(labels) {
		t.Fatalf("relative policy should split the batch, got %d positives", positives)
	}
}

func TestLabelsAbsolutePolicy(t *testing.T) {
	aggs := []model.FoodWindowAggregate{
		agg("a", 1, 1, 1),
		agg("b", 2, 2, 2),
	}
	p := DefaultLabelParams()
	p.Policy = PolicyAbsolute
	p.AbsoluteCutoff = 0.9
	labels := Labels(aggs, p)
	// b holds the top percentile rank (1.0) in every component; a does not.
	if labels[0] != 0 || labels[1] != 1 {
		t.Fatalf("absolute labels = %v", labels)
	}
}

func TestCompositeScoresTiesShareRank(t *testing.T) {
	aggs := []model.FoodWindowAggregate{
		agg("a", 1, 1, 1),
		agg("b", 1, 1, 1),
	}
	scores := CompositeScores(aggs, DefaultLabelParams())
	if scores[0] != scores[1] {
		t.Fatalf("tied aggregates must share composite score: %v", scores)
	}
}

func TestPercentileRanks(t *testing.T) {
	ranks := percentileRanks([]float64{10, 20, 30, 40})
	want := []float64{0.25, 0.5, 0.75, 1.0}
	for i := range want {
		if ranks[i] != want[i] {
			t.Fatalf("rank[%d] = %v, want %v", i, ranks[i], want[i])
		}
	}
}

func TestQuantileInterpolates(t *testing.T) {
	vals := []float64{0, 1, 2, 3}
	if got := quantile(vals, 0.5); got != 1.5 {
		t.Fatalf("median = %v, want 1.5", got)
	}
	if got := quantile(vals, 1); got != 3 {
		t.Fatalf("q1 = %v, want 3", got)
	}
}
