package recommend

import (
	"testing"
	"time"

	"foodtrend/internal/model"
)

func pred(food string, prob, velocity float64) model.TrendPrediction {
	return model.TrendPrediction{Food: food, TrendProbability: prob, Velocity: velocity}
}

func TestTierBoundariesClosedOnLowerBound(t *testing.T) {
	cases := []struct {
		prob float64
		want Tier
	}{
		{0.80, TierHigh},
		{0.799999, TierMedium},
		{0.95, TierHigh},
		{0.60, TierMedium},
		{0.599999, TierLow},
		{0.40, TierLow},
		{0.399999, TierMinimal},
		{0.0, TierMinimal},
	}
	for _, c := range cases {
		if got := TierFor(c.prob); got != c.want {
			t.Fatalf("TierFor(%v) = %s, want %s", c.prob, got, c.want)
		}
	}
}

func TestBuildReportDeterministicTieBreak(t *testing.T) {
	preds := []model.TrendPrediction{
		pred("ramen", 0.7, 0.5),
		pred("pho", 0.7, 0.9),   // same probability, higher velocity
		pred("bagel", 0.7, 0.5), // full tie with ramen: name decides
		pred("kimchi", 0.9, 0.1),
	}
	r := BuildReport(preds, Params{}, time.Now())
	want := []string{"kimchi", "pho", "bagel", "ramen"}
	for i, w := range want {
		if r.Ranked[i].Food != w {
			t.Fatalf("rank %d = %s, want %s (full: %+v)", i, r.Ranked[i].Food, w, r.Ranked)
		}
	}
}

func TestBuildReportCategoryRollup(t *testing.T) {
	cats := map[string]string{"kimchi": "Asian", "ramen": "Asian"}
	preds := []model.TrendPrediction{
		pred("kimchi", 0.9, 1),
		pred("ramen", 0.3, 1),
		pred("cronut", 0.95, 1), // unmapped: flat ranking only
	}
	r := BuildReport(preds, Params{Categories: cats, TrendingCut: 0.5}, time.Now())
	if len(r.Ranked) != 3 {
		t.Fatalf("flat ranking must include unmapped foods, got %d", len(r.Ranked))
	}
	if len(r.Categories) != 1 {
		t.Fatalf("categories = %+v", r.Categories)
	}
	c := r.Categories[0]
	if c.Category != "Asian" || c.TrendingCount != 1 || c.TopFood != "kimchi" {
		t.Fatalf("rollup = %+v", c)
	}
	if got, want := c.AvgProbability, (0.9+0.3)/2; got != want {
		t.Fatalf("avg probability = %v, want %v", got, want)
	}
}

func TestBuildReportActionableUsesHighCut(t *testing.T) {
	preds := []model.TrendPrediction{
		pred("kimchi", 0.85, 1),
		pred("poke", 0.80, 1),
		pred("kale", 0.79, 1),
	}
	r := BuildReport(preds, Params{}, time.Now())
	if len(r.Actionable) != 2 {
		t.Fatalf("actionable = %+v", r.Actionable)
	}
	for _, a := range r.Actionable {
		if a.Tier != TierHigh {
			t.Fatalf("actionable entry below HIGH: %+v", a)
		}
	}
}

func TestBuildReportTopNCapsRankingNotRollups(t *testing.T) {
	cats := map[string]string{"a": "X", "b": "X", "c": "X"}
	preds := []model.TrendPrediction{
		pred("a", 0.9, 1), pred("b", 0.8, 1), pred("c", 0.7, 1),
	}
	r := BuildReport(preds, Params{Categories: cats, TopN: 2}, time.Now())
	if len(r.Ranked) != 2 {
		t.Fatalf("ranked = %d, want 2", len(r.Ranked))
	}
	if r.Categories[0].TrendingCount != 3 {
		t.Fatalf("rollup trending count = %d, want 3", r.Categories[0].TrendingCount)
	}
	if got := r.Categories[0].AvgProbability; got != (0.9+0.8+0.7)/3 {
		t.Fatalf("rollups must see the full ranking, avg = %v", got)
	}
}
