// Package recommend maps trend probabilities to action tiers and builds the
// ranked recommendation report with category rollups.
package recommend

import (
	"sort"
	"time"

	"foodtrend/internal/model"
)

// Tier is the discrete action bucket for one prediction.
type Tier string

const (
	TierHigh    Tier = "HIGH"    // immediate consideration
	TierMedium  Tier = "MEDIUM"  // monitor closely
	TierLow     Tier = "LOW"     // watch list
	TierMinimal Tier = "MINIMAL" // no action
)

// Tier boundaries are closed on the lower bound: probability exactly 0.80
// is HIGH, 0.799999 is MEDIUM.
const (
	HighCut   = 0.80
	MediumCut = 0.60
	LowCut    = 0.40
)

// TierFor buckets a trend probability.
func TierFor(probability float64) Tier {
	switch {
	case probability >= HighCut:
		return TierHigh
	case probability >= MediumCut:
		return TierMedium
	case probability >= LowCut:
		return TierLow
	default:
		return TierMinimal
	}
}

// Action is the human-readable instruction for a tier.
func (t Tier) Action() string {
	switch t {
	case TierHigh:
		return "immediate consideration"
	case TierMedium:
		return "monitor closely"
	case TierLow:
		return "watch list"
	default:
		return "no action"
	}
}

// RankedFood is one flat-ranking entry.
type RankedFood struct {
	Food        string  `json:"food"`
	Probability float64 `json:"probability"`
	Velocity    float64 `json:"velocity"`
	Tier        Tier    `json:"tier"`
}

// CategoryTrend is one per-category rollup.
type CategoryTrend struct {
	Category       string  `json:"category"`
	AvgProbability float64 `json:"avg_probability"`
	TrendingCount  int     `json:"trending_count"`
	TopFood        string  `json:"top_food"`
}

// Report is the read-only recommendation view, constructed fresh per
// request and never persisted by the core.
type Report struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Ranked      []RankedFood    `json:"ranked"`
	Categories  []CategoryTrend `json:"categories"`
	Actionable  []RankedFood    `json:"actionable"`
}

// Params configures report construction.
type Params struct {
	// Categories is the injected food→category lookup (many-to-one).
	// A food with no mapped category is excluded from rollups but still
	// appears in the flat ranking.
	Categories map[string]string
	// TrendingCut is the probability bound counted as trending in rollups.
	TrendingCut float64
	// HighCut bounds the actionable list.
	HighCut float64
	// TopN caps the flat ranking; 0 means no cap.
	TopN int
}

// BuildReport ranks predictions and aggregates categories. Ordering is
// deterministic: probability descending, ties broken by higher velocity,
// then lexicographically by food name.
func BuildReport(preds []model.TrendPrediction, p Params, now time.Time) Report {
	if p.TrendingCut <= 0 {
		p.TrendingCut = 0.5
	}
	if p.HighCut <= 0 {
		p.HighCut = HighCut
	}

	ranked := make([]RankedFood, 0, len(preds))
	for _, pr := range preds {
		ranked = append(ranked, RankedFood{
			Food:        pr.Food,
			Probability: pr.TrendProbability,
			Velocity:    pr.Velocity,
			Tier:        TierFor(pr.TrendProbability),
		})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Probability != ranked[j].Probability {
			return ranked[i].Probability > ranked[j].Probability
		}
		if ranked[i].Velocity != ranked[j].Velocity {
			return ranked[i].Velocity > ranked[j].Velocity
		}
		return ranked[i].Food < ranked[j].Food
	})

	var actionable []RankedFood
	for _, r := range ranked {
		if r.Probability >= p.HighCut {
			actionable = append(actionable, r)
		}
	}

	categories := rollupCategories(ranked, p)

	if p.TopN > 0 && len(ranked) > p.TopN {
		ranked = ranked[:p.TopN]
	}
	return Report{GeneratedAt: now, Ranked: ranked, Categories: categories, Actionable: actionable}
}

// rollupCategories aggregates the full ranking per mapped category. Relies
// on ranked being sorted so the first entry seen per category is its top.
func rollupCategories(ranked []RankedFood, p Params) []CategoryTrend {
	type acc struct {
		sum      float64
		count    int
		trending int
		top      string
	}
	byCat := make(map[string]*acc)
	for _, r := range ranked {
		cat, ok := p.Categories[r.Food]
		if !ok {
			continue
		}
		a, ok := byCat[cat]
		if !ok {
			a = &acc{top: r.Food}
			byCat[cat] = a
		}
		a.sum += r.Probability
		a.count++
		if r.Probability >= p.TrendingCut {
			a.trending++
		}
	}
	out := make([]CategoryTrend, 0, len(byCat))
	for cat, a := range byCat {
		out = append(out, CategoryTrend{
			Category:       cat,
			AvgProbability: a.sum / float64(a.count),
			TrendingCount:  a.trending,
			TopFood:        a.top,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AvgProbability != out[j].AvgProbability {
			return out[i].AvgProbability > out[j].AvgProbability
		}
		return out[i].Category < out[j].Category
	})
	return out
}
