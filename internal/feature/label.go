package feature

import (
	"math"
	"sort"

	"foodtrend/internal/model"
)

// Label policies. The relative policy recomputes its threshold from each
// batch's own distribution, so the model adapts to corpus-wide engagement
// drift; the flip side is that the same food's absolute feature values may
// get different labels in different batches. The absolute policy uses a
// fixed composite-score cutoff instead.
const (
	PolicyRelative = "relative"
	PolicyAbsolute = "absolute"
)

// LabelParams configures the trend label generator.
type LabelParams struct {
	Policy           string
	Threshold        float64 // percentile cut for PolicyRelative, e.g. 0.75
	AbsoluteCutoff   float64 // composite-score cut for PolicyAbsolute
	VelocityWeight   float64
	GrowthWeight     float64
	EngagementWeight float64
}

// DefaultLabelParams mirrors the shipped configuration defaults.
func DefaultLabelParams() LabelParams {
	return LabelParams{
		Policy:           PolicyRelative,
		Threshold:        0.75,
		AbsoluteCutoff:   0.6,
		VelocityWeight:   0.3,
		GrowthWeight:     0.4,
		EngagementWeight: 0.3,
	}
}

// CompositeScores returns the weighted percentile-rank ranking score per
// aggregate, order-aligned with aggs. Each component is the percentile rank
// of the aggregate's velocity, growth rate, and average engagement within
// the batch.
func CompositeScores(aggs []model.FoodWindowAggregate, p LabelParams) []float64 {
	velocity := make([]float64, len(aggs))
	growth := make([]float64, len(aggs))
	engagement := make([]float64, len(aggs))
	for i, a := range aggs {
		velocity[i] = a.Velocity
		growth[i] = a.GrowthRate
		engagement[i] = a.AvgEngagement
	}
	vp := percentileRanks(velocity)
	gp := percentileRanks(growth)
	ep := percentileRanks(engagement)
	out := make([]float64, len(aggs))
	for i := range aggs {
		out[i] = vp[i]*p.VelocityWeight + gp[i]*p.GrowthWeight + ep[i]*p.EngagementWeight
	}
	return out
}

// Labels assigns the binary trending label per aggregate. With the relative
// policy an aggregate is trending when its composite score is at or above
// the batch percentile cut; with the absolute policy, at or above the fixed
// cutoff. Labels are assigned once at dataset-build time.
func Labels(aggs []model.FoodWindowAggregate, p LabelParams) []int {
	scores := CompositeScores(aggs, p)
	cut := p.AbsoluteCutoff
	if p.Policy != PolicyAbsolute {
		cut = quantile(scores, p.Threshold)
	}
	out := make([]int, len(aggs))
	for i, s := range scores {
		if s >= cut {
			out[i] = 1
		}
	}
	return out
}

// percentileRanks returns the average-rank percentile of each value within
// the slice, in (0,1]. Tied values share the mean of their rank positions.
func percentileRanks(vals []float64) []float64 {
	n := len(vals)
	if n == 0 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return vals[idx[a]] < vals[idx[b]] })
	out := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j+1 < n && vals[idx[j+1]] == vals[idx[i]] {
			j++
		}
		// ranks are 1-based; ties get the average rank of the run
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			out[idx[k]] = avg / float64(n)
		}
		i = j + 1
	}
	return out
}

// quantile returns the q-th linear-interpolated quantile of vals.
func quantile(vals []float64, q float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
