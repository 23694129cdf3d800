// Package boost implements a gradient-boosted tree ensemble for binary
// classification with logistic loss. Models serialize to a single JSON file
// and predict deterministically, so a saved and reloaded ensemble returns
// bit-identical probabilities.
package boost

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"foodtrend/internal/model"
)

// Params are the ensemble hyperparameters.
type Params struct {
	Estimators   int
	MaxDepth     int
	LearningRate float64
	Subsample    float64 // row fraction per tree
	ColSample    float64 // feature fraction per tree
	MinLeaf      int
	Seed         int64
}

// DefaultParams mirrors the shipped classifier configuration.
func DefaultParams() Params {
	return Params{
		Estimators:   200,
		MaxDepth:     6,
		LearningRate: 0.1,
		Subsample:    0.8,
		ColSample:    0.8,
		MinLeaf:      1,
		Seed:         42,
	}
}

const lambda = 1.0 // L2 leaf regularization

type node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
	Leaf      bool    `json:"leaf"`
}

type tree struct {
	Nodes []node `json:"nodes"`
}

func (t *tree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Ensemble is an immutable trained model.
type Ensemble struct {
	Base         float64   `json:"base"`
	LearningRate float64   `json:"learning_rate"`
	Dimension    int       `json:"dimension"`
	Trees        []tree    `json:"trees"`
	Gain         []float64 `json:"gain"` // per-feature accumulated split gain
}

// Train fits the ensemble on X against binary labels y. Deterministic for a
// fixed Params.Seed and identical inputs.
func Train(X [][]float64, y []int, p Params) (*Ensemble, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, errors.New("boost: empty or misaligned training set")
	}
	dim := len(X[0])
	for i, row := range X {
		if len(row) != dim {
			return nil, fmt.Errorf("boost: row %d has %d features, want %d: %w",
				i, len(row), dim, model.ErrShapeMismatch)
		}
	}
	if p.Estimators <= 0 || p.LearningRate <= 0 {
		return nil, errors.New("boost: estimators and learning rate must be positive")
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = 6
	}
	if p.MinLeaf <= 0 {
		p.MinLeaf = 1
	}
	if p.Subsample <= 0 || p.Subsample > 1 {
		p.Subsample = 1
	}
	if p.ColSample <= 0 || p.ColSample > 1 {
		p.ColSample = 1
	}

	pos := 0
	for _, label := range y {
		pos += label
	}
	rate := clamp(float64(pos)/float64(len(y)), 1e-6, 1-1e-6)
	ens := &Ensemble{
		Base:         math.Log(rate / (1 - rate)),
		LearningRate: p.LearningRate,
		Dimension:    dim,
		Gain:         make([]float64, dim),
	}

	rng := rand.New(rand.NewSource(p.Seed))
	scores := make([]float64, len(X))
	for i := range scores {
		scores[i] = ens.Base
	}
	grad := make([]float64, len(X))
	hess := make([]float64, len(X))

	for m := 0; m < p.Estimators; m++ {
		for i := range X {
			prob := sigmoid(scores[i])
			grad[i] = float64(y[i]) - prob
			hess[i] = prob * (1 - prob)
		}
		rows := sampleRows(rng, len(X), p.Subsample)
		cols := sampleCols(rng, dim, p.ColSample)
		b := &builder{X: X, grad: grad, hess: hess, cols: cols, params: p, gain: ens.Gain}
		t := &tree{}
		b.grow(t, rows, 0)
		ens.Trees = append(ens.Trees, *t)
		for i := range X {
			scores[i] += p.LearningRate * t.predict(X[i])
		}
	}
	return ens, nil
}

// PredictProba returns the trend probability for one feature vector.
func (e *Ensemble) PredictProba(x []float64) (float64, error) {
	if len(x) != e.Dimension {
		return 0, fmt.Errorf("boost: input dimension %d, model expects %d: %w",
			len(x), e.Dimension, model.ErrShapeMismatch)
	}
	score := e.Base
	for i := range e.Trees {
		score += e.LearningRate * e.Trees[i].predict(x)
	}
	return sigmoid(score), nil
}

type builder struct {
	X          [][]float64
	grad, hess []float64
	cols       []int
	params     Params
	gain       []float64
}

// grow appends the subtree for rows to t and returns its root index.
func (b *builder) grow(t *tree, rows []int, depth int) int {
	g, h := sums(b.grad, b.hess, rows)
	if depth >= b.params.MaxDepth || len(rows) < 2*b.params.MinLeaf {
		return b.leaf(t, g, h)
	}
	feat, thr, gain, left, right := b.bestSplit(rows, g, h)
	if gain <= 0 {
		return b.leaf(t, g, h)
	}
	b.gain[feat] += gain
	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, node{Feature: feat, Threshold: thr})
	l := b.grow(t, left, depth+1)
	r := b.grow(t, right, depth+1)
	t.Nodes[idx].Left = l
	t.Nodes[idx].Right = r
	return idx
}

func (b *builder) leaf(t *tree, g, h float64) int {
	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, node{Leaf: true, Value: g / (h + lambda)})
	return idx
}

// bestSplit scans the sampled feature columns for the split maximizing the
// regularized gain. Candidate thresholds are midpoints between consecutive
// distinct values.
func (b *builder) bestSplit(rows []int, gTotal, hTotal float64) (feat int, thr, gain float64, left, right []int) {
	parent := gTotal * gTotal / (hTotal + lambda)
	bestFeat, bestGain, bestThr := -1, 0.0, 0.0
	order := make([]int, len(rows))
	for _, f := range b.cols {
		copy(order, rows)
		sort.SliceStable(order, func(a, c int) bool { return b.X[order[a]][f] < b.X[order[c]][f] })
		gl, hl := 0.0, 0.0
		for i := 0; i < len(order)-1; i++ {
			r := order[i]
			gl += b.grad[r]
			hl += b.hess[r]
			cur, next := b.X[r][f], b.X[order[i+1]][f]
			if cur == next {
				continue
			}
			if i+1 < b.params.MinLeaf || len(order)-i-1 < b.params.MinLeaf {
				continue
			}
			gr, hr := gTotal-gl, hTotal-hl
			gain := gl*gl/(hl+lambda) + gr*gr/(hr+lambda) - parent
			if gain > bestGain {
				bestFeat, bestGain, bestThr = f, gain, (cur+next)/2
			}
		}
	}
	if bestFeat < 0 {
		return -1, 0, 0, nil, nil
	}
	for _, r := range rows {
		if b.X[r][bestFeat] < bestThr {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	return bestFeat, bestThr, bestGain, left, right
}

func sums(grad, hess []float64, rows []int) (g, h float64) {
	for _, r := range rows {
		g += grad[r]
		h += hess[r]
	}
	return g, h
}

func sampleRows(rng *rand.Rand, n int, frac float64) []int {
	idx := rng.Perm(n)
	k := int(float64(n) * frac)
	if k < 1 {
		k = 1
	}
	rows := idx[:k]
	sort.Ints(rows)
	return rows
}

func sampleCols(rng *rand.Rand, dim int, frac float64) []int {
	idx := rng.Perm(dim)
	k := int(float64(dim) * frac)
	if k < 1 {
		k = 1
	}
	cols := idx[:k]
	sort.Ints(cols)
	return cols
}

func sigmoid(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
