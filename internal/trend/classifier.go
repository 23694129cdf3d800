// Package trend wraps the boosted ensemble with the training, evaluation,
// and persistence contract of the scoring engine. A trained model is an
// immutable handle passed explicitly to every operation; there is no global
// "current model".
package trend

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"

	"foodtrend/internal/boost"
	"foodtrend/internal/model"
)

// Hyperparams configures a training run.
type Hyperparams struct {
	Estimators   int
	MaxDepth     int
	LearningRate float64
	Subsample    float64
	ColSample    float64
	MinExamples  int
	TestFraction float64
	Seed         int64
}

// DefaultHyperparams mirrors the shipped classifier configuration.
func DefaultHyperparams() Hyperparams {
	return Hyperparams{
		Estimators:   200,
		MaxDepth:     6,
		LearningRate: 0.1,
		Subsample:    0.8,
		ColSample:    0.8,
		MinExamples:  10,
		TestFraction: 0.2,
		Seed:         42,
	}
}

// Model is one trained, immutable model version.
type Model struct {
	Version      string          `json:"version"`
	FeatureNames []string        `json:"feature_names"`
	TrainedAt    time.Time       `json:"trained_at"`
	Ensemble     *boost.Ensemble `json:"ensemble"`
}

// Train fits a model on fused vectors against binary labels: stratified
// held-out split (default 80/20), boosted ensemble fit, held-out
// accuracy/precision/recall/F1, and descending feature importances.
//
// Fewer than MinExamples examples, or fewer than two examples of either
// class, fail with ErrDataInsufficiency; no model is produced.
func Train(examples []model.TrainingExample, hp Hyperparams, featureNames []string) (*Model, model.Evaluation, error) {
	var eval model.Evaluation
	if hp.MinExamples <= 0 {
		hp.MinExamples = 10
	}
	if hp.TestFraction <= 0 || hp.TestFraction >= 1 {
		hp.TestFraction = 0.2
	}
	if len(examples) < hp.MinExamples {
		return nil, eval, fmt.Errorf("train: %d examples, need at least %d: %w",
			len(examples), hp.MinExamples, model.ErrDataInsufficiency)
	}
	var posIdx, negIdx []int
	for i, ex := range examples {
		if ex.Label == 1 {
			posIdx = append(posIdx, i)
		} else {
			negIdx = append(negIdx, i)
		}
	}
	if len(posIdx) < 2 || len(negIdx) < 2 {
		return nil, eval, fmt.Errorf("train: class counts %d/%d, need both classes: %w",
			len(posIdx), len(negIdx), model.ErrDataInsufficiency)
	}

	rng := rand.New(rand.NewSource(hp.Seed))
	trainIdx, testIdx := stratifiedSplit(rng, posIdx, negIdx, hp.TestFraction)

	X := make([][]float64, 0, len(trainIdx))
	y := make([]int, 0, len(trainIdx))
	for _, i := range trainIdx {
		X = append(X, examples[i].Fused)
		y = append(y, examples[i].Label)
	}
	ens, err := boost.Train(X, y, boost.Params{
		Estimators:   hp.Estimators,
		MaxDepth:     hp.MaxDepth,
		LearningRate: hp.LearningRate,
		Subsample:    hp.Subsample,
		ColSample:    hp.ColSample,
		Seed:         hp.Seed,
	})
	if err != nil {
		return nil, eval, err
	}
	m := &Model{
		Version:      uuid.NewString(),
		FeatureNames: append([]string(nil), featureNames...),
		TrainedAt:    time.Now().UTC(),
		Ensemble:     ens,
	}

	eval = evaluate(m, examples, testIdx)
	eval.ModelVersion = m.Version
	eval.TrainingSamples = len(trainIdx)
	eval.TestSamples = len(testIdx)
	eval.TrainingDate = m.TrainedAt
	eval.Importances = m.Importances()
	return m, eval, nil
}

// Predict returns the trend probability in [0,1] for one fused vector.
// Deterministic for a fixed model and identical input.
func (m *Model) Predict(fused []float64) (float64, error) {
	return m.Ensemble.PredictProba(fused)
}

// Importances returns per-feature importances ranked descending, normalized
// to sum to 1 when any split gain was accumulated.
func (m *Model) Importances() []model.FeatureImportance {
	total := 0.0
	for _, g := range m.Ensemble.Gain {
		total += g
	}
	out := make([]model.FeatureImportance, 0, len(m.Ensemble.Gain))
	for i, g := range m.Ensemble.Gain {
		name := fmt.Sprintf("feature_%d", i)
		if i < len(m.FeatureNames) {
			name = m.FeatureNames[i]
		}
		v := g
		if total > 0 {
			v = g / total
		}
		out = append(out, model.FeatureImportance{Feature: name, Importance: v})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	return out
}

// stratifiedSplit holds out testFraction of each class, keeping at least
// one example of each class in the training set.
func stratifiedSplit(rng *rand.Rand, posIdx, negIdx []int, testFraction float64) (trainIdx, testIdx []int) {
	for _, class := range [][]int{posIdx, negIdx} {
		idx := append([]int(nil), class...)
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		k := int(float64(len(idx)) * testFraction)
		if k >= len(idx) {
			k = len(idx) - 1
		}
		testIdx = append(testIdx, idx[:k]...)
		trainIdx = append(trainIdx, idx[k:]...)
	}
	sort.Ints(trainIdx)
	sort.Ints(testIdx)
	return trainIdx, testIdx
}

func evaluate(m *Model, examples []model.TrainingExample, testIdx []int) model.Evaluation {
	var eval model.Evaluation
	if len(testIdx) == 0 {
		return eval
	}
	var tp, fp, tn, fn int
	for _, i := range testIdx {
		p, err := m.Predict(examples[i].Fused)
		if err != nil {
			continue
		}
		pred := 0
		if p >= 0.5 {
			pred = 1
		}
		switch {
		case pred == 1 && examples[i].Label == 1:
			tp++
		case pred == 1 && examples[i].Label == 0:
			fp++
		case pred == 0 && examples[i].Label == 0:
			tn++
		default:
			fn++
		}
	}
	total := tp + fp + tn + fn
	if total > 0 {
		eval.Accuracy = float64(tp+tn) / float64(total)
	}
	if tp+fp > 0 {
		eval.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		eval.Recall = float64(tp) / float64(tp+fn)
	}
	if eval.Precision+eval.Recall > 0 {
		eval.F1Score = 2 * eval.Precision * eval.Recall / (eval.Precision + eval.Recall)
	}
	return eval
}
