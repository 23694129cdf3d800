// Package jobs wires the collectors, featurizers, and the classifier into
// batch runs. Runs share no state across invocations; every run regenerates
// its aggregates from the post snapshot.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"foodtrend/internal/config"
	"foodtrend/internal/embed"
	"foodtrend/internal/feature"
	"foodtrend/internal/logging"
	"foodtrend/internal/metrics"
	"foodtrend/internal/model"
	"foodtrend/internal/recommend"
	"foodtrend/internal/redditclient"
	"foodtrend/internal/store/sqlitestore"
	"foodtrend/internal/trend"
)

// RunCollection fetches each configured subreddit, keeps posts that mention
// at least one lexicon food, and stores them. Duplicate posts are ignored by
// the store, so overlapping runs are safe.
func RunCollection(ctx context.Context, db *sqlitestore.Store, client redditclient.Client, cfg config.Config) (int, error) {
	start := time.Now()
	metrics.PipelineRuns.WithLabelValues("collect").Inc()
	ex := redditclient.NewExtractor(cfg.FoodLexicon())
	total := 0
	for _, sub := range cfg.Collection.Subreddits {
		posts, err := client.FetchSubreddit(ctx, sub, cfg.Collection.PostsPerSubreddit)
		if err != nil {
			metrics.PipelineErrors.WithLabelValues("collect").Inc()
			return total, err
		}
		metrics.CollectorFetches.WithLabelValues(sub).Inc()
		kept := ex.Annotate(posts)
		if err := db.PutPosts(ctx, kept); err != nil {
			metrics.PipelineErrors.WithLabelValues("collect").Inc()
			return total, fmt.Errorf("%w: store posts: %v", model.ErrUpstreamUnavailable, err)
		}
		total += len(kept)
		logging.Info("collect_subreddit", map[string]any{
			"subreddit": sub, "fetched": len(posts), "kept": len(kept),
		})
	}
	metrics.ObserveRun("collect", start)
	return total, nil
}

// fusedVectors aggregates one window and produces the fused vector per food,
// in the same order as the returned aggregates.
func fusedVectors(ctx context.Context, posts []model.Post, p feature.WindowParams, emb embed.Embedder, cfg config.Config) ([]model.FoodWindowAggregate, [][]float64, error) {
	aggs := feature.Aggregate(posts, p)
	if len(aggs) == 0 {
		return nil, nil, nil
	}
	texts := feature.CollectTexts(posts, p, cfg.Embedder.MaxChars)
	ordered := make([]string, len(aggs))
	for i, a := range aggs {
		ordered[i] = texts[a.Food]
	}
	embs, err := embed.EncodeGroups(ctx, emb, ordered, cfg.Embedder.BatchSize, cfg.Embedder.Parallelism)
	if err != nil {
		return nil, nil, err
	}
	fuser := feature.NewFuser(emb.Dimension())
	fused := make([][]float64, len(aggs))
	for i := range aggs {
		fused[i], err = fuser.FuseAggregate(aggs[i], embs[i])
		if err != nil {
			return nil, nil, err
		}
	}
	return aggs, fused, nil
}

func labelParams(cfg config.Config) feature.LabelParams {
	p := feature.DefaultLabelParams()
	if cfg.Labels.Policy != "" {
		p.Policy = cfg.Labels.Policy
	}
	if cfg.Labels.Threshold > 0 {
		p.Threshold = cfg.Labels.Threshold
	}
	if cfg.Labels.AbsoluteCutoff > 0 {
		p.AbsoluteCutoff = cfg.Labels.AbsoluteCutoff
	}
	if cfg.Labels.VelocityWeight > 0 || cfg.Labels.GrowthWeight > 0 || cfg.Labels.EngagementWeight > 0 {
		p.VelocityWeight = cfg.Labels.VelocityWeight
		p.GrowthWeight = cfg.Labels.GrowthWeight
		p.EngagementWeight = cfg.Labels.EngagementWeight
	}
	return p
}

// RunTraining builds a labeled dataset from stored posts and fits a fresh
// model version. The training horizon is split into rolling windows stepping
// by the aggregation span; each window is labeled against its own batch, and
// examples from all windows pool into one dataset. The model and its
// evaluation are persisted only on success.
func RunTraining(ctx context.Context, db *sqlitestore.Store, emb embed.Embedder, cfg config.Config, now time.Time) (*trend.Model, model.Evaluation, error) {
	start := time.Now()
	metrics.PipelineRuns.WithLabelValues("train").Inc()
	var eval model.Evaluation

	since := now.AddDate(0, 0, -cfg.Windows.TrainingDays)
	posts, err := db.FetchPosts(ctx, since, cfg.Collection.MinScore)
	if err != nil {
		metrics.PipelineErrors.WithLabelValues("train").Inc()
		return nil, eval, fmt.Errorf("%w: fetch posts: %v", model.ErrUpstreamUnavailable, err)
	}

	lp := labelParams(cfg)
	var examples []model.TrainingExample
	for end := now; end.After(since); end = end.AddDate(0, 0, -cfg.Windows.AggregationDays) {
		wp := feature.WindowParams{Days: cfg.Windows.AggregationDays, End: end}
		aggs, fused, err := fusedVectors(ctx, posts, wp, emb, cfg)
		if err != nil {
			metrics.PipelineErrors.WithLabelValues("train").Inc()
			return nil, eval, err
		}
		labels := feature.Labels(aggs, lp)
		for i := range aggs {
			examples = append(examples, model.TrainingExample{
				Aggregate: aggs[i],
				Fused:     fused[i],
				Label:     labels[i],
			})
		}
	}

	fuser := feature.NewFuser(emb.Dimension())
	hp := trend.Hyperparams{
		Estimators:   cfg.Classifier.Estimators,
		MaxDepth:     cfg.Classifier.MaxDepth,
		LearningRate: cfg.Classifier.LearningRate,
		Subsample:    cfg.Classifier.Subsample,
		ColSample:    cfg.Classifier.ColSample,
		MinExamples:  cfg.Classifier.MinExamples,
		TestFraction: 0.2,
		Seed:         cfg.Classifier.Seed,
	}
	m, eval, err := trend.Train(examples, hp, fuser.FeatureNames())
	if err != nil {
		metrics.PipelineErrors.WithLabelValues("train").Inc()
		return nil, eval, err
	}
	if err := m.Save(cfg.Classifier.ModelPath); err != nil {
		metrics.PipelineErrors.WithLabelValues("train").Inc()
		return nil, eval, err
	}
	if err := db.SaveEvaluation(ctx, eval); err != nil {
		metrics.PipelineErrors.WithLabelValues("train").Inc()
		return nil, eval, fmt.Errorf("%w: save evaluation: %v", model.ErrUpstreamUnavailable, err)
	}
	logging.Info("train_complete", map[string]any{
		"model_version": m.Version,
		"examples":      len(examples),
		"accuracy":      eval.Accuracy,
		"f1":            eval.F1Score,
	})
	metrics.ObserveRun("train", start)
	return m, eval, nil
}

// RunScoring scores every food in the current window and persists the batch
// of predictions in one transaction. A per-food shape mismatch is logged and
// skipped; any other failure aborts the run with nothing persisted.
func RunScoring(ctx context.Context, db *sqlitestore.Store, m *trend.Model, emb embed.Embedder, cfg config.Config, now time.Time) ([]model.TrendPrediction, error) {
	start := time.Now()
	metrics.PipelineRuns.WithLabelValues("score").Inc()

	wp := feature.WindowParams{Days: cfg.Windows.AggregationDays, End: now}
	since := now.AddDate(0, 0, -cfg.Windows.AggregationDays)
	posts, err := db.FetchPosts(ctx, since, cfg.Collection.MinScore)
	if err != nil {
		metrics.PipelineErrors.WithLabelValues("score").Inc()
		return nil, fmt.Errorf("%w: fetch posts: %v", model.ErrUpstreamUnavailable, err)
	}
	aggs, fused, err := fusedVectors(ctx, posts, wp, emb, cfg)
	if err != nil {
		metrics.PipelineErrors.WithLabelValues("score").Inc()
		return nil, err
	}

	preds := make([]model.TrendPrediction, 0, len(aggs))
	for i, a := range aggs {
		prob, err := m.Predict(fused[i])
		if err != nil {
			if errors.Is(err, model.ErrShapeMismatch) {
				logging.Warn("score_skip_food", map[string]any{"food": a.Food, "error": err.Error()})
				continue
			}
			metrics.PipelineErrors.WithLabelValues("score").Inc()
			return nil, err
		}
		preds = append(preds, model.TrendPrediction{
			Food:              a.Food,
			TrendProbability:  prob,
			PredictedTrending: prob >= cfg.Report.TrendingCut,
			Velocity:          a.Velocity,
			GrowthRate:        a.GrowthRate,
			MentionCount:      a.MentionCount,
			AvgScore:          a.AvgScore,
			AvgEngagement:     a.AvgEngagement,
			UniqueSubreddits:  a.UniqueSubreddits,
			CreatedAt:         now,
		})
	}
	if err := db.SavePredictions(ctx, preds); err != nil {
		metrics.PipelineErrors.WithLabelValues("score").Inc()
		return nil, fmt.Errorf("%w: save predictions: %v", model.ErrUpstreamUnavailable, err)
	}
	metrics.PredictionsWritten.Add(float64(len(preds)))
	logging.Info("score_complete", map[string]any{"foods": len(aggs), "persisted": len(preds)})
	metrics.ObserveRun("score", start)
	return preds, nil
}

// PredictFood scores a single food in the current window without persisting.
// A food with no mentions in the window fails with ErrDataInsufficiency.
func PredictFood(ctx context.Context, db *sqlitestore.Store, m *trend.Model, emb embed.Embedder, cfg config.Config, food string, now time.Time) (model.TrendPrediction, error) {
	var out model.TrendPrediction
	name := model.NormalizeFoodName(food)
	wp := feature.WindowParams{Days: cfg.Windows.AggregationDays, End: now}
	since := now.AddDate(0, 0, -cfg.Windows.AggregationDays)
	posts, err := db.FetchPosts(ctx, since, cfg.Collection.MinScore)
	if err != nil {
		return out, fmt.Errorf("%w: fetch posts: %v", model.ErrUpstreamUnavailable, err)
	}
	aggs, fused, err := fusedVectors(ctx, posts, wp, emb, cfg)
	if err != nil {
		return out, err
	}
	for i, a := range aggs {
		if a.Food != name {
			continue
		}
		prob, err := m.Predict(fused[i])
		if err != nil {
			return out, err
		}
		return model.TrendPrediction{
			Food:              a.Food,
			TrendProbability:  prob,
			PredictedTrending: prob >= cfg.Report.TrendingCut,
			Velocity:          a.Velocity,
			GrowthRate:        a.GrowthRate,
			MentionCount:      a.MentionCount,
			AvgScore:          a.AvgScore,
			AvgEngagement:     a.AvgEngagement,
			UniqueSubreddits:  a.UniqueSubreddits,
			CreatedAt:         now,
		}, nil
	}
	return out, fmt.Errorf("no mentions of %q in the last %d days: %w",
		name, cfg.Windows.AggregationDays, model.ErrDataInsufficiency)
}

// BuildReport assembles the recommendation view from the latest stored
// prediction per food.
func BuildReport(ctx context.Context, db *sqlitestore.Store, cfg config.Config, now time.Time) (recommend.Report, error) {
	preds, err := db.LatestPredictions(ctx, 0)
	if err != nil {
		return recommend.Report{}, fmt.Errorf("%w: load predictions: %v", model.ErrUpstreamUnavailable, err)
	}
	return recommend.BuildReport(preds, recommend.Params{
		Categories:  cfg.FoodCategory(),
		TrendingCut: cfg.Report.TrendingCut,
		HighCut:     cfg.Report.HighCut,
		TopN:        cfg.Report.TopN,
	}, now), nil
}
