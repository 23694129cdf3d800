package jobs

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"foodtrend/internal/config"
	"foodtrend/internal/embed"
	"foodtrend/internal/model"
	"foodtrend/internal/store/sqlitestore"
)

var testFoods = []string{"kimchi", "pho", "ramen", "tacos", "bagel", "matcha", "hummus", "pizza"}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Windows.AggregationDays = 30
	cfg.Windows.TrainingDays = 60
	cfg.Collection.MinScore = 5
	cfg.Classifier.Estimators = 20
	cfg.Classifier.MaxDepth = 3
	cfg.Classifier.MinExamples = 10
	cfg.Classifier.ModelPath = ""
	cfg.Embedder.Dimension = 8
	cfg.Embedder.BatchSize = 4
	cfg.Embedder.Parallelism = 2
	return cfg
}

// seedPosts writes, for each of two adjacent 30-day windows, i+1 posts per
// food with scores rising in i, so each window's composite scores are
// strictly increasing across foods.
func seedPosts(t *testing.T, db *sqlitestore.Store, now time.Time) {
	t.Helper()
	var posts []model.Post
	for w := 0; w < 2; w++ {
		end := now.AddDate(0, 0, -30*w)
		for i, food := range testFoods {
			for k := 0; k <= i; k++ {
				posts = append(posts, model.Post{
					ID:           fmt.Sprintf("w%d-%s-%d", w, food, k),
					Subreddit:    "food",
					Title:        food + " is everywhere",
					Score:        10 * (i + 1),
					UpvoteRatio:  0.9,
					CommentCount: i + 1,
					CreatedAt:    end.Add(-time.Duration(k+1) * time.Hour),
					FoodMentions: []string{food},
				})
			}
		}
	}
	if err := db.PutPosts(context.Background(), posts); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestTrainScoreReportRoundTrip(t *testing.T) {
	db, err := sqlitestore.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()
	cfg := testConfig()
	cfg.Classifier.ModelPath = t.TempDir() + "/trend.json"
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	seedPosts(t, db, now)
	emb := embed.NewHashingEmbedder(cfg.Embedder.Dimension, cfg.Embedder.MaxChars)

	m, eval, err := RunTraining(ctx, db, emb, cfg, now)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if m.Version == "" || eval.ModelVersion != m.Version {
		t.Fatalf("model/eval version mismatch: %q vs %q", m.Version, eval.ModelVersion)
	}
	stored, err := db.LatestEvaluation(ctx)
	if err != nil {
		t.Fatalf("stored evaluation: %v", err)
	}
	if stored.ModelVersion != m.Version {
		t.Fatalf("stored evaluation version = %q, want %q", stored.ModelVersion, m.Version)
	}

	preds, err := RunScoring(ctx, db, m, emb, cfg, now)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if len(preds) != len(testFoods) {
		t.Fatalf("scored %d foods, want %d", len(preds), len(testFoods))
	}
	for _, p := range preds {
		if p.TrendProbability < 0 || p.TrendProbability > 1 {
			t.Fatalf("probability out of range: %+v", p)
		}
	}
	latest, err := db.LatestPredictions(ctx, 0)
	if err != nil {
		t.Fatalf("latest predictions: %v", err)
	}
	if len(latest) != len(testFoods) {
		t.Fatalf("persisted %d predictions, want %d", len(latest), len(testFoods))
	}

	rep, err := BuildReport(ctx, db, cfg, now)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(rep.Ranked) != len(testFoods) {
		t.Fatalf("ranked %d foods, want %d", len(rep.Ranked), len(testFoods))
	}
	for i := 1; i < len(rep.Ranked); i++ {
		if rep.Ranked[i].Probability > rep.Ranked[i-1].Probability {
			t.Fatalf("ranking not descending at %d: %+v", i, rep.Ranked)
		}
	}
}

func TestRunTrainingTooFewExamples(t *testing.T) {
	db, err := sqlitestore.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()
	cfg := testConfig()
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	// Only two foods in one window: far below MinExamples.
	posts := []model.Post{
		{ID: "a", Subreddit: "food", Title: "kimchi", Score: 50, UpvoteRatio: 0.9, CreatedAt: now.Add(-time.Hour), FoodMentions: []string{"kimchi"}},
		{ID: "b", Subreddit: "food", Title: "pho", Score: 40, UpvoteRatio: 0.9, CreatedAt: now.Add(-2 * time.Hour), FoodMentions: []string{"pho"}},
	}
	if err := db.PutPosts(ctx, posts); err != nil {
		t.Fatal(err)
	}
	emb := embed.NewHashingEmbedder(cfg.Embedder.Dimension, cfg.Embedder.MaxChars)
	if _, _, err := RunTraining(ctx, db, emb, cfg, now); !errors.Is(err, model.ErrDataInsufficiency) {
		t.Fatalf("err = %v, want ErrDataInsufficiency", err)
	}
}

func TestPredictFood(t *testing.T) {
	db, err := sqlitestore.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()
	cfg := testConfig()
	cfg.Classifier.ModelPath = t.TempDir() + "/trend.json"
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	seedPosts(t, db, now)
	emb := embed.NewHashingEmbedder(cfg.Embedder.Dimension, cfg.Embedder.MaxChars)
	m, _, err := RunTraining(ctx, db, emb, cfg, now)
	if err != nil {
		t.Fatalf("train: %v", err)
	}

	p, err := PredictFood(ctx, db, m, emb, cfg, "Kimchi", now)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if p.Food != "kimchi" || p.MentionCount != 1 {
		t.Fatalf("prediction = %+v", p)
	}

	if _, err := PredictFood(ctx, db, m, emb, cfg, "durian", now); !errors.Is(err, model.ErrDataInsufficiency) {
		t.Fatalf("err = %v, want ErrDataInsufficiency for unseen food", err)
	}
}

type fakeClient struct {
	posts map[string][]model.Post
}

func (f fakeClient) FetchSubreddit(ctx context.Context, subreddit string, limit int) ([]model.Post, error) {
	return f.posts[subreddit], nil
}

func TestRunCollectionKeepsOnlyFoodPosts(t *testing.T) {
	db, err := sqlitestore.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()
	cfg := testConfig()
	cfg.Collection.Subreddits = []string{"food", "cooking"}
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	client := fakeClient{posts: map[string][]model.Post{
		"food": {
			{ID: "1", Subreddit: "food", Title: "best kimchi recipe", Score: 30, UpvoteRatio: 0.9, CreatedAt: now},
			{ID: "2", Subreddit: "food", Title: "my new car", Score: 90, UpvoteRatio: 0.9, CreatedAt: now},
		},
		"cooking": {
			{ID: "3", Subreddit: "cooking", Title: "weeknight pho broth", Score: 12, UpvoteRatio: 0.8, CreatedAt: now},
		},
	}}
	n, err := RunCollection(ctx, db, client, cfg)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if n != 2 {
		t.Fatalf("kept %d posts, want 2", n)
	}
	stored, err := db.FetchPosts(ctx, now.Add(-time.Hour), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 {
		t.Fatalf("stored %d posts, want 2", len(stored))
	}
	for _, p := range stored {
		if len(p.FoodMentions) == 0 {
			t.Fatalf("stored post without mentions: %+v", p)
		}
	}
}
