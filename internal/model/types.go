package model

import "time"

// Post is one raw Reddit submission as stored by the collector.
// Posts are immutable once ingested; the scoring core only reads them.
type Post struct {
	ID           string
	Subreddit    string
	Title        string
	Body         string
	Author       string
	Score        int
	UpvoteRatio  float64
	CommentCount int
	CreatedAt    time.Time
	FoodMentions []string // case-normalized food names, zero or more
}

// FoodWindowAggregate holds per-food metrics over one aggregation window.
// Regenerated from scratch on every batch run; never mutated in place.
type FoodWindowAggregate struct {
	Food             string
	WindowDays       int
	WindowEnd        time.Time
	MentionCount     int
	AvgScore         float64
	MaxScore         float64
	AvgComments      float64
	AvgEngagement    float64
	UniqueSubreddits int
	WeekendRatio     float64
	Velocity         float64 // mentions per day within the window
	GrowthRate       float64 // recent vs prior sub-window, capped
	AvgUpvoteRatio   float64
	TotalEngagement  float64
}

// TrainingExample pairs a fused feature vector with its binary label.
// The label is assigned once at dataset-build time and never mutated.
type TrainingExample struct {
	Aggregate FoodWindowAggregate
	Fused     []float64
	Label     int // 1 trending, 0 not
}

// TrendPrediction is one scoring-run output for one food. Predictions
// accumulate as a time series; prior runs are never overwritten.
type TrendPrediction struct {
	Food              string    `json:"food"`
	TrendProbability  float64   `json:"trend_probability"`
	PredictedTrending bool      `json:"predicted_trending"`
	Velocity          float64   `json:"velocity"`
	GrowthRate        float64   `json:"growth_rate"`
	MentionCount      int       `json:"mention_count"`
	AvgScore          float64   `json:"avg_score"`
	AvgEngagement     float64   `json:"avg_engagement"`
	UniqueSubreddits  int       `json:"unique_subreddits"`
	CreatedAt         time.Time `json:"created_at"`
}

// FeatureImportance is one ranked entry of a trained model's importances.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Evaluation records held-out metrics for one trained model version.
type Evaluation struct {
	ModelVersion    string              `json:"model_version"`
	Accuracy        float64             `json:"accuracy"`
	Precision       float64             `json:"precision"`
	Recall          float64             `json:"recall"`
	F1Score         float64             `json:"f1_score"`
	TrainingSamples int                 `json:"training_samples"`
	TestSamples     int                 `json:"test_samples"`
	TrainingDate    time.Time           `json:"training_date"`
	Importances     []FeatureImportance `json:"importances,omitempty"`
}
