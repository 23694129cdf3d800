// Package sqlitestore is the relational storage collaborator: raw posts in,
// prediction and evaluation records out. The scoring core only reaches it
// through the narrow fetch/persist methods here.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"foodtrend/internal/model"
)

// Store wraps the SQLite database.
type Store struct{ sql *sql.DB }

func Open(path string) (*Store, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Single connection: SQLite has one writer, and :memory: databases
	// are per-connection.
	d.SetMaxOpenConns(1)
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		return nil, err
	}
	s := &Store{sql: d}
	if err := s.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.sql.Close() }

func (s *Store) migrate() error {
	_, err := s.sql.Exec(`
	CREATE TABLE IF NOT EXISTS posts (
	  post_id TEXT PRIMARY KEY,
	  subreddit TEXT NOT NULL,
	  title TEXT NOT NULL,
	  body TEXT,
	  author TEXT,
	  score INTEGER NOT NULL,
	  upvote_ratio REAL NOT NULL,
	  num_comments INTEGER NOT NULL,
	  created_utc INTEGER NOT NULL,
	  food_mentions TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_posts_created ON posts(created_utc);
	CREATE TABLE IF NOT EXISTS predictions (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  food TEXT NOT NULL,
	  trend_probability REAL NOT NULL,
	  predicted_trending INTEGER NOT NULL,
	  velocity REAL NOT NULL,
	  growth_rate REAL NOT NULL,
	  mention_count INTEGER NOT NULL,
	  avg_score REAL NOT NULL,
	  avg_engagement REAL NOT NULL,
	  unique_subreddits INTEGER NOT NULL,
	  created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_predictions_food ON predictions(food, created_at);
	CREATE TABLE IF NOT EXISTS evaluations (
	  model_version TEXT PRIMARY KEY,
	  accuracy REAL NOT NULL,
	  precision REAL NOT NULL,
	  recall REAL NOT NULL,
	  f1_score REAL NOT NULL,
	  training_samples INTEGER NOT NULL,
	  test_samples INTEGER NOT NULL,
	  training_date INTEGER NOT NULL
	);
	`)
	return err
}

// PutPosts inserts posts in one transaction, ignoring duplicates by id.
// Posts are immutable once ingested, so re-collection never rewrites them.
func (s *Store) PutPosts(ctx context.Context, posts []model.Post) error {
	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO posts
		(post_id, subreddit, title, body, author, score, upvote_ratio, num_comments, created_utc, food_mentions)
		VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, p := range posts {
		foods, _ := json.Marshal(p.FoodMentions)
		if _, err := stmt.ExecContext(ctx, p.ID, p.Subreddit, p.Title, p.Body, p.Author,
			p.Score, p.UpvoteRatio, p.CommentCount, p.CreatedAt.Unix(), string(foods)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// FetchPosts returns posts created at or after since with score >= minScore,
// ordered by creation time.
func (s *Store) FetchPosts(ctx context.Context, since time.Time, minScore int) ([]model.Post, error) {
	rows, err := s.sql.QueryContext(ctx, `SELECT post_id, subreddit, title, body, author,
		score, upvote_ratio, num_comments, created_utc, food_mentions
		FROM posts WHERE created_utc >= ? AND score >= ? ORDER BY created_utc, post_id`,
		since.Unix(), minScore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Post
	for rows.Next() {
		var p model.Post
		var created int64
		var foods string
		var body, author sql.NullString
		if err := rows.Scan(&p.ID, &p.Subreddit, &p.Title, &body, &author,
			&p.Score, &p.UpvoteRatio, &p.CommentCount, &created, &foods); err != nil {
			return nil, err
		}
		p.Body = body.String
		p.Author = author.String
		p.CreatedAt = time.Unix(created, 0).UTC()
		if err := json.Unmarshal([]byte(foods), &p.FoodMentions); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SavePredictions appends one scoring run's predictions in a single
// transaction: either the whole batch becomes visible or none of it.
// Prior predictions for the same food are kept as a time series.
func (s *Store) SavePredictions(ctx context.Context, preds []model.TrendPrediction) error {
	tx, err := s.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO predictions
		(food, trend_probability, predicted_trending, velocity, growth_rate,
		 mention_count, avg_score, avg_engagement, unique_subreddits, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, p := range preds {
		trending := 0
		if p.PredictedTrending {
			trending = 1
		}
		if _, err := stmt.ExecContext(ctx, p.Food, p.TrendProbability, trending,
			p.Velocity, p.GrowthRate, p.MentionCount, p.AvgScore, p.AvgEngagement,
			p.UniqueSubreddits, p.CreatedAt.Unix()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LatestPredictions returns the most recent prediction per food, ordered by
// probability descending, capped at limit (0 means no cap).
func (s *Store) LatestPredictions(ctx context.Context, limit int) ([]model.TrendPrediction, error) {
	q := `SELECT food, trend_probability, predicted_trending, velocity, growth_rate,
		mention_count, avg_score, avg_engagement, unique_subreddits, created_at
		FROM predictions p
		WHERE id = (SELECT id FROM predictions WHERE food = p.food ORDER BY created_at DESC, id DESC LIMIT 1)
		ORDER BY trend_probability DESC, food`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryPredictions(ctx, q, args...)
}

// PredictionHistory returns the full prediction time series for one food,
// oldest first.
func (s *Store) PredictionHistory(ctx context.Context, food string) ([]model.TrendPrediction, error) {
	return s.queryPredictions(ctx, `SELECT food, trend_probability, predicted_trending,
		velocity, growth_rate, mention_count, avg_score, avg_engagement, unique_subreddits, created_at
		FROM predictions WHERE food = ? ORDER BY created_at, id`, model.NormalizeFoodName(food))
}

func (s *Store) queryPredictions(ctx context.Context, q string, args ...any) ([]model.TrendPrediction, error) {
	rows, err := s.sql.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.TrendPrediction
	for rows.Next() {
		var p model.TrendPrediction
		var trending int
		var created int64
		if err := rows.Scan(&p.Food, &p.TrendProbability, &trending, &p.Velocity,
			&p.GrowthRate, &p.MentionCount, &p.AvgScore, &p.AvgEngagement,
			&p.UniqueSubreddits, &created); err != nil {
			return nil, err
		}
		p.PredictedTrending = trending == 1
		p.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// SaveEvaluation upserts the evaluation record for a model version.
func (s *Store) SaveEvaluation(ctx context.Context, e model.Evaluation) error {
	_, err := s.sql.ExecContext(ctx, `INSERT INTO evaluations
		(model_version, accuracy, precision, recall, f1_score, training_samples, test_samples, training_date)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(model_version) DO UPDATE SET
		  accuracy=excluded.accuracy, precision=excluded.precision, recall=excluded.recall,
		  f1_score=excluded.f1_score, training_samples=excluded.training_samples,
		  test_samples=excluded.test_samples, training_date=excluded.training_date`,
		e.ModelVersion, e.Accuracy, e.Precision, e.Recall, e.F1Score,
		e.TrainingSamples, e.TestSamples, e.TrainingDate.Unix())
	return err
}

// LatestEvaluation returns the most recently trained model's evaluation.
func (s *Store) LatestEvaluation(ctx context.Context) (model.Evaluation, error) {
	var e model.Evaluation
	var trained int64
	row := s.sql.QueryRowContext(ctx, `SELECT model_version, accuracy, precision, recall,
		f1_score, training_samples, test_samples, training_date
		FROM evaluations ORDER BY training_date DESC LIMIT 1`)
	if err := row.Scan(&e.ModelVersion, &e.Accuracy, &e.Precision, &e.Recall,
		&e.F1Score, &e.TrainingSamples, &e.TestSamples, &trained); err != nil {
		return e, err
	}
	e.TrainingDate = time.Unix(trained, 0).UTC()
	return e, nil
}
