package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"foodtrend/internal/config"
	"foodtrend/internal/embed"
	"foodtrend/internal/jobs"
	"foodtrend/internal/metrics"
	"foodtrend/internal/model"
	"foodtrend/internal/redditclient"
	"foodtrend/internal/store/sqlitestore"
	"foodtrend/internal/theme"
	"foodtrend/internal/trend"
)

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	switch cmd {
	case "init":
		cmdInit()
	case "collect":
		cmdCollect()
	case "train":
		cmdTrain()
	case "predict":
		cmdPredict()
	case "report":
		cmdReport()
	case "categories":
		cmdCategories()
	default:
		printHelp()
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: foodtrend <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./foodtrend.yaml")
	fmt.Println("  collect     Fetch subreddit posts mentioning lexicon foods")
	fmt.Println("  train       Train a fresh model on stored posts")
	fmt.Println("  predict     Score all foods (or one with -food) in the current window")
	fmt.Println("  report      Print the tiered recommendation report")
	fmt.Println("  categories  Print per-category trend rollups")
}

// fail prints the error and exits non-zero. Taxonomy errors and plain
// failures alike map to status 1.
func fail(err error) {
	fmt.Println("error:", err)
	os.Exit(1)
}

func loadConfig(path string) config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		fail(err)
	}
	metrics.StartServer(cfg.Metrics.Addr)
	return cfg
}

func openStore(cfg config.Config) *sqlitestore.Store {
	db, err := sqlitestore.Open(cfg.Storage.DBPath)
	if err != nil {
		fail(fmt.Errorf("%w: open store: %v", model.ErrUpstreamUnavailable, err))
	}
	return db
}

func loadEmbedder(cfg config.Config) embed.Embedder {
	e, err := embed.FromConfig(cfg.Embedder)
	if err != nil {
		fail(err)
	}
	return e
}

func loadModel(cfg config.Config) *trend.Model {
	m, err := trend.Load(cfg.Classifier.ModelPath)
	if err != nil {
		fail(err)
	}
	return m
}

func cmdInit() {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./foodtrend.yaml", "path to write config")
	_ = fs.Parse(os.Args[2:])
	if err := config.Save(*path, config.Default()); err != nil {
		fail(err)
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
}

func cmdCollect() {
	fs := flag.NewFlagSet("collect", flag.ExitOnError)
	cfgPath := fs.String("config", "./foodtrend.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	if cfg.Collection.ClientID == "" {
		fmt.Println("warning: missing REDDIT_CLIENT_ID; using the public listing endpoint")
	}
	client := redditclient.NewHTTPClient(cfg.Collection.ClientID, cfg.Collection.ClientSecret, cfg.Collection.UserAgent)
	db := openStore(cfg)
	defer db.Close()
	n, err := jobs.RunCollection(context.Background(), db, client, cfg)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Collected %d food posts across %d subreddits\n", n, len(cfg.Collection.Subreddits))
}

func cmdTrain() {
	fs := flag.NewFlagSet("train", flag.ExitOnError)
	cfgPath := fs.String("config", "./foodtrend.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	db := openStore(cfg)
	defer db.Close()
	m, eval, err := jobs.RunTraining(context.Background(), db, loadEmbedder(cfg), cfg, time.Now().UTC())
	if err != nil {
		fail(err)
	}
	fmt.Printf("Model %s trained on %d examples (%d held out)\n",
		m.Version, eval.TrainingSamples, eval.TestSamples)
	fmt.Printf("accuracy=%.3f precision=%.3f recall=%.3f f1=%.3f\n",
		eval.Accuracy, eval.Precision, eval.Recall, eval.F1Score)
	top := eval.Importances
	if len(top) > 10 {
		top = top[:10]
	}
	fmt.Println("Top features:")
	for _, fi := range top {
		fmt.Printf("  %-24s %.4f\n", fi.Feature, fi.Importance)
	}
}

func cmdPredict() {
	fs := flag.NewFlagSet("predict", flag.ExitOnError)
	cfgPath := fs.String("config", "./foodtrend.yaml", "config path")
	food := fs.String("food", "", "score a single food instead of the full batch")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	db := openStore(cfg)
	defer db.Close()
	m := loadModel(cfg)
	emb := loadEmbedder(cfg)
	now := time.Now().UTC()

	if *food != "" {
		p, err := jobs.PredictFood(context.Background(), db, m, emb, cfg, *food, now)
		if err != nil {
			fail(err)
		}
		printPrediction(p)
		return
	}
	preds, err := jobs.RunScoring(context.Background(), db, m, emb, cfg, now)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Scored and persisted %d foods\n", len(preds))
	for _, p := range preds {
		printPrediction(p)
	}
}

func printPrediction(p model.TrendPrediction) {
	marker := " "
	if p.PredictedTrending {
		marker = "*"
	}
	fmt.Printf("%s %-20s p=%.3f velocity=%.2f growth=%.2f mentions=%d subs=%d\n",
		marker, p.Food, p.TrendProbability, p.Velocity, p.GrowthRate, p.MentionCount, p.UniqueSubreddits)
}

func cmdReport() {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	cfgPath := fs.String("config", "./foodtrend.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	db := openStore(cfg)
	defer db.Close()
	rep, err := jobs.BuildReport(context.Background(), db, cfg, time.Now().UTC())
	if err != nil {
		fail(err)
	}
	if len(rep.Ranked) == 0 {
		fail(fmt.Errorf("no stored predictions (run \"foodtrend predict\" first): %w", model.ErrDataInsufficiency))
	}
	theme.PrintBanner()
	fmt.Printf("Generated %s\n\n", rep.GeneratedAt.Format(time.RFC3339))
	for _, r := range rep.Ranked {
		fmt.Printf("%-20s p=%.3f velocity=%.2f  %s\n", r.Food, r.Probability, r.Velocity, r.Tier)
	}
	if len(rep.Actionable) > 0 {
		fmt.Println("\nImmediate consideration:")
		for _, r := range rep.Actionable {
			fmt.Printf("  %-20s p=%.3f  %s\n", r.Food, r.Probability, r.Tier.Action())
		}
	}
}

func cmdCategories() {
	fs := flag.NewFlagSet("categories", flag.ExitOnError)
	cfgPath := fs.String("config", "./foodtrend.yaml", "config path")
	_ = fs.Parse(os.Args[2:])
	cfg := loadConfig(*cfgPath)
	db := openStore(cfg)
	defer db.Close()
	rep, err := jobs.BuildReport(context.Background(), db, cfg, time.Now().UTC())
	if err != nil {
		fail(err)
	}
	if len(rep.Categories) == 0 {
		fmt.Println("No category rollups yet")
		return
	}
	for _, c := range rep.Categories {
		fmt.Printf("%-14s avg=%.3f trending=%d top=%s\n",
			c.Category, c.AvgProbability, c.TrendingCount, c.TopFood)
	}
}
