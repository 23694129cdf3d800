package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"foodtrend/internal/model"
)

// Config is the application's configuration model. It captures collection
// settings, aggregation windows, label policy, the embedder contract, the
// classifier hyperparameters, and report cut points.
type Config struct {
	Collection CollectionConfig    `yaml:"collection"`
	Storage    StorageConfig       `yaml:"storage"`
	Windows    WindowsConfig       `yaml:"windows"`
	Labels     LabelsConfig        `yaml:"labels"`
	Embedder   EmbedderConfig      `yaml:"embedder"`
	Classifier ClassifierConfig    `yaml:"classifier"`
	Report     ReportConfig        `yaml:"report"`
	Categories map[string][]string `yaml:"categories"`
	Lexicon    []string            `yaml:"lexicon"`
	Metrics    MetricsConfig       `yaml:"metrics"`
}

type CollectionConfig struct {
	Subreddits        []string `yaml:"subreddits"`
	UserAgent         string   `yaml:"userAgent"`
	PostsPerSubreddit int      `yaml:"postsPerSubreddit"`
	MinScore          int      `yaml:"minScore"`
	// Reddit API credentials. If empty, read from env REDDIT_CLIENT_ID /
	// REDDIT_CLIENT_SECRET.
	ClientID     string `yaml:"clientId"`
	ClientSecret string `yaml:"clientSecret"`
}

type StorageConfig struct {
	DBPath string `yaml:"dbPath"`
}

type WindowsConfig struct {
	// AggregationDays is the trailing window per food; it is split into two
	// equal halves for the growth comparison.
	AggregationDays int `yaml:"aggregationDays"`
	// TrainingDays bounds how far back posts are fetched for a training run.
	TrainingDays int `yaml:"trainingDays"`
}

type LabelsConfig struct {
	// Policy is "relative" (batch percentile, the default) or "absolute"
	// (fixed composite-score cutoff). The relative policy adapts to
	// corpus-wide engagement drift but may relabel the same food across
	// batches; the absolute policy trades that for stable labels.
	Policy string `yaml:"policy"`
	// Threshold is the percentile cut for the relative policy (0.75 means
	// the top 25% of the batch is labeled trending).
	Threshold float64 `yaml:"threshold"`
	// AbsoluteCutoff is the composite-score cut for the absolute policy.
	AbsoluteCutoff float64 `yaml:"absoluteCutoff"`
	// Composite ranking score weights.
	VelocityWeight   float64 `yaml:"velocityWeight"`
	GrowthWeight     float64 `yaml:"growthWeight"`
	EngagementWeight float64 `yaml:"engagementWeight"`
}

type EmbedderConfig struct {
	Provider    string `yaml:"provider"` // "hashing" or "http"
	Dimension   int    `yaml:"dimension"`
	BatchSize   int    `yaml:"batchSize"`
	Parallelism int    `yaml:"parallelism"`
	// MaxChars is the head-truncation budget applied to the concatenated
	// title+body text before encoding.
	MaxChars int    `yaml:"maxChars"`
	Endpoint string `yaml:"endpoint"` // http provider only
	Model    string `yaml:"model"`    // http provider only
}

type ClassifierConfig struct {
	ModelPath    string  `yaml:"modelPath"`
	Estimators   int     `yaml:"estimators"`
	MaxDepth     int     `yaml:"maxDepth"`
	LearningRate float64 `yaml:"learningRate"`
	Subsample    float64 `yaml:"subsample"`
	ColSample    float64 `yaml:"colSample"`
	MinExamples  int     `yaml:"minExamples"`
	Seed         int64   `yaml:"seed"`
}

type ReportConfig struct {
	TopN int `yaml:"topN"`
	// HighCut is the actionable ("immediate consideration") bound.
	HighCut float64 `yaml:"highCut"`
	// TrendingCut is the predicted-trending cut point, independent from the
	// training-label threshold.
	TrendingCut float64 `yaml:"trendingCut"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a sensible default configuration.
func Default() Config {
	return Config{
		Collection: CollectionConfig{
			Subreddits: []string{
				"food", "cooking", "recipes", "AskCulinary", "foodhacks",
				"EatCheapAndHealthy", "FoodPorn", "Baking", "healthyfood",
			},
			UserAgent:         "foodtrend/1.0",
			PostsPerSubreddit: 100,
			MinScore:          5,
		},
		Storage: StorageConfig{DBPath: "./foodtrend.db"},
		Windows: WindowsConfig{AggregationDays: 30, TrainingDays: 90},
		Labels: LabelsConfig{
			Policy:           "relative",
			Threshold:        0.75,
			AbsoluteCutoff:   0.6,
			VelocityWeight:   0.3,
			GrowthWeight:     0.4,
			EngagementWeight: 0.3,
		},
		Embedder: EmbedderConfig{
			Provider:    "hashing",
			Dimension:   768,
			BatchSize:   16,
			Parallelism: 4,
			MaxChars:    2048,
		},
		Classifier: ClassifierConfig{
			ModelPath:    "./models/trend.json",
			Estimators:   200,
			MaxDepth:     6,
			LearningRate: 0.1,
			Subsample:    0.8,
			ColSample:    0.8,
			MinExamples:  10,
			Seed:         42,
		},
		Report:     ReportConfig{TopN: 20, HighCut: 0.8, TrendingCut: 0.5},
		Categories: defaultCategories(),
		Metrics:    MetricsConfig{Addr: ""},
	}
}

func defaultCategories() map[string][]string {
	return map[string][]string{
		"Asian":       {"sushi", "ramen", "pho", "kimchi", "dumplings", "pad thai", "curry", "bibimbap", "banh mi"},
		"Italian":     {"pizza", "pasta", "tiramisu", "risotto", "carbonara"},
		"American":    {"burger", "bbq", "pancakes", "waffles", "bagel", "hot dog"},
		"Mexican":     {"tacos", "burrito", "empanada", "quesadilla", "nachos"},
		"Desserts":    {"cake", "cookies", "pie", "ice cream", "chocolate", "churros", "croissant", "donut"},
		"Healthy":     {"salad", "quinoa", "kale", "avocado", "smoothie", "poke"},
		"Plant-based": {"tofu", "tempeh", "seitan", "hummus", "falafel"},
		"Beverages":   {"coffee", "tea", "kombucha", "matcha"},
	}
}

// FoodCategory returns the food→category lookup built from the configured
// category map. Many-to-one; foods absent from every category are unmapped.
func (c Config) FoodCategory() map[string]string {
	out := make(map[string]string)
	for cat, foods := range c.Categories {
		for _, f := range foods {
			out[model.NormalizeFoodName(f)] = cat
		}
	}
	return out
}

// FoodLexicon returns the food terms used for mention extraction: the
// explicit lexicon if set, otherwise the union of all category foods.
func (c Config) FoodLexicon() []string {
	if len(c.Lexicon) > 0 {
		return c.Lexicon
	}
	var out []string
	for _, foods := range c.Categories {
		out = append(out, foods...)
	}
	return out
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Collection.ClientID == "" {
		c.Collection.ClientID = os.Getenv("REDDIT_CLIENT_ID")
	}
	if c.Collection.ClientSecret == "" {
		c.Collection.ClientSecret = os.Getenv("REDDIT_CLIENT_SECRET")
	}
	if v := os.Getenv("REDDIT_USER_AGENT"); v != "" && c.Collection.UserAgent == "" {
		c.Collection.UserAgent = v
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = os.Getenv("METRICS_ADDR")
	}
}

// Load reads YAML config from path.
func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
