// Package config handles dealsearch configuration loading and management.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	if path == "~" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return homeDir
	}
	return path
}

// Config holds all dealsearch configuration.
type Config struct {
	DataDir   string          `mapstructure:"data_dir"`
	LogLevel  string          `mapstructure:"log_level"`
	LogFormat string          `mapstructure:"log_format"`

	Data      DataConfig      `mapstructure:"data"`
	Ranking   RankingConfig   `mapstructure:"ranking"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Expansion ExpansionConfig `mapstructure:"expansion"`
	MCP       MCPConfig       `mapstructure:"mcp"`
}

// DataConfig locates the two source JSON documents record construction
// consumes (see SPEC_FULL.md §6 / Part C).
type DataConfig struct {
	DealsPath             string `mapstructure:"deals_path"`
	QualifyingProductsPath string `mapstructure:"qualifying_products_path"`
}

// RankingConfig externalizes every tunable constant the core fusion and
// post-ranking steps use. Defaults reproduce spec.md exactly; the fields
// exist so the Open Questions flagged in spec.md §9 (semantic-only
// discount, multi-source bonus cap, density floor, adaptive-cutoff
// constants) are overridable without a recompile.
type RankingConfig struct {
	DefaultTopK int `mapstructure:"default_top_k"`

	FieldWeightOfferName          float64 `mapstructure:"field_weight_offer_name"`
	FieldWeightProductName        float64 `mapstructure:"field_weight_product_name"`
	FieldWeightOfferDescription   float64 `mapstructure:"field_weight_offer_description"`
	FieldWeightMinor              float64 `mapstructure:"field_weight_minor"` // category/department/shelf
	WholeWordBonus                float64 `mapstructure:"whole_word_bonus"`

	FuzzyThreshold       float64 `mapstructure:"fuzzy_threshold"`
	FuzzyStrongThreshold float64 `mapstructure:"fuzzy_strong_threshold"`

	KeywordWeight       float64 `mapstructure:"keyword_weight"`
	FuzzyWeight         float64 `mapstructure:"fuzzy_weight"`
	SemanticWeight      float64 `mapstructure:"semantic_weight"`
	MultiSourceBonus    float64 `mapstructure:"multi_source_bonus"`
	MultiSourceBonusCap float64 `mapstructure:"multi_source_bonus_cap"`
	SemanticOnlyDiscount float64 `mapstructure:"semantic_only_discount"`

	DensityFloorScore float64 `mapstructure:"density_floor_score"`
	DensityFloorValue float64 `mapstructure:"density_floor_value"`
	DensityNoMatchGap float64 `mapstructure:"density_no_match_gap"`

	OfferNameBoost float64 `mapstructure:"offer_name_boost"`

	CutoffScoreThreshold float64 `mapstructure:"cutoff_score_threshold"`
	CutoffRatioHigh      float64 `mapstructure:"cutoff_ratio_high"`
	CutoffRatioLow       float64 `mapstructure:"cutoff_ratio_low"`

	// ExpansionCutoffRatio is the query-expansion adapter's own adaptive
	// cutoff ratio, distinct from the core's threshold-dependent ratio.
	ExpansionCutoffRatio float64 `mapstructure:"expansion_cutoff_ratio"`
	ExpansionHitBonus    float64 `mapstructure:"expansion_hit_bonus"`
	ExpansionHitBonusCap int     `mapstructure:"expansion_hit_bonus_cap"`
}

// EmbeddingConfig configures the Ollama-backed Encoder.
type EmbeddingConfig struct {
	Model     string `mapstructure:"model"`
	Host      string `mapstructure:"host"`
	Dimension int    `mapstructure:"dimension"`
	BatchSize int     `mapstructure:"batch_size"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// CacheConfig configures the optional persistence backends for the
// embedding matrix and the flattened record-set snapshot.
type CacheConfig struct {
	RedisAddr       string `mapstructure:"redis_addr"`
	QdrantAddr      string `mapstructure:"qdrant_addr"`
	QdrantCollection string `mapstructure:"qdrant_collection"`
	SQLitePath      string `mapstructure:"sqlite_path"`
}

// ExpansionConfig selects the query-expansion AI provider.
type ExpansionConfig struct {
	Provider       string `mapstructure:"provider"`
	Model          string `mapstructure:"model"`
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
	CacheSize      int    `mapstructure:"cache_size"`
}

// MCPConfig configures the stdio tool wrapper.
type MCPConfig struct {
	DefaultTopK int    `mapstructure:"default_top_k"`
	MaxTopK     int    `mapstructure:"max_top_k"`
	LogLevel    string `mapstructure:"log_level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".dealsearch")

	return &Config{
		DataDir:   dataDir,
		LogLevel:  "info",
		LogFormat: "json",

		Data: DataConfig{
			DealsPath:              filepath.Join(dataDir, "deals.json"),
			QualifyingProductsPath: filepath.Join(dataDir, "qualifying-products.json"),
		},

		Ranking: RankingConfig{
			DefaultTopK: 20,

			FieldWeightOfferName:        3.0,
			FieldWeightProductName:      2.0,
			FieldWeightOfferDescription: 1.0,
			FieldWeightMinor:            0.5,
			WholeWordBonus:              1.5,

			FuzzyThreshold:       60,
			FuzzyStrongThreshold: 80,

			KeywordWeight:        0.50,
			FuzzyWeight:          0.25,
			SemanticWeight:       0.25,
			MultiSourceBonus:     0.10,
			MultiSourceBonusCap:  0.20,
			SemanticOnlyDiscount: 0.5,

			DensityFloorScore: 0.3,
			DensityFloorValue: 0.1,
			DensityNoMatchGap: 0.7,

			OfferNameBoost: 1.2,

			CutoffScoreThreshold: 0.5,
			CutoffRatioHigh:      0.4,
			CutoffRatioLow:       0.7,

			ExpansionCutoffRatio: 0.45,
			ExpansionHitBonus:    0.1,
			ExpansionHitBonusCap: 3,
		},

		Embedding: EmbeddingConfig{
			Model:          "nomic-embed-text",
			Host:           "http://localhost:11434",
			Dimension:      384,
			BatchSize:      32,
			TimeoutSeconds: 60,
		},

		Cache: CacheConfig{
			RedisAddr:        "",
			QdrantAddr:       "",
			QdrantCollection: "dealsearch_embeddings",
			SQLitePath:       filepath.Join(dataDir, "recordset_cache.db"),
		},

		Expansion: ExpansionConfig{
			Provider:       "ollama",
			Model:          "llama3.1:8b",
			Endpoint:       "http://localhost:11434",
			TimeoutSeconds: 30,
			MaxRetries:     1,
			CacheSize:      128,
		},

		MCP: MCPConfig{
			DefaultTopK: 20,
			MaxTopK:     50,
			LogLevel:    "info",
		},
	}
}

// Load loads configuration from files and environment.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("dealsearch")
	v.SetConfigType("yaml")

	homeDir, _ := os.UserHomeDir()
	v.AddConfigPath(filepath.Join(homeDir, ".dealsearch"))
	v.AddConfigPath("/etc/dealsearch")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DEALSEARCH")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	cfg.DataDir = expandPath(cfg.DataDir)
	cfg.Data.DealsPath = expandPath(cfg.Data.DealsPath)
	cfg.Data.QualifyingProductsPath = expandPath(cfg.Data.QualifyingProductsPath)
	cfg.Cache.SQLitePath = expandPath(cfg.Cache.SQLitePath)

	return cfg, nil
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	return os.MkdirAll(c.DataDir, 0700)
}

// LogPath returns the path to the log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.DataDir, "dealsearch.log")
}
