// Package config loads and validates the engine's settings from viper
// (flags, MCAT_* environment variables, YAML config file).
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/index"
	"github.com/franz/music-catalog/internal/recommend"
	"github.com/franz/music-catalog/internal/search"
	"github.com/franz/music-catalog/internal/util"
)

// Viper keys
const (
	KeyDB                 = "db"
	KeyOnEmptyAlbum       = "on_empty_album"
	KeyMinTokenLen        = "search_min_token_len"
	KeyWeightAcoustic     = "recommendation_weight_acoustic"
	KeyStalenessThreshold = "recommendation_staleness_threshold"
	KeyAnalysisDimension  = "analysis_dimension"
	KeyReindexWorkers     = "reindex_workers"
	KeyChangeLogCapacity  = "change_log_capacity"
	KeyEventsDir          = "events_dir"
	KeyEventLevel         = "event_level"
	KeyNetworkOptimized   = "network_optimized"
	KeyVerbose            = "verbose"
	KeyQuiet              = "quiet"
)

// Config holds every engine setting
type Config struct {
	DB           string
	OnEmptyAlbum catalog.EmptyAlbumPolicy

	SearchMinTokenLen int

	RecommendationWeightAcoustic     float64
	RecommendationStalenessThreshold int

	// 0 accepts any dimension
	AnalysisDimension int

	ReindexWorkers    int // 0 = GOMAXPROCS
	ChangeLogCapacity int

	EventsDir  string // empty disables the audit log
	EventLevel string

	NetworkOptimized bool
	Verbose          bool
	Quiet            bool
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		DB:                               "mcat.db",
		OnEmptyAlbum:                     catalog.DeleteEmptyAlbums,
		SearchMinTokenLen:                search.DefaultMinTokenLen,
		RecommendationWeightAcoustic:     recommend.DefaultWeightAcoustic,
		RecommendationStalenessThreshold: recommend.DefaultStalenessThreshold,
		ChangeLogCapacity:                index.DefaultLogCapacity,
		EventLevel:                       "info",
	}
}

// SetDefaults registers Default() with a viper instance
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault(KeyDB, d.DB)
	v.SetDefault(KeyOnEmptyAlbum, string(d.OnEmptyAlbum))
	v.SetDefault(KeyMinTokenLen, d.SearchMinTokenLen)
	v.SetDefault(KeyWeightAcoustic, d.RecommendationWeightAcoustic)
	v.SetDefault(KeyStalenessThreshold, d.RecommendationStalenessThreshold)
	v.SetDefault(KeyAnalysisDimension, d.AnalysisDimension)
	v.SetDefault(KeyReindexWorkers, d.ReindexWorkers)
	v.SetDefault(KeyChangeLogCapacity, d.ChangeLogCapacity)
	v.SetDefault(KeyEventLevel, d.EventLevel)
}

// FromViper reads and validates the settings
func FromViper(v *viper.Viper) (Config, error) {
	policy, err := catalog.ParseEmptyAlbumPolicy(v.GetString(KeyOnEmptyAlbum))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DB:                               v.GetString(KeyDB),
		OnEmptyAlbum:                     policy,
		SearchMinTokenLen:                v.GetInt(KeyMinTokenLen),
		RecommendationWeightAcoustic:     v.GetFloat64(KeyWeightAcoustic),
		RecommendationStalenessThreshold: v.GetInt(KeyStalenessThreshold),
		AnalysisDimension:                v.GetInt(KeyAnalysisDimension),
		ReindexWorkers:                   v.GetInt(KeyReindexWorkers),
		ChangeLogCapacity:                v.GetInt(KeyChangeLogCapacity),
		EventsDir:                        v.GetString(KeyEventsDir),
		EventLevel:                       v.GetString(KeyEventLevel),
		NetworkOptimized:                 v.GetBool(KeyNetworkOptimized),
		Verbose:                          v.GetBool(KeyVerbose),
		Quiet:                            v.GetBool(KeyQuiet),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks ranges. Every failure wraps util.ErrInvalidConfig.
func (c Config) Validate() error {
	if _, err := catalog.ParseEmptyAlbumPolicy(string(c.OnEmptyAlbum)); err != nil {
		return err
	}
	if c.SearchMinTokenLen < 1 {
		return fmt.Errorf("%w: %s must be at least 1, got %d", util.ErrInvalidConfig, KeyMinTokenLen, c.SearchMinTokenLen)
	}
	if c.RecommendationWeightAcoustic < 0 || c.RecommendationWeightAcoustic > 1 {
		return fmt.Errorf("%w: %s must be in [0,1], got %v", util.ErrInvalidConfig, KeyWeightAcoustic, c.RecommendationWeightAcoustic)
	}
	if c.RecommendationStalenessThreshold < 1 {
		return fmt.Errorf("%w: %s must be at least 1, got %d", util.ErrInvalidConfig, KeyStalenessThreshold, c.RecommendationStalenessThreshold)
	}
	if c.AnalysisDimension < 0 {
		return fmt.Errorf("%w: %s must not be negative, got %d", util.ErrInvalidConfig, KeyAnalysisDimension, c.AnalysisDimension)
	}
	if c.ReindexWorkers < 0 {
		return fmt.Errorf("%w: %s must not be negative, got %d", util.ErrInvalidConfig, KeyReindexWorkers, c.ReindexWorkers)
	}
	if c.ChangeLogCapacity < 0 {
		return fmt.Errorf("%w: %s must not be negative, got %d", util.ErrInvalidConfig, KeyChangeLogCapacity, c.ChangeLogCapacity)
	}
	return nil
}

// IndexOptions translates the settings for the index coordinator
func (c Config) IndexOptions() index.Options {
	return index.Options{
		MinTokenLen: c.SearchMinTokenLen,
		Recommend: recommend.Options{
			WeightAcoustic:     c.RecommendationWeightAcoustic,
			StalenessThreshold: c.RecommendationStalenessThreshold,
		},
		Workers:     c.ReindexWorkers,
		LogCapacity: c.ChangeLogCapacity,
	}
}
