package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	"github.com/franz/music-catalog/internal/catalog"
	"github.com/franz/music-catalog/internal/util"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestDefaults(t *testing.T) {
	cfg, err := FromViper(newViper())
	if err != nil {
		t.Fatalf("FromViper failed: %v", err)
	}

	if cfg.OnEmptyAlbum != catalog.DeleteEmptyAlbums {
		t.Errorf("expected delete policy by default, got %q", cfg.OnEmptyAlbum)
	}
	if cfg.SearchMinTokenLen != 2 {
		t.Errorf("expected min token length 2, got %d", cfg.SearchMinTokenLen)
	}
	if cfg.RecommendationWeightAcoustic != 0.5 {
		t.Errorf("expected acoustic weight 0.5, got %v", cfg.RecommendationWeightAcoustic)
	}
	if cfg.RecommendationStalenessThreshold != 1 {
		t.Errorf("expected staleness threshold 1, got %d", cfg.RecommendationStalenessThreshold)
	}
	if cfg.AnalysisDimension != 0 {
		t.Errorf("expected any analysis dimension, got %d", cfg.AnalysisDimension)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"retain policy", func(c *Config) { c.OnEmptyAlbum = catalog.RetainEmptyAlbums }, false},
		{"unknown policy", func(c *Config) { c.OnEmptyAlbum = "archive" }, true},
		{"zero token length", func(c *Config) { c.SearchMinTokenLen = 0 }, true},
		{"weight below range", func(c *Config) { c.RecommendationWeightAcoustic = -0.1 }, true},
		{"weight above range", func(c *Config) { c.RecommendationWeightAcoustic = 1.5 }, true},
		{"weight bounds inclusive", func(c *Config) { c.RecommendationWeightAcoustic = 1 }, false},
		{"zero threshold", func(c *Config) { c.RecommendationStalenessThreshold = 0 }, true},
		{"negative dimension", func(c *Config) { c.AnalysisDimension = -3 }, true},
		{"negative workers", func(c *Config) { c.ReindexWorkers = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				if !errors.Is(err, util.ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestFromViperRejectsBadPolicy(t *testing.T) {
	v := newViper()
	v.Set(KeyOnEmptyAlbum, "keep-forever")
	if _, err := FromViper(v); !errors.Is(err, util.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestFromConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mcat.yaml")
	content := `db: /data/catalog.db
on_empty_album: retain
search_min_token_len: 3
recommendation_weight_acoustic: 0.8
analysis_dimension: 12
events_dir: /data/events
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("failed to read config: %v", err)
	}

	cfg, err := FromViper(v)
	if err != nil {
		t.Fatalf("FromViper failed: %v", err)
	}
	if cfg.DB != "/data/catalog.db" || cfg.OnEmptyAlbum != catalog.RetainEmptyAlbums {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.SearchMinTokenLen != 3 || cfg.RecommendationWeightAcoustic != 0.8 || cfg.AnalysisDimension != 12 {
		t.Errorf("numeric values not applied: %+v", cfg)
	}
	// Unset keys keep their defaults
	if cfg.RecommendationStalenessThreshold != 1 {
		t.Errorf("expected default threshold, got %d", cfg.RecommendationStalenessThreshold)
	}

	opts := cfg.IndexOptions()
	if opts.MinTokenLen != 3 || opts.Recommend.WeightAcoustic != 0.8 {
		t.Errorf("unexpected index options: %+v", opts)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("MCAT_ON_EMPTY_ALBUM", "retain")

	v := newViper()
	v.SetEnvPrefix("MCAT")
	v.AutomaticEnv()

	cfg, err := FromViper(v)
	if err != nil {
		t.Fatalf("FromViper failed: %v", err)
	}
	if cfg.OnEmptyAlbum != catalog.RetainEmptyAlbums {
		t.Errorf("expected env override to retain, got %q", cfg.OnEmptyAlbum)
	}
}
