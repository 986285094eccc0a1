package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/franz/music-catalog/internal/config"
	"github.com/franz/music-catalog/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is set at build time
	Version = "dev"

	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "mcat",
		Short: "Music Catalog - normalize, index and query a music library",
		Long: `mcat keeps a normalized Artist/Album/Track catalog of scanned audio files
in a SQLite database, together with a full-text search index, a similarity
recommendation index and user playlists that stay consistent as the catalog
changes.

Records come from an external scanner as JSON lines, or straight from the
tags of audio files.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/example.yaml)")
	rootCmd.PersistentFlags().String("db", config.Default().DB, "catalog database file")
	rootCmd.PersistentFlags().String("events-dir", "", "directory for the JSONL audit log (disabled when empty)")
	rootCmd.PersistentFlags().Bool("no-auto-reindex", false, "fail queries on inconsistent indices instead of rebuilding them")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "quiet output (errors only)")

	// Bind flags to viper
	viper.BindPFlag(config.KeyDB, rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag(config.KeyEventsDir, rootCmd.PersistentFlags().Lookup("events-dir"))
	viper.BindPFlag("no-auto-reindex", rootCmd.PersistentFlags().Lookup("no-auto-reindex"))
	viper.BindPFlag(config.KeyVerbose, rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag(config.KeyQuiet, rootCmd.PersistentFlags().Lookup("quiet"))

	config.SetDefaults(viper.GetViper())
}

func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in common locations
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.SetConfigName("example")
		viper.SetConfigType("yaml")
	}

	// Read in environment variables that match
	viper.SetEnvPrefix("MCAT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	util.AutoColors()
	util.SetVerbose(viper.GetBool(config.KeyVerbose))
	util.SetQuiet(viper.GetBool(config.KeyQuiet))

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		util.DebugLog("Using config file: %s", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
