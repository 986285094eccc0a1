package util

import "github.com/spf13/viper"

// GetAutoReindex returns whether CLI commands rebuild the indices on their own
// after the engine reports ErrInconsistent.
// Auto-reindex can be disabled with --no-auto-reindex flag
func GetAutoReindex() bool {
	return !viper.GetBool("no-auto-reindex")
}
