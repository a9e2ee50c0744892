// Package config loads medkit settings from TOML files and MEDKIT_* environment
// variables using viper.
package config

// Config represents the medkit configuration
type Config struct {
	Log        LogConfig        `mapstructure:"log" toml:"log"`
	Store      StoreConfig      `mapstructure:"store" toml:"store"`
	Provenance ProvenanceConfig `mapstructure:"provenance" toml:"provenance"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline" toml:"pipeline"`
	Metrics    MetricsConfig    `mapstructure:"metrics" toml:"metrics"`
}

// LogConfig configures the global zap logger
type LogConfig struct {
	Level string `mapstructure:"level" toml:"level"` // debug, info, warn, error
	JSON  bool   `mapstructure:"json" toml:"json"`
}

// Store backends
const (
	StoreBackendMemory = "memory"
	StoreBackendSQLite = "sqlite"
)

// StoreConfig selects where data items are kept
type StoreConfig struct {
	Backend string `mapstructure:"backend" toml:"backend"`
	Path    string `mapstructure:"path" toml:"path"` // sqlite file; ":memory:" is allowed
}

// Conflict policies for provenance re-registration
const (
	ConflictPolicyError  = "error"
	ConflictPolicyIgnore = "ignore"
)

// Provenance export formats
const (
	FormatDOT  = "dot"
	FormatJSON = "json"
)

// ProvenanceConfig configures provenance tracing and export
type ProvenanceConfig struct {
	Enabled        bool   `mapstructure:"enabled" toml:"enabled"`
	ConflictPolicy string `mapstructure:"conflict_policy" toml:"conflict_policy"`
	// MaxSubGraphDepth < 0 means unlimited, 0 shows nested pipelines as single nodes
	MaxSubGraphDepth int    `mapstructure:"max_sub_graph_depth" toml:"max_sub_graph_depth"`
	ShowAttrLinks    bool   `mapstructure:"show_attr_links" toml:"show_attr_links"`
	Format           string `mapstructure:"format" toml:"format"`
}

// PipelineConfig configures document-level execution
type PipelineConfig struct {
	Workers int `mapstructure:"workers" toml:"workers"` // documents processed concurrently (default: 1)
}

// MetricsConfig toggles prometheus collection
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" toml:"enabled"`
}

// File and directory permissions used when writing configuration
const (
	DefaultFilePermissions = 0644
	DefaultDirPermissions  = 0750
)
