package config

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetDefault("store.backend", StoreBackendMemory)
	v.SetDefault("store.path", "medkit.db")

	v.SetDefault("provenance.enabled", true)
	v.SetDefault("provenance.conflict_policy", ConflictPolicyError)
	v.SetDefault("provenance.max_sub_graph_depth", -1) // unlimited
	v.SetDefault("provenance.show_attr_links", true)
	v.SetDefault("provenance.format", FormatDOT)

	v.SetDefault("pipeline.workers", 1)

	v.SetDefault("metrics.enabled", false)
}

// Default returns a Config populated only from defaults
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		// defaults always unmarshal
		panic(err)
	}
	return cfg
}
