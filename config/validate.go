package config

import (
	"github.com/teranos/medkit/errors"
	"github.com/teranos/medkit/internal/util"
	"github.com/teranos/medkit/logger"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendMemory:
	case StoreBackendSQLite:
		if c.Store.Path == "" {
			return errors.New("store.path cannot be empty when store.backend is sqlite")
		}
	default:
		return errors.Newf("store.backend must be %q or %q, got %q", StoreBackendMemory, StoreBackendSQLite, c.Store.Backend)
	}

	switch c.Provenance.ConflictPolicy {
	case ConflictPolicyError, ConflictPolicyIgnore:
	default:
		return errors.Newf("provenance.conflict_policy must be %q or %q, got %q", ConflictPolicyError, ConflictPolicyIgnore, c.Provenance.ConflictPolicy)
	}

	switch c.Provenance.Format {
	case FormatDOT, FormatJSON:
	default:
		return errors.Newf("provenance.format must be %q or %q, got %q", FormatDOT, FormatJSON, c.Provenance.Format)
	}

	// Workers: 0 would process nothing, negative is invalid
	if c.Pipeline.Workers <= 0 {
		return errors.Newf("pipeline.workers must be > 0, got %d", c.Pipeline.Workers)
	}

	if logger.ParseLevel(c.Log.Level).String() != c.Log.Level {
		return errors.Newf("log.level %q is not a known level", c.Log.Level)
	}

	return nil
}

// MaxDepth converts the configured depth to the pointer form used by
// the provenance exporters: nil means unlimited.
func (p ProvenanceConfig) MaxDepth() *int {
	if p.MaxSubGraphDepth < 0 {
		return nil
	}
	return util.Ptr(p.MaxSubGraphDepth)
}
