package store

import (
	"go.uber.org/zap"

	"github.com/teranos/medkit/config"
	"github.com/teranos/medkit/core"
	"github.com/teranos/medkit/db"
	"github.com/teranos/medkit/errors"
)

// Open builds the store selected by cfg. The returned close function
// releases the backing database and is a no-op for the memory store.
func Open(cfg config.StoreConfig, logger *zap.SugaredLogger) (core.Store, func() error, error) {
	switch cfg.Backend {
	case config.StoreBackendMemory, "":
		return NewMemoryStore(), func() error { return nil }, nil
	case config.StoreBackendSQLite:
		sqlDB, err := db.OpenWithMigrations(cfg.Path, logger)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "open sqlite store at %s", cfg.Path)
		}
		s := NewSQLStore(sqlDB, logger)
		return s, s.Close, nil
	default:
		return nil, nil, errors.NewInvalidRequestError("unknown store backend %q", cfg.Backend)
	}
}
