package store

import (
	"fmt"
	"strings"

	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/interfaces"
	"github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"
)

// New constructs the configured KV backend. The rest of the pipeline depends
// only on interfaces.KVStore and never branches on backend identity.
func New(cfg Config, logger logging.Logger) (interfaces.KVStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("store: unknown backend %q (want memory or sqlite)", cfg.Backend)
	}
}
