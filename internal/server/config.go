package server

import "github.com/FinancesDemystified/vibecode-audit-sub000/internal/logging"

// Config is the HTTP surface configuration.
type Config struct {
	// ListenAddr is the host:port the server binds to.
	ListenAddr string

	// Logger may be nil; a stdout logger is used then.
	Logger logging.Logger
}

// DefaultConfig returns development defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr: ":8080",
	}
}
