package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/paritytech/zombienet-go/internal/config"
)

// NewLogger creates a structured zerolog.Logger with observability context
// fields from the config. Non-empty fields are added automatically.
func NewLogger(cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(os.Stdout).With().Timestamp()

	if cfg.Provider != "" {
		ctx = ctx.Str("provider", cfg.Provider)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}

// WithNetwork returns a child logger scoped to a single network id.
func WithNetwork(l zerolog.Logger, networkID string) zerolog.Logger {
	return l.With().Str("network_id", networkID).Logger()
}

// WithNode returns a child logger scoped to a single node name.
func WithNode(l zerolog.Logger, chain, node string) zerolog.Logger {
	return l.With().Str("chain", chain).Str("node", node).Logger()
}
