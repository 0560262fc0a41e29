package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/thuzarw/kspvpn-bot/internal/config"
)

// New builds a JSON logger at the configured level. An empty level falls
// back to info so a partial config never disables logging.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level := cfg.Level
	if level == "" {
		level = "info"
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = "json"
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zcfg.Build()
}
