package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BarkinBalci/action-event-service/internal/config"
)

// New creates the logger of one executable. Production writes JSON,
// everything else writes colored console lines.
func New(cfg config.Service, component string) (*zap.Logger, error) {
	var zapConfig zap.Config

	if cfg.Environment == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if cfg.LogLevel != "" {
		level, err := zap.ParseAtomicLevel(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid SERVICE_LOG_LEVEL %q: %w", cfg.LogLevel, err)
		}
		zapConfig.Level = level
	}

	zapConfig.EncoderConfig.CallerKey = "caller"
	zapConfig.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	return zapConfig.Build(
		zap.AddCaller(),
		zap.Fields(zap.String("component", component)),
	)
}
