package util

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// InitLogger builds the process-wide logger. The ledger runs as a
// single local process, so development mode keeps the colored console
// encoder for reading scan and checkpoint activity live.
func InitLogger(env string) error {
	var err error
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err = config.Build()
	if err != nil {
		return err
	}
	logger = logger.Named("inventory-ledger")

	zap.ReplaceGlobals(logger)
	return nil
}

// GetLogger returns the shared logger, falling back to a development
// logger so store and classifier tests log without InitLogger.
func GetLogger() *zap.Logger {
	if logger == nil {
		logger, _ = zap.NewDevelopment()
	}
	return logger
}

// SyncLogger flushes buffered entries. Called on shutdown after the
// final checkpoint so the last durability lines make it out.
func SyncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}
