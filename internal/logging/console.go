// pattern: Imperative Shell

package logging

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ConsoleLogger returns a scoped logger writing human-readable lines to
// w. Used by headless CLI commands that stream output without the
// full Manager.
func ConsoleLogger(w io.Writer, scope, level string) *Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderCfg),
		zapcore.AddSync(w),
		lvl,
	)

	return &Logger{
		sugar: zap.New(core).Named(scope).Sugar(),
		scope: scope,
	}
}
