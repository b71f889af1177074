// pattern: Imperative Shell

package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NopLogger returns a logger that discards everything. For tests and for
// components constructed before logging is configured.
func NopLogger() *Logger {
	return &Logger{sugar: nil, scope: ""}
}

// TestManager is a Provider for tests: channel output only, no file.
type TestManager struct {
	channelSink *ChannelSink
	base        *zap.Logger
	loggers     map[string]*Logger
	mu          sync.RWMutex
}

// NewTestManager creates a channel-only manager at debug level.
func NewTestManager(bufferSize int) *TestManager {
	channelSink := NewChannelSink(bufferSize)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.EpochTimeEncoder
	encoderCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(channelSink),
		zapcore.DebugLevel,
	)

	return &TestManager{
		channelSink: channelSink,
		base:        zap.New(core),
		loggers:     make(map[string]*Logger),
	}
}

// For returns a scoped logger, mirroring the production Manager API.
func (m *TestManager) For(scope string) *Logger {
	m.mu.RLock()
	if logger, ok := m.loggers[scope]; ok {
		m.mu.RUnlock()
		return logger
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if logger, ok := m.loggers[scope]; ok {
		return logger
	}

	logger := &Logger{
		sugar: m.base.Named(scope).Sugar(),
		scope: scope,
	}
	m.loggers[scope] = logger
	return logger
}

// Entries returns the channel of emitted entries.
func (m *TestManager) Entries() <-chan Entry {
	return m.channelSink.Entries()
}

// Sink exposes the channel sink for line-injection tests.
func (m *TestManager) Sink() *ChannelSink {
	return m.channelSink
}

// Close closes the channel.
func (m *TestManager) Close() error {
	_ = m.base.Sync()
	return m.channelSink.Close()
}
