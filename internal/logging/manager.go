// pattern: Imperative Shell

package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds settings for the Manager.
type Config struct {
	FilePath       string // log file path
	MaxSizeMB      int    // rotate after this size
	MaxBackups     int    // rotated files to keep
	MaxAgeDays     int    // days to keep rotated files
	Level          string // minimum level (debug, info, warn, error)
	ChannelBufSize int    // UI channel buffer (default 1000)
}

// Provider hands out scoped loggers. Both Manager and TestManager
// implement it so packages can accept either.
type Provider interface {
	For(scope string) *Logger
}

// Logger is a scoped structured logger. Key-value args follow the
// message, zap sugared style.
type Logger struct {
	sugar *zap.SugaredLogger
	scope string
}

func (l *Logger) Debug(msg string, args ...any) {
	if l.sugar != nil {
		l.sugar.Debugw(msg, args...)
	}
}

func (l *Logger) Info(msg string, args ...any) {
	if l.sugar != nil {
		l.sugar.Infow(msg, args...)
	}
}

func (l *Logger) Warn(msg string, args ...any) {
	if l.sugar != nil {
		l.sugar.Warnw(msg, args...)
	}
}

func (l *Logger) Error(msg string, args ...any) {
	if l.sugar != nil {
		l.sugar.Errorw(msg, args...)
	}
}

// With returns a Logger that adds the given key-value pairs to every entry.
func (l *Logger) With(args ...any) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{sugar: l.sugar.With(args...), scope: l.scope}
}

// Scope returns the logger's scope name.
func (l *Logger) Scope() string {
	return l.scope
}

// Manager owns the zap core with dual output: a rotated JSON file and a
// channel sink for the UI.
type Manager struct {
	base        *zap.Logger
	channelSink *ChannelSink
	fileWriter  *lumberjack.Logger
	loggers     map[string]*Logger
	mu          sync.RWMutex
}

// NewManager builds the file + channel logging pipeline.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("FilePath is required")
	}

	if cfg.ChannelBufSize == 0 {
		cfg.ChannelBufSize = 1000
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = 5
	}
	if cfg.MaxAgeDays == 0 {
		cfg.MaxAgeDays = 7
	}

	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
		return nil, err
	}

	fileWriter := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}

	channelSink := NewChannelSink(cfg.ChannelBufSize)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.EpochTimeEncoder
	encoderCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(fileWriter), level),
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(channelSink), level),
	)

	return &Manager{
		base:        zap.New(core),
		channelSink: channelSink,
		fileWriter:  fileWriter,
		loggers:     make(map[string]*Logger),
	}, nil
}

// For returns the cached logger for a scope, creating it on first use.
// Scopes are hierarchical: "provision", "provision.api-server".
func (m *Manager) For(scope string) *Logger {
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

// Entries returns the channel the UI consumes.
func (m *Manager) Entries() <-chan Entry {
	return m.channelSink.Entries()
}

// Sink exposes the channel sink so external line sources (remote command
// output) can inject entries alongside zap's own.
func (m *Manager) Sink() *ChannelSink {
	return m.channelSink
}

// Sync flushes buffered output.
func (m *Manager) Sync() error {
	return m.base.Sync()
}

// Drop forgets cached loggers under a scope prefix. Called when the
// component they belong to is torn down.
func (m *Manager) Drop(scopePrefix string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for scope := range m.loggers {
		if strings.HasPrefix(scope, scopePrefix) {
			delete(m.loggers, scope)
		}
	}
}

// Close syncs and releases the file writer and channel.
func (m *Manager) Close() error {
	_ = m.Sync()
	_ = m.channelSink.Close()
	return m.fileWriter.Close()
}
