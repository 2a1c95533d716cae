package docxtree

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
	LogOff
)

func (l LogLevel) String() string {
	switch l {
	case LogDebug:
		return "DEBUG"
	case LogInfo:
		return "INFO"
	case LogWarn:
		return "WARN"
	case LogError:
		return "ERROR"
	case LogOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogDebug:
		return zapcore.DebugLevel
	case LogInfo:
		return zapcore.InfoLevel
	case LogWarn:
		return zapcore.WarnLevel
	case LogError:
		return zapcore.ErrorLevel
	default:
		// above fatal: nothing is enabled
		return zapcore.FatalLevel + 1
	}
}

type Fields map[string]interface{}

// Logger is a leveled, structured logger backed by zap. Loggers derived with
// WithField share their parent's level.
type Logger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

var (
	globalLogger     *Logger
	globalLoggerOnce sync.Once
	globalLoggerMu   sync.RWMutex
)

func initGlobalLogger() {
	globalLoggerOnce.Do(func() {
		config := GetGlobalConfig()
		level := parseLogLevel(config.LogLevel)
		var logger *Logger
		if config.LogFile != "" {
			logger = NewFileLogger(config.LogFile, level)
		} else {
			logger = NewLogger(os.Stderr, level)
		}
		globalLoggerMu.Lock()
		globalLogger = logger
		globalLoggerMu.Unlock()
	})
}

func parseLogLevel(levelStr string) LogLevel {
	switch levelStr {
	case "debug":
		return LogDebug
	case "info":
		return LogInfo
	case "warn":
		return LogWarn
	case "error":
		return LogError
	case "off":
		return LogOff
	default:
		return LogInfo // Default to info
	}
}

func consoleEncoder() zapcore.Encoder {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewConsoleEncoder(cfg)
}

// NewLogger creates a console logger writing to w.
func NewLogger(w io.Writer, level LogLevel) *Logger {
	if w == nil {
		w = io.Discard
	}
	atomic := zap.NewAtomicLevelAt(level.zapLevel())
	core := zapcore.NewCore(consoleEncoder(), zapcore.AddSync(w), atomic)
	return &Logger{
		sugar: zap.New(core).Sugar(),
		level: atomic,
	}
}

// NewFileLogger logs to stderr and, as JSON, to a rotating file at path.
func NewFileLogger(path string, level LogLevel) *Logger {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // Megabytes
		MaxBackups: 5,
		MaxAge:     30, // Days
		Compress:   true,
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	atomic := zap.NewAtomicLevelAt(level.zapLevel())
	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), atomic),
		zapcore.NewCore(consoleEncoder(), zapcore.Lock(os.Stderr), atomic),
	)
	return &Logger{
		sugar: zap.New(core).Sugar(),
		level: atomic,
	}
}

func (l *Logger) SetLevel(level LogLevel) {
	l.level.SetLevel(level.zapLevel())
}

func (l *Logger) IsDebugMode() bool {
	return l.level.Enabled(zapcore.DebugLevel)
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{sugar: l.sugar.With(key, value), level: l.level}
}

func (l *Logger) WithFields(fields Fields) *Logger {
	args := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{sugar: l.sugar.With(args...), level: l.level}
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

// Global logging functions
func SetLogger(logger *Logger) {
	initGlobalLogger()
	globalLoggerMu.Lock()
	globalLogger = logger
	globalLoggerMu.Unlock()
}

func GetLogger() *Logger {
	initGlobalLogger()
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

func Debug(format string, args ...interface{}) {
	GetLogger().Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	GetLogger().Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	GetLogger().Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	GetLogger().Error(format, args...)
}

func WithField(key string, value interface{}) *Logger {
	return GetLogger().WithField(key, value)
}

func WithFields(fields Fields) *Logger {
	return GetLogger().WithFields(fields)
}

// UpdateLoggerFromConfig updates the global logger based on the current global configuration
func UpdateLoggerFromConfig() {
	config := GetGlobalConfig()
	GetLogger().SetLevel(parseLogLevel(config.LogLevel))
}
