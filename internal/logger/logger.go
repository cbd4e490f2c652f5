package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	debugMode bool
	level     = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	base      *zap.Logger
	sugar     *zap.SugaredLogger
)

func init() {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006/01/02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		level,
	)
	setBase(zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)))
}

func setBase(l *zap.Logger) {
	base = l
	sugar = l.Sugar()
}

// Named returns a child zap logger for packages that want structured fields.
func Named(name string) *zap.Logger {
	return base.Named(name)
}

// ReplaceForTest swaps the underlying logger and returns a restore func.
func ReplaceForTest(l *zap.Logger) func() {
	prev := base
	setBase(l.WithOptions(zap.AddCallerSkip(1)))
	return func() { setBase(prev) }
}

func SetDebugMode(enabled bool) {
	debugMode = enabled
	if debugMode {
		level.SetLevel(zapcore.DebugLevel)
		Debug("Debug mode enabled")
	} else {
		level.SetLevel(zapcore.InfoLevel)
	}
}

func IsDebugMode() bool {
	return debugMode
}

func Debug(format string, args ...interface{}) {
	sugar.Debugf(format, args...)
}

func Info(format string, args ...interface{}) {
	sugar.Infof(format, args...)
}

func Error(format string, args ...interface{}) {
	sugar.Errorf(format, args...)
}

func Warn(format string, args ...interface{}) {
	if debugMode {
		sugar.Warnf(format, args...)
	}
}

// Sync flushes buffered log entries.
func Sync() {
	_ = base.Sync()
}

// Request logging function for HTTP requests
func LogRequest(method, path, remoteAddr string) {
	if debugMode {
		Debug("HTTP %s %s from %s", method, path, remoteAddr)
	}
}

// Response logging function for HTTP responses
func LogResponse(method, path string, statusCode int, duration string) {
	if debugMode {
		Debug("HTTP %s %s -> %d (%s)", method, path, statusCode, duration)
	}
}
