// Package monitoring carries the diagnostic logger shared by every package.
package monitoring

import (
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logf receives engine, store and server diagnostics. It writes through
// log.Printf until SetLogger or UseZap swaps it.
var Logf func(format string, args ...any) = log.Printf

// SetLogger installs f as Logf. A nil f mutes logging.
func SetLogger(f func(format string, args ...any)) {
	if f == nil {
		f = func(string, ...any) {}
	}
	Logf = f
}

// NewZap builds the CLI logger: production JSON at info, or a development
// console logger at debug when verbose is set.
func NewZap(verbose bool) (*zap.Logger, error) {
	if verbose {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// UseZap routes Logf through l's sugared logger at the given level and
// returns a function restoring the previous logger.
func UseZap(l *zap.Logger, level zapcore.Level) (restore func()) {
	prev := Logf
	sugar := l.WithOptions(zap.AddCallerSkip(1)).Sugar()
	Logf = func(format string, v ...interface{}) {
		switch {
		case level <= zapcore.DebugLevel:
			sugar.Debugf(format, v...)
		case level == zapcore.InfoLevel:
			sugar.Infof(format, v...)
		case level == zapcore.WarnLevel:
			sugar.Warnf(format, v...)
		default:
			sugar.Errorf(format, v...)
		}
	}
	return func() { Logf = prev }
}
