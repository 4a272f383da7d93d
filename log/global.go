package log

import (
	"io"
	"os"
	"sync/atomic"
)

// defaultLogger backs the package level functions
var defaultLogger = New(os.Stdout, InfoLevel)

// globalLogger can be replaced by the user
var globalLogger atomic.Pointer[ILogger]

// SetLogger replaces the logger returned by GetLogger and used by the
// package level functions.
func SetLogger(l ILogger) {
	if l == nil {
		globalLogger.Store(nil)
		return
	}
	globalLogger.Store(&l)
}

// GetLogger returns the logger set with SetLogger, or the default logger.
func GetLogger() ILogger {
	if l := globalLogger.Load(); l != nil {
		return *l
	}
	return defaultLogger
}

// Default returns the built-in logger.
func Default() *Logger { return defaultLogger }

func Debug() IEvent { return GetLogger().Debug() }
func Info() IEvent  { return GetLogger().Info() }
func Warn() IEvent  { return GetLogger().Warn() }
func Error() IEvent { return GetLogger().Error() }
func Fatal() IEvent { return GetLogger().Fatal() }

// SetLevel sets the level of the current logger.
func SetLevel(level Level) { GetLogger().SetLevel(level) }

// SetOutput sets the output writer for the default logger
func SetOutput(w io.Writer) { defaultLogger.SetOutput(w) }
