package nstd

import (
	"os"

	"github.com/panjf2000/gnet/v2/pkg/logging"

	"github.com/Ptomaine/nstd-sub001/log"
)

// initLogger sets up the console logger at level and makes it the global
// logger.
func initLogger(level log.Level) log.ILogger {
	// Set up pretty logging for development
	console := log.DefaultConsoleWriter()
	console.Out = os.Stdout

	switch level {
	case log.DebugLevel, log.InfoLevel, log.WarnLevel, log.ErrorLevel:
	default:
		level = log.InfoLevel
	}
	logger := log.New(console, level)

	log.SetLogger(logger)
	return logger
}

// displayStartupMessage displays a startup message with server information
func displayStartupMessage(logger log.ILogger, addr string, routes int) {
	logger.Info().Msg("            _      _")
	logger.Info().Msg("  _ __  ___| |_ __| |")
	logger.Info().Msg(" | '_ \\/ __| __/ _` |")
	logger.Info().Msg(" | | | \\__ \\ || (_| |")
	logger.Info().Msg(" |_| |_|___/\\__\\__,_|")
	logger.Info().Msg(" ")
	logger.Info().Msgf("Server is running on %s with %d routes", addr, routes)
	logger.Info().Msg("Press Ctrl+C to stop the server")
	logger.Info().Msg(" ")
}

// gnetLogger writes event loop messages to the server log.
type gnetLogger struct {
	logger log.ILogger
}

var _ logging.Logger = gnetLogger{}

func (l gnetLogger) Debugf(format string, args ...any) { l.logger.Debug().Msgf(format, args...) }
func (l gnetLogger) Infof(format string, args ...any)  { l.logger.Debug().Msgf(format, args...) }
func (l gnetLogger) Warnf(format string, args ...any)  { l.logger.Warn().Msgf(format, args...) }
func (l gnetLogger) Errorf(format string, args ...any) { l.logger.Error().Msgf(format, args...) }
func (l gnetLogger) Fatalf(format string, args ...any) { l.logger.Fatal().Msgf(format, args...) }
