package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ghsweep/ghsweep/internal/config"
)

// Config controls the global logger's level, output format, and whether
// caller file:line is attached to every line.
type Config struct {
	Level  string
	Format string
	Caller bool
}

// FromAppConfig adapts the application's LoggingConfig into a logging.Config.
func FromAppConfig(c config.LoggingConfig) Config {
	return Config{Level: c.Level, Format: c.Format, Caller: c.Caller}
}

// Init configures the global zerolog logger. Call once at process startup
// before any component logs.
func Init(cfg Config) {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var writer zerolog.Logger
	if strings.EqualFold(cfg.Format, "console") {
		writer = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		writer = zerolog.New(os.Stderr)
	}

	ctx := writer.With().Timestamp()
	if cfg.Caller {
		ctx = ctx.Caller()
	}

	log = ctx.Logger().Level(level)
}

// log is the package-level global logger, mirroring zerolog's own
// package-level convention so call sites can write logging.Info() directly.
var log zerolog.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Info starts a new info-level event on the global logger.
func Info() *zerolog.Event { return log.Info() }

// Warn starts a new warn-level event on the global logger.
func Warn() *zerolog.Event { return log.Warn() }

// Error starts a new error-level event on the global logger.
func Error() *zerolog.Event { return log.Error() }

// Debug starts a new debug-level event on the global logger.
func Debug() *zerolog.Event { return log.Debug() }

// Fatal starts a new fatal-level event on the global logger. Logging a
// Fatal event terminates the process after the line is written, matching
// the startup-failure contract in the Configuration error taxonomy.
func Fatal() *zerolog.Event { return log.Fatal() }

// Logger returns the configured global logger, for components that need
// the full zerolog API (e.g. sutureslog's adapter).
func Logger() *zerolog.Logger { return &log }
