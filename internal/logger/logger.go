package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a zerolog logger bound to one component name.
type Logger struct {
	*zerolog.Logger
	component string
}

var levels = map[string]zerolog.Level{
	"development": zerolog.DebugLevel,
	"test":        zerolog.WarnLevel,
	"staging":     zerolog.InfoLevel,
	"production":  zerolog.InfoLevel,
}

// Config represents logger configuration
type Config struct {
	AppEnv string
	// Out defaults to stdout.
	Out io.Writer
}

// New creates a logger for a component using APP_ENV from the environment.
func New(component string) *Logger {
	return NewWithConfig(component, Config{AppEnv: os.Getenv("APP_ENV")})
}

// Discard returns a logger that drops everything. Used by tests.
func Discard(component string) *Logger {
	return NewWithConfig(component, Config{AppEnv: "test", Out: io.Discard})
}

// NewWithConfig creates a logger with explicit configuration.
func NewWithConfig(component string, cfg Config) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	production := cfg.AppEnv == "production"

	writer := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    out != os.Stdout,
		TimeFormat: "2006-01-02 15:04:05",
		FormatMessage: func(i interface{}) string {
			return fmt.Sprintf("[%s] %v", component, i)
		},
		FormatLevel: formatLevel,
	}

	var zl zerolog.Logger
	if production {
		writer.TimeFormat = ""
		zl = zerolog.New(writer).Level(levelFor(cfg.AppEnv))
	} else {
		zl = zerolog.New(writer).Level(levelFor(cfg.AppEnv)).With().Timestamp().Logger()
	}
	zl = zl.With().Str("component", component).Logger()

	return &Logger{Logger: &zl, component: component}
}

func formatLevel(i interface{}) string {
	level, ok := i.(string)
	if !ok {
		return "???"
	}
	switch level {
	case "debug":
		return "\033[36m[DEBUG]\033[0m"
	case "info":
		return "\033[34m[INFO]\033[0m"
	case "warn":
		return "\033[33m[WARN]\033[0m"
	case "error":
		return "\033[31m[ERROR]\033[0m"
	case "fatal":
		return "\033[35m[FATAL]\033[0m"
	default:
		return fmt.Sprintf("[%s]", level)
	}
}

func levelFor(env string) zerolog.Level {
	if level, ok := levels[env]; ok {
		return level
	}
	return zerolog.DebugLevel
}

// Component returns the name the logger was created with.
func (l *Logger) Component() string { return l.component }

// Success logs at info level with a success marker.
func (l *Logger) Success() *zerolog.Event { return l.Logger.Info().Bool("success", true) }

func (l *Logger) LogDebugf(format string, v ...interface{}) { l.Debug().Msgf(format, v...) }

func (l *Logger) LogInfof(format string, v ...interface{}) { l.Info().Msgf(format, v...) }

func (l *Logger) LogSuccessf(format string, v ...interface{}) { l.Success().Msgf(format, v...) }

func (l *Logger) LogWarnf(format string, v ...interface{}) { l.Warn().Msgf(format, v...) }

func (l *Logger) LogErrorf(format string, v ...interface{}) { l.Error().Msgf(format, v...) }

// LogError logs msg with err attached when non-nil.
func (l *Logger) LogError(msg string, err error) {
	if err != nil {
		l.Error().Err(err).Msg(msg)
		return
	}
	l.Error().Msg(msg)
}

// LogFatal logs and exits the process.
func (l *Logger) LogFatal(msg string, err error) {
	if err != nil {
		l.Fatal().Err(err).Msg(msg)
		return
	}
	l.Fatal().Msg(msg)
}

// WithFields starts an info event carrying the given fields.
func (l *Logger) WithFields(fields map[string]interface{}) *zerolog.Event {
	return l.Info().Fields(fields)
}
