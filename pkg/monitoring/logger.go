package monitoring

import (
	"io"
	"os"
	"path/filepath"

	"github.com/jrick/logrotate/rotator"
	"github.com/rs/zerolog"
)

// log is the package-global logger every Debug/Info/Warn/Error/Fatal call
// below writes through. It starts out writing plain text to stdout; call
// InitLogRotator to also fan output through a rotating file.
var log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

var logRotator *rotator.Rotator

// ParseLevel maps the config package's debug/info/warn/error strings onto a
// zerolog.Level, defaulting to InfoLevel for anything unrecognized.
func ParseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// SetGlobalLevel sets the minimum level the global logger emits.
func SetGlobalLevel(level zerolog.Level) {
	log = log.Level(level)
}

// InitLogRotator points the global logger's output at logFile in addition
// to stdout, rolling the file once it exceeds thresholdKB kilobytes and
// keeping maxRolls old generations around.
func InitLogRotator(logFile string, thresholdKB int64, maxRolls int) error {
	if err := os.MkdirAll(filepath.Dir(logFile), 0700); err != nil {
		return err
	}
	r, err := rotator.New(logFile, thresholdKB, false, maxRolls)
	if err != nil {
		return err
	}
	logRotator = r
	log = zerolog.New(io.MultiWriter(zerolog.ConsoleWriter{Out: os.Stdout}, logRotator)).
		With().Timestamp().Logger().Level(log.GetLevel())
	return nil
}

// CloseLogRotator releases the rotator's open file handle, if one was ever
// opened via InitLogRotator.
func CloseLogRotator() error {
	if logRotator == nil {
		return nil
	}
	return logRotator.Close()
}

// WithFields returns a child of the global logger carrying fields as
// structured context, for call sites that want to attach several fields at
// once instead of chaining WithField.
func WithFields(fields map[string]interface{}) zerolog.Logger {
	ctx := log.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return ctx.Logger()
}

// WithField returns a child of the global logger carrying a single field.
func WithField(key string, value interface{}) zerolog.Logger {
	return log.With().Interface(key, value).Logger()
}

func Debug(msg string) { log.Debug().Msg(msg) }

func Debugf(format string, args ...interface{}) { log.Debug().Msgf(format, args...) }

func Info(msg string) { log.Info().Msg(msg) }

func Infof(format string, args ...interface{}) { log.Info().Msgf(format, args...) }

func Warn(msg string) { log.Warn().Msg(msg) }

func Warnf(format string, args ...interface{}) { log.Warn().Msgf(format, args...) }

func Error(msg string) { log.Error().Msg(msg) }

func Errorf(format string, args ...interface{}) { log.Error().Msgf(format, args...) }

// Fatal logs msg at fatal level and exits the process, matching zerolog's
// own Fatal event semantics.
func Fatal(msg string) { log.Fatal().Msg(msg) }

func Fatalf(format string, args ...interface{}) { log.Fatal().Msgf(format, args...) }
