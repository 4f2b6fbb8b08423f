// Package stdlogger adapts the global zerolog logger to the printf-style
// leveled interfaces some libraries expect.
package stdlogger

import (
	"github.com/rs/zerolog/log"
)

// StdLogger exposes printf-style leveled logging backed by zerolog.
type StdLogger struct{}

// New returns a StdLogger writing through the global zerolog logger.
func New() *StdLogger {
	return &StdLogger{}
}

// Debugf logs at debug level.
func (l *StdLogger) Debugf(format string, args ...interface{}) {
	log.Debug().Msgf(format, args...)
}

// Infof logs at info level.
func (l *StdLogger) Infof(format string, args ...interface{}) {
	log.Info().Msgf(format, args...)
}

// Warningf logs at warn level.
func (l *StdLogger) Warningf(format string, args ...interface{}) {
	log.Warn().Msgf(format, args...)
}

// Errorf logs at error level.
func (l *StdLogger) Errorf(format string, args ...interface{}) {
	log.Error().Msgf(format, args...)
}

// Printf logs at info level. It satisfies gorm's logger.Writer interface.
func (l *StdLogger) Printf(format string, args ...interface{}) {
	log.Info().Msgf(format, args...)
}
