package logging

import (
	log "github.com/sirupsen/logrus"
)

// FetchLogger adapts logrus to the fetch engine's (level, message) logger.
// Every entry carries the job and connector template fields.
type FetchLogger struct {
	entry *log.Entry
}

// NewFetchLogger returns a logger scoped to one connector template.
func NewFetchLogger(template string) *FetchLogger {
	return &FetchLogger{
		entry: log.WithFields(log.Fields{
			"job":      programName,
			"template": template,
		}),
	}
}

// Log writes message at level. Unknown levels are logged at info.
// Fatal and panic are downgraded to error: the engine never terminates the process.
func (l *FetchLogger) Log(level, message string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	if lvl < log.ErrorLevel {
		lvl = log.ErrorLevel
	}
	l.entry.Log(lvl, message)
}
