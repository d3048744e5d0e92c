// Package logging provides centralized logging functionality using logrus.
// It configures structured logging with JSON formatting, provides
// convenience functions for different log levels, and adapts logrus to the
// fetch engine's Logger interface.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// programName is used as a field in all log entries for identification
var programName = filepath.Base(os.Args[0])

// LogInfo logs an informational message with the programName field.
func LogInfo(msg string) {
	log.WithFields(log.Fields{"job": programName}).Info(msg)
}

// LogError logs the provided error message with the programName field.
// Use it for recoverable errors that do not terminate the program.
func LogError(msg string) {
	log.WithFields(log.Fields{"job": programName}).Error(msg)
}

// LogPanic logs the provided error and panics.
func LogPanic(err error) {
	log.WithFields(log.Fields{"job": programName}).Panic(err)
}

// PrepareLogs initializes the logging system.
// Entries are written as JSON to stdout and, when logName is set, appended
// to that file as well.
//
// Returns an error if the log file cannot be opened or created.
func PrepareLogs(logName string) error {
	return PrepareLogsTo(os.Stdout, logName)
}

// PrepareLogsTo is PrepareLogs with console output sent to console instead
// of stdout. Commands that print results on stdout log to stderr.
func PrepareLogsTo(console io.Writer, logName string) error {
	out := console
	if logName != "" {
		logFile, err := os.OpenFile(logName, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %v", err)
		}
		out = io.MultiWriter(console, logFile)
	}
	log.SetOutput(out)
	log.SetFormatter(&log.JSONFormatter{})
	return nil
}
