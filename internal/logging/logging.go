// Package logging builds the logrus loggers shared by the kb and ccouch commands.
//
// A logger is constructed once by each entry point and passed to the pieces
// that need it; nothing in this module logs through the logrus package-level
// logger.
package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// TimestampFormat is the layout used for log line timestamps.
const TimestampFormat = "2006-01-02T15:04:05"

// levelNames maps the level names accepted on the command line to logrus levels.
var levelNames = map[string]logrus.Level{
	"DEBUG":    logrus.DebugLevel,
	"INFO":     logrus.InfoLevel,
	"WARNING":  logrus.WarnLevel,
	"WARN":     logrus.WarnLevel,
	"ERROR":    logrus.ErrorLevel,
	"FATAL":    logrus.FatalLevel,
	"CRITICAL": logrus.FatalLevel,
}

// countLevels is indexed by how many times a repeatable verbosity flag was given.
var countLevels = []logrus.Level{
	logrus.WarnLevel,
	logrus.InfoLevel,
	logrus.DebugLevel,
}

// New returns a text logger writing to out at the given level.
func New(out io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: TimestampFormat,
	})
	return l
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *logrus.Logger {
	return New(io.Discard, logrus.PanicLevel)
}

// ParseLevelName resolves a level name case-insensitively. Unknown names
// resolve to InfoLevel and ok is false so the caller can warn about it.
func ParseLevelName(name string) (level logrus.Level, ok bool) {
	level, ok = levelNames[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return logrus.InfoLevel, false
	}
	return level, true
}

// LevelFromCount maps a repeat count (-l, -ll, ...) to a level.
// Counts past the end of the table saturate at DebugLevel.
func LevelFromCount(n int) logrus.Level {
	if n < 0 {
		n = 0
	}
	if n >= len(countLevels) {
		n = len(countLevels) - 1
	}
	return countLevels[n]
}
