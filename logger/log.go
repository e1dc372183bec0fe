// Package logger provides a leveled logger shared by the container tools
// packages. Scripts embedding the library can supply their own implementation
// of Logger, or use Discard to silence a component.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

const DateFormat = "2006-01-02 15:04:05"

var mutex sync.Mutex

type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)

	WithPrefix(prefix string) Logger
	SetLevel(level Level)
	GetLevel() Level
}

// TextLogger writes timestamped, level-tagged lines to a writer.
type TextLogger struct {
	Level  Level
	Prefix string
	Writer io.Writer
}

// NewTextLogger returns a logger writing to stderr at INFO level.
func NewTextLogger() Logger {
	return &TextLogger{
		Level:  INFO,
		Writer: os.Stderr,
	}
}

// WithPrefix returns a copy of the logger with the provided prefix
func (l *TextLogger) WithPrefix(prefix string) Logger {
	clone := *l
	clone.Prefix = prefix
	return &clone
}

// SetLevel sets the level for the logger
func (l *TextLogger) SetLevel(level Level) {
	l.Level = level
}

func (l *TextLogger) GetLevel() Level {
	return l.Level
}

func (l *TextLogger) Debug(format string, v ...any) {
	if l.Level <= DEBUG {
		l.log(DEBUG, format, v...)
	}
}

func (l *TextLogger) Info(format string, v ...any) {
	if l.Level <= INFO {
		l.log(INFO, format, v...)
	}
}

func (l *TextLogger) Warn(format string, v ...any) {
	if l.Level <= WARN {
		l.log(WARN, format, v...)
	}
}

func (l *TextLogger) Error(format string, v ...any) {
	l.log(ERROR, format, v...)
}

func (l *TextLogger) log(level Level, format string, v ...any) {
	message := fmt.Sprintf(format, v...)
	now := time.Now().Format(DateFormat)

	line := ""
	if l.Prefix != "" {
		line = fmt.Sprintf("%s %-5s %s %s\n", now, level, l.Prefix, message)
	} else {
		line = fmt.Sprintf("%s %-5s %s\n", now, level, message)
	}

	// Make sure we're only outputting a line one at a time
	mutex.Lock()
	fmt.Fprint(l.Writer, line)
	mutex.Unlock()
}

var Discard = &TextLogger{
	Level:  ERROR + 1,
	Writer: io.Discard,
}
