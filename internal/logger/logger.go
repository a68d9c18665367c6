// Package logger is the installer's leveled message sink. Every record goes to
// the run's log file; the console gets a colored copy.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TimeLayout is the timestamp format used in log file records.
const TimeLayout = "2006-01-02 15:04:05"

// Level is the severity of a log record.
type Level int

const (
	LevelError Level = iota
	LevelWarning
	LevelSuccess
	LevelInfo
	LevelDebug
)

func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarning:
		return "WARNING"
	case LevelSuccess:
		return "SUCCESS"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// Record is a single log entry.
type Record struct {
	Level   Level
	Message string
	Time    time.Time
}

// Format renders the record as written to the log file.
func (r Record) Format() string {
	return fmt.Sprintf("[%s] [%s] %s", r.Time.Format(TimeLayout), r.Level, r.Message)
}

// Logger writes records to a log file and the console.
//
// Writing the file is best effort: a failure to open or write it is reported
// once on the console and the logger carries on console-only.
type Logger struct {
	path    string
	file    *os.File
	fileErr error
	debug   bool
	console io.Writer
	palette Palette
	now     func() time.Time
}

// New creates a logger appending to path. An empty path disables the file.
func New(path string, debug bool, console io.Writer) *Logger {
	if console == nil {
		console = io.Discard
	}
	return &Logger{
		path:    path,
		debug:   debug,
		console: console,
		palette: newPalette(console),
		now:     time.Now,
	}
}

// Path returns the log file path.
func (l *Logger) Path() string { return l.path }

// Palette returns the console styles.
func (l *Logger) Palette() Palette { return l.palette }

// Log records msg at the given level.
func (l *Logger) Log(level Level, msg string) {
	rec := Record{Level: level, Message: msg, Time: l.now()}
	l.writeFile(rec)

	if level == LevelDebug && !l.debug {
		return
	}
	prefix := l.palette.Level(level).Render("[" + level.String() + "]")
	fmt.Fprintf(l.console, "%s %s\n", prefix, msg)
}

func (l *Logger) Error(format string, a ...any)   { l.Log(LevelError, fmt.Sprintf(format, a...)) }
func (l *Logger) Warning(format string, a ...any) { l.Log(LevelWarning, fmt.Sprintf(format, a...)) }
func (l *Logger) Success(format string, a ...any) { l.Log(LevelSuccess, fmt.Sprintf(format, a...)) }
func (l *Logger) Info(format string, a ...any)    { l.Log(LevelInfo, fmt.Sprintf(format, a...)) }
func (l *Logger) Debug(format string, a ...any)   { l.Log(LevelDebug, fmt.Sprintf(format, a...)) }

// Banner prints a boxed title to the console. It is not written to the file.
func (l *Logger) Banner(title, subtitle string) {
	body := l.palette.Title.Render(title)
	if subtitle != "" {
		body += "\n" + l.palette.Dim.Render(subtitle)
	}
	fmt.Fprintln(l.console, l.palette.Box.Render(body))
}

// Close closes the log file.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) writeFile(rec Record) {
	if l.path == "" || l.fileErr != nil {
		return
	}
	if l.file == nil {
		if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
			l.fileFailed(err)
			return
		}
		f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			l.fileFailed(err)
			return
		}
		l.file = f
	}
	line := strings.TrimRight(rec.Format(), "\n") + "\n"
	if _, err := l.file.WriteString(line); err != nil {
		l.fileFailed(err)
		return
	}
	if err := l.file.Sync(); err != nil {
		l.fileFailed(err)
	}
}

func (l *Logger) fileFailed(err error) {
	l.fileErr = err
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
	prefix := l.palette.Level(LevelWarning).Render("[" + LevelWarning.String() + "]")
	fmt.Fprintf(l.console, "%s log file %s unavailable, continuing without it: %v\n", prefix, l.path, err)
}
