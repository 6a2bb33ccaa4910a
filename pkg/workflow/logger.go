package workflow

import (
	"io"

	"github.com/charmbracelet/log"
)

// Logger writes every record to the console logger and, at INFO and above,
// to the file logger.
type Logger struct {
	console *log.Logger
	file    *log.Logger
}

func newLogger(console io.Writer, level log.Level, file io.Writer) *Logger {
	l := &Logger{
		console: log.NewWithOptions(console, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
	}
	if file != nil {
		l.file = log.NewWithOptions(file, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "2006-01-02 15:04:05",
			Level:           log.InfoLevel,
			Formatter:       log.LogfmtFormatter,
		})
	}
	return l
}

// With returns a Logger that adds keyvals to every record.
func (l *Logger) With(keyvals ...any) *Logger {
	out := &Logger{console: l.console.With(keyvals...)}
	if l.file != nil {
		out.file = l.file.With(keyvals...)
	}
	return out
}

// Console returns the console logger, for components that take a *log.Logger.
func (l *Logger) Console() *log.Logger { return l.console }

func (l *Logger) Debug(msg any, keyvals ...any) { l.log(log.DebugLevel, msg, keyvals...) }
func (l *Logger) Info(msg any, keyvals ...any)  { l.log(log.InfoLevel, msg, keyvals...) }
func (l *Logger) Warn(msg any, keyvals ...any)  { l.log(log.WarnLevel, msg, keyvals...) }
func (l *Logger) Error(msg any, keyvals ...any) { l.log(log.ErrorLevel, msg, keyvals...) }

func (l *Logger) log(level log.Level, msg any, keyvals ...any) {
	l.console.Log(level, msg, keyvals...)
	if l.file != nil {
		l.file.Log(level, msg, keyvals...)
	}
}
