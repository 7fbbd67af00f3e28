// Package logger provides leveled logging for the batch pipeline.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Level represents a logging level.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelTags = map[Level]string{
	DebugLevel: "[DEBUG]",
	InfoLevel:  "[INFO]",
	WarnLevel:  "[WARN]",
	ErrorLevel: "[ERROR]",
}

var std = struct {
	level Level
	out   *log.Logger
}{
	level: InfoLevel,
	out:   log.New(os.Stderr, "", log.LstdFlags),
}

// ParseLevel maps a level name to a Level, defaulting to info.
func ParseLevel(name string) Level {
	switch strings.ToLower(name) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Init configures the package logger. Format "text" adds caller file:line;
// any other format keeps plain timestamped lines.
func Init(level string, format string) {
	flags := log.LstdFlags | log.Lmicroseconds
	if strings.ToLower(format) == "text" {
		flags |= log.Lshortfile
	}
	std.level = ParseLevel(level)
	std.out = log.New(os.Stderr, "", flags)
}

// SetOutput redirects log output, primarily for tests.
func SetOutput(w io.Writer) {
	std.out.SetOutput(w)
}

func emit(lvl Level, format string, args ...any) {
	if std.level > lvl {
		return
	}
	_ = std.out.Output(3, fmt.Sprintf(levelTags[lvl]+" "+format, args...))
}

func Debug(format string, args ...any) { emit(DebugLevel, format, args...) }

func Info(format string, args ...any) { emit(InfoLevel, format, args...) }

func Warn(format string, args ...any) { emit(WarnLevel, format, args...) }

func Error(format string, args ...any) { emit(ErrorLevel, format, args...) }

// Fatal logs at error level and exits the process.
func Fatal(format string, args ...any) {
	_ = std.out.Output(3, fmt.Sprintf("[FATAL] "+format, args...))
	os.Exit(1)
}
