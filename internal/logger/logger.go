// Package logger is the process-wide leveled logger.
//
// Debug, Info and Section lines appear only with --verbose. Warn and Error
// lines always appear, so watch and serve report dropped chunks and failed
// jobs without extra flags.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type level string

const (
	levelDebug level = "DEBUG"
	levelInfo  level = "INFO"
	levelWarn  level = "WARN"
	levelError level = "ERROR"
)

// quiet levels are suppressed unless verbose.
func (l level) quiet() bool { return l == levelDebug || l == levelInfo }

type state struct {
	sync.RWMutex
	verbose    bool
	timestamps bool
	out        io.Writer
}

var (
	std = &state{out: os.Stderr}
	now = time.Now
)

func SetVerbose(v bool) {
	std.Lock()
	std.verbose = v
	std.Unlock()
}

func IsVerbose() bool {
	std.RLock()
	defer std.RUnlock()
	return std.verbose
}

// SetTimestamps prefixes each line with the current time in RFC 3339.
func SetTimestamps(v bool) {
	std.Lock()
	std.timestamps = v
	std.Unlock()
}

// SetOutput redirects all log lines; the default is stderr.
func SetOutput(w io.Writer) {
	std.Lock()
	std.out = w
	std.Unlock()
}

func Debug(format string, args ...any) { emit(levelDebug, format, args) }

func Info(format string, args ...any) { emit(levelInfo, format, args) }

func Warn(format string, args ...any) { emit(levelWarn, format, args) }

func Error(format string, args ...any) { emit(levelError, format, args) }

// Section writes a "=== name ===" banner in verbose mode.
func Section(name string) {
	std.RLock()
	defer std.RUnlock()
	if std.verbose {
		fmt.Fprintf(std.out, "\n=== %s ===\n", name)
	}
}

func emit(l level, format string, args []any) {
	std.RLock()
	defer std.RUnlock()
	if l.quiet() && !std.verbose {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if std.timestamps {
		fmt.Fprintf(std.out, "%s [%s] %s\n", now().Format(time.RFC3339), l, msg)
		return
	}
	fmt.Fprintf(std.out, "[%s] %s\n", l, msg)
}
