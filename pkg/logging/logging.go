package logging

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Prefix is prepended to every message handed to the sink.
const Prefix = "[goasync]"

// Level is the severity of a log message.
type Level int

// Log levels, ordered by severity.
const (
	LevelDebug Level = iota
	LevelInformation
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInformation:
		return "information"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel parses debug, info/information, warn/warning or error
// (case-insensitive).
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "information":
		return LevelInformation, nil
	case "warn", "warning":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	}
	return LevelDebug, fmt.Errorf("logging: unknown level %q", s)
}

// Sink receives every message logged by the library.
type Sink func(level Level, message string)

var sink atomic.Pointer[Sink]

// SetSink installs the process-wide sink. Only the first non-nil sink is
// accepted; it returns false when a sink was already installed.
func SetSink(s Sink) bool {
	if s == nil {
		return false
	}
	return sink.CompareAndSwap(nil, &s)
}

// Enabled reports whether a sink has been installed.
func Enabled() bool {
	return sink.Load() != nil
}

// ResetForTesting removes the installed sink. Tests only.
func ResetForTesting() {
	sink.Store(nil)
}

// Log sends message to the sink. It is a no-op when no sink is installed.
func Log(level Level, message string) {
	if s := sink.Load(); s != nil {
		(*s)(level, Prefix+message)
	}
}

// Logf formats according to format and logs the result.
func Logf(level Level, format string, args ...interface{}) {
	if s := sink.Load(); s != nil {
		(*s)(level, Prefix+fmt.Sprintf(format, args...))
	}
}

// LogFault logs a fault as "<prefix>. <type>: <value>" followed by the stack,
// when one is supplied.
func LogFault(level Level, prefix string, fault interface{}, stack []byte) {
	s := sink.Load()
	if s == nil {
		return
	}

	var b strings.Builder
	b.WriteString(Prefix)
	b.WriteString(prefix)
	fmt.Fprintf(&b, ". %T: %v", fault, fault)
	if len(stack) > 0 {
		b.WriteByte('\n')
		b.Write(stack)
	}
	(*s)(level, b.String())
}
