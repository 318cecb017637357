package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level represents the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// ParseLevel maps a config string ("debug", "info", "warn", "error") to a
// Level. Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

// Logger writes one JSON object per line. Level and redaction can change
// while other goroutines are logging.
type Logger struct {
	level     atomic.Int32
	redactPII atomic.Bool

	mu  sync.Mutex
	out io.Writer
}

var defaultLogger = newLogger(os.Stderr)

func newLogger(w io.Writer) *Logger {
	l := &Logger{out: w}
	l.level.Store(int32(INFO))
	l.redactPII.Store(true)
	return l
}

// SetLevel sets the minimum log level for the default logger.
func SetLevel(l Level) { defaultLogger.level.Store(int32(l)) }

// SetRedactPII enables or disables PII redaction for the default logger.
func SetRedactPII(r bool) { defaultLogger.redactPII.Store(r) }

// SetOutput redirects the default logger. Returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	prev := defaultLogger.out
	defaultLogger.out = w
	return prev
}

// Debug emits a DEBUG-level structured log entry.
func Debug(msg string, fields ...interface{}) { defaultLogger.log(DEBUG, msg, fields...) }

// Info emits an INFO-level structured log entry.
func Info(msg string, fields ...interface{}) { defaultLogger.log(INFO, msg, fields...) }

// Warn emits a WARN-level structured log entry.
func Warn(msg string, fields ...interface{}) { defaultLogger.log(WARN, msg, fields...) }

// Error emits an ERROR-level structured log entry.
func Error(msg string, fields ...interface{}) { defaultLogger.log(ERROR, msg, fields...) }

func (l *Logger) log(level Level, msg string, fields ...interface{}) {
	if int32(level) < l.level.Load() {
		return
	}
	redact := l.redactPII.Load()

	entry := make(map[string]interface{}, 3+len(fields)/2)
	entry["time"] = time.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
	entry["level"] = levelNames[level]
	entry["msg"] = msg

	for i := 0; i < len(fields); i += 2 {
		if i == len(fields)-1 {
			// Odd field count: keep the dangling value rather than drop it.
			entry["_extra"] = fmt.Sprint(fields[i])
			break
		}
		key := fmt.Sprint(fields[i])
		val := fmt.Sprint(fields[i+1])
		if redact {
			val = redactPIIValue(key, val)
		}
		entry[key] = val
	}

	data, err := json.Marshal(entry)
	if err != nil {
		data = []byte(fmt.Sprintf(`{"level":"ERROR","msg":"log marshal failed: %v"}`, err))
	}
	l.mu.Lock()
	l.out.Write(append(data, '\n'))
	l.mu.Unlock()
}
