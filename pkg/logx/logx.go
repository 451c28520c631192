// Package logx provides structured, leveled logging shared by every
// package in this module: the graph engine, the node kinds, the dispatch
// resolver, and the issue-processor loop all log through it so a run
// produces one coherent, greppable stream with node name, kind, and
// duration attached to every start/complete/error line.
package logx

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

// Level is one of the four levels the rest of this codebase logs at.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelOrder = map[Level]int{ //nolint:gochecknoglobals
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Logger is a structured logger carrying a bag of key/value attributes
// attached via With. The zero value is not usable; construct one with New
// or use the package-level default via With/Debugf/Infof/Warnf/Errorf.
type Logger struct {
	out   io.Writer
	mu    *sync.Mutex
	attrs []attr
	min   Level
}

type attr struct {
	key string
	val any
}

// New creates a logger writing to out at the given minimum level.
func New(out io.Writer, min Level) *Logger {
	return &Logger{out: out, min: min, mu: &sync.Mutex{}}
}

var (
	defaultMu     sync.Mutex                                                 //nolint:gochecknoglobals
	defaultLogger = &Logger{out: os.Stderr, min: LevelInfo, mu: &defaultMu} //nolint:gochecknoglobals
)

// SetMinLevel adjusts the default logger's verbosity — the hook the CLI's
// --verbose flag uses.
func SetMinLevel(l Level) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger.min = l
}

// With derives a child logger carrying additional key/value attributes on
// top of the default logger's.
func With(kvs ...any) *Logger {
	return defaultLogger.With(kvs...)
}

// With derives a child logger carrying additional attributes. kvs must be
// alternating key, value arguments; a trailing unpaired key is dropped.
func (l *Logger) With(kvs ...any) *Logger {
	out := &Logger{out: l.out, min: l.min, mu: l.mu, attrs: append([]attr(nil), l.attrs...)}
	for i := 0; i+1 < len(kvs); i += 2 {
		key, _ := kvs[i].(string)
		out.attrs = append(out.attrs, attr{key: key, val: kvs[i+1]})
	}
	return out
}

func (l *Logger) log(level Level, msg string) {
	if levelOrder[level] < levelOrder[l.min] {
		return
	}
	var b strings.Builder
	b.WriteString(time.Now().UTC().Format(time.RFC3339Nano))
	b.WriteByte(' ')
	b.WriteString(string(level))
	b.WriteByte(' ')
	b.WriteString(msg)
	for _, a := range l.attrs {
		fmt.Fprintf(&b, " %s=%v", a.key, a.val)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	log.New(l.out, "", 0).Println(b.String())
}

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, fmt.Sprintf(format, args...)) }

// Infof logs at info level.
func (l *Logger) Infof(format string, args ...any) { l.log(LevelInfo, fmt.Sprintf(format, args...)) }

// Warnf logs at warn level.
func (l *Logger) Warnf(format string, args ...any) { l.log(LevelWarn, fmt.Sprintf(format, args...)) }

// Errorf logs at error level and returns the formatted error, for call
// sites that need both logging and an error to propagate in one line:
//
//	return logx.Errorf("dispatch fetch failed: %w", err)
func (l *Logger) Errorf(format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	l.log(LevelError, err.Error())
	return err
}

// Package-level convenience functions delegate to the default logger.
func Debugf(format string, args ...any)       { defaultLogger.Debugf(format, args...) }
func Infof(format string, args ...any)        { defaultLogger.Infof(format, args...) }
func Warnf(format string, args ...any)        { defaultLogger.Warnf(format, args...) }
func Errorf(format string, args ...any) error { return defaultLogger.Errorf(format, args...) }

type ctxKey struct{}

// IntoContext attaches a logger to ctx so downstream calls can recover the
// same attribute bag without re-threading it through every signature.
func IntoContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext recovers the logger attached by IntoContext, or the default
// logger if none was attached.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return defaultLogger
}
