package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"
)

// callerSkip is the runtime.Callers depth from BaseLogger.log to the caller
// of a leveled method.
const callerSkip = 3

// Debug logs at DebugLevel.
func (l *BaseLogger) Debug(msg string, fields ...Field) {
	l.log(callerSkip, DebugLevel, msg, attrsFromFieldSlice(fields))
}

// Info logs at InfoLevel.
func (l *BaseLogger) Info(msg string, fields ...Field) {
	l.log(callerSkip, InfoLevel, msg, attrsFromFieldSlice(fields))
}

// Warn logs at WarnLevel.
func (l *BaseLogger) Warn(msg string, fields ...Field) {
	l.log(callerSkip, WarnLevel, msg, attrsFromFieldSlice(fields))
}

// Error logs at ErrorLevel.
func (l *BaseLogger) Error(msg string, fields ...Field) {
	l.log(callerSkip, ErrorLevel, msg, attrsFromFieldSlice(fields))
}

// Fatal logs at FatalLevel, closes outputs and exits the process.
func (l *BaseLogger) Fatal(msg string, fields ...Field) {
	l.log(callerSkip, FatalLevel, msg, attrsFromFieldSlice(fields))
	l.exit()
}

func (l *BaseLogger) Debugf(msg string, args ...interface{}) { l.logf(DebugLevel, msg, args) }
func (l *BaseLogger) Infof(msg string, args ...interface{})  { l.logf(InfoLevel, msg, args) }
func (l *BaseLogger) Warnf(msg string, args ...interface{})  { l.logf(WarnLevel, msg, args) }
func (l *BaseLogger) Errorf(msg string, args ...interface{}) { l.logf(ErrorLevel, msg, args) }

func (l *BaseLogger) Fatalf(msg string, args ...interface{}) {
	l.logf(FatalLevel, msg, args)
	l.exit()
}

// WithField returns a logger carrying key=value on every entry.
func (l *BaseLogger) WithField(key string, value interface{}) Logger {
	return l.With(Any(key, value))
}

// WithFields returns a logger carrying all of fields on every entry.
func (l *BaseLogger) WithFields(fields Fields) Logger {
	return l.derive(attrsFromMap(fields), fields)
}

// WithError returns a logger carrying err under the "error" key.
func (l *BaseLogger) WithError(err error) Logger {
	return l.With(Err(err))
}

// With returns a logger carrying fields on every entry.
func (l *BaseLogger) With(fields ...Field) Logger {
	m := make(Fields, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	return l.derive(attrsFromFieldSlice(fields), m)
}

// WithContext returns a logger carrying the well-known keys found in ctx.
func (l *BaseLogger) WithContext(ctx context.Context) Logger {
	fields := ContextExtractor(ctx)
	if len(fields) == 0 {
		return l
	}
	return l.WithFields(fields)
}

// WithComponent tags entries with a component name.
func (l *BaseLogger) WithComponent(component string) Logger {
	return l.With(Component(component))
}

// SetLevel sets the minimum level for this logger.
func (l *BaseLogger) SetLevel(level Level) { l.level = level }

// GetLevel returns the minimum level for this logger.
func (l *BaseLogger) GetLevel() Level { return l.level }

// Slog exposes the underlying slog logger.
func (l *BaseLogger) Slog() *slog.Logger { return l.slogLogger }

// Close closes every output of the logger.
func (l *BaseLogger) Close() error {
	var first error
	for _, out := range l.outputs {
		if err := out.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (l *BaseLogger) derive(attrs []slog.Attr, fields Fields) Logger {
	nl := &BaseLogger{
		level:     l.level,
		fields:    make(Fields, len(l.fields)+len(fields)),
		formatter: l.formatter,
		outputs:   l.outputs,
		redact:    l.redact,
		sampling:  l.sampling,
	}
	for k, v := range l.fields {
		nl.fields[k] = v
	}
	for k, v := range fields {
		nl.fields[k] = v
	}
	h := *l.handler
	h.logger = nl
	nl.handler = h.WithAttrs(attrs).(*bridgeHandler)
	nl.slogLogger = slog.New(nl.handler)
	return nl
}

func (l *BaseLogger) log(skip int, level Level, msg string, attrs []slog.Attr) {
	if level < l.level {
		return
	}
	var pcs [1]uintptr
	runtime.Callers(skip, pcs[:])
	r := slog.NewRecord(time.Now(), toSlogLevel(level), msg, pcs[0])
	r.AddAttrs(attrs...)
	_ = l.handler.Handle(context.Background(), r)
}

// logf formats msg when it carries verbs and otherwise treats args as
// key/value pairs.
func (l *BaseLogger) logf(level Level, msg string, args []interface{}) {
	if strings.ContainsRune(msg, '%') {
		l.log(callerSkip+1, level, fmt.Sprintf(msg, args...), nil)
		return
	}
	l.log(callerSkip+1, level, msg, argsToAttrs(args))
}

func (l *BaseLogger) exit() {
	_ = l.Close()
	os.Exit(1)
}
