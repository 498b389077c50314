package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/phsym/console-slog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions configures the rotating process log file.
type FileOptions struct {
	// Path is the log file location, e.g. "logs/pcr_process.log".
	Path string
	// MaxSizeMB is the size in megabytes before the file is rotated.
	MaxSizeMB int
	// MaxBackups is the number of rotated files kept.
	MaxBackups int
	// MaxAgeDays is the number of days rotated files are kept.
	MaxAgeDays int
	// Compress enables gzip compression of rotated files.
	Compress bool
}

// Options configures a slog based Logger.
type Options struct {
	Level     Level
	AddSource bool
	// Console selects the human readable console-slog handler for Output.
	// Otherwise records are written as JSON.
	Console bool
	// Output receives console or JSON records. Defaults to os.Stdout.
	Output io.Writer
	// File, when set, additionally writes JSON records to a rotating file.
	File *FileOptions
}

type SlogLogger struct {
	mu     sync.Mutex
	logger *slog.Logger
	level  *slog.LevelVar
	closer io.Closer
}

var _ Logger = (*SlogLogger)(nil)

// NewSlog creates a slog logger writing to stdout. Console output is used
// when the ENV environment variable is "development".
func NewSlog(level Level, addSource bool) *SlogLogger {
	return New(Options{
		Level:     level,
		AddSource: addSource,
		Console:   os.Getenv("ENV") == "development",
	})
}

// New creates a slog logger from opts.
func New(opts Options) *SlogLogger {
	inst := &SlogLogger{level: &slog.LevelVar{}}
	inst.level.Set(toSlogLevel(opts.Level))

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler
	if opts.Console {
		handler = console.NewHandler(out, &console.HandlerOptions{
			AddSource: opts.AddSource,
			Level:     inst.level,
		})
	} else {
		handler = newJSONHandler(out, inst.level, opts.AddSource)
	}

	if opts.File != nil && opts.File.Path != "" {
		_ = os.MkdirAll(filepath.Dir(opts.File.Path), 0o755)
		lj := &lumberjack.Logger{
			Filename:   opts.File.Path,
			MaxSize:    opts.File.MaxSizeMB,
			MaxBackups: opts.File.MaxBackups,
			MaxAge:     opts.File.MaxAgeDays,
			Compress:   opts.File.Compress,
		}
		inst.closer = lj
		handler = &fanoutHandler{handlers: []slog.Handler{
			handler,
			newJSONHandler(lj, inst.level, opts.AddSource),
		}}
	}

	inst.logger = slog.New(handler)

	return inst
}

func newJSONHandler(w io.Writer, level *slog.LevelVar, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: addSource,
		Level:     level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Key = "ts"
			}
			return a
		},
	})
}

func (l *SlogLogger) Debug(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelDebug, msg, keysAndValues...)
}

func (l *SlogLogger) Info(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelInfo, msg, keysAndValues...)
}

func (l *SlogLogger) Warn(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelWarn, msg, keysAndValues...)
}

func (l *SlogLogger) Error(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelError, msg, keysAndValues...)
}

func (l *SlogLogger) Fatal(msg string, keysAndValues ...any) {
	l.log(context.Background(), slog.LevelError, msg, keysAndValues...)
	_ = l.Close()
	os.Exit(1)
}

func (l *SlogLogger) With(keyValues ...any) Logger {
	return &SlogLogger{
		logger: l.logger.With(keyValues...),
		level:  l.level,
	}
}

func (l *SlogLogger) Level() Level {
	switch lv := l.level.Level(); {
	case lv <= slog.LevelDebug:
		return DebugLevel
	case lv <= slog.LevelInfo:
		return InfoLevel
	case lv <= slog.LevelWarn:
		return WarnLevel
	default:
		return ErrorLevel
	}
}

func (l *SlogLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.level.Set(toSlogLevel(level))
}

// Close releases the rotating log file, if any. Child loggers created by
// With share the file and do not own it.
func (l *SlogLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closer == nil {
		return nil
	}

	err := l.closer.Close()
	l.closer = nil

	return err
}

// log is the low-level logging method for methods that take ...any.
// It must always be called directly by an exported logging method
// or function, because it uses a fixed call depth to obtain the pc.
func (l *SlogLogger) log(ctx context.Context, level slog.Level, msg string, args ...any) {
	if !l.logger.Enabled(ctx, level) {
		return
	}
	var pcs [1]uintptr
	// skip [runtime.Callers, this function, this function's caller]
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.logger.Handler().Handle(ctx, r)
}

func toSlogLevel(level Level) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case InfoLevel:
		return slog.LevelInfo
	case WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// fanoutHandler dispatches each record to every enabled handler.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hd := range h.handlers {
		if hd.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, hd := range h.handlers {
		if !hd.Enabled(ctx, r.Level) {
			continue
		}
		if err := hd.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(h.handlers))
	for i, hd := range h.handlers {
		out[i] = hd.WithAttrs(attrs)
	}

	return &fanoutHandler{handlers: out}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(h.handlers))
	for i, hd := range h.handlers {
		out[i] = hd.WithGroup(name)
	}

	return &fanoutHandler{handlers: out}
}
