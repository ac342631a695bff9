// Package plog provides the application-wide leveled logger. Records go to
// the console (info and below to stdout, warnings and above to stderr) and,
// once a log file is attached, to an append-mode file as well.
package plog

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// LevelNotice sits between debug and info. It is used for per-path actions
// (COPY, SKIP, EXCL) that are useful in verbose runs but too chatty for the
// default level.
const LevelNotice = slog.Level(-2)

// levelNames maps the custom levels to their display names.
var levelNames = map[slog.Leveler]string{
	LevelNotice: "NOTICE",
}

// DispatchHandler is a slog.Handler that writes log records to different
// handlers based on the record's level, and duplicates every record to an
// optional file handler.
type DispatchHandler struct {
	stdoutHandler slog.Handler
	stderrHandler slog.Handler

	mu          *sync.Mutex
	fileHandler slog.Handler
}

// Enabled checks if the level is enabled for either of the underlying handlers.
func (h *DispatchHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.stdoutHandler.Enabled(ctx, level) || h.stderrHandler.Enabled(ctx, level)
}

// Handle dispatches the record to the appropriate console handler and to the
// file handler when one is attached.
func (h *DispatchHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if r.Level >= slog.LevelWarn {
		err = h.stderrHandler.Handle(ctx, r)
	} else {
		err = h.stdoutHandler.Handle(ctx, r)
	}

	h.mu.Lock()
	fh := h.fileHandler
	h.mu.Unlock()
	if fh != nil {
		if ferr := fh.Handle(ctx, r.Clone()); err == nil {
			err = ferr
		}
	}
	return err
}

// WithAttrs returns a new DispatchHandler with the given attributes added.
func (h *DispatchHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	nh := &DispatchHandler{
		stdoutHandler: h.stdoutHandler.WithAttrs(attrs),
		stderrHandler: h.stderrHandler.WithAttrs(attrs),
		mu:            h.mu,
	}
	if h.fileHandler != nil {
		nh.fileHandler = h.fileHandler.WithAttrs(attrs)
	}
	return nh
}

// WithGroup returns a new DispatchHandler with the given group.
func (h *DispatchHandler) WithGroup(name string) slog.Handler {
	h.mu.Lock()
	defer h.mu.Unlock()
	nh := &DispatchHandler{
		stdoutHandler: h.stdoutHandler.WithGroup(name),
		stderrHandler: h.stderrHandler.WithGroup(name),
		mu:            h.mu,
	}
	if h.fileHandler != nil {
		nh.fileHandler = h.fileHandler.WithGroup(name)
	}
	return nh
}

var (
	levelVar       slog.LevelVar // defaults to slog.LevelInfo
	defaultHandler *DispatchHandler
	defaultLogger  *slog.Logger
	logFile        *os.File
	logFileMu      sync.Mutex
)

// handlerOptions returns the options shared by all handlers, wiring the
// dynamic level and the display names of the custom levels.
func handlerOptions(minLevel slog.Leveler) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: minLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if level, ok := a.Value.Any().(slog.Level); ok {
					if name, ok := levelNames[level]; ok {
						a.Value = slog.StringValue(name)
					}
				}
			}
			return a
		},
	}
}

func init() {
	defaultHandler = &DispatchHandler{
		stdoutHandler: slog.NewTextHandler(os.Stdout, handlerOptions(&levelVar)),
		stderrHandler: slog.NewTextHandler(os.Stderr, handlerOptions(slog.LevelWarn)),
		mu:            &sync.Mutex{},
	}
	defaultLogger = slog.New(defaultHandler)
}

// SetLevel sets the minimum level for console output. The attached log file
// always records at the same level as the console.
func SetLevel(level slog.Level) {
	levelVar.Set(level)
}

// LevelFromString converts a level name ('debug', 'notice', 'info', 'warn',
// 'error') to a slog.Level. Unknown names fall back to info.
func LevelFromString(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "notice":
		return LevelNotice
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetOutput redirects all logger output to a single writer, primarily for
// testing. The file handler is detached.
func SetOutput(w io.Writer) {
	h := slog.NewTextHandler(w, handlerOptions(&levelVar))
	defaultHandler = &DispatchHandler{
		stdoutHandler: h,
		stderrHandler: h,
		mu:            &sync.Mutex{},
	}
	defaultLogger = slog.New(defaultHandler)
}

// AttachLogFile opens path in append mode and duplicates all log records to
// it. An oversized previous log is rotated (and gzip-compressed) first.
// Returns the opened file so the caller can close it on shutdown.
func AttachLogFile(path string) (*os.File, error) {
	if err := rotateIfOversized(path); err != nil {
		// Rotation failure must never prevent logging; keep appending.
		Warn("Log rotation failed", "path", path, "error", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	logFileMu.Lock()
	logFile = f
	logFileMu.Unlock()

	defaultHandler.mu.Lock()
	defaultHandler.fileHandler = slog.NewTextHandler(f, handlerOptions(&levelVar))
	defaultHandler.mu.Unlock()
	return f, nil
}

// Debug logs a debug message.
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

// Notice logs a per-path action message.
func Notice(msg string, args ...any) {
	defaultLogger.Log(context.Background(), LevelNotice, msg, args...)
}

// Info logs an informational message.
func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

// Warn logs a warning message.
func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

// Error logs an error message.
func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}
