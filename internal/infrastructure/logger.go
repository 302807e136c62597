package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"baaccli/internal/config"
)

type contextKey string

// TraceIDContextKey stores the request or run id in a context.
const TraceIDContextKey contextKey = "trace_id"

// process-wide logger and the file it may write to
var (
	logMu      sync.Mutex
	rootLogger *slog.Logger
	logFile    *os.File
)

// InitializeLogger builds the process logger from cfg and installs it as the
// slog default. Later calls return the first logger until
// ResetLoggerForTesting.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	logMu.Lock()
	defer logMu.Unlock()
	if rootLogger != nil {
		return rootLogger, nil
	}

	out, f, err := logOutput(cfg)
	if err != nil {
		return nil, err
	}
	logFile = f
	rootLogger = newLogger(out, parseLogLevel(cfg.Level))
	slog.SetDefault(rootLogger)
	return rootLogger, nil
}

// GetLogger returns the process logger, or slog.Default before
// InitializeLogger.
func GetLogger() *slog.Logger {
	logMu.Lock()
	defer logMu.Unlock()
	if rootLogger == nil {
		return slog.Default()
	}
	return rootLogger
}

// NewLogger builds a standalone JSON logger writing to w.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return newLogger(w, parseLogLevel(level))
}

func newLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(&traceHandler{Handler: h})
}

func logOutput(cfg config.LoggingConfig) (io.Writer, *os.File, error) {
	switch strings.ToLower(cfg.Output) {
	case "file", "both":
		f, err := openLogFile(cfg.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		if strings.EqualFold(cfg.Output, "both") {
			return io.MultiWriter(os.Stdout, f), f, nil
		}
		return f, f, nil
	default:
		return os.Stdout, nil, nil
	}
}

// traceHandler adds the run id from the context and, when a span is
// recording, the OpenTelemetry trace and span ids.
type traceHandler struct {
	slog.Handler
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetTraceID(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		r.AddAttrs(
			slog.String("otel_trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name)}
}

// parseLogLevel accepts the slog names plus "warning". Unknown names mean
// info.
func parseLogLevel(level string) slog.Level {
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// WithTraceID returns ctx carrying traceID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDContextKey, traceID)
}

// GetTraceID returns the id stored by WithTraceID, or "".
func GetTraceID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(TraceIDContextKey).(string)
	return id
}

// CloseLogFile closes the log file opened by InitializeLogger, if any.
func CloseLogFile() error {
	logMu.Lock()
	defer logMu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// ResetLoggerForTesting forgets the process logger.
func ResetLoggerForTesting() {
	_ = CloseLogFile()
	logMu.Lock()
	rootLogger = nil
	logMu.Unlock()
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}
