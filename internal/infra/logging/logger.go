// Package logging writes promptbench log records to files under <dataDir>/logs.
// Every record goes to promptbench.log; records carrying a task ID are also
// appended to task-<id>.log.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/runoshun/promptbench/internal/domain"
)

// Attribute keys the handler lifts out of a record into the line prefix.
const (
	AttrTask     = "task"
	AttrCategory = "category"
)

var _ domain.Logger = (*Logger)(nil)

// Logger adapts a file-backed slog.Logger to domain.Logger.
type Logger struct {
	slog    *slog.Logger
	handler *Handler
}

// New creates a Logger writing to dataDir/logs at or above level.
// An empty dataDir disables output.
func New(dataDir string, level slog.Level) *Logger {
	h := NewHandler(dataDir, level)
	return &Logger{slog: slog.New(h), handler: h}
}

// WithClock stamps entries with clock instead of the record time.
func (l *Logger) WithClock(clock domain.Clock) *Logger {
	l.handler.sink.clock = clock
	return l
}

// Slog returns the underlying structured logger.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Close closes every open log file.
func (l *Logger) Close() error {
	return l.handler.sink.close()
}

func (l *Logger) Info(taskID, category, msg string) {
	l.log(slog.LevelInfo, taskID, category, msg)
}

func (l *Logger) Debug(taskID, category, msg string) {
	l.log(slog.LevelDebug, taskID, category, msg)
}

func (l *Logger) Warn(taskID, category, msg string) {
	l.log(slog.LevelWarn, taskID, category, msg)
}

func (l *Logger) Error(taskID, category, msg string) {
	l.log(slog.LevelError, taskID, category, msg)
}

func (l *Logger) log(level slog.Level, taskID, category, msg string) {
	l.slog.Log(context.Background(), level, msg, AttrTask, taskID, AttrCategory, category)
}

// ParseLevel maps a config level name to a slog.Level, defaulting to info.
func ParseLevel(levelStr string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(levelStr))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Handler is a slog.Handler producing lines of the form
//
//	[2006-01-02 15:04:05] [INFO] [task-T-1] [workflow] message key=value
//
// Records without a task attribute are tagged [global].
type Handler struct {
	sink  *fileSink
	attrs []slog.Attr
	group string
	level slog.Level
}

var _ slog.Handler = (*Handler)(nil)

// NewHandler creates a Handler writing under dataDir/logs.
func NewHandler(dataDir string, level slog.Level) *Handler {
	return &Handler{
		sink:  &fileSink{dataDir: dataDir, files: make(map[string]*os.File)},
		level: level,
	}
}

// Enabled reports whether level passes the handler threshold.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return h.sink.dataDir != "" && level >= h.level
}

// Handle formats r and appends it to the global and task files.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var taskID, category string
	var extra []string

	collect := func(a slog.Attr) {
		switch a.Key {
		case "":
		case AttrTask:
			taskID = a.Value.String()
		case AttrCategory:
			category = a.Value.String()
		default:
			extra = append(extra, a.Key+"="+a.Value.String())
		}
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(h.qualify(a))
		return true
	})

	t := r.Time
	if h.sink.clock != nil {
		t = h.sink.clock.Now()
	}
	scope := "global"
	if taskID != "" {
		scope = "task-" + taskID
	}
	msg := r.Message
	if len(extra) > 0 {
		msg += " " + strings.Join(extra, " ")
	}
	line := fmt.Sprintf("[%s] [%s] [%s] [%s] %s\n",
		t.Format("2006-01-02 15:04:05"), r.Level.String(), scope, category, msg)

	if err := h.sink.write(domain.GlobalLogPath(h.sink.dataDir), line); err != nil {
		return err
	}
	if taskID != "" {
		return h.sink.write(domain.TaskLogPath(h.sink.dataDir, taskID), line)
	}
	return nil
}

// WithAttrs returns a handler that adds attrs to every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, h.qualify(a))
	}
	return &clone
}

// qualify prefixes the key of a with the open group, if any.
func (h *Handler) qualify(a slog.Attr) slog.Attr {
	if h.group != "" && a.Key != "" {
		a.Key = h.group + "." + a.Key
	}
	return a
}

// WithGroup returns a handler that prefixes later attribute keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if clone.group != "" {
		name = clone.group + "." + name
	}
	clone.group = name
	return &clone
}

// fileSink keeps append handles open per path.
type fileSink struct {
	clock   domain.Clock
	files   map[string]*os.File
	dataDir string
	mu      sync.Mutex
}

func (s *fileSink) write(path, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[path]
	if !ok {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("create logs directory: %w", err)
		}
		var err error
		f, err = os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // readable by owner and group
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		s.files[path] = f
	}
	_, err := io.WriteString(f, line)
	return err
}

func (s *fileSink) close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for path, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(s.files, path)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close log files: %w", errs[0])
	}
	return nil
}
