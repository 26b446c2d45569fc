package logger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

const maxErrorEntries = 100

// Logger writes JSON records to a per-process file under os.TempDir() and,
// optionally, human readable records to a console writer.
type Logger struct {
	path      string
	file      *os.File
	zl        zerolog.Logger
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error

	errMu        sync.Mutex
	errorEntries []string
}

// Option customizes a Logger at construction time.
type Option func(*options)

type options struct {
	console      io.Writer
	consoleLevel zerolog.Level
	fields       map[string]any
}

// WithConsole mirrors records at or above level to w.
func WithConsole(w io.Writer, level zerolog.Level) Option {
	return func(o *options) {
		o.console = w
		o.consoleLevel = level
	}
}

// WithField attaches a fixed key/value pair to every record.
func WithField(key string, value any) Option {
	return func(o *options) {
		if o.fields == nil {
			o.fields = make(map[string]any)
		}
		o.fields[key] = value
	}
}

// NewLogger creates $TMPDIR/smartfix-harness-<pid>.log.
func NewLogger(opts ...Option) (*Logger, error) {
	return NewLoggerWithSuffix("", opts...)
}

// NewLoggerWithSuffix creates $TMPDIR/smartfix-harness-<pid>-<suffix>.log.
func NewLoggerWithSuffix(suffix string, opts ...Option) (*Logger, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	name := fmt.Sprintf("%s-%d", PrimaryLogPrefix(), os.Getpid())
	if s := SanitizeLogSuffix(suffix); s != "" {
		name += "-" + s
	}
	path := filepath.Join(os.TempDir(), name+".log")

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) // #nosec G304 -- path is built from the temp dir and pid
	if err != nil {
		return nil, fmt.Errorf("create log file %s: %w", path, err)
	}

	var w io.Writer = f
	if o.console != nil {
		console := zerolog.ConsoleWriter{Out: o.console, TimeFormat: "15:04:05", NoColor: true}
		w = zerolog.MultiLevelWriter(
			zerolog.LevelWriterAdapter{Writer: f},
			&zerolog.FilteredLevelWriter{
				Writer: zerolog.LevelWriterAdapter{Writer: zerolog.SyncWriter(console)},
				Level:  o.consoleLevel,
			},
		)
	}

	ctx := zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp()
	if len(o.fields) > 0 {
		ctx = ctx.Fields(o.fields)
	}

	return &Logger{path: path, file: f, zl: ctx.Logger()}, nil
}

// Path returns the log file path, or "" for a nil logger.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

func (l *Logger) Debug(msg string, fields ...any) { l.log(zerolog.DebugLevel, msg, fields) }
func (l *Logger) Info(msg string, fields ...any)  { l.log(zerolog.InfoLevel, msg, fields) }
func (l *Logger) Warn(msg string, fields ...any)  { l.log(zerolog.WarnLevel, msg, fields) }
func (l *Logger) Error(msg string, fields ...any) { l.log(zerolog.ErrorLevel, msg, fields) }

func (l *Logger) log(level zerolog.Level, msg string, fields []any) {
	if l == nil || l.closed.Load() {
		return
	}
	ev := l.zl.WithLevel(level)
	if len(fields) > 0 {
		ev = ev.Fields(fields)
	}
	ev.Msg(msg)

	if level >= zerolog.WarnLevel {
		l.recordError(level, msg)
	}
}

func (l *Logger) recordError(level zerolog.Level, msg string) {
	entry := fmt.Sprintf("[%s] %s", strings.ToUpper(level.String()), msg)
	l.errMu.Lock()
	defer l.errMu.Unlock()
	l.errorEntries = append(l.errorEntries, entry)
	if len(l.errorEntries) > maxErrorEntries {
		l.errorEntries = l.errorEntries[len(l.errorEntries)-maxErrorEntries:]
	}
}

// ExtractRecentErrors returns up to maxEntries of the most recent warn and
// error records, oldest first.
func (l *Logger) ExtractRecentErrors(maxEntries int) []string {
	if l == nil || maxEntries <= 0 {
		return nil
	}
	l.errMu.Lock()
	defer l.errMu.Unlock()
	if len(l.errorEntries) == 0 {
		return nil
	}
	start := max(len(l.errorEntries)-maxEntries, 0)
	return append([]string(nil), l.errorEntries[start:]...)
}

// Flush syncs the log file to disk.
func (l *Logger) Flush() {
	if l == nil || l.closed.Load() {
		return
	}
	_ = l.file.Sync()
}

// Close flushes and closes the log file. The file itself is kept.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		syncErr := l.file.Sync()
		l.closeErr = errors.Join(syncErr, l.file.Close())
	})
	return l.closeErr
}

// RemoveLogFile deletes the log file. A missing file is not an error.
func (l *Logger) RemoveLogFile() error {
	if l == nil || l.path == "" {
		return nil
	}
	if err := removeLogFileFn(l.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// SanitizeLogSuffix keeps [A-Za-z0-9._-], maps everything else to '-' and
// collapses repeats.
func SanitizeLogSuffix(raw string) string {
	var b strings.Builder
	lastDash := false
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-.")
	if len(out) > 64 {
		out = out[:64]
	}
	return out
}
