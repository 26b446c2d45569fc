package executor

import (
	"bytes"

	"smartfix-harness/internal/utils"
)

const (
	stderrLogLineLimit = 1000
	stderrTailBytes    = 4096
)

// logWriter mirrors a tool stream into the harness log one line at a time.
// Lines longer than maxLen are cut and marked with "...".
type logWriter struct {
	prefix  string
	fields  []any
	maxLen  int
	buf     bytes.Buffer
	dropped bool
}

func newLogWriter(prefix string, maxLen int, fields ...any) *logWriter {
	if maxLen <= 0 {
		maxLen = stderrLogLineLimit
	}
	return &logWriter{prefix: prefix, maxLen: maxLen, fields: fields}
}

func (lw *logWriter) Write(p []byte) (int, error) {
	if lw == nil {
		return len(p), nil
	}
	total := len(p)
	for len(p) > 0 {
		if idx := bytes.IndexByte(p, '\n'); idx >= 0 {
			lw.writeLimited(p[:idx])
			lw.logLine(true)
			p = p[idx+1:]
			continue
		}
		lw.writeLimited(p)
		break
	}
	return total, nil
}

// Flush emits a trailing partial line.
func (lw *logWriter) Flush() {
	if lw == nil || lw.buf.Len() == 0 {
		return
	}
	lw.logLine(false)
}

func (lw *logWriter) logLine(force bool) {
	line := utils.SanitizeOutput(lw.buf.String())
	dropped := lw.dropped
	lw.dropped = false
	lw.buf.Reset()
	if line == "" && !force {
		return
	}
	if dropped || len(line) > lw.maxLen {
		cut := min(len(line), lw.maxLen)
		if lw.maxLen > 3 {
			cut = min(len(line), lw.maxLen-3)
		}
		line = line[:cut] + "..."
	}
	logDebug(lw.prefix+line, lw.fields...)
}

func (lw *logWriter) writeLimited(p []byte) {
	if len(p) == 0 {
		return
	}
	remaining := lw.maxLen - lw.buf.Len()
	if remaining <= 0 {
		lw.dropped = true
		return
	}
	if len(p) <= remaining {
		lw.buf.Write(p)
		return
	}
	lw.buf.Write(p[:remaining])
	lw.dropped = true
}

// tailBuffer keeps only the last limit bytes written to it.
type tailBuffer struct {
	limit int
	data  []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	if b.limit <= 0 {
		return len(p), nil
	}
	if len(p) >= b.limit {
		b.data = append(b.data[:0], p[len(p)-b.limit:]...)
		return len(p), nil
	}
	total := len(b.data) + len(p)
	if total <= b.limit {
		b.data = append(b.data, p...)
		return len(p), nil
	}
	overflow := total - b.limit
	b.data = append(b.data[overflow:], p...)
	return len(p), nil
}

func (b *tailBuffer) String() string {
	return string(b.data)
}
