package process

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
)

// lineWriter captures a stream and calls onLine for every complete line.
// A trailing line without a newline is delivered by Flush.
type lineWriter struct {
	mu        sync.Mutex
	onLine    func(string)
	captured  bytes.Buffer
	partial   []byte
	max       int
	truncated bool
	logger    *slog.Logger
}

func newLineWriter(onLine func(string), max int, logger *slog.Logger) *lineWriter {
	return &lineWriter{onLine: onLine, max: max, logger: logger}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.capture(p)

	data := p
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		var line string
		if len(w.partial) > 0 {
			w.partial = append(w.partial, data[:i]...)
			line = string(w.partial)
			w.partial = w.partial[:0]
		} else {
			line = string(data[:i])
		}
		w.emit(line)
		data = data[i+1:]
	}
	if len(data) > 0 {
		if len(w.partial)+len(data) > w.max {
			// A single line larger than the capture limit is delivered in pieces.
			w.emit(string(append(w.partial, data...)))
			w.partial = w.partial[:0]
		} else {
			w.partial = append(w.partial, data...)
		}
	}
	return len(p), nil
}

func (w *lineWriter) capture(p []byte) {
	room := w.max - w.captured.Len()
	if room <= 0 {
		w.truncated = w.truncated || len(p) > 0
		return
	}
	if len(p) > room {
		w.captured.Write(p[:room])
		w.truncated = true
		return
	}
	w.captured.Write(p)
}

func (w *lineWriter) emit(line string) {
	if w.onLine == nil {
		return
	}
	line = strings.TrimSuffix(line, "\r")
	defer func() {
		if r := recover(); r != nil {
			w.logger.Warn("line callback panicked", "panic", r)
		}
	}()
	w.onLine(line)
}

// Flush delivers any buffered partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.partial) > 0 {
		w.emit(string(w.partial))
		w.partial = w.partial[:0]
	}
}

func (w *lineWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.captured.String()
}

func (w *lineWriter) Truncated() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.truncated
}
