package logger

import (
	"bufio"
	"fmt"
	"os"
	"sync"
)

const (
	fileWriterBufferSize = 16 * 1024
	logFilePermissions   = 0o600
)

// fileWriter is a buffered, mutex guarded log file. Reopen supports external
// rotation tools that move the file away and signal the process.
type fileWriter struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	writer *bufio.Writer
}

func newFileWriter(path string) (*fileWriter, error) {
	w := &fileWriter{path: path}
	if err := w.openLocked(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *fileWriter) openLocked() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", w.path, err)
	}
	w.file = f
	w.writer = bufio.NewWriterSize(f, fileWriterBufferSize)
	return nil
}

// Write appends p to the buffer. Each slog record is a single Write call,
// so a full line is flushed at a time.
func (w *fileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writer == nil {
		return 0, os.ErrClosed
	}
	n, err := w.writer.Write(p)
	if err != nil {
		return n, err
	}
	return n, w.writer.Flush()
}

func (w *fileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.writer == nil {
		return nil
	}
	return w.writer.Flush()
}

// Reopen closes the current file handle and opens the path again.
func (w *fileWriter) Reopen() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.closeLocked(); err != nil {
		return err
	}
	return w.openLocked()
}

func (w *fileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *fileWriter) closeLocked() error {
	if w.file == nil {
		return nil
	}
	flushErr := w.writer.Flush()
	syncErr := w.file.Sync()
	closeErr := w.file.Close()
	w.file = nil
	w.writer = nil
	if flushErr != nil {
		return flushErr
	}
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}
