package search

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARNING
	ERROR
)

var levelNames = [...]string{DEBUG: "DEBUG", INFO: "INFO", WARNING: "WARNING", ERROR: "ERROR"}

const (
	maxLogSize      = 10 * 1024 * 1024 // 10MB
	logBufferSize   = 32 * 1024        // 32KB
	maxLogRotations = 5
	logQueueSize    = 1000
)

// Logger writes leveled messages to a rotating file from a single goroutine.
// Until InitLogger is called every log call is a no-op.
type Logger struct {
	mu       sync.Mutex
	writer   *bufio.Writer
	file     *os.File
	queue    chan string
	drained  chan struct{}
	minLevel LogLevel
}

var (
	loggerMu     sync.RWMutex
	globalLogger *Logger
)

// InitLogger opens the log file under dir (the temp dir when empty) and starts the writer.
func InitLogger(dir string, minLevel LogLevel) error {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "projectsearch-logs")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(dir, "search.log")
	rotateLogFile(logPath)

	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	l := &Logger{
		writer:   bufio.NewWriterSize(file, logBufferSize),
		file:     file,
		queue:    make(chan string, logQueueSize),
		drained:  make(chan struct{}),
		minLevel: minLevel,
	}
	fmt.Fprintf(l.writer, "\n=== Log started at %s ===\n", time.Now().Format("2006-01-02 15:04:05"))
	l.writer.Flush()
	go l.process()

	loggerMu.Lock()
	old := globalLogger
	globalLogger = l
	loggerMu.Unlock()

	if old != nil {
		old.Close()
	}
	return nil
}

// CloseLogger flushes pending messages and detaches the global logger
func CloseLogger() {
	loggerMu.Lock()
	l := globalLogger
	globalLogger = nil
	loggerMu.Unlock()

	if l != nil {
		if err := l.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to close logger: %v\n", err)
		}
	}
}

// process drains the queue into the file, flushing whenever it runs dry
func (l *Logger) process() {
	defer close(l.drained)
	for msg := range l.queue {
		l.mu.Lock()
		l.writer.WriteString(msg)
		if len(l.queue) == 0 {
			l.writer.Flush()
		}
		l.mu.Unlock()
	}
}

// rotateLogFile rotates log files if necessary
func rotateLogFile(logPath string) {
	fi, err := os.Stat(logPath)
	if err != nil || fi.Size() <= maxLogSize {
		return
	}
	for i := maxLogRotations - 1; i > 0; i-- {
		os.Rename(fmt.Sprintf("%s.%d", logPath, i), fmt.Sprintf("%s.%d", logPath, i+1))
	}
	os.Rename(logPath, logPath+".1")
}

// Close stops the writer goroutine and closes the file
func (l *Logger) Close() error {
	close(l.queue)
	<-l.drained

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush log buffer: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	return nil
}

func logAt(level LogLevel, format string, args ...interface{}) {
	loggerMu.RLock()
	defer loggerMu.RUnlock()

	l := globalLogger
	if l == nil || level < l.minLevel {
		return
	}
	msg := fmt.Sprintf("%s [%s] %s\n", time.Now().Format("15:04:05.000"), levelNames[level], fmt.Sprintf(format, args...))
	if level == ERROR {
		// errors are never dropped
		l.queue <- msg
		return
	}
	select {
	case l.queue <- msg:
	default:
		// queue full, drop the message
	}
}

func logDebug(format string, args ...interface{})   { logAt(DEBUG, format, args...) }
func logInfo(format string, args ...interface{})    { logAt(INFO, format, args...) }
func logWarning(format string, args ...interface{}) { logAt(WARNING, format, args...) }
func logError(format string, args ...interface{})   { logAt(ERROR, format, args...) }

// Exported helpers for the front ends
func LogDebug(format string, args ...interface{})   { logDebug(format, args...) }
func LogInfo(format string, args ...interface{})    { logInfo(format, args...) }
func LogWarning(format string, args ...interface{}) { logWarning(format, args...) }
func LogError(format string, args ...interface{})   { logError(format, args...) }

// ParseLogLevel converts a level name such as "debug" or "warning"
func ParseLogLevel(v string) (LogLevel, error) {
	switch v {
	case "debug", "DEBUG":
		return DEBUG, nil
	case "", "info", "INFO":
		return INFO, nil
	case "warn", "warning", "WARNING":
		return WARNING, nil
	case "error", "ERROR":
		return ERROR, nil
	}
	return INFO, fmt.Errorf("unknown log level: %s", v)
}
