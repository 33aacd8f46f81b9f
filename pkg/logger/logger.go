package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var logLevelNames = map[LogLevel]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

func (l LogLevel) String() string {
	if name, ok := logLevelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int(l))
}

// ParseLevel maps a config string ("debug", "warn", ...) to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	case "fatal":
		return FATAL, nil
	}
	return INFO, fmt.Errorf("unknown log level %q", s)
}

var (
	mu           sync.RWMutex
	currentLevel = INFO
	sink         = &fileSink{}
	exitFunc     = os.Exit
)

// fileSink mirrors log lines as JSON into a size-rotated file.
type fileSink struct {
	mu           sync.Mutex
	file         *os.File
	path         string
	maxSizeBytes int64
	maxAgeDays   int
}

type LogEntry struct {
	Level     string                 `json:"level"`
	Timestamp string                 `json:"timestamp"`
	Component string                 `json:"component,omitempty"`
	Message   string                 `json:"message"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	Caller    string                 `json:"caller,omitempty"`
}

func SetLevel(level LogLevel) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
}

func GetLevel() LogLevel {
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}

func EnableFileLogging(filePath string) error {
	return EnableFileLoggingWithRotation(filePath, 20, 3)
}

func EnableFileLoggingWithRotation(filePath string, maxSizeMB, maxAgeDays int) error {
	if maxSizeMB <= 0 {
		maxSizeMB = 20
	}
	if maxAgeDays <= 0 {
		maxAgeDays = 3
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.file != nil {
		_ = sink.file.Close()
	}
	sink.file = file
	sink.path = filePath
	sink.maxSizeBytes = int64(maxSizeMB) * 1024 * 1024
	sink.maxAgeDays = maxAgeDays
	if err := sink.cleanupOldLocked(); err != nil {
		log.Println("Failed to clean up old log files:", err)
	}
	return nil
}

func DisableFileLogging() {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.file == nil {
		return
	}
	_ = sink.file.Close()
	sink.file = nil
	sink.path = ""
	sink.maxSizeBytes = 0
	sink.maxAgeDays = 0
}

func logMessage(level LogLevel, component string, message string, fields map[string]interface{}) {
	if level < GetLevel() {
		return
	}

	entry := LogEntry{
		Level:     level.String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Component: component,
		Message:   message,
		Fields:    fields,
	}
	if pc, file, line, ok := runtime.Caller(2); ok {
		if fn := runtime.FuncForPC(pc); fn != nil {
			entry.Caller = fmt.Sprintf("%s:%d (%s)", filepath.Base(file), line, fn.Name())
		}
	}

	if data, err := json.Marshal(entry); err == nil {
		if err := sink.writeLine(append(data, '\n')); err != nil {
			log.Println("Failed to write file log:", err)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s]", entry.Timestamp, entry.Level)
	if component != "" {
		fmt.Fprintf(&b, " %s:", component)
	}
	b.WriteString(" ")
	b.WriteString(message)
	if len(fields) > 0 {
		b.WriteString(" ")
		b.WriteString(formatFields(fields))
	}
	log.Println(b.String())

	if level == FATAL {
		exitFunc(1)
	}
}

func (s *fileSink) writeLine(line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil
	}
	if s.maxSizeBytes > 0 {
		if err := s.rotateIfNeededLocked(int64(len(line))); err != nil {
			return err
		}
	}
	_, err := s.file.Write(line)
	return err
}

func (s *fileSink) rotateIfNeededLocked(nextWrite int64) error {
	info, err := s.file.Stat()
	if err != nil {
		return err
	}
	if info.Size()+nextWrite <= s.maxSizeBytes {
		return nil
	}

	if err := s.file.Close(); err != nil {
		return err
	}
	backupPath := fmt.Sprintf("%s.%s", s.path, time.Now().UTC().Format("20060102-150405"))
	if err := os.Rename(s.path, backupPath); err != nil {
		return err
	}
	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	s.file = file
	return s.cleanupOldLocked()
}

func (s *fileSink) cleanupOldLocked() error {
	if s.maxAgeDays <= 0 || s.path == "" {
		return nil
	}

	dir := filepath.Dir(s.path)
	base := filepath.Base(s.path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	cutoff := time.Now().AddDate(0, 0, -s.maxAgeDays)
	for _, entry := range entries {
		// Only rotated siblings like n8ncord.log.20260213-120000.
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), base+".") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, entry.Name()))
		}
	}
	return nil
}

func formatFields(fields map[string]interface{}) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func DebugC(component string, message string) {
	logMessage(DEBUG, component, message, nil)
}

func DebugCF(component string, message string, fields map[string]interface{}) {
	logMessage(DEBUG, component, message, fields)
}

func Info(message string) {
	logMessage(INFO, "", message, nil)
}

func InfoC(component string, message string) {
	logMessage(INFO, component, message, nil)
}

func InfoCF(component string, message string, fields map[string]interface{}) {
	logMessage(INFO, component, message, fields)
}

func WarnC(component string, message string) {
	logMessage(WARN, component, message, nil)
}

func WarnCF(component string, message string, fields map[string]interface{}) {
	logMessage(WARN, component, message, fields)
}

func ErrorC(component string, message string) {
	logMessage(ERROR, component, message, nil)
}

func ErrorCF(component string, message string, fields map[string]interface{}) {
	logMessage(ERROR, component, message, fields)
}

func FatalCF(component string, message string, fields map[string]interface{}) {
	logMessage(FATAL, component, message, fields)
}
