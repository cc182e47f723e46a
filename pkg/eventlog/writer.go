// Package eventlog writes workflow events to daily rotated JSONL files.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/AkibDa/Code-Genesis/pkg/logx"
	"github.com/AkibDa/Code-Genesis/pkg/workflow"
)

// Event kinds.
const (
	KindTransition = "transition"
	KindStage      = "stage"
	KindStageError = "stage_error"
	KindRun        = "run"
)

// Event is one line of the log.
type Event struct {
	Time       time.Time     `json:"time"`
	Kind       string        `json:"kind"`
	From       workflow.Node `json:"from,omitempty"`
	To         workflow.Node `json:"to,omitempty"`
	Stage      workflow.Node `json:"stage,omitempty"`
	DurationMS int64         `json:"duration_ms,omitempty"`
	Class      string        `json:"class,omitempty"`
	Result     string        `json:"result,omitempty"`
}

// Writer appends workflow events to events-YYYY-MM-DD.jsonl in a directory.
// It implements workflow.Recorder; write failures are logged, never returned.
type Writer struct {
	logDir      string
	currentFile *os.File
	currentDate string
	closed      bool
	mu          sync.Mutex
	logger      *logx.Logger
	now         func() time.Time
}

// NewWriter creates an event log writer in logDir.
func NewWriter(logDir string) (*Writer, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	w := &Writer{
		logDir: logDir,
		logger: logx.NewLogger("eventlog"),
		now:    time.Now,
	}
	if err := w.rotateIfNeeded(w.now()); err != nil {
		return nil, fmt.Errorf("failed to initialize log file: %w", err)
	}
	return w, nil
}

// Write appends one event, rotating to a new file when the day changes.
func (w *Writer) Write(ev *Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ev.Time.IsZero() {
		ev.Time = w.now().UTC()
	}
	if w.closed {
		return fmt.Errorf("event log %s is closed", w.logDir)
	}
	if err := w.rotateIfNeeded(ev.Time); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	if _, err := w.currentFile.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

func (w *Writer) record(ev *Event) {
	if err := w.Write(ev); err != nil {
		w.logger.Warn("Dropped %s event: %v", ev.Kind, err)
	}
}

// ObserveTransition implements workflow.Recorder.
func (w *Writer) ObserveTransition(from, to workflow.Node) {
	w.record(&Event{Kind: KindTransition, From: from, To: to})
}

// ObserveStage implements workflow.Recorder.
func (w *Writer) ObserveStage(node workflow.Node, duration time.Duration) {
	w.record(&Event{Kind: KindStage, Stage: node, DurationMS: duration.Milliseconds()})
}

// IncStageError implements workflow.Recorder.
func (w *Writer) IncStageError(node workflow.Node, class workflow.ErrorClass) {
	w.record(&Event{Kind: KindStageError, Stage: node, Class: string(class)})
}

// IncRun implements workflow.Recorder.
func (w *Writer) IncRun(result string) {
	w.record(&Event{Kind: KindRun, Result: result})
}

func (w *Writer) rotateIfNeeded(now time.Time) error {
	newDate := now.UTC().Format(time.DateOnly)
	if w.currentFile != nil && w.currentDate == newDate {
		return nil
	}
	return w.rotate(newDate)
}

func (w *Writer) rotate(newDate string) error {
	if w.currentFile != nil {
		if err := w.currentFile.Close(); err != nil {
			return fmt.Errorf("failed to close current log file: %w", err)
		}
	}

	path := filepath.Join(w.logDir, fileName(newDate))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	w.currentFile = file
	w.currentDate = newDate
	return nil
}

// Close closes the current log file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	if w.currentFile != nil {
		err := w.currentFile.Close()
		w.currentFile = nil
		if err != nil {
			return fmt.Errorf("failed to close event log file: %w", err)
		}
	}
	return nil
}

// CurrentLogFile returns the path of the active log file, or "" once closed.
func (w *Writer) CurrentLogFile() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentFile == nil {
		return ""
	}
	return filepath.Join(w.logDir, fileName(w.currentDate))
}

func fileName(date string) string {
	return fmt.Sprintf("events-%s.jsonl", date)
}

// ReadEvents parses every event in a log file.
func ReadEvents(logFilePath string) ([]Event, error) {
	f, err := os.Open(logFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	events := []Event{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for line := 1; scanner.Scan(); line++ {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			return nil, fmt.Errorf("failed to parse event on line %d: %w", line, err)
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	return events, nil
}

// ListLogFiles returns all event log files in the log directory.
func ListLogFiles(logDir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(logDir, "events-*.jsonl"))
	if err != nil {
		return nil, fmt.Errorf("failed to list log files: %w", err)
	}
	return files, nil
}
