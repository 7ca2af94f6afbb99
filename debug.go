package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DebugLogger is the unified component-tagged logger. Console output is
// always on; file logging is async so the render loop never blocks on
// disk.
type DebugLogger struct {
	enabled       bool
	baseDir       string
	mu            sync.Mutex
	file          *os.File
	recent        []DebugMessage
	maxRecent     int
	writeQueue    chan string
	stopWorker    chan bool
	workerStopped sync.WaitGroup
}

type DebugMessage struct {
	Timestamp time.Time
	Component string
	Message   string
}

// NewDebugLogger creates the unified debug logger. When enabled, each
// session writes to its own timestamped file under /tmp/mojinoyukue.
func NewDebugLogger(enabled bool) *DebugLogger {
	baseDir := "/tmp/mojinoyukue"
	dl := &DebugLogger{
		enabled:    enabled,
		baseDir:    baseDir,
		recent:     make([]DebugMessage, 0),
		maxRecent:  50,
		writeQueue: make(chan string, 100),
		stopWorker: make(chan bool, 1),
	}
	if enabled {
		if err := os.MkdirAll(baseDir, 0755); err != nil {
			fmt.Printf("[DEBUG_LOGGER] Failed to create debug directory: %v\n", err)
			dl.enabled = false
			return dl
		}
		name := filepath.Join(baseDir, "session-"+time.Now().Format("20060102-150405")+".log")
		file, err := os.Create(name)
		if err != nil {
			fmt.Printf("[DEBUG_LOGGER] Failed to create debug log: %v\n", err)
			dl.enabled = false
			return dl
		}
		dl.file = file
		dl.workerStopped.Add(1)
		go dl.fileWriteWorker()
	}
	return dl
}

// debugMsg logs one component-tagged message.
func (dl *DebugLogger) debugMsg(component, message string) {
	timestamp := time.Now()
	fmt.Printf("[%s][%s] %s\n", timestamp.Format("15:04:05.000"), component, message)

	dl.mu.Lock()
	dl.recent = append(dl.recent, DebugMessage{Timestamp: timestamp, Component: component, Message: message})
	if len(dl.recent) > dl.maxRecent {
		dl.recent = dl.recent[1:]
	}
	enabled := dl.enabled
	dl.mu.Unlock()

	if !enabled {
		return
	}
	line := fmt.Sprintf("[%s][%s] %s\n", timestamp.Format("15:04:05.000"), component, message)
	select {
	case dl.writeQueue <- line:
	default:
		// Queue full, drop rather than block the pipeline.
	}
}

// Recent returns a copy of the last messages for the status overlay.
func (dl *DebugLogger) Recent() []DebugMessage {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	out := make([]DebugMessage, len(dl.recent))
	copy(out, dl.recent)
	return out
}

func (dl *DebugLogger) fileWriteWorker() {
	defer dl.workerStopped.Done()
	for {
		select {
		case line := <-dl.writeQueue:
			dl.file.WriteString(line)
		case <-dl.stopWorker:
			for {
				select {
				case line := <-dl.writeQueue:
					dl.file.WriteString(line)
				default:
					return
				}
			}
		}
	}
}

// Stop flushes and closes the debug log.
func (dl *DebugLogger) Stop() {
	if !dl.enabled {
		return
	}
	dl.stopWorker <- true
	dl.workerStopped.Wait()
	dl.file.Close()
}
