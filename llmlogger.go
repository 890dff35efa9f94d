package learningassistant

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LLMLogger records every assistant exchange of one sitting in its own file.
// A nil *LLMLogger discards everything.
type LLMLogger struct {
	file      *os.File
	mu        sync.Mutex
	sessionID string
}

// NewLLMLogger creates dir/<sessionID>.log and writes the sitting header.
func NewLLMLogger(dir, sessionID string, total int) (*LLMLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s.log", sessionID))
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	logger := &LLMLogger{
		file:      file,
		sessionID: sessionID,
	}
	logger.Logf("=== Sitting Log ===\n")
	logger.Logf("Session ID: %s\n", sessionID)
	logger.Logf("Questions: %d\n", total)
	logger.Logf("Started: %s\n", time.Now().Format(time.RFC3339))
	logger.Logf("===================\n\n")
	return logger, nil
}

// Logf writes a formatted log entry with timestamp
func (ll *LLMLogger) Logf(format string, args ...interface{}) {
	if ll == nil {
		return
	}
	ll.mu.Lock()
	defer ll.mu.Unlock()
	ll.writef(format, args...)
}

func (ll *LLMLogger) writef(format string, args ...interface{}) {
	if ll.file == nil {
		return
	}
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Fprintf(ll.file, "[%s] %s", timestamp, fmt.Sprintf(format, args...))
	ll.file.Sync()
}

// LogLLMRequest logs an LLM request
func (ll *LLMLogger) LogLLMRequest(module, prompt string) {
	ll.Logf("=== LLM REQUEST (%s) ===\n%s\n\n", module, prompt)
}

// LogLLMResponse logs an LLM response
func (ll *LLMLogger) LogLLMResponse(module, response string) {
	ll.Logf("=== LLM RESPONSE (%s) ===\n%s\n\n", module, response)
}

// LogAdvisory records the outcome of a cross-check for question number n.
func (ll *LLMLogger) LogAdvisory(n int, a Advisory) {
	if !a.Available {
		ll.Logf("Question %d: advisory unavailable - %s\n", n, a.Error)
		return
	}
	ll.Logf("Question %d: assistant proposed %s, answer %s (%s)\n", n, a.Proposed, a.GroundTruth, a.Label())
}

// LogVerdict records a graded submission.
func (ll *LLMLogger) LogVerdict(n int, v Verdict) {
	ll.Logf("Question %d: %s - selected %s, expected %s\n", n, v.Outcome, v.Selection, v.GroundTruth)
}

// Close closes the log file
func (ll *LLMLogger) Close() error {
	if ll == nil {
		return nil
	}
	ll.mu.Lock()
	defer ll.mu.Unlock()

	if ll.file == nil {
		return nil
	}
	ll.writef("=== Sitting Closed: %s ===\n", time.Now().Format(time.RFC3339))
	err := ll.file.Close()
	ll.file = nil
	return err
}
