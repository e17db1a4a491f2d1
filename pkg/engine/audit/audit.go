// Package audit appends one line per applied mutation to a local log file.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/DrSkyle/cloudsweep/pkg/engine"
)

// Log implements engine.Auditor.
type Log struct {
	Path string
	Now  func() time.Time

	mu sync.Mutex
}

func NewLog(path string) *Log {
	return &Log{Path: path, Now: time.Now}
}

// DefaultPath is ~/.cloudsweep/audit.log.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cloudsweep", "audit.log"), nil
}

// Record writes one entry. Format:
// [DATE] delete vol-123 (AWS::EC2::Volume) - Ref: vol-123 - Reason: ...
func (l *Log) Record(ctx context.Context, o engine.ActionOutcome) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.Path), 0755); err != nil {
		return fmt.Errorf("failed to create audit directory: %w", err)
	}
	f, err := os.OpenFile(l.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	entry := fmt.Sprintf("[%s] %s %s (%s) - Ref: %s - Reason: %s\n",
		now().UTC().Format(time.RFC3339),
		o.Action,
		o.ID,
		o.Kind,
		o.Ref,
		o.Reason,
	)
	_, err = f.WriteString(entry)
	return err
}
