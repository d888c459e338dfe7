// Package auditlog implements the append-only audit sink as
// newline-delimited JSON, one entry per line. Entries are never rewritten.
package auditlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/sprintq/internal/ports/secondary"
)

// Appender implements secondary.AuditSink over an NDJSON file.
type Appender struct {
	path string
}

// New creates an appender for the audit log at path.
func New(path string) *Appender {
	return &Appender{path: path}
}

// Append writes one entry as a single JSON line. The file is opened in
// append mode on every call so a long-lived process never holds it open.
func (a *Appender) Append(entry secondary.AuditEntry) error {
	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return fmt.Errorf("failed to create audit log dir: %w", err)
	}
	f, err := os.OpenFile(a.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(entry); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// Ensure Appender implements the sink port.
var _ secondary.AuditSink = (*Appender)(nil)
