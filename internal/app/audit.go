// Package app implements the primary ports by orchestrating the pure core
// against the secondary ports.
package app

import (
	"fmt"
	"os"

	"github.com/example/sprintq/internal/ports/secondary"
)

// appendAudit writes an audit entry, degrading to a stderr warning on
// failure. An unavailable audit log never blocks the decision being logged.
func appendAudit(sink secondary.AuditSink, entry secondary.AuditEntry) {
	if sink == nil {
		return
	}
	if err := sink.Append(entry); err != nil {
		fmt.Fprintf(os.Stderr, "warning: audit log unavailable: %v\n", err)
	}
}
