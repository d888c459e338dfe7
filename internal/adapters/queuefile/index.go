package queuefile

import (
	"fmt"
	"os"
	"strings"

	"github.com/example/sprintq/internal/core/story"
)

// writeIndex regenerates the derived plain-text index next to the sprint
// document. The index exists for human readability only: it is rewritten on
// every save, never read back, and never authoritative. Failure to write it
// is ignored; the JSON document has already been persisted.
func writeIndex(sprintPath string, g *story.Graph) {
	var b strings.Builder
	fmt.Fprintf(&b, "sprint %s [%s]", g.Sprint.ID, g.Sprint.Status)
	if g.Sprint.Branch != "" {
		fmt.Fprintf(&b, " branch=%s", g.Sprint.Branch)
	}
	b.WriteString("\n")
	for _, rec := range g.All() {
		fmt.Fprintf(&b, "%-8s %-12s %-26s %s\n", rec.ID, rec.Status, rec.Type, rec.Title)
	}
	_ = os.WriteFile(indexPath(sprintPath), []byte(b.String()), 0644)
}

func indexPath(sprintPath string) string {
	return strings.TrimSuffix(sprintPath, ".json") + ".index.txt"
}
