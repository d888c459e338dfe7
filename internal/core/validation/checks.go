// Package validation contains the pure business logic for the ordered
// quality checks A-H. Checks evaluate a working copy of a story record and
// apply auto-repairs to it as pure transformations; persistence and
// remediation spawning are the validation service's job.
package validation

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/example/sprintq/internal/core/story"
)

// Check names one of the ordered quality checks.
type Check string

const (
	CheckMetadata     Check = "A" // metadata well-formedness
	CheckCriteria     Check = "B" // acceptance-criteria completeness
	CheckTraceability Check = "C" // requirements traceability
	CheckPassRate     Check = "D" // test pass-rate
	CheckAlignment    Check = "E" // advisory/status alignment
	CheckHierarchy    Check = "F" // hierarchy consistency
	CheckAdvisoryProp Check = "G" // advisory propagation
	CheckDependencies Check = "H" // dependency sanity
)

// CheckStatus is the outcome of a single check.
type CheckStatus string

const (
	StatusPass CheckStatus = "pass"
	StatusFail CheckStatus = "fail"
	StatusSkip CheckStatus = "skip"
)

// Verdict is the overall outcome of a check run.
type Verdict string

const (
	VerdictPass    Verdict = "PASS"
	VerdictBlocked Verdict = "BLOCKED"
)

// Pass-rate requirements for Check D.
const (
	p1RequiredRate = 0.90
)

// CheckResult is the typed outcome of one check.
type CheckResult struct {
	Check     Check       `json:"check"`
	Status    CheckStatus `json:"status"`
	Blocking  bool        `json:"blocking"`
	AutoFixed bool        `json:"auto_fixed"`
	Details   string      `json:"details,omitempty"`
}

// Result is the typed outcome of a full check run.
type Result struct {
	StoryID      string        `json:"story_id"`
	Verdict      Verdict       `json:"verdict"`
	Checks       []CheckResult `json:"checks"`
	FailedChecks []string      `json:"failed_checks,omitempty"` // blocking failures
	AppliedFixes []string      `json:"applied_fixes,omitempty"`
}

// Input provides everything a check run needs. Story is a working copy the
// caller owns; auto-repairs mutate it and the caller persists it (or not)
// transactionally with the result.
type Input struct {
	Story      *story.Record
	Graph      *story.Graph // for hierarchy and advisory-propagation context
	Summary    *story.TestRunSummary
	SkipD      bool   // decided by the skip-logic gate before the run
	SkipDetail string // reason recorded when SkipD is set
	Now        time.Time
}

// Run executes checks A-H in order against the input and returns the
// verdict: PASS when no blocking check fails, BLOCKED otherwise.
func Run(in Input) Result {
	res := Result{StoryID: in.Story.ID, Verdict: VerdictPass}
	add := func(cr CheckResult, fixes ...string) {
		res.Checks = append(res.Checks, cr)
		if cr.Status == StatusFail && cr.Blocking {
			res.FailedChecks = append(res.FailedChecks, string(cr.Check))
			res.Verdict = VerdictBlocked
		}
		res.AppliedFixes = append(res.AppliedFixes, fixes...)
	}

	cr, fixes := checkMetadata(in)
	add(cr, fixes...)
	cr, fixes = checkCriteria(in)
	add(cr, fixes...)
	add(checkTraceability(in))
	add(checkPassRate(in))
	cr, fixes = checkAlignment(in)
	add(cr, fixes...)
	add(checkHierarchy(in))
	cr, fixes = checkAdvisoryPropagation(in)
	add(cr, fixes...)
	add(checkDependencies(in))
	return res
}

// checkMetadata (A) validates the known metadata shapes strictly and
// repairs what can be repaired without judgment.
func checkMetadata(in Input) (CheckResult, []string) {
	rec := in.Story
	var fixes []string

	if !story.ValidType(rec.Type) {
		rec.Type = story.TypeUnknown
		fixes = append(fixes, fmt.Sprintf("%s: coerced unknown type to %q", rec.ID, story.TypeUnknown))
	}
	if rec.Container() && rec.PhaseStatus == nil {
		rec.PhaseStatus = map[story.Phase]story.Status{
			story.PhaseDiscovery:      story.StatusUnassigned,
			story.PhaseImplementation: story.StatusUnassigned,
			story.PhaseTesting:        story.StatusUnassigned,
		}
		fixes = append(fixes, fmt.Sprintf("%s: initialized phase_status", rec.ID))
	}
	if m := rec.Metadata; m != nil && m.Reconciliation != nil {
		rc := m.Reconciliation
		if rc.TestOverlapRatio < 0 {
			rc.TestOverlapRatio = 0
			fixes = append(fixes, fmt.Sprintf("%s: clamped overlap ratio to 0", rec.ID))
		}
		if rc.TestOverlapRatio > 1 {
			rc.TestOverlapRatio = 1
			fixes = append(fixes, fmt.Sprintf("%s: clamped overlap ratio to 1", rec.ID))
		}
		switch rc.Status {
		case story.ReconciliationNone, story.ReconciliationPropagated,
			story.ReconciliationRetest, story.ReconciliationSuperseded:
		default:
			return CheckResult{
				Check: CheckMetadata, Status: StatusFail, Blocking: true,
				Details: fmt.Sprintf("unknown reconciliation status %q", rc.Status),
			}, fixes
		}
	}
	if !story.ValidStatus(rec.Status) {
		// A status value this engine does not understand cannot be safely
		// rewritten; repairing it would guess at intent.
		return CheckResult{
			Check: CheckMetadata, Status: StatusFail, Blocking: true,
			Details: fmt.Sprintf("unknown status %q", rec.Status),
		}, fixes
	}
	return pass(CheckMetadata, fixes), fixes
}

// checkCriteria (B) requires a priority tag on every acceptance criterion.
// Missing or malformed priorities default to P1.
func checkCriteria(in Input) (CheckResult, []string) {
	rec := in.Story
	var fixes []string
	for i := range rec.AcceptanceCriteria {
		ac := &rec.AcceptanceCriteria[i]
		p := strings.ToUpper(strings.TrimSpace(ac.Priority))
		switch p {
		case "P0", "P1", "P2":
			if p != ac.Priority {
				ac.Priority = p
				fixes = append(fixes, fmt.Sprintf("%s: normalized priority on criterion %d", rec.ID, i+1))
			}
		default:
			ac.Priority = "P1"
			fixes = append(fixes, fmt.Sprintf("%s: defaulted missing priority to P1 on criterion %d", rec.ID, i+1))
		}
	}
	return pass(CheckCriteria, fixes), fixes
}

// checkTraceability (C) reports P0 criteria without test coverage. Gaps are
// surfaced as advisories, never repaired.
func checkTraceability(in Input) CheckResult {
	rec := in.Story
	var gaps []int
	for i, ac := range rec.AcceptanceCriteria {
		if ac.Priority == "P0" && len(ac.Tests) == 0 {
			gaps = append(gaps, i+1)
		}
	}
	if len(gaps) == 0 {
		return pass(CheckTraceability, nil)
	}
	msg := fmt.Sprintf("P0 criteria without tests: %v", gaps)
	rec.Advisories = append(rec.Advisories, story.Advisory{
		Severity: story.SeverityWarning,
		Category: "traceability",
		Message:  msg,
	})
	return CheckResult{Check: CheckTraceability, Status: StatusFail, Details: msg}
}

// checkPassRate (D) enforces 100% on tests linked to P0 criteria and at
// least 90% overall for the rest. The skip-logic gate may bypass it.
func checkPassRate(in Input) CheckResult {
	if in.SkipD {
		return CheckResult{Check: CheckPassRate, Status: StatusSkip, Details: in.SkipDetail}
	}
	if in.Summary == nil {
		return CheckResult{
			Check: CheckPassRate, Status: StatusFail, Blocking: true,
			Details: "no test run summary reported",
		}
	}
	failed := make(map[string]bool, len(in.Summary.Failures))
	for _, f := range in.Summary.Failures {
		failed[f] = true
	}
	var p0Failures []string
	for _, ac := range in.Story.AcceptanceCriteria {
		if ac.Priority != "P0" {
			continue
		}
		for _, test := range ac.Tests {
			if failed[test] {
				p0Failures = append(p0Failures, test)
			}
		}
	}
	if len(p0Failures) > 0 {
		sort.Strings(p0Failures)
		return CheckResult{
			Check: CheckPassRate, Status: StatusFail, Blocking: true,
			Details: fmt.Sprintf("P0 tests failing: %s", strings.Join(p0Failures, ", ")),
		}
	}
	if in.Summary.PassRate < p1RequiredRate {
		return CheckResult{
			Check: CheckPassRate, Status: StatusFail, Blocking: true,
			Details: fmt.Sprintf("pass rate %.2f below required %.2f", in.Summary.PassRate, p1RequiredRate),
		}
	}
	return pass(CheckPassRate, nil)
}

// checkAlignment (E) lowers a story's status to match its worst outstanding
// advisory: critical demands blocked, warning rules out completed.
func checkAlignment(in Input) (CheckResult, []string) {
	rec := in.Story
	worst := story.AdvisorySeverity("")
	for _, a := range rec.Advisories {
		if a.Resolved {
			continue
		}
		if story.MoreSevere(a.Severity, worst) {
			worst = a.Severity
		}
	}
	var fixes []string
	switch worst {
	case story.SeverityCritical:
		if rec.Status != story.StatusBlocked {
			fixes = append(fixes, fmt.Sprintf("%s: lowered status %s -> %s (critical advisory outstanding)", rec.ID, rec.Status, story.StatusBlocked))
			rec.Status = story.StatusBlocked
		}
	case story.SeverityWarning:
		if rec.Status == story.StatusCompleted {
			fixes = append(fixes, fmt.Sprintf("%s: lowered status %s -> %s (warning advisory outstanding)", rec.ID, rec.Status, story.StatusInProgress))
			rec.Status = story.StatusInProgress
		}
	}
	return pass(CheckAlignment, fixes), fixes
}

// checkHierarchy (F) verifies the story's parent/child references resolve
// both ways in the graph. Orphaned references block; they cannot be
// repaired without inventing structure.
func checkHierarchy(in Input) CheckResult {
	rec := in.Story
	g := in.Graph
	var problems []string
	if rec.Parent != "" {
		parent := g.Get(rec.Parent)
		switch {
		case parent == nil:
			problems = append(problems, fmt.Sprintf("parent %s missing", rec.Parent))
		case !containsID(parent.Children, rec.ID):
			problems = append(problems, fmt.Sprintf("parent %s does not list %s as child", rec.Parent, rec.ID))
		}
	}
	for _, child := range rec.Children {
		c := g.Get(child)
		switch {
		case c == nil:
			problems = append(problems, fmt.Sprintf("child %s missing", child))
		case c.Parent != rec.ID:
			problems = append(problems, fmt.Sprintf("child %s has parent %q", child, c.Parent))
		}
	}
	if len(problems) > 0 {
		return CheckResult{
			Check: CheckHierarchy, Status: StatusFail, Blocking: true,
			Details: strings.Join(problems, "; "),
		}
	}
	return pass(CheckHierarchy, nil)
}

// checkAdvisoryPropagation (G) copies unresolved child advisories onto the
// story, tagged with their source, skipping duplicates.
func checkAdvisoryPropagation(in Input) (CheckResult, []string) {
	rec := in.Story
	seen := make(map[string]bool, len(rec.Advisories))
	for _, a := range rec.Advisories {
		seen[advisoryKey(a)] = true
	}
	var fixes []string
	for _, childID := range rec.Children {
		child := in.Graph.Get(childID)
		if child == nil {
			continue // F reports this
		}
		for _, a := range child.Advisories {
			if a.Resolved {
				continue
			}
			copied := a
			copied.Source = childID
			if seen[advisoryKey(copied)] {
				continue
			}
			seen[advisoryKey(copied)] = true
			rec.Advisories = append(rec.Advisories, copied)
			fixes = append(fixes, fmt.Sprintf("%s: copied %s advisory from child %s", rec.ID, a.Severity, childID))
		}
	}
	return pass(CheckAdvisoryProp, fixes), fixes
}

// checkDependencies (H) surfaces dependency oddities. Informational only.
func checkDependencies(in Input) CheckResult {
	rec := in.Story
	var notes []string
	seen := make(map[string]bool, len(rec.DependsOn))
	for _, dep := range rec.DependsOn {
		if dep == rec.ID {
			notes = append(notes, "depends on itself")
		}
		if seen[dep] {
			notes = append(notes, fmt.Sprintf("duplicate dependency %s", dep))
		}
		seen[dep] = true
		if d := in.Graph.Get(dep); d != nil && story.Resolved(rec.Status) && !story.Resolved(d.Status) {
			notes = append(notes, fmt.Sprintf("resolved but dependency %s is %s", dep, d.Status))
		}
	}
	if len(notes) > 0 {
		return CheckResult{Check: CheckDependencies, Status: StatusFail, Details: strings.Join(notes, "; ")}
	}
	return pass(CheckDependencies, nil)
}

func pass(c Check, fixes []string) CheckResult {
	return CheckResult{Check: c, Status: StatusPass, AutoFixed: len(fixes) > 0}
}

func advisoryKey(a story.Advisory) string {
	return string(a.Severity) + "|" + a.Category + "|" + a.Message + "|" + a.Source
}

func containsID(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
