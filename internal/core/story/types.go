// Package story contains the pure business logic for story records.
// This is part of the Functional Core - no I/O, only pure functions
// and value types shared by the queue store and the engines.
package story

import (
	"encoding/json"
	"errors"
	"time"
)

// Status represents the lifecycle state of a story.
type Status string

const (
	StatusUnassigned Status = "unassigned"
	StatusInProgress Status = "in_progress"
	StatusBlocked    Status = "blocked"
	StatusCompleted  Status = "completed"
	StatusSuperseded Status = "superseded"
	StatusDeprecated Status = "deprecated"
)

// Type classifies a story within the sprint.
type Type string

const (
	TypeFeature                  Type = "feature"
	TypeDiscovery                Type = "discovery"
	TypeImplementation           Type = "implementation"
	TypeTesting                  Type = "testing"
	TypeRemediation              Type = "remediation"
	TypeValidationDiscovery      Type = "validation_discovery"
	TypeValidationImplementation Type = "validation_implementation"
	TypeValidationTesting        Type = "validation_testing"
	TypeUnknown                  Type = "unknown"
)

// Phase is one of the three execution phases a container story moves through.
type Phase string

const (
	PhaseDiscovery      Phase = "discovery"
	PhaseImplementation Phase = "implementation"
	PhaseTesting        Phase = "testing"
)

// Sentinel errors shared across the queue store and the engines.
var (
	ErrStoryNotFound       = errors.New("story not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrSerialization       = errors.New("sprint serialization failed")
	ErrOverlapInputMissing = errors.New("overlap input missing")
)

// ValidStatus reports whether s is a known status value.
func ValidStatus(s Status) bool {
	switch s {
	case StatusUnassigned, StatusInProgress, StatusBlocked,
		StatusCompleted, StatusSuperseded, StatusDeprecated:
		return true
	}
	return false
}

// ValidType reports whether t is a known story type.
func ValidType(t Type) bool {
	switch t {
	case TypeFeature, TypeDiscovery, TypeImplementation, TypeTesting,
		TypeRemediation, TypeValidationDiscovery,
		TypeValidationImplementation, TypeValidationTesting, TypeUnknown:
		return true
	}
	return false
}

// Resolved reports whether a status counts as resolved for dependency and
// propagation purposes.
func Resolved(s Status) bool {
	return s == StatusCompleted || s == StatusSuperseded
}

// AdvisorySeverity orders advisory severities from least to most severe.
type AdvisorySeverity string

const (
	SeverityInfo     AdvisorySeverity = "info"
	SeverityWarning  AdvisorySeverity = "warning"
	SeverityCritical AdvisorySeverity = "critical"
)

// severityRank maps severities to a comparable rank. Unknown severities
// rank below info so they never force a status change.
func severityRank(s AdvisorySeverity) int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityCritical:
		return 3
	}
	return 0
}

// MoreSevere reports whether a is strictly more severe than b.
func MoreSevere(a, b AdvisorySeverity) bool {
	return severityRank(a) > severityRank(b)
}

// Advisory is a non-blocking finding attached to a story.
type Advisory struct {
	Severity AdvisorySeverity `json:"severity"`
	Category string           `json:"category"`
	Message  string           `json:"message"`
	Source   string           `json:"source,omitempty"` // story id the advisory was copied from
	Resolved bool             `json:"resolved,omitempty"`
}

// AcceptanceCriterion is a structured acceptance criterion. Markdown
// authoring lives outside this core; checks B, C and D consume this form.
type AcceptanceCriterion struct {
	Priority string   `json:"priority"` // P0, P1, P2
	Text     string   `json:"text"`
	Checked  bool     `json:"checked"`
	Tests    []string `json:"tests,omitempty"` // test identifiers covering this criterion
}

// Record is the canonical unit-of-work representation.
type Record struct {
	ID                 string                `json:"id"`
	Type               Type                  `json:"type"`
	Status             Status                `json:"status"`
	Title              string                `json:"title"`
	File               string                `json:"file,omitempty"`
	Parent             string                `json:"parent,omitempty"`
	Children           []string              `json:"children,omitempty"`
	DependsOn          []string              `json:"depends_on,omitempty"`
	Blocks             []string              `json:"blocks,omitempty"`
	PhaseStatus        map[Phase]Status      `json:"phase_status,omitempty"` // containers only
	AcceptanceCriteria []AcceptanceCriterion `json:"acceptance_criteria,omitempty"`
	Metadata           *Metadata             `json:"metadata,omitempty"`
	Advisories         []Advisory            `json:"advisories,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
	CompletedAt        *time.Time            `json:"completed_at,omitempty"`
}

// Container reports whether the record has children whose statuses roll up.
func (r *Record) Container() bool {
	return len(r.Children) > 0
}

// Clone returns a deep copy of the record. Auto-repair transforms operate on
// copies so a failed check run never leaves a half-mutated record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Children = append([]string(nil), r.Children...)
	c.DependsOn = append([]string(nil), r.DependsOn...)
	c.Blocks = append([]string(nil), r.Blocks...)
	c.Advisories = append([]Advisory(nil), r.Advisories...)
	if r.PhaseStatus != nil {
		c.PhaseStatus = make(map[Phase]Status, len(r.PhaseStatus))
		for k, v := range r.PhaseStatus {
			c.PhaseStatus[k] = v
		}
	}
	if r.AcceptanceCriteria != nil {
		c.AcceptanceCriteria = make([]AcceptanceCriterion, len(r.AcceptanceCriteria))
		for i, ac := range r.AcceptanceCriteria {
			c.AcceptanceCriteria[i] = ac
			c.AcceptanceCriteria[i].Tests = append([]string(nil), ac.Tests...)
		}
	}
	c.Metadata = r.Metadata.Clone()
	return &c
}

// Sprint holds the sprint-level fields of the persisted document.
type Sprint struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Branch string `json:"branch,omitempty"`
}

// Document is the persisted shape: one JSON document per sprint.
type Document struct {
	Sprint  Sprint    `json:"sprint"`
	Stories []*Record `json:"stories"`
}

// ReconciliationStatus enumerates the terminal reconciliation states stored
// on a validation-testing record.
type ReconciliationStatus string

const (
	ReconciliationNone       ReconciliationStatus = "none"
	ReconciliationPropagated ReconciliationStatus = "propagated"
	ReconciliationRetest     ReconciliationStatus = "retest_unblocked"
	ReconciliationSuperseded ReconciliationStatus = "superseded"
)

// ReconciliationMetadata records how a blocked validation was resolved.
type ReconciliationMetadata struct {
	Status              ReconciliationStatus `json:"status"`
	SourceRemediationID string               `json:"source_remediation_id,omitempty"`
	TargetValidationID  string               `json:"target_validation_id,omitempty"`
	TestOverlapRatio    float64              `json:"test_overlap_ratio,omitempty"`
	PassRate            float64              `json:"pass_rate,omitempty"`
	NeedsRetest         bool                 `json:"needs_retest,omitempty"`
	Reason              string               `json:"reason,omitempty"`
	AppliedAt           *time.Time           `json:"applied_at,omitempty"`
}

// TestFailureMetadata is carried by a remediation story: which tests failed
// on the story it was spawned to fix.
type TestFailureMetadata struct {
	OriginalStoryID string    `json:"original_story_id"`
	FailedTests     []string  `json:"failed_tests,omitempty"`
	PassRate        float64   `json:"pass_rate"`
	Total           int       `json:"total"`
	Failed          int       `json:"failed"`
	RecordedAt      time.Time `json:"recorded_at"`
}

// ValidationMetadata records the outcome of the most recent check run and
// the test-file set the run was based on. The test-file set is what the
// reconciliation engine later compares remediation evidence against.
type ValidationMetadata struct {
	TestFiles    []string   `json:"test_files,omitempty"`
	PassRate     float64    `json:"pass_rate,omitempty"`
	FailedChecks []string   `json:"failed_checks,omitempty"`
	AppliedFixes []string   `json:"applied_fixes,omitempty"`
	LastRunAt    *time.Time `json:"last_run_at,omitempty"`
}

// Metadata is the open metadata map modeled as a tagged union of known
// sub-shapes plus a pass-through bag for keys this engine does not interpret.
// Known shapes are validated strictly; unknown keys survive a round trip
// untouched.
type Metadata struct {
	Reconciliation *ReconciliationMetadata `json:"-"`
	TestFailure    *TestFailureMetadata    `json:"-"`
	Validation     *ValidationMetadata     `json:"-"`

	// Extra holds unrecognized keys verbatim for forward compatibility.
	Extra map[string]json.RawMessage `json:"-"`
}

const (
	metaKeyReconciliation = "reconciliation"
	metaKeyTestFailure    = "test_failure"
	metaKeyValidation     = "validation"
)

// MarshalJSON flattens known sub-shapes and pass-through keys into one map.
func (m *Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Extra)+3)
	for k, v := range m.Extra {
		out[k] = v
	}
	put := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		out[key] = b
		return nil
	}
	if m.Reconciliation != nil {
		if err := put(metaKeyReconciliation, m.Reconciliation); err != nil {
			return nil, err
		}
	}
	if m.TestFailure != nil {
		if err := put(metaKeyTestFailure, m.TestFailure); err != nil {
			return nil, err
		}
	}
	if m.Validation != nil {
		if err := put(metaKeyValidation, m.Validation); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits known keys into typed sub-shapes and keeps the rest.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if b, ok := raw[metaKeyReconciliation]; ok {
		m.Reconciliation = &ReconciliationMetadata{}
		if err := json.Unmarshal(b, m.Reconciliation); err != nil {
			return err
		}
		delete(raw, metaKeyReconciliation)
	}
	if b, ok := raw[metaKeyTestFailure]; ok {
		m.TestFailure = &TestFailureMetadata{}
		if err := json.Unmarshal(b, m.TestFailure); err != nil {
			return err
		}
		delete(raw, metaKeyTestFailure)
	}
	if b, ok := raw[metaKeyValidation]; ok {
		m.Validation = &ValidationMetadata{}
		if err := json.Unmarshal(b, m.Validation); err != nil {
			return err
		}
		delete(raw, metaKeyValidation)
	}
	if len(raw) > 0 {
		m.Extra = raw
	}
	return nil
}

// Clone returns a deep copy of the metadata.
func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	c := &Metadata{}
	if m.Reconciliation != nil {
		rc := *m.Reconciliation
		c.Reconciliation = &rc
	}
	if m.TestFailure != nil {
		tf := *m.TestFailure
		tf.FailedTests = append([]string(nil), m.TestFailure.FailedTests...)
		c.TestFailure = &tf
	}
	if m.Validation != nil {
		v := *m.Validation
		v.TestFiles = append([]string(nil), m.Validation.TestFiles...)
		v.FailedChecks = append([]string(nil), m.Validation.FailedChecks...)
		v.AppliedFixes = append([]string(nil), m.Validation.AppliedFixes...)
		c.Validation = &v
	}
	if m.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(m.Extra))
		for k, v := range m.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return c
}

// EnsureMetadata returns the record's metadata, allocating it if needed.
func (r *Record) EnsureMetadata() *Metadata {
	if r.Metadata == nil {
		r.Metadata = &Metadata{}
	}
	return r.Metadata
}

// TestRunSummary is the structured result an external test runner produces.
// Raw runner output is never parsed by this core.
type TestRunSummary struct {
	Total         int      `json:"total"`
	Passed        int      `json:"passed"`
	Failed        int      `json:"failed"`
	PassRate      float64  `json:"pass_rate"`
	TestFilePaths []string `json:"test_file_paths"`
	Failures      []string `json:"failures,omitempty"` // failing test identifiers
}
