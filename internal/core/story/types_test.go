package story

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMetadataRoundTripPreservesUnknownKeys(t *testing.T) {
	in := []byte(`{
		"reconciliation": {"status": "propagated", "source_remediation_id": "4.1", "test_overlap_ratio": 0.97},
		"upstream_ticket": {"url": "https://issues/42", "priority": 3},
		"notes": "hand-written"
	}`)

	var m Metadata
	if err := json.Unmarshal(in, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Reconciliation == nil || m.Reconciliation.Status != ReconciliationPropagated {
		t.Fatalf("reconciliation not parsed: %+v", m.Reconciliation)
	}
	if m.Reconciliation.SourceRemediationID != "4.1" {
		t.Errorf("source = %q, want 4.1", m.Reconciliation.SourceRemediationID)
	}
	if len(m.Extra) != 2 {
		t.Fatalf("extra keys = %d, want 2", len(m.Extra))
	}

	out, err := json.Marshal(&m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]json.RawMessage
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("re-unmarshal: %v", err)
	}
	for _, key := range []string{"reconciliation", "upstream_ticket", "notes"} {
		if _, ok := back[key]; !ok {
			t.Errorf("key %q lost in round trip", key)
		}
	}
}

func TestMetadataUnknownReconciliationStatusSurvivesParse(t *testing.T) {
	// Parsing is lenient; the validation engine decides what is acceptable.
	var m Metadata
	if err := json.Unmarshal([]byte(`{"reconciliation": {"status": "bogus"}}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Reconciliation.Status != ReconciliationStatus("bogus") {
		t.Errorf("status = %q, want bogus", m.Reconciliation.Status)
	}
}

func TestRecordCloneIsDeep(t *testing.T) {
	now := time.Now()
	rec := &Record{
		ID:       "4",
		Type:     TypeFeature,
		Status:   StatusInProgress,
		Children: []string{"4.1"},
		PhaseStatus: map[Phase]Status{
			PhaseDiscovery: StatusCompleted,
		},
		AcceptanceCriteria: []AcceptanceCriterion{
			{Priority: "P0", Text: "works", Tests: []string{"TestWorks"}},
		},
		Advisories: []Advisory{{Severity: SeverityWarning, Category: "traceability", Message: "gap"}},
		Metadata: &Metadata{
			Validation: &ValidationMetadata{TestFiles: []string{"a_test.go"}, LastRunAt: &now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	clone := rec.Clone()
	clone.Children[0] = "9.9"
	clone.PhaseStatus[PhaseDiscovery] = StatusBlocked
	clone.AcceptanceCriteria[0].Tests[0] = "TestOther"
	clone.Advisories[0].Resolved = true
	clone.Metadata.Validation.TestFiles[0] = "b_test.go"

	if rec.Children[0] != "4.1" {
		t.Error("clone shares Children slice")
	}
	if rec.PhaseStatus[PhaseDiscovery] != StatusCompleted {
		t.Error("clone shares PhaseStatus map")
	}
	if rec.AcceptanceCriteria[0].Tests[0] != "TestWorks" {
		t.Error("clone shares criterion Tests slice")
	}
	if rec.Advisories[0].Resolved {
		t.Error("clone shares Advisories slice")
	}
	if rec.Metadata.Validation.TestFiles[0] != "a_test.go" {
		t.Error("clone shares Validation.TestFiles slice")
	}
}

func TestResolved(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusCompleted, true},
		{StatusSuperseded, true},
		{StatusDeprecated, false},
		{StatusBlocked, false},
		{StatusUnassigned, false},
	}
	for _, tt := range tests {
		if got := Resolved(tt.status); got != tt.want {
			t.Errorf("Resolved(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestMoreSevere(t *testing.T) {
	if !MoreSevere(SeverityCritical, SeverityWarning) {
		t.Error("critical should outrank warning")
	}
	if MoreSevere(SeverityInfo, SeverityWarning) {
		t.Error("info should not outrank warning")
	}
	if MoreSevere(AdvisorySeverity("weird"), SeverityInfo) {
		t.Error("unknown severity should rank below info")
	}
}
