// Package overlap contains the pure business logic for comparing test-file
// sets and turning the overlap ratio into a reconciliation mode.
package overlap

// Mode is the reconciliation decision derived from an overlap ratio.
type Mode string

const (
	ModePropagate Mode = "propagate"
	ModeRetest    Mode = "retest"
	ModeNoMatch   Mode = "no_match"
	// ModeSupersede is manual-only and never returned by DetermineMode.
	ModeSupersede Mode = "supersede"
)

// Thresholds for DetermineMode. Ratios at or above PropagateThreshold
// propagate; ratios at or above RetestThreshold but below PropagateThreshold
// retest; anything lower is no match.
const (
	PropagateThreshold = 0.95
	RetestThreshold    = 0.50
)

// Ratio computes |original ∩ new| / |original| with set semantics: order and
// duplicates are irrelevant. An empty original set means nothing was
// required, which is trivially satisfied, so the ratio is 1.0 regardless of
// the new set.
func Ratio(original, new []string) float64 {
	origSet := make(map[string]struct{}, len(original))
	for _, f := range original {
		origSet[f] = struct{}{}
	}
	if len(origSet) == 0 {
		return 1.0
	}
	newSet := make(map[string]struct{}, len(new))
	for _, f := range new {
		newSet[f] = struct{}{}
	}
	matched := 0
	for f := range origSet {
		if _, ok := newSet[f]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(origSet))
}

// DetermineMode maps a ratio in [0,1] to a mode. Pure and total over the
// interval; the threshold boundaries belong to the higher mode.
func DetermineMode(ratio float64) Mode {
	switch {
	case ratio >= PropagateThreshold:
		return ModePropagate
	case ratio >= RetestThreshold:
		return ModeRetest
	default:
		return ModeNoMatch
	}
}
