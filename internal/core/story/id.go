package story

import (
	"fmt"
	"strconv"
	"strings"
)

// Story IDs are hierarchical dotted strings. "4" is a top-level story,
// "4.1" its first remediation child, "4.t" its testing phase record and
// "-4.t" the validation-testing record targeting story "4".

// ValidationTestingID returns the id of the validation-testing record for a
// story, e.g. "4" -> "-4.t".
func ValidationTestingID(storyID string) string {
	return "-" + storyID + ".t"
}

// IsValidationTestingID reports whether id names a validation-testing record.
func IsValidationTestingID(id string) bool {
	return strings.HasPrefix(id, "-") && strings.HasSuffix(id, ".t")
}

// ValidationTarget extracts the target story id from a validation-testing
// record id, e.g. "-4.t" -> "4". Returns an error for other shapes.
func ValidationTarget(id string) (string, error) {
	if !IsValidationTestingID(id) {
		return "", fmt.Errorf("%q is not a validation-testing id", id)
	}
	return strings.TrimSuffix(strings.TrimPrefix(id, "-"), ".t"), nil
}

// RemediationChildID returns the id for the nth remediation child of a
// story, e.g. ("4", 1) -> "4.1".
func RemediationChildID(storyID string, n int) string {
	return fmt.Sprintf("%s.%d", storyID, n)
}

// NextRemediationID returns the first unused remediation child id for a
// story given its existing children.
func NextRemediationID(storyID string, children []string) string {
	used := make(map[string]bool, len(children))
	for _, c := range children {
		used[c] = true
	}
	for n := 1; ; n++ {
		id := RemediationChildID(storyID, n)
		if !used[id] {
			return id
		}
	}
}

// CompareIDs orders story ids segment by segment, numerically where both
// segments are numeric so that "10" sorts after "9" and "4.2" after "4.1".
// A leading "-" (validation records) sorts after the plain id it targets.
func CompareIDs(a, b string) int {
	negA := strings.HasPrefix(a, "-")
	negB := strings.HasPrefix(b, "-")
	sa := strings.Split(strings.TrimPrefix(a, "-"), ".")
	sb := strings.Split(strings.TrimPrefix(b, "-"), ".")
	for i := 0; i < len(sa) && i < len(sb); i++ {
		if c := compareSegment(sa[i], sb[i]); c != 0 {
			return c
		}
	}
	if len(sa) != len(sb) {
		if len(sa) < len(sb) {
			return -1
		}
		return 1
	}
	switch {
	case negA == negB:
		return 0
	case negB:
		return -1
	default:
		return 1
	}
}

func compareSegment(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}
