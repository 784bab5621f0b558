// Package completeness evaluates whether a series' instances account for
// every slot the modality told us to expect.
package completeness

import (
	"strconv"

	"github.com/kestrelhealth/pacsindex/catalog"
)

// ChildIndex is one instance's IndexInSeries metadata as seen by the
// evaluator: Present is false when the instance has no such metadata at
// all, as opposed to having a value that fails to parse.
type ChildIndex struct {
	Value   string
	Present bool
}

// Evaluate derives a SeriesStatus from a series' ExpectedNumberOfInstances
// metadata (absent means the modality never declared a count) and the
// Instance_IndexInSeries metadata of each of its instances.
//
// A child that lacks the metadata, or whose value doesn't parse, makes the
// whole series Unknown rather than Inconsistent or silently Missing: an
// instance with no index at all says nothing about whether the series is
// complete, it just means the series can't be evaluated yet.
//
// The check tracks which 1-based indices have actually been seen in a set
// sized to the number of instances that exist, never to the number
// expected: a series that declares ExpectedNumberOfInstances=100000 but has
// ingested three instances allocates a three-element set, not a
// hundred-thousand-element one.
func Evaluate(expected string, hasExpected bool, children []ChildIndex) catalog.SeriesStatus {
	if !hasExpected {
		return catalog.StatusUnknown
	}

	want, err := strconv.Atoi(expected)
	if err != nil || want < 0 {
		return catalog.StatusUnknown
	}

	seen := make(map[int]struct{}, len(children))
	inconsistent := false

	for _, child := range children {
		if !child.Present {
			return catalog.StatusUnknown
		}
		idx, err := strconv.Atoi(child.Value)
		if err != nil {
			return catalog.StatusUnknown
		}
		if idx <= 0 || idx > want {
			inconsistent = true
			continue
		}
		if _, dup := seen[idx]; dup {
			inconsistent = true
			continue
		}
		seen[idx] = struct{}{}
	}

	switch {
	case inconsistent:
		return catalog.StatusInconsistent
	case len(seen) == want:
		return catalog.StatusComplete
	default:
		return catalog.StatusMissing
	}
}
