package transcode

import (
	"maps"
	"slices"

	"github.com/samber/lo"
)

// SkippedEntry is an entry left out of the output archive.
type SkippedEntry struct {
	Name   string
	Reason error
}

// Summary describes a transcoding run.
type Summary struct {
	Entries     int
	Transformed int
	Passthrough int
	Skipped     []SkippedEntry
	// Removed counts removed elements by tag.
	Removed map[string]int
}

func newSummary() Summary {
	return Summary{Removed: make(map[string]int)}
}

func (s *Summary) skip(name string, reason error) {
	s.Skipped = append(s.Skipped, SkippedEntry{Name: name, Reason: reason})
}

// Written is the number of entries present in the output archive.
func (s Summary) Written() int {
	return s.Transformed + s.Passthrough
}

// TotalRemoved is the number of removed elements across all tags.
func (s Summary) TotalRemoved() int {
	return lo.Sum(slices.Collect(maps.Values(s.Removed)))
}

// SkippedNames lists the skipped entry names in archive order.
func (s Summary) SkippedNames() []string {
	return lo.Map(s.Skipped, func(e SkippedEntry, _ int) string {
		return e.Name
	})
}
