package copy

import "fmt"

// SkipRecord names an entity that was not copied and why.
type SkipRecord struct {
	Name   string
	Reason string
}

func (r SkipRecord) String() string {
	return fmt.Sprintf("%s (%s)", r.Name, r.Reason)
}

// Ledger tallies per-entity outcomes across one run. Built and discarded per
// run; no locking needed, the copy is one linear pass.
type Ledger struct {
	FoldersCopied   int
	FoldersFailed   []SkipRecord
	SegmentsCopied  int
	SegmentsSkipped []SkipRecord
	SegmentsFailed  []SkipRecord
	MissingRefs     []string // segments created with unresolvable references
	JourneysCopied  int
	JourneysSkipped []SkipRecord
	JourneysFailed  []SkipRecord
}

// SummaryLines renders the ledger the way the final progress report shows it.
func (l *Ledger) SummaryLines() []string {
	lines := []string{
		fmt.Sprintf("Copied %d folders", l.FoldersCopied),
		fmt.Sprintf("Copied %d segments", l.SegmentsCopied),
	}
	if l.JourneysCopied > 0 {
		lines = append(lines, fmt.Sprintf("Copied %d journeys", l.JourneysCopied))
	}
	appendGroup := func(label string, records []SkipRecord) {
		if len(records) == 0 {
			return
		}
		lines = append(lines, fmt.Sprintf("%s %d:", label, len(records)))
		for _, r := range records {
			lines = append(lines, "  - "+r.String())
		}
	}
	appendGroup("Failed folders", l.FoldersFailed)
	appendGroup("Skipped segments", l.SegmentsSkipped)
	appendGroup("Failed segments", l.SegmentsFailed)
	appendGroup("Skipped journeys", l.JourneysSkipped)
	appendGroup("Failed journeys", l.JourneysFailed)
	if len(l.MissingRefs) > 0 {
		lines = append(lines, fmt.Sprintf("Created with missing references: %d", len(l.MissingRefs)))
		for _, name := range l.MissingRefs {
			lines = append(lines, "  - "+name)
		}
	}
	return lines
}
