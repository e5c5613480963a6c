package render

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Status is the result class of drawing one record.
type Status int

const (
	// StatusDrawn means at least one pixel was written.
	StatusDrawn Status = iota
	// StatusClipped means the record was valid but had no visible position.
	StatusClipped
	// StatusSkipped means the record could not be drawn; see Reason.
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusDrawn:
		return "drawn"
	case StatusClipped:
		return "clipped"
	case StatusSkipped:
		return "skipped"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Reason explains why a record was skipped.
type Reason string

const (
	ReasonUnsupportedGeometry Reason = "unsupported_geometry"
	ReasonInvalidGeometry     Reason = "invalid_geometry"
	ReasonInvalidTile         Reason = "invalid_tile"
	ReasonPanic               Reason = "panic"
)

// Outcome is the tagged result of drawing a single record or tile.
type Outcome struct {
	Status Status
	Reason Reason // set only when Status is StatusSkipped
	Detail string
}

func drawn() Outcome   { return Outcome{Status: StatusDrawn} }
func clipped() Outcome { return Outcome{Status: StatusClipped} }

func skipped(r Reason, format string, args ...any) Outcome {
	return Outcome{Status: StatusSkipped, Reason: r, Detail: fmt.Sprintf(format, args...)}
}

// Stats aggregates the outcomes of one or more partitions.
type Stats struct {
	Records int            `json:"records"`
	Drawn   int            `json:"drawn"`
	Clipped int            `json:"clipped"`
	Skipped int            `json:"skipped"`
	Reasons map[Reason]int `json:"reasons,omitempty"`
}

// Observe counts one outcome.
func (s *Stats) Observe(o Outcome) {
	s.Records++
	switch o.Status {
	case StatusDrawn:
		s.Drawn++
	case StatusClipped:
		s.Clipped++
	case StatusSkipped:
		s.Skipped++
		if s.Reasons == nil {
			s.Reasons = make(map[Reason]int)
		}
		s.Reasons[o.Reason]++
	}
}

// Add folds o into s.
func (s *Stats) Add(o Stats) {
	s.Records += o.Records
	s.Drawn += o.Drawn
	s.Clipped += o.Clipped
	s.Skipped += o.Skipped
	for r, n := range o.Reasons {
		if s.Reasons == nil {
			s.Reasons = make(map[Reason]int)
		}
		s.Reasons[r] += n
	}
}

// String renders the skip reasons in a stable order, e.g.
// "panic=1 unsupported_geometry=3".
func (s Stats) String() string {
	if len(s.Reasons) == 0 {
		return ""
	}
	keys := slices.Sorted(maps.Keys(s.Reasons))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, s.Reasons[k])
	}
	return strings.Join(parts, " ")
}
