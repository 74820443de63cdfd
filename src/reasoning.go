package app

import "strings"

// reasoningProfile carries the two labels that differ between agent
// families. The accumulation algorithm itself is shared.
type reasoningProfile struct {
	ToolName  string
	LogPrefix string
}

// reasoningSegment is one contiguous block of thinking text. Once Done is
// set the segment is frozen; later fragments open a new segment.
type reasoningSegment struct {
	Text string
	Tool string
	Done bool
}

// reasoningAccumulator turns incremental thinking deltas into discrete
// completed segments. The caller delivers fragments in arrival order; the
// accumulator never reorders.
type reasoningAccumulator struct {
	profile   reasoningProfile
	current   *strings.Builder
	completed []reasoningSegment
}

func newReasoningAccumulator(profile reasoningProfile) *reasoningAccumulator {
	return &reasoningAccumulator{profile: profile}
}

// ProcessInput appends fragment to the open segment, opening one if needed.
func (a *reasoningAccumulator) ProcessInput(fragment string) {
	if a.current == nil {
		a.current = &strings.Builder{}
	}
	a.current.WriteString(fragment)
}

// Complete seals the open segment with the accumulated text. Returns false
// when no segment was open: a completion signal with nothing to complete is
// a no-op, not an error.
func (a *reasoningAccumulator) Complete() bool {
	if a.current == nil {
		return false
	}
	a.seal(a.current.String())
	return true
}

// CompleteWith seals the open segment, replacing the accumulated text with
// finalText. Agents that deliver the full text on completion rather than
// only deltas use this path.
func (a *reasoningAccumulator) CompleteWith(finalText string) bool {
	if a.current == nil {
		return false
	}
	a.seal(finalText)
	return true
}

func (a *reasoningAccumulator) seal(text string) {
	seg := reasoningSegment{Text: text, Done: true}
	if a.isToolInvocation(text) {
		seg.Tool = a.profile.ToolName
	}
	a.completed = append(a.completed, seg)
	a.current = nil
}

// isToolInvocation recognizes the agent family's reasoning tool-call shape,
// e.g. "Reasoning(...)", for telemetry labeling only.
func (a *reasoningAccumulator) isToolInvocation(text string) bool {
	if a.profile.ToolName == "" {
		return false
	}
	trimmed := strings.TrimSpace(text)
	return strings.HasPrefix(trimmed, a.profile.ToolName+"(")
}

// Open reports whether a segment is currently accumulating.
func (a *reasoningAccumulator) Open() bool {
	return a.current != nil
}

// Pending returns the text accumulated so far in the open segment.
func (a *reasoningAccumulator) Pending() string {
	if a.current == nil {
		return ""
	}
	return a.current.String()
}

// Segments returns the completed segments in completion order.
func (a *reasoningAccumulator) Segments() []reasoningSegment {
	return a.completed
}
