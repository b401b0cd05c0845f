package changeset

import (
	"sort"
	"strings"
)

// StackEvent is one describe-stack-events record.
type StackEvent struct {
	EventID      string
	Timestamp    int64
	LogicalID    string
	PhysicalID   string
	ResourceType string
	Status       string
	Reason       string
	StackID      string
}

// IsStackLevel reports whether this event describes the stack resource
// itself rather than one of its members.
func (e StackEvent) IsStackLevel() bool {
	return e.PhysicalID == e.StackID
}

// IsInitialMarker reports whether this is the synthetic first event a
// freshly started tail should resume from: the stack-level event whose
// reason is "User Initiated".
func (e StackEvent) IsInitialMarker() bool {
	return e.IsStackLevel() && e.Reason == "User Initiated"
}

const (
	colorPurple = "\x1b[35m"
	colorBold   = "\x1b[1m"
)

// Color returns the ANSI colour this event should be printed in:
// FAILED/ROLLBACK_* red, other ROLLBACK purple, IN_PROGRESS yellow,
// COMPLETE green.
func (e StackEvent) Color() string {
	status := e.Status
	switch {
	case strings.Contains(status, "FAILED"), strings.HasPrefix(status, "ROLLBACK_"):
		return colorRed
	case strings.Contains(status, "ROLLBACK"):
		return colorPurple
	case strings.Contains(status, "IN_PROGRESS"):
		return colorYellow
	case strings.Contains(status, "COMPLETE"):
		return colorGreen
	default:
		return colorReset
	}
}

// Render formats the event for the tailer's output stream.
func (e StackEvent) Render() string {
	prefix := ""
	if e.IsStackLevel() {
		prefix = colorBold
	}
	return prefix + e.Color() + e.LogicalID + " " + e.Status + colorReset
}

// Tailer resumes a stack-events stream from the last seen event id across
// successive waiter polls.
type Tailer struct {
	stackID    string
	lastSeenID string
	started    bool
}

// NewTailer builds a Tailer for the given stack id.
func NewTailer(stackID string) *Tailer {
	return &Tailer{stackID: stackID}
}

// Poll accepts the full current event list from one describe-stack-events
// call (assumed to be returned newest-first, as the AWS API does) and
// returns the events new since the last poll, in chronological order.
//
// Missing-stack errors on the first poll are the caller's responsibility to
// swallow silently; Poll itself only orders and filters events it is given.
func (t *Tailer) Poll(events []StackEvent) []StackEvent {
	if !t.started {
		t.started = true
		if marker := findInitialMarker(events, t.stackID); marker != "" {
			t.lastSeenID = marker
		} else if len(events) > 0 {
			t.lastSeenID = events[0].EventID
			return nil
		}
	}

	var fresh []StackEvent
	for _, e := range events {
		if e.EventID == t.lastSeenID {
			break
		}
		fresh = append(fresh, e)
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		return fresh[i].Timestamp < fresh[j].Timestamp
	})

	if len(events) > 0 {
		t.lastSeenID = events[0].EventID
	}

	return fresh
}

func findInitialMarker(events []StackEvent, stackID string) string {
	for _, e := range events {
		if e.PhysicalID == stackID && e.Reason == "User Initiated" {
			return e.EventID
		}
	}
	return ""
}
