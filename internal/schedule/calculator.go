// Package schedule places VOD assets onto a channel timeline without gaps or
// overlaps and keeps that timeline contiguous when anything upstream of it
// changes.
package schedule

import (
	"time"

	"github.com/lumen-tv/lumen/internal/models"
)

// Insertion is the computed placement for a new schedule entry.
type Insertion struct {
	ScheduledStart time.Time
	ScheduledEnd   time.Time
	Position       int
}

// ComputeInsertion calculates back-to-back placement for a new entry.
// This is a pure function with no I/O - the service fetches the channel,
// asset, latest entry and position ceiling and passes them in.
//
// Anchor precedence:
//  1. customStart, when the caller pinned the first instant explicitly
//  2. the latest scheduled end on the timeline (ties broken upstream by
//     highest position)
//  3. the channel's nominal schedule start
//  4. now
//
// The entry's end is always anchor + the asset's current duration, and its
// position is one past the highest position in use (active or not).
func ComputeInsertion(ch *models.Channel, vod *models.VOD, last *models.ScheduleEntry, maxPosition int, customStart *time.Time, now time.Time) Insertion {
	var start time.Time

	switch {
	case customStart != nil:
		start = customStart.UTC()
	case last != nil:
		start = last.ScheduledEnd
	case ch.ScheduleStart != nil:
		start = ch.ScheduleStart.UTC()
	default:
		start = now
	}

	return Insertion{
		ScheduledStart: start,
		ScheduledEnd:   start.Add(vod.Duration()),
		Position:       maxPosition + 1,
	}
}

// RetimeSequence rewrites the scheduled interval of each entry so the run is
// contiguous from anchor: each entry starts where the previous one ends, and
// each entry keeps its asset's current duration. Positions are untouched.
// Entries must already be ordered by position ascending.
//
// An entry whose VOD failed to load keeps its previous interval length, so a
// dangling reference degrades to a stale slot instead of collapsing the
// timeline behind it.
func RetimeSequence(entries []*models.ScheduleEntry, anchor time.Time) {
	current := anchor
	for _, entry := range entries {
		duration := entry.ScheduledEnd.Sub(entry.ScheduledStart)
		if entry.VOD != nil {
			duration = entry.VOD.Duration()
		}
		entry.ScheduledStart = current
		entry.ScheduledEnd = current.Add(duration)
		current = entry.ScheduledEnd
	}
}
