package models

import (
	"fmt"
	"time"
)

// TimeRange is an absolute [Start, End] interval.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Duration returns the width of the range.
func (r TimeRange) Duration() time.Duration { return r.End.Sub(r.Start) }

// Midpoint returns the instant halfway through the range.
func (r TimeRange) Midpoint() time.Time { return r.Start.Add(r.Duration() / 2) }

// TimeWindow is the public time-window specification: either a relative
// duration (minutes/hours/days back from End, defaulting to now) or an
// explicit start/end pair. Exactly one style must be populated.
type TimeWindow struct {
	Minutes   int        `json:"minutes,omitempty"`
	Hours     int        `json:"hours,omitempty"`
	Days      int        `json:"days,omitempty"`
	StartTime *time.Time `json:"startTime,omitempty"`
	EndTime   *time.Time `json:"endTime,omitempty"`
}

// Resolve converts the window into an absolute TimeRange anchored at now.
// Returns an error for an empty specification or an inverted explicit range.
func (w TimeWindow) Resolve(now time.Time) (TimeRange, error) {
	end := now
	if w.EndTime != nil {
		end = *w.EndTime
	}

	if w.StartTime != nil {
		if !w.StartTime.Before(end) {
			return TimeRange{}, fmt.Errorf("time window start %s is not before end %s", w.StartTime.Format(time.RFC3339), end.Format(time.RFC3339))
		}
		return TimeRange{Start: *w.StartTime, End: end}, nil
	}

	back := time.Duration(w.Minutes)*time.Minute +
		time.Duration(w.Hours)*time.Hour +
		time.Duration(w.Days)*24*time.Hour
	if back <= 0 {
		return TimeRange{}, fmt.Errorf("time window requires either a relative duration or an explicit start time")
	}
	return TimeRange{Start: end.Add(-back), End: end}, nil
}
