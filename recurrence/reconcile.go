package recurrence

import (
	"fmt"
	"time"
)

// Reconcile moves an event window so that its start falls on the calendar date
// of the first previewed occurrence. Both dates are taken in zone, which
// defaults to UTC. The time of day and the window length are kept. An empty
// preview, or one whose first occurrence already shares start's date, returns
// the window unchanged.
//
// A first occurrence dated before start cannot come out of a correctly anchored
// rule; it is reported as a consistency error.
func Reconcile(start, end time.Time, preview []time.Time, zone *time.Location) (time.Time, time.Time, error) {
	if len(preview) == 0 {
		return start, end, nil
	}
	if zone == nil {
		zone = time.UTC
	}

	days := dayNumber(preview[0].In(zone)) - dayNumber(start.In(zone))
	switch {
	case days == 0:
		return start, end, nil
	case days < 0:
		return start, end, &Error{
			Type: ErrConsistency,
			Message: fmt.Sprintf("first occurrence %s precedes start %s",
				preview[0].Format(time.RFC3339), start.Format(time.RFC3339)),
		}
	}

	length := end.Sub(start)
	shifted := start.AddDate(0, 0, days)
	return shifted, shifted.Add(length), nil
}

// dayNumber counts whole days since the Unix epoch for t's wall-clock date.
func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
