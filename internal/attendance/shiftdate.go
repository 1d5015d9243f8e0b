package attendance

import "time"

// DateFormat is the shift-date layout used across the store and exports.
const DateFormat = "2006-01-02"

// DefaultRolloverHour is the wall-clock hour from which a check-in belongs
// to the next shift date.
const DefaultRolloverHour = 22

// NoRollover disables shift-date rolling; every check-in keeps its calendar
// date. Zero means "unset" throughout the config, so the sentinel is
// negative.
const NoRollover = -1

// ShiftDate maps a wall-clock instant to its logical shift date. A check-in
// at or after the rollover hour counts toward the next calendar day, so a
// crew starting at 23:50 lands on tomorrow's record for reporting. Decided
// once, at check-in; the stored date is never recomputed. A non-positive
// rolloverHour (NoRollover) keeps the calendar date unconditionally.
func ShiftDate(t time.Time, rolloverHour int) string {
	if rolloverHour > 0 && t.Hour() >= rolloverHour {
		t = t.AddDate(0, 0, 1)
	}
	return t.Format(DateFormat)
}
