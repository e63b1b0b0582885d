package interest

import "time"

// Midnight values are exact multiples of a day apart. Unix seconds are used
// instead of Sub, which saturates after about 292 years.
const secondsPerDay = 24 * 60 * 60

// LastDate is the latest calendar date a loan may carry. Dates are stored as
// four-digit-year text.
var LastDate = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// Midnight returns the calendar date of t, as seen in t's own location, at
// 00:00 UTC. All day arithmetic happens on these values so DST never shifts a
// difference off a whole number of days.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WholeDaysBetween returns the signed number of calendar days from start to end.
func WholeDaysBetween(start, end time.Time) int {
	return int((Midnight(end).Unix() - Midnight(start).Unix()) / secondsPerDay)
}

// AddDays moves a calendar date n days forward (or back when n is negative).
func AddDays(t time.Time, n int) time.Time {
	return Midnight(t).AddDate(0, 0, n)
}
