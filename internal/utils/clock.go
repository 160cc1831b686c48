package utils

import "time"

// OffsetClock reads the current time in the server's fixed UTC offset.
// Seat windows are computed in this offset regardless of the host or
// client time zone, so "today" means today for the cafes being served.
type OffsetClock struct {
	loc *time.Location
	now func() time.Time
}

// NewOffsetClock returns a clock for the given offset east of UTC.
func NewOffsetClock(offset time.Duration) *OffsetClock {
	return &OffsetClock{
		loc: time.FixedZone("server", int(offset/time.Second)),
		now: time.Now,
	}
}

// WithNow returns a copy of the clock that reads time from fn.
func (c *OffsetClock) WithNow(fn func() time.Time) *OffsetClock {
	return &OffsetClock{loc: c.loc, now: fn}
}

// Location is the fixed zone of the clock.
func (c *OffsetClock) Location() *time.Location { return c.loc }

// Now returns the current time in the server offset.
func (c *OffsetClock) Now() time.Time { return c.now().In(c.loc) }

// TimeShiftedFor returns now + minutes.
func (c *OffsetClock) TimeShiftedFor(minutes int) time.Time {
	return TimeShiftedFrom(c.Now(), minutes)
}

// MidnightShiftedFor returns midnight of today + days.
func (c *OffsetClock) MidnightShiftedFor(days int) time.Time {
	return MidnightShiftedFrom(c.Now(), days)
}

// TimeShiftedFrom shifts now by the given minutes.
func TimeShiftedFrom(now time.Time, minutes int) time.Time {
	return now.Add(time.Duration(minutes) * time.Minute)
}

// MidnightShiftedFrom returns 00:00 of now's calendar day + days, in now's
// location.
func MidnightShiftedFrom(now time.Time, days int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+days, 0, 0, 0, 0, now.Location())
}
