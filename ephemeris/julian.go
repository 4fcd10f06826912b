package ephemeris

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// J2000 is the Julian day of the epoch, 2000-01-01 12:00 UTC
const J2000 = 2451545.0

// TimeToJulianDay returns the Julian day of t
func TimeToJulianDay(t time.Time) float64 {
	return julian.TimeToJD(t)
}

// JulianDayToTime converts a Julian day to a time in loc (UTC when loc is nil)
func JulianDayToTime(jd float64, loc *time.Location) time.Time {
	t := julian.JDToTime(jd)
	if loc == nil {
		return t.UTC()
	}
	return t.In(loc)
}

// DayOffset returns the number of whole days between the J2000 epoch and
// noon. noon should be local noon of the day of interest in the observer's
// time zone.
func DayOffset(noon time.Time) int {
	return int(math.Round(TimeToJulianDay(noon) - J2000))
}

// NoonOffset returns the day offset of local noon on the given date
func NoonOffset(year int, month time.Month, day int, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	return DayOffset(time.Date(year, month, day, 12, 0, 0, 0, loc))
}

// DaysToDuration converts a fraction of a day to a time.Duration
func DaysToDuration(days float64) time.Duration {
	return time.Duration(days * float64(24*time.Hour))
}

// DurationToDays converts a time.Duration to a fraction of a day
func DurationToDays(d time.Duration) float64 {
	return d.Hours() / 24
}
