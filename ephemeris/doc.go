// Package ephemeris computes sunrise, solar transit and sunset for an observer
// on the Earth, and the horizontal coordinates of the Sun at any instant.
//
// The computation follows the sunrise equation: local mean solar noon, the
// solar mean anomaly, the equation of the center, the ecliptic longitude,
// the true solar transit (equation of time), the declination and finally the
// hour angle of sunrise/sunset. Each stage is exported so it can be checked
// on its own.
//
// Basic Usage:
//
//	n := ephemeris.DayOffset(time.Date(2020, 3, 10, 12, 0, 0, 0, loc))
//
//	event, err := ephemeris.SunRiseSet(float64(n), -119.8, 34.4) // UCSB
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Println("Sunrise:", ephemeris.JulianDayToTime(event.Rise(), loc))
//	fmt.Println("Sunset: ", ephemeris.JulianDayToTime(event.Set(), loc))
//
//	// Position of the Sun two hours after transit
//	az, alt := ephemeris.EquatorialToHorizontal(2.0/24, event.Declination, 34.4)
//
// Units:
//
// - angles passed in and out are degrees, except the declination (radians)
// - hour angles and Julian days are expressed in days (fractions of a day)
// - azimuth is measured from the north, positive to the east
//
// All functions are pure and safe for concurrent use.
package ephemeris
