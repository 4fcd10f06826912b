package ephemeris

import (
	"fmt"
	"math"
)

const (
	// HorizonAltitude is the apparent altitude of the Sun's center at
	// sunrise and sunset: atmospheric refraction plus the solar disc radius.
	HorizonAltitude = -0.83 // degrees

	// Obliquity of the ecliptic
	Obliquity = 23.44 // degrees

	j2000Offset = 0.0008 // leap seconds and terrestrial time, days
)

// Observer is a location on the Earth. Longitude is negative to the west.
type Observer struct {
	Latitude  float64 `json:"latitude"`  // degrees, -90..90
	Longitude float64 `json:"longitude"` // degrees, -180..180
}

// Validate checks the observer coordinates are within range
func (o Observer) Validate() error {
	if math.IsNaN(o.Latitude) || o.Latitude < -90 || o.Latitude > 90 {
		return &ValidationError{
			Field:   "latitude",
			Message: fmt.Sprintf("must be between -90 and 90, got: %f", o.Latitude),
		}
	}
	if math.IsNaN(o.Longitude) || o.Longitude < -180 || o.Longitude > 180 {
		return &ValidationError{
			Field:   "longitude",
			Message: fmt.Sprintf("must be between -180 and 180, got: %f", o.Longitude),
		}
	}
	return nil
}

// SolarEvent is the result of evaluating the sunrise equation for one day
type SolarEvent struct {
	Offset      float64 `json:"offset"`      // days since J2000
	Transit     float64 `json:"transit"`     // Julian day of local true solar noon
	HourAngle   float64 `json:"hour_angle"`  // sunrise to transit, fraction of a day
	Declination float64 `json:"declination"` // radians
}

// Rise returns the Julian day of sunrise
func (e SolarEvent) Rise() float64 {
	return e.Transit - e.HourAngle
}

// Set returns the Julian day of sunset
func (e SolarEvent) Set() float64 {
	return e.Transit + e.HourAngle
}

// DayLength returns the time between sunrise and sunset as a fraction of a day
func (e SolarEvent) DayLength() float64 {
	return 2 * e.HourAngle
}

// LocalMeanSolarNoon returns the local mean solar noon as days since J2000
// for day offset n and the observer longitude in degrees.
func LocalMeanSolarNoon(n, longitude float64) float64 {
	return n + j2000Offset - longitude/360.0
}

// SolarMeanAnomaly returns the Earth's mean anomaly in degrees, in [0, 360),
// at j days since J2000.
func SolarMeanAnomaly(j float64) float64 {
	return normalizeDegrees(357.5291 + 0.98560028*j)
}

// EquationOfCenter returns the equation of the center in degrees for the
// mean anomaly m (degrees), truncated at the third term.
func EquationOfCenter(m float64) float64 {
	mr := radians(m)
	return 1.9148*math.Sin(mr) + 0.02*math.Sin(2*mr) + 0.0003*math.Sin(3*mr)
}

// SolarEclipticLongitude returns the ecliptic longitude of the Sun in
// degrees, in [0, 360), from the mean anomaly m and the equation of the center c.
func SolarEclipticLongitude(m, c float64) float64 {
	return normalizeDegrees(m + c + 180 + 102.9372)
}

// LocalTrueSolarTransit returns the Julian day of solar noon from the mean
// solar noon j (days since J2000), mean anomaly m and ecliptic longitude l.
func LocalTrueSolarTransit(j, m, l float64) float64 {
	return J2000 + j + 0.0053*math.Sin(radians(m)) - 0.0069*math.Sin(2*radians(l))
}

// SinDeclination returns the sine of the Sun's declination for the
// ecliptic longitude l in degrees.
func SinDeclination(l float64) float64 {
	return math.Sin(radians(l)) * math.Sin(radians(Obliquity))
}

// HourAngle returns the hour angle of sunset as a non-negative fraction of a
// day. It fails with a *DomainError when the Sun never crosses the horizon.
func HourAngle(sinDecl, latitude float64) (float64, error) {
	decl := math.Asin(sinDecl)
	lat := radians(latitude)

	cosHA := (math.Sin(radians(HorizonAltitude)) - math.Sin(lat)*sinDecl) / (math.Cos(lat) * math.Cos(decl))
	if !(cosHA >= -1 && cosHA <= 1) {
		return 0, &DomainError{
			Latitude:       latitude,
			SinDeclination: sinDecl,
			CosHourAngle:   cosHA,
		}
	}

	return math.Abs(math.Acos(cosHA) / (2 * math.Pi)), nil
}

// SunRiseSet evaluates the sunrise equation for day offset n (days since
// J2000) at the given observer longitude and latitude in degrees.
func SunRiseSet(n, longitude, latitude float64) (SolarEvent, error) {
	obs := Observer{Latitude: latitude, Longitude: longitude}
	if err := obs.Validate(); err != nil {
		return SolarEvent{}, err
	}

	j := LocalMeanSolarNoon(n, longitude)
	m := SolarMeanAnomaly(j)
	c := EquationOfCenter(m)
	l := SolarEclipticLongitude(m, c)
	transit := LocalTrueSolarTransit(j, m, l)
	sinDecl := SinDeclination(l)

	ha, err := HourAngle(sinDecl, latitude)
	if err != nil {
		return SolarEvent{}, err
	}

	return SolarEvent{
		Offset:      n,
		Transit:     transit,
		HourAngle:   ha,
		Declination: math.Asin(sinDecl),
	}, nil
}

// EquatorialToHorizontal converts an hour angle (fraction of a day, negative
// before transit) and a declination (radians) to the azimuth and altitude in
// degrees seen from latitude. The azimuth is measured from the north,
// positive to the east, in [0, 360).
func EquatorialToHorizontal(hourAngle, declination, latitude float64) (azimuth, altitude float64) {
	ha := hourAngle * 2 * math.Pi
	lat := radians(latitude)

	// atan2 yields the azimuth from the south, positive to the west
	south := math.Atan2(math.Sin(ha), math.Cos(ha)*math.Sin(lat)-math.Tan(declination)*math.Cos(lat))
	alt := math.Asin(math.Sin(lat)*math.Sin(declination) + math.Cos(lat)*math.Cos(declination)*math.Cos(ha))

	return normalizeDegrees(degrees(south) + 180), degrees(alt)
}

func radians(d float64) float64 {
	return d * math.Pi / 180
}

func degrees(r float64) float64 {
	return r * 180 / math.Pi
}

func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}
