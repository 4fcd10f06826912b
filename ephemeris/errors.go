package ephemeris

import "fmt"

// ValidationError represents a validation error for input parameters
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// DomainError is returned when the Sun does not cross the horizon on the
// requested day (polar day or polar night), so no hour angle exists.
type DomainError struct {
	Latitude       float64 // degrees
	SinDeclination float64
	CosHourAngle   float64 // value that fell outside [-1, 1]
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("no sunrise/sunset at latitude %.4f: cosine of hour angle %.6f is outside [-1, 1]",
		e.Latitude, e.CosHourAngle)
}

// PolarDay reports whether the Sun stays above the horizon all day.
func (e *DomainError) PolarDay() bool {
	return e.CosHourAngle < -1
}
