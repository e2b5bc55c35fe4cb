package calibration

import "math"

// Class is the accuracy band of a calibration error percentage.
type Class string

const (
	Good     Class = "Good"
	Warning  Class = "Warning"
	Critical Class = "Critical"
)

const (
	goodLimit    = 0.5
	warningLimit = 2.5
)

// Classify bands an error percentage symmetrically around zero.
func Classify(errorPercent float64) Class {
	abs := math.Abs(errorPercent)
	switch {
	case abs <= goodLimit:
		return Good
	case abs <= warningLimit:
		return Warning
	default:
		// NaN lands here too.
		return Critical
	}
}

// Color is the indicator colour shown next to a class.
func (c Class) Color() string {
	switch c {
	case Good:
		return "#4CAF50"
	case Warning:
		return "#FF9800"
	default:
		return "#F44336"
	}
}
