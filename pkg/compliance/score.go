package compliance

import "math"

// Grade is the letter grade for a compliance score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Score converts control counts into a 0-100 compliance score. Controls
// outside their applicability gate shrink the denominator; a framework
// with zero applicable controls is a vacuous pass, scored 100.
func Score(passed, total, notApplicable int) int {
	applicable := total - notApplicable
	if applicable <= 0 {
		return 100
	}
	return int(math.Round(float64(passed) / float64(applicable) * 100))
}

// GradeFor maps a score to its letter grade with a fixed step function.
func GradeFor(score int) Grade {
	switch {
	case score >= 90:
		return GradeA
	case score >= 80:
		return GradeB
	case score >= 70:
		return GradeC
	case score >= 60:
		return GradeD
	default:
		return GradeF
	}
}
