package compliance

import "testing"

func TestScore(t *testing.T) {
	tests := []struct {
		name          string
		passed        int
		total         int
		notApplicable int
		want          int
	}{
		{"all passed", 4, 4, 0, 100},
		{"none passed", 0, 4, 0, 0},
		{"half passed", 2, 4, 0, 50},
		{"rounds up", 2, 3, 0, 67},
		{"rounds down", 1, 3, 0, 33},
		{"not applicable shrinks denominator", 2, 4, 2, 100},
		{"partial with not applicable", 1, 4, 2, 50},
		{"vacuous pass all inapplicable", 0, 4, 4, 100},
		{"vacuous pass no controls", 0, 0, 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.passed, tt.total, tt.notApplicable); got != tt.want {
				t.Errorf("Score(%d, %d, %d) = %d, want %d", tt.passed, tt.total, tt.notApplicable, got, tt.want)
			}
		})
	}
}

func TestGradeFor(t *testing.T) {
	tests := []struct {
		score int
		want  Grade
	}{
		{100, GradeA},
		{90, GradeA},
		{89, GradeB},
		{80, GradeB},
		{79, GradeC},
		{70, GradeC},
		{69, GradeD},
		{60, GradeD},
		{59, GradeF},
		{0, GradeF},
	}

	for _, tt := range tests {
		if got := GradeFor(tt.score); got != tt.want {
			t.Errorf("GradeFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}
