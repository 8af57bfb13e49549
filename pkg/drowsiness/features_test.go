package drowsiness

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEyeAspectRatio(t *testing.T) {
	eye := [6]Point{
		{X: 0, Y: 0},
		{X: 0.3, Y: 0.2},
		{X: 0.7, Y: 0.2},
		{X: 1, Y: 0},
		{X: 0.7, Y: 0},
		{X: 0.3, Y: 0},
	}

	if got := EyeAspectRatio(eye); !almostEqual(got, 0.2) {
		t.Errorf("Expected EAR 0.2, got %f", got)
	}
}

func TestMouthAspectRatio(t *testing.T) {
	mouth := [4]Point{
		{X: 0, Y: 0},
		{X: 2, Y: 0},
		{X: 1, Y: 0.5},
		{X: 1, Y: -0.5},
	}

	if got := MouthAspectRatio(mouth); !almostEqual(got, 0.5) {
		t.Errorf("Expected MAR 0.5, got %f", got)
	}
}

// TestRatiosTranslationInvariant shifts every point by the same offset.
func TestRatiosTranslationInvariant(t *testing.T) {
	eye := [6]Point{{0.1, 0.2, 0}, {0.2, 0.25, 0}, {0.3, 0.26, 0}, {0.4, 0.2, 0}, {0.3, 0.15, 0}, {0.2, 0.14, 0}}
	mouth := [4]Point{{0.3, 0.6, 0}, {0.5, 0.62, 0}, {0.4, 0.55, 0}, {0.41, 0.7, 0}}

	offsets := []Point{{X: 10, Y: -3}, {X: -0.5, Y: 0.5}, {X: 1e3, Y: 1e3}}
	for _, off := range offsets {
		var movedEye [6]Point
		for i, p := range eye {
			movedEye[i] = Point{X: p.X + off.X, Y: p.Y + off.Y}
		}
		var movedMouth [4]Point
		for i, p := range mouth {
			movedMouth[i] = Point{X: p.X + off.X, Y: p.Y + off.Y}
		}

		if a, b := EyeAspectRatio(eye), EyeAspectRatio(movedEye); math.Abs(a-b) > 1e-6 {
			t.Errorf("EAR changed under translation %+v: %f vs %f", off, a, b)
		}
		if a, b := MouthAspectRatio(mouth), MouthAspectRatio(movedMouth); math.Abs(a-b) > 1e-6 {
			t.Errorf("MAR changed under translation %+v: %f vs %f", off, a, b)
		}
	}
}

func TestDegenerateDistancesAreClamped(t *testing.T) {
	var eye [6]Point
	eye[1] = Point{X: 0, Y: 1}

	ear := EyeAspectRatio(eye)
	if math.IsInf(ear, 0) || math.IsNaN(ear) {
		t.Fatalf("Expected finite EAR for coincident corners, got %f", ear)
	}
	if !almostEqual(ear, 1/(2*epsilon)) {
		t.Errorf("Expected EAR %f, got %f", 1/(2*epsilon), ear)
	}

	var mouth [4]Point
	if mar := MouthAspectRatio(mouth); mar != 0 {
		t.Errorf("Expected MAR 0 for collapsed mouth, got %f", mar)
	}
}

func TestHeadTiltAngle(t *testing.T) {
	left := Point{X: -1, Y: 0}
	right := Point{X: 1, Y: 0}

	tests := []struct {
		name string
		nose Point
		want float64
	}{
		{"along axis", Point{X: 1, Y: 0}, 0},
		{"straight down", Point{X: 0, Y: 1}, 90},
		{"straight up", Point{X: 0, Y: -1}, 90},
		{"opposite side", Point{X: -1, Y: 0}, 180},
		{"diagonal", Point{X: 1, Y: 1}, 45},
		{"negative diagonal", Point{X: 1, Y: -1}, 45},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HeadTiltAngle(tt.nose, left, right)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Expected %f degrees, got %f", tt.want, got)
			}
			if got < 0 || got > 180 {
				t.Errorf("Angle %f out of [0, 180]", got)
			}
		})
	}
}

func TestHeadTiltUsesShoulderMidpoint(t *testing.T) {
	got := HeadTiltAngle(Point{X: 5, Y: 3}, Point{X: 2, Y: 1}, Point{X: 4, Y: 1})
	if math.Abs(got-45) > 1e-9 {
		t.Errorf("Expected 45 degrees from midpoint (3,1), got %f", got)
	}
}
