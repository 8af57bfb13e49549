package drowsiness

import "math"

// epsilon replaces a reference distance that collapsed to zero.
const epsilon = 1e-6

type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z,omitempty" yaml:"z,omitempty"`
}

// Landmarks is one frame of face landmarks. A nil or empty set means no face
// was detected.
type Landmarks []Point

// Features are the per-frame signals the counters are driven by.
type Features struct {
	EAR      float64 `json:"ear"`
	MAR      float64 `json:"mar"`
	HeadTilt float64 `json:"head_tilt"`
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func clamp(d float64) float64 {
	if d < epsilon {
		return epsilon
	}
	return d
}

// EyeAspectRatio expects p1/p5 and p2/p4 as the vertical pairs and p0/p3 as
// the horizontal pair.
func EyeAspectRatio(eye [6]Point) float64 {
	a := distance(eye[1], eye[5])
	b := distance(eye[2], eye[4])
	c := distance(eye[0], eye[3])
	return (a + b) / (2.0 * clamp(c))
}

// MouthAspectRatio expects the corners at p0/p1 and the lips at p2/p3.
func MouthAspectRatio(mouth [4]Point) float64 {
	horizontal := distance(mouth[0], mouth[1])
	vertical := distance(mouth[2], mouth[3])
	return vertical / clamp(horizontal)
}

// HeadTiltAngle is the unsigned angle in degrees, within [0, 180], between
// the x axis and the line from the shoulder midpoint to the nose.
func HeadTiltAngle(nose, left, right Point) float64 {
	midX := (left.X + right.X) / 2
	midY := (left.Y + right.Y) / 2
	angle := math.Atan2(nose.Y-midY, nose.X-midX)
	return math.Abs(angle * 180 / math.Pi)
}

// Extract computes the three features from a landmark set that is already
// known to cover every configured index.
func (ix Indices) Extract(lm Landmarks) Features {
	var eye [6]Point
	for i, idx := range ix.Eye {
		eye[i] = lm[idx]
	}
	var mouth [4]Point
	for i, idx := range ix.Mouth {
		mouth[i] = lm[idx]
	}

	return Features{
		EAR:      EyeAspectRatio(eye),
		MAR:      MouthAspectRatio(mouth),
		HeadTilt: HeadTiltAngle(lm[ix.Head[0]], lm[ix.Head[1]], lm[ix.Head[2]]),
	}
}
