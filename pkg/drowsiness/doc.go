// Package drowsiness classifies driver alertness from per-frame face
// landmarks.
//
// Each frame yields three signals: the eye aspect ratio, the mouth aspect
// ratio and the head tilt angle. Four consecutive-frame counters (eyes, yawn,
// head tilt, blink frequency) and a sliding blink window turn those signals
// into one of six statuses, checked in a fixed order so that eye closure
// always wins over yawning, yawning over head tilt, and head tilt over
// frequent blinking.
//
// A frame without a face resets every counter and clears the blink window.
//
//	a, err := drowsiness.New(drowsiness.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	res, err := a.Analyze(landmarks)
package drowsiness
