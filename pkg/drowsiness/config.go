package drowsiness

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Indices addresses the landmarks each feature reads. Defaults follow the
// MediaPipe face mesh numbering.
type Indices struct {
	Eye   [6]int `yaml:"eye" json:"eye" validate:"dive,gte=0"`
	Mouth [4]int `yaml:"mouth" json:"mouth" validate:"dive,gte=0"`
	Head  [3]int `yaml:"head" json:"head" validate:"dive,gte=0"`
}

// Config holds the thresholds and frame limits of an Analyzer. It is copied
// into the Analyzer at construction and never changes afterwards.
type Config struct {
	EyeARThresh          float64 `yaml:"eye_ar_thresh" json:"eye_ar_thresh" validate:"gt=0"`
	EyeARConsecFrames    int     `yaml:"eye_ar_consec_frames" json:"eye_ar_consec_frames" validate:"gt=0"`
	YawnThresh           float64 `yaml:"yawn_thresh" json:"yawn_thresh" validate:"gt=0"`
	YawnConsecFrames     int     `yaml:"yawn_consec_frames" json:"yawn_consec_frames" validate:"gt=0"`
	HeadTiltThresh       float64 `yaml:"head_tilt_thresh" json:"head_tilt_thresh" validate:"gt=0"`
	HeadTiltConsecFrames int     `yaml:"head_tilt_consec_frames" json:"head_tilt_consec_frames" validate:"gt=0"`
	BlinkThresh          float64 `yaml:"blink_thresh" json:"blink_thresh" validate:"gt=0"`
	BlinkInterval        int     `yaml:"blink_interval" json:"blink_interval" validate:"gt=0"`
	BlinkCountThresh     int     `yaml:"blink_count_thresh" json:"blink_count_thresh" validate:"gt=0"`
	Indices              Indices `yaml:"indices" json:"indices"`
}

func DefaultIndices() Indices {
	return Indices{
		Eye:   [6]int{33, 160, 158, 133, 153, 144},
		Mouth: [4]int{61, 291, 0, 17},
		Head:  [3]int{1, 11, 12},
	}
}

// DefaultConfig returns the thresholds the monitor ships with. At ~30 fps
// twenty frames is roughly two thirds of a second.
func DefaultConfig() Config {
	return Config{
		EyeARThresh:          0.25,
		EyeARConsecFrames:    20,
		YawnThresh:           0.5,
		YawnConsecFrames:     15,
		HeadTiltThresh:       30,
		HeadTiltConsecFrames: 20,
		BlinkThresh:          0.25,
		BlinkInterval:        10,
		BlinkCountThresh:     3,
		Indices:              DefaultIndices(),
	}
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// minLandmarks is the number of points a landmark set needs so that every
// configured index is addressable.
func (c Config) minLandmarks() int {
	highest := 0
	for _, set := range [][]int{c.Indices.Eye[:], c.Indices.Mouth[:], c.Indices.Head[:]} {
		for _, idx := range set {
			if idx > highest {
				highest = idx
			}
		}
	}
	return highest + 1
}
