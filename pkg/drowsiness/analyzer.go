package drowsiness

import (
	"errors"
	"fmt"
)

type Status string

const (
	StatusNoFace           Status = "No Face Detected"
	StatusEyesClosed       Status = "Drowsy: Eyes Closed"
	StatusYawning          Status = "Drowsy: Yawning"
	StatusHeadTilted       Status = "Drowsy: Head Tilted"
	StatusFrequentBlinking Status = "Drowsy: Frequent Blinking"
	StatusAlert            Status = "Alert"
)

func (s Status) String() string { return string(s) }

func (s Status) IsDrowsy() bool {
	switch s {
	case StatusEyesClosed, StatusYawning, StatusHeadTilted, StatusFrequentBlinking:
		return true
	}
	return false
}

var (
	ErrInvalidConfig      = errors.New("invalid analyzer config")
	ErrMalformedLandmarks = errors.New("malformed landmark set")
)

type Result struct {
	Status   Status    `json:"status"`
	Drowsy   bool      `json:"is_drowsy"`
	Features *Features `json:"features,omitempty"`
}

// Counters are the consecutive-frame counts after the latest frame.
type Counters struct {
	Eye   int `json:"eye"`
	Yawn  int `json:"yawn"`
	Head  int `json:"head"`
	Blink int `json:"blink"`
}

// State is a copy of the analyzer's mutable state.
type State struct {
	Counters    Counters `json:"counters"`
	BlinkWindow []bool   `json:"blink_window"`
}

type rule struct {
	status Status
	match  func(c Counters) bool
}

// Analyzer turns a stream of landmark frames into alertness statuses. It
// keeps hysteresis state between calls and must not be used from more than
// one goroutine at a time.
type Analyzer struct {
	cfg      Config
	minPts   int
	counters Counters
	blinks   *BlinkWindow
	rules    []rule
}

func New(cfg Config) (*Analyzer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Analyzer{
		cfg:    cfg,
		minPts: cfg.minLandmarks(),
		blinks: NewBlinkWindow(cfg.BlinkInterval),
	}

	// Evaluated top to bottom; the first match wins.
	a.rules = []rule{
		{StatusEyesClosed, func(c Counters) bool { return c.Eye >= cfg.EyeARConsecFrames }},
		{StatusYawning, func(c Counters) bool { return c.Yawn >= cfg.YawnConsecFrames }},
		{StatusHeadTilted, func(c Counters) bool { return c.Head >= cfg.HeadTiltConsecFrames }},
		// blink hysteresis is measured against the window length
		{StatusFrequentBlinking, func(c Counters) bool { return c.Blink >= cfg.BlinkInterval }},
	}

	return a, nil
}

func (a *Analyzer) Config() Config { return a.cfg }

// Analyze consumes one frame. A nil or empty landmark set resets all state and
// reports StatusNoFace. A set too short for the configured indices returns
// ErrMalformedLandmarks and leaves the state untouched.
func (a *Analyzer) Analyze(lm Landmarks) (Result, error) {
	if len(lm) == 0 {
		a.Reset()
		return Result{Status: StatusNoFace}, nil
	}
	if len(lm) < a.minPts {
		return Result{}, fmt.Errorf("%w: got %d points, need at least %d", ErrMalformedLandmarks, len(lm), a.minPts)
	}

	f := a.cfg.Indices.Extract(lm)

	a.counters.Eye = step(a.counters.Eye, f.EAR < a.cfg.EyeARThresh)
	a.counters.Yawn = step(a.counters.Yawn, f.MAR > a.cfg.YawnThresh)
	a.counters.Head = step(a.counters.Head, f.HeadTilt > a.cfg.HeadTiltThresh)

	a.blinks.Push(f.EAR < a.cfg.BlinkThresh)
	a.counters.Blink = step(a.counters.Blink, a.blinks.Count() >= a.cfg.BlinkCountThresh)

	return a.classify(f), nil
}

func (a *Analyzer) classify(f Features) Result {
	for _, r := range a.rules {
		if r.match(a.counters) {
			return Result{Status: r.status, Drowsy: true, Features: &f}
		}
	}
	return Result{Status: StatusAlert, Features: &f}
}

// Reset returns the analyzer to its zero state, as a no-face frame does.
func (a *Analyzer) Reset() {
	a.counters = Counters{}
	a.blinks.Reset()
}

func (a *Analyzer) State() State {
	return State{
		Counters:    a.counters,
		BlinkWindow: a.blinks.Values(),
	}
}

func step(counter int, hit bool) int {
	if hit {
		return counter + 1
	}
	return 0
}
