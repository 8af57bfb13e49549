package drowsiness

// BlinkWindow keeps the most recent blink observations, oldest first. Once
// full, every push evicts the oldest entry.
type BlinkWindow struct {
	buf   []bool
	start int
	size  int
	count int
}

func NewBlinkWindow(capacity int) *BlinkWindow {
	if capacity < 1 {
		capacity = 1
	}
	return &BlinkWindow{buf: make([]bool, capacity)}
}

func (w *BlinkWindow) Push(blink bool) {
	capacity := len(w.buf)
	if w.size == capacity {
		if w.buf[w.start] {
			w.count--
		}
		w.buf[w.start] = blink
		w.start = (w.start + 1) % capacity
	} else {
		w.buf[(w.start+w.size)%capacity] = blink
		w.size++
	}
	if blink {
		w.count++
	}
}

// Count returns the number of blink frames currently in the window.
func (w *BlinkWindow) Count() int { return w.count }

func (w *BlinkWindow) Len() int { return w.size }

func (w *BlinkWindow) Cap() int { return len(w.buf) }

func (w *BlinkWindow) Reset() {
	for i := range w.buf {
		w.buf[i] = false
	}
	w.start, w.size, w.count = 0, 0, 0
}

// Values copies the window contents, oldest first.
func (w *BlinkWindow) Values() []bool {
	out := make([]bool, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}
