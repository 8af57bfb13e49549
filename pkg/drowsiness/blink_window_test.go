package drowsiness

import "testing"

func TestBlinkWindowEvictsOldest(t *testing.T) {
	const capacity = 10

	for k := 0; k <= 15; k++ {
		w := NewBlinkWindow(capacity)
		var pushed []bool
		for i := 0; i < capacity+k; i++ {
			v := i%3 == 0 || i%7 == 0
			pushed = append(pushed, v)
			w.Push(v)

			if w.Len() > capacity {
				t.Fatalf("Window grew to %d, capacity %d", w.Len(), capacity)
			}
		}

		want := pushed[len(pushed)-capacity:]
		got := w.Values()
		if len(got) != capacity {
			t.Fatalf("k=%d: expected %d entries, got %d", k, capacity, len(got))
		}

		trues := 0
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("k=%d: entry %d expected %v, got %v", k, i, want[i], got[i])
			}
			if want[i] {
				trues++
			}
		}
		if w.Count() != trues {
			t.Errorf("k=%d: expected count %d, got %d", k, trues, w.Count())
		}
	}
}

func TestBlinkWindowPartialFill(t *testing.T) {
	w := NewBlinkWindow(4)
	w.Push(true)
	w.Push(false)

	if w.Len() != 2 {
		t.Errorf("Expected len 2, got %d", w.Len())
	}
	if w.Count() != 1 {
		t.Errorf("Expected count 1, got %d", w.Count())
	}
	if got := w.Values(); len(got) != 2 || !got[0] || got[1] {
		t.Errorf("Expected [true false], got %v", got)
	}
}

func TestBlinkWindowReset(t *testing.T) {
	w := NewBlinkWindow(3)
	for i := 0; i < 5; i++ {
		w.Push(true)
	}

	w.Reset()

	if w.Len() != 0 || w.Count() != 0 {
		t.Errorf("Expected empty window after reset, got len=%d count=%d", w.Len(), w.Count())
	}

	w.Push(false)
	if got := w.Values(); len(got) != 1 || got[0] {
		t.Errorf("Expected [false] after reset and push, got %v", got)
	}
}
