package stats

import (
	"math"
	"testing"
)

func TestNewRunningNormalizesUniformly(t *testing.T) {
	r := NewRunning(4, 0)

	if r.WindowSize != defaultWindowSize {
		t.Fatalf("window: got %d, want default %d", r.WindowSize, defaultWindowSize)
	}
	for size := 1; size <= 4; size++ {
		if got := r.FrequencyFor(size, 4); math.Abs(got-0.25) > 1e-12 {
			t.Fatalf("size %d: got %v, want 0.25", size, got)
		}
	}
}

func TestObserveShiftsMass(t *testing.T) {
	r := NewRunning(3, 0)
	for i := 0; i < 7; i++ {
		r.Observe(2)
	}
	r.Normalize()

	if r.FrequencyFor(2, 3) <= r.FrequencyFor(1, 3) {
		t.Fatalf("observed size should dominate: size2=%v size1=%v",
			r.FrequencyFor(2, 3), r.FrequencyFor(1, 3))
	}

	// Out-of-range observations are dropped, not counted elsewhere.
	before := r.Frequencies[0] + r.Frequencies[1] + r.Frequencies[2]
	r.Observe(0)
	r.Observe(9)
	after := r.Frequencies[0] + r.Frequencies[1] + r.Frequencies[2]
	if before != after {
		t.Fatalf("out-of-range observation changed counts")
	}
}

func TestFrequencyForBounds(t *testing.T) {
	r := NewRunning(5, 0)

	if got := r.FrequencyFor(0, 5); got != 0 {
		t.Fatalf("size 0: got %v, want 0", got)
	}
	if got := r.FrequencyFor(6, 5); got != 0 {
		t.Fatalf("size beyond maxsize: got %v, want 0", got)
	}
	if got := r.FrequencyFor(3, 2); got != 0 {
		t.Fatalf("maxsize below size: got %v, want 0", got)
	}

	var nilStats *Running
	if got := nilStats.FrequencyFor(1, 5); got != 0 {
		t.Fatalf("nil stats: got %v, want 0", got)
	}
}

func TestWindowCapsTotalMass(t *testing.T) {
	r := NewRunning(2, 10)
	for i := 0; i < 50; i++ {
		r.Observe(1)
	}

	var sum float64
	for _, f := range r.Frequencies {
		sum += f
	}
	if sum > float64(r.WindowSize)+1 {
		t.Fatalf("window overflow: sum=%v window=%d", sum, r.WindowSize)
	}
}
