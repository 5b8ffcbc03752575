package stats

// Running tracks how often each expression-complexity size has been seen
// recently. The default tournament reads the normalized frequencies to
// penalize overrepresented sizes; hosts feed observations in from their
// generational loop.
type Running struct {
	WindowSize            int       `json:"window_size"`
	Frequencies           []float64 `json:"frequencies"`
	NormalizedFrequencies []float64 `json:"normalized_frequencies"`
}

const defaultWindowSize = 100000

// NewRunning builds statistics covering sizes 1..maxsize. Every size starts
// with one observation so normalization is defined before the first real
// sample. A windowSize of 0 selects the default window.
func NewRunning(maxsize, windowSize int) *Running {
	if maxsize < 1 {
		maxsize = 1
	}
	if windowSize <= 0 {
		windowSize = defaultWindowSize
	}
	r := &Running{
		WindowSize:            windowSize,
		Frequencies:           make([]float64, maxsize),
		NormalizedFrequencies: make([]float64, maxsize),
	}
	for i := range r.Frequencies {
		r.Frequencies[i] = 1
	}
	r.Normalize()
	return r
}

// Observe records one occurrence of the given complexity size. Sizes
// outside 1..maxsize are ignored.
func (r *Running) Observe(size int) {
	if r == nil || size < 1 || size > len(r.Frequencies) {
		return
	}
	r.Frequencies[size-1]++
	r.shrinkWindow()
}

// shrinkWindow rescales counts so their sum never exceeds the window,
// letting old observations decay as new ones arrive.
func (r *Running) shrinkWindow() {
	var sum float64
	for _, f := range r.Frequencies {
		sum += f
	}
	if sum <= float64(r.WindowSize) {
		return
	}
	scale := float64(r.WindowSize) / sum
	for i := range r.Frequencies {
		r.Frequencies[i] *= scale
	}
}

// Normalize refreshes NormalizedFrequencies from the raw counts.
func (r *Running) Normalize() {
	if r == nil {
		return
	}
	var sum float64
	for _, f := range r.Frequencies {
		sum += f
	}
	if sum <= 0 {
		for i := range r.NormalizedFrequencies {
			r.NormalizedFrequencies[i] = 0
		}
		return
	}
	for i, f := range r.Frequencies {
		r.NormalizedFrequencies[i] = f / sum
	}
}

// FrequencyFor returns the normalized frequency of a complexity size,
// treating sizes outside 1..maxsize as never seen. A nil receiver reports
// zero for every size.
func (r *Running) FrequencyFor(size, maxsize int) float64 {
	if r == nil || size < 1 || size > maxsize || size > len(r.NormalizedFrequencies) {
		return 0
	}
	return r.NormalizedFrequencies[size-1]
}
