package mastery

// Outcome is one attempt's footprint in the rolling window.
type Outcome struct {
	Correct    bool `json:"correct"`
	ResponseMs *int `json:"response_ms,omitempty"`
	TermCount  int  `json:"term_count"`
	UsedHelp   bool `json:"used_help"`
}

// secondsPerTerm returns the response time normalized by problem length.
// ok is false when the attempt carried no measurement.
func (o Outcome) secondsPerTerm() (float64, bool) {
	if o.ResponseMs == nil || o.TermCount < 1 {
		return 0, false
	}
	return float64(*o.ResponseMs) / 1000.0 / float64(o.TermCount), true
}

// ring is a fixed-capacity evict-oldest buffer of outcomes.
// Entries are addressed by position; pushing past capacity overwrites
// the oldest entry, so no per-attempt reallocation occurs.
type ring struct {
	buf  []Outcome
	head int // index of the next write
	size int // valid entries, ≤ len(buf)
}

func newRing(capacity int) ring {
	if capacity < 1 {
		capacity = 1
	}
	return ring{buf: make([]Outcome, capacity)}
}

func (r *ring) push(o Outcome) {
	if r.buf == nil {
		*r = newRing(DefaultParams.WindowCap)
	}
	r.buf[r.head] = o
	r.head = (r.head + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

// last returns up to n outcomes, oldest first.
func (r *ring) last(n int) []Outcome {
	if n > r.size {
		n = r.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]Outcome, 0, n)
	start := r.head - n
	for i := 0; i < n; i++ {
		out = append(out, r.buf[(start+i+len(r.buf))%len(r.buf)])
	}
	return out
}

func (r *ring) len() int {
	return r.size
}

// clone returns a deep copy of the ring.
func (r ring) clone() ring {
	out := r
	if r.buf != nil {
		out.buf = append([]Outcome(nil), r.buf...)
		for i, o := range out.buf {
			if o.ResponseMs != nil {
				v := *o.ResponseMs
				out.buf[i].ResponseMs = &v
			}
		}
	}
	return out
}
