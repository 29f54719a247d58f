package face

// DefaultTolerance is calibrated to the dlib ResNet descriptor model.
// It is a property of the model, not a universal constant.
const DefaultTolerance = 0.6

// Candidate pairs a student reference with their enrolled descriptor.
type Candidate struct {
	StudentID  string
	RollNumber string
	Name       string
	Descriptor Descriptor
}

// Matcher compares probe descriptors against enrolled ones under a fixed
// tolerance.
type Matcher struct {
	tolerance float64
}

// NewMatcher creates a matcher. Non-positive tolerance falls back to the
// model default.
func NewMatcher(tolerance float64) *Matcher {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Matcher{tolerance: tolerance}
}

// Tolerance reports the configured acceptance threshold.
func (m *Matcher) Tolerance() float64 { return m.tolerance }

// Match scans candidates in the order given and returns the first one whose
// distance to the probe is below tolerance. First-accept, not best-match:
// when two enrolled descriptors both fall inside the tolerance the earlier
// candidate wins even if the later one is closer. Callers must pass
// candidates in a stable order (ascending enrollment) for deterministic
// results.
func (m *Matcher) Match(probe Descriptor, candidates []Candidate) (Candidate, bool) {
	for _, c := range candidates {
		if Distance(probe, c.Descriptor) < m.tolerance {
			return c, true
		}
	}
	return Candidate{}, false
}

// Verify checks a probe against a single enrolled descriptor. Used on the
// self-verification path, where a miss means identity mismatch rather than
// an unknown face.
func (m *Matcher) Verify(probe, enrolled Descriptor) bool {
	return Distance(probe, enrolled) < m.tolerance
}
