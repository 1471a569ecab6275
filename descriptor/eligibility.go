package descriptor

// Eligibility decides whether a descriptor may enter the scheduling core.
// The coordinator calls it before any state is mutated; implementations
// must be pure.
type Eligibility interface {
	Eligible(d Descriptor) bool
}

// DefaultTag is the designated eligibility tag for peer-scheduled work.
const DefaultTag = "p2p"

// TagEligibility accepts descriptors carrying a designated tag.
type TagEligibility struct {
	Tag string
}

// NewTagEligibility returns a predicate for tag, defaulting to DefaultTag.
func NewTagEligibility(tag string) TagEligibility {
	if tag == "" {
		tag = DefaultTag
	}
	return TagEligibility{Tag: tag}
}

func (t TagEligibility) Eligible(d Descriptor) bool {
	for _, tag := range d.Tags {
		if tag == t.Tag {
			return true
		}
	}
	return false
}

// EligibilityFunc adapts a plain function to the Eligibility interface.
type EligibilityFunc func(d Descriptor) bool

func (f EligibilityFunc) Eligible(d Descriptor) bool { return f(d) }
