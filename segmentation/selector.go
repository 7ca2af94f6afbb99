package segmentation

import "strings"

// Selector picks the foreground mask index from a model's output. The
// keyword priority list is data-driven so installations with differently
// labelled models can retune it without touching control flow.
type Selector struct {
	// ForegroundKeywords are scanned in order against lower-cased labels;
	// the first label containing a keyword wins.
	ForegroundKeywords []string
	// BackgroundKeyword marks the inverse label for two-mask models.
	BackgroundKeyword string
}

// NewSelector returns a selector with the default keyword priorities.
func NewSelector() *Selector {
	return &Selector{
		ForegroundKeywords: []string{"person", "foreground", "selfie"},
		BackgroundKeyword:  "background",
	}
}

// Pick returns the index of the foreground mask. explicit >= 0 always
// wins (clamped to the valid range); otherwise labels are consulted, and
// when they are unusable the last mask is assumed to be the foreground.
// Pick never fails for maskCount >= 1; ambiguity resolves through the
// fallback chain, not an error.
func (s *Selector) Pick(maskCount int, labels []string, explicit int) int {
	if maskCount <= 0 {
		return 0
	}
	if explicit >= 0 {
		if explicit >= maskCount {
			return maskCount - 1
		}
		return explicit
	}
	if len(labels) != maskCount {
		return maskCount - 1
	}

	lowered := make([]string, len(labels))
	for i, l := range labels {
		lowered[i] = strings.ToLower(l)
	}
	for _, kw := range s.ForegroundKeywords {
		for i, l := range lowered {
			if strings.Contains(l, kw) {
				return i
			}
		}
	}
	if s.BackgroundKeyword != "" && maskCount == 2 {
		for i, l := range lowered {
			if strings.Contains(l, s.BackgroundKeyword) {
				// Two masks and one is labelled background: the
				// foreground is the other one.
				return i ^ 1
			}
		}
	}
	return maskCount - 1
}
