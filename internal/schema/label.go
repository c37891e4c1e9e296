package schema

import "fmt"

// Label is one value from the closed set of intents the classifier may
// produce. Any other value is a dispatch failure, never a default.
type Label string

const (
	LabelRecipe  Label = "recipe"
	LabelPerson  Label = "person"
	LabelProduct Label = "product"
	LabelStory   Label = "story"
)

// Labels returns the full routed label set in declaration order.
func Labels() []Label {
	return []Label{LabelRecipe, LabelPerson, LabelProduct, LabelStory}
}

// LabelStrings returns the label set as plain strings, for enum constraints.
func LabelStrings() []string {
	labels := Labels()
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = string(l)
	}
	return out
}

// ParseLabel validates a raw classifier result against the label set.
func ParseLabel(raw string) (Label, error) {
	for _, l := range Labels() {
		if string(l) == raw {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLabel, raw)
}
