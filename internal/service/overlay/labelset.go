package overlay

import "labelcam/internal/model"

// LabelSet holds the classes that already have label records. Lookups are
// by exact class string; "Person" and "person " are different classes.
type LabelSet map[string]struct{}

// NewLabelSet collects the detected classes of records.
func NewLabelSet(records []model.LabelRecord) LabelSet {
	s := make(LabelSet, len(records))
	for _, rec := range records {
		s[rec.Class] = struct{}{}
	}
	return s
}

func (s LabelSet) Has(class string) bool {
	_, ok := s[class]
	return ok
}

// Classes returns the set members in no particular order.
func (s LabelSet) Classes() []string {
	out := make([]string, 0, len(s))
	for class := range s {
		out = append(out, class)
	}
	return out
}
