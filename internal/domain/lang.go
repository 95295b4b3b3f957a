package domain

// Lang selects one side of a corpus pair.
type Lang int

const (
	// Primary is the reference-language corpus.
	Primary Lang = iota
	// Secondary is the localized corpus.
	Secondary
)

func (l Lang) String() string {
	if l == Secondary {
		return "secondary"
	}
	return "primary"
}
