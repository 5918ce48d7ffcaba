package types

// LabeledSequence pairs states with the observations they emitted, aligned by position.
type LabeledSequence struct {
	States       []string `json:"tags"`
	Observations []string `json:"words"`
}

func (seq LabeledSequence) Len() int {
	return len(seq.Observations)
}

func (seq LabeledSequence) Aligned() bool {
	return len(seq.States) == len(seq.Observations)
}
