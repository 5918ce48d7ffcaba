// Package vocab maps state and observation labels to dense integer ids.
package vocab

import (
	"encoding/json"
	"fmt"

	"text2phenotype.com/postagger/utils"
)

const (
	StartState = "*START*"
	EndState   = "*END*"
	StartWord  = "*START*"
	EndWord    = "*END*"
	RareWord   = "*RARE_WORD*"
)

// DuplicateLabelError is returned by New when a label occurs more than once.
type DuplicateLabelError struct {
	Label  string
	First  int
	Second int
}

func (e *DuplicateLabelError) Error() string {
	return fmt.Sprintf("duplicate label %q at positions %d and %d", e.Label, e.First, e.Second)
}

// Index is a bijection between labels and ids in [0, Len()).
// It is never modified after New returns, so it can be shared between goroutines.
type Index struct {
	labels      []string
	ids         map[string]int
	fingerprint uint64
}

func New(labels []string) (*Index, error) {
	idx := Index{
		labels: make([]string, len(labels)),
		ids:    make(map[string]int, len(labels)),
	}
	copy(idx.labels, labels)

	for i, label := range idx.labels {
		if first, ok := idx.ids[label]; ok {
			return nil, &DuplicateLabelError{Label: label, First: first, Second: i}
		}
		idx.ids[label] = i
	}
	idx.fingerprint = utils.HashSequence(idx.labels)

	return &idx, nil
}

func (idx *Index) ID(label string) (int, bool) {
	id, ok := idx.ids[label]
	return id, ok
}

func (idx *Index) Contains(label string) bool {
	_, ok := idx.ids[label]
	return ok
}

// Label panics when id is out of range.
func (idx *Index) Label(id int) string {
	return idx.labels[id]
}

func (idx *Index) Len() int {
	return len(idx.labels)
}

// Labels returns a copy of the labels in id order.
func (idx *Index) Labels() []string {
	labels := make([]string, len(idx.labels))
	copy(labels, idx.labels)
	return labels
}

// Fingerprint identifies the exact label order of the index.
func (idx *Index) Fingerprint() uint64 {
	return idx.fingerprint
}

func (idx *Index) MarshalJSON() ([]byte, error) {
	return json.Marshal(idx.labels)
}

func (idx *Index) UnmarshalJSON(buf []byte) error {
	var labels []string
	if err := json.Unmarshal(buf, &labels); err != nil {
		return err
	}
	parsed, err := New(labels)
	if err != nil {
		return err
	}
	*idx = *parsed
	return nil
}
