package pos

import (
	"errors"
	"fmt"
)

var (
	ErrNoTrainingData      = errors.New("no training data")
	ErrMissingStartState   = errors.New("state vocabulary has no start state")
	ErrMisalignedSequence  = errors.New("states and observations differ in length")
	ErrFingerprintMismatch = errors.New("model fingerprint does not match its vocabularies")
	ErrUnknownDecoder      = errors.New("unknown decoder")
	ErrInvalidDistribution = errors.New("not a probability distribution")
)

// UnknownSymbolError reports a label missing from a vocabulary.
// Vocabulary is either "state" or "observation".
type UnknownSymbolError struct {
	Symbol     string
	Vocabulary string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Vocabulary, e.Symbol)
}

// EmptySequenceError is returned when Viterbi decoding gets no observations.
type EmptySequenceError struct{}

func (e *EmptySequenceError) Error() string {
	return "empty observation sequence"
}
