package pos

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"text2phenotype.com/postagger/types"
)

// Baseline tags every word independently with argmax_s P(s) * P(word|s).
type Baseline struct {
	vocabulary Vocabulary
	marginal   []float64
	emission   Table
	// best[o] is the predicted state id for observation o
	best []int
}

func NewBaseline(v Vocabulary, training []types.LabeledSequence) (*Baseline, error) {
	marginal, emission, err := baselineMLE(v, training)
	if err != nil {
		return nil, err
	}
	return newBaseline(v, marginal, emission)
}

func newBaseline(v Vocabulary, marginal []float64, emission Table) (*Baseline, error) {
	numStates, numObservations := v.States.Len(), v.Observations.Len()
	if numStates == 0 {
		return nil, fmt.Errorf("state vocabulary is empty")
	}
	if len(marginal) != numStates {
		return nil, fmt.Errorf("marginal has %d entries, expected %d", len(marginal), numStates)
	}
	if err := checkShape("emission", emission, numStates, numObservations); err != nil {
		return nil, err
	}
	if err := checkDistribution(marginal, false); err != nil {
		return nil, fmt.Errorf("marginal: %w", err)
	}
	if err := emission.checkRows("emission"); err != nil {
		return nil, err
	}

	best := make([]int, numObservations)
	scores := make([]float64, numStates)
	for o := 0; o < numObservations; o++ {
		for s := 0; s < numStates; s++ {
			scores[s] = marginal[s] * emission.At(s, o)
		}
		// first maximum wins, so ties go to the lowest state id
		best[o] = floats.MaxIdx(scores)
	}

	return &Baseline{
		vocabulary: v,
		marginal:   marginal,
		emission:   emission,
		best:       best,
	}, nil
}

func (m *Baseline) Decoder() string {
	return types.DecoderBaseline
}

func (m *Baseline) Vocabulary() Vocabulary {
	return m.vocabulary
}

// Marginal returns a copy of the state distribution.
func (m *Baseline) Marginal() []float64 {
	marginal := make([]float64, len(m.marginal))
	copy(marginal, m.marginal)
	return marginal
}

// Emission returns a copy of the emission table.
func (m *Baseline) Emission() Table {
	return m.emission.Clone()
}

// Predict tags each sentence; the whole batch fails on the first unknown word.
func (m *Baseline) Predict(sentences [][]string) ([][]string, error) {
	result := make([][]string, len(sentences))
	for i, words := range sentences {
		tags, err := m.predictSentence(words)
		if err != nil {
			return nil, fmt.Errorf("sentence %d: %w", i, err)
		}
		result[i] = tags
	}
	return result, nil
}

func (m *Baseline) Tag(sentences [][]string) ([][]string, error) {
	return m.Predict(sentences)
}

func (m *Baseline) predictSentence(words []string) ([]string, error) {
	ids, err := m.vocabulary.observationIDs(words)
	if err != nil {
		return nil, err
	}
	for i, o := range ids {
		ids[i] = m.best[o]
	}
	return m.vocabulary.stateLabels(ids), nil
}
