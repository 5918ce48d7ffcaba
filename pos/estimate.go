package pos

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"text2phenotype.com/postagger/types"
)

type encodedSequence struct {
	states       []int
	observations []int
}

func (v Vocabulary) encodeTraining(training []types.LabeledSequence) ([]encodedSequence, int, error) {
	encoded := make([]encodedSequence, len(training))
	positions := 0
	for i, seq := range training {
		if !seq.Aligned() {
			return nil, 0, fmt.Errorf("training sequence %d: %w (%d states, %d observations)",
				i, ErrMisalignedSequence, len(seq.States), len(seq.Observations))
		}
		states := make([]int, len(seq.States))
		for p, label := range seq.States {
			id, err := v.stateID(label)
			if err != nil {
				return nil, 0, fmt.Errorf("training sequence %d: %w", i, err)
			}
			states[p] = id
		}
		observations, err := v.observationIDs(seq.Observations)
		if err != nil {
			return nil, 0, fmt.Errorf("training sequence %d: %w", i, err)
		}
		encoded[i] = encodedSequence{states: states, observations: observations}
		positions += len(states)
	}
	if positions == 0 {
		return nil, 0, ErrNoTrainingData
	}
	return encoded, positions, nil
}

// countEmissions counts state/observation pairs over every position.
func countEmissions(v Vocabulary, encoded []encodedSequence) Table {
	emission := NewTable(v.States.Len(), v.Observations.Len())
	for _, seq := range encoded {
		for p := range seq.states {
			emission.inc(seq.states[p], seq.observations[p])
		}
	}
	return emission
}

// baselineMLE estimates the marginal state distribution and the emission table.
func baselineMLE(v Vocabulary, training []types.LabeledSequence) ([]float64, Table, error) {
	encoded, positions, err := v.encodeTraining(training)
	if err != nil {
		return nil, Table{}, err
	}

	marginal := make([]float64, v.States.Len())
	for _, seq := range encoded {
		for _, s := range seq.states {
			marginal[s]++
		}
	}
	floats.Scale(1/float64(positions), marginal)

	emission := countEmissions(v, encoded)
	emission.normalizeRows()
	return marginal, emission, nil
}

// hmmMLE estimates the transition and emission tables. Transitions are only
// counted between consecutive positions of the same sequence.
func hmmMLE(v Vocabulary, training []types.LabeledSequence) (Table, Table, error) {
	encoded, _, err := v.encodeTraining(training)
	if err != nil {
		return Table{}, Table{}, err
	}

	transition := NewTable(v.States.Len(), v.States.Len())
	for _, seq := range encoded {
		for p := 0; p+1 < len(seq.states); p++ {
			transition.inc(seq.states[p], seq.states[p+1])
		}
	}
	transition.normalizeRows()

	emission := countEmissions(v, encoded)
	emission.normalizeRows()
	return transition, emission, nil
}
