package pos

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"text2phenotype.com/postagger/types"
	"text2phenotype.com/postagger/vocab"
)

// HMM is a first-order hidden Markov model decoded with Viterbi.
//
// transition and emission hold the maximum-likelihood estimates. The log
// tables are floored copies computed once in the constructor, so an *HMM
// can be shared by concurrent decoders.
type HMM struct {
	vocabulary    Vocabulary
	transition    Table
	emission      Table
	logTransition Table
	logEmission   Table
	start         int
}

func NewHMM(v Vocabulary, training []types.LabeledSequence) (*HMM, error) {
	transition, emission, err := hmmMLE(v, training)
	if err != nil {
		return nil, err
	}
	return newHMM(v, transition, emission)
}

func newHMM(v Vocabulary, transition Table, emission Table) (*HMM, error) {
	start, ok := v.States.ID(vocab.StartState)
	if !ok {
		return nil, ErrMissingStartState
	}
	numStates := v.States.Len()
	if err := checkShape("transition", transition, numStates, numStates); err != nil {
		return nil, err
	}
	if err := checkShape("emission", emission, numStates, v.Observations.Len()); err != nil {
		return nil, err
	}
	if err := transition.checkRows("transition"); err != nil {
		return nil, err
	}
	if err := emission.checkRows("emission"); err != nil {
		return nil, err
	}

	return &HMM{
		vocabulary:    v,
		transition:    transition,
		emission:      emission,
		logTransition: transition.stabilize(),
		logEmission:   emission.stabilize(),
		start:         start,
	}, nil
}

func (m *HMM) Decoder() string {
	return types.DecoderHMM
}

func (m *HMM) Vocabulary() Vocabulary {
	return m.vocabulary
}

// Transition returns a copy of the estimated transition table.
func (m *HMM) Transition() Table {
	return m.transition.Clone()
}

// Emission returns a copy of the estimated emission table.
func (m *HMM) Emission() Table {
	return m.emission.Clone()
}

// Decode returns the most probable state path of every sentence.
// The whole batch fails on the first empty sentence or unknown word.
func (m *HMM) Decode(sentences [][]string) ([][]string, error) {
	result := make([][]string, len(sentences))
	for i, words := range sentences {
		seq, err := m.Best(words)
		if err != nil {
			return nil, fmt.Errorf("sentence %d: %w", i, err)
		}
		result[i] = seq.Outcomes
	}
	return result, nil
}

func (m *HMM) Tag(sentences [][]string) ([][]string, error) {
	return m.Decode(sentences)
}

// Best returns the most probable state path of words with its log-probability.
func (m *HMM) Best(words []string) (Sequence, error) {
	if len(words) == 0 {
		return Sequence{}, &EmptySequenceError{}
	}
	obs, err := m.vocabulary.observationIDs(words)
	if err != nil {
		return Sequence{}, err
	}
	path, score := m.viterbi(obs)
	return Sequence{
		Score:    score,
		Outcomes: m.vocabulary.stateLabels(path),
	}, nil
}

// viterbi runs in log-space over flat n x states score and backpointer tables.
// Ties are resolved towards the lowest state id.
func (m *HMM) viterbi(obs []int) ([]int, float64) {
	n, numStates := len(obs), m.vocabulary.States.Len()
	score := make([]float64, n*numStates)
	back := make([]int, n*numStates)

	// log Pr(j|START) + log Pr(x_0|j)
	startRow := m.logTransition.Row(m.start)
	for j := 0; j < numStates; j++ {
		score[j] = startRow[j] + m.logEmission.At(j, obs[0])
	}

	for t := 1; t < n; t++ {
		prev := score[(t-1)*numStates : t*numStates]
		curr := score[t*numStates : (t+1)*numStates]
		ptrs := back[t*numStates : (t+1)*numStates]
		for j := 0; j < numStates; j++ {
			best, arg := math.Inf(-1), 0
			for i := 0; i < numStates; i++ {
				v := prev[i] + m.logTransition.At(i, j)
				if v > best {
					best, arg = v, i
				}
			}
			curr[j] = best + m.logEmission.At(j, obs[t])
			ptrs[j] = arg
		}
	}

	last := score[(n-1)*numStates:]
	path := make([]int, n)
	path[n-1] = floats.MaxIdx(last)
	for t := n - 1; t > 0; t-- {
		path[t-1] = back[t*numStates+path[t]]
	}
	return path, last[path[n-1]]
}
