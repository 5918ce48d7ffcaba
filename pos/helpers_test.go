package pos

import (
	"testing"

	"github.com/stretchr/testify/require"
	"text2phenotype.com/postagger/types"
	"text2phenotype.com/postagger/vocab"
)

const tolerance = 1e-9

func seq(states []string, observations []string) types.LabeledSequence {
	return types.LabeledSequence{
		States:       append(append([]string{vocab.StartState}, states...), vocab.EndState),
		Observations: append(append([]string{vocab.StartWord}, observations...), vocab.EndWord),
	}
}

func repeat(s types.LabeledSequence, n int) []types.LabeledSequence {
	res := make([]types.LabeledSequence, n)
	for i := range res {
		res[i] = s
	}
	return res
}

// dogBarks is the two-word model: N emits "dog", V emits "barks".
func dogBarks(t *testing.T) (Vocabulary, []types.LabeledSequence) {
	v, err := NewVocabulary(
		[]string{vocab.StartState, "N", "V", vocab.EndState},
		[]string{vocab.StartWord, "dog", "barks", vocab.EndWord},
	)
	require.NoError(t, err)
	return v, repeat(seq([]string{"N", "V"}, []string{"dog", "barks"}), 5)
}

// canCorpus makes "can" a noun after a determiner and a modal after a pronoun.
// Counted alone "can" is mostly a modal.
func canCorpus(t *testing.T) (Vocabulary, []types.LabeledSequence) {
	v, err := NewVocabulary(
		[]string{vocab.StartState, "DT", "NN", "PRP", "MD", "VB", vocab.EndState},
		[]string{vocab.StartWord, "the", "can", "dog", "I", "run", vocab.RareWord, vocab.EndWord},
	)
	require.NoError(t, err)

	var training []types.LabeledSequence
	training = append(training, repeat(seq([]string{"DT", "NN"}, []string{"the", "can"}), 2)...)
	training = append(training, repeat(seq([]string{"DT", "NN"}, []string{"the", "dog"}), 2)...)
	training = append(training, repeat(seq([]string{"PRP", "MD", "VB"}, []string{"I", "can", "run"}), 3)...)
	return v, training
}

func requireRowsAreDistributions(t *testing.T, table Table) {
	for i := 0; i < table.Rows; i++ {
		sum := 0.0
		for _, p := range table.Row(i) {
			require.GreaterOrEqual(t, p, 0.0)
			require.LessOrEqual(t, p, 1.0)
			sum += p
		}
		if sum != 0 {
			require.InDelta(t, 1.0, sum, tolerance, "row %d", i)
		}
	}
}

func entry(t *testing.T, v Vocabulary, table Table, state string, col string, colIdx *vocab.Index) float64 {
	s, ok := v.States.ID(state)
	require.True(t, ok)
	c, ok := colIdx.ID(col)
	require.True(t, ok)
	return table.At(s, c)
}
