package pos

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"text2phenotype.com/postagger/types"
	"text2phenotype.com/postagger/vocab"
)

func TestViterbi(t *testing.T) {
	t.Run("Dog barks", testDecodeDogBarks)
	t.Run("Single token", testSingleToken)
	t.Run("Tie goes to the lowest state", testViterbiTieBreak)
	t.Run("Context dependent tags", testContextDependentTags)
	t.Run("Long sequence does not underflow", testLongSequence)
	t.Run("Repeated decoding is deterministic", testDeterministicDecoding)
	t.Run("Empty sequence", testEmptySequence)
	t.Run("Unknown observation", testUnknownObservation)
	t.Run("Missing start state", testMissingStartState)
}

func testDecodeDogBarks(t *testing.T) {
	v, training := dogBarks(t)
	m, err := NewHMM(v, training)
	require.NoError(t, err)

	tags, err := m.Decode([][]string{{"dog", "barks"}})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"N", "V"}}, tags)

	best, err := m.Best([]string{"dog", "barks"})
	require.NoError(t, err)
	require.InDelta(t, 0.0, best.Score, tolerance)
}

func testSingleToken(t *testing.T) {
	v, training := dogBarks(t)
	m, err := NewHMM(v, training)
	require.NoError(t, err)

	// "barks" never follows START, so N and V both score log(0.5) and
	// the lower state id wins
	tags, err := m.Decode([][]string{{"barks"}, {"dog"}})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"N"}, {"N"}}, tags)

	training = append(training, repeat(seq([]string{"V"}, []string{"barks"}), 5)...)
	m, err = NewHMM(v, training)
	require.NoError(t, err)

	tags, err = m.Decode([][]string{{"barks"}, {"dog"}})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"V"}, {"N"}}, tags)
}

func testViterbiTieBreak(t *testing.T) {
	training := []types.LabeledSequence{
		{States: []string{vocab.StartState, "A"}, Observations: []string{vocab.StartWord, "x"}},
		{States: []string{vocab.StartState, "B"}, Observations: []string{vocab.StartWord, "x"}},
	}

	for _, tc := range []struct {
		states   []string
		expected string
	}{
		{[]string{vocab.StartState, "A", "B"}, "A"},
		{[]string{vocab.StartState, "B", "A"}, "B"},
	} {
		v, err := NewVocabulary(tc.states, []string{vocab.StartWord, "x"})
		require.NoError(t, err)
		m, err := NewHMM(v, training)
		require.NoError(t, err)

		tags, err := m.Decode([][]string{{"x"}, {"x", "x"}})
		require.NoError(t, err)
		require.Equal(t, []string{tc.expected}, tags[0])
		require.Equal(t, tc.expected, tags[1][0])
	}
}

func testContextDependentTags(t *testing.T) {
	v, training := canCorpus(t)
	hmm, err := NewHMM(v, training)
	require.NoError(t, err)
	baseline, err := NewBaseline(v, training)
	require.NoError(t, err)

	sentences := [][]string{{"the", "can"}, {"I", "can", "run"}}
	expected := [][]string{{"DT", "NN"}, {"PRP", "MD", "VB"}}

	tags, err := hmm.Decode(sentences)
	require.NoError(t, err)
	if diff := cmp.Diff(expected, tags); diff != "" {
		t.Errorf("hmm tags mismatch (-want +got):\n%s", diff)
	}

	tags, err = baseline.Predict(sentences)
	require.NoError(t, err)
	require.Equal(t, []string{"DT", "MD"}, tags[0], "the baseline ignores context")
	require.Equal(t, expected[1], tags[1])
}

func testLongSequence(t *testing.T) {
	v, training := dogBarks(t)
	m, err := NewHMM(v, training)
	require.NoError(t, err)

	words := make([]string, 2000)
	expected := make([]string, len(words))
	for i := range words {
		if i%2 == 0 {
			words[i], expected[i] = "dog", "N"
		} else {
			words[i], expected[i] = "barks", "V"
		}
	}

	best, err := m.Best(words)
	require.NoError(t, err)
	require.Equal(t, expected, best.Outcomes)
	require.False(t, math.IsInf(best.Score, -1))
	require.False(t, math.IsNaN(best.Score))
	require.Less(t, best.Score, 0.0)
}

func testDeterministicDecoding(t *testing.T) {
	v, training := canCorpus(t)
	m, err := NewHMM(v, training)
	require.NoError(t, err)

	sentences := [][]string{{"the", "dog"}, {"I", "run"}, {vocab.RareWord, "can"}}
	first, err := m.Decode(sentences)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := m.Decode(sentences)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func testEmptySequence(t *testing.T) {
	v, training := dogBarks(t)
	m, err := NewHMM(v, training)
	require.NoError(t, err)

	tags, err := m.Decode([][]string{{"dog"}, {}})
	require.Nil(t, tags, "no partial results")
	var empty *EmptySequenceError
	require.True(t, errors.As(err, &empty))
	require.Contains(t, err.Error(), "sentence 1")
}

func testUnknownObservation(t *testing.T) {
	v, training := dogBarks(t)
	m, err := NewHMM(v, training)
	require.NoError(t, err)

	tags, err := m.Decode([][]string{{"dog", "meows"}})
	require.Nil(t, tags)
	var unknown *UnknownSymbolError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, "meows", unknown.Symbol)
	require.Equal(t, "observation", unknown.Vocabulary)
}

func testMissingStartState(t *testing.T) {
	v, err := NewVocabulary([]string{"N"}, []string{"dog"})
	require.NoError(t, err)
	_, err = NewHMM(v, []types.LabeledSequence{{States: []string{"N"}, Observations: []string{"dog"}}})
	require.True(t, errors.Is(err, ErrMissingStartState))
}

func TestStabilizedTables(t *testing.T) {
	v, training := canCorpus(t)
	m, err := NewHMM(v, training)
	require.NoError(t, err)

	for _, tc := range []struct {
		name string
		mle  Table
		log  Table
	}{
		{"transition", m.transition, m.logTransition},
		{"emission", m.emission, m.logEmission},
	} {
		t.Run(tc.name, func(t *testing.T) {
			minPositive, ok := tc.mle.minPositive()
			require.True(t, ok)
			hasZero := false
			for i, p := range tc.mle.Data {
				lp := tc.log.Data[i]
				require.False(t, math.IsInf(lp, -1), "entry %d", i)
				if p == 0 {
					hasZero = true
					require.InDelta(t, math.Log(minPositive/2), lp, tolerance)
					require.Less(t, lp, math.Log(minPositive))
				} else {
					require.InDelta(t, math.Log(p), lp, tolerance)
				}
			}
			require.True(t, hasZero)
		})
	}

	// the public tables keep the maximum-likelihood zeros
	dt, _ := v.States.ID("DT")
	md, _ := v.States.ID("MD")
	require.Equal(t, 0.0, m.Transition().At(dt, md))
}

func TestFlooredTableWithoutPositiveEntries(t *testing.T) {
	table := NewTable(2, 2)
	floored := table.floored()
	require.Equal(t, []float64{1, 1, 1, 1}, floored.Data)
	require.Equal(t, []float64{0, 0, 0, 0}, table.Data)
	require.Equal(t, []float64{0, 0, 0, 0}, table.stabilize().Data)
}
