package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"text2phenotype.com/postagger/corpus"
	"text2phenotype.com/postagger/pos"
	"text2phenotype.com/postagger/types"
)

// canSentences make "can" a noun after "the" and a modal after "I".
func canSentences() []types.LabeledSequence {
	var res []types.LabeledSequence
	add := func(n int, states []string, observations []string) {
		for i := 0; i < n; i++ {
			res = append(res, types.LabeledSequence{States: states, Observations: observations})
		}
	}
	add(2, []string{"DT", "NN"}, []string{"the", "can"})
	add(2, []string{"DT", "NN"}, []string{"the", "dog"})
	add(3, []string{"PRP", "MD", "VB"}, []string{"I", "can", "run"})
	return res
}

func canCorpus() *corpus.Corpus {
	return &corpus.Corpus{
		Tags:      []string{"DT", "NN", "PRP", "MD", "VB"},
		Words:     []string{"the", "can", "dog", "I", "run"},
		Sentences: canSentences(),
	}
}

func trainModel(t *testing.T, decoder string) pos.Model {
	data := corpus.Prepare(canCorpus(), 0)
	v, err := pos.NewVocabulary(data.States, data.Observations)
	require.NoError(t, err)
	m, err := pos.Train(decoder, v, data.Sequences)
	require.NoError(t, err)
	return m
}

// writeCorpus stores the corpus as JSON under dir and returns its path.
func writeCorpus(t *testing.T, dir string, c *corpus.Corpus) string {
	buf, err := json.Marshal(c)
	require.NoError(t, err)
	corpusPath := filepath.Join(dir, "corpus.json")
	require.NoError(t, os.WriteFile(corpusPath, buf, 0644))
	return corpusPath
}
