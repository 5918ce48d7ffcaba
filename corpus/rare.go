package corpus

import (
	"text2phenotype.com/postagger/types"
	"text2phenotype.com/postagger/vocab"
)

// CountWords counts observation occurrences over all sequences.
func CountWords(data []types.LabeledSequence) map[string]int {
	counts := make(map[string]int)
	for _, seq := range data {
		for _, word := range seq.Observations {
			counts[word]++
		}
	}
	return counts
}

// HandleRareWords keeps the words seen more than threshold times and appends
// the rare-word placeholder. Observations outside the kept vocabulary are
// replaced by the placeholder; sentinels are never replaced.
func HandleRareWords(words []string, data []types.LabeledSequence, threshold int) ([]string, []types.LabeledSequence) {
	counts := CountWords(data)

	kept := make([]string, 0, len(words)+1)
	known := make(map[string]bool, len(words))
	for _, word := range words {
		if counts[word] > threshold && !known[word] && !isSentinel(word) {
			kept = append(kept, word)
			known[word] = true
		}
	}
	kept = append(kept, vocab.RareWord)

	res := make([]types.LabeledSequence, len(data))
	for i, seq := range data {
		observations := make([]string, len(seq.Observations))
		for p, word := range seq.Observations {
			switch {
			case known[word], isSentinel(word):
				observations[p] = word
			default:
				observations[p] = vocab.RareWord
			}
		}
		res[i] = types.LabeledSequence{States: seq.States, Observations: observations}
	}
	return kept, res
}

// NewRareWordReplacer maps words unknown to observations to the rare-word
// placeholder. Without a placeholder in the index words pass through unchanged.
func NewRareWordReplacer(observations *vocab.Index) func(words []string) []string {
	hasRare := observations.Contains(vocab.RareWord)

	return func(words []string) []string {
		res := make([]string, len(words))
		for i, word := range words {
			if hasRare && !observations.Contains(word) {
				res[i] = vocab.RareWord
				continue
			}
			res[i] = word
		}
		return res
	}
}

func isSentinel(word string) bool {
	return word == vocab.StartWord || word == vocab.EndWord || word == vocab.RareWord
}
