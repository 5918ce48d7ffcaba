// Package evaluation measures token-level tagging accuracy on held-out data.
package evaluation

import (
	"fmt"

	"text2phenotype.com/postagger/corpus"
	"text2phenotype.com/postagger/types"
)

// TagFunc tags a batch of sentences, one tag per word.
type TagFunc func(sentences [][]string) ([][]string, error)

type Result struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
}

// Accuracy is the fraction of correct predictions, 0 for an empty result.
func (res Result) Accuracy() float64 {
	if res.Total == 0 {
		return 0
	}
	return float64(res.Correct) / float64(res.Total)
}

// Evaluate tags the bracketed test sequences with their sentinels stripped
// and compares the predictions with the true states position by position.
func Evaluate(tag TagFunc, test []types.LabeledSequence) (Result, error) {
	sentences := make([][]string, len(test))
	for i, seq := range test {
		sentences[i] = corpus.Strip(seq.Observations)
	}

	predictions, err := tag(sentences)
	if err != nil {
		return Result{}, err
	}
	if len(predictions) != len(test) {
		return Result{}, fmt.Errorf("got %d predictions for %d sentences", len(predictions), len(test))
	}

	var res Result
	for i, predicted := range predictions {
		actual := corpus.Strip(test[i].States)
		if len(predicted) != len(actual) {
			return Result{}, fmt.Errorf("sentence %d: got %d tags for %d words", i, len(predicted), len(actual))
		}
		for j := range predicted {
			res.Total++
			if predicted[j] == actual[j] {
				res.Correct++
			}
		}
	}
	return res, nil
}
