package pos

import (
	"text2phenotype.com/postagger/corpus"
)

// NewTagger tags single sentences of raw words. Words missing from the
// observation vocabulary are replaced by the rare-word placeholder first.
func NewTagger(model Model) func(words []string) ([]string, error) {
	replace := corpus.NewRareWordReplacer(model.Vocabulary().Observations)

	return func(words []string) ([]string, error) {
		res, err := model.Tag([][]string{replace(words)})
		if err != nil {
			return nil, err
		}
		return res[0], nil
	}
}
