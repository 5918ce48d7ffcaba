package pipeline

import (
	"sync"

	"text2phenotype.com/postagger/logger"
	"text2phenotype.com/postagger/pos"
	"text2phenotype.com/postagger/types"
)

type Tagger func(in <-chan types.Sentence) <-chan types.Sentence

// NewPOSTagger tags sentences concurrently. A sentence that cannot be
// tagged carries the error and keeps its tokens untagged; the others
// are not affected.
func NewPOSTagger(name string, model pos.Model) Tagger {
	tagger := pos.NewTagger(model)
	taggerLogger := logger.NewLogger("POS tagger").With().
		Str("config_name", name).
		Str("decoder", model.Decoder()).
		Logger()

	return func(in <-chan types.Sentence) <-chan types.Sentence {
		out := make(chan types.Sentence)
		go func() {
			defer close(out)
			var wg sync.WaitGroup
			for sent := range in {

				wg.Add(1)
				go func(sent types.Sentence) {
					defer wg.Done()
					tags, err := tagger(sent.Words())
					if err != nil {
						taggerLogger.Warn().Err(err).
							Int("sentence", sent.Index).
							Msg("Failed to tag sentence")
						sent.Err = err
					} else {
						for i, tag := range tags {
							sent.Tokens[i].Tag = tag
						}
					}
					out <- sent
				}(sent)

			}

			wg.Wait()

		}()
		return out
	}
}
