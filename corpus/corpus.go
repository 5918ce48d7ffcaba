// Package corpus loads labeled sentences and cleans them for training:
// sentinel bracketing, rare-word substitution, and train/test splitting.
package corpus

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"text2phenotype.com/postagger/types"
	"text2phenotype.com/postagger/utils"
	"text2phenotype.com/postagger/vocab"
)

// Corpus is raw labeled data. Tags and Words list the vocabularies without sentinels.
type Corpus struct {
	Tags      []string                `json:"tags"`
	Words     []string                `json:"words"`
	Sentences []types.LabeledSequence `json:"sentences"`
}

// Dataset is a cleaned corpus: vocabularies with sentinels and bracketed sequences.
type Dataset struct {
	States       []string
	Observations []string
	Sequences    []types.LabeledSequence
}

// Load decodes a JSON corpus. Missing vocabularies are derived from the
// sentences in first-seen order.
func Load(r io.Reader) (*Corpus, error) {
	var c Corpus
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, err
	}
	for i, sent := range c.Sentences {
		if !sent.Aligned() {
			return nil, fmt.Errorf("sentence %d has %d tags and %d words",
				i, len(sent.States), len(sent.Observations))
		}
	}
	if len(c.Tags) == 0 {
		c.Tags = firstSeen(c.Sentences, func(seq types.LabeledSequence) []string { return seq.States })
	}
	if len(c.Words) == 0 {
		c.Words = firstSeen(c.Sentences, func(seq types.LabeledSequence) []string { return seq.Observations })
	}
	return &c, nil
}

func LoadFromFile(corpusPath string) (*Corpus, error) {
	f, err := os.Open(corpusPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

// ReadVocabularies replaces the vocabularies with line lists. Empty paths are ignored.
func (c *Corpus) ReadVocabularies(tagsPath string, wordsPath string) error {
	if len(tagsPath) > 0 {
		tags, err := utils.ReadList(tagsPath)
		if err != nil {
			return fmt.Errorf("tags list: %w", err)
		}
		c.Tags = tags
	}
	if len(wordsPath) > 0 {
		words, err := utils.ReadList(wordsPath)
		if err != nil {
			return fmt.Errorf("words list: %w", err)
		}
		c.Words = words
	}
	return nil
}

// Prepare brackets every sentence, substitutes rare words and adds the
// sentinels to both vocabularies. The corpus itself is not modified.
func Prepare(c *Corpus, rareThreshold int) Dataset {
	data := BracketAll(c.Sentences)
	words, data := HandleRareWords(c.Words, data, rareThreshold)
	return Dataset{
		States:       AddStateSentinels(c.Tags),
		Observations: AddWordSentinels(words),
		Sequences:    data,
	}
}

func Bracket(seq types.LabeledSequence) types.LabeledSequence {
	return types.LabeledSequence{
		States:       AddStateSentinels(seq.States),
		Observations: AddWordSentinels(seq.Observations),
	}
}

func BracketAll(data []types.LabeledSequence) []types.LabeledSequence {
	res := make([]types.LabeledSequence, len(data))
	for i, seq := range data {
		res[i] = Bracket(seq)
	}
	return res
}

func AddStateSentinels(states []string) []string {
	return bracket(vocab.StartState, states, vocab.EndState)
}

func AddWordSentinels(words []string) []string {
	return bracket(vocab.StartWord, words, vocab.EndWord)
}

// Strip drops the leading and trailing sentinel.
func Strip(seq []string) []string {
	if len(seq) < 2 {
		return []string{}
	}
	res := make([]string, len(seq)-2)
	copy(res, seq[1:len(seq)-1])
	return res
}

func bracket(first string, items []string, last string) []string {
	res := make([]string, 0, len(items)+2)
	res = append(res, first)
	res = append(res, items...)
	return append(res, last)
}

func firstSeen(data []types.LabeledSequence, get func(seq types.LabeledSequence) []string) []string {
	seen := make(map[string]bool)
	var res []string
	for _, seq := range data {
		for _, item := range get(seq) {
			if seen[item] {
				continue
			}
			seen[item] = true
			res = append(res, item)
		}
	}
	return res
}
