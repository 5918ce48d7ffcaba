package pipeline

import (
	"unicode"

	"text2phenotype.com/postagger/types"
)

type SentenceDetector func(in <-chan string) <-chan types.Sentence

// NewLineSentenceDetector emits one sentence per non-blank line.
func NewLineSentenceDetector() SentenceDetector {
	return func(in <-chan string) <-chan types.Sentence {
		out := make(chan types.Sentence)

		go func() {
			defer close(out)
			for text := range in {
				for _, sent := range DetectSentences(text) {
					out <- sent
				}
			}
		}()
		return out
	}
}

// DetectSentences splits text into lines and lines into whitespace separated
// tokens. Offsets count runes from the start of the text, End exclusive.
func DetectSentences(text string) []types.Sentence {
	runes := []rune(text)
	var sentences []types.Sentence
	var current *types.Sentence
	tokenBegin := -1

	span := func(begin, end int) types.Span {
		return types.Span{Begin: int32(begin), End: int32(end), Text: string(runes[begin:end])}
	}
	flushToken := func(end int) {
		if tokenBegin < 0 {
			return
		}
		current.Tokens = append(current.Tokens, &types.Token{Span: span(tokenBegin, end)})
		tokenBegin = -1
	}
	flushSentence := func(end int) {
		if current == nil {
			return
		}
		flushToken(end)
		last := current.Tokens[len(current.Tokens)-1]
		current.Span = span(int(current.Begin), int(last.End))
		sentences = append(sentences, *current)
		current = nil
	}

	for i, ch := range runes {
		switch {
		case ch == '\n':
			flushSentence(i)
		case unicode.IsSpace(ch):
			if current != nil {
				flushToken(i)
			}
		default:
			if current == nil {
				current = &types.Sentence{
					Span:  types.Span{Begin: int32(i)},
					Index: len(sentences),
				}
			}
			if tokenBegin < 0 {
				tokenBegin = i
			}
		}
	}
	flushSentence(len(runes))
	return sentences
}
