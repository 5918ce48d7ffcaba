package pipeline

import (
	"sort"

	"text2phenotype.com/postagger/types"
)

type Result struct {
	ConfigName string
	Data       interface{}
}

// NewTaggingResult collects the tagged sentences of one model into a
// response ordered by sentence index.
func NewTaggingResult() func(in <-chan types.Sentence, model NamedModel, request Request) <-chan Result {
	return func(in <-chan types.Sentence, model NamedModel, request Request) <-chan Result {
		out := make(chan Result)

		go func() {
			defer close(out)

			var sentences []types.Sentence
			for sent := range in {
				sentences = append(sentences, sent)
			}
			sort.Slice(sentences, func(i, j int) bool {
				return sentences[i].Index < sentences[j].Index
			})

			response := types.TaggingResponse{
				BaseResponse: types.BaseResponse{DocId: request.Tid},
				Decoder:      model.Model.Decoder(),
				Sentences:    make([]types.TaggedSentence, len(sentences)),
			}
			for i, sent := range sentences {
				response.Sentences[i] = taggedSentence(sent)
			}

			out <- Result{
				ConfigName: model.Name,
				Data:       response,
			}
		}()

		return out
	}
}

func taggedSentence(sent types.Sentence) types.TaggedSentence {
	res := types.TaggedSentence{
		Id:       sent.Index,
		Sentence: sent.Offsets(),
		Tokens:   make([]types.TaggedToken, len(sent.Tokens)),
	}
	if sent.Err != nil {
		res.Error = sent.Err.Error()
	}
	for i, token := range sent.Tokens {
		res.Tokens[i] = types.TaggedToken{
			Text: token.Text,
			Tag:  token.Tag,
			Span: token.Offsets(),
		}
	}
	return res
}
