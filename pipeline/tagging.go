package pipeline

import (
	"encoding/json"
	"fmt"

	"text2phenotype.com/postagger/logger"
	"text2phenotype.com/postagger/pos"
)

// NamedModel is a trained model with the name of its configuration.
type NamedModel struct {
	Name  string
	Model pos.Model
}

type TaggingParams struct {
	Models []NamedModel
}

// Tagging detects sentences once and tags them with every model in parallel.
func Tagging(params TaggingParams) (Pipeline, error) {
	pplnLogger := logger.NewLogger("Tagging pipeline")
	if len(params.Models) == 0 {
		return nil, fmt.Errorf("tagging pipeline needs at least one model")
	}
	for _, m := range params.Models {
		pplnLogger.Info().
			Str("config_name", m.Name).
			Str("decoder", m.Model.Decoder()).
			Int("states", m.Model.Vocabulary().States.Len()).
			Int("observations", m.Model.Vocabulary().Observations.Len()).
			Msg("Registered model")
	}

	sentenceDetector := NewLineSentenceDetector()
	splitter := NewSentenceChannelSplitter(len(params.Models))
	taggers := make([]Tagger, len(params.Models))
	for i, m := range params.Models {
		taggers[i] = NewPOSTagger(m.Name, m.Model)
	}
	taggingResult := NewTaggingResult()

	return func(request Request) <-chan string {
		responseChan := make(chan string, 1)
		reqLogger := pplnLogger.With().Str("tid", request.Tid).Logger()
		reqLogger.Info().Msg("Started tagging pipeline")
		errLogger := reqLogger.With().Caller().Logger()

		go func() {
			var in = make(chan string)

			sd := sentenceDetector(in)
			split := splitter(sd)

			resultChannel := make(chan Result)
			defer close(resultChannel)

			for i, m := range params.Models {
				tagged := taggers[i](split[i])
				connect(taggingResult(tagged, m, request), resultChannel)
			}

			in <- request.Text
			close(in)
			response := make(map[string]interface{})

			for i := 0; i < len(params.Models); i++ {
				res := <-resultChannel
				reqLogger.Info().
					Str("config_name", res.ConfigName).
					Msg("Finished pipeline for configuration")
				response[res.ConfigName] = res.Data
			}

			buf, err := json.Marshal(response)
			if err != nil {
				errLogger.Err(err).Msg("Failed to marshall response")
			}
			reqLogger.Info().Msg("Finished tagging pipeline")
			responseChan <- string(buf)
		}()

		return responseChan
	}, nil
}

func connect(from <-chan Result, to chan<- Result) {
	go func() {
		for v := range from {
			to <- v
		}
	}()
}
