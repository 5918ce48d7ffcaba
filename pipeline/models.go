package pipeline

import (
	"errors"
	"fmt"
	"os"

	"text2phenotype.com/postagger/corpus"
	"text2phenotype.com/postagger/evaluation"
	"text2phenotype.com/postagger/logger"
	"text2phenotype.com/postagger/pos"
	"text2phenotype.com/postagger/types"
)

// Dataset is a prepared corpus split into training and test sequences.
type Dataset struct {
	Vocabulary pos.Vocabulary
	Train      []types.LabeledSequence
	Test       []types.LabeledSequence
}

// PrepareDataset reads the corpus of cfg, substitutes rare words and splits it.
func PrepareDataset(cfg types.ModelConfig) (Dataset, error) {
	raw, err := corpus.LoadFromFile(cfg.CorpusPath)
	if err != nil {
		return Dataset{}, fmt.Errorf("config %q: %w", cfg.Name, err)
	}
	if err = raw.ReadVocabularies(cfg.TagsPath, cfg.WordsPath); err != nil {
		return Dataset{}, fmt.Errorf("config %q: %w", cfg.Name, err)
	}

	data := corpus.Prepare(raw, cfg.RareThreshold)
	v, err := pos.NewVocabulary(data.States, data.Observations)
	if err != nil {
		return Dataset{}, fmt.Errorf("config %q: %w", cfg.Name, err)
	}
	train, test := corpus.Split(data.Sequences, cfg.TrainRatio)
	return Dataset{Vocabulary: v, Train: train, Test: test}, nil
}

// TrainModel trains a decoder on the training part of the dataset and
// evaluates it on the test part.
func TrainModel(decoder string, data Dataset) (pos.Model, evaluation.Result, error) {
	m, err := pos.Train(decoder, data.Vocabulary, data.Train)
	if err != nil {
		return nil, evaluation.Result{}, err
	}
	res, err := evaluation.Evaluate(m.Tag, data.Test)
	if err != nil {
		return nil, evaluation.Result{}, err
	}
	return m, res, nil
}

// LoadModel reads the persisted model of cfg. Without one it trains the
// configured decoder from the corpus.
func LoadModel(cfg types.ModelConfig) (pos.Model, error) {
	modelLogger := logger.NewLogger("Model loader").With().
		Str("config_name", cfg.Name).
		Str("decoder", cfg.Decoder).
		Logger()

	if len(cfg.ModelPath) > 0 {
		m, err := pos.LoadModelFromFile(cfg.ModelPath)
		switch {
		case err == nil:
			if m.Decoder() != cfg.Decoder {
				return nil, fmt.Errorf("config %q: model file %s holds a %s decoder",
					cfg.Name, cfg.ModelPath, m.Decoder())
			}
			modelLogger.Info().Str("model_path", cfg.ModelPath).Msg("Loaded model")
			return m, nil
		case !errors.Is(err, os.ErrNotExist) || len(cfg.CorpusPath) == 0:
			return nil, fmt.Errorf("config %q: %w", cfg.Name, err)
		}
		modelLogger.Warn().Str("model_path", cfg.ModelPath).Msg("Model file not found, training from corpus")
	}

	data, err := PrepareDataset(cfg)
	if err != nil {
		return nil, err
	}
	m, res, err := TrainModel(cfg.Decoder, data)
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", cfg.Name, err)
	}
	modelLogger.Info().
		Str("corpus_path", cfg.CorpusPath).
		Int("training_sequences", len(data.Train)).
		Int("total", res.Total).
		Int("correct", res.Correct).
		Float64("accuracy", res.Accuracy()).
		Msg("Trained model")
	return m, nil
}

func LoadModels(cfgs []types.ModelConfig) ([]NamedModel, error) {
	models := make([]NamedModel, 0, len(cfgs))
	for _, cfg := range cfgs {
		m, err := LoadModel(cfg)
		if err != nil {
			return nil, err
		}
		models = append(models, NamedModel{Name: cfg.Name, Model: m})
	}
	return models, nil
}
