package pos

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"text2phenotype.com/postagger/types"
	"text2phenotype.com/postagger/utils"
	"text2phenotype.com/postagger/vocab"
)

// Model is a trained tagger. Implementations are immutable and safe for concurrent use.
type Model interface {
	Decoder() string
	Vocabulary() Vocabulary
	// Tag returns one tag sequence per sentence. Sentences exclude sentinels,
	// and every word must be a known observation.
	Tag(sentences [][]string) ([][]string, error)
}

// Vocabulary holds the state and observation indices shared by all decoders.
type Vocabulary struct {
	States       *vocab.Index
	Observations *vocab.Index
}

func NewVocabulary(states []string, observations []string) (Vocabulary, error) {
	stateIdx, err := vocab.New(states)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("states: %w", err)
	}
	observationIdx, err := vocab.New(observations)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("observations: %w", err)
	}
	return Vocabulary{States: stateIdx, Observations: observationIdx}, nil
}

func (v Vocabulary) Fingerprint() uint64 {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[:8], v.States.Fingerprint())
	binary.LittleEndian.PutUint64(buf[8:], v.Observations.Fingerprint())
	return utils.HashBytes(buf)
}

func (v Vocabulary) stateID(label string) (int, error) {
	id, ok := v.States.ID(label)
	if !ok {
		return 0, &UnknownSymbolError{Symbol: label, Vocabulary: "state"}
	}
	return id, nil
}

func (v Vocabulary) observationID(symbol string) (int, error) {
	id, ok := v.Observations.ID(symbol)
	if !ok {
		return 0, &UnknownSymbolError{Symbol: symbol, Vocabulary: "observation"}
	}
	return id, nil
}

func (v Vocabulary) observationIDs(words []string) ([]int, error) {
	ids := make([]int, len(words))
	for i, word := range words {
		id, err := v.observationID(word)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

func (v Vocabulary) stateLabels(ids []int) []string {
	labels := make([]string, len(ids))
	for i, id := range ids {
		labels[i] = v.States.Label(id)
	}
	return labels
}

// Train estimates a model of the given decoder type from labeled sequences.
func Train(decoder string, v Vocabulary, training []types.LabeledSequence) (Model, error) {
	switch decoder {
	case types.DecoderBaseline:
		return NewBaseline(v, training)
	case types.DecoderHMM:
		return NewHMM(v, training)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDecoder, decoder)
	}
}

type modelFile struct {
	Decoder      string       `json:"decoder"`
	States       *vocab.Index `json:"states"`
	Observations *vocab.Index `json:"observations"`
	Fingerprint  uint64       `json:"fingerprint"`
	Marginal     []float64    `json:"marginal,omitempty"`
	Transition   *Table       `json:"transition,omitempty"`
	Emission     Table        `json:"emission"`
}

// SaveModel writes the maximum-likelihood tables of m as JSON.
func SaveModel(w io.Writer, m Model) error {
	v := m.Vocabulary()
	file := modelFile{
		Decoder:      m.Decoder(),
		States:       v.States,
		Observations: v.Observations,
		Fingerprint:  v.Fingerprint(),
	}
	switch model := m.(type) {
	case *Baseline:
		file.Marginal = model.marginal
		file.Emission = model.emission
	case *HMM:
		file.Transition = &model.transition
		file.Emission = model.emission
	default:
		return fmt.Errorf("%w: cannot save %T", ErrUnknownDecoder, m)
	}
	return json.NewEncoder(w).Encode(file)
}

func SaveModelToFile(modelFilePath string, m Model) (err error) {
	f, err := os.Create(modelFilePath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()
	return SaveModel(f, m)
}

// LoadModel reads a model written by SaveModel and rebuilds its decoder.
func LoadModel(r io.Reader) (Model, error) {
	var file modelFile
	if err := json.NewDecoder(r).Decode(&file); err != nil {
		return nil, err
	}
	if file.States == nil || file.Observations == nil {
		return nil, fmt.Errorf("model file has no vocabularies")
	}
	v := Vocabulary{States: file.States, Observations: file.Observations}
	if v.Fingerprint() != file.Fingerprint {
		return nil, ErrFingerprintMismatch
	}

	switch file.Decoder {
	case types.DecoderBaseline:
		return newBaseline(v, file.Marginal, file.Emission)
	case types.DecoderHMM:
		if file.Transition == nil {
			return nil, fmt.Errorf("hmm model file has no transition table")
		}
		return newHMM(v, *file.Transition, file.Emission)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDecoder, file.Decoder)
	}
}

func LoadModelFromFile(modelFilePath string) (Model, error) {
	f, err := os.Open(modelFilePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadModel(f)
}

func checkShape(name string, t Table, rows, cols int) error {
	if !t.valid() || t.Rows != rows || t.Cols != cols {
		return fmt.Errorf("%s table is %dx%d with %d entries, expected %dx%d",
			name, t.Rows, t.Cols, len(t.Data), rows, cols)
	}
	return nil
}
