package types

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
	"text2phenotype.com/postagger/logger"
)

const (
	// decoder type
	DecoderHMM      = "hmm"
	DecoderBaseline = "baseline"

	DefaultRareThreshold = 2
	DefaultTrainRatio    = 0.8
)

type ModelConfig struct {
	Name          string  `yaml:"-" json:"name"`
	FilePath      string  `yaml:"-" json:"file_path"`
	Decoder       string  `yaml:"decoder" json:"decoder"`
	CorpusPath    string  `yaml:"corpus_path" json:"corpus_path"`
	WordsPath     string  `yaml:"words_path" json:"words_path"`
	TagsPath      string  `yaml:"tags_path" json:"tags_path"`
	ModelPath     string  `yaml:"model_path" json:"model_path"`
	RareThreshold int     `yaml:"rare_threshold" json:"rare_threshold"`
	TrainRatio    float64 `yaml:"train_ratio" json:"train_ratio"`
}

func NewModelConfig(name string) ModelConfig {
	return ModelConfig{
		Name:          name,
		Decoder:       DecoderHMM,
		RareThreshold: DefaultRareThreshold,
		TrainRatio:    DefaultTrainRatio,
	}
}

func (cfg ModelConfig) Validate() error {
	if cfg.Decoder != DecoderHMM && cfg.Decoder != DecoderBaseline {
		return fmt.Errorf("config %q: wrong decoder type %q", cfg.Name, cfg.Decoder)
	}
	if len(cfg.CorpusPath) == 0 && len(cfg.ModelPath) == 0 {
		return fmt.Errorf("config %q: either corpus_path or model_path is required", cfg.Name)
	}
	if cfg.TrainRatio <= 0 || cfg.TrainRatio > 1 {
		return fmt.Errorf("config %q: train_ratio must be in (0, 1], got %v", cfg.Name, cfg.TrainRatio)
	}
	if cfg.RareThreshold < 0 {
		return fmt.Errorf("config %q: rare_threshold must not be negative", cfg.Name)
	}
	return nil
}

// resolve makes relative resource paths relative to the config directory.
func (cfg *ModelConfig) resolve(dirPath string) {
	for _, p := range []*string{&cfg.CorpusPath, &cfg.WordsPath, &cfg.TagsPath, &cfg.ModelPath} {
		if len(*p) > 0 && !path.IsAbs(*p) {
			*p = path.Join(dirPath, *p)
		}
	}
}

func ParseModelConfig(name string, buf []byte) (ModelConfig, error) {
	cfg := NewModelConfig(name)
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, fmt.Errorf("config %q: %w", name, err)
	}
	cfg.Decoder = strings.ToLower(cfg.Decoder)
	return cfg, cfg.Validate()
}

// LoadConfigurations reads every *.yaml file of dirPath. Broken files are logged and skipped.
func LoadConfigurations(dirPath string) ([]ModelConfig, error) {
	posLogger := logger.NewLogger("LoadConfigurations")

	files, err := os.ReadDir(dirPath)
	if err != nil {
		return nil, err
	}

	var wg sync.WaitGroup
	configChan := make(chan ModelConfig, len(files))
	for _, f := range files {
		// Skip dirs and non-yaml files
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".yaml") {
			continue
		}

		wg.Add(1)
		go func(file os.DirEntry) {
			defer wg.Done()
			filePath := path.Join(dirPath, file.Name())
			buf, err := os.ReadFile(filePath)
			if err != nil {
				posLogger.Err(err).Str("file_path", filePath).Msg("Failed to read configuration")
				return
			}
			cfg, err := ParseModelConfig(strings.TrimSuffix(file.Name(), ".yaml"), buf)
			if err != nil {
				posLogger.Err(err).Str("file_path", filePath).Msg("Skipping invalid configuration")
				return
			}
			cfg.FilePath = filePath
			cfg.resolve(dirPath)

			configChan <- cfg
		}(f)
	}

	go func() {
		wg.Wait()
		close(configChan)
	}()

	configs := make([]ModelConfig, 0, len(files))
	for cfg := range configChan {
		configs = append(configs, cfg)
	}
	sort.Slice(configs, func(i, j int) bool {
		return configs[i].Name < configs[j].Name
	})
	return configs, nil
}
