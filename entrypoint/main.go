package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"text2phenotype.com/postagger/api"
	"text2phenotype.com/postagger/logger"
	"text2phenotype.com/postagger/pipeline"
	"text2phenotype.com/postagger/pos"
	"text2phenotype.com/postagger/types"
	"text2phenotype.com/postagger/worker"
)

type Config struct {
	ConfigPath    string `envconfig:"POS_CONFIG_PATH" required:"true"`
	RestAPIActive bool   `envconfig:"POS_REST_API_ACTIVE" default:"false"`
	RestAPIPort   string `envconfig:"POS_REST_API_PORT" default:"10000"`
}

const pipelineStartMaxRetries = 5

func main() {
	logger.SetupLogging()
	mainLogger := logger.NewLogger("Main")

	evaluate := flag.Bool("evaluate", false, "train both decoders per configuration and log their accuracy")
	saveModels := flag.Bool("save-models", false, "train the configured decoders and write them to model_path")
	wrap := flag.Bool("wrap", false, "run this executable as a supervised child process")
	flag.Parse()

	if *wrap {
		args := make([]string, 0, len(os.Args)-1)
		for _, arg := range os.Args[1:] {
			if arg != "-wrap" && arg != "--wrap" {
				args = append(args, arg)
			}
		}
		logger.WrapProcess(os.Args[0], args...)
		return
	}

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		mainLogger.Fatal().Err(err).Msg("Failed to read environment")
	}

	switch {
	case *evaluate:
		if err := evaluateConfigurations(config, mainLogger); err != nil {
			mainLogger.Fatal().Err(err).Msg("Evaluation failed")
		}
		return
	case *saveModels:
		if err := saveConfiguredModels(config, mainLogger); err != nil {
			mainLogger.Fatal().Err(err).Msg("Failed to save models")
		}
		return
	}

	ppln := loadPipeline(config, mainLogger)

	if config.RestAPIActive {
		go func() {
			mainLogger.Info().Msg("Starting API service")
			apiRequest := &api.Request{
				Pipeline: ppln,
			}
			http.HandleFunc("/", apiRequest.ProcessData)
			host := fmt.Sprintf(":%s", config.RestAPIPort)
			mainLogger.Info().Msgf("REST API on %s", host)
			err := http.ListenAndServe(host, nil)
			mainLogger.Fatal().Err(err).Msg("REST API stopped with error")
		}()
	}

	mainLogger.Info().Msg("Start POS tagger worker")
	for {
		rmqWorker, err := worker.New(ppln)
		if err != nil {
			mainLogger.Fatal().Err(err).Msg("Could not initialize RMQ worker")
		}
		if err = rmqWorker.StartWorker(); err != nil {
			mainLogger.Err(err).Msg("Worker returned with error. Launching new in 5 seconds")
			time.Sleep(5 * time.Second)
		}
	}
}

// loadPipeline blocks until every configured model is loaded.
func loadPipeline(config Config, mainLogger zerolog.Logger) pipeline.Pipeline {
	for retry := 0; retry < pipelineStartMaxRetries; retry++ {
		cfgs, err := types.LoadConfigurations(config.ConfigPath)
		if err != nil {
			mainLogger.Err(err).Msg("Failed to load configurations. Retrying in 5 sec")
			time.Sleep(5 * time.Second)
			continue
		}
		mainLogger.Info().Msgf("Loaded %d configurations", len(cfgs))

		models, err := pipeline.LoadModels(cfgs)
		if err != nil {
			mainLogger.Err(err).Msg("Failed to load models. Retrying in 5 sec")
			time.Sleep(5 * time.Second)
			continue
		}
		ppln, err := pipeline.Tagging(pipeline.TaggingParams{Models: models})
		if err != nil {
			mainLogger.Err(err).Msg("Failed to start tagging pipeline. Retrying in 5 sec")
			time.Sleep(5 * time.Second)
			continue
		}
		mainLogger.Info().Msg("Pipeline loaded")
		return ppln
	}
	mainLogger.Fatal().Msgf("Could not start pipeline after %d retries, exiting", pipelineStartMaxRetries)
	return nil
}

func evaluateConfigurations(config Config, mainLogger zerolog.Logger) error {
	cfgs, err := types.LoadConfigurations(config.ConfigPath)
	if err != nil {
		return err
	}
	for _, cfg := range cfgs {
		if len(cfg.CorpusPath) == 0 {
			mainLogger.Warn().Str("config_name", cfg.Name).Msg("No corpus_path, nothing to evaluate")
			continue
		}
		data, err := pipeline.PrepareDataset(cfg)
		if err != nil {
			return err
		}
		for _, decoder := range []string{types.DecoderBaseline, types.DecoderHMM} {
			_, res, err := pipeline.TrainModel(decoder, data)
			if err != nil {
				return fmt.Errorf("config %q: %w", cfg.Name, err)
			}
			mainLogger.Info().
				Str("config_name", cfg.Name).
				Str("decoder", decoder).
				Int("total", res.Total).
				Int("correct", res.Correct).
				Float64("accuracy", res.Accuracy()).
				Msg("Evaluated decoder")
		}
	}
	return nil
}

func saveConfiguredModels(config Config, mainLogger zerolog.Logger) error {
	cfgs, err := types.LoadConfigurations(config.ConfigPath)
	if err != nil {
		return err
	}
	for _, cfg := range cfgs {
		cfgLogger := mainLogger.With().Str("config_name", cfg.Name).Logger()
		if len(cfg.ModelPath) == 0 || len(cfg.CorpusPath) == 0 {
			cfgLogger.Warn().Msg("Skipping configuration without model_path or corpus_path")
			continue
		}
		data, err := pipeline.PrepareDataset(cfg)
		if err != nil {
			return err
		}
		m, res, err := pipeline.TrainModel(cfg.Decoder, data)
		if err != nil {
			return fmt.Errorf("config %q: %w", cfg.Name, err)
		}
		if err = pos.SaveModelToFile(cfg.ModelPath, m); err != nil {
			return fmt.Errorf("config %q: %w", cfg.Name, err)
		}
		cfgLogger.Info().
			Str("model_path", cfg.ModelPath).
			Float64("accuracy", res.Accuracy()).
			Msg("Saved model")
	}
	return nil
}
