package worker

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"text2phenotype.com/postagger/logger"
	"text2phenotype.com/postagger/pipeline"
	"text2phenotype.com/postagger/rmq"
	"text2phenotype.com/postagger/s3client"
	"text2phenotype.com/postagger/tasks"
)

type Config struct {
	TaskMaxRetries int           `envconfig:"MDL_COMN_RETRY_TASK_COUNT_MAX" default:"3"`
	TaskTimeout    time.Duration `envconfig:"POS_TASK_TIMEOUT" default:"10m"`
}

// Worker tags chunk texts announced on the task queue.
type Worker struct {
	config       Config
	store        taskStore
	storage      objectStorage
	queue        messageQueue
	workerLogger zerolog.Logger
	ppln         pipeline.Pipeline
}

func New(ppln pipeline.Pipeline) (*Worker, error) {
	workerLogger := logger.NewLogger("Worker")

	var config Config
	if err := envconfig.Process("", &config); err != nil {
		workerLogger.Err(err).Msg("Could not read config")
		return nil, err
	}

	worker := Worker{
		config:       config,
		workerLogger: workerLogger,
		ppln:         ppln,
	}
	for _, refresh := range []struct {
		name string
		call func() error
	}{
		{"RMQ", worker.refreshQueue},
		{"S3", worker.refreshStorage},
		{"Redis", worker.refreshStore},
	} {
		if err := refresh.call(); err != nil {
			workerLogger.Err(err).Msgf("Could not create %s client", refresh.name)
			worker.Close()
			return nil, err
		}
	}
	return &worker, nil
}

// StartWorker consumes deliveries until the RMQ connection can't be restored.
func (worker *Worker) StartWorker() error {
	defer worker.Close()
	for {
		select {
		case delivery, ok := <-worker.queue.deliveries():
			if ok {
				go worker.processMessage(worker.queue, &delivery)
				continue
			}
			if err := worker.recoverQueue("deliveries channel closed", nil); err != nil {
				return err
			}
		case rmqErr := <-worker.queue.respChanErrors():
			if rmqErr == nil {
				continue
			}
			if err := worker.recoverQueue("response connection received error", rmqErr); err != nil {
				return err
			}
		case rmqErr := <-worker.queue.reqChanErrors():
			if rmqErr == nil {
				continue
			}
			if err := worker.recoverQueue("request connection received error", rmqErr); err != nil {
				return err
			}
		}
	}
}

func (worker *Worker) recoverQueue(reason string, cause error) error {
	worker.workerLogger.Error().Err(cause).Msgf("%s, trying to refresh RMQ client", reason)
	if err := worker.refreshQueue(); err != nil {
		return fmt.Errorf("%s and refresh failed with: %w", reason, err)
	}
	return nil
}

func (worker *Worker) Close() {
	if worker.store != nil {
		worker.store.close()
	}
	if worker.storage != nil {
		worker.storage.close()
	}
	if worker.queue != nil {
		worker.queue.close()
	}
}

func (worker *Worker) refreshStore() error {
	worker.workerLogger.Info().Msg("Refreshing Redis client")
	tasksClient, err := tasks.NewClient()
	if err != nil {
		return err
	}
	if old := worker.store; old != nil {
		old.close()
	}
	worker.store = &redisTaskStore{&tasksClient}
	return nil
}

func (worker *Worker) refreshQueue() error {
	worker.workerLogger.Info().Msg("Refreshing RMQ client")
	rmqClient, err := rmq.NewClient()
	if err != nil {
		return err
	}
	if old := worker.queue; old != nil {
		old.close()
	}
	worker.queue = &rmqQueue{rmqClient}
	return nil
}

func (worker *Worker) refreshStorage() error {
	worker.workerLogger.Info().Msg("Refreshing S3 client")
	s3Client, err := s3client.New()
	if err != nil {
		return err
	}
	if old := worker.storage; old != nil {
		old.close()
	}
	worker.storage = &s3Storage{s3Client}
	return nil
}
