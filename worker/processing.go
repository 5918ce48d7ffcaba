package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"text2phenotype.com/postagger/pipeline"
	"text2phenotype.com/postagger/tasks"
	"text2phenotype.com/postagger/utils"
)

type Message struct {
	WorkType string `json:"work_type"`
	RedisKey string `json:"redis_key"`
	Sender   string `json:"sender"`
	Version  string `json:"version"`
}

type Task struct {
	delivery   *amqp.Delivery
	chunkTask  *tasks.ChunkTask
	message    *Message
	redisKey   string
	taskLogger zerolog.Logger
}

var errPipelineClosed = errors.New("pipeline channel was closed before returning anything")

// processMessage handles one delivery end to end. The delivery is acked only
// after the sequencer has been told about the chunk. queue is the client the
// delivery came from; worker.queue may be replaced meanwhile.
func (worker *Worker) processMessage(queue messageQueue, delivery *amqp.Delivery) {
	ctx := context.Background()
	msgLogger := worker.workerLogger.With().Str("message_id", delivery.MessageId).Logger()
	task, err := worker.createTask(ctx, delivery)
	if err != nil {
		msgLogger.Err(err).
			Str("body", string(delivery.Body)).
			Msg("Failed to create task for delivery")
		queue.reject(delivery, msgLogger)
		return
	}
	if err = worker.processTask(ctx, task); err != nil {
		queue.reject(delivery, msgLogger)
		return
	}
	if err = queue.pingSequencer(task, *task.message); err != nil {
		task.taskLogger.Err(err).Msg("Got error while sending message to sequencer queue")
		queue.reject(delivery, msgLogger)
		return
	}
	if err = queue.acknowledge(delivery); err != nil {
		task.taskLogger.Err(err).Msg("Failed to acknowledge delivery")
	}
	task.taskLogger.Info().Msg("Finished processing RMQ message")
}

func (worker *Worker) createTask(ctx context.Context, delivery *amqp.Delivery) (*Task, error) {
	var message Message
	if err := json.Unmarshal(delivery.Body, &message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	chunkTask, err := worker.store.getChunkTask(ctx, message.RedisKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk task %q: %w", message.RedisKey, err)
	}
	return &Task{
		delivery:   delivery,
		chunkTask:  chunkTask,
		redisKey:   message.RedisKey,
		message:    &message,
		taskLogger: worker.workerLogger.With().Str("tid", message.RedisKey).Logger(),
	}, nil
}

// processTask returns an error only when the delivery has to be rejected.
// A pipeline failure is recorded on the task and is not such an error.
func (worker *Worker) processTask(ctx context.Context, task *Task) error {
	perform, err := worker.shouldPerformTask(ctx, task)
	if err != nil {
		task.taskLogger.Err(err).Msg("Got error while trying to decide whether to run task")
		return err
	}
	if !perform {
		return nil
	}

	err = worker.store.updateChunkTask(ctx, task, func(info *tasks.ChunkTaskInfo) {
		info.Start(formattedNow())
	})
	if err != nil {
		task.taskLogger.Err(err).Msg("Failed to mark task as started")
		return fmt.Errorf("failed to update task info: %w", err)
	}

	resultsKey, pipelineErr := worker.runPipeline(ctx, task)
	if pipelineErr != nil {
		task.taskLogger.Err(pipelineErr).Msg("Got error while running pipeline")
		return worker.store.updateChunkTask(ctx, task, func(info *tasks.ChunkTaskInfo) {
			info.Fail(formattedNow(), pipelineErr)
		})
	}

	task.taskLogger.Info().Str("results_file_key", resultsKey).Msg("Saved results, marking task as complete")
	err = worker.store.updateChunkTask(ctx, task, func(info *tasks.ChunkTaskInfo) {
		info.Complete(formattedNow(), resultsKey)
	})
	if err != nil {
		task.taskLogger.Err(err).Msg("Got error while trying to mark task as complete")
		return err
	}
	return nil
}

// runPipeline tags the chunk text and stores the response, returning its key.
func (worker *Worker) runPipeline(ctx context.Context, task *Task) (resultsKey string, err error) {
	defer utils.RecoverWithError(&err)
	task.taskLogger.Info().
		Int("attempt", task.chunkTask.TaskStatuses.Tagger.Attempts).
		Msg("Processing message from RMQ")

	data, err := worker.storage.download(ctx, task.chunkTask.TextFileKey)
	if err != nil {
		return "", fmt.Errorf("failed to fetch text from s3: %w", err)
	}

	request := pipeline.Request{
		Tid:  task.redisKey,
		Text: string(data),
	}
	pplnCtx, cancel := context.WithTimeout(ctx, worker.config.TaskTimeout)
	defer cancel()
	var result string
	select {
	case res, ok := <-worker.ppln(request):
		if !ok {
			return "", errPipelineClosed
		}
		result = res
	case <-pplnCtx.Done():
		return "", fmt.Errorf("pipeline did not finish: %w", pplnCtx.Err())
	}

	task.taskLogger.Info().Msg("Finished pipeline, saving results to s3")
	resultsKey = resultsFileKey(task)
	if err = worker.storage.upload(ctx, resultsKey, []byte(result)); err != nil {
		return "", fmt.Errorf("failed to save results: %w", err)
	}
	return resultsKey, nil
}

func (worker *Worker) shouldPerformTask(ctx context.Context, task *Task) (bool, error) {
	taskInfo := task.chunkTask.TaskStatuses.Tagger
	taskLogger := task.taskLogger

	if taskInfo.Status.Complete() {
		taskLogger.Info().Msg("Task is already done (might indicate issue acking message with RMQ). Sending back to Sequencer.")
		return false, nil
	}
	jobTask, err := worker.store.getJobTask(ctx, task)
	if err != nil {
		taskLogger.Err(err).Msg("Failed to query job task for chunk task")
		return false, err
	}
	if jobTask.UserCanceled {
		taskLogger.Info().Msg("Job was canceled, no need to perform this task. Sending back to Sequencer.")
		return false, worker.store.updateChunkTask(ctx, task, func(info *tasks.ChunkTaskInfo) {
			info.Cancel(formattedNow())
		})
	}
	if jobTask.StopDocumentsOnFailure {
		docTask, err := worker.store.getDocTask(ctx, task)
		if err != nil {
			return false, err
		}
		if docTask == nil {
			return false, errors.New("document task not found")
		}
		if len(docTask.FailedTasks) > 0 {
			failedTask := docTask.FailedTasks[0]
			taskLogger.Info().
				Str("failed_task", failedTask).
				Msg("Document already failed in another worker and won't be processed successfully. Sending back to Sequencer.")
			reason := fmt.Sprintf(
				"Task was marked as \"%s\" because of the current document has failed "+
					"in the \"%s\" worker and won't be processed successfully.",
				tasks.TaskStatusCanceled,
				failedTask,
			)
			return false, worker.store.updateChunkTask(ctx, task, func(info *tasks.ChunkTaskInfo) {
				info.Cancel(formattedNow(), reason)
			})
		}
	}
	if taskInfo.Attempts >= worker.config.TaskMaxRetries {
		taskLogger.Info().Msg("Tagging task has exceeded retries. Sending back to Sequencer.")
		if err := worker.store.addDocumentFailure(ctx, task); err != nil {
			return false, err
		}
		return false, worker.store.updateChunkTask(ctx, task, func(info *tasks.ChunkTaskInfo) {
			info.ExceedRetries(formattedNow(), worker.config.TaskMaxRetries)
		})
	}
	return true, nil
}
