package tasks

import (
	"context"
	"fmt"

	"text2phenotype.com/postagger/redis"
	"text2phenotype.com/postagger/utils/maps"
)

const ChunksDB redis.DB = 2

// WorkerName identifies this worker in task documents and sequencer messages.
const WorkerName = "pos_tagger"

type TaskStatus string

const (
	TaskStatusProcessing       TaskStatus = "processing"
	TaskStatusSubmitted        TaskStatus = "submitted"
	TaskStatusStarted          TaskStatus = "started"
	TaskStatusFailed           TaskStatus = "failed"
	TaskStatusCompletedSuccess TaskStatus = "completed - success"
	TaskStatusCompletedFailure TaskStatus = "completed - failure"
	TaskStatusCanceled         TaskStatus = "canceled"
)

func (s TaskStatus) Complete() bool {
	return s == TaskStatusCompletedSuccess || s == TaskStatusCompletedFailure || s == TaskStatusCanceled
}

func (s TaskStatus) Submitted() bool {
	return s == TaskStatusSubmitted || s == TaskStatusStarted || s == TaskStatusProcessing
}

type ChunkTask struct {
	maps.BaseDocument
	DocID        string            `json:"document_id"`
	JobID        string            `json:"job_id"`
	TextFileKey  string            `json:"text_file_key"`
	TaskStatuses ChunkTaskStatuses `json:"task_statuses"`
}

// ChunkTaskStatuses holds the status of this worker only. Statuses of the
// other workers stay untouched in the stored document.
type ChunkTaskStatuses struct {
	Tagger ChunkTaskInfo `json:"pos_tagger"`
}

type ChunkTaskInfo struct {
	ResultsFileKey    string     `json:"results_file_key"`
	StartedAt         *string    `json:"started_at"`
	CompletedAt       *string    `json:"completed_at"`
	Attempts          int        `json:"attempts"`
	Status            TaskStatus `json:"status"`
	Dependencies      []string   `json:"dependencies"`
	ModelDependencies []float64  `json:"model_dependencies"`
	ErrorMessages     []string   `json:"error_messages"`
}

func (info *ChunkTaskInfo) Start(now string) {
	info.Status = TaskStatusStarted
	info.Attempts++
	info.StartedAt = &now
	info.CompletedAt = nil
}

func (info *ChunkTaskInfo) Cancel(now string, errorMessages ...string) {
	info.Status = TaskStatusCanceled
	info.StartedAt = &now
	info.CompletedAt = &now
	info.Attempts++
	info.ErrorMessages = append(info.ErrorMessages, errorMessages...)
}

func (info *ChunkTaskInfo) ExceedRetries(now string, maxRetries int) {
	info.Status = TaskStatusCompletedFailure
	info.StartedAt = &now
	info.CompletedAt = &now
	info.Attempts++
	info.ErrorMessages = append(info.ErrorMessages, fmt.Sprintf(
		"Task has exceeded retries. (Attempts: %d, max retries: %d )",
		info.Attempts,
		maxRetries,
	))
}

// Fail records a failed attempt. The task stays eligible for a retry.
func (info *ChunkTaskInfo) Fail(now string, err error) {
	info.Status = TaskStatusFailed
	info.CompletedAt = &now
	info.ErrorMessages = append(info.ErrorMessages, err.Error())
}

func (info *ChunkTaskInfo) Complete(now string, resultsFileKey string) {
	if !info.Status.Complete() {
		info.Status = TaskStatusCompletedSuccess
	}
	info.CompletedAt = &now
	info.ResultsFileKey = resultsFileKey
}

type ChunkTasks struct {
	client redis.Client
}

func (tasks ChunkTasks) Get(ctx context.Context, redisKey string) (*ChunkTask, error) {
	var task ChunkTask
	if err := tasks.client.GetPartialDocument(ctx, redisKey, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (tasks ChunkTasks) Update(ctx context.Context, redisKey string, updateFunc func(task *ChunkTask)) error {
	var task ChunkTask
	return tasks.client.UpdatePartialDocument(ctx, redisKey, &task, func() { updateFunc(&task) })
}
