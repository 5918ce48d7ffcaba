package worker

import (
	"context"

	"text2phenotype.com/postagger/tasks"
)

type taskStore interface {
	getChunkTask(ctx context.Context, redisKey string) (*tasks.ChunkTask, error)
	getJobTask(ctx context.Context, task *Task) (*tasks.JobTask, error)
	getDocTask(ctx context.Context, task *Task) (*tasks.DocumentTaskCached, error)
	// updateChunkTask applies update to the stored status of this worker
	updateChunkTask(ctx context.Context, task *Task, update func(info *tasks.ChunkTaskInfo)) error
	addDocumentFailure(ctx context.Context, task *Task) error
	close()
}

type redisTaskStore struct {
	tasksClient *tasks.Client
}

func (store *redisTaskStore) close() {
	store.tasksClient.Close()
}

func (store *redisTaskStore) getChunkTask(ctx context.Context, redisKey string) (*tasks.ChunkTask, error) {
	return store.tasksClient.Chunks.Get(ctx, redisKey)
}

func (store *redisTaskStore) getJobTask(ctx context.Context, task *Task) (*tasks.JobTask, error) {
	return store.tasksClient.Jobs.GetCached(ctx, task.chunkTask.JobID)
}

func (store *redisTaskStore) getDocTask(ctx context.Context, task *Task) (*tasks.DocumentTaskCached, error) {
	return store.tasksClient.Documents.GetCached(ctx, task.chunkTask.DocID)
}

func (store *redisTaskStore) updateChunkTask(ctx context.Context, task *Task, update func(info *tasks.ChunkTaskInfo)) error {
	return store.tasksClient.Chunks.Update(ctx, task.redisKey, func(chunkTask *tasks.ChunkTask) {
		update(&chunkTask.TaskStatuses.Tagger)
	})
}

func (store *redisTaskStore) addDocumentFailure(ctx context.Context, task *Task) error {
	return store.tasksClient.Documents.Update(ctx, task.chunkTask.DocID, func(docTask *tasks.DocumentTask) {
		docTask.AddFailure(task.redisKey, tasks.WorkerName)
	})
}
