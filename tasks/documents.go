package tasks

import (
	"context"

	"text2phenotype.com/postagger/redis"
	"text2phenotype.com/postagger/utils/maps"
)

const DocumentsDB redis.DB = 0

type DocumentTask struct {
	maps.BaseDocument
	FailedTasks  []string            `json:"failed_tasks"`
	FailedChunks map[string][]string `json:"failed_chunks"`
}

// AddFailure records that worker failed on the chunk.
func (task *DocumentTask) AddFailure(chunkKey string, worker string) {
	task.FailedTasks = append(task.FailedTasks, worker)
	if task.FailedChunks == nil {
		task.FailedChunks = make(map[string][]string)
	}
	task.FailedChunks[chunkKey] = append(task.FailedChunks[chunkKey], worker)
}

// DocumentTaskCached is the lightweight copy stored under the cached-properties key.
type DocumentTaskCached struct {
	maps.BaseDocument
	DocInfo     map[string]interface{} `json:"document_info"`
	FailedTasks []string               `json:"failed_tasks"`
	JobID       string                 `json:"job_id"`
	WorkType    string                 `json:"work_type"`
}

type DocumentTasks struct {
	client redis.Client
}

func (tasks DocumentTasks) Get(ctx context.Context, redisKey string) (*DocumentTask, error) {
	var task DocumentTask
	if err := tasks.client.GetPartialDocument(ctx, redisKey, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (tasks DocumentTasks) GetCached(ctx context.Context, redisKey string) (*DocumentTaskCached, error) {
	var task DocumentTaskCached
	if err := tasks.client.GetPartialDocument(ctx, cachedPropertiesKey(redisKey), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Update changes the document and its cached copy under one lock.
func (tasks DocumentTasks) Update(ctx context.Context, redisKey string, updateFunc func(task *DocumentTask)) (err error) {
	releaseLock, err := tasks.client.Lock(ctx, redisKey)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := releaseLock(); err == nil {
			err = releaseErr
		}
	}()

	var task DocumentTask
	if err = tasks.client.GetPartialDocument(ctx, redisKey, &task); err != nil {
		return err
	}
	updateFunc(&task)

	var cached DocumentTaskCached
	cachedKey := cachedPropertiesKey(redisKey)
	if err = tasks.client.GetPartialDocument(ctx, cachedKey, &cached); err != nil {
		return err
	}
	cached.FailedTasks = task.FailedTasks

	errChan := make(chan error, 2)
	go func() {
		errChan <- tasks.client.SaveDoc(ctx, redisKey, &task)
	}()
	go func() {
		errChan <- tasks.client.SaveDoc(ctx, cachedKey, &cached)
	}()
	for i := 0; i < 2; i++ {
		if saveErr := <-errChan; saveErr != nil && err == nil {
			err = saveErr
		}
	}
	return err
}
