package worker

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
	"text2phenotype.com/postagger/pipeline"
	"text2phenotype.com/postagger/tasks"
)

var errMock = errors.New("mock error")

// recorder keeps the order of calls made by a worker over all of its mocks.
type recorder struct {
	calls  []string
	failOn map[string]bool
}

func (r *recorder) call(name string) error {
	r.calls = append(r.calls, name)
	if r.failOn[name] {
		return errMock
	}
	return nil
}

type storeMock struct {
	*recorder
	chunkTask tasks.ChunkTask
	jobTask   tasks.JobTask
	docTask   *tasks.DocumentTaskCached
	failures  int
}

func (m *storeMock) getChunkTask(ctx context.Context, redisKey string) (*tasks.ChunkTask, error) {
	if err := m.call("getChunkTask"); err != nil {
		return nil, err
	}
	chunkTask := m.chunkTask
	return &chunkTask, nil
}

func (m *storeMock) getJobTask(ctx context.Context, task *Task) (*tasks.JobTask, error) {
	if err := m.call("getJobTask"); err != nil {
		return nil, err
	}
	return &m.jobTask, nil
}

func (m *storeMock) getDocTask(ctx context.Context, task *Task) (*tasks.DocumentTaskCached, error) {
	if err := m.call("getDocTask"); err != nil {
		return nil, err
	}
	return m.docTask, nil
}

// updateChunkTask is recorded with the status the update leads to.
func (m *storeMock) updateChunkTask(ctx context.Context, task *Task, update func(info *tasks.ChunkTaskInfo)) error {
	info := m.chunkTask.TaskStatuses.Tagger
	update(&info)
	if err := m.call("update:" + string(info.Status)); err != nil {
		return err
	}
	m.chunkTask.TaskStatuses.Tagger = info
	return nil
}

func (m *storeMock) addDocumentFailure(ctx context.Context, task *Task) error {
	if err := m.call("addDocumentFailure"); err != nil {
		return err
	}
	m.failures++
	return nil
}

func (m *storeMock) close() {}

type storageMock struct {
	*recorder
	uploads map[string][]byte
}

func (m *storageMock) download(ctx context.Context, key string) ([]byte, error) {
	if err := m.call("download"); err != nil {
		return nil, err
	}
	return []byte("the dog barks"), nil
}

func (m *storageMock) upload(ctx context.Context, key string, data []byte) error {
	if err := m.call("upload"); err != nil {
		return err
	}
	if m.uploads == nil {
		m.uploads = make(map[string][]byte)
	}
	m.uploads[key] = data
	return nil
}

func (m *storageMock) close() {}

type queueMock struct {
	*recorder
	sent []Message
}

func (m *queueMock) pingSequencer(task *Task, message Message) error {
	if err := m.call("pingSequencer"); err != nil {
		return err
	}
	message.Sender = tasks.WorkerName
	m.sent = append(m.sent, message)
	return nil
}

func (m *queueMock) acknowledge(delivery *amqp.Delivery) error {
	return m.call("ack")
}

func (m *queueMock) reject(delivery *amqp.Delivery, taskLogger zerolog.Logger) {
	_ = m.call("reject")
}

func (m *queueMock) deliveries() <-chan amqp.Delivery   { return nil }
func (m *queueMock) reqChanErrors() <-chan *amqp.Error  { return nil }
func (m *queueMock) respChanErrors() <-chan *amqp.Error { return nil }
func (m *queueMock) close()                             {}

type pipelineMode int

const (
	pipelineResult pipelineMode = iota
	pipelineClosed
	pipelinePanic
	pipelineHang
)

func pipelineMock(r *recorder, mode pipelineMode) pipeline.Pipeline {
	return func(request pipeline.Request) <-chan string {
		_ = r.call("pipeline")
		out := make(chan string, 1)
		switch mode {
		case pipelineResult:
			out <- `{"hmm": {"tid": "` + request.Tid + `"}}`
			close(out)
		case pipelineClosed:
			close(out)
		case pipelinePanic:
			panic("tagger exploded")
		}
		return out
	}
}
