package worker

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/require"
	"text2phenotype.com/postagger/logger"
	"text2phenotype.com/postagger/tasks"
)

const testBody = `{"redis_key": "chunk-1", "work_type": "pos_tagger", "sender": "sequencer"}`

type mockedWorker struct {
	*Worker
	recorder *recorder
	store    *storeMock
	storage  *storageMock
	queue    *queueMock
}

type workerCase struct {
	name     string
	body     string
	info     tasks.ChunkTaskInfo
	job      tasks.JobTask
	doc      *tasks.DocumentTaskCached
	failOn   []string
	pipeline pipelineMode
	expected []string
}

func newMockedWorker(tc workerCase) *mockedWorker {
	r := &recorder{failOn: make(map[string]bool)}
	for _, name := range tc.failOn {
		r.failOn[name] = true
	}
	store := &storeMock{
		recorder: r,
		chunkTask: tasks.ChunkTask{
			DocID:        "doc-1",
			JobID:        "job-1",
			TextFileKey:  "processed/documents/doc-1/chunks/chunk-1.txt",
			TaskStatuses: tasks.ChunkTaskStatuses{Tagger: tc.info},
		},
		jobTask: tc.job,
		docTask: tc.doc,
	}
	storage := &storageMock{recorder: r}
	queue := &queueMock{recorder: r}
	return &mockedWorker{
		Worker: &Worker{
			config:       Config{TaskMaxRetries: 3, TaskTimeout: 50 * time.Millisecond},
			store:        store,
			storage:      storage,
			queue:        queue,
			workerLogger: logger.NewLogger("Test Worker"),
			ppln:         pipelineMock(r, tc.pipeline),
		},
		recorder: r,
		store:    store,
		storage:  storage,
		queue:    queue,
	}
}

func (m *mockedWorker) process(body string) {
	if body == "" {
		body = testBody
	}
	m.processMessage(m.queue, &amqp.Delivery{MessageId: "message-1", Body: []byte(body)})
}

var (
	started   = "update:" + string(tasks.TaskStatusStarted)
	succeeded = "update:" + string(tasks.TaskStatusCompletedSuccess)
	exceeded  = "update:" + string(tasks.TaskStatusCompletedFailure)
	failed    = "update:" + string(tasks.TaskStatusFailed)
	canceled  = "update:" + string(tasks.TaskStatusCanceled)
)

func TestWorker(t *testing.T) {
	stopOnFailure := tasks.JobTask{StopDocumentsOnFailure: true}
	run := []string{"getChunkTask", "getJobTask", started, "download", "pipeline"}
	then := func(head []string, tail ...string) []string {
		return append(append([]string{}, head...), tail...)
	}

	for _, tc := range []workerCase{
		{
			name:     "Successful",
			expected: then(run, "upload", succeeded, "pingSequencer", "ack"),
		},
		{
			name:     "Successful with stop_documents_on_failure",
			job:      stopOnFailure,
			doc:      &tasks.DocumentTaskCached{},
			expected: []string{"getChunkTask", "getJobTask", "getDocTask", started, "download", "pipeline", "upload", succeeded, "pingSequencer", "ack"},
		},
		{
			name:     "Invalid message",
			body:     `{"redis_key": `,
			expected: []string{"reject"},
		},
		{
			name:     "Failed to get chunk task",
			failOn:   []string{"getChunkTask"},
			expected: []string{"getChunkTask", "reject"},
		},
		{
			name:     "Failed to get job task",
			failOn:   []string{"getJobTask"},
			expected: []string{"getChunkTask", "getJobTask", "reject"},
		},
		{
			name:     "Failed to get document task",
			job:      stopOnFailure,
			failOn:   []string{"getDocTask"},
			expected: []string{"getChunkTask", "getJobTask", "getDocTask", "reject"},
		},
		{
			name:     "Missing document task",
			job:      stopOnFailure,
			expected: []string{"getChunkTask", "getJobTask", "getDocTask", "reject"},
		},
		{
			name:     "Already completed with success",
			info:     tasks.ChunkTaskInfo{Status: tasks.TaskStatusCompletedSuccess},
			expected: []string{"getChunkTask", "pingSequencer", "ack"},
		},
		{
			name:     "Already completed with failure",
			info:     tasks.ChunkTaskInfo{Status: tasks.TaskStatusCompletedFailure},
			expected: []string{"getChunkTask", "pingSequencer", "ack"},
		},
		{
			name:     "User canceled",
			job:      tasks.JobTask{UserCanceled: true},
			expected: []string{"getChunkTask", "getJobTask", canceled, "pingSequencer", "ack"},
		},
		{
			name:     "Exceeded attempts",
			info:     tasks.ChunkTaskInfo{Status: tasks.TaskStatusFailed, Attempts: 3},
			expected: []string{"getChunkTask", "getJobTask", "addDocumentFailure", exceeded, "pingSequencer", "ack"},
		},
		{
			name:     "Failed to record document failure",
			info:     tasks.ChunkTaskInfo{Attempts: 3},
			failOn:   []string{"addDocumentFailure"},
			expected: []string{"getChunkTask", "getJobTask", "addDocumentFailure", "reject"},
		},
		{
			name:     "Canceled because another worker failed",
			job:      stopOnFailure,
			doc:      &tasks.DocumentTaskCached{FailedTasks: []string{"sentence_detector"}},
			expected: []string{"getChunkTask", "getJobTask", "getDocTask", canceled, "pingSequencer", "ack"},
		},
		{
			name:     "Failed to mark task as started",
			failOn:   []string{started},
			expected: []string{"getChunkTask", "getJobTask", started, "reject"},
		},
		{
			name:     "Failed to load text from S3",
			failOn:   []string{"download"},
			expected: []string{"getChunkTask", "getJobTask", started, "download", failed, "pingSequencer", "ack"},
		},
		{
			name:     "Pipeline channel closed",
			pipeline: pipelineClosed,
			expected: then(run, failed, "pingSequencer", "ack"),
		},
		{
			name:     "Pipeline panic",
			pipeline: pipelinePanic,
			expected: then(run, failed, "pingSequencer", "ack"),
		},
		{
			name:     "Pipeline timeout",
			pipeline: pipelineHang,
			expected: then(run, failed, "pingSequencer", "ack"),
		},
		{
			name:     "Failed to mark task as failed",
			pipeline: pipelineClosed,
			failOn:   []string{failed},
			expected: then(run, failed, "reject"),
		},
		{
			name:     "Failed to mark task as complete",
			failOn:   []string{succeeded},
			expected: then(run, "upload", succeeded, "reject"),
		},
		{
			name:     "Failed to save results to S3",
			failOn:   []string{"upload"},
			expected: then(run, "upload", failed, "pingSequencer", "ack"),
		},
		{
			name:     "Failed to acknowledge delivery",
			failOn:   []string{"ack"},
			expected: then(run, "upload", succeeded, "pingSequencer", "ack"),
		},
		{
			name:     "Failed to ping sequencer",
			failOn:   []string{"pingSequencer"},
			expected: then(run, "upload", succeeded, "pingSequencer", "reject"),
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			m := newMockedWorker(tc)
			m.process(tc.body)
			if diff := cmp.Diff(tc.expected, m.recorder.calls); diff != "" {
				t.Errorf("unexpected calls (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSuccessfulTaskInfo(t *testing.T) {
	m := newMockedWorker(workerCase{})
	m.process("")

	info := m.store.chunkTask.TaskStatuses.Tagger
	require.Equal(t, tasks.TaskStatusCompletedSuccess, info.Status)
	require.Equal(t, 1, info.Attempts)
	require.NotNil(t, info.StartedAt)
	require.NotNil(t, info.CompletedAt)

	expectedKey := "processed/documents/doc-1/chunks/chunk-1/chunk-1.pos_results.json"
	require.Equal(t, expectedKey, info.ResultsFileKey)
	require.Contains(t, m.storage.uploads, expectedKey)
	require.JSONEq(t, `{"hmm": {"tid": "chunk-1"}}`, string(m.storage.uploads[expectedKey]))

	require.Len(t, m.queue.sent, 1)
	require.Equal(t, "chunk-1", m.queue.sent[0].RedisKey)
	require.Equal(t, tasks.WorkerName, m.queue.sent[0].Sender)
}

func TestFailedTaskInfo(t *testing.T) {
	t.Run("pipeline error is kept", func(t *testing.T) {
		m := newMockedWorker(workerCase{pipeline: pipelinePanic})
		m.process("")
		info := m.store.chunkTask.TaskStatuses.Tagger
		require.Equal(t, tasks.TaskStatusFailed, info.Status)
		require.Equal(t, 1, info.Attempts)
		require.Len(t, info.ErrorMessages, 1)
		require.Contains(t, info.ErrorMessages[0], "tagger exploded")
	})

	t.Run("exceeded retries", func(t *testing.T) {
		m := newMockedWorker(workerCase{info: tasks.ChunkTaskInfo{Status: tasks.TaskStatusFailed, Attempts: 3}})
		m.process("")
		info := m.store.chunkTask.TaskStatuses.Tagger
		require.Equal(t, tasks.TaskStatusCompletedFailure, info.Status)
		require.Equal(t, 4, info.Attempts)
		require.Equal(t, 1, m.store.failures)
		require.Equal(t, []string{"Task has exceeded retries. (Attempts: 4, max retries: 3 )"}, info.ErrorMessages)
	})

	t.Run("canceled by document failure", func(t *testing.T) {
		m := newMockedWorker(workerCase{
			job: tasks.JobTask{StopDocumentsOnFailure: true},
			doc: &tasks.DocumentTaskCached{FailedTasks: []string{"sentence_detector"}},
		})
		m.process("")
		info := m.store.chunkTask.TaskStatuses.Tagger
		require.Equal(t, tasks.TaskStatusCanceled, info.Status)
		require.Len(t, info.ErrorMessages, 1)
		require.Contains(t, info.ErrorMessages[0], `"sentence_detector" worker`)
	})
}

func TestDeliveryStaysOnItsQueue(t *testing.T) {
	m := newMockedWorker(workerCase{})
	refreshed := &queueMock{recorder: &recorder{}}
	m.Worker.queue = refreshed

	m.process("")
	require.Empty(t, refreshed.calls)
	require.Equal(t, []string{"pingSequencer", "ack"}, m.recorder.calls[len(m.recorder.calls)-2:])
	require.Len(t, m.queue.sent, 1)
}

func TestResultsFileKey(t *testing.T) {
	task := &Task{
		redisKey:  "abc",
		chunkTask: &tasks.ChunkTask{DocID: "doc"},
	}
	require.Equal(t, "processed/documents/doc/chunks/abc/abc.pos_results.json", resultsFileKey(task))
}
