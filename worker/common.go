package worker

import (
	"fmt"
	"path"
	"time"
)

// resultsFileKey is the S3 key of the tagging results of a chunk.
func resultsFileKey(task *Task) string {
	return path.Join(
		"processed",
		"documents",
		task.chunkTask.DocID,
		"chunks",
		task.redisKey,
		fmt.Sprintf("%s.pos_results.json", task.redisKey),
	)
}

const RFC3339Micro = "2006-01-02T15:04:05.000000-07:00"

func formattedNow() string {
	return time.Now().UTC().Format(RFC3339Micro)
}
