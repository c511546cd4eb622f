package storage

import (
	"context"
	"log"
	"time"

	"github.com/gammazero/workerpool"
)

// MediaJanitor removes blobs in the background once the rows referencing
// them are gone. Failures are logged and otherwise dropped.
type MediaJanitor struct {
	store      ImageStore
	workerPool *workerpool.WorkerPool
	timeout    time.Duration
}

func NewMediaJanitor(store ImageStore, workerCount int) *MediaJanitor {
	if workerCount <= 0 {
		workerCount = 2
	}
	return &MediaJanitor{
		store:      store,
		workerPool: workerpool.New(workerCount),
		timeout:    30 * time.Second,
	}
}

func (j *MediaJanitor) Remove(refs ...string) {
	for _, ref := range refs {
		ref := ref
		j.workerPool.Submit(func() {
			ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
			defer cancel()
			if err := j.store.Remove(ctx, ref); err != nil {
				log.Printf("MediaJanitor.Remove: failed to remove blob %s: %v", ref, err)
			}
		})
	}
}

func (j *MediaJanitor) Close() {
	j.workerPool.StopWait()
}
