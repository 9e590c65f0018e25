package services

import (
	"log"
	"sync"
)

// JobQueue is a bounded in-process work queue. Enqueue never blocks the
// caller: when the buffer is full the job is dropped and logged, matching
// the at-most-once contract of the notification jobs it carries.
type JobQueue struct {
	jobs    chan func()
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	dedup   map[string]struct{}
	dedupMu sync.Mutex
}

// NewJobQueue starts workers goroutines draining a buffer of size buffer.
func NewJobQueue(workers, buffer int) *JobQueue {
	if workers <= 0 {
		workers = 2
	}
	if buffer <= 0 {
		buffer = 256
	}
	q := &JobQueue{
		jobs:  make(chan func(), buffer),
		dedup: make(map[string]struct{}),
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

func (q *JobQueue) worker() {
	defer q.wg.Done()
	for job := range q.jobs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Recovered from panic in background job: %v", r)
				}
			}()
			job()
		}()
	}
}

// Enqueue schedules a job and returns immediately. It reports whether the
// job was accepted.
func (q *JobQueue) Enqueue(job func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.mu.Unlock()
	select {
	case q.jobs <- job:
		return true
	default:
		log.Printf("Job queue full, dropping job")
		return false
	}
}

// EnqueueOnce schedules the job only if no job with the same key has been
// accepted before.
func (q *JobQueue) EnqueueOnce(key string, job func()) bool {
	q.dedupMu.Lock()
	if _, seen := q.dedup[key]; seen {
		q.dedupMu.Unlock()
		return false
	}
	q.dedup[key] = struct{}{}
	q.dedupMu.Unlock()

	if !q.Enqueue(job) {
		q.dedupMu.Lock()
		delete(q.dedup, key)
		q.dedupMu.Unlock()
		return false
	}
	return true
}

// Close stops accepting jobs and waits for in-flight ones to finish.
func (q *JobQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	q.wg.Wait()
}
