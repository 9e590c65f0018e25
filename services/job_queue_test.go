package services

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestJobQueueRunsJobs(t *testing.T) {
	q := NewJobQueue(2, 16)
	var ran int32
	for i := 0; i < 5; i++ {
		if !q.Enqueue(func() { atomic.AddInt32(&ran, 1) }) {
			t.Fatal("enqueue rejected")
		}
	}
	q.Close()
	if got := atomic.LoadInt32(&ran); got != 5 {
		t.Errorf("ran = %d, want 5", got)
	}
}

func TestJobQueueEnqueueOnce(t *testing.T) {
	q := NewJobQueue(1, 16)
	var ran int32
	job := func() { atomic.AddInt32(&ran, 1) }
	if !q.EnqueueOnce("k1", job) {
		t.Fatal("first enqueue rejected")
	}
	if q.EnqueueOnce("k1", job) {
		t.Error("duplicate key accepted")
	}
	if !q.EnqueueOnce("k2", job) {
		t.Error("distinct key rejected")
	}
	q.Close()
	if got := atomic.LoadInt32(&ran); got != 2 {
		t.Errorf("ran = %d, want 2", got)
	}
}

func TestJobQueueRecoversFromPanic(t *testing.T) {
	q := NewJobQueue(1, 16)
	var ran int32
	q.Enqueue(func() { panic("boom") })
	q.Enqueue(func() { atomic.AddInt32(&ran, 1) })
	q.Close()
	if atomic.LoadInt32(&ran) != 1 {
		t.Error("job after a panicking job did not run")
	}
}

func TestJobQueueDropWhenFull(t *testing.T) {
	q := NewJobQueue(1, 1)
	block := make(chan struct{})
	q.Enqueue(func() { <-block })
	// Give the single worker time to pick up the blocking job, then fill
	// the 1-slot buffer.
	time.Sleep(20 * time.Millisecond)
	q.Enqueue(func() {})

	if q.EnqueueOnce("k", func() {}) {
		t.Error("expected enqueue to drop when the buffer is full")
	}
	// A dropped EnqueueOnce must release its key for a later retry.
	close(block)
	time.Sleep(20 * time.Millisecond)
	if !q.EnqueueOnce("k", func() {}) {
		t.Error("key not released after drop")
	}
	q.Close()
}

func TestJobQueueClosedRejects(t *testing.T) {
	q := NewJobQueue(1, 1)
	q.Close()
	if q.Enqueue(func() {}) {
		t.Error("closed queue accepted a job")
	}
}
