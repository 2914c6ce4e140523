package reactive

import "sync"

// Scheduler defers jobs to a later flush.
type Scheduler interface {
	Schedule(job func())
}

// PostScheduler is implemented by schedulers that run a second phase after
// the regular jobs of a flush.
type PostScheduler interface {
	Scheduler
	SchedulePost(job func())
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(job func())

// Schedule implements Scheduler.
func (f SchedulerFunc) Schedule(job func()) {
	if f == nil {
		job()
		return
	}
	f(job)
}

// Queue is a FIFO scheduler drained explicitly by Flush. Schedule may be
// called from any goroutine; Flush runs jobs on the calling goroutine.
type Queue struct {
	mu       sync.Mutex
	pre      []func()
	post     []func()
	flushing bool
	ready    chan struct{}
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Schedule implements Scheduler.
func (q *Queue) Schedule(job func()) {
	q.mu.Lock()
	q.pre = append(q.pre, job)
	q.signal()
	q.mu.Unlock()
}

// SchedulePost implements PostScheduler.
func (q *Queue) SchedulePost(job func()) {
	q.mu.Lock()
	q.post = append(q.post, job)
	q.signal()
	q.mu.Unlock()
}

// Ready returns a channel that receives a value when jobs are scheduled.
// Several schedules between two receives are reported once.
func (q *Queue) Ready() <-chan struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.readyChan()
}

func (q *Queue) readyChan() chan struct{} {
	if q.ready == nil {
		q.ready = make(chan struct{}, 1)
	}
	return q.ready
}

// signal must be called with q.mu held.
func (q *Queue) signal() {
	select {
	case q.readyChan() <- struct{}{}:
	default:
	}
}

// Flush runs queued jobs until the queue is empty, including jobs scheduled
// while flushing. Regular jobs run before post jobs. A nested Flush call
// returns 0 without running anything.
func (q *Queue) Flush() int {
	q.mu.Lock()
	if q.flushing {
		q.mu.Unlock()
		return 0
	}
	q.flushing = true
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.flushing = false
		q.mu.Unlock()
	}()

	ran := 0
	for {
		job, ok := q.next()
		if !ok {
			return ran
		}
		job()
		ran++
	}
}

func (q *Queue) next() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pre) > 0 {
		job := q.pre[0]
		q.pre[0] = nil
		q.pre = q.pre[1:]
		return job, true
	}
	if len(q.post) > 0 {
		job := q.post[0]
		q.post[0] = nil
		q.post = q.post[1:]
		return job, true
	}
	return nil, false
}

// Len returns the number of pending jobs.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pre) + len(q.post)
}

// Clear drops pending jobs.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.pre = nil
	q.post = nil
	q.mu.Unlock()
}
