package timer

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Job is a callback due at a wall-clock instant
type Job struct {
	ID    string
	DueAt time.Time
	Run   func(ctx context.Context)
	index int // index in the heap (for heap.Interface)
}

// jobHeap is a min-heap of Jobs ordered by DueAt
type jobHeap []*Job

func (h jobHeap) Len() int { return len(h) }

func (h jobHeap) Less(i, j int) bool {
	return h[i].DueAt.Before(h[j].DueAt)
}

func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *jobHeap) Push(x interface{}) {
	n := len(*h)
	job := x.(*Job)
	job.index = n
	*h = append(*h, job)
}

func (h *jobHeap) Pop() interface{} {
	old := *h
	n := len(old)
	job := old[n-1]
	old[n-1] = nil // avoid memory leak
	job.index = -1
	*h = old[0 : n-1]
	return job
}

// Manager runs jobs at their due time on a small worker pool. Jobs that
// become due together run in due order when there is a single worker.
type Manager struct {
	clock  clockwork.Clock
	logger *slog.Logger

	heap    jobHeap
	mu      sync.Mutex
	wakeup  chan struct{}
	jobs    map[string]*Job // for O(1) lookup by ID
	queue   chan *Job
	workers int
	started bool
	stopped bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates a job manager with the given number of workers
func NewManager(workers int, clock clockwork.Clock, logger *slog.Logger) *Manager {
	if workers < 1 {
		workers = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	m := &Manager{
		clock:   clock,
		logger:  logger,
		heap:    make(jobHeap, 0),
		wakeup:  make(chan struct{}, 1),
		jobs:    make(map[string]*Job),
		queue:   make(chan *Job, 64),
		workers: workers,
		stopCh:  make(chan struct{}),
	}
	heap.Init(&m.heap)
	return m
}

// Start launches the scheduler loop and the workers. ctx is passed to
// every job and is cancelled by Stop.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.stopped {
		return
	}
	m.started = true
	m.ctx, m.cancel = context.WithCancel(ctx)

	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.worker()
	}

	m.wg.Add(1)
	go m.run()
}

// Stop stops the manager and waits for running jobs to return
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	close(m.stopCh)
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	m.wg.Wait()
}

// Schedule adds a job due at dueAt, replacing any job with the same ID
func (m *Manager) Schedule(id string, dueAt time.Time, run func(ctx context.Context)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrManagerStopped
	}

	if existing, ok := m.jobs[id]; ok {
		heap.Remove(&m.heap, existing.index)
		delete(m.jobs, id)
	}

	job := &Job{
		ID:    id,
		DueAt: dueAt,
		Run:   run,
	}

	heap.Push(&m.heap, job)
	m.jobs[id] = job

	// Wake up the loop if this is the earliest job
	if m.heap[0] == job {
		select {
		case m.wakeup <- struct{}{}:
		default:
		}
	}

	return nil
}

// ScheduleRecurring runs fn at next(now), then again at each following
// occurrence until the manager stops or the job is cancelled.
func (m *Manager) ScheduleRecurring(id string, next func(from time.Time) time.Time, fn func(ctx context.Context)) error {
	var run func(ctx context.Context)
	var due time.Time

	run = func(ctx context.Context) {
		defer func() {
			// Due times have second resolution; step past the current one.
			from := m.clock.Now()
			if floor := due.Add(time.Second); from.Before(floor) {
				from = floor
			}
			due = next(from)
			if err := m.Schedule(id, due, run); err != nil && err != ErrManagerStopped {
				m.logger.Error("failed to reschedule job", "job", id, "error", err)
			}
		}()
		fn(ctx)
	}

	due = next(m.clock.Now())
	return m.Schedule(id, due, run)
}

// Cancel removes a scheduled job
func (m *Manager) Cancel(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return false
	}

	heap.Remove(&m.heap, job.index)
	delete(m.jobs, id)
	return true
}

// NextDue returns when the job with the given ID is due
func (m *Manager) NextDue(id string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return time.Time{}, false
	}
	return job.DueAt, true
}

// run is the main scheduler loop
func (m *Manager) run() {
	defer m.wg.Done()

	for {
		m.mu.Lock()

		if m.stopped {
			m.mu.Unlock()
			return
		}

		if m.heap.Len() == 0 {
			m.mu.Unlock()
			select {
			case <-m.wakeup:
				continue
			case <-m.stopCh:
				return
			}
		}

		next := m.heap[0]
		wait := next.DueAt.Sub(m.clock.Now())
		if wait <= 0 {
			job := heap.Pop(&m.heap).(*Job)
			delete(m.jobs, job.ID)
			m.mu.Unlock()

			select {
			case m.queue <- job:
			case <-m.stopCh:
				return
			}
			continue
		}

		m.mu.Unlock()

		timer := m.clock.NewTimer(wait)
		select {
		case <-timer.Chan():
			// Time to check for due jobs
		case <-m.wakeup:
			// New job added or an existing one rescheduled
			timer.Stop()
		case <-m.stopCh:
			timer.Stop()
			return
		}
	}
}

// worker executes due jobs
func (m *Manager) worker() {
	defer m.wg.Done()

	for {
		select {
		case job := <-m.queue:
			m.execute(job)
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) execute(job *Job) {
	defer func() {
		if p := recover(); p != nil {
			m.logger.Error("job panicked", "job", job.ID, "panic", p)
		}
	}()
	job.Run(m.ctx)
}

// Stats returns statistics about the manager
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		ScheduledJobs: len(m.jobs),
		Workers:       m.workers,
	}
}

// Stats contains statistics about the manager
type Stats struct {
	ScheduledJobs int
	Workers       int
}

var (
	ErrManagerStopped = &TimerError{"timer manager is stopped"}
)

// TimerError represents a timer error
type TimerError struct {
	msg string
}

func (e *TimerError) Error() string {
	return e.msg
}
