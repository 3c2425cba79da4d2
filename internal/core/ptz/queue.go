package ptz

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/zmstream/streamcore/internal/logger"
)

// ticket is one queued command awaiting dispatch, with its own response
// channel the submitting caller blocks on.
type ticket struct {
	monitorID uint32
	cmd       Command
	execute   func() (Result, error)
	timestamp time.Time
	response  chan ticketResult
	priority  int
	index     int
}

type ticketResult struct {
	result Result
	err    error
}

// ticketHeap orders by priority (0 = high) then FIFO within a priority.
type ticketHeap []*ticket

func (h ticketHeap) Len() int { return len(h) }
func (h ticketHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority < h[j].priority
	}
	return h[i].timestamp.Before(h[j].timestamp)
}
func (h ticketHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *ticketHeap) Push(x interface{}) {
	t := x.(*ticket)
	t.index = len(*h)
	*h = append(*h, t)
}
func (h *ticketHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[:n-1]
	return t
}

// Queue funnels PTZ commands for every monitor through a single priority
// queue (stop/home HIGH, everything else LOW) rate-limited so an operator's
// stop is never stuck behind a backlog of move commands.
type Queue struct {
	log     *logger.Logger
	limiter *rate.Limiter

	mu   sync.Mutex
	heap ticketHeap

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewQueue constructs a Queue rate-limited to rateHz commands per second.
func NewQueue(rateHz float64, log *logger.Logger) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(rateHz), 1),
		ctx:     ctx,
		cancel:  cancel,
	}
	heap.Init(&q.heap)
	return q
}

// Start begins dispatching queued commands.
func (q *Queue) Start() {
	q.wg.Add(1)
	go q.workerLoop()
}

// Stop cancels dispatch and fails every still-queued ticket.
func (q *Queue) Stop() {
	q.cancel()
	q.wg.Wait()

	q.mu.Lock()
	for q.heap.Len() > 0 {
		t := heap.Pop(&q.heap).(*ticket)
		select {
		case t.response <- ticketResult{err: context.Canceled}:
		default:
		}
		close(t.response)
	}
	q.mu.Unlock()
}

// Submit enqueues a command and blocks until it executes or the queue
// shuts down.
func (q *Queue) Submit(monitorID uint32, cmd Command, execute func() (Result, error)) (Result, error) {
	priority := 1
	if cmd.isHighPriority() {
		priority = 0
	}

	t := &ticket{
		monitorID: monitorID,
		cmd:       cmd,
		execute:   execute,
		timestamp: time.Now(),
		response:  make(chan ticketResult, 1),
		priority:  priority,
	}

	q.mu.Lock()
	heap.Push(&q.heap, t)
	depth := q.heap.Len()
	q.mu.Unlock()

	q.log.DebugPTZ("ptz command enqueued", "monitor_id", monitorID, "command", cmd.Kind, "priority", priority, "queue_depth", depth)

	select {
	case r := <-t.response:
		return r.result, r.err
	case <-q.ctx.Done():
		return Result{}, context.Canceled
	}
}

func (q *Queue) workerLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-q.ctx.Done():
			return
		case <-ticker.C:
			q.dispatchNext()
		}
	}
}

func (q *Queue) dispatchNext() {
	q.mu.Lock()
	if q.heap.Len() == 0 {
		q.mu.Unlock()
		return
	}
	t := heap.Pop(&q.heap).(*ticket)
	q.mu.Unlock()

	if err := q.limiter.Wait(q.ctx); err != nil {
		t.response <- ticketResult{err: context.Canceled}
		close(t.response)
		return
	}

	result, err := t.execute()
	t.response <- ticketResult{result: result, err: err}
	close(t.response)
}

// Depth reports the number of commands currently queued.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.heap.Len()
}
