// timer/timer.go
package timer

import (
	"container/heap"
	"sync"
	"time"
)

type Task struct {
	ID       int64
	Execute  time.Time
	Interval time.Duration
	Callback func()
	index    int
}

type taskQueue []*Task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	return q[i].Execute.Before(q[j].Execute)
}

func (q taskQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *taskQueue) Push(x interface{}) {
	n := len(*q)
	task := x.(*Task)
	task.index = n
	*q = append(*q, task)
}

func (q *taskQueue) Pop() interface{} {
	old := *q
	n := len(old)
	task := old[n-1]
	old[n-1] = nil
	task.index = -1
	*q = old[0 : n-1]
	return task
}

// Scheduler runs one-shot and repeating callbacks. Due tasks are checked
// every resolution; callbacks run on their own goroutine.
type Scheduler struct {
	queue      taskQueue
	mutex      sync.Mutex
	nextID     int64
	resolution time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

func NewScheduler(resolution time.Duration) *Scheduler {
	if resolution <= 0 {
		resolution = 100 * time.Millisecond
	}
	manager := &Scheduler{
		queue:      make(taskQueue, 0),
		nextID:     1,
		resolution: resolution,
		stop:       make(chan struct{}),
	}
	heap.Init(&manager.queue)
	return manager
}

// Start launches the scheduling goroutine.
func (m *Scheduler) Start() {
	m.wg.Add(1)
	go m.process()
}

// Stop halts scheduling. Callbacks already running are not waited for.
func (m *Scheduler) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
	m.wg.Wait()
}

// AddTimer schedules callback after delay, then every interval when
// interval > 0. It returns the timer id.
func (m *Scheduler) AddTimer(delay time.Duration, interval time.Duration, callback func()) int64 {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	task := &Task{
		ID:       m.nextID,
		Execute:  time.Now().Add(delay),
		Interval: interval,
		Callback: callback,
	}
	m.nextID++

	heap.Push(&m.queue, task)
	return task.ID
}

// RemoveTimer cancels a timer; it reports whether the timer was pending.
func (m *Scheduler) RemoveTimer(timerID int64) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i, task := range m.queue {
		if task.ID == timerID {
			heap.Remove(&m.queue, i)
			return true
		}
	}
	return false
}

func (m *Scheduler) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.queue.Len()
}

// due pops every task scheduled at or before now and re-queues the
// repeating ones.
func (m *Scheduler) due(now time.Time) []func() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var callbacks []func()
	for m.queue.Len() > 0 {
		task := m.queue[0]
		if task.Execute.After(now) {
			break
		}

		heap.Pop(&m.queue)
		callbacks = append(callbacks, task.Callback)

		if task.Interval > 0 {
			task.Execute = now.Add(task.Interval)
			heap.Push(&m.queue, task)
		}
	}
	return callbacks
}

func (m *Scheduler) process() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.resolution)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			for _, cb := range m.due(now) {
				go cb()
			}
		case <-m.stop:
			return
		}
	}
}
