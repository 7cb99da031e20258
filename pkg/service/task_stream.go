package service

import (
	"context"
	"sync"
	"time"

	"github.com/Aryanchhabra/DeepResearchAI/internal/metrics"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/models"
)

// taskEntry is the registry slot for one task. The event log is append-only; notify is
// closed and replaced on every append so a blocked subscriber wakes without polling.
type taskEntry struct {
	mu         sync.Mutex
	task       models.Task
	events     []models.ProgressEvent
	notify     chan struct{}
	done       chan struct{}
	subscribed bool
	startedAt  time.Time
	expiresAt  time.Time
}

func newTaskEntry(task models.Task) *taskEntry {
	return &taskEntry{
		task:   task,
		notify: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// appendLocked assigns the next sequence number and wakes the subscriber.
func (e *taskEntry) appendLocked(ev models.ProgressEvent) {
	ev.Seq = uint64(len(e.events) + 1)
	e.events = append(e.events, ev)
	close(e.notify)
	e.notify = make(chan struct{})
}

// Subscribe attaches the single allowed subscriber to a task. The returned channel replays
// the task's event log from the first event, then follows live events, and is closed after
// the terminal event or when ctx is done. Detaching never affects the running task.
func (c *Coordinator) Subscribe(ctx context.Context, id string) (<-chan models.ProgressEvent, error) {
	c.mu.RLock()
	e, ok := c.tasks[id]
	if !ok {
		c.mu.RUnlock()
		return nil, ErrNotFound
	}
	e.mu.Lock()
	if e.subscribed {
		e.mu.Unlock()
		c.mu.RUnlock()
		return nil, ErrAlreadySubscribed
	}
	e.subscribed = true
	c.touchLocked(e)
	e.mu.Unlock()
	c.mu.RUnlock()

	metrics.ActiveSubscribers.Inc()
	c.logger.Debugf("Subscriber attached to task %s", id)

	out := make(chan models.ProgressEvent)
	go c.stream(ctx, e, out)
	return out, nil
}

func (c *Coordinator) stream(ctx context.Context, e *taskEntry, out chan<- models.ProgressEvent) {
	defer close(out)
	defer c.detach(e)

	interval := c.cfg.HeartbeatInterval
	heartbeat := time.NewTimer(interval)
	defer heartbeat.Stop()

	next := 0
	for {
		e.mu.Lock()
		pending := e.events[next:]
		notify := e.notify
		e.mu.Unlock()

		for _, ev := range pending {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
			next++
			if ev.Terminal() {
				return
			}
		}
		if len(pending) > 0 {
			heartbeat.Reset(interval)
		}

		select {
		case <-notify:
		case <-heartbeat.C:
			if ev, ok := c.heartbeatEvent(e); ok {
				select {
				case out <- ev:
					metrics.HeartbeatsSent.Inc()
				case <-ctx.Done():
					return
				}
			}
			heartbeat.Reset(interval)
		case <-ctx.Done():
			return
		}
	}
}

// heartbeatEvent carries the current step and percentage unchanged. No heartbeat is
// produced once the task is terminal; the terminal event is delivered instead.
func (c *Coordinator) heartbeatEvent(e *taskEntry) (models.ProgressEvent, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.task.Status.Terminal() {
		return models.ProgressEvent{}, false
	}
	return models.ProgressEvent{
		TaskID:     e.task.ID,
		Step:       e.task.Step,
		Message:    "heartbeat",
		Percentage: e.task.Percentage,
		Status:     models.HeartbeatEventStatus,
		Timestamp:  c.now(),
	}, true
}

func (c *Coordinator) detach(e *taskEntry) {
	e.mu.Lock()
	e.subscribed = false
	c.touchLocked(e)
	id := e.task.ID
	e.mu.Unlock()
	metrics.ActiveSubscribers.Dec()
	c.logger.Debugf("Subscriber detached from task %s", id)
}
