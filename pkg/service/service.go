package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Aryanchhabra/DeepResearchAI/internal/metrics"
	"github.com/Aryanchhabra/DeepResearchAI/pkg/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Logger defines the logging interface for the Coordinator
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

var (
	// ErrInvalidInput is returned by Submit for an empty question. No task is created.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned for unknown or evicted task ids.
	ErrNotFound = errors.New("task not found")
	// ErrAlreadySubscribed is returned when a second subscriber attaches while the first is live.
	ErrAlreadySubscribed = errors.New("task already has a subscriber")
)

// Pipeline is the research computation executed for each task.
type Pipeline interface {
	Run(ctx context.Context, question string, opts models.ResearchOptions, progress models.ProgressFunc) (models.Result, error)
}

// CompletionHook runs on the worker after the pipeline succeeds and before the task
// is marked completed, so side effects are visible once the terminal event is observed.
type CompletionHook func(ctx context.Context, task models.Task, result models.Result)

// Config holds the coordinator tunables.
type Config struct {
	Workers           int           // pool goroutines, 0 means runtime.NumCPU()
	QueueSize         int           // pending jobs accepted before Submit rejects
	TaskTimeout       time.Duration // upper bound on a single pipeline run
	HeartbeatInterval time.Duration // idle time before a subscriber gets a heartbeat
	Retention         time.Duration // how long terminal tasks stay in the registry
	AccessGrace       time.Duration // minimum remaining retention after a read
	CleanupInterval   time.Duration // janitor period
}

func DefaultConfig() Config {
	return Config{
		QueueSize:         DefaultQueueSize,
		TaskTimeout:       DefaultTaskTimeout,
		HeartbeatInterval: 15 * time.Second,
		Retention:         5 * time.Minute,
		AccessGrace:       time.Minute,
		CleanupInterval:   30 * time.Second,
	}
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithCompletionHook registers a hook invoked once per successfully completed task.
func WithCompletionHook(hook CompletionHook) Option {
	return func(c *Coordinator) {
		c.hooks = append(c.hooks, hook)
	}
}

// WithClock replaces time.Now, used by retention bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// Coordinator tracks research tasks, runs them on a worker pool and streams their progress.
// Lock order is registry (mu) before task entry.
type Coordinator struct {
	ctx      context.Context
	pipeline Pipeline
	logger   Logger
	cfg      Config
	pool     *WorkerPool
	hooks    []CompletionHook
	now      func() time.Time

	mu    sync.RWMutex
	tasks map[string]*taskEntry

	stopJanitor chan struct{}
	janitorDone chan struct{}
	startOnce   sync.Once
	stopOnce    sync.Once
}

// NewCoordinator builds a coordinator whose workers run under ctx.
func NewCoordinator(ctx context.Context, pipeline Pipeline, logger Logger, cfg Config, opts ...Option) *Coordinator {
	def := DefaultConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = def.TaskTimeout
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = def.HeartbeatInterval
	}
	if cfg.Retention <= 0 {
		cfg.Retention = def.Retention
	}
	if cfg.AccessGrace <= 0 {
		cfg.AccessGrace = def.AccessGrace
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	c := &Coordinator{
		ctx:         ctx,
		pipeline:    pipeline,
		logger:      logger,
		cfg:         cfg,
		pool:        NewWorkerPool(ctx, cfg.QueueSize, cfg.TaskTimeout, logger),
		now:         time.Now,
		tasks:       make(map[string]*taskEntry),
		stopJanitor: make(chan struct{}),
		janitorDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start launches the worker pool and the retention janitor.
func (c *Coordinator) Start() {
	c.startOnce.Do(func() {
		c.pool.Start(c.cfg.Workers)
		go c.janitor()
	})
}

// Stop stops accepting tasks, waits for queued and running tasks, then stops the janitor.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		c.pool.Stop()
		close(c.stopJanitor)
		c.startOnce.Do(func() { close(c.janitorDone) })
		<-c.janitorDone
		c.logger.Infof("Coordinator stopped")
	})
}

// Submit creates a pending task for question and queues it without blocking.
func (c *Coordinator) Submit(question string, opts models.ResearchOptions) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		metrics.TasksRejected.WithLabelValues("invalid_input").Inc()
		return "", errors.Wrap(ErrInvalidInput, "question must not be empty")
	}

	now := c.now()
	id := uuid.NewString()
	entry := newTaskEntry(models.Task{
		ID:        id,
		Question:  question,
		Options:   opts,
		Status:    models.PendingTaskStatus,
		Step:      models.StepInitializing,
		CreatedAt: now,
		UpdatedAt: now,
	})

	c.mu.Lock()
	c.tasks[id] = entry
	c.mu.Unlock()
	metrics.TasksTracked.Inc()

	err := c.pool.Submit(Job{
		ID:  id,
		Run: func(ctx context.Context) { c.run(ctx, id) },
		OnPanic: func(r interface{}) {
			c.Fail(id, panicError(r))
		},
	})
	if err != nil {
		c.remove(id)
		reason := "queue_full"
		if errors.Is(err, ErrPoolStopped) {
			reason = "stopped"
		}
		metrics.TasksRejected.WithLabelValues(reason).Inc()
		c.logger.Warnf("Rejected task for question %q: %v", question, err)
		return "", err
	}

	metrics.TasksSubmitted.Inc()
	c.logger.Infof("Submitted task %s: %q", id, question)
	return id, nil
}

// run is the worker body for one task.
func (c *Coordinator) run(ctx context.Context, id string) {
	task, err := c.start(id)
	if err != nil {
		c.logger.Errorf("Cannot start task %s: %v", id, err)
		return
	}

	result, err := c.pipeline.Run(ctx, task.Question, task.Options, func(step models.Step, percentage int, message string) {
		if advErr := c.Advance(id, step, percentage, message); advErr != nil {
			c.logger.Warnf("Progress for task %s dropped: %v", id, advErr)
		}
	})
	if err != nil {
		c.Fail(id, err)
		return
	}

	for _, hook := range c.hooks {
		hook(ctx, task, result)
	}
	c.Complete(id, result)
}

func (c *Coordinator) lookup(id string) (*taskEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.tasks[id]
	return e, ok
}

func (c *Coordinator) remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.tasks[id]; ok {
		delete(c.tasks, id)
		metrics.TasksTracked.Dec()
	}
}

// start performs the Pending -> Running transition.
func (c *Coordinator) start(id string) (models.Task, error) {
	e, ok := c.lookup(id)
	if !ok {
		return models.Task{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	c.startLocked(e)
	return e.task, nil
}

func (c *Coordinator) startLocked(e *taskEntry) {
	if e.task.Status != models.PendingTaskStatus {
		return
	}
	now := c.now()
	e.task.Status = models.RunningTaskStatus
	e.task.UpdatedAt = now
	e.startedAt = now
	c.logger.Debugf("Task %s running", e.task.ID)
}

// GetResult returns the current snapshot of a task. Reading a terminal task extends its retention.
func (c *Coordinator) GetResult(id string) (models.TaskSnapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.tasks[id]
	if !ok {
		return models.TaskSnapshot{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	c.touchLocked(e)
	return e.task.Snapshot(), nil
}

// Wait blocks until the task is terminal or ctx is done. On ctx expiry it returns
// the latest snapshot together with ctx.Err().
func (c *Coordinator) Wait(ctx context.Context, id string) (models.TaskSnapshot, error) {
	e, ok := c.lookup(id)
	if !ok {
		return models.TaskSnapshot{}, ErrNotFound
	}
	select {
	case <-e.done:
	case <-ctx.Done():
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	c.touchLocked(e)
	snap := e.task.Snapshot()
	if !snap.Status.Terminal() {
		return snap, ctx.Err()
	}
	return snap, nil
}

// touchLocked pushes the eviction deadline of a terminal task out to at least now+AccessGrace.
func (c *Coordinator) touchLocked(e *taskEntry) {
	if !e.task.Status.Terminal() {
		return
	}
	if grace := c.now().Add(c.cfg.AccessGrace); e.expiresAt.Before(grace) {
		e.expiresAt = grace
	}
}

// Advance records a progress update from the task's worker. Regressions of step or
// percentage are ignored and counted; updates after the terminal state are dropped.
func (c *Coordinator) Advance(id string, step models.Step, percentage int, message string) error {
	e, ok := c.lookup(id)
	if !ok {
		return ErrNotFound
	}
	percentage = clampPercentage(percentage)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.task.Status.Terminal() {
		c.logger.Debugf("Ignoring progress for finished task %s", id)
		return nil
	}
	if !step.Valid() || step < e.task.Step || percentage < e.task.Percentage {
		metrics.AnomalousProgress.Inc()
		c.logger.Warnf("Anomalous progress for task %s: %s/%d%% after %s/%d%%", id, step, percentage, e.task.Step, e.task.Percentage)
		return nil
	}
	c.startLocked(e)

	e.task.Step = step
	e.task.Percentage = percentage
	e.task.UpdatedAt = c.now()
	e.appendLocked(models.ProgressEvent{
		TaskID:     id,
		Step:       step,
		Message:    message,
		Percentage: percentage,
		Status:     models.RunningEventStatus,
		Timestamp:  e.task.UpdatedAt,
	})
	c.logger.Debugf("Task %s: %s %d%% %s", id, step, percentage, message)
	return nil
}

// Complete marks the task completed with result. Only the first terminal call has effect.
func (c *Coordinator) Complete(id string, result models.Result) bool {
	return c.finish(id, func(e *taskEntry) models.ProgressEvent {
		if result.Sources == nil {
			result.Sources = []models.Source{}
		}
		e.task.Status = models.CompletedTaskStatus
		e.task.Percentage = 100
		e.task.Result = &result
		return models.ProgressEvent{
			Message: "Research complete",
			Status:  models.CompletedEventStatus,
		}
	})
}

// Fail marks the task failed. The failing step and retryability are taken from err when it
// carries them; otherwise the step is the last one reported.
func (c *Coordinator) Fail(id string, err error) bool {
	if err == nil {
		err = errors.New("unknown error")
	}
	return c.finish(id, func(e *taskEntry) models.ProgressEvent {
		step := e.task.Step
		var se interface{ FailedStep() models.Step }
		if errors.As(err, &se) {
			step = se.FailedStep()
		}
		var te interface{ Transient() bool }
		retryable := errors.As(err, &te) && te.Transient()

		e.task.Status = models.FailedTaskStatus
		e.task.Error = &models.TaskError{
			Message:   err.Error(),
			Step:      &step,
			Retryable: retryable,
		}
		return models.ProgressEvent{
			Message: "Research failed: " + err.Error(),
			Status:  models.ErrorEventStatus,
		}
	})
}

// finish performs the single terminal transition. apply sets the terminal fields and
// returns the partial terminal event.
func (c *Coordinator) finish(id string, apply func(e *taskEntry) models.ProgressEvent) bool {
	e, ok := c.lookup(id)
	if !ok {
		c.logger.Warnf("Terminal transition for unknown task %s", id)
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.task.Status.Terminal() {
		c.logger.Debugf("Task %s already finished with %s", id, e.task.Status)
		return false
	}
	c.startLocked(e)

	ev := apply(e)
	now := c.now()
	e.task.UpdatedAt = now
	e.task.FinishedAt = &now
	e.expiresAt = now.Add(c.cfg.Retention)

	ev.TaskID = id
	ev.Step = e.task.Step
	ev.Percentage = e.task.Percentage
	ev.Timestamp = now
	e.appendLocked(ev)
	close(e.done)

	metrics.TasksFinished.WithLabelValues(string(e.task.Status)).Inc()
	metrics.TaskDuration.Observe(now.Sub(e.startedAt).Seconds())
	if e.task.Status == models.FailedTaskStatus {
		c.logger.Errorf("Task %s failed at %s: %s", id, *e.task.Error.Step, e.task.Error.Message)
	} else {
		c.logger.Infof("Task %s completed with %d sources", id, len(e.task.Result.Sources))
	}
	return true
}

// EvictExpired removes terminal, unsubscribed tasks whose retention deadline has passed.
// The registry lock is held throughout so lookups never observe a half-evicted task.
func (c *Coordinator) EvictExpired() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	evicted := 0
	for id, e := range c.tasks {
		e.mu.Lock()
		expired := e.task.Status.Terminal() && !e.subscribed && !now.Before(e.expiresAt)
		e.mu.Unlock()
		if expired {
			delete(c.tasks, id)
			evicted++
		}
	}
	if evicted > 0 {
		metrics.TasksEvicted.Add(float64(evicted))
		metrics.TasksTracked.Sub(float64(evicted))
		c.logger.Infof("Evicted %d expired tasks", evicted)
	}
	return evicted
}

// Len returns the number of tasks in the registry.
func (c *Coordinator) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tasks)
}

func (c *Coordinator) janitor() {
	defer close(c.janitorDone)
	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.EvictExpired()
		case <-c.stopJanitor:
			return
		case <-c.ctx.Done():
			return
		}
	}
}

func clampPercentage(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
