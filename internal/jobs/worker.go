package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/models"
)

type WorkerPool struct {
	repo        *Repository
	handlers    map[string]Handler
	logger      *slog.Logger
	workerCount int
	poll        time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup
}

func NewWorkerPool(repo *Repository, logger *slog.Logger, workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{
		repo:        repo,
		handlers:    make(map[string]Handler),
		logger:      logger,
		workerCount: workerCount,
		poll:        500 * time.Millisecond,
		stop:        make(chan struct{}),
	}
}

// Handle registers h for tasks of type typ. Call before Start.
func (p *WorkerPool) Handle(typ string, h Handler) {
	p.handlers[typ] = h
}

// WithPollInterval sets how long an idle worker waits before polling again.
func (p *WorkerPool) WithPollInterval(d time.Duration) *WorkerPool {
	if d > 0 {
		p.poll = d
	}
	return p
}

// Start requeues tasks interrupted mid-run and launches the worker
// goroutines.
func (p *WorkerPool) Start(ctx context.Context) {
	if n, err := p.repo.ResetRunning(ctx); err != nil {
		p.logger.Error("reset interrupted tasks", "err", err)
	} else if n > 0 {
		p.logger.Warn("requeued interrupted tasks", "count", n)
	}
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

// Stop signals workers to stop and waits for them
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	p.wg.Wait()
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		worked, err := p.RunOnce(ctx)
		if err != nil {
			p.logger.Error("claim task", "worker", id, "err", err)
		}
		if worked {
			continue
		}

		select {
		case <-p.stop:
			p.logger.Info("worker stopping", "worker", id)
			return
		case <-ctx.Done():
			p.logger.Info("context canceled, worker exiting", "worker", id)
			return
		case <-time.After(p.poll):
		}
	}
}

// RunOnce claims and processes at most one task. It reports whether a task
// was claimed.
func (p *WorkerPool) RunOnce(ctx context.Context) (bool, error) {
	t, err := p.repo.Claim(ctx)
	if err != nil || t == nil {
		return false, err
	}

	h, ok := p.handlers[t.Type]
	if !ok {
		t.LastError = "no handler"
		if err := p.repo.MoveToDeadLetter(ctx, t); err != nil {
			p.logger.Error("move to dead letter", "task_id", t.ID, "err", err)
		}
		return true, nil
	}

	herr := h(ctx, t)
	if herr == nil {
		if err := p.repo.Complete(ctx, t.ID); err != nil {
			p.logger.Error("complete task", "task_id", t.ID, "err", err)
		}
		return true, nil
	}

	t.Attempts++
	t.LastError = herr.Error()
	if t.Attempts >= t.MaxAttempts {
		p.logger.Error("task failed permanently", "task_id", t.ID, "type", t.Type, "attempts", t.Attempts, "err", herr)
		if err := p.repo.MoveToDeadLetter(ctx, t); err != nil {
			p.logger.Error("move to dead letter", "task_id", t.ID, "err", err)
		}
		return true, nil
	}

	// schedule retry with backoff
	next := p.repo.now().Add(BackoffDuration(t.Attempts))
	t.NextTryAt = &next
	t.Status = "retry"
	p.logger.Warn("task failed, retrying", "task_id", t.ID, "type", t.Type, "attempts", t.Attempts, "next_try_at", next, "err", herr)
	if err := p.repo.UpdateTask(ctx, t); err != nil {
		p.logger.Error("update task for retry", "task_id", t.ID, "err", err)
	}
	return true, nil
}

// Enqueue convenience helper that creates a task and persists it
func (p *WorkerPool) Enqueue(ctx context.Context, typ string, payload any, priority int, maxAttempts int) (int64, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}
	return p.repo.Enqueue(ctx, &Task{Type: typ, Payload: b, Priority: priority, MaxAttempts: maxAttempts})
}

type recomputePayload struct {
	TargetID    int64              `json:"target_id"`
	TargetModel models.TargetModel `json:"target_model"`
}

// EnqueueRecompute queues a rating recompute for the target.
func (p *WorkerPool) EnqueueRecompute(ctx context.Context, targetID int64, model models.TargetModel) error {
	_, err := p.Enqueue(ctx, TypeRecomputeRating, recomputePayload{TargetID: targetID, TargetModel: model}, 10, 8)
	return err
}

// Recomputer rebuilds a target's rating aggregate.
type Recomputer interface {
	RecomputeAggregate(ctx context.Context, targetID int64, model models.TargetModel) (*models.RatingAggregate, error)
}

// RecomputeHandler processes TypeRecomputeRating tasks.
func RecomputeHandler(r Recomputer) Handler {
	return func(ctx context.Context, t *Task) error {
		var p recomputePayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
		if p.TargetID <= 0 {
			return fmt.Errorf("invalid target id %d", p.TargetID)
		}
		_, err := r.RecomputeAggregate(ctx, p.TargetID, p.TargetModel)
		return err
	}
}
