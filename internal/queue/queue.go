package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// DefaultQueue is the asynq queue used for promo bookkeeping.
const DefaultQueue = "promos"

// TaskClient is the subset of *asynq.Client used for enqueueing.
type TaskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Enqueuer publishes tasks to asynq.
type Enqueuer struct {
	Client   TaskClient
	Queue    string
	MaxRetry int
	Timeout  time.Duration
}

// EnqueuePromoRedemption schedules redemption bookkeeping for a paid order.
// The task id is derived from the order so a payment confirmation delivered
// twice never queues a second redemption.
func (e Enqueuer) EnqueuePromoRedemption(ctx context.Context, p PromoRedeemPayload) error {
	if e.Client == nil {
		return errors.New("queue: client not configured")
	}
	task, err := NewPromoRedeemTask(p)
	if err != nil {
		return err
	}
	_, err = e.Client.EnqueueContext(ctx, task, e.options(TypePromoRedeem+":"+p.OrderID.String())...)
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("queue: enqueue %s: %w", TypePromoRedeem, err)
	}
	return nil
}

func (e Enqueuer) options(taskID string) []asynq.Option {
	queueName := e.Queue
	if queueName == "" {
		queueName = DefaultQueue
	}
	maxRetry := e.MaxRetry
	if maxRetry <= 0 {
		maxRetry = 10
	}
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return []asynq.Option{
		asynq.TaskID(taskID),
		asynq.Queue(queueName),
		asynq.MaxRetry(maxRetry),
		asynq.Timeout(timeout),
	}
}
