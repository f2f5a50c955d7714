package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	otelx "github.com/md-rashed-zaman/roombook/libs/otel"
	"github.com/md-rashed-zaman/roombook/services/booking-service/internal/recurrence"
	"go.uber.org/zap"
)

const TaskValidateRecurrence = "recurrence:validate"

// Job asks for the occurrences of one ticket to be validated.
type Job struct {
	DraftID string             `json:"draft_id"`
	RoomID  int                `json:"room_id"`
	Ticket  recurrence.Ticket  `json:"ticket"`
	Trace   otelx.TraceContext `json:"trace"`
}

// Dispatcher hands validation jobs to a worker outside the request.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
}

// AsynqDispatcher enqueues jobs on a Redis-backed asynq queue. Jobs are not
// retried: a failed validation returns the draft to configuring.
type AsynqDispatcher struct {
	client  *asynq.Client
	queue   string
	timeout time.Duration
}

func NewAsynqDispatcher(client *asynq.Client, queue string, timeout time.Duration) *AsynqDispatcher {
	if queue == "" {
		queue = "default"
	}
	return &AsynqDispatcher{client: client, queue: queue, timeout: timeout}
}

func (d *AsynqDispatcher) Dispatch(ctx context.Context, job Job) error {
	task, opts, err := NewValidationTask(job, d.queue, d.timeout)
	if err != nil {
		return err
	}
	_, err = d.client.EnqueueContext(ctx, task, opts...)
	return err
}

func NewValidationTask(job Job, queue string, timeout time.Duration) (*asynq.Task, []asynq.Option, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, nil, err
	}
	opts := []asynq.Option{asynq.Queue(queue), asynq.MaxRetry(0)}
	if timeout > 0 {
		opts = append(opts, asynq.Timeout(timeout))
	}
	return asynq.NewTask(TaskValidateRecurrence, payload), opts, nil
}

// NewValidationWorker builds the asynq server and mux that run validation
// jobs against svc.
func NewValidationWorker(redisOpt asynq.RedisConnOpt, svc *Service, queue string, concurrency int, logger *zap.Logger) (*asynq.Server, *asynq.ServeMux) {
	if queue == "" {
		queue = "default"
	}
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
		Logger:      logger.Sugar(),
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskValidateRecurrence, svc.HandleValidationTask)
	return srv, mux
}

func (s *Service) HandleValidationTask(ctx context.Context, task *asynq.Task) error {
	var job Job
	if err := json.Unmarshal(task.Payload(), &job); err != nil {
		return fmt.Errorf("decode validation job: %v: %w", err, asynq.SkipRetry)
	}
	return s.RunValidation(ctx, job)
}
