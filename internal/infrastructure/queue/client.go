package queue

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client encola consultas de estado. Implementa billing.StatusPoller.
type Client struct {
	client   enqueuer
	closer   func() error
	delay    time.Duration
	maxRetry int
}

// NewClient construye el cliente asynq. delay es la espera antes de la primera consulta.
func NewClient(redisOpts asynq.RedisClientOpt, delay time.Duration, maxRetry int) *Client {
	c := asynq.NewClient(redisOpts)
	return newClient(c, c.Close, delay, maxRetry)
}

func newClient(e enqueuer, closer func() error, delay time.Duration, maxRetry int) *Client {
	if delay <= 0 {
		delay = 30 * time.Second
	}
	if maxRetry <= 0 {
		maxRetry = 20
	}
	return &Client{client: e, closer: closer, delay: delay, maxRetry: maxRetry}
}

// ScheduleStatusCheck encola TaskCheckStatus con retraso. Una consulta ya programada para el mismo
// documento no se duplica.
func (c *Client) ScheduleStatusCheck(ctx context.Context, companyID, documentID string, docType entity.DocumentType) error {
	p := CheckStatusPayload{CompanyID: companyID, DocumentID: documentID, DocumentType: docType}
	task, err := NewCheckStatusTask(p)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDIAN),
		asynq.ProcessIn(c.delay),
		asynq.MaxRetry(c.maxRetry),
		asynq.TaskID(p.taskID()),
		asynq.Retention(24*time.Hour),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// Close libera la conexión a Redis.
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}
