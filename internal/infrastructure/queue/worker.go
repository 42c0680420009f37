package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// maxBackoff tope entre consultas consecutivas de un documento pendiente.
const maxBackoff = 10 * time.Minute

// WorkerConfig dependencias del worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Concurrency int
	BaseDelay   time.Duration
	Handler     *StatusCheckHandler
	Logger      zerolog.Logger
}

// Worker envuelve el servidor asynq.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    zerolog.Logger
}

// NewWorker construye el worker con la cola dian.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Handler == nil {
		return nil, errors.New("worker: falta el handler de consulta de estado")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	log := cfg.Logger.With().Str("component", "dian_worker").Logger()
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency:    cfg.Concurrency,
		Queues:         map[string]int{QueueDIAN: 1},
		RetryDelayFunc: backoff(cfg.BaseDelay),
		IsFailure: func(err error) bool {
			// Seguir pendiente no es una falla del worker.
			return !errors.Is(err, ErrStillPending)
		},
		Logger:   asynqLogger{log},
		LogLevel: asynq.WarnLevel,
	})
	mux := asynq.NewServeMux()
	mux.Handle(TaskCheckStatus, cfg.Handler)
	return &Worker{server: srv, mux: mux, log: log}, nil
}

// Run procesa tareas hasta que se cancele ctx.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: no configurado")
	}
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("worker: iniciar servidor asynq: %w", err)
	}
	w.log.Info().Str("queue", QueueDIAN).Msg("worker DIAN iniciado")
	<-ctx.Done()
	w.log.Info().Msg("deteniendo worker DIAN")
	w.server.Shutdown()
	return nil
}

// backoff duplica la espera en cada reintento a partir de base, hasta maxBackoff.
func backoff(base time.Duration) asynq.RetryDelayFunc {
	if base <= 0 {
		base = 30 * time.Second
	}
	return func(n int, _ error, _ *asynq.Task) time.Duration {
		d := base
		for i := 0; i < n && d < maxBackoff; i++ {
			d *= 2
		}
		if d > maxBackoff {
			d = maxBackoff
		}
		return d
	}
}

// asynqLogger adapta zerolog al asynq.Logger.
type asynqLogger struct{ log zerolog.Logger }

func (l asynqLogger) Debug(args ...any) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.log.Fatal().Msg(fmt.Sprint(args...)) }

// Inspector consulta el tamaño de la cola para el health check.
type Inspector struct {
	inspector *asynq.Inspector
}

// NewInspector construye el inspector.
func NewInspector(redisOpts asynq.RedisClientOpt) *Inspector {
	return &Inspector{inspector: asynq.NewInspector(redisOpts)}
}

// Pending devuelve tareas pendientes y programadas de la cola dian.
func (i *Inspector) Pending() (pending, scheduled int, err error) {
	info, err := i.inspector.GetQueueInfo(QueueDIAN)
	if err != nil {
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	return info.Pending, info.Scheduled, nil
}

// Close libera la conexión.
func (i *Inspector) Close() error { return i.inspector.Close() }
