// worker procesa la cola dian: consulta diferida del estado de facturas y notas enviadas.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/jhoicas/stockflow-api/internal/application/accounting"
	"github.com/jhoicas/stockflow-api/internal/application/billing"
	infradian "github.com/jhoicas/stockflow-api/internal/infrastructure/dian"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/metrics"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/postgres"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/queue"
	"github.com/jhoicas/stockflow-api/pkg/config"
	"github.com/jhoicas/stockflow-api/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "worker"})
	zl := log.Zerolog()

	if cfg.Redis.Addr == "" {
		log.Fatal().Msg("REDIS_ADDR es obligatorio para el worker")
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	companyRepo := postgres.NewCompanyRepository(pool)
	txRunner := postgres.NewTxRunner(pool)
	m := metrics.New(nil)

	soapClient := infradian.NewSOAPDIANClient(infradian.Endpoints{}, cfg.DIAN.Timeout)
	gateway := metrics.WrapGateway(
		infradian.NewGateway(soapClient, zl).LimitEnvironment(cfg.DIAN.AppEnv), m)

	journalUC := accounting.NewJournalUseCase(txRunner, postgres.NewJournalRepository(pool), zl)
	deps := billing.Dependencies{
		TxRunner:  txRunner,
		Repos:     postgres.NewRepos(pool),
		Companies: companyRepo,
		Customers: postgres.NewCustomerRepository(pool),
		Products:  postgres.NewProductRepository(pool),
		Gateway:   gateway,
		Hook: accounting.NewBillingHook(journalUC, companyRepo, accounting.Accounts{
			Receivable: cfg.Accounting.ReceivableAccount,
			Revenue:    cfg.Accounting.RevenueAccount,
			VAT:        cfg.Accounting.VATAccount,
		}),
		Observer: m,
		Logger:   zl,
		Options: billing.Options{
			Policy:         billing.FailedSendPolicy(cfg.DIAN.FailedSendPolicy),
			GatewayTimeout: cfg.DIAN.Timeout,
		},
	}

	worker, err := queue.NewWorker(queue.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB},
		BaseDelay: cfg.DIAN.StatusPollDelay,
		Handler: &queue.StatusCheckHandler{
			Invoices: billing.NewLifecycle(deps),
			Notes:    billing.NewNoteIssuer(deps),
			Recorder: m,
			Logger:   zl,
		},
		Logger: zl,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("crear worker")
	}
	if err := worker.Run(ctx); err != nil {
		log.Error().Err(err).Msg("worker finalizado con error")
		return
	}
	log.Info().Msg("worker detenido")
}
