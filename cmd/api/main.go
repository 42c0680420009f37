package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/jhoicas/stockflow-api/internal/application/accounting"
	"github.com/jhoicas/stockflow-api/internal/application/auth"
	"github.com/jhoicas/stockflow-api/internal/application/billing"
	"github.com/jhoicas/stockflow-api/internal/application/usecase"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/cache"
	infradian "github.com/jhoicas/stockflow-api/internal/infrastructure/dian"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/metrics"
	infrapdf "github.com/jhoicas/stockflow-api/internal/infrastructure/pdf"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/postgres"
	"github.com/jhoicas/stockflow-api/internal/infrastructure/queue"
	httpRouter "github.com/jhoicas/stockflow-api/internal/interfaces/http"
	"github.com/jhoicas/stockflow-api/pkg/config"
	"github.com/jhoicas/stockflow-api/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: "api",
	})
	zl := log.Zerolog()
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("dian_env", cfg.DIAN.AppEnv).
		Str("failed_send_policy", cfg.DIAN.FailedSendPolicy).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	companyRepo := postgres.NewCompanyRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	repos := postgres.NewRepos(pool)
	txRunner := postgres.NewTxRunner(pool)

	m := metrics.New(nil)

	// DIAN: el ambiente del tenant se recorta a DIAN_APP_ENV; en dev nunca sale al WS.
	soapClient := infradian.NewSOAPDIANClient(infradian.Endpoints{}, cfg.DIAN.Timeout)
	gateway := metrics.WrapGateway(
		infradian.NewGateway(soapClient, zl).LimitEnvironment(cfg.DIAN.AppEnv), m)

	// Redis opcional: sondeo diferido (asynq) e Idempotency-Key.
	var (
		poller      billing.StatusPoller
		idempotency *cache.IdempotencyStore
		inspector   *queue.Inspector
	)
	if cfg.Redis.Addr != "" {
		rdb, err := cache.New(ctx, cache.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		idempotency = cache.NewIdempotencyStore(rdb, cfg.Redis.IdempotencyTTL)

		redisOpts := asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
		queueClient := queue.NewClient(redisOpts, cfg.DIAN.StatusPollDelay, cfg.DIAN.StatusPollMax)
		defer queueClient.Close()
		poller = queueClient
		inspector = queue.NewInspector(redisOpts)
		defer inspector.Close()
	} else {
		log.Warn().Msg("REDIS_ADDR vacío: sin sondeo diferido ni control de Idempotency-Key")
	}

	// Contabilidad: asiento automático de ventas al aceptar facturas y notas.
	journalUC := accounting.NewJournalUseCase(txRunner, postgres.NewJournalRepository(pool), zl)
	billingHook := accounting.NewBillingHook(journalUC, companyRepo, accounting.Accounts{
		Receivable: cfg.Accounting.ReceivableAccount,
		Revenue:    cfg.Accounting.RevenueAccount,
		VAT:        cfg.Accounting.VATAccount,
	})

	deps := billing.Dependencies{
		TxRunner:  txRunner,
		Repos:     repos,
		Companies: companyRepo,
		Customers: customerRepo,
		Products:  productRepo,
		Gateway:   gateway,
		Poller:    poller,
		Hook:      billingHook,
		Observer:  m,
		Logger:    zl,
		Options: billing.Options{
			Policy:         billing.FailedSendPolicy(cfg.DIAN.FailedSendPolicy),
			GatewayTimeout: cfg.DIAN.Timeout,
		},
	}
	invoiceUC := billing.NewInvoiceUseCase(deps)
	lifecycle := billing.NewLifecycle(deps)
	noteIssuer := billing.NewNoteIssuer(deps)
	dianConfigUC := billing.NewDianConfigUseCase(deps)

	// PDF: representación gráfica de facturas y notas
	pdfUC := billing.NewPDFUseCase(repos, companyRepo, customerRepo, infrapdf.NewMarotoPDFGenerator())
	moduleSvc := usecase.NewModuleService(companyRepo).WithCacheTTL(30 * time.Second)
	authUC := auth.NewAuthUseCase(postgres.NewUserRepository(pool), companyRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.DIAN.Timeout + 10*time.Second,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler(zl),
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "StockFlow API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		body := fiber.Map{"status": "ok", "service": cfg.App.Name, "dian_env": cfg.DIAN.AppEnv}
		if inspector != nil {
			pending, scheduled, err := inspector.Pending()
			if err != nil {
				body["queue"] = fiber.Map{"error": err.Error()}
			} else {
				body["queue"] = fiber.Map{"pending": pending, "scheduled": scheduled}
			}
		}
		return c.JSON(body)
	})

	routerDeps := httpRouter.RouterDeps{
		Auth:       authUC,
		Invoices:   invoiceUC,
		Lifecycle:  lifecycle,
		Notes:      noteIssuer,
		DianConfig: dianConfigUC,
		PDF:        pdfUC,
		Journals:   journalUC,
		Modules:    moduleSvc,
		Metrics:    prometheus.DefaultGatherer,
		JWTSecret:  cfg.JWT.Secret,
		JWTIssuer:  cfg.JWT.Issuer,
		Logger:     zl,
	}
	if idempotency != nil {
		routerDeps.Idempotency = idempotency
	}
	httpRouter.Router(app, routerDeps)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
