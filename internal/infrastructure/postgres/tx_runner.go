package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/stockflow-api/internal/application/accounting"
	"github.com/jhoicas/stockflow-api/internal/application/billing"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

// Ensure TxRunner implements billing.BillingTxRunner and accounting.TxRunner.
var (
	_ billing.BillingTxRunner = (*TxRunner)(nil)
	_ accounting.TxRunner     = (*TxRunner)(nil)
)

var tracer = otel.Tracer("stockflow/postgres")

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunBilling inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) RunBilling(ctx context.Context, fn func(repos repository.TxRepos) error) error {
	return r.run(ctx, "RunBilling", func(tx pgx.Tx) error {
		return fn(NewRepos(tx))
	})
}

// RunAccounting transacción limitada a asientos contables.
func (r *TxRunner) RunAccounting(ctx context.Context, fn func(journals repository.JournalRepository) error) error {
	return r.run(ctx, "RunAccounting", func(tx pgx.Tx) error {
		return fn(NewJournalRepository(tx))
	})
}

func (r *TxRunner) run(ctx context.Context, name string, fn func(tx pgx.Tx) error) (err error) {
	ctx, span := tracer.Start(ctx, "postgres."+name,
		trace.WithAttributes(attribute.String("db.system", "postgresql")))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// NewRepos arma los repositorios de facturación sobre q (pool o transacción).
func NewRepos(q Querier) repository.TxRepos {
	return repository.TxRepos{
		Invoices:    NewInvoiceRepository(q),
		Notes:       NewNoteRepository(q),
		Resolutions: NewBillingResolutionRepository(q),
		Configs:     NewDianConfigRepository(q),
		Journals:    NewJournalRepository(q),
	}
}
