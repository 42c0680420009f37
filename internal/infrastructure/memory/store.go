// Package memory implementa los puertos de repositorio en memoria. Las transacciones se
// serializan y se revierten restaurando una instantánea; sirve para pruebas y demos sin PostgreSQL.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/jhoicas/stockflow-api/internal/domain/entity"
	"github.com/jhoicas/stockflow-api/internal/domain/repository"
)

// Store estado compartido de todos los repositorios en memoria.
// Los valores guardados nunca se mutan: cada escritura reemplaza por una copia.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data tables
}

type tables struct {
	companies   map[string]*entity.Company
	users       map[string]*entity.User
	modules     map[string]bool // companyID + "/" + módulo
	customers   map[string]*entity.Customer
	products    map[string]*entity.Product
	invoices    map[string]*entity.Invoice
	details     map[string][]*entity.InvoiceDetail
	notes       map[string]*entity.Note
	resolutions map[string]*entity.BillingResolution
	configs     map[string]*entity.DianConfig
	journals    map[string]*entity.JournalEntry
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{data: tables{
		companies:   map[string]*entity.Company{},
		users:       map[string]*entity.User{},
		modules:     map[string]bool{},
		customers:   map[string]*entity.Customer{},
		products:    map[string]*entity.Product{},
		invoices:    map[string]*entity.Invoice{},
		details:     map[string][]*entity.InvoiceDetail{},
		notes:       map[string]*entity.Note{},
		resolutions: map[string]*entity.BillingResolution{},
		configs:     map[string]*entity.DianConfig{},
		journals:    map[string]*entity.JournalEntry{},
	}}
}

func (s *Store) snapshot() tables {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tables{
		companies:   copyMap(s.data.companies),
		users:       copyMap(s.data.users),
		modules:     copyMap(s.data.modules),
		customers:   copyMap(s.data.customers),
		products:    copyMap(s.data.products),
		invoices:    copyMap(s.data.invoices),
		details:     copyMap(s.data.details),
		notes:       copyMap(s.data.notes),
		resolutions: copyMap(s.data.resolutions),
		configs:     copyMap(s.data.configs),
		journals:    copyMap(s.data.journals),
	}
}

func (s *Store) restore(t tables) {
	s.mu.Lock()
	s.data = t
	s.mu.Unlock()
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// AddCompany registra una empresa con los módulos indicados activos.
func (s *Store) AddCompany(c *entity.Company, modules ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.data.companies[c.ID] = &cp
	for _, m := range modules {
		s.data.modules[c.ID+"/"+m] = true
	}
}

// AddUser registra un usuario.
func (s *Store) AddUser(u *entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.data.users[strings.ToLower(u.Email)] = &cp
}

// AddCustomer registra un cliente.
func (s *Store) AddCustomer(c *entity.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.data.customers[c.ID] = &cp
}

// AddProduct registra un producto.
func (s *Store) AddProduct(p *entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	s.data.products[p.ID] = &cp
}

// Repos devuelve los repositorios transaccionales sin transacción (lecturas directas).
func (s *Store) Repos() repository.TxRepos {
	return repository.TxRepos{
		Invoices:    &InvoiceRepo{s: s},
		Notes:       &NoteRepo{s: s},
		Resolutions: &ResolutionRepo{s: s},
		Configs:     &DianConfigRepo{s: s},
		Journals:    &JournalRepo{s: s},
	}
}

// Users repositorio de usuarios.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Companies repositorio de empresas.
func (s *Store) Companies() *CompanyRepo { return &CompanyRepo{s: s} }

// Customers repositorio de clientes.
func (s *Store) Customers() *CustomerRepo { return &CustomerRepo{s: s} }

// Products repositorio de productos.
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

// TxRunner serializa las transacciones sobre el Store.
type TxRunner struct {
	s *Store
}

// NewTxRunner construye el runner.
func NewTxRunner(s *Store) *TxRunner {
	return &TxRunner{s: s}
}

// RunBilling ejecuta fn de forma exclusiva; si fn falla se restaura el estado previo.
func (r *TxRunner) RunBilling(ctx context.Context, fn func(repos repository.TxRepos) error) error {
	return r.run(ctx, func() error { return fn(r.s.Repos()) })
}

// RunAccounting igual que RunBilling, limitado a asientos.
func (r *TxRunner) RunAccounting(ctx context.Context, fn func(journals repository.JournalRepository) error) error {
	return r.run(ctx, func() error { return fn(&JournalRepo{s: r.s}) })
}

func (r *TxRunner) run(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.txMu.Lock()
	defer r.s.txMu.Unlock()
	snap := r.s.snapshot()
	if err := fn(); err != nil {
		r.s.restore(snap)
		return err
	}
	return nil
}
