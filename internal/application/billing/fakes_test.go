package billing_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/infrastructure/sefaz"
)

// ── Repositorios en memoria ───────────────────────────────────────────────────

type memEmissions struct {
	mu      sync.Mutex
	byID    map[string]entity.Emission
	history []string // estados en el orden en que se persistieron
}

func newMemEmissions() *memEmissions {
	return &memEmissions{byID: map[string]entity.Emission{}}
}

func (m *memEmissions) Create(ctx context.Context, e *entity.Emission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[e.ID]; ok {
		return domain.ErrDuplicate
	}
	m.byID[e.ID] = *e
	m.history = append(m.history, e.Status)
	return nil
}

func (m *memEmissions) Update(ctx context.Context, e *entity.Emission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[e.ID]; !ok {
		return domain.ErrNotFound
	}
	m.byID[e.ID] = *e
	m.history = append(m.history, e.Status)
	return nil
}

func (m *memEmissions) GetByID(_ context.Context, id string) (*entity.Emission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *memEmissions) GetByAccessKey(_ context.Context, key string) (*entity.Emission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.byID {
		if e.AccessKey == key {
			cp := e
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memEmissions) ListByOrder(_ context.Context, orderID string) ([]*entity.Emission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Emission
	for _, e := range m.byID {
		if e.OrderID == orderID {
			cp := e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memEmissions) statuses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.history...)
}

type memOrders map[string]*entity.Order

func (m memOrders) GetByID(_ context.Context, id string) (*entity.Order, error) { return m[id], nil }

type memCustomers map[string]*entity.Customer

func (m memCustomers) GetByID(_ context.Context, id string) (*entity.Customer, error) { return m[id], nil }

type memCompanies map[string]*entity.Company

func (m memCompanies) GetByID(_ context.Context, id string) (*entity.Company, error) { return m[id], nil }

type memProducts map[string]*entity.Product

func (m memProducts) GetByIDs(_ context.Context, ids []string) (map[string]*entity.Product, error) {
	out := make(map[string]*entity.Product, len(ids))
	for _, id := range ids {
		if p, ok := m[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// ── Autorizador simulado ──────────────────────────────────────────────────────

// fakeAuthorizer devuelve intentos prefabricados y notifica SUBMITTED cuando hay recibo.
// gate, si no es nil, retiene Authorize hasta cerrarse; after corre al final de Authorize.
type fakeAuthorizer struct {
	mu        sync.Mutex
	status    sefaz.StatusResult
	authorize sefaz.Attempt
	resume    sefaz.Attempt
	gate      chan struct{}
	after     func()
	calls     []string
	receipts  []string
}

func (f *fakeAuthorizer) Environment() string { return "2" }

func (f *fakeAuthorizer) CheckStatus(context.Context) sefaz.StatusResult {
	f.record("status", "")
	return f.status
}

func (f *fakeAuthorizer) Authorize(_ context.Context, signedXML []byte, _ int, observers ...sefaz.Observer) *sefaz.Attempt {
	f.record("authorize", "")
	if f.gate != nil {
		<-f.gate
	}
	a := f.authorize
	a.SignedXML = signedXML
	if a.Receipt != "" {
		submitted := a
		submitted.State = sefaz.StateSubmitted
		for _, o := range observers {
			o(&submitted)
		}
	}
	if f.after != nil {
		f.after()
	}
	return &a
}

func (f *fakeAuthorizer) ResumeAttempt(_ context.Context, signedXML []byte, receipt string, _ int, _ ...sefaz.Observer) *sefaz.Attempt {
	f.record("resume", receipt)
	a := f.resume
	a.SignedXML = signedXML
	a.Receipt = receipt
	return &a
}

func (f *fakeAuthorizer) record(call, receipt string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	if receipt != "" {
		f.receipts = append(f.receipts, receipt)
	}
}

func (f *fakeAuthorizer) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// ── Certificados ──────────────────────────────────────────────────────────────

// countingCerts cuenta las cargas de la estrategia envuelta.
type countingCerts struct {
	inner sefaz.CertificateStrategy
	loads atomic.Int32
}

func (c *countingCerts) Load() (*sefaz.Certificate, error) {
	c.loads.Add(1)
	return c.inner.Load()
}
