package boltstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/infrastructure/boltstore"
)

const fixturesYAML = `
companies:
  - id: comp-1
    cnpj: "11222333000181"
    name: Loja Exemplo Ltda
    state_registration: "150000001"
    tax_regime: "3"
    state_code: "15"
    series: "1"
    operation_nature: Venda de mercadoria
    custom_icms_rate: "12"
    address:
      street: Av. Presidente Vargas
      number: "100"
      district: Campina
      municipality_code: "1501402"
      municipality_name: Belem
      uf: PA
      zip_code: "66010000"
      phone: "9132220000"
customers:
  - id: cust-1
    company_id: comp-1
    name: Maria da Silva
    document: "52998224725"
    address:
      street: Rua A
      number: "10"
      district: Centro
      municipality_code: "1501402"
      municipality_name: Belem
      uf: PA
      zip_code: "66015000"
products:
  - id: prod-1
    company_id: comp-1
    sku: NB-01
    name: Notebook
    ncm: "84713012"
    unit: UN
    origin: "0"
orders:
  - id: ord-1
    company_id: comp-1
    public_id: PED-001234
    customer_id: cust-1
    payment_method: "17"
    items:
      - product_id: prod-1
        quantity: 2
        unit_price_cents: 125000
`

func openStore(t *testing.T) *boltstore.Store {
	t.Helper()
	s, err := boltstore.Open(filepath.Join(t.TempDir(), "nfe.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestLoadFixtures(t *testing.T) {
	s := openStore(t)
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixturesYAML), 0o600))
	require.NoError(t, s.LoadFixturesFile(path))
	ctx := context.Background()

	company, err := s.Companies().GetByID(ctx, "comp-1")
	require.NoError(t, err)
	require.NotNil(t, company)
	assert.Equal(t, "11222333000181", company.CNPJ)
	assert.Equal(t, "PA", company.Address.UF)
	require.True(t, company.CustomICMSRate.Valid)
	assert.True(t, company.CustomICMSRate.Decimal.Equal(decimal.NewFromInt(12)))
	assert.False(t, company.PISRate.Valid)

	customer, err := s.Customers().GetByID(ctx, "cust-1")
	require.NoError(t, err)
	require.NotNil(t, customer)
	assert.Equal(t, "52998224725", customer.Document)

	products, err := s.Products().GetByIDs(ctx, []string{"prod-1", "no-existe"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "84713012", products["prod-1"].NCM)

	order, err := s.Orders().GetByID(ctx, "ord-1")
	require.NoError(t, err)
	require.NotNil(t, order)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].Quantity.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, int64(125000), order.Items[0].UnitPriceCents)

	missing, err := s.Orders().GetByID(ctx, "no-existe")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestLoadFixtures_CantidadInvalida(t *testing.T) {
	s := openStore(t)
	f, err := boltstore.ParseFixtures([]byte(`
orders:
  - id: ord-x
    items:
      - product_id: p
        quantity: dos
`))
	require.NoError(t, err)
	assert.Error(t, s.LoadFixtures(f, time.Now()))
}

func TestEmissionRepo(t *testing.T) {
	s := openStore(t)
	repo := s.Emissions()
	ctx := context.Background()
	base := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

	first := &entity.Emission{
		ID:               "em-1",
		OrderID:          "ord-1",
		AccessKey:        "15240311222333000181550010000012341876543212",
		Status:           entity.EmissionStatusTransportError,
		DocumentValue:    decimal.RequireFromString("2500.00"),
		ValidationErrors: []string{},
		CreatedAt:        base,
	}
	second := &entity.Emission{ID: "em-2", OrderID: "ord-1", Status: entity.EmissionStatusSigned, CreatedAt: base.Add(time.Minute)}

	err := repo.Update(ctx, first)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	assert.True(t, errors.Is(repo.Create(ctx, first), domain.ErrDuplicate))

	second.Status = entity.EmissionStatusAuthorized
	second.Protocol = "135240000000001"
	require.NoError(t, repo.Update(ctx, second))

	got, err := repo.GetByID(ctx, "em-2")
	require.NoError(t, err)
	assert.Equal(t, entity.EmissionStatusAuthorized, got.Status)
	assert.Equal(t, "135240000000001", got.Protocol)

	list, err := repo.ListByOrder(ctx, "ord-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "em-2", list[0].ID)

	byKey, err := repo.GetByAccessKey(ctx, first.AccessKey)
	require.NoError(t, err)
	require.NotNil(t, byKey)
	assert.Equal(t, "em-1", byKey.ID)
	assert.Equal(t, "2500", byKey.DocumentValue.String())

	none, err := repo.GetByID(ctx, "no-existe")
	require.NoError(t, err)
	assert.Nil(t, none)
}
