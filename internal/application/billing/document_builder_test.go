package billing_test

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nfe-api/internal/application/billing"
	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/nfe"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var issuedAt = time.Date(2024, 3, 10, 9, 0, 0, 0, time.FixedZone("BRT", -3*3600))

func fixedRandom(codes ...string) billing.RandomCode {
	i := 0
	return func() (string, error) {
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}

func newBuilder(environment string) *billing.DocumentBuilder {
	return billing.NewDocumentBuilder(environment, zerolog.Nop()).
		WithClock(func() time.Time { return issuedAt }).
		WithRandom(fixedRandom("87654321"))
}

func sampleIssuer() *entity.Company {
	return &entity.Company{
		ID:                "comp-1",
		CNPJ:              "11.222.333/0001-81",
		Name:              "Loja Exemplo Ltda",
		StateRegistration: "151234567",
		TaxRegime:         "3",
		StateCode:         "15",
		Address: entity.Address{
			Street:           "Av. Presidente Vargas",
			Number:           "100",
			District:         "Campina",
			MunicipalityCode: "1501402",
			MunicipalityName: "Belém",
			UF:               "PA",
			ZipCode:          "66010-000",
		},
		Series: "1",
	}
}

func sampleCustomer() *entity.Customer {
	return &entity.Customer{
		ID:       "cust-1",
		Name:     "Maria da Silva",
		Document: "529.982.247-25",
		Email:    "maria@example.com",
		Address: entity.Address{
			Street:           "Rua das Flores",
			Number:           "10",
			District:         "Nazaré",
			MunicipalityCode: "1501402",
			MunicipalityName: "Belém",
			UF:               "PA",
			ZipCode:          "66035000",
		},
	}
}

func sampleProducts() map[string]*entity.Product {
	return map[string]*entity.Product{
		"prod-1": {ID: "prod-1", SKU: "NB-01", Name: "Notebook", NCM: "84713012", Unit: "UN"},
		"prod-2": {ID: "prod-2", SKU: "MS-01", Name: "Mouse", NCM: "84716053", CFOP: "5405", EAN: "7891234567895"},
	}
}

func sampleOrder() *entity.Order {
	return &entity.Order{
		ID:            "ord-1",
		CompanyID:     "comp-1",
		PublicID:      "PED-001234",
		CustomerID:    "cust-1",
		PaymentMethod: "17",
		Items: []entity.OrderItem{
			{ProductID: "prod-1", Quantity: dec("1"), UnitPriceCents: 250000},
		},
	}
}

func TestBuild_ICMSPorUF(t *testing.T) {
	doc, err := newBuilder("2").Build(sampleOrder(), sampleCustomer(), sampleProducts(), sampleIssuer())
	require.NoError(t, err)

	require.Len(t, doc.Items, 1)
	icms, ok := doc.Items[0].Tax.ICMS.(nfe.ICMS00)
	require.True(t, ok)
	assert.True(t, icms.Rate.Equal(dec("19")))
	assert.Equal(t, "475.00", icms.Value.StringFixed(2))
	assert.Equal(t, "41.25", doc.Items[0].Tax.PIS.Value.StringFixed(2))
	assert.Equal(t, "190.00", doc.Items[0].Tax.COFINS.Value.StringFixed(2))

	assert.Equal(t, "2500.00", doc.Totals.ProductValue.StringFixed(2))
	assert.Equal(t, "2500.00", doc.Totals.DocumentValue.StringFixed(2))
	assert.Equal(t, "475.00", doc.Totals.ICMSValue.Decimal.StringFixed(2))

	res := nfe.Validate(doc)
	assert.True(t, res.OK(), "%v", res.Errors)
}

func TestBuild_IdentificacionYClave(t *testing.T) {
	doc, err := newBuilder("2").Build(sampleOrder(), sampleCustomer(), sampleProducts(), sampleIssuer())
	require.NoError(t, err)

	id := doc.Identification
	assert.Equal(t, "000001234", id.Number)
	assert.Equal(t, "001", id.Series)
	assert.Equal(t, "87654321", id.RandomCode)
	assert.Equal(t, "55", id.Model)
	assert.Equal(t, "1", id.Destination)
	assert.Equal(t, "1", id.FinalConsumer)
	assert.Equal(t, "2", id.Presence)
	assert.Equal(t, issuedAt, id.IssuedAt)

	key, err := nfe.AccessKey(doc)
	require.NoError(t, err)
	assert.Len(t, key, 44)
	assert.Equal(t, key[43:], id.CheckDigit)

	assert.Equal(t, "11222333000181", doc.Issuer.CNPJ)
	assert.Equal(t, "52998224725", doc.Recipient.CPF)
	assert.Empty(t, doc.Recipient.CNPJ)
	assert.Equal(t, "9", doc.Recipient.IEIndicator)
	assert.Equal(t, "5102", doc.Items[0].CFOP)
	assert.Equal(t, "1058", doc.Issuer.Address.CountryCode)
}

func TestBuild_HomologacionReemplazaNombre(t *testing.T) {
	doc, err := newBuilder("2").Build(sampleOrder(), sampleCustomer(), sampleProducts(), sampleIssuer())
	require.NoError(t, err)
	assert.Equal(t, "NF-E EMITIDA EM AMBIENTE DE HOMOLOGACAO - SEM VALOR FISCAL", doc.Recipient.Name)

	doc, err = newBuilder("1").Build(sampleOrder(), sampleCustomer(), sampleProducts(), sampleIssuer())
	require.NoError(t, err)
	assert.Equal(t, "Maria da Silva", doc.Recipient.Name)
}

func TestBuild_Interestadual(t *testing.T) {
	customer := sampleCustomer()
	customer.Document = "11444777000161"
	customer.StateRegistration = "123456789"
	customer.Address.UF = "SP"
	customer.Address.MunicipalityCode = "3550308"

	order := sampleOrder()
	order.Items = append(order.Items, entity.OrderItem{ProductID: "prod-2", Quantity: dec("2"), UnitPriceCents: 5000})

	doc, err := newBuilder("1").Build(order, customer, sampleProducts(), sampleIssuer())
	require.NoError(t, err)

	assert.Equal(t, "2", doc.Identification.Destination)
	assert.Equal(t, "0", doc.Identification.FinalConsumer)
	assert.Equal(t, "6102", doc.Items[0].CFOP)
	assert.Equal(t, "6405", doc.Items[1].CFOP)
	assert.Equal(t, "11444777000161", doc.Recipient.CNPJ)
	assert.Equal(t, "1", doc.Recipient.IEIndicator)
	assert.Equal(t, "123456789", doc.Recipient.StateRegistration)
	assert.Equal(t, 2, doc.Items[1].Index)
	assert.Equal(t, "2600.00", doc.Totals.ProductValue.StringFixed(2))

	res := nfe.Validate(doc)
	assert.True(t, res.OK(), "%v", res.Errors)
}

func TestBuild_UFDesconocidaUsaRespaldo(t *testing.T) {
	issuer := sampleIssuer()
	issuer.StateCode = "99"

	doc, err := newBuilder("2").Build(sampleOrder(), sampleCustomer(), sampleProducts(), issuer)
	require.NoError(t, err)
	icms := doc.Items[0].Tax.ICMS.(nfe.ICMS00)
	assert.True(t, icms.Rate.Equal(dec("18")))
	assert.Equal(t, "450.00", icms.Value.StringFixed(2))

	res := nfe.Validate(doc)
	assert.True(t, res.OK(), "%v", res.Errors)

	issuer.CustomICMSRate = decimal.NewNullDecimal(dec("12"))
	doc, err = newBuilder("2").Build(sampleOrder(), sampleCustomer(), sampleProducts(), issuer)
	require.NoError(t, err)
	assert.Equal(t, "300.00", doc.Items[0].Tax.ICMS.(nfe.ICMS00).Value.StringFixed(2))
}

func TestBuild_DescuentoYCargos(t *testing.T) {
	order := sampleOrder()
	order.Items[0].DiscountCents = 10000
	order.Items[0].FreightCents = 2550
	order.Items[0].OtherCents = 100

	doc, err := newBuilder("2").Build(order, sampleCustomer(), sampleProducts(), sampleIssuer())
	require.NoError(t, err)

	it := doc.Items[0]
	icms := it.Tax.ICMS.(nfe.ICMS00)
	assert.Equal(t, "2400.00", icms.Base.StringFixed(2))
	assert.Equal(t, "456.00", icms.Value.StringFixed(2))
	// PIS/COFINS sobre el valor bruto.
	assert.Equal(t, "2500.00", it.Tax.PIS.Base.StringFixed(2))
	assert.Equal(t, "41.25", it.Tax.PIS.Value.StringFixed(2))
	assert.True(t, it.Discount.Valid)
	assert.False(t, it.Insurance.Valid)

	tot := doc.Totals
	assert.Equal(t, "100.00", tot.Discount.Decimal.StringFixed(2))
	assert.Equal(t, "25.50", tot.Freight.Decimal.StringFixed(2))
	assert.Equal(t, "0.00", tot.Insurance.Decimal.StringFixed(2))
	assert.Equal(t, "2426.50", tot.DocumentValue.StringFixed(2))
	assert.Equal(t, "2426.50", doc.Payment.Details[0].Value.StringFixed(2))

	res := nfe.Validate(doc)
	assert.True(t, res.OK(), "%v", res.Errors)
}

func TestBuild_TotalesSumanPorItem(t *testing.T) {
	order := sampleOrder()
	order.Items = []entity.OrderItem{
		{ProductID: "prod-1", Quantity: dec("3"), UnitPriceCents: 33333},
		{ProductID: "prod-2", Quantity: dec("1"), UnitPriceCents: 1, TotalCents: 999},
	}
	doc, err := newBuilder("2").Build(order, sampleCustomer(), sampleProducts(), sampleIssuer())
	require.NoError(t, err)

	assert.Equal(t, "999.99", doc.Items[0].ProductValue.StringFixed(2))
	assert.Equal(t, "9.99", doc.Items[1].ProductValue.StringFixed(2))
	assert.Equal(t, "1009.98", doc.Totals.ProductValue.StringFixed(2))

	sumICMS := doc.Items[0].Tax.ICMS.(nfe.ICMS00).Value.Add(doc.Items[1].Tax.ICMS.(nfe.ICMS00).Value)
	assert.True(t, doc.Totals.ICMSValue.Decimal.Equal(sumICMS))
}

func TestBuild_NumeroDesdeIdentificadorPublico(t *testing.T) {
	cases := []struct{ publicID, want string }{
		{"PED-000123", "000000123"},
		{"42", "000000042"},
		{"2024-1234567890", "234567890"},
	}
	for _, c := range cases {
		order := sampleOrder()
		order.PublicID = c.publicID
		doc, err := newBuilder("2").Build(order, sampleCustomer(), sampleProducts(), sampleIssuer())
		require.NoError(t, err)
		assert.Equal(t, c.want, doc.Identification.Number, c.publicID)
	}
}

func TestBuild_CodigoAleatorioDistintoDelNumero(t *testing.T) {
	b := billing.NewDocumentBuilder("2", zerolog.Nop()).
		WithClock(func() time.Time { return issuedAt }).
		WithRandom(fixedRandom("00001234", "00001234", "55555555"))
	doc, err := b.Build(sampleOrder(), sampleCustomer(), sampleProducts(), sampleIssuer())
	require.NoError(t, err)
	assert.Equal(t, "55555555", doc.Identification.RandomCode)
}

func TestBuild_Pago(t *testing.T) {
	order := sampleOrder()
	order.PaymentMethod = "XX"
	order.Installments = true
	doc, err := newBuilder("2").Build(order, sampleCustomer(), sampleProducts(), sampleIssuer())
	require.NoError(t, err)
	require.Len(t, doc.Payment.Details, 1)
	assert.Equal(t, "99", doc.Payment.Details[0].Method)
	assert.Equal(t, "1", doc.Payment.Details[0].Indicator)

	doc, err = newBuilder("2").Build(sampleOrder(), sampleCustomer(), sampleProducts(), sampleIssuer())
	require.NoError(t, err)
	assert.Equal(t, "17", doc.Payment.Details[0].Method)
	assert.Equal(t, "0", doc.Payment.Details[0].Indicator)
}

func TestBuild_DatosFaltantes(t *testing.T) {
	b := newBuilder("2")

	order := sampleOrder()
	order.Items[0].ProductID = "no-existe"
	_, err := b.Build(order, sampleCustomer(), sampleProducts(), sampleIssuer())
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = b.Build(nil, sampleCustomer(), sampleProducts(), sampleIssuer())
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	empty := sampleOrder()
	empty.Items = nil
	_, err = b.Build(empty, sampleCustomer(), sampleProducts(), sampleIssuer())
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestCryptoRandomCode(t *testing.T) {
	code, err := billing.CryptoRandomCode()
	require.NoError(t, err)
	assert.Len(t, code, 8)
}
