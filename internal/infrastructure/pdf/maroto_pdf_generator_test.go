package pdf

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nfe-api/internal/domain/nfe"
	"github.com/jhoicas/nfe-api/internal/infrastructure/sefaz"
)

const sampleKey = "15240311222333000181550010000012341876543212"

func TestGenerateDANFE(t *testing.T) {
	s := &sefaz.Summary{
		AccessKey:     sampleKey,
		Series:        "001",
		Number:        "000001234",
		IssuedAt:      time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
		Environment:   "2",
		IssuerCNPJ:    "11222333000181",
		IssuerName:    "Emitente Teste LTDA",
		RecipientDoc:  "52998224725",
		RecipientName: "Consumidor Teste",
		Items: []sefaz.SummaryItem{{
			Code:        "SKU-1",
			Description: "Notebook",
			NCM:         "84713012",
			CFOP:        "5102",
			Unit:        "UN",
			Quantity:    decimal.NewFromInt(1),
			UnitValue:   decimal.RequireFromString("2500.00"),
			Value:       decimal.RequireFromString("2500.00"),
		}},
		Totals: nfe.Totals{
			ICMSBase:      nfe.Present(decimal.RequireFromString("2500.00")),
			ICMSValue:     nfe.Present(decimal.RequireFromString("475.00")),
			ProductValue:  decimal.RequireFromString("2500.00"),
			PISValue:      decimal.RequireFromString("41.25"),
			COFINSValue:   decimal.RequireFromString("190.00"),
			DocumentValue: decimal.RequireFromString("2500.00"),
		},
	}

	out, err := NewMarotoPDFGenerator().GenerateDANFE(context.Background(), s, nfe.QRCodeURL(sampleKey))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	_, err = NewMarotoPDFGenerator().GenerateDANFE(context.Background(), nil, "")
	assert.Error(t, err)
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "0,00", formatBRL(decimal.Zero))
	assert.Equal(t, "41,25", formatBRL(decimal.RequireFromString("41.25")))
	assert.Equal(t, "2.500,00", formatBRL(decimal.NewFromInt(2500)))
	assert.Equal(t, "1.234.567,89", formatBRL(decimal.RequireFromString("1234567.885")))
	assert.Equal(t, "-10,50", formatBRL(decimal.RequireFromString("-10.5")))
}

func TestMascaras(t *testing.T) {
	assert.Equal(t, "11.222.333/0001-81", formatCNPJ("11222333000181"))
	assert.Equal(t, "529.982.247-25", formatDocument("52998224725"))
	assert.Equal(t, "123", formatDocument("123"))
	assert.Equal(t, "1524 0311 2223", groupDigits("152403112223", 4))
}
