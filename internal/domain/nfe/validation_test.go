package nfe_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nfe-api/internal/domain/nfe"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func zero() decimal.NullDecimal { return nfe.Present(decimal.Zero) }

// validDocument NF-e mínima que pasa todas las reglas: un ítem de 2500.00 en PA (19%).
func validDocument() *nfe.Document {
	addr := nfe.Address{
		Street: "Av. Paulista", Number: "1000", District: "Bela Vista",
		MunicipalityCode: "3550308", MunicipalityName: "São Paulo", UF: "SP",
		ZipCode: "01310100", CountryCode: "1058", CountryName: "BRASIL",
	}
	return &nfe.Document{
		Identification: nfe.Identification{
			StateCode: "15", RandomCode: "87654321", OperationNature: "Venda de mercadoria",
			Model: "55", Series: "001", Number: "000001234",
			IssuedAt:      time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
			OperationType: "1", Destination: "1", MunicipalityCode: "1501402",
			PrintType: "1", EmissionType: "1", Environment: "2", Purpose: "1",
			FinalConsumer: "1", Presence: "2", ProcessType: "0", ProcessVersion: "test",
		},
		Issuer: nfe.Issuer{
			CNPJ: "11222333000181", Name: "Emitente Teste LTDA", StateRegistration: "123456789",
			TaxRegime: "3", Address: addr,
		},
		Recipient: nfe.Recipient{
			CPF: "52998224725", Name: "Consumidor Teste", IEIndicator: "9", Address: &addr,
		},
		Items: []nfe.LineItem{{
			Index: 1, ProductCode: "SKU-1", Description: "Notebook", NCM: "84713012", CFOP: "5102",
			CommercialUnit: "UN", Quantity: dec("1"), UnitValue: dec("2500.00"), ProductValue: dec("2500.00"),
			TaxUnit: "UN", TaxQuantity: dec("1"), TaxUnitValue: dec("2500.00"),
			Tax: nfe.TaxBlock{
				ICMS: nfe.ICMS00{Origin: "0", CST: "00", BaseMethod: "3",
					Base: dec("2500.00"), Rate: dec("19"), Value: dec("475.00")},
				PIS:    nfe.PIS{CST: "01", Base: dec("2500.00"), Rate: dec("1.65"), Value: dec("41.25")},
				COFINS: nfe.COFINS{CST: "01", Base: dec("2500.00"), Rate: dec("7.60"), Value: dec("190.00")},
			},
		}},
		Totals: nfe.Totals{
			ICMSBase: nfe.Present(dec("2500.00")), ICMSValue: nfe.Present(dec("475.00")),
			ICMSDesonerated: zero(), FCPValue: zero(), STBase: zero(), STValue: zero(),
			FCPSTValue: zero(), FCPSTRetained: zero(), ProductValue: dec("2500.00"),
			Freight: zero(), Insurance: zero(), Discount: zero(), ImportTax: zero(),
			IPIValue: zero(), IPIReturned: zero(), PISValue: dec("41.25"), COFINSValue: dec("190.00"),
			Other: zero(), DocumentValue: dec("2500.00"),
		},
		Transport: nfe.Transport{FreightMode: "9"},
		Payment: nfe.Payment{Details: []nfe.PaymentDetail{
			{Indicator: "0", Method: "17", Value: dec("2500.00")},
		}},
	}
}

func TestValidate_DocumentoValido(t *testing.T) {
	res := nfe.Validate(validDocument())
	assert.True(t, res.OK(), "errores inesperados: %v", res.Errors)
	assert.Empty(t, res.Warnings)
	assert.NoError(t, res.Err())
}

func TestValidate_Idempotente(t *testing.T) {
	doc := validDocument()
	doc.Identification.StateCode = "1"
	first := nfe.Validate(doc)
	second := nfe.Validate(doc)
	assert.Equal(t, first, second)
}

// Sin CNPJ ni CPF: siempre error, nunca solo advertencia.
func TestValidate_DestinatarioSinDocumento(t *testing.T) {
	doc := validDocument()
	doc.Recipient.CPF = ""
	res := nfe.Validate(doc)
	require.False(t, res.OK())
	assert.Contains(t, strings.Join(res.Errors, "\n"), "dest: CNPJ o CPF obligatorio")
	assert.True(t, errors.Is(res.Err(), nfe.ErrInvalidDocument))
}

func TestValidate_DestinatarioConAmbos(t *testing.T) {
	doc := validDocument()
	doc.Recipient.CNPJ = "11222333000181"
	res := nfe.Validate(doc)
	assert.Contains(t, res.Errors, "dest: informar CNPJ o CPF, no ambos")
}

// Las reglas se acumulan: un documento con varios defectos reporta todos.
func TestValidate_AcumulaSinCortocircuito(t *testing.T) {
	doc := validDocument()
	doc.Identification.StateCode = "1"
	doc.Identification.RandomCode = "123"
	doc.Identification.Series = "1"
	doc.Identification.Number = "12"
	doc.Identification.MunicipalityCode = "15014"
	doc.Identification.Environment = "3"
	doc.Transport.FreightMode = "5"
	doc.Issuer.Address.ZipCode = "0131"

	res := nfe.Validate(doc)
	joined := strings.Join(res.Errors, "\n")
	for _, field := range []string{
		"ide.cUF", "ide.cNF", "ide.serie", "ide.nNF", "ide.cMunFG",
		"ide.tpAmb", "transp.modFrete", "emit.enderEmit.CEP",
	} {
		assert.Contains(t, joined, field)
	}
	assert.GreaterOrEqual(t, len(res.Errors), 8)
}

func TestValidate_Enumeraciones(t *testing.T) {
	cases := []struct {
		field  string
		mutate func(d *nfe.Document)
	}{
		{"ide.tpNF", func(d *nfe.Document) { d.Identification.OperationType = "2" }},
		{"ide.idDest", func(d *nfe.Document) { d.Identification.Destination = "0" }},
		{"ide.tpImp", func(d *nfe.Document) { d.Identification.PrintType = "4" }},
		{"ide.tpEmis", func(d *nfe.Document) { d.Identification.EmissionType = "6" }},
		{"ide.finNFe", func(d *nfe.Document) { d.Identification.Purpose = "5" }},
		{"ide.indFinal", func(d *nfe.Document) { d.Identification.FinalConsumer = "2" }},
		{"ide.indPres", func(d *nfe.Document) { d.Identification.Presence = "9" }},
		{"transp.modFrete", func(d *nfe.Document) { d.Transport.FreightMode = "8" }},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			doc := validDocument()
			tc.mutate(doc)
			res := nfe.Validate(doc)
			require.Len(t, res.Errors, 1, "errores: %v", res.Errors)
			assert.Contains(t, res.Errors[0], tc.field)
		})
	}
}

func TestValidate_AnchosDeDocumentos(t *testing.T) {
	doc := validDocument()
	doc.Recipient.CPF = "5299822472"
	doc.Issuer.CNPJ = "1122233300018"
	res := nfe.Validate(doc)
	joined := strings.Join(res.Errors, "\n")
	assert.Contains(t, joined, "dest.CPF: debe tener 11 dígitos")
	assert.Contains(t, joined, "emit.CNPJ: debe tener 14 dígitos")
}

func TestValidate_DigitoVerificadorCNPJ(t *testing.T) {
	doc := validDocument()
	doc.Issuer.CNPJ = "11222333000182"
	res := nfe.Validate(doc)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "emit.CNPJ")
}

func TestValidate_SinItems(t *testing.T) {
	doc := validDocument()
	doc.Items = nil
	res := nfe.Validate(doc)
	assert.Contains(t, res.Errors, "det: se requiere al menos un ítem")
}

func TestValidate_DescripcionVaciaYLarga(t *testing.T) {
	doc := validDocument()
	doc.Items[0].Description = "   "
	res := nfe.Validate(doc)
	assert.Contains(t, res.Errors, "det[1].xProd: obligatorio")

	doc = validDocument()
	doc.Items[0].Description = strings.Repeat("á", 121)
	res = nfe.Validate(doc)
	assert.True(t, res.OK(), "descripción larga es solo advertencia: %v", res.Errors)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "det[1].xProd")

	doc = validDocument()
	doc.Items[0].Description = strings.Repeat("a", 120)
	assert.Empty(t, nfe.Validate(doc).Warnings)
}

func TestValidate_ItemSinICMS(t *testing.T) {
	doc := validDocument()
	doc.Items[0].Tax.ICMS = nil
	res := nfe.Validate(doc)
	assert.Contains(t, res.Errors, "det[1].imposto.ICMS: se requiere exactamente una variante")
}

func TestValidate_NCMyCFOP(t *testing.T) {
	doc := validDocument()
	doc.Items[0].NCM = "8471"
	doc.Items[0].CFOP = "510"
	res := nfe.Validate(doc)
	joined := strings.Join(res.Errors, "\n")
	assert.Contains(t, joined, "det[1].NCM")
	assert.Contains(t, joined, "det[1].CFOP")
}

// Ausente ≠ cero: cada total obligatorio sin valor es un error.
func TestValidate_TotalesAusentes(t *testing.T) {
	doc := validDocument()
	doc.Totals.ICMSDesonerated = decimal.NullDecimal{}
	doc.Totals.Freight = decimal.NullDecimal{}
	doc.Totals.Other = decimal.NullDecimal{}
	res := nfe.Validate(doc)
	joined := strings.Join(res.Errors, "\n")
	assert.Contains(t, joined, "total.vICMSDeson")
	assert.Contains(t, joined, "total.vFrete")
	assert.Contains(t, joined, "total.vOutro")
	assert.Len(t, res.Errors, 3)
}

func TestValidate_CoherenciaDeTotales(t *testing.T) {
	doc := validDocument()
	doc.Totals.ProductValue = dec("2499.99")
	res := nfe.Validate(doc)
	joined := strings.Join(res.Errors, "\n")
	assert.Contains(t, joined, "total.vProd")
	assert.Contains(t, joined, "total.vNF")

	doc = validDocument()
	doc.Totals.Freight = nfe.Present(dec("10.00"))
	res = nfe.Validate(doc)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "total.vNF")
}

func TestValidate_NumeroSoloCeros(t *testing.T) {
	doc := validDocument()
	doc.Identification.Number = "000000000"
	res := nfe.Validate(doc)
	assert.True(t, res.OK())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "ide.nNF")
}

func TestValidate_SinPago(t *testing.T) {
	doc := validDocument()
	doc.Payment = nfe.Payment{}
	res := nfe.Validate(doc)
	assert.Contains(t, res.Errors, "pag: se requiere al menos un detPag")
}

func TestValidate_DocumentoNulo(t *testing.T) {
	res := nfe.Validate(nil)
	assert.False(t, res.OK())
}

func TestValidate_TextoNoAdmitidoEnXML(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(d *nfe.Document)
		field string
	}{
		{"xProd con control", func(d *nfe.Document) { d.Items[0].Description = "Mouse\x01\u00f3ptico" }, "det[1].xProd"},
		{"xProd UTF-8 inválido", func(d *nfe.Document) { d.Items[0].Description = "Mouse \xff\xfe" }, "det[1].xProd"},
		{"natOp", func(d *nfe.Document) { d.Identification.OperationNature = "Venda\x00" }, "ide.natOp"},
		{"emit.xNome", func(d *nfe.Document) { d.Issuer.Name = "Emitente\x1b" }, "emit.xNome"},
		{"dest.xNome", func(d *nfe.Document) { d.Recipient.Name = "Cliente\x7f\xc3" }, "dest.xNome"},
		{"xLgr", func(d *nfe.Document) { d.Issuer.Address.Street = "Rua\x0b1" }, "emit.enderEmit.xLgr"},
		{"infCpl", func(d *nfe.Document) { d.AdditionalInfo = "obs\x08" }, "infAdic.infCpl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := validDocument()
			tt.edit(doc)
			res := nfe.Validate(doc)
			require.False(t, res.OK())
			assert.Contains(t, strings.Join(res.Errors, "\n"), tt.field)
		})
	}
}

func TestValidate_TextoConTabYSaltoEsValido(t *testing.T) {
	doc := validDocument()
	doc.AdditionalInfo = "linea 1\nlinea 2\tfin"
	doc.Items[0].Description = "A\u00e7\u00facar \U0001F600"
	assert.True(t, nfe.Validate(doc).OK())
}
