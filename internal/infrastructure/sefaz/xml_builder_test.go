package sefaz_test

import (
	"crypto/tls"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/nfe-api/internal/domain/nfe"
	"github.com/jhoicas/nfe-api/internal/infrastructure/sefaz"
)

func build(t *testing.T, doc *nfe.Document) string {
	t.Helper()
	out, err := sefaz.NewXMLBuilderService().Build(doc)
	require.NoError(t, err)
	return string(out)
}

func TestBuild_RaizYClave(t *testing.T) {
	xml := build(t, sampleDocument())
	assert.True(t, strings.HasPrefix(xml,
		`<NFe xmlns="http://www.portalfiscal.inf.br/nfe"><infNFe versao="4.00" Id="NFe`+sampleKey+`">`), xml[:120])
	assert.True(t, strings.HasSuffix(xml, "</infNFe></NFe>"))
	assert.Contains(t, xml, "<cDV>2</cDV>")
	assert.Contains(t, xml, "<serie>1</serie>")
	assert.Contains(t, xml, "<nNF>1234</nNF>")
	assert.Contains(t, xml, "<dhEmi>2024-03-10T09:00:00-03:00</dhEmi>")
}

func TestBuild_OrdenPosicional(t *testing.T) {
	xml := build(t, sampleDocument())
	order := []string{
		"<ide>", "<emit>", "<enderEmit>", "<dest>", "<enderDest>", `<det nItem="1">`,
		"<prod>", "<imposto>", "<ICMS00>", "<PISAliq>", "<COFINSAliq>",
		"<total>", "<ICMSTot>", "<transp>", "<pag>", "<detPag>",
	}
	last := -1
	for _, tag := range order {
		idx := strings.Index(xml, tag)
		require.GreaterOrEqual(t, idx, 0, "falta %s", tag)
		assert.Greater(t, idx, last, "%s fuera de orden", tag)
		last = idx
	}

	// Orden de ICMSTot (19 campos).
	totOrder := []string{"vBC", "vICMS", "vICMSDeson", "vFCP", "vBCST", "vST", "vFCPST", "vFCPSTRet",
		"vProd", "vFrete", "vSeg", "vDesc", "vII", "vIPI", "vIPIDevol", "vPIS", "vCOFINS", "vOutro", "vNF"}
	tot := xml[strings.Index(xml, "<ICMSTot>"):strings.Index(xml, "</ICMSTot>")]
	last = -1
	for _, tag := range totOrder {
		idx := strings.Index(tot, "<"+tag+">")
		require.GreaterOrEqual(t, idx, 0, "falta total.%s", tag)
		assert.Greater(t, idx, last, "total.%s fuera de orden", tag)
		last = idx
	}
}

func TestBuild_OmiteOpcionalesPeroNoTotales(t *testing.T) {
	xml := build(t, sampleDocument())
	prod := xml[strings.Index(xml, "<prod>"):strings.Index(xml, "</prod>")]
	assert.NotContains(t, prod, "<vFrete>")
	assert.NotContains(t, prod, "<vDesc>")
	assert.NotContains(t, xml, "<xFant>")
	assert.NotContains(t, xml, "<infAdic>")
	assert.NotContains(t, xml, "<xFant></xFant>")
	assert.Contains(t, xml, "<vFrete>0.00</vFrete>")
	assert.Contains(t, xml, "<vFCP>0.00</vFCP>")
	assert.Contains(t, xml, "<cEAN>SEM GTIN</cEAN>")
}

func TestBuild_EscapaYNormalizaTexto(t *testing.T) {
	doc := sampleDocument()
	doc.Recipient.Name = `Tom & Jerry <"Ltda"> 's`
	doc.Items[0].Description = "Café   torrado\n500g"
	doc.AdditionalInfo = "Pedido #42"
	xml := build(t, doc)

	assert.Contains(t, xml, "<xNome>Tom &amp; Jerry &lt;&quot;Ltda&quot;&gt; &apos;s</xNome>")
	assert.Contains(t, xml, "<xProd>Caf\u00e9 torrado 500g</xProd>")
	assert.Contains(t, xml, "<infAdic><infCpl>Pedido #42</infCpl></infAdic>")
}

func TestBuild_DescartaCaracteresNoXML(t *testing.T) {
	tests := []struct {
		name, description, want string
	}{
		{"control C0", "Mouse\x01\u00f3ptico", "Mouse\u00f3ptico"},
		{"UTF-8 inválido", "Mouse \xff\xfe", "Mouse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := sampleDocument()
			doc.Items[0].Description = tt.description
			doc.Recipient.Email = "a\x02@b.com"
			out, err := sefaz.NewXMLBuilderService().Build(doc)
			require.NoError(t, err)

			assert.Contains(t, string(out), "<xProd>"+tt.want+"</xProd>")
			assert.Contains(t, string(out), "<email>a@b.com</email>")
			_, err = sefaz.CanonicalSigner{}.Sign(out, tls.Certificate{})
			assert.NoError(t, err, "el XML debe quedar bien formado")
		})
	}
}

func TestBuild_FormatoNumerico(t *testing.T) {
	doc := sampleDocument()
	doc.Items[0].Quantity = dec("3")
	doc.Items[0].UnitValue = dec("833.333333")
	xml := build(t, doc)
	assert.Contains(t, xml, "<qCom>3.0000</qCom>")
	assert.Contains(t, xml, "<vUnCom>833.333333</vUnCom>")
	assert.Contains(t, xml, "<pICMS>19.00</pICMS>")
	assert.Contains(t, xml, "<vICMS>475.00</vICMS>")
}

func TestBuild_DocumentoMalFormado(t *testing.T) {
	b := sefaz.NewXMLBuilderService()

	doc := sampleDocument()
	doc.Items[0].Tax.ICMS = nil
	_, err := b.Build(doc)
	assert.True(t, errors.Is(err, nfe.ErrMalformedDocument))

	doc = sampleDocument()
	doc.Totals.Other = decimal.NullDecimal{}
	_, err = b.Build(doc)
	assert.True(t, errors.Is(err, nfe.ErrMalformedDocument))

	doc = sampleDocument()
	doc.Identification.RandomCode = "1"
	_, err = b.Build(doc)
	assert.True(t, errors.Is(err, nfe.ErrMalformedDocument))

	_, err = b.Build(nil)
	assert.True(t, errors.Is(err, nfe.ErrMalformedDocument))
}

// Serializar y volver a leer el bloque de totales devuelve los mismos valores.
func TestBuild_RoundTripTotales(t *testing.T) {
	doc := sampleDocument()
	doc.Totals.Freight = nfe.Present(dec("12.5"))
	doc.Totals.DocumentValue = dec("2512.50")
	out, err := sefaz.NewXMLBuilderService().Build(doc)
	require.NoError(t, err)

	got, err := sefaz.ParseTotals(out)
	require.NoError(t, err)

	want := doc.Totals
	pairs := []struct {
		name      string
		got, want decimal.NullDecimal
	}{
		{"vBC", got.ICMSBase, want.ICMSBase},
		{"vICMS", got.ICMSValue, want.ICMSValue},
		{"vICMSDeson", got.ICMSDesonerated, want.ICMSDesonerated},
		{"vFCP", got.FCPValue, want.FCPValue},
		{"vBCST", got.STBase, want.STBase},
		{"vST", got.STValue, want.STValue},
		{"vFCPST", got.FCPSTValue, want.FCPSTValue},
		{"vFCPSTRet", got.FCPSTRetained, want.FCPSTRetained},
		{"vProd", nfe.Present(got.ProductValue), nfe.Present(want.ProductValue)},
		{"vFrete", got.Freight, want.Freight},
		{"vSeg", got.Insurance, want.Insurance},
		{"vDesc", got.Discount, want.Discount},
		{"vII", got.ImportTax, want.ImportTax},
		{"vIPI", got.IPIValue, want.IPIValue},
		{"vIPIDevol", got.IPIReturned, want.IPIReturned},
		{"vPIS", nfe.Present(got.PISValue), nfe.Present(want.PISValue)},
		{"vCOFINS", nfe.Present(got.COFINSValue), nfe.Present(want.COFINSValue)},
		{"vOutro", got.Other, want.Other},
		{"vNF", nfe.Present(got.DocumentValue), nfe.Present(want.DocumentValue)},
	}
	for _, p := range pairs {
		require.True(t, p.got.Valid, "total.%s ausente tras el round-trip", p.name)
		assert.Equal(t, p.want.Decimal.StringFixed(2), p.got.Decimal.StringFixed(2), "total.%s", p.name)
	}
}

func TestReadSummary(t *testing.T) {
	out, err := sefaz.NewXMLBuilderService().Build(sampleDocument())
	require.NoError(t, err)

	s, err := sefaz.ReadSummary(out)
	require.NoError(t, err)
	assert.Equal(t, sampleKey, s.AccessKey)
	assert.Equal(t, "1234", s.Number)
	assert.Equal(t, "11222333000181", s.IssuerCNPJ)
	assert.Equal(t, "52998224725", s.RecipientDoc)
	require.Len(t, s.Items, 1)
	assert.Equal(t, "Notebook", s.Items[0].Description)
	assert.True(t, s.Items[0].ICMSValue.Equal(dec("475")))
	assert.True(t, s.Totals.DocumentValue.Equal(dec("2500")))
	assert.Equal(t, 2024, s.IssuedAt.Year())
	assert.Empty(t, s.Protocol)
}

func TestParseTotals_SinGrupo(t *testing.T) {
	_, err := sefaz.ParseTotals([]byte(`<NFe><infNFe/></NFe>`))
	assert.True(t, errors.Is(err, nfe.ErrMalformedDocument))
	_, err = sefaz.ParseTotals([]byte(`no es xml`))
	assert.Error(t, err)
}

func TestCanonicalSigner(t *testing.T) {
	out, err := sefaz.NewXMLBuilderService().Build(sampleDocument())
	require.NoError(t, err)

	signed, err := sefaz.CanonicalSigner{}.Sign(out, tls.Certificate{})
	require.NoError(t, err)
	tot, err := sefaz.ParseTotals(signed)
	require.NoError(t, err)
	assert.True(t, tot.DocumentValue.Equal(dec("2500")))

	_, err = sefaz.CanonicalSigner{}.Sign(nil, tls.Certificate{})
	assert.Error(t, err)
}

func TestBuildProcNFe(t *testing.T) {
	signed, err := sefaz.NewXMLBuilderService().Build(sampleDocument())
	require.NoError(t, err)
	prot := []byte(`<protNFe xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00"><infProt>` +
		`<tpAmb>2</tpAmb><chNFe>` + sampleKey + `</chNFe><dhRecbto>2024-03-10T09:01:00-03:00</dhRecbto>` +
		`<nProt>135240000000001</nProt><cStat>105</cStat><xMotivo>Autorizado</xMotivo></infProt></protNFe>`)

	proc, err := sefaz.BuildProcNFe(signed, prot)
	require.NoError(t, err)
	assert.Contains(t, string(proc), "<nfeProc")

	s, err := sefaz.ReadSummary(proc)
	require.NoError(t, err)
	assert.Equal(t, sampleKey, s.AccessKey)
	assert.Equal(t, "135240000000001", s.Protocol)

	_, err = sefaz.BuildProcNFe(signed, []byte(`<otro/>`))
	assert.Error(t, err)
}
