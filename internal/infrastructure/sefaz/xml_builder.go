package sefaz

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/nfe-api/internal/domain/nfe"
	"github.com/jhoicas/nfe-api/pkg/money"
	pkgnfe "github.com/jhoicas/nfe-api/pkg/nfe"
)

// Formato de dhEmi (UTC offset obligatorio, sin fracciones de segundo).
const dateTimeLayout = "2006-01-02T15:04:05-07:00"

// sinGTIN valor de cEAN/cEANTrib cuando el producto no tiene código de barras.
const sinGTIN = "SEM GTIN"

// XMLBuilderService serializa la NF-e al layout 4.00 (sin firma).
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Build genera el elemento <NFe> completo, en el orden posicional del schema.
// Los campos opcionales ausentes se omiten; el grupo de totales se emite siempre.
// Un documento que no pasó por nfe.Validate puede devolver ErrMalformedDocument.
func (s *XMLBuilderService) Build(doc *nfe.Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: documento nulo", nfe.ErrMalformedDocument)
	}
	key, err := nfe.AccessKey(doc)
	if err != nil {
		return nil, err
	}
	if doc.Identification.CheckDigit != "" && doc.Identification.CheckDigit != key[len(key)-1:] {
		return nil, fmt.Errorf("%w: cDV %s no corresponde a la clave", nfe.ErrMalformedDocument, doc.Identification.CheckDigit)
	}

	w := &xmlWriter{}
	w.open("NFe", attr{"xmlns", pkgnfe.Namespace})
	w.open("infNFe", attr{"versao", pkgnfe.LayoutVersion}, attr{"Id", nfe.DocumentID(key)})

	writeIde(w, doc.Identification, key)
	writeEmit(w, doc.Issuer)
	writeDest(w, doc.Recipient)
	for _, it := range doc.Items {
		if err := writeDet(w, it); err != nil {
			return nil, err
		}
	}
	if err := writeTotal(w, doc.Totals); err != nil {
		return nil, err
	}

	w.open("transp")
	w.leaf("modFrete", doc.Transport.FreightMode)
	w.close("transp")

	writePag(w, doc.Payment)

	if info := sanitizeText(doc.AdditionalInfo); info != "" {
		w.open("infAdic")
		w.leaf("infCpl", info)
		w.close("infAdic")
	}

	w.close("infNFe")
	w.close("NFe")
	return w.Bytes(), nil
}

// ── Grupos ────────────────────────────────────────────────────────────────────

func writeIde(w *xmlWriter, id nfe.Identification, key string) {
	w.open("ide")
	w.leaf("cUF", id.StateCode)
	w.leaf("cNF", id.RandomCode)
	w.text("natOp", id.OperationNature)
	w.leaf("mod", id.Model)
	w.leaf("serie", trimZeros(id.Series))
	w.leaf("nNF", trimZeros(id.Number))
	w.leaf("dhEmi", id.IssuedAt.Format(dateTimeLayout))
	w.leaf("tpNF", id.OperationType)
	w.leaf("idDest", id.Destination)
	w.leaf("cMunFG", id.MunicipalityCode)
	w.leaf("tpImp", id.PrintType)
	w.leaf("tpEmis", id.EmissionType)
	w.leaf("cDV", key[len(key)-1:])
	w.leaf("tpAmb", id.Environment)
	w.leaf("finNFe", id.Purpose)
	w.leaf("indFinal", id.FinalConsumer)
	w.leaf("indPres", id.Presence)
	w.leaf("procEmi", id.ProcessType)
	w.text("verProc", id.ProcessVersion)
	w.close("ide")
}

func writeEmit(w *xmlWriter, e nfe.Issuer) {
	w.open("emit")
	w.leaf("CNPJ", e.CNPJ)
	w.text("xNome", e.Name)
	w.textOpt("xFant", e.TradeName)
	writeAddress(w, "enderEmit", e.Address)
	w.leaf("IE", e.StateRegistration)
	w.leaf("CRT", e.TaxRegime)
	w.close("emit")
}

func writeDest(w *xmlWriter, d nfe.Recipient) {
	w.open("dest")
	if d.CNPJ != "" {
		w.leaf("CNPJ", d.CNPJ)
	} else {
		w.leaf("CPF", d.CPF)
	}
	w.text("xNome", d.Name)
	if d.Address != nil {
		writeAddress(w, "enderDest", *d.Address)
	}
	w.leaf("indIEDest", d.IEIndicator)
	w.leafOpt("IE", d.StateRegistration)
	w.textOpt("email", d.Email)
	w.close("dest")
}

func writeAddress(w *xmlWriter, tag string, a nfe.Address) {
	w.open(tag)
	w.text("xLgr", a.Street)
	w.text("nro", a.Number)
	w.textOpt("xCpl", a.Complement)
	w.text("xBairro", a.District)
	w.leaf("cMun", a.MunicipalityCode)
	w.text("xMun", a.MunicipalityName)
	w.leaf("UF", a.UF)
	w.leaf("CEP", a.ZipCode)
	w.leafOpt("cPais", a.CountryCode)
	w.textOpt("xPais", a.CountryName)
	w.leafOpt("fone", a.Phone)
	w.close(tag)
}

func writeDet(w *xmlWriter, it nfe.LineItem) error {
	ean := it.EAN
	if ean == "" {
		ean = sinGTIN
	}
	w.open("det", attr{"nItem", strconv.Itoa(it.Index)})

	w.open("prod")
	w.text("cProd", it.ProductCode)
	w.leaf("cEAN", ean)
	w.text("xProd", it.Description)
	w.leaf("NCM", it.NCM)
	w.leaf("CFOP", it.CFOP)
	w.text("uCom", it.CommercialUnit)
	w.leaf("qCom", formatQty(it.Quantity))
	w.leaf("vUnCom", formatUnit(it.UnitValue))
	w.leaf("vProd", money.Format(it.ProductValue))
	w.leaf("cEANTrib", ean)
	w.text("uTrib", it.TaxUnit)
	w.leaf("qTrib", formatQty(it.TaxQuantity))
	w.leaf("vUnTrib", formatUnit(it.TaxUnitValue))
	w.moneyOpt("vFrete", it.Freight)
	w.moneyOpt("vSeg", it.Insurance)
	w.moneyOpt("vDesc", it.Discount)
	w.moneyOpt("vOutro", it.Other)
	w.leaf("indTot", "1")
	w.close("prod")

	w.open("imposto")
	if err := writeICMS(w, it.Index, it.Tax.ICMS); err != nil {
		return err
	}
	w.open("PIS")
	w.open("PISAliq")
	w.leaf("CST", it.Tax.PIS.CST)
	w.leaf("vBC", money.Format(it.Tax.PIS.Base))
	w.leaf("pPIS", formatRate(it.Tax.PIS.Rate))
	w.leaf("vPIS", money.Format(it.Tax.PIS.Value))
	w.close("PISAliq")
	w.close("PIS")
	w.open("COFINS")
	w.open("COFINSAliq")
	w.leaf("CST", it.Tax.COFINS.CST)
	w.leaf("vBC", money.Format(it.Tax.COFINS.Base))
	w.leaf("pCOFINS", formatRate(it.Tax.COFINS.Rate))
	w.leaf("vCOFINS", money.Format(it.Tax.COFINS.Value))
	w.close("COFINSAliq")
	w.close("COFINS")
	w.close("imposto")

	w.close("det")
	return nil
}

func writeICMS(w *xmlWriter, index int, icms nfe.ICMS) error {
	switch v := icms.(type) {
	case nfe.ICMS00:
		w.open("ICMS")
		w.open(v.Tag())
		w.leaf("orig", v.Origin)
		w.leaf("CST", v.CST)
		w.leaf("modBC", v.BaseMethod)
		w.leaf("vBC", money.Format(v.Base))
		w.leaf("pICMS", formatRate(v.Rate))
		w.leaf("vICMS", money.Format(v.Value))
		w.leaf("pFCP", formatRate(v.FCPRate))
		w.leaf("vFCP", money.Format(v.FCPValue))
		w.close(v.Tag())
		w.close("ICMS")
		return nil
	case nil:
		return fmt.Errorf("%w: det[%d] sin variante de ICMS", nfe.ErrMalformedDocument, index)
	default:
		return fmt.Errorf("%w: det[%d] variante de ICMS %s no soportada", nfe.ErrMalformedDocument, index, icms.Tag())
	}
}

func writeTotal(w *xmlWriter, t nfe.Totals) error {
	required := []struct {
		tag   string
		value decimal.NullDecimal
	}{
		{"vBC", t.ICMSBase},
		{"vICMS", t.ICMSValue},
		{"vICMSDeson", t.ICMSDesonerated},
		{"vFCP", t.FCPValue},
		{"vBCST", t.STBase},
		{"vST", t.STValue},
		{"vFCPST", t.FCPSTValue},
		{"vFCPSTRet", t.FCPSTRetained},
		{"vProd", nfe.Present(t.ProductValue)},
		{"vFrete", t.Freight},
		{"vSeg", t.Insurance},
		{"vDesc", t.Discount},
		{"vII", t.ImportTax},
		{"vIPI", t.IPIValue},
		{"vIPIDevol", t.IPIReturned},
		{"vPIS", nfe.Present(t.PISValue)},
		{"vCOFINS", nfe.Present(t.COFINSValue)},
		{"vOutro", t.Other},
		{"vNF", nfe.Present(t.DocumentValue)},
	}
	w.open("total")
	w.open("ICMSTot")
	for _, f := range required {
		if !f.value.Valid {
			return fmt.Errorf("%w: total.%s ausente", nfe.ErrMalformedDocument, f.tag)
		}
		w.leaf(f.tag, money.Format(f.value.Decimal))
	}
	w.close("ICMSTot")
	w.close("total")
	return nil
}

func writePag(w *xmlWriter, p nfe.Payment) {
	w.open("pag")
	for _, d := range p.Details {
		w.open("detPag")
		w.leafOpt("indPag", d.Indicator)
		w.leaf("tPag", d.Method)
		w.leaf("vPag", money.Format(d.Value))
		w.close("detPag")
	}
	w.moneyOpt("vTroco", p.Change)
	w.close("pag")
}

// ── Formato numérico ──────────────────────────────────────────────────────────

func formatRate(d decimal.Decimal) string { return d.Round(4).StringFixed(2) }
func formatQty(d decimal.Decimal) string { return d.Round(4).StringFixed(4) }

// formatUnit valor unitario: hasta 10 decimales en el schema; se usan 2 salvo que haga falta más precisión.
func formatUnit(d decimal.Decimal) string {
	if d.Equal(d.Round(2)) {
		return d.StringFixed(2)
	}
	return d.Round(10).String()
}

// trimZeros serie y nNF van sin ceros a la izquierda en el XML (en la clave, con ancho fijo).
func trimZeros(s string) string {
	if t := strings.TrimLeft(s, "0"); t != "" {
		return t
	}
	return "0"
}

// ── Writer ────────────────────────────────────────────────────────────────────

type attr struct {
	name, value string
}

// xmlWriter emite XML sin espacios entre elementos, con escape por entidades nombradas.
type xmlWriter struct {
	buf bytes.Buffer
}

func (w *xmlWriter) open(tag string, attrs ...attr) {
	w.buf.WriteByte('<')
	w.buf.WriteString(tag)
	for _, a := range attrs {
		w.buf.WriteByte(' ')
		w.buf.WriteString(a.name)
		w.buf.WriteString(`="`)
		w.buf.WriteString(escapeXML(a.value))
		w.buf.WriteByte('"')
	}
	w.buf.WriteByte('>')
}

func (w *xmlWriter) close(tag string) {
	w.buf.WriteString("</")
	w.buf.WriteString(tag)
	w.buf.WriteByte('>')
}

// leaf elemento con valor codificado (dígitos, códigos); solo se escapa.
func (w *xmlWriter) leaf(tag, value string) {
	w.open(tag)
	w.buf.WriteString(escapeXML(pkgnfe.StripInvalidXML(value)))
	w.close(tag)
}

func (w *xmlWriter) leafOpt(tag, value string) {
	if value != "" {
		w.leaf(tag, value)
	}
}

// text elemento de texto libre: normalizado NFC, espacios colapsados y escapado.
func (w *xmlWriter) text(tag, value string) {
	w.leaf(tag, sanitizeText(value))
}

func (w *xmlWriter) textOpt(tag, value string) {
	if v := sanitizeText(value); v != "" {
		w.leaf(tag, v)
	}
}

func (w *xmlWriter) moneyOpt(tag string, n decimal.NullDecimal) {
	if n.Valid {
		w.leaf(tag, money.Format(n.Decimal))
	}
}

func (w *xmlWriter) Bytes() []byte {
	return w.buf.Bytes()
}

// sanitizeText descarta caracteres no admitidos por XML, normaliza a NFC y
// colapsa espacios (el schema no admite espacios al inicio/fin ni saltos de línea).
func sanitizeText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(pkgnfe.StripInvalidXML(s))), " ")
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func escapeXML(s string) string {
	return xmlEscaper.Replace(s)
}
