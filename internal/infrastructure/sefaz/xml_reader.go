package sefaz

import (
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/nfe-api/internal/domain/nfe"
)

// Summary datos de una NF-e leídos del XML (firmado o nfeProc), usados por el DANFE.
type Summary struct {
	AccessKey     string
	Series        string
	Number        string
	IssuedAt      time.Time
	Environment   string
	IssuerCNPJ    string
	IssuerName    string
	IssuerIE      string
	IssuerAddress string
	RecipientDoc  string
	RecipientName string
	Items         []SummaryItem
	Totals        nfe.Totals
	Protocol      string
	AuthorizedAt  string
}

// SummaryItem línea de detalle del DANFE.
type SummaryItem struct {
	Code        string
	Description string
	NCM         string
	CFOP        string
	Unit        string
	Quantity    decimal.Decimal
	UnitValue   decimal.Decimal
	Value       decimal.Decimal
	ICMSValue   decimal.Decimal
}

var totalsTags = []string{
	"vBC", "vICMS", "vICMSDeson", "vFCP", "vBCST", "vST", "vFCPST", "vFCPSTRet",
	"vProd", "vFrete", "vSeg", "vDesc", "vII", "vIPI", "vIPIDevol", "vPIS", "vCOFINS", "vOutro", "vNF",
}

// ParseTotals lee el grupo total/ICMSTot. Un campo ausente queda como NullDecimal inválido.
func ParseTotals(xmlBytes []byte) (nfe.Totals, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nfe.Totals{}, fmt.Errorf("sefaz: parsear XML: %w", err)
	}
	tot := findFirst(doc.Root(), "ICMSTot")
	if tot == nil {
		return nfe.Totals{}, fmt.Errorf("%w: ICMSTot ausente", nfe.ErrMalformedDocument)
	}
	return readTotals(tot)
}

func readTotals(tot *etree.Element) (nfe.Totals, error) {
	values := make(map[string]decimal.NullDecimal, len(totalsTags))
	for _, tag := range totalsTags {
		el := tot.SelectElement(tag)
		if el == nil {
			continue
		}
		d, err := decimal.NewFromString(strings.TrimSpace(el.Text()))
		if err != nil {
			return nfe.Totals{}, fmt.Errorf("%w: total.%s=%q: %v", nfe.ErrMalformedDocument, tag, el.Text(), err)
		}
		values[tag] = nfe.Present(d)
	}
	return nfe.Totals{
		ICMSBase:        values["vBC"],
		ICMSValue:       values["vICMS"],
		ICMSDesonerated: values["vICMSDeson"],
		FCPValue:        values["vFCP"],
		STBase:          values["vBCST"],
		STValue:         values["vST"],
		FCPSTValue:      values["vFCPST"],
		FCPSTRetained:   values["vFCPSTRet"],
		ProductValue:    values["vProd"].Decimal,
		Freight:         values["vFrete"],
		Insurance:       values["vSeg"],
		Discount:        values["vDesc"],
		ImportTax:       values["vII"],
		IPIValue:        values["vIPI"],
		IPIReturned:     values["vIPIDevol"],
		PISValue:        values["vPIS"].Decimal,
		COFINSValue:     values["vCOFINS"].Decimal,
		Other:           values["vOutro"],
		DocumentValue:   values["vNF"].Decimal,
	}, nil
}

// ReadSummary extrae del XML los datos necesarios para imprimir el DANFE.
// Acepta tanto <NFe> como <nfeProc>; en el segundo caso incluye el protocolo.
func ReadSummary(xmlBytes []byte) (*Summary, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("sefaz: parsear XML: %w", err)
	}
	inf := findFirst(doc.Root(), "infNFe")
	if inf == nil {
		return nil, fmt.Errorf("%w: infNFe ausente", nfe.ErrMalformedDocument)
	}

	s := &Summary{AccessKey: strings.TrimPrefix(inf.SelectAttrValue("Id", ""), "NFe")}
	if ide := inf.SelectElement("ide"); ide != nil {
		s.Series = childText(ide, "serie")
		s.Number = childText(ide, "nNF")
		s.Environment = childText(ide, "tpAmb")
		if dh := childText(ide, "dhEmi"); dh != "" {
			t, err := time.Parse(dateTimeLayout, dh)
			if err != nil {
				return nil, fmt.Errorf("%w: dhEmi=%q", nfe.ErrMalformedDocument, dh)
			}
			s.IssuedAt = t
		}
	}
	if emit := inf.SelectElement("emit"); emit != nil {
		s.IssuerCNPJ = childText(emit, "CNPJ")
		s.IssuerName = childText(emit, "xNome")
		s.IssuerIE = childText(emit, "IE")
		if addr := emit.SelectElement("enderEmit"); addr != nil {
			s.IssuerAddress = strings.Join(nonEmpty(
				childText(addr, "xLgr")+", "+childText(addr, "nro"),
				childText(addr, "xBairro"),
				childText(addr, "xMun")+"/"+childText(addr, "UF"),
			), " - ")
		}
	}
	if dest := inf.SelectElement("dest"); dest != nil {
		s.RecipientDoc = childText(dest, "CNPJ")
		if s.RecipientDoc == "" {
			s.RecipientDoc = childText(dest, "CPF")
		}
		s.RecipientName = childText(dest, "xNome")
	}
	for _, det := range inf.SelectElements("det") {
		item, err := readItem(det)
		if err != nil {
			return nil, err
		}
		s.Items = append(s.Items, item)
	}
	if tot := findFirst(inf, "ICMSTot"); tot != nil {
		totals, err := readTotals(tot)
		if err != nil {
			return nil, err
		}
		s.Totals = totals
	}
	if prot := findFirst(doc.Root(), "infProt"); prot != nil {
		s.Protocol = childText(prot, "nProt")
		s.AuthorizedAt = childText(prot, "dhRecbto")
	}
	return s, nil
}

func readItem(det *etree.Element) (SummaryItem, error) {
	var it SummaryItem
	prod := det.SelectElement("prod")
	if prod == nil {
		return it, fmt.Errorf("%w: det sin prod", nfe.ErrMalformedDocument)
	}
	it.Code = childText(prod, "cProd")
	it.Description = childText(prod, "xProd")
	it.NCM = childText(prod, "NCM")
	it.CFOP = childText(prod, "CFOP")
	it.Unit = childText(prod, "uCom")
	var err error
	if it.Quantity, err = childDecimal(prod, "qCom"); err != nil {
		return it, err
	}
	if it.UnitValue, err = childDecimal(prod, "vUnCom"); err != nil {
		return it, err
	}
	if it.Value, err = childDecimal(prod, "vProd"); err != nil {
		return it, err
	}
	if v := findFirst(det, "vICMS"); v != nil {
		if it.ICMSValue, err = decimal.NewFromString(strings.TrimSpace(v.Text())); err != nil {
			return it, fmt.Errorf("%w: vICMS=%q", nfe.ErrMalformedDocument, v.Text())
		}
	}
	return it, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// findFirst búsqueda en profundidad por nombre local (ignora el namespace por defecto).
func findFirst(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	if el.Tag == tag {
		return el
	}
	for _, c := range el.ChildElements() {
		if found := findFirst(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func childText(el *etree.Element, tag string) string {
	if c := el.SelectElement(tag); c != nil {
		return strings.TrimSpace(c.Text())
	}
	return ""
}

func childDecimal(el *etree.Element, tag string) (decimal.Decimal, error) {
	txt := childText(el, tag)
	if txt == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(txt)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s=%q", nfe.ErrMalformedDocument, tag, txt)
	}
	return d, nil
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		p = strings.Trim(strings.TrimSpace(p), ",/")
		if strings.TrimSpace(p) != "" {
			out = append(out, strings.TrimSpace(p))
		}
	}
	return out
}
