// Package pdf implementa el DANFE (Documento Auxiliar da NF-e) simplificado.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Razão social + CNPJ/IE  │  DANFE + Nº/Série         │
//	│  CHAVE DE ACESSO (código de barras + 11 grupos de 4)         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DESTINATÁRIO: nombre + CPF/CNPJ                             │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ITENS: Código | Descrição | NCM | CFOP | Qtd | V.Unit | V.Total │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTAIS: BC ICMS / ICMS / PIS / COFINS / V. NOTA             │
//	│  ─────────────────────────────────────────────────────────  │
//	│  QR de consulta + protocolo de autorización                  │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	appbilling "github.com/jhoicas/nfe-api/internal/application/billing"
	"github.com/jhoicas/nfe-api/internal/domain/nfe"
	"github.com/jhoicas/nfe-api/internal/infrastructure/sefaz"
	pkgnfe "github.com/jhoicas/nfe-api/pkg/nfe"
)

var _ appbilling.DANFEGenerator = (*MarotoPDFGenerator)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 92, Blue: 57}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorRed     = &props.Color{Red: 180, Green: 0, Blue: 0}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa billing.DANFEGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateDANFE genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateDANFE(_ context.Context, s *sefaz.Summary, qrURL string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("pdf: resumen de la NF-e requerido")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 8}).
		WithTitle("DANFE "+s.AccessKey, true).
		WithAuthor(s.IssuerName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(s))
	m.AddRows(accessKeyRows(s.AccessKey)...)
	if s.Environment == pkgnfe.EnvironmentHomologation {
		m.AddRows(homologationRow())
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(recipientRow(s))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(itemsHeaderRow())
	m.AddRows(itemRows(s.Items)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(s.Totals))

	m.AddRows(line.NewRow(3))
	m.AddRows(footerRows(s, qrURL)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: emitente (izq) y número/serie (der).
func headerRow(s *sefaz.Summary) core.Row {
	return row.New(22).Add(
		col.New(8).Add(
			text.New(s.IssuerName, props.Text{
				Style: fontstyle.Bold, Size: 12, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(s.IssuerAddress, "-"), props.Text{
				Size: 7, Top: 8, Color: colorGray,
			}),
			text.New(fmt.Sprintf("CNPJ: %s   |   IE: %s", formatCNPJ(s.IssuerCNPJ), nonEmpty(s.IssuerIE, "-")), props.Text{
				Size: 8, Top: 14,
			}),
		),
		col.New(4).Add(
			text.New("DANFE", props.Text{
				Style: fontstyle.Bold, Size: 14, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New("Documento Auxiliar da Nota Fiscal Eletrônica", props.Text{
				Size: 6, Align: align.Right, Top: 8, Color: colorGray,
			}),
			text.New(fmt.Sprintf("Nº %s   Série %s", s.Number, s.Series), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 12,
			}),
			text.New("Emissão: "+s.IssuedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 7, Align: align.Right, Top: 17, Color: colorGray,
			}),
		),
	)
}

// accessKeyRows: código de barras CODE-128 y la chave en grupos de 4.
func accessKeyRows(key string) []core.Row {
	return []core.Row{
		row.New(14).Add(col.New(12).Add(code.NewBar(key, props.Barcode{Percent: 90, Center: true}))),
		row.New(6).Add(col.New(12).Add(
			text.New("CHAVE DE ACESSO  "+groupDigits(key, 4), props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Center, Top: 1,
			}),
		)),
	}
}

func homologationRow() core.Row {
	return row.New(8).Add(col.New(12).Add(
		text.New("EMITIDA EM AMBIENTE DE HOMOLOGAÇÃO - SEM VALOR FISCAL", props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Center, Color: colorRed, Top: 2,
		}),
	))
}

// recipientRow: destinatário.
func recipientRow(s *sefaz.Summary) core.Row {
	return row.New(13).Add(
		col.New(12).Add(
			text.New("DESTINATÁRIO / REMETENTE", props.Text{
				Style: fontstyle.Bold, Size: 7, Color: colorPrimary, Top: 1,
			}),
			text.New(s.RecipientName, props.Text{
				Style: fontstyle.Bold, Size: 9, Top: 5,
			}),
			text.New("CPF/CNPJ: "+formatDocument(s.RecipientDoc), props.Text{
				Size: 8, Top: 10, Color: colorGray,
			}),
		),
	)
}

// itemsHeaderRow: cabecera de la tabla de productos.
func itemsHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 7, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(7).Add(
		h("Código", 1, align.Left),
		h("Descrição", 4, align.Left),
		h("NCM", 1, align.Center),
		h("CFOP", 1, align.Center),
		h("Qtd", 1, align.Right),
		h("V. Unit", 2, align.Right),
		h("V. Total", 2, align.Right),
	)
}

// itemRows: una fila por det.
func itemRows(items []sefaz.SummaryItem) []core.Row {
	out := make([]core.Row, 0, len(items))
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 7, Align: a, Top: 1, Left: 1, Right: 1}))
	}
	for _, it := range items {
		out = append(out, row.New(6).Add(
			cell(it.Code, 1, align.Left),
			cell(it.Description, 4, align.Left),
			cell(it.NCM, 1, align.Center),
			cell(it.CFOP, 1, align.Center),
			cell(trimQuantity(it.Quantity)+" "+it.Unit, 1, align.Right),
			cell(formatBRL(it.UnitValue), 2, align.Right),
			cell(formatBRL(it.Value), 2, align.Right),
		))
	}
	return out
}

// totalsRow: cálculo del impuesto.
func totalsRow(t nfe.Totals) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 7, Color: colorGray, Top: 1})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Top: 5})
	}
	box := func(title string, v decimal.Decimal) core.Col {
		return col.New(2).Add(label(title), value(formatBRL(v)))
	}
	return row.New(12).Add(
		box("BASE CÁLC. ICMS", nfe.ValueOrZero(t.ICMSBase)),
		box("VALOR ICMS", nfe.ValueOrZero(t.ICMSValue)),
		box("VALOR PIS", t.PISValue),
		box("VALOR COFINS", t.COFINSValue),
		box("V. PRODUTOS", t.ProductValue),
		col.New(2).Add(
			text.New("VALOR TOTAL DA NOTA", props.Text{Style: fontstyle.Bold, Size: 7, Color: colorPrimary, Top: 1}),
			text.New(formatBRL(t.DocumentValue), props.Text{Style: fontstyle.Bold, Size: 10, Color: colorPrimary, Top: 5}),
		),
	)
}

// footerRows: QR de consulta y protocolo.
func footerRows(s *sefaz.Summary, qrURL string) []core.Row {
	protocol := "Pendente de autorização"
	if s.Protocol != "" {
		protocol = s.Protocol + " " + s.AuthorizedAt
	}
	info := col.New(8).Add(
		text.New("PROTOCOLO DE AUTORIZAÇÃO DE USO", props.Text{
			Style: fontstyle.Bold, Size: 7, Color: colorPrimary, Top: 2, Left: 3,
		}),
		text.New(protocol, props.Text{Size: 8, Top: 7, Left: 3}),
		text.New("Consulta de autenticidade no portal nacional da NF-e "+
			"www.nfe.fazenda.gov.br/portal ou no site da SEFAZ autorizadora.", props.Text{
			Size: 6.5, Top: 14, Left: 3, Color: colorGray,
		}),
	)
	if qrURL == "" {
		return []core.Row{row.New(24).Add(col.New(4), info)}
	}
	return []core.Row{
		row.New(40).Add(
			col.New(4).Add(code.NewQr(qrURL, props.Rect{Percent: 95, Center: true})),
			info,
		),
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatBRL formatea en reales: 1234.5 → "1.234,50".
func formatBRL(d decimal.Decimal) string {
	s := d.Round(2).StringFixed(2)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, _ := strings.Cut(s, ".")

	n := len(intPart)
	buf := make([]byte, 0, n+n/3+3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	out := string(buf) + "," + frac
	if neg {
		return "-" + out
	}
	return out
}

// trimQuantity muestra la cantidad sin ceros decimales sobrantes.
func trimQuantity(d decimal.Decimal) string {
	return d.String()
}

// groupDigits separa s en bloques de n con espacio.
func groupDigits(s string, n int) string {
	var parts []string
	for len(s) > n {
		parts = append(parts, s[:n])
		s = s[n:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, " ")
}

// formatCNPJ 11222333000181 → 11.222.333/0001-81.
func formatCNPJ(cnpj string) string {
	if len(cnpj) != 14 {
		return cnpj
	}
	return cnpj[:2] + "." + cnpj[2:5] + "." + cnpj[5:8] + "/" + cnpj[8:12] + "-" + cnpj[12:]
}

// formatDocument aplica máscara de CPF o CNPJ según la longitud.
func formatDocument(doc string) string {
	if len(doc) == 11 {
		return doc[:3] + "." + doc[3:6] + "." + doc[6:9] + "-" + doc[9:]
	}
	return formatCNPJ(doc)
}
