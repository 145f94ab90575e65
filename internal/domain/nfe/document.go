// Package nfe modela la Nota Fiscal Eletrônica (modelo 55, layout 4.00):
// documento fiscal, clave de acceso y validación previa a la transmisión.
//
// El Document lo construye el adaptador de pedidos (application/billing) una vez
// por intento de autorización y no se modifica después; un reintento reconstruye.
package nfe

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrMalformedDocument el documento no puede serializarse o derivar su clave
// (campos de ancho fijo incorrectos). Indica que no pasó por Validate.
var ErrMalformedDocument = errors.New("nfe: documento mal formado")

// Document NF-e completa (grupo infNFe).
type Document struct {
	Identification Identification // ide
	Issuer         Issuer         // emit
	Recipient      Recipient      // dest
	Items          []LineItem     // det (1..990)
	Totals         Totals         // total/ICMSTot
	Transport      Transport      // transp
	Payment        Payment        // pag
	AdditionalInfo string         // infAdic/infCpl (opcional)
}

// Identification grupo ide.
type Identification struct {
	StateCode        string    // cUF (2)
	RandomCode       string    // cNF (8)
	OperationNature  string    // natOp
	Model            string    // mod ("55")
	Series           string    // serie (3)
	Number           string    // nNF (9)
	IssuedAt         time.Time // dhEmi
	OperationType    string    // tpNF
	Destination      string    // idDest
	MunicipalityCode string    // cMunFG (7)
	PrintType        string    // tpImp
	EmissionType     string    // tpEmis
	CheckDigit       string    // cDV: se calcula, nunca se informa
	Environment      string    // tpAmb
	Purpose          string    // finNFe
	FinalConsumer    string    // indFinal
	Presence         string    // indPres
	ProcessType      string    // procEmi
	ProcessVersion   string    // verProc
}

// Address endereço (enderEmit / enderDest).
type Address struct {
	Street           string // xLgr
	Number           string // nro
	Complement       string // xCpl (opcional)
	District         string // xBairro
	MunicipalityCode string // cMun (7)
	MunicipalityName string // xMun
	UF               string
	ZipCode          string // CEP (8)
	CountryCode      string // cPais
	CountryName      string // xPais
	Phone            string // fone (opcional)
}

// Issuer emitente.
type Issuer struct {
	CNPJ              string
	Name              string // xNome
	TradeName         string // xFant (opcional)
	Address           Address
	StateRegistration string // IE
	TaxRegime         string // CRT
}

// Recipient destinatário. CNPJ y CPF son excluyentes (choice del schema).
type Recipient struct {
	CNPJ              string
	CPF               string
	Name              string // xNome
	Address           *Address
	IEIndicator       string // indIEDest
	StateRegistration string // IE (opcional)
	Email             string // opcional
}

// LineItem grupo det.
type LineItem struct {
	Index          int    // nItem, base 1
	ProductCode    string // cProd
	EAN            string // cEAN ("SEM GTIN" si vacío)
	Description    string // xProd
	NCM            string // (8)
	CFOP           string // (4)
	CommercialUnit string // uCom
	Quantity       decimal.Decimal
	UnitValue      decimal.Decimal // vUnCom
	ProductValue   decimal.Decimal // vProd
	TaxUnit        string          // uTrib
	TaxQuantity    decimal.Decimal // qTrib
	TaxUnitValue   decimal.Decimal // vUnTrib
	Freight        decimal.NullDecimal
	Insurance      decimal.NullDecimal
	Discount       decimal.NullDecimal
	Other          decimal.NullDecimal
	Tax            TaxBlock
}

// TaxBlock grupo imposto.
type TaxBlock struct {
	ICMS   ICMS
	PIS    PIS
	COFINS COFINS
	// Valores secundarios: presentes siempre, cero explícito si no aplican.
	// Se agregan en Totals (vBCST, vST, vII, vIPI).
	STBase    decimal.Decimal
	STValue   decimal.Decimal
	ImportTax decimal.Decimal
	IPIValue  decimal.Decimal
}

// ICMS suma de variantes CST. Solo los tipos de este paquete la implementan,
// por lo que cada ítem lleva exactamente una variante.
type ICMS interface {
	// Tag nombre del elemento del schema (ICMS00, ICMS20...).
	Tag() string
	icmsVariant()
}

// ICMS00 tributada integralmente.
type ICMS00 struct {
	Origin     string          // orig
	CST        string          // "00"
	BaseMethod string          // modBC
	Base       decimal.Decimal // vBC
	Rate       decimal.Decimal // pICMS
	Value      decimal.Decimal // vICMS
	FCPRate    decimal.Decimal // pFCP
	FCPValue   decimal.Decimal // vFCP
}

func (ICMS00) Tag() string { return "ICMS00" }
func (ICMS00) icmsVariant() {}

// PIS grupo PISAliq.
type PIS struct {
	CST   string
	Base  decimal.Decimal
	Rate  decimal.Decimal
	Value decimal.Decimal
}

// COFINS grupo COFINSAliq.
type COFINS struct {
	CST   string
	Base  decimal.Decimal
	Rate  decimal.Decimal
	Value decimal.Decimal
}

// Totals grupo ICMSTot. Los NullDecimal son obligatorios en el schema:
// ausente (Valid=false) es distinto de cero explícito.
type Totals struct {
	ICMSBase        decimal.NullDecimal // vBC
	ICMSValue       decimal.NullDecimal // vICMS
	ICMSDesonerated decimal.NullDecimal // vICMSDeson
	FCPValue        decimal.NullDecimal // vFCP
	STBase          decimal.NullDecimal // vBCST
	STValue         decimal.NullDecimal // vST
	FCPSTValue      decimal.NullDecimal // vFCPST
	FCPSTRetained   decimal.NullDecimal // vFCPSTRet
	ProductValue    decimal.Decimal     // vProd
	Freight         decimal.NullDecimal // vFrete
	Insurance       decimal.NullDecimal // vSeg
	Discount        decimal.NullDecimal // vDesc
	ImportTax       decimal.NullDecimal // vII
	IPIValue        decimal.NullDecimal // vIPI
	IPIReturned     decimal.NullDecimal // vIPIDevol
	PISValue        decimal.Decimal     // vPIS
	COFINSValue     decimal.Decimal     // vCOFINS
	Other           decimal.NullDecimal // vOutro
	DocumentValue   decimal.Decimal     // vNF
}

// Transport grupo transp.
type Transport struct {
	FreightMode string // modFrete
}

// Payment grupo pag.
type Payment struct {
	Details []PaymentDetail
	Change  decimal.NullDecimal // vTroco (opcional)
}

// PaymentDetail grupo detPag.
type PaymentDetail struct {
	Indicator string // indPag (opcional)
	Method    string // tPag
	Value     decimal.Decimal
}

// Present envuelve un valor como presente en el schema.
func Present(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d)
}

// ValueOrZero devuelve el valor si está presente o cero.
func ValueOrZero(n decimal.NullDecimal) decimal.Decimal {
	if n.Valid {
		return n.Decimal
	}
	return decimal.Zero
}

// RecipientDocument devuelve el CNPJ o CPF del destinatario, el que esté informado.
func (d *Document) RecipientDocument() string {
	if d.Recipient.CNPJ != "" {
		return d.Recipient.CNPJ
	}
	return d.Recipient.CPF
}
