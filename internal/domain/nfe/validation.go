package nfe

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	pkgnfe "github.com/jhoicas/nfe-api/pkg/nfe"
)

// ErrInvalidDocument agrupa los errores de validación de la NF-e.
var ErrInvalidDocument = errors.New("nfe: documento inválido")

// MaxDescriptionLength largo recomendado de xProd; excederlo es advertencia.
const MaxDescriptionLength = 120

// ValidationResult resultado de Validate. Con Errors no vacío el documento
// no debe serializarse ni transmitirse.
type ValidationResult struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// OK indica que no hay errores (puede haber advertencias).
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Err devuelve nil si OK, o ErrInvalidDocument unido a cada error.
func (r ValidationResult) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, 0, len(r.Errors)+1)
	errs = append(errs, ErrInvalidDocument)
	for _, e := range r.Errors {
		errs = append(errs, errors.New(e))
	}
	return errors.Join(errs...)
}

type validator struct {
	res ValidationResult
}

func (v *validator) errorf(format string, args ...any) {
	v.res.Errors = append(v.res.Errors, fmt.Sprintf(format, args...))
}

func (v *validator) warnf(format string, args ...any) {
	v.res.Warnings = append(v.res.Warnings, fmt.Sprintf(format, args...))
}

func (v *validator) digits(field, value string, width int) {
	if !pkgnfe.IsDigits(value, width) {
		v.errorf("%s: debe tener %d dígitos (recibido %q)", field, width, value)
	}
}

func (v *validator) enum(field, value string, valid map[string]bool) {
	if !valid[value] {
		v.errorf("%s: valor %q fuera del dominio", field, value)
	}
}

// text exige UTF-8 válido sin caracteres de control fuera de tab, LF y CR.
func (v *validator) text(field, value string) {
	if !pkgnfe.ValidXMLText(value) {
		v.errorf("%s: contiene caracteres no admitidos en XML o UTF-8 inválido", field)
	}
}

func (v *validator) present(field string, n decimal.NullDecimal) {
	if !n.Valid {
		v.errorf("%s: obligatorio (informar cero explícito si no aplica)", field)
	}
}

// Validate verifica campos obligatorios, anchos fijos, dominios y coherencia de
// totales. Acumula todos los problemas; no hace I/O y puede llamarse repetidamente.
func Validate(doc *Document) ValidationResult {
	v := &validator{}
	if doc == nil {
		v.errorf("documento nulo")
		return v.res
	}
	v.identification(doc.Identification)
	v.issuer(doc.Issuer)
	v.recipient(doc.Recipient)
	v.items(doc.Items)
	v.totals(doc)
	v.enum("transp.modFrete", doc.Transport.FreightMode, pkgnfe.ValidFreightModes)
	v.payment(doc.Payment)
	v.text("infAdic.infCpl", doc.AdditionalInfo)
	return v.res
}

// ── ide ───────────────────────────────────────────────────────────────────────

func (v *validator) identification(id Identification) {
	v.digits("ide.cUF", id.StateCode, 2)
	v.digits("ide.cNF", id.RandomCode, 8)
	v.digits("ide.serie", id.Series, 3)
	v.digits("ide.nNF", id.Number, 9)
	v.digits("ide.cMunFG", id.MunicipalityCode, 7)

	if id.Model != pkgnfe.ModelNFe {
		v.errorf("ide.mod: debe ser %q (recibido %q)", pkgnfe.ModelNFe, id.Model)
	}
	if strings.TrimSpace(id.OperationNature) == "" {
		v.errorf("ide.natOp: obligatorio")
	}
	v.text("ide.natOp", id.OperationNature)
	v.text("ide.verProc", id.ProcessVersion)
	if id.IssuedAt.IsZero() {
		v.errorf("ide.dhEmi: obligatorio")
	}
	if id.Number != "" && strings.Trim(id.Number, "0") == "" {
		v.warnf("ide.nNF: número %q compuesto solo por ceros", id.Number)
	}

	v.enum("ide.tpNF", id.OperationType, pkgnfe.ValidOperationTypes)
	v.enum("ide.idDest", id.Destination, pkgnfe.ValidDestinations)
	v.enum("ide.tpImp", id.PrintType, pkgnfe.ValidPrintTypes)
	v.enum("ide.tpEmis", id.EmissionType, pkgnfe.ValidEmissionTypes)
	v.enum("ide.tpAmb", id.Environment, pkgnfe.ValidEnvironments)
	v.enum("ide.finNFe", id.Purpose, pkgnfe.ValidPurposes)
	v.enum("ide.indFinal", id.FinalConsumer, pkgnfe.ValidFinalConsumer)
	v.enum("ide.indPres", id.Presence, pkgnfe.ValidPresenceTypes)
}

// ── emit / dest ───────────────────────────────────────────────────────────────

func (v *validator) issuer(e Issuer) {
	if !pkgnfe.IsDigits(e.CNPJ, 14) {
		v.errorf("emit.CNPJ: debe tener 14 dígitos (recibido %q)", e.CNPJ)
	} else if err := pkgnfe.ValidateCNPJ(e.CNPJ); err != nil {
		v.errorf("emit.CNPJ: %v", err)
	}
	if strings.TrimSpace(e.Name) == "" {
		v.errorf("emit.xNome: obligatorio")
	}
	v.text("emit.xNome", e.Name)
	v.text("emit.xFant", e.TradeName)
	if strings.TrimSpace(e.StateRegistration) == "" {
		v.errorf("emit.IE: obligatorio")
	}
	v.address("emit.enderEmit", e.Address)
}

func (v *validator) recipient(d Recipient) {
	hasCNPJ, hasCPF := d.CNPJ != "", d.CPF != ""
	switch {
	case hasCNPJ && hasCPF:
		v.errorf("dest: informar CNPJ o CPF, no ambos")
	case !hasCNPJ && !hasCPF:
		v.errorf("dest: CNPJ o CPF obligatorio")
	case hasCNPJ:
		if !pkgnfe.IsDigits(d.CNPJ, 14) {
			v.errorf("dest.CNPJ: debe tener 14 dígitos (recibido %q)", d.CNPJ)
		} else if err := pkgnfe.ValidateCNPJ(d.CNPJ); err != nil {
			v.errorf("dest.CNPJ: %v", err)
		}
	case hasCPF:
		if !pkgnfe.IsDigits(d.CPF, 11) {
			v.errorf("dest.CPF: debe tener 11 dígitos (recibido %q)", d.CPF)
		} else if err := pkgnfe.ValidateCPF(d.CPF); err != nil {
			v.errorf("dest.CPF: %v", err)
		}
	}
	if strings.TrimSpace(d.Name) == "" {
		v.errorf("dest.xNome: obligatorio")
	}
	v.text("dest.xNome", d.Name)
	v.text("dest.email", d.Email)
	v.enum("dest.indIEDest", d.IEIndicator, pkgnfe.ValidIEIndicators)
	if d.Address != nil {
		v.address("dest.enderDest", *d.Address)
	}
}

func (v *validator) address(prefix string, a Address) {
	v.digits(prefix+".cMun", a.MunicipalityCode, 7)
	v.digits(prefix+".CEP", a.ZipCode, 8)
	if _, ok := pkgnfe.StateCodeFromUF(a.UF); !ok && a.UF != "EX" {
		v.errorf("%s.UF: sigla %q desconocida", prefix, a.UF)
	}
	if strings.TrimSpace(a.Street) == "" {
		v.errorf("%s.xLgr: obligatorio", prefix)
	}
	for _, f := range []struct{ tag, value string }{
		{"xLgr", a.Street},
		{"nro", a.Number},
		{"xCpl", a.Complement},
		{"xBairro", a.District},
		{"xMun", a.MunicipalityName},
		{"xPais", a.CountryName},
		{"fone", a.Phone},
	} {
		v.text(prefix+"."+f.tag, f.value)
	}
}

// ── det ───────────────────────────────────────────────────────────────────────

func (v *validator) items(items []LineItem) {
	if len(items) == 0 {
		v.errorf("det: se requiere al menos un ítem")
		return
	}
	for i, it := range items {
		p := fmt.Sprintf("det[%d]", i+1)
		if it.Index != i+1 {
			v.errorf("%s.nItem: esperado %d, recibido %d", p, i+1, it.Index)
		}
		desc := strings.TrimSpace(it.Description)
		if desc == "" {
			v.errorf("%s.xProd: obligatorio", p)
		} else if utf8.RuneCountInString(desc) > MaxDescriptionLength {
			v.warnf("%s.xProd: supera %d caracteres", p, MaxDescriptionLength)
		}
		if strings.TrimSpace(it.ProductCode) == "" {
			v.errorf("%s.cProd: obligatorio", p)
		}
		v.text(p+".xProd", it.Description)
		v.text(p+".cProd", it.ProductCode)
		v.text(p+".cEAN", it.EAN)
		v.text(p+".uCom", it.CommercialUnit)
		v.text(p+".uTrib", it.TaxUnit)
		v.digits(p+".NCM", it.NCM, 8)
		v.digits(p+".CFOP", it.CFOP, 4)
		if it.EAN != "" && !validGTIN(it.EAN) {
			v.warnf("%s.cEAN: %q no es un GTIN de 8, 12, 13 o 14 dígitos", p, it.EAN)
		}
		if !it.Quantity.IsPositive() {
			v.errorf("%s.qCom: debe ser mayor que cero", p)
		}
		if it.Tax.ICMS == nil {
			v.errorf("%s.imposto.ICMS: se requiere exactamente una variante", p)
		}
	}
}

func validGTIN(ean string) bool {
	for _, n := range []int{8, 12, 13, 14} {
		if pkgnfe.IsDigits(ean, n) {
			return true
		}
	}
	return false
}

// ── total ─────────────────────────────────────────────────────────────────────

func (v *validator) totals(doc *Document) {
	t := doc.Totals
	v.present("total.vBC", t.ICMSBase)
	v.present("total.vICMS", t.ICMSValue)
	v.present("total.vICMSDeson", t.ICMSDesonerated)
	v.present("total.vFCP", t.FCPValue)
	v.present("total.vBCST", t.STBase)
	v.present("total.vST", t.STValue)
	v.present("total.vFCPST", t.FCPSTValue)
	v.present("total.vFCPSTRet", t.FCPSTRetained)
	v.present("total.vFrete", t.Freight)
	v.present("total.vSeg", t.Insurance)
	v.present("total.vDesc", t.Discount)
	v.present("total.vII", t.ImportTax)
	v.present("total.vIPI", t.IPIValue)
	v.present("total.vIPIDevol", t.IPIReturned)
	v.present("total.vOutro", t.Other)

	if len(doc.Items) == 0 {
		return
	}
	sum := decimal.Zero
	for _, it := range doc.Items {
		sum = sum.Add(it.ProductValue)
	}
	if !t.ProductValue.Equal(sum) {
		v.errorf("total.vProd (%s) no coincide con la suma de los ítems (%s)", t.ProductValue, sum)
	}
	expected := t.ProductValue.
		Sub(ValueOrZero(t.Discount)).
		Add(ValueOrZero(t.Freight)).
		Add(ValueOrZero(t.Insurance)).
		Add(ValueOrZero(t.Other))
	if !t.DocumentValue.Equal(expected) {
		v.errorf("total.vNF (%s) no coincide con vProd - vDesc + vFrete + vSeg + vOutro (%s)", t.DocumentValue, expected)
	}
}

// ── pag ───────────────────────────────────────────────────────────────────────

func (v *validator) payment(p Payment) {
	if len(p.Details) == 0 {
		v.errorf("pag: se requiere al menos un detPag")
		return
	}
	for i, d := range p.Details {
		v.enum(fmt.Sprintf("pag.detPag[%d].tPag", i+1), d.Method, pkgnfe.ValidPaymentMethods)
		if d.Value.IsNegative() {
			v.errorf("pag.detPag[%d].vPag: no puede ser negativo", i+1)
		}
	}
}
