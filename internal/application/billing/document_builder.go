package billing

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/nfe"
	"github.com/jhoicas/nfe-api/pkg/money"
	pkgnfe "github.com/jhoicas/nfe-api/pkg/nfe"
)

// homologationRecipientName xNome obligatorio del destinatario en tpAmb=2.
const homologationRecipientName = "NF-E EMITIDA EM AMBIENTE DE HOMOLOGACAO - SEM VALOR FISCAL"

const defaultOperationNature = "Venda de mercadoria"

// RandomCode genera el cNF (8 dígitos).
type RandomCode func() (string, error)

// CryptoRandomCode cNF uniforme en [0, 10^8) con crypto/rand.
func CryptoRandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(100_000_000))
	if err != nil {
		return "", fmt.Errorf("generar cNF: %w", err)
	}
	return fmt.Sprintf("%08d", n.Int64()), nil
}

// DocumentBuilder traduce pedido + cliente + productos + emisor al modelo fiscal.
// No hace I/O salvo el sorteo del cNF; cada llamada produce un documento nuevo.
type DocumentBuilder struct {
	environment string
	log         zerolog.Logger
	now         func() time.Time
	random      RandomCode
}

// NewDocumentBuilder crea el adaptador para el ambiente indicado (tpAmb).
func NewDocumentBuilder(environment string, log zerolog.Logger) *DocumentBuilder {
	return &DocumentBuilder{
		environment: environment,
		log:         log.With().Str("component", "document_builder").Logger(),
		now:         time.Now,
		random:      CryptoRandomCode,
	}
}

// WithClock reemplaza el reloj (tests).
func (b *DocumentBuilder) WithClock(now func() time.Time) *DocumentBuilder {
	b.now = now
	return b
}

// WithRandom reemplaza la fuente del cNF (tests).
func (b *DocumentBuilder) WithRandom(r RandomCode) *DocumentBuilder {
	b.random = r
	return b
}

// Build arma la NF-e. Los totales se calculan siempre desde los ítems.
func (b *DocumentBuilder) Build(order *entity.Order, customer *entity.Customer, products map[string]*entity.Product, issuer *entity.Company) (*nfe.Document, error) {
	if order == nil || customer == nil || issuer == nil || len(order.Items) == 0 {
		return nil, domain.ErrInvalidInput
	}

	icmsRate := b.icmsRate(issuer)
	pisRate := rateOrDefault(issuer.PISRate, pkgnfe.DefaultPISRate)
	cofinsRate := rateOrDefault(issuer.COFINSRate, pkgnfe.DefaultCOFINSRate)

	issuerUF := issuer.Address.UF
	if issuerUF == "" {
		issuerUF, _ = pkgnfe.StateAbbreviation(issuer.StateCode)
	}
	destination := destinationFor(issuerUF, customer.Address.UF)

	number := documentNumber(order.PublicID)
	randomCode, err := b.drawRandomCode(number)
	if err != nil {
		return nil, err
	}

	doc := &nfe.Document{
		Identification: nfe.Identification{
			StateCode:        issuer.StateCode,
			RandomCode:       randomCode,
			OperationNature:  firstNonEmpty(issuer.OperationNature, defaultOperationNature),
			Model:            pkgnfe.ModelNFe,
			Series:           leftPad(pkgnfe.OnlyDigits(firstNonEmpty(issuer.Series, "1")), 3),
			Number:           number,
			IssuedAt:         b.now(),
			OperationType:    pkgnfe.OperationOutbound,
			Destination:      destination,
			MunicipalityCode: issuer.Address.MunicipalityCode,
			PrintType:        pkgnfe.PrintPortrait,
			EmissionType:     pkgnfe.EmissionNormal,
			Environment:      b.environment,
			Purpose:          pkgnfe.PurposeNormal,
			FinalConsumer:    finalConsumer(customer),
			Presence:         pkgnfe.PresenceInternet,
			ProcessType:      pkgnfe.ProcessOwnApp,
			ProcessVersion:   pkgnfe.ProcessVersion,
		},
		Issuer:         mapIssuer(issuer, issuerUF),
		Recipient:      b.mapRecipient(customer),
		Transport:      nfe.Transport{FreightMode: firstNonEmpty(issuer.DefaultFreightMode, pkgnfe.FreightNone)},
		AdditionalInfo: order.Notes,
	}

	// ── Ítems ──
	for i, it := range order.Items {
		product, ok := products[it.ProductID]
		if !ok || product == nil {
			return nil, fmt.Errorf("%w: producto %s del pedido %s", domain.ErrNotFound, it.ProductID, order.ID)
		}
		doc.Items = append(doc.Items, buildItem(i+1, it, product, issuer, destination, icmsRate, pisRate, cofinsRate))
	}

	doc.Totals = computeTotals(doc.Items)
	doc.Payment = b.payment(order, doc.Totals.DocumentValue)

	key, err := nfe.AccessKey(doc)
	if err != nil {
		return nil, err
	}
	doc.Identification.CheckDigit = key[len(key)-1:]
	return doc, nil
}

// icmsRate alícuota por cUF; UF desconocida → alícuota propia del emisor → alícuota por defecto.
func (b *DocumentBuilder) icmsRate(issuer *entity.Company) decimal.Decimal {
	rate, err := pkgnfe.RateForStateCode(issuer.StateCode)
	if err == nil {
		return rate
	}
	fallback := rateOrDefault(issuer.CustomICMSRate, pkgnfe.DefaultICMSRate)
	b.log.Warn().
		Str("state_code", issuer.StateCode).
		Str("rate", fallback.String()).
		Bool("custom", issuer.CustomICMSRate.Valid).
		Msg("UF sin alícuota en la tabla, usando alícuota de respaldo")
	return fallback
}

func (b *DocumentBuilder) drawRandomCode(number string) (string, error) {
	low := number[len(number)-8:]
	for i := 0; i < 10; i++ {
		code, err := b.random()
		if err != nil {
			return "", err
		}
		if code != low {
			return code, nil
		}
	}
	return "", errors.New("generar cNF: la fuente aleatoria repite el número de la nota")
}

func (b *DocumentBuilder) mapRecipient(c *entity.Customer) nfe.Recipient {
	docDigits := pkgnfe.OnlyDigits(c.Document)
	addr := mapAddress(c.Address)
	r := nfe.Recipient{
		Name:        c.Name,
		Address:     &addr,
		IEIndicator: pkgnfe.IENonContributor,
		Email:       c.Email,
	}
	if len(docDigits) == 14 {
		r.CNPJ = docDigits
	} else {
		r.CPF = docDigits
	}
	if ie := strings.TrimSpace(c.StateRegistration); ie != "" && !strings.EqualFold(ie, "ISENTO") {
		r.IEIndicator = pkgnfe.IEContributor
		r.StateRegistration = pkgnfe.OnlyDigits(ie)
	}
	if b.environment == pkgnfe.EnvironmentHomologation {
		r.Name = homologationRecipientName
	}
	return r
}

func (b *DocumentBuilder) payment(order *entity.Order, total decimal.Decimal) nfe.Payment {
	method := order.PaymentMethod
	if !pkgnfe.ValidPaymentMethods[method] {
		if method != "" {
			b.log.Warn().Str("order_id", order.ID).Str("payment_method", method).Msg("tPag desconocido, usando 99 (outros)")
		}
		method = pkgnfe.PaymentOther
	}
	indicator := pkgnfe.PaymentInCash
	if order.Installments {
		indicator = pkgnfe.PaymentInstalled
	}
	return nfe.Payment{Details: []nfe.PaymentDetail{{Indicator: indicator, Method: method, Value: total}}}
}

// ── Ítems y totales ───────────────────────────────────────────────────────────

func buildItem(index int, it entity.OrderItem, p *entity.Product, issuer *entity.Company, destination string, icmsRate, pisRate, cofinsRate decimal.Decimal) nfe.LineItem {
	unitValue := money.FromCents(it.UnitPriceCents)
	productValue := money.Multiply(unitValue, it.Quantity)
	if it.TotalCents > 0 {
		productValue = money.FromCents(it.TotalCents)
	}
	discount := money.FromCents(it.DiscountCents)
	icmsBase := money.Subtract(productValue, discount)
	unit := firstNonEmpty(p.Unit, "UN")

	return nfe.LineItem{
		Index:          index,
		ProductCode:    firstNonEmpty(p.SKU, p.ID),
		EAN:            p.EAN,
		Description:    p.Name,
		NCM:            firstNonEmpty(p.NCM, issuer.DefaultNCM),
		CFOP:           cfopFor(firstNonEmpty(p.CFOP, issuer.DefaultCFOP), destination),
		CommercialUnit: unit,
		Quantity:       it.Quantity,
		UnitValue:      unitValue,
		ProductValue:   productValue,
		TaxUnit:        unit,
		TaxQuantity:    it.Quantity,
		TaxUnitValue:   unitValue,
		Freight:        optionalCents(it.FreightCents),
		Insurance:      optionalCents(it.InsuranceCents),
		Discount:       optionalCents(it.DiscountCents),
		Other:          optionalCents(it.OtherCents),
		Tax: nfe.TaxBlock{
			ICMS: nfe.ICMS00{
				Origin:     firstNonEmpty(p.Origin, pkgnfe.ICMSOriginNational),
				CST:        pkgnfe.ICMSCST00,
				BaseMethod: pkgnfe.ICMSBaseOperationValue,
				Base:       icmsBase,
				Rate:       icmsRate,
				Value:      money.Percent(icmsBase, icmsRate),
				FCPRate:    decimal.Zero,
				FCPValue:   decimal.Zero,
			},
			PIS: nfe.PIS{
				CST:   pkgnfe.PISCOFINSCST01,
				Base:  productValue,
				Rate:  pisRate,
				Value: money.Percent(productValue, pisRate),
			},
			COFINS: nfe.COFINS{
				CST:   pkgnfe.PISCOFINSCST01,
				Base:  productValue,
				Rate:  cofinsRate,
				Value: money.Percent(productValue, cofinsRate),
			},
			STBase:    decimal.Zero,
			STValue:   decimal.Zero,
			ImportTax: decimal.Zero,
			IPIValue:  decimal.Zero,
		},
	}
}

// computeTotals suma por ítem con money.Add; nunca usa totales del pedido.
func computeTotals(items []nfe.LineItem) nfe.Totals {
	var icmsBase, icmsValue, fcp, stBase, stValue, importTax, ipi []decimal.Decimal
	var product, freight, insurance, discount, other, pis, cofins []decimal.Decimal
	for _, it := range items {
		icms, _ := it.Tax.ICMS.(nfe.ICMS00)
		icmsBase = append(icmsBase, icms.Base)
		icmsValue = append(icmsValue, icms.Value)
		fcp = append(fcp, icms.FCPValue)
		stBase = append(stBase, it.Tax.STBase)
		stValue = append(stValue, it.Tax.STValue)
		importTax = append(importTax, it.Tax.ImportTax)
		ipi = append(ipi, it.Tax.IPIValue)
		product = append(product, it.ProductValue)
		freight = append(freight, nfe.ValueOrZero(it.Freight))
		insurance = append(insurance, nfe.ValueOrZero(it.Insurance))
		discount = append(discount, nfe.ValueOrZero(it.Discount))
		other = append(other, nfe.ValueOrZero(it.Other))
		pis = append(pis, it.Tax.PIS.Value)
		cofins = append(cofins, it.Tax.COFINS.Value)
	}

	vProd := money.Add(product...)
	vFrete := money.Add(freight...)
	vSeg := money.Add(insurance...)
	vDesc := money.Add(discount...)
	vOutro := money.Add(other...)

	return nfe.Totals{
		ICMSBase:        nfe.Present(money.Add(icmsBase...)),
		ICMSValue:       nfe.Present(money.Add(icmsValue...)),
		ICMSDesonerated: nfe.Present(decimal.Zero),
		FCPValue:        nfe.Present(money.Add(fcp...)),
		STBase:          nfe.Present(money.Add(stBase...)),
		STValue:         nfe.Present(money.Add(stValue...)),
		FCPSTValue:      nfe.Present(decimal.Zero),
		FCPSTRetained:   nfe.Present(decimal.Zero),
		ProductValue:    vProd,
		Freight:         nfe.Present(vFrete),
		Insurance:       nfe.Present(vSeg),
		Discount:        nfe.Present(vDesc),
		ImportTax:       nfe.Present(money.Add(importTax...)),
		IPIValue:        nfe.Present(money.Add(ipi...)),
		IPIReturned:     nfe.Present(decimal.Zero),
		PISValue:        money.Add(pis...),
		COFINSValue:     money.Add(cofins...),
		Other:           nfe.Present(vOutro),
		DocumentValue:   money.Subtract(money.Add(vProd, vFrete, vSeg, vOutro), vDesc),
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func mapIssuer(c *entity.Company, uf string) nfe.Issuer {
	addr := mapAddress(c.Address)
	addr.UF = strings.ToUpper(uf)
	if addr.Phone == "" {
		addr.Phone = pkgnfe.OnlyDigits(c.Phone)
	}
	return nfe.Issuer{
		CNPJ:              pkgnfe.OnlyDigits(c.CNPJ),
		Name:              c.Name,
		TradeName:         c.TradeName,
		Address:           addr,
		StateRegistration: pkgnfe.OnlyDigits(c.StateRegistration),
		TaxRegime:         firstNonEmpty(c.TaxRegime, pkgnfe.TaxRegimeNormal),
	}
}

func mapAddress(a entity.Address) nfe.Address {
	out := nfe.Address{
		Street:           a.Street,
		Number:           firstNonEmpty(a.Number, "S/N"),
		Complement:       a.Complement,
		District:         a.District,
		MunicipalityCode: a.MunicipalityCode,
		MunicipalityName: a.MunicipalityName,
		UF:               strings.ToUpper(a.UF),
		ZipCode:          pkgnfe.OnlyDigits(a.ZipCode),
		Phone:            pkgnfe.OnlyDigits(a.Phone),
	}
	if out.UF != "EX" {
		out.CountryCode = pkgnfe.CountryBrazil
		out.CountryName = pkgnfe.CountryBrazilName
	}
	return out
}

// destinationFor idDest por UF de emisor y destinatario.
func destinationFor(issuerUF, customerUF string) string {
	switch {
	case strings.EqualFold(customerUF, "EX"):
		return pkgnfe.DestinationForeign
	case customerUF == "" || strings.EqualFold(issuerUF, customerUF):
		return pkgnfe.DestinationInternal
	default:
		return pkgnfe.DestinationInterstate
	}
}

// cfopFor ajusta el primer dígito del CFOP al destino (5 interno, 6 interestatal, 7 exterior).
func cfopFor(cfop, destination string) string {
	if cfop == "" {
		cfop = pkgnfe.CFOPSaleInternal
	}
	if len(cfop) != 4 {
		return cfop
	}
	switch destination {
	case pkgnfe.DestinationInterstate:
		return "6" + cfop[1:]
	case pkgnfe.DestinationForeign:
		return "7" + cfop[1:]
	default:
		return "5" + cfop[1:]
	}
}

func finalConsumer(c *entity.Customer) string {
	if len(pkgnfe.OnlyDigits(c.Document)) == 11 || strings.TrimSpace(c.StateRegistration) == "" {
		return pkgnfe.FinalConsumerYes
	}
	return pkgnfe.FinalConsumerNo
}

// documentNumber nNF: dígitos del identificador público, 9 posiciones (se conservan las 9 de la derecha).
func documentNumber(publicID string) string {
	d := pkgnfe.OnlyDigits(publicID)
	if len(d) > 9 {
		return d[len(d)-9:]
	}
	return leftPad(d, 9)
}

func leftPad(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

func rateOrDefault(custom decimal.NullDecimal, def decimal.Decimal) decimal.Decimal {
	if custom.Valid {
		return custom.Decimal
	}
	return def
}

func optionalCents(cents int64) decimal.NullDecimal {
	if cents <= 0 {
		return decimal.NullDecimal{}
	}
	return nfe.Present(money.FromCents(cents))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
