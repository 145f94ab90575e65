// Package nfe contiene tablas, catálogos y reglas del layout 4.00 de la
// Nota Fiscal Eletrônica (modelo 55) que no dependen del resto de la aplicación.
package nfe

// =============================================================================
// Layout y namespace
// =============================================================================

const (
	Namespace     = "http://www.portalfiscal.inf.br/nfe"
	LayoutVersion = "4.00"
	ModelNFe      = "55"

	CountryBrazil     = "1058" // código BACEN
	CountryBrazilName = "BRASIL"

	// ProcessVersion versión del aplicativo emisor (verProc).
	ProcessVersion = "nfe-api 1.0"
)

// =============================================================================
// Identificación (ide)
// =============================================================================

// tpNF - Tipo de operación
const (
	OperationInbound  = "0" // Entrada
	OperationOutbound = "1" // Saída
)

// idDest - Destino de la operación
const (
	DestinationInternal   = "1" // Operação interna
	DestinationInterstate = "2" // Operação interestadual
	DestinationForeign    = "3" // Operação com exterior
)

// tpImp - Formato de impresión del DANFE
const (
	PrintNone      = "0"
	PrintPortrait  = "1"
	PrintLandscape = "2"
	PrintSimple    = "3"
)

// tpEmis - Tipo de emisión
const (
	EmissionNormal = "1"
)

// tpAmb - Ambiente
const (
	EnvironmentProduction   = "1"
	EnvironmentHomologation = "2"
)

// finNFe - Finalidad
const (
	PurposeNormal        = "1"
	PurposeComplementary = "2"
	PurposeAdjustment    = "3"
	PurposeReturn        = "4"
)

// indFinal - Consumidor final
const (
	FinalConsumerNo  = "0"
	FinalConsumerYes = "1"
)

// indPres - Presencia del comprador
const (
	PresenceNotApplicable = "0"
	PresenceInPerson      = "1"
	PresenceInternet      = "2"
	PresenceTelephone     = "3"
)

// procEmi - Proceso de emisión
const ProcessOwnApp = "0" // aplicativo del contribuyente

// modFrete - Modalidad del flete
const (
	FreightByIssuer    = "0"
	FreightByRecipient = "1"
	FreightByThird     = "2"
	FreightOwnIssuer   = "3"
	FreightOwnRecip    = "4"
	FreightNone        = "9"
)

// indIEDest - Indicador de IE del destinatario
const (
	IEContributor    = "1"
	IEExempt         = "2"
	IENonContributor = "9"
)

// CRT - Código de régimen tributario
const (
	TaxRegimeSimples = "1"
	TaxRegimeNormal  = "3"
)

// Conjuntos válidos usados por el validador.
var (
	ValidOperationTypes = map[string]bool{"0": true, "1": true}
	ValidDestinations   = map[string]bool{"1": true, "2": true, "3": true}
	ValidPrintTypes     = map[string]bool{"0": true, "1": true, "2": true, "3": true}
	ValidEmissionTypes  = map[string]bool{"1": true, "2": true, "3": true, "4": true, "5": true}
	ValidEnvironments   = map[string]bool{"1": true, "2": true}
	ValidPurposes       = map[string]bool{"1": true, "2": true, "3": true, "4": true}
	ValidFinalConsumer  = map[string]bool{"0": true, "1": true}
	ValidPresenceTypes  = map[string]bool{"0": true, "1": true, "2": true, "3": true}
	ValidFreightModes   = map[string]bool{"0": true, "1": true, "2": true, "3": true, "4": true, "9": true}
	ValidIEIndicators   = map[string]bool{"1": true, "2": true, "9": true}
)

// ValidPaymentMethods medios de pago (tPag) aceptados.
var ValidPaymentMethods = map[string]bool{
	PaymentCash: true, PaymentCheck: true, PaymentCreditCard: true, PaymentDebitCard: true,
	PaymentStoreCredit: true, PaymentBoleto: true, PaymentPIX: true, PaymentNone: true, PaymentOther: true,
}

// =============================================================================
// Impuestos (imposto)
// =============================================================================

const (
	ICMSCST00              = "00" // Tributada integralmente
	ICMSOriginNational     = "0"
	ICMSBaseOperationValue = "3"  // modBC: valor de la operación
	PISCOFINSCST01         = "01" // operación gravable con alícuota básica
)

// CFOP por defecto (venta de mercadería adquirida de terceros).
const (
	CFOPSaleInternal   = "5102"
	CFOPSaleInterstate = "6102"
)

// =============================================================================
// Pago (pag/detPag)
// =============================================================================

const (
	PaymentInCash    = "0" // indPag: à vista
	PaymentInstalled = "1" // indPag: a prazo
)

// tPag - Medio de pago
const (
	PaymentCash        = "01" // Dinheiro
	PaymentCheck       = "02"
	PaymentCreditCard  = "03"
	PaymentDebitCard   = "04"
	PaymentStoreCredit = "05"
	PaymentBoleto      = "15"
	PaymentPIX         = "17"
	PaymentNone        = "90" // Sem pagamento
	PaymentOther       = "99"
)

// =============================================================================
// cStat - Códigos de situación devueltos por la SEFAZ
// =============================================================================

const (
	StatusBatchReceived   = "103" // Lote recebido com sucesso
	StatusBatchProcessing = "104" // Lote em processamento
	StatusAuthorized      = "105" // Autorizado el uso de la NF-e
	StatusServiceOK       = "107" // Serviço em operação
)

// =============================================================================
// Consulta pública (QR / DANFE)
// =============================================================================

// PortalQueryURL base de la consulta pública de la NF-e en el portal nacional.
const PortalQueryURL = "https://www.nfe.fazenda.gov.br/portal/consultaRecaptcha.aspx?tipoConsulta=resumo&tipoConteudo=7PhJ+gAVw2g="
