package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de la emisión de la NF-e ante la SEFAZ.
const (
	EmissionStatusValidationFailed = "VALIDATION_FAILED" // no pasó el validador; no se transmitió
	EmissionStatusErrorGeneration  = "ERROR_GENERATION"  // falló serialización, firma o certificado
	EmissionStatusSigned           = "SIGNED"            // XML firmado, pendiente de envío
	EmissionStatusSubmitted        = "SUBMITTED"         // lote recibido (103), con recibo
	EmissionStatusProcessing       = "PROCESSING"        // consulta agotada con 104; reanudable
	EmissionStatusAuthorized       = "AUTHORIZED"        // 105, con protocolo
	EmissionStatusRejected         = "REJECTED"          // rechazo de negocio (cStat + motivo)
	EmissionStatusTransportError   = "TRANSPORT_ERROR"   // SEFAZ inaccesible tras los reintentos
)

// Emission registro persistido de cada intento de emisión de un pedido.
type Emission struct {
	ID               string
	CompanyID        string
	OrderID          string
	AccessKey        string // 44 dígitos
	Series           string
	Number           string
	Environment      string // tpAmb
	Status           string // ver EmissionStatus*
	DocumentValue    decimal.Decimal
	XMLSigned        string
	XMLAuthorized    string // nfeProc (NFe + protNFe)
	Receipt          string // nRec
	Protocol         string // nProt
	StatusCode       string // último cStat
	StatusReason     string // último xMotivo
	QRData           string
	ValidationErrors []string
	Warnings         []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
