package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/infrastructure/sefaz"
)

// EmitRequest body para POST /api/nfe/emissions.
// Async=true responde 202 y procesa en segundo plano.
type EmitRequest struct {
	OrderID string `json:"order_id"`
	Async   bool   `json:"async,omitempty"`
}

// EmissionResponse emisión de NF-e en respuestas.
type EmissionResponse struct {
	ID               string          `json:"id"`
	OrderID          string          `json:"order_id"`
	AccessKey        string          `json:"access_key"`
	Series           string          `json:"series"`
	Number           string          `json:"number"`
	Environment      string          `json:"environment"` // tpAmb
	Status           string          `json:"status"`      // VALIDATION_FAILED|ERROR_GENERATION|SIGNED|SUBMITTED|PROCESSING|AUTHORIZED|REJECTED|TRANSPORT_ERROR
	DocumentValue    decimal.Decimal `json:"document_value"`
	Receipt          string          `json:"receipt,omitempty"`
	Protocol         string          `json:"protocol,omitempty"`
	StatusCode       string          `json:"cstat,omitempty"`
	StatusReason     string          `json:"xmotivo,omitempty"`
	QRData           string          `json:"qr_url,omitempty"`
	ValidationErrors []string        `json:"validation_errors,omitempty"`
	Warnings         []string        `json:"warnings,omitempty"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at"`
}

// EmissionFromEntity mapea la entidad a su respuesta (sin los XML).
func EmissionFromEntity(e *entity.Emission) EmissionResponse {
	return EmissionResponse{
		ID:               e.ID,
		OrderID:          e.OrderID,
		AccessKey:        e.AccessKey,
		Series:           e.Series,
		Number:           e.Number,
		Environment:      e.Environment,
		Status:           e.Status,
		DocumentValue:    e.DocumentValue,
		Receipt:          e.Receipt,
		Protocol:         e.Protocol,
		StatusCode:       e.StatusCode,
		StatusReason:     e.StatusReason,
		QRData:           e.QRData,
		ValidationErrors: e.ValidationErrors,
		Warnings:         e.Warnings,
		CreatedAt:        e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        e.UpdatedAt.Format(time.RFC3339),
	}
}

// ServiceStatusResponse respuesta de GET /api/nfe/status.
type ServiceStatusResponse struct {
	OK        bool   `json:"ok"`
	Code      string `json:"cstat"`
	Message   string `json:"xmotivo"`
	Timestamp string `json:"timestamp,omitempty"`
}

// ServiceStatusFromResult mapea el resultado del NfeStatusServico.
func ServiceStatusFromResult(r sefaz.StatusResult) ServiceStatusResponse {
	out := ServiceStatusResponse{OK: r.OK, Code: r.Code, Message: r.Message}
	if !r.Timestamp.IsZero() {
		out.Timestamp = r.Timestamp.Format(time.RFC3339)
	}
	return out
}

// ValidationErrorResponse cuerpo 422 cuando el documento no pasa el validador.
type ValidationErrorResponse struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Errors   []string          `json:"errors"`
	Warnings []string          `json:"warnings,omitempty"`
	Emission *EmissionResponse `json:"emission,omitempty"`
}
