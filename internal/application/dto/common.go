package dto

// Códigos de error de la API.
const (
	CodeMissingToken      = "MISSING_TOKEN"
	CodeInvalidToken      = "INVALID_TOKEN"
	CodeMissingRole       = "MISSING_ROLE"
	CodeUnauthorized      = "UNAUTHORIZED"
	CodeForbidden         = "FORBIDDEN"
	CodeNotFound          = "NOT_FOUND"
	CodeValidation        = "VALIDATION"
	CodeInvalidBody       = "INVALID_BODY"
	CodeInvalidDocument   = "INVALID_DOCUMENT"
	CodeAlreadyAuthorized = "ALREADY_AUTHORIZED"
	CodeConflict          = "CONFLICT"
	CodeNotConfigured     = "NOT_CONFIGURED"
	CodeInternal          = "INTERNAL"
)

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
