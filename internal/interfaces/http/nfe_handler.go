package http

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/nfe-api/internal/application/billing"
	"github.com/jhoicas/nfe-api/internal/application/dto"
	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/nfe"
	"github.com/jhoicas/nfe-api/internal/infrastructure/sefaz"
)

// EmissionService operaciones del orquestador que expone la API.
type EmissionService interface {
	Emit(ctx context.Context, companyID, orderID string) (*entity.Emission, error)
	EmitAsync(companyID, orderID string)
	Resume(ctx context.Context, emissionID string) (*entity.Emission, error)
	CheckStatus(ctx context.Context) (sefaz.StatusResult, error)
	GetEmission(ctx context.Context, id string) (*entity.Emission, error)
	ListByOrder(ctx context.Context, orderID string) ([]*entity.Emission, error)
}

// DANFEService genera la representación gráfica de una emisión.
type DANFEService interface {
	DownloadDANFE(ctx context.Context, companyID, emissionID string) ([]byte, string, error)
}

// NFeHandler maneja las peticiones HTTP de emisión de NF-e (protegido).
type NFeHandler struct {
	emissions EmissionService
	danfe     DANFEService
}

// NewNFeHandler construye el handler.
func NewNFeHandler(emissions EmissionService, danfe DANFEService) *NFeHandler {
	return &NFeHandler{emissions: emissions, danfe: danfe}
}

// Status godoc
// @Summary      Estado del servicio de autorización (NfeStatusServico)
// @Tags         nfe
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.ServiceStatusResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/nfe/status [get]
func (h *NFeHandler) Status(c *fiber.Ctx) error {
	st, err := h.emissions.CheckStatus(c.Context())
	if err != nil {
		return writeError(c, err, nil)
	}
	code := fiber.StatusOK
	if !st.OK {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(dto.ServiceStatusFromResult(st))
}

// Emit godoc
// @Summary      Emitir la NF-e de un pedido
// @Description  Construye, valida, firma y transmite. Con async=true responde 202 y procesa en segundo plano.
// @Tags         nfe
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.EmitRequest  true  "order_id y async opcional"
// @Success      201   {object}  dto.EmissionResponse
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ValidationErrorResponse
// @Router       /api/nfe/emissions [post]
func (h *NFeHandler) Emit(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	if companyID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: dto.CodeUnauthorized, Message: "token inválido"})
	}
	var in dto.EmitRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: dto.CodeInvalidBody, Message: "cuerpo inválido"})
	}
	if in.OrderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: dto.CodeValidation, Message: "order_id requerido"})
	}
	if in.Async {
		h.emissions.EmitAsync(companyID, in.OrderID)
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "emisión en proceso", "order_id": in.OrderID})
	}
	em, err := h.emissions.Emit(c.Context(), companyID, in.OrderID)
	if err != nil {
		return writeError(c, err, em)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.EmissionFromEntity(em))
}

// GetByID godoc
// @Summary      Obtener emisión por ID
// @Tags         nfe
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la emisión"
// @Success      200  {object}  dto.EmissionResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/nfe/emissions/{id} [get]
func (h *NFeHandler) GetByID(c *fiber.Ctx) error {
	em, err := h.owned(c)
	if err != nil {
		return writeError(c, err, nil)
	}
	return c.JSON(dto.EmissionFromEntity(em))
}

// ListByOrder godoc
// @Summary      Listar emisiones de un pedido
// @Tags         nfe
// @Security     Bearer
// @Produce      json
// @Param        orderId  path  string  true  "ID del pedido"
// @Success      200  {array}   dto.EmissionResponse
// @Router       /api/nfe/orders/{orderId}/emissions [get]
func (h *NFeHandler) ListByOrder(c *fiber.Ctx) error {
	companyID := GetCompanyID(c)
	list, err := h.emissions.ListByOrder(c.Context(), c.Params("orderId"))
	if err != nil {
		return writeError(c, err, nil)
	}
	out := make([]dto.EmissionResponse, 0, len(list))
	for _, em := range list {
		if em.CompanyID != companyID {
			continue
		}
		out = append(out, dto.EmissionFromEntity(em))
	}
	return c.JSON(out)
}

// Resume godoc
// @Summary      Reanudar la consulta de un lote pendiente
// @Tags         nfe
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "ID de la emisión"
// @Success      200  {object}  dto.EmissionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/nfe/emissions/{id}/resume [post]
func (h *NFeHandler) Resume(c *fiber.Ctx) error {
	if _, err := h.owned(c); err != nil {
		return writeError(c, err, nil)
	}
	em, err := h.emissions.Resume(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err, em)
	}
	return c.JSON(dto.EmissionFromEntity(em))
}

// DownloadXML godoc
// @Summary      Descargar el XML de distribución (nfeProc si está autorizada)
// @Tags         nfe
// @Security     Bearer
// @Produce      application/xml
// @Param        id   path      string  true  "ID de la emisión"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/nfe/emissions/{id}/xml [get]
func (h *NFeHandler) DownloadXML(c *fiber.Ctx) error {
	em, err := h.owned(c)
	if err != nil {
		return writeError(c, err, nil)
	}
	body := billing.DistributionXML(em)
	if body == "" {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: dto.CodeNotFound, Message: "la emisión no tiene XML generado"})
	}
	c.Set(fiber.HeaderContentType, "application/xml")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+em.AccessKey+`-nfe.xml"`)
	return c.SendString(body)
}

// DownloadDANFE godoc
// @Summary      Descargar el DANFE en PDF
// @Tags         nfe
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path      string  true  "ID de la emisión"
// @Success      200  {file}    binary
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/nfe/emissions/{id}/danfe [get]
func (h *NFeHandler) DownloadDANFE(c *fiber.Ctx) error {
	pdf, filename, err := h.danfe.DownloadDANFE(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, err, nil)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdf)
}

// owned carga la emisión de la ruta y verifica que pertenezca a la empresa del token.
func (h *NFeHandler) owned(c *fiber.Ctx) (*entity.Emission, error) {
	em, err := h.emissions.GetEmission(c.Context(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if em.CompanyID != GetCompanyID(c) {
		return nil, domain.ErrForbidden
	}
	return em, nil
}

// writeError traduce errores de dominio a respuestas HTTP.
// em, si no es nil, acompaña la respuesta de validación y de conflicto.
func writeError(c *fiber.Ctx, err error, em *entity.Emission) error {
	switch {
	case errors.Is(err, nfe.ErrInvalidDocument):
		out := dto.ValidationErrorResponse{Code: dto.CodeInvalidDocument, Message: "la NF-e no pasó la validación"}
		if em != nil {
			resp := dto.EmissionFromEntity(em)
			out.Errors = em.ValidationErrors
			out.Warnings = em.Warnings
			out.Emission = &resp
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(out)
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: dto.CodeNotFound, Message: "pedido o emisión no encontrado"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: dto.CodeForbidden, Message: "acceso denegado al recurso"})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: dto.CodeAlreadyAuthorized, Message: conflictMessage("el pedido ya tiene NF-e autorizada", em)})
	case errors.Is(err, domain.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: dto.CodeConflict, Message: conflictMessage("la emisión no admite la operación en su estado actual", em)})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: dto.CodeValidation, Message: err.Error()})
	case errors.Is(err, domain.ErrNotConfigured):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{Code: dto.CodeNotConfigured, Message: "autorizador SEFAZ no configurado"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: dto.CodeInternal, Message: err.Error()})
}

func conflictMessage(msg string, em *entity.Emission) string {
	if em == nil {
		return msg
	}
	return msg + " (emisión " + em.ID + ", estado " + em.Status + ")"
}
