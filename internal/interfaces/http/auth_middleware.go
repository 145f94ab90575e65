package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/nfe-api/internal/application/dto"
	"github.com/jhoicas/nfe-api/pkg/jwt"
)

// LocalIdentity clave de c.Locals con la jwt.Identity del token.
const LocalIdentity = "identity"

// Roles reconocidos en el claim "role".
const (
	RoleAdmin   = "admin"   // todo, incluida la consulta de status de la SEFAZ
	RoleEmisor  = "emisor"  // emite y reanuda NF-e
	RoleAuditor = "auditor" // solo lectura de emisiones, XML y DANFE
)

// AuthMiddleware valida el Bearer Token y deja la identidad en c.Locals.
func AuthMiddleware(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, code, msg := bearerToken(c.Get(fiber.HeaderAuthorization))
		if code != "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: code, Message: msg})
		}
		id, err := jwt.Parse(jwtSecret, tokenString)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: dto.CodeInvalidToken, Message: "token inválido o expirado"})
		}
		c.Locals(LocalIdentity, id)
		return c.Next()
	}
}

// bearerToken extrae el token de "Bearer <token>"; code != "" indica el error.
func bearerToken(header string) (token, code, msg string) {
	if header == "" {
		return "", dto.CodeMissingToken, "Authorization header requerido"
	}
	scheme, rest, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", dto.CodeInvalidToken, "formato: Bearer <token>"
	}
	token = strings.TrimSpace(rest)
	if token == "" {
		return "", dto.CodeMissingToken, "token vacío"
	}
	return token, "", ""
}

// RequireRole deja pasar solo los roles indicados. Va DESPUÉS de AuthMiddleware.
//   - 401 MISSING_ROLE → token sin claim de rol.
//   - 403 FORBIDDEN    → rol no autorizado para la ruta.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		role := GetRole(c)
		if role == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: dto.CodeMissingRole, Message: "el token no incluye rol"})
		}
		if _, ok := allowed[role]; !ok {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: dto.CodeForbidden, Message: "rol sin permiso para este recurso"})
		}
		return c.Next()
	}
}

// GetIdentity identidad cargada por AuthMiddleware; vacía si no pasó por él.
func GetIdentity(c *fiber.Ctx) jwt.Identity {
	id, _ := c.Locals(LocalIdentity).(jwt.Identity)
	return id
}

// GetCompanyID empresa emisora del token.
func GetCompanyID(c *fiber.Ctx) string { return GetIdentity(c).CompanyID }

// GetRole rol del token.
func GetRole(c *fiber.Ctx) string { return GetIdentity(c).Role }
