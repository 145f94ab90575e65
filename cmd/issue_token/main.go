// issue_token emite un JWT de operador para la API (sin módulo de usuarios).
//
// Uso: go run ./cmd/issue_token -company <uuid> -role emisor [-user <id>]
// Lee JWT_SECRET, JWT_ISSUER y JWT_EXPIRATION_MINUTES de la configuración.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/nfe-api/pkg/config"
	"github.com/jhoicas/nfe-api/pkg/jwt"
)

var validRoles = map[string]bool{"admin": true, "emisor": true, "auditor": true}

func main() {
	company := flag.String("company", "", "ID de la empresa emisora")
	role := flag.String("role", "emisor", "rol: admin | emisor | auditor")
	user := flag.String("user", "operador", "sujeto del token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuración: %v\n", err)
		os.Exit(1)
	}
	tok, err := issue(cfg.JWT, jwt.Identity{UserID: *user, CompanyID: *company, Role: *role})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Emitir token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok)
}

func issue(cfg config.JWTConfig, id jwt.Identity) (string, error) {
	if id.CompanyID == "" {
		return "", fmt.Errorf("-company requerido")
	}
	if !validRoles[id.Role] {
		return "", fmt.Errorf("rol %q no reconocido", id.Role)
	}
	return jwt.Generate(cfg.Secret, cfg.Issuer, id, time.Duration(cfg.Expiration)*time.Minute)
}
