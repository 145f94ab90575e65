package billing

import (
	"context"
	"time"

	"github.com/jhoicas/nfe-api/internal/infrastructure/sefaz"
	pkgnfe "github.com/jhoicas/nfe-api/pkg/nfe"
)

// Modos de operación del orquestador (NFE_APP_ENV).
const (
	AppEnvDev  = "dev"  // genera, valida y firma; no transmite
	AppEnvTest = "test" // homologación (tpAmb=2)
	AppEnvProd = "prod" // producción (tpAmb=1)
)

// Authorizer cliente de autorización ante la SEFAZ. Lo implementa *sefaz.SOAPClient.
type Authorizer interface {
	Environment() string
	CheckStatus(ctx context.Context) sefaz.StatusResult
	Authorize(ctx context.Context, signedXML []byte, maxAttempts int, observers ...sefaz.Observer) *sefaz.Attempt
	ResumeAttempt(ctx context.Context, signedXML []byte, receipt string, maxAttempts int, observers ...sefaz.Observer) *sefaz.Attempt
}

// DANFEGenerator genera la representación gráfica (PDF) de una NF-e.
type DANFEGenerator interface {
	GenerateDANFE(ctx context.Context, summary *sefaz.Summary, qrURL string) ([]byte, error)
}

// NFeConfig parámetros de emisión leídos de la configuración.
type NFeConfig struct {
	AppEnv       string        // dev | test | prod
	Environment  string        // tpAmb: 1 producción, 2 homologación
	PollAttempts int           // consultas del recibo por intento
	AsyncTimeout time.Duration // límite de EmitAsync
}

// EnvironmentFor tpAmb correspondiente al modo de operación.
func EnvironmentFor(appEnv string) string {
	if appEnv == AppEnvProd {
		return pkgnfe.EnvironmentProduction
	}
	return pkgnfe.EnvironmentHomologation
}
