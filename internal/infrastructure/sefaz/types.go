// Package sefaz implementa el códec XML de la NF-e 4.00 y el cliente SOAP de
// autorización (status → envío de lote → consulta de recibo) con mTLS.
package sefaz

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrTransport falla de red, TLS, HTTP o SOAP Fault: la SEFAZ no llegó a decidir.
var ErrTransport = errors.New("sefaz: error de transporte")

// ErrInvalidNumber idLote o nRec con algo distinto de 1 a 15 dígitos.
var ErrInvalidNumber = errors.New("sefaz: idLote/nRec debe tener de 1 a 15 dígitos")

// RejectionError rechazo de negocio con el código y motivo devueltos por la SEFAZ.
type RejectionError struct {
	Code   string
	Reason string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("sefaz: rechazo %s: %s", e.Code, e.Reason)
}

// Outcome resultado final de un intento de autorización.
type Outcome string

const (
	OutcomeAuthorized     Outcome = "AUTHORIZED"
	OutcomeRejected       Outcome = "REJECTED"
	OutcomeTimedOut       Outcome = "TIMED_OUT"
	OutcomeTransportError Outcome = "TRANSPORT_ERROR"
)

// HTTPDoer subconjunto de *http.Client; en tests se inyecta el cliente de httptest.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sleeper espera d o hasta que ctx se cancele.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep Sleeper por defecto basado en time.Timer.
func ContextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// StatusResult respuesta de NFeStatusServico4. Nunca se devuelve error: una falla
// de transporte queda como OK=false con el motivo en Message.
type StatusResult struct {
	OK        bool
	Code      string
	Message   string
	Timestamp time.Time
}

// SubmitResult lote recibido (cStat 103) con su número de recibo.
type SubmitResult struct {
	Receipt    string
	Code       string
	Message    string
	ReceivedAt time.Time
}

// PollResult resultado de la consulta de recibo.
type PollResult struct {
	Outcome     Outcome
	Code        string
	Reason      string
	Protocol    string
	ProtocolXML []byte // <protNFe> tal como lo devolvió la SEFAZ
	Attempts    int
}
