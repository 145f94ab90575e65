package sefaz

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/nfe-api/internal/observability/metrics"
)

// State etapa alcanzada por un intento de autorización.
type State string

const (
	StateIdle          State = "IDLE"
	StateStatusChecked State = "STATUS_CHECKED"
	StateSubmitted     State = "SUBMITTED"
	StatePolling       State = "POLLING"
	StateAuthorized    State = "AUTHORIZED"
	StateRejected      State = "REJECTED"
	StateTimedOut      State = "TIMED_OUT"
)

// Attempt un intento de autorización de una NF-e. Vive lo que dura Authorize;
// el llamador decide qué persistir (recibo, protocolo, XML autorizado).
type Attempt struct {
	Environment   string
	SignedXML     []byte
	Receipt       string
	Protocol      string
	AuthorizedXML []byte // nfeProc
	State         State
	Outcome       Outcome
	Code          string
	Reason        string
	PollAttempts  int
	Err           error
}

// Observer recibe el intento en cada cambio de estado (p. ej. para persistir el recibo).
type Observer func(a *Attempt)

func (a *Attempt) transition(to State, observers []Observer) {
	a.State = to
	for _, o := range observers {
		if o != nil {
			o(a)
		}
	}
}

// Final indica si el intento terminó con una respuesta de negocio (autorizado o rechazado).
func (a *Attempt) Final() bool {
	return a.Outcome == OutcomeAuthorized || a.Outcome == OutcomeRejected
}

// Authorize recorre Idle → StatusChecked → Submitted → Polling → final.
// Un servicio fuera de operación termina como OutcomeTransportError sin enviar.
func (c *SOAPClient) Authorize(ctx context.Context, signedXML []byte, maxAttempts int, observers ...Observer) *Attempt {
	a := &Attempt{Environment: c.cfg.Environment, SignedXML: signedXML, State: StateIdle}

	// ═══ 1. Status del servicio ═══
	st := c.CheckStatus(ctx)
	if !st.OK {
		a.Outcome = OutcomeTransportError
		a.Code, a.Reason = st.Code, st.Message
		a.Err = fmt.Errorf("sefaz: servicio no disponible (%s %s): %w", st.Code, st.Message, ErrTransport)
		return a
	}
	a.transition(StateStatusChecked, observers)

	// ═══ 2. Envío del lote ═══
	sub, err := c.Submit(ctx, signedXML, c.batchID())
	if err != nil {
		var rej *RejectionError
		switch {
		case errors.As(err, &rej):
			a.Outcome = OutcomeRejected
			a.Code, a.Reason = rej.Code, rej.Reason
			a.transition(StateRejected, observers)
		default:
			a.Outcome = OutcomeTransportError
			a.Reason = err.Error()
		}
		a.Err = err
		return a
	}
	a.Receipt = sub.Receipt
	c.log.Info().Str("receipt", sub.Receipt).Msg("sefaz: lote recibido")
	a.transition(StateSubmitted, observers)

	// ═══ 3. Consulta del recibo ═══
	c.pollInto(ctx, a, maxAttempts, observers)
	return a
}

// ResumeAttempt vuelve a consultar un recibo ya obtenido, sin reenviar el lote.
func (c *SOAPClient) ResumeAttempt(ctx context.Context, signedXML []byte, receipt string, maxAttempts int, observers ...Observer) *Attempt {
	a := &Attempt{
		Environment: c.cfg.Environment,
		SignedXML:   signedXML,
		Receipt:     receipt,
		State:       StateSubmitted,
	}
	c.pollInto(ctx, a, maxAttempts, observers)
	return a
}

func (c *SOAPClient) pollInto(ctx context.Context, a *Attempt, maxAttempts int, observers []Observer) {
	a.transition(StatePolling, observers)
	res, err := c.Poll(ctx, a.Receipt, maxAttempts)
	if errors.Is(err, ErrInvalidNumber) {
		a.Outcome = OutcomeTransportError
		a.Reason = err.Error()
		a.Err = err
		return
	}
	if err != nil {
		// Cancelación: el recibo sigue válido para un Resume posterior.
		a.Outcome = OutcomeTimedOut
		a.Reason = err.Error()
		a.Err = err
		a.transition(StateTimedOut, observers)
		return
	}
	metrics.ObservePollAttempts(res.Attempts)
	a.PollAttempts = res.Attempts
	a.Code, a.Reason = res.Code, res.Reason
	a.Outcome = res.Outcome

	switch res.Outcome {
	case OutcomeAuthorized:
		a.Protocol = res.Protocol
		if len(res.ProtocolXML) > 0 {
			proc, err := BuildProcNFe(a.SignedXML, res.ProtocolXML)
			if err != nil {
				c.log.Warn().Err(err).Str("protocol", res.Protocol).Msg("sefaz: no se pudo armar nfeProc")
			} else {
				a.AuthorizedXML = proc
			}
		}
		a.transition(StateAuthorized, observers)
	case OutcomeRejected:
		a.Err = &RejectionError{Code: res.Code, Reason: res.Reason}
		a.transition(StateRejected, observers)
	default:
		a.transition(StateTimedOut, observers)
	}
}

// batchID idLote: hasta 15 dígitos, derivado del reloj.
func (c *SOAPClient) batchID() string {
	t := c.now()
	return fmt.Sprintf("%s%03d", t.Format("060102150405"), t.Nanosecond()/1e6)
}
