package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/nfe"
	"github.com/jhoicas/nfe-api/internal/domain/repository"
	"github.com/jhoicas/nfe-api/internal/infrastructure/sefaz"
	"github.com/jhoicas/nfe-api/internal/observability/metrics"
	pkgnfe "github.com/jhoicas/nfe-api/pkg/nfe"
)

// NFeOrchestrator orquesta el ciclo completo de emisión de una NF-e:
//
//	Pedido → Document → Validación → XML → Firma → Status → Envío → Consulta → Update DB
//
// Cada etapa queda persistida en la emisión (VALIDATION_FAILED, ERROR_GENERATION,
// SIGNED, SUBMITTED, AUTHORIZED, REJECTED, PROCESSING, TRANSPORT_ERROR).
//
// Modos de operación (NFeConfig.AppEnv):
//   - "dev"  → genera, valida y firma; NO transmite. Estado final: SIGNED.
//   - "test" → transmite a homologación (tpAmb=2).
//   - "prod" → transmite a producción (tpAmb=1).
type NFeOrchestrator struct {
	emissions  repository.EmissionRepository
	orders     repository.OrderRepository
	customers  repository.CustomerRepository
	products   repository.ProductRepository
	companies  repository.CompanyRepository
	builder    *DocumentBuilder
	xmlBuilder *sefaz.XMLBuilderService
	signer     pkgnfe.Signer
	cert       *sefaz.Certificate
	certErr    error
	authorizer Authorizer // nil en dev
	cfg        NFeConfig
	log        zerolog.Logger
	now        func() time.Time

	mu   sync.Mutex
	busy map[string]struct{} // pedidos con una emisión en curso en este proceso
}

// saveTimeout plazo de las escrituras finales, independiente del contexto del pedido.
const saveTimeout = 10 * time.Second

// NewNFeOrchestrator construye el orquestador con todas sus dependencias.
// authorizer puede ser nil: en ese caso solo funciona el modo dev.
// El certificado se carga una sola vez; si falla, cada Emit termina en
// ERROR_GENERATION con la causa.
func NewNFeOrchestrator(
	emissions repository.EmissionRepository,
	orders repository.OrderRepository,
	customers repository.CustomerRepository,
	products repository.ProductRepository,
	companies repository.CompanyRepository,
	builder *DocumentBuilder,
	xmlBuilder *sefaz.XMLBuilderService,
	signer pkgnfe.Signer,
	certs sefaz.CertificateStrategy,
	authorizer Authorizer,
	cfg NFeConfig,
	log zerolog.Logger,
) *NFeOrchestrator {
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = sefaz.DefaultPollAttempts
	}
	if cfg.AsyncTimeout <= 0 {
		cfg.AsyncTimeout = 2 * time.Minute
	}
	if cfg.Environment == "" {
		cfg.Environment = EnvironmentFor(cfg.AppEnv)
	}
	log = log.With().Str("component", "nfe_orchestrator").Logger()
	cert, certErr := certs.Load()
	if certErr != nil {
		log.Error().Err(certErr).Msg("certificado no disponible: las emisiones no podrán firmarse")
	}
	return &NFeOrchestrator{
		emissions:  emissions,
		orders:     orders,
		customers:  customers,
		products:   products,
		companies:  companies,
		builder:    builder,
		xmlBuilder: xmlBuilder,
		signer:     signer,
		cert:       cert,
		certErr:    certErr,
		authorizer: authorizer,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
		busy:       map[string]struct{}{},
	}
}

// EmitAsync dispara Emit en una goroutine con su propio contexto y timeout,
// desacoplado del ciclo HTTP.
func (o *NFeOrchestrator) EmitAsync(companyID, orderID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), o.cfg.AsyncTimeout)
		defer cancel()
		if _, err := o.Emit(ctx, companyID, orderID); err != nil {
			o.log.Error().Err(err).Str("order_id", orderID).Msg("emisión asíncrona terminó con error")
		}
	}()
}

// Emit ejecuta el flujo completo para un pedido y devuelve la emisión persistida.
// Rechazos de la SEFAZ y errores de transporte son resultados registrados, no errores;
// el error se reserva para datos faltantes, validación y fallas internas.
// companyID vacío omite el control de pertenencia del pedido.
func (o *NFeOrchestrator) Emit(ctx context.Context, companyID, orderID string) (*entity.Emission, error) {
	start := o.now()
	log := o.log.With().Str("order_id", orderID).Logger()

	// ═══════════════════════════════════════════════════════════════════════════
	// 0. Datos del pedido
	// ═══════════════════════════════════════════════════════════════════════════
	order, err := o.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("nfe: obtener pedido: %w", err)
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	if companyID != "" && order.CompanyID != companyID {
		return nil, domain.ErrForbidden
	}
	if !o.claim(orderID) {
		return nil, fmt.Errorf("%w: el pedido %s ya tiene una emisión en curso", domain.ErrConflict, orderID)
	}
	defer o.release(orderID)

	if existing, err := o.inFlight(ctx, orderID); err != nil {
		return nil, err
	} else if existing != nil {
		switch existing.Status {
		case entity.EmissionStatusAuthorized:
			return existing, domain.ErrDuplicate
		case entity.EmissionStatusSigned:
			return existing, fmt.Errorf("%w: emisión %s firmada y pendiente de envío",
				domain.ErrConflict, existing.ID)
		}
		return existing, fmt.Errorf("%w: emisión %s con recibo %s pendiente de consulta",
			domain.ErrConflict, existing.ID, existing.Receipt)
	}

	issuer, err := o.companies.GetByID(ctx, order.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("nfe: obtener emisor: %w", err)
	}
	if issuer == nil {
		return nil, fmt.Errorf("%w: emisor %s", domain.ErrNotFound, order.CompanyID)
	}
	customer, err := o.customers.GetByID(ctx, order.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("nfe: obtener cliente: %w", err)
	}
	if customer == nil {
		return nil, fmt.Errorf("%w: cliente %s", domain.ErrNotFound, order.CustomerID)
	}
	ids := make([]string, 0, len(order.Items))
	for _, it := range order.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := o.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("nfe: obtener productos: %w", err)
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 1. Pedido → Document
	// ═══════════════════════════════════════════════════════════════════════════
	doc, err := o.builder.Build(order, customer, products, issuer)
	if err != nil {
		return nil, fmt.Errorf("nfe: armar documento: %w", err)
	}
	key, err := nfe.AccessKey(doc)
	if err != nil {
		return nil, fmt.Errorf("nfe: clave de acceso: %w", err)
	}
	log = log.With().Str("access_key", key).Logger()

	em := &entity.Emission{
		ID:            uuid.New().String(),
		CompanyID:     order.CompanyID,
		OrderID:       order.ID,
		AccessKey:     key,
		Series:        doc.Identification.Series,
		Number:        doc.Identification.Number,
		Environment:   doc.Identification.Environment,
		DocumentValue: doc.Totals.DocumentValue,
		QRData:        nfe.QRCodeURL(key),
		CreatedAt:     o.now(),
		UpdatedAt:     o.now(),
	}

	// markError persiste ERROR_GENERATION y deja rastro en el log.
	markError := func(step string, cause error) (*entity.Emission, error) {
		em.Status = entity.EmissionStatusErrorGeneration
		em.StatusReason = fmt.Sprintf("%s: %v", step, cause)
		if err := o.save(ctx, em); err != nil {
			log.Error().Err(err).Msg("no se pudo persistir ERROR_GENERATION")
		}
		log.Error().Err(cause).Str("step", step).Msg("emisión abortada")
		metrics.ObserveEmission(em.Status, o.now().Sub(start))
		return em, fmt.Errorf("nfe: %s: %w", step, cause)
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 2. Validación (bloquea la transmisión)
	// ═══════════════════════════════════════════════════════════════════════════
	res := nfe.Validate(doc)
	em.Warnings = res.Warnings
	if !res.OK() {
		em.Status = entity.EmissionStatusValidationFailed
		em.ValidationErrors = res.Errors
		metrics.IncValidationFailure()
		if err := o.save(ctx, em); err != nil {
			return nil, fmt.Errorf("nfe: persistir VALIDATION_FAILED: %w", err)
		}
		log.Warn().Strs("errors", res.Errors).Msg("documento rechazado por el validador")
		metrics.ObserveEmission(em.Status, o.now().Sub(start))
		return em, res.Err()
	}
	for _, w := range res.Warnings {
		log.Warn().Str("warning", w).Msg("validación con advertencias")
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 3. Serialización + firma
	// ═══════════════════════════════════════════════════════════════════════════
	xmlBytes, err := o.xmlBuilder.Build(doc)
	if err != nil {
		return markError("xml-build", err)
	}
	if o.certErr != nil {
		return markError("cert-load", o.certErr)
	}
	if o.cert.Placeholder {
		em.Warnings = append(em.Warnings, "firmado con certificado placeholder de homologación")
	}
	signed, err := o.signer.Sign(xmlBytes, o.cert.TLS)
	if err != nil {
		return markError("xml-sign", err)
	}

	em.XMLSigned = string(signed)
	em.Status = entity.EmissionStatusSigned
	if err := o.save(ctx, em); err != nil {
		return nil, fmt.Errorf("nfe: persistir SIGNED: %w", err)
	}

	// ═══════════════════════════════════════════════════════════════════════════
	// 4. Transmisión condicional
	// ═══════════════════════════════════════════════════════════════════════════
	switch strings.ToLower(strings.TrimSpace(o.cfg.AppEnv)) {
	case AppEnvDev, "":
		log.Info().Int("bytes", len(signed)).Msg("[DEV] XML firmado, sin transmisión a la SEFAZ")
		metrics.ObserveEmission(em.Status, o.now().Sub(start))
		return em, nil

	case AppEnvTest, AppEnvProd:
		if o.authorizer == nil {
			return markError("sefaz", domain.ErrNotConfigured)
		}
		attempt := o.authorizer.Authorize(ctx, signed, o.cfg.PollAttempts, o.persistReceipt(ctx, em, log))
		o.applyAttempt(em, attempt)

	default:
		return markError("config", fmt.Errorf("NFE_APP_ENV %q no soportado", o.cfg.AppEnv))
	}

	if err := o.save(ctx, em); err != nil {
		return em, fmt.Errorf("nfe: persistir %s: %w", em.Status, err)
	}
	o.logOutcome(log, em)
	metrics.ObserveEmission(em.Status, o.now().Sub(start))
	return em, nil
}

// Resume vuelve a consultar el recibo de una emisión SUBMITTED o PROCESSING
// sin reenviar el lote.
func (o *NFeOrchestrator) Resume(ctx context.Context, emissionID string) (*entity.Emission, error) {
	start := o.now()
	em, err := o.emissions.GetByID(ctx, emissionID)
	if err != nil {
		return nil, fmt.Errorf("nfe: obtener emisión: %w", err)
	}
	if em == nil {
		return nil, domain.ErrNotFound
	}
	if !resumable(em) {
		return em, fmt.Errorf("%w: emisión en estado %s sin recibo pendiente", domain.ErrConflict, em.Status)
	}
	if o.authorizer == nil {
		return em, domain.ErrNotConfigured
	}
	if !o.claim(em.OrderID) {
		return em, fmt.Errorf("%w: el pedido %s ya tiene una emisión en curso", domain.ErrConflict, em.OrderID)
	}
	defer o.release(em.OrderID)
	log := o.log.With().Str("order_id", em.OrderID).Str("access_key", em.AccessKey).Logger()

	attempt := o.authorizer.ResumeAttempt(ctx, []byte(em.XMLSigned), em.Receipt, o.cfg.PollAttempts)
	o.applyAttempt(em, attempt)
	if err := o.save(ctx, em); err != nil {
		return em, fmt.Errorf("nfe: persistir %s: %w", em.Status, err)
	}
	o.logOutcome(log, em)
	metrics.ObserveEmission(em.Status, o.now().Sub(start))
	return em, nil
}

// CheckStatus consulta la disponibilidad del servicio de autorización.
func (o *NFeOrchestrator) CheckStatus(ctx context.Context) (sefaz.StatusResult, error) {
	if o.authorizer == nil {
		return sefaz.StatusResult{}, domain.ErrNotConfigured
	}
	return o.authorizer.CheckStatus(ctx), nil
}

// GetEmission devuelve una emisión por ID.
func (o *NFeOrchestrator) GetEmission(ctx context.Context, id string) (*entity.Emission, error) {
	em, err := o.emissions.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("nfe: obtener emisión: %w", err)
	}
	if em == nil {
		return nil, domain.ErrNotFound
	}
	return em, nil
}

// ListByOrder historial de emisiones de un pedido.
func (o *NFeOrchestrator) ListByOrder(ctx context.Context, orderID string) ([]*entity.Emission, error) {
	return o.emissions.ListByOrder(ctx, orderID)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// claim marca el pedido como en curso; false si ya lo estaba.
func (o *NFeOrchestrator) claim(orderID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.busy[orderID]; ok {
		return false
	}
	o.busy[orderID] = struct{}{}
	return true
}

func (o *NFeOrchestrator) release(orderID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.busy, orderID)
}

// inFlight emisión autorizada, con recibo pendiente o firmada y a punto de
// transmitirse, si existe. Una SIGNED más vieja que AsyncTimeout se considera
// abandonada. En dev SIGNED es estado final y no bloquea.
func (o *NFeOrchestrator) inFlight(ctx context.Context, orderID string) (*entity.Emission, error) {
	list, err := o.emissions.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("nfe: listar emisiones: %w", err)
	}
	for _, em := range list {
		if em.Status == entity.EmissionStatusAuthorized || resumable(em) || o.pendingSubmit(em) {
			return em, nil
		}
	}
	return nil, nil
}

func (o *NFeOrchestrator) pendingSubmit(em *entity.Emission) bool {
	if em.Status != entity.EmissionStatusSigned || !o.transmits() {
		return false
	}
	return o.now().Sub(em.UpdatedAt) < o.cfg.AsyncTimeout
}

func (o *NFeOrchestrator) transmits() bool {
	switch strings.ToLower(strings.TrimSpace(o.cfg.AppEnv)) {
	case AppEnvTest, AppEnvProd:
		return true
	}
	return false
}

func resumable(em *entity.Emission) bool {
	return em.Receipt != "" &&
		(em.Status == entity.EmissionStatusSubmitted || em.Status == entity.EmissionStatusProcessing)
}

// persistReceipt guarda el recibo en cuanto la SEFAZ lo entrega, antes de consultar.
func (o *NFeOrchestrator) persistReceipt(ctx context.Context, em *entity.Emission, log zerolog.Logger) sefaz.Observer {
	return func(a *sefaz.Attempt) {
		if a.State != sefaz.StateSubmitted {
			return
		}
		em.Receipt = a.Receipt
		em.Status = entity.EmissionStatusSubmitted
		if err := o.save(ctx, em); err != nil {
			log.Error().Err(err).Str("receipt", a.Receipt).Msg("no se pudo persistir el recibo")
		}
	}
}

// applyAttempt vuelca el resultado del intento en la emisión.
func (o *NFeOrchestrator) applyAttempt(em *entity.Emission, a *sefaz.Attempt) {
	if a.Receipt != "" {
		em.Receipt = a.Receipt
	}
	em.StatusCode, em.StatusReason = a.Code, a.Reason

	switch a.Outcome {
	case sefaz.OutcomeAuthorized:
		em.Status = entity.EmissionStatusAuthorized
		em.Protocol = a.Protocol
		if len(a.AuthorizedXML) > 0 {
			em.XMLAuthorized = string(a.AuthorizedXML)
		}
	case sefaz.OutcomeRejected:
		em.Status = entity.EmissionStatusRejected
	case sefaz.OutcomeTimedOut:
		em.Status = entity.EmissionStatusProcessing
	default:
		em.Status = entity.EmissionStatusTransportError
		if a.Err != nil && em.StatusReason == "" {
			em.StatusReason = a.Err.Error()
		}
	}
}

func (o *NFeOrchestrator) logOutcome(log zerolog.Logger, em *entity.Emission) {
	ev := log.Info()
	if em.Status != entity.EmissionStatusAuthorized {
		ev = log.Warn()
	}
	ev.Str("status", em.Status).
		Str("cstat", em.StatusCode).
		Str("xmotivo", em.StatusReason).
		Str("receipt", em.Receipt).
		Str("protocol", em.Protocol).
		Msg("resultado de la autorización")
}

// save crea la emisión la primera vez y la actualiza después. La escritura
// sobrevive a la cancelación de ctx: un recibo ya obtenido no se pierde porque
// venció el plazo del pedido.
func (o *NFeOrchestrator) save(ctx context.Context, em *entity.Emission) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	em.UpdatedAt = o.now()
	err := o.emissions.Update(ctx, em)
	if errors.Is(err, domain.ErrNotFound) {
		return o.emissions.Create(ctx, em)
	}
	return err
}
