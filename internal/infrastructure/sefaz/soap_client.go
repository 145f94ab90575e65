package sefaz

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/rs/zerolog"

	"github.com/jhoicas/nfe-api/internal/observability/metrics"
	pkgnfe "github.com/jhoicas/nfe-api/pkg/nfe"
)

// ── Valores por defecto ───────────────────────────────────────────────────────

const (
	DefaultTimeout         = 30 * time.Second
	DefaultSubmitRetries   = 3
	DefaultPollAttempts    = 10
	DefaultProcessingDelay = 5 * time.Second
	DefaultTransportDelay  = 2 * time.Second

	soapNS       = "http://www.w3.org/2003/05/soap-envelope"
	maxBodyBytes = 1 << 20
)

// Config parámetros del cliente para un emisor.
type Config struct {
	Environment     string // tpAmb: "1" producción, "2" homologación
	StateCode       string // cUF del emisor (consStatServ)
	Endpoints       Endpoints
	Timeout         time.Duration // por llamada
	SubmitRetries   int           // intentos totales del envío ante fallas de transporte
	ProcessingDelay time.Duration // espera tras cStat 104
	TransportDelay  time.Duration // espera tras falla de transporte
}

func (c *Config) applyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.SubmitRetries <= 0 {
		c.SubmitRetries = DefaultSubmitRetries
	}
	if c.ProcessingDelay <= 0 {
		c.ProcessingDelay = DefaultProcessingDelay
	}
	if c.TransportDelay <= 0 {
		c.TransportDelay = DefaultTransportDelay
	}
}

// SOAPClient cliente de los servicios NFeStatusServico4, NFeAutorizacao4 y
// NFeRetAutorizacao4. Es seguro para uso concurrente; cada autorización
// lleva su propio Attempt.
type SOAPClient struct {
	http  HTTPDoer
	cfg   Config
	sleep Sleeper
	log   zerolog.Logger
	now   func() time.Time
}

// NewSOAPClient construye el cliente con TLS mutuo usando el certificado del emisor.
func NewSOAPClient(cfg Config, cert tls.Certificate, log zerolog.Logger) *SOAPClient {
	cfg.applyDefaults()
	tlsCfg := &tls.Config{MinVersion: tls.VersionTLS12}
	if len(cert.Certificate) > 0 {
		tlsCfg.Certificates = []tls.Certificate{cert}
	}
	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			TLSClientConfig:     tlsCfg,
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	return NewSOAPClientWithDoer(cfg, httpClient, ContextSleep, log)
}

// NewSOAPClientWithDoer permite inyectar transporte y espera (tests).
func NewSOAPClientWithDoer(cfg Config, doer HTTPDoer, sleep Sleeper, log zerolog.Logger) *SOAPClient {
	cfg.applyDefaults()
	if sleep == nil {
		sleep = ContextSleep
	}
	return &SOAPClient{
		http:  doer,
		cfg:   cfg,
		sleep: sleep,
		log:   log.With().Str("component", "sefaz").Logger(),
		now:   time.Now,
	}
}

// Environment tpAmb configurado.
func (c *SOAPClient) Environment() string { return c.cfg.Environment }

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName xml.Name `xml:"soap12:Envelope"`
	XmlnsS  string   `xml:"xmlns:soap12,attr"`
	Body    soapBody `xml:"soap12:Body"`
}

type soapBody struct {
	Msg dadosMsg `xml:"nfeDadosMsg"`
}

// dadosMsg el contenido va crudo: el XML firmado no puede re-serializarse.
type dadosMsg struct {
	Xmlns   string `xml:"xmlns,attr"`
	Content string `xml:",innerxml"`
}

type soapResponseEnvelope struct {
	Body soapResponseBody `xml:"Body"`
}

type soapResponseBody struct {
	Fault  *soapFault `xml:"Fault"`
	Result struct {
		Status *retConsStatServ `xml:"retConsStatServ"`
		Submit *retEnviNFe      `xml:"retEnviNFe"`
		Return *retConsReciNFe  `xml:"retConsReciNFe"`
	} `xml:"nfeResultMsg"`
}

// soapFault SOAP 1.2 (Code/Value, Reason/Text).
type soapFault struct {
	Code   string `xml:"Code>Value"`
	Reason string `xml:"Reason>Text"`
}

type retConsStatServ struct {
	CStat    string `xml:"cStat"`
	XMotivo  string `xml:"xMotivo"`
	DhRecbto string `xml:"dhRecbto"`
}

type retEnviNFe struct {
	CStat    string `xml:"cStat"`
	XMotivo  string `xml:"xMotivo"`
	DhRecbto string `xml:"dhRecbto"`
	InfRec   struct {
		NRec string `xml:"nRec"`
	} `xml:"infRec"`
}

type retConsReciNFe struct {
	CStat   string `xml:"cStat"`
	XMotivo string `xml:"xMotivo"`
	NRec    string `xml:"nRec"`
	ProtNFe *struct {
		InfProt struct {
			ChNFe    string `xml:"chNFe"`
			DhRecbto string `xml:"dhRecbto"`
			NProt    string `xml:"nProt"`
			CStat    string `xml:"cStat"`
			XMotivo  string `xml:"xMotivo"`
		} `xml:"infProt"`
	} `xml:"protNFe"`
}

// ── CheckStatus ───────────────────────────────────────────────────────────────

// CheckStatus consulta NFeStatusServico4. cStat 107 = servicio en operación.
func (c *SOAPClient) CheckStatus(ctx context.Context) StatusResult {
	body := `<consStatServ xmlns="` + pkgnfe.Namespace + `" versao="` + pkgnfe.LayoutVersion + `">` +
		`<tpAmb>` + c.cfg.Environment + `</tpAmb>` +
		`<cUF>` + c.cfg.StateCode + `</cUF>` +
		`<xServ>STATUS</xServ></consStatServ>`

	resp, _, err := c.call(ctx, "status", c.cfg.Endpoints.Status, actionStatus, wsdlStatus, body)
	if err != nil {
		c.log.Warn().Err(err).Msg("sefaz: consulta de status fallida")
		return StatusResult{OK: false, Message: err.Error(), Timestamp: c.now()}
	}
	ret := resp.Body.Result.Status
	if ret == nil {
		return StatusResult{OK: false, Message: "respuesta sin retConsStatServ", Timestamp: c.now()}
	}
	return StatusResult{
		OK:        ret.CStat == pkgnfe.StatusServiceOK,
		Code:      ret.CStat,
		Message:   ret.XMotivo,
		Timestamp: parseTimestamp(ret.DhRecbto, c.now),
	}
}

// ── Submit ────────────────────────────────────────────────────────────────────

// Submit envía el lote (una sola NF-e, indSinc=0). cStat 103 devuelve el recibo;
// otro código es *RejectionError. Las fallas de transporte se reintentan hasta
// SubmitRetries veces y luego se devuelve ErrTransport.
func (c *SOAPClient) Submit(ctx context.Context, signedXML []byte, batchID string) (*SubmitResult, error) {
	if len(signedXML) == 0 {
		return nil, fmt.Errorf("sefaz: XML firmado vacío")
	}
	if !numericRe.MatchString(batchID) {
		return nil, fmt.Errorf("%w: idLote %q", ErrInvalidNumber, batchID)
	}
	body := `<enviNFe xmlns="` + pkgnfe.Namespace + `" versao="` + pkgnfe.LayoutVersion + `">` +
		`<idLote>` + batchID + `</idLote><indSinc>0</indSinc>` +
		stripXMLDeclaration(string(signedXML)) +
		`</enviNFe>`

	var lastErr error
	for attempt := 1; attempt <= c.cfg.SubmitRetries; attempt++ {
		resp, _, err := c.call(ctx, "autorizacion", c.cfg.Endpoints.Authorization, actionAuthorization, wsdlAuthorization, body)
		if err == nil {
			ret := resp.Body.Result.Submit
			if ret == nil {
				lastErr = fmt.Errorf("soap: autorizacion: respuesta sin retEnviNFe: %w", ErrTransport)
			} else if ret.CStat != pkgnfe.StatusBatchReceived {
				return nil, &RejectionError{Code: ret.CStat, Reason: ret.XMotivo}
			} else {
				return &SubmitResult{
					Receipt:    ret.InfRec.NRec,
					Code:       ret.CStat,
					Message:    ret.XMotivo,
					ReceivedAt: parseTimestamp(ret.DhRecbto, c.now),
				}, nil
			}
		} else {
			lastErr = err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.Warn().Err(lastErr).Int("attempt", attempt).Str("batch_id", batchID).Msg("sefaz: envío fallido, reintentando")
		if attempt < c.cfg.SubmitRetries {
			if err := c.sleep(ctx, c.cfg.TransportDelay); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

// ── Poll ──────────────────────────────────────────────────────────────────────

// Poll consulta el recibo hasta obtener una respuesta final o agotar maxAttempts.
// 104 espera ProcessingDelay; una falla de transporte espera TransportDelay;
// ambas consumen un intento. Solo devuelve error si ctx se cancela o el recibo
// no es numérico.
func (c *SOAPClient) Poll(ctx context.Context, receipt string, maxAttempts int) (*PollResult, error) {
	if !numericRe.MatchString(receipt) {
		return nil, fmt.Errorf("%w: nRec %q", ErrInvalidNumber, receipt)
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultPollAttempts
	}
	body := `<consReciNFe xmlns="` + pkgnfe.Namespace + `" versao="` + pkgnfe.LayoutVersion + `">` +
		`<tpAmb>` + c.cfg.Environment + `</tpAmb>` +
		`<nRec>` + receipt + `</nRec></consReciNFe>`

	res := &PollResult{Outcome: OutcomeTimedOut}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res.Attempts = attempt
		resp, raw, err := c.call(ctx, "retorno", c.cfg.Endpoints.Return, actionReturn, wsdlReturn, body)

		delay := c.cfg.TransportDelay
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			res.Code, res.Reason = "", err.Error()
			c.log.Warn().Err(err).Int("attempt", attempt).Str("receipt", receipt).Msg("sefaz: consulta de recibo fallida")
		case resp.Body.Result.Return == nil:
			res.Code, res.Reason = "", "respuesta sin retConsReciNFe"
		default:
			ret := resp.Body.Result.Return
			res.Code, res.Reason = ret.CStat, ret.XMotivo
			switch ret.CStat {
			case pkgnfe.StatusBatchProcessing:
				delay = c.cfg.ProcessingDelay
				c.log.Debug().Int("attempt", attempt).Str("receipt", receipt).Msg("sefaz: lote en procesamiento")
			case pkgnfe.StatusAuthorized:
				res.Outcome = OutcomeAuthorized
				if ret.ProtNFe != nil {
					res.Protocol = ret.ProtNFe.InfProt.NProt
				}
				res.ProtocolXML = extractElement(raw, "protNFe")
				return res, nil
			default:
				res.Outcome = OutcomeRejected
				return res, nil
			}
		}

		if attempt < maxAttempts {
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}

// ── Transporte ────────────────────────────────────────────────────────────────

// call ejecuta una operación SOAP 1.2. Cualquier falla que impida leer una
// respuesta de negocio se devuelve envuelta en ErrTransport.
func (c *SOAPClient) call(ctx context.Context, operation, url, action, wsdlNS, content string) (resp *soapResponseEnvelope, raw []byte, err error) {
	start := time.Now()
	defer func() { metrics.ObserveSOAPCall(operation, err, time.Since(start)) }()

	if url == "" {
		return nil, nil, fmt.Errorf("soap: %s: endpoint no configurado: %w", operation, ErrTransport)
	}
	payload, err := xml.Marshal(soapEnvelope{
		XmlnsS: soapNS,
		Body:   soapBody{Msg: dadosMsg{Xmlns: wsdlNS, Content: content}},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("soap: %s: serializar envelope: %w", operation, err)
	}
	payload = append([]byte(xml.Header), payload...)

	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, fmt.Errorf("soap: %s: crear request: %w", operation, err)
	}
	req.Header.Set("Content-Type", `application/soap+xml; charset=utf-8; action="`+action+`"`)
	req.Header.Set("SOAPAction", action)

	httpResp, err := c.http.Do(req)
	if err != nil {
		if callCtx.Err() != nil {
			return nil, nil, fmt.Errorf("soap: %s: timeout o cancelación: %w: %w", operation, ErrTransport, callCtx.Err())
		}
		return nil, nil, fmt.Errorf("soap: %s: llamada HTTP fallida: %w: %w", operation, ErrTransport, err)
	}
	defer httpResp.Body.Close()

	raw, err = io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("soap: %s: leer respuesta: %w: %w", operation, ErrTransport, err)
	}

	var env soapResponseEnvelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, raw, fmt.Errorf("soap: %s: HTTP %d, respuesta no parseable: %w", operation, httpResp.StatusCode, ErrTransport)
	}
	if f := env.Body.Fault; f != nil {
		return nil, raw, fmt.Errorf("soap: %s: SOAP Fault [%s]: %s: %w", operation,
			strings.TrimSpace(f.Code), strings.TrimSpace(f.Reason), ErrTransport)
	}
	if httpResp.StatusCode >= http.StatusBadRequest {
		return nil, raw, fmt.Errorf("soap: %s: HTTP %d: %w", operation, httpResp.StatusCode, ErrTransport)
	}
	return &env, raw, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

var xmlDeclRe = regexp.MustCompile(`^\s*<\?xml[^>]*\?>\s*`)

// numericRe idLote y nRec (N 1-15).
var numericRe = regexp.MustCompile(`^[0-9]{1,15}$`)

func stripXMLDeclaration(s string) string {
	return xmlDeclRe.ReplaceAllString(s, "")
}

// extractElement devuelve el primer elemento con ese nombre local como documento
// independiente, con el namespace de la NF-e declarado.
func extractElement(raw []byte, tag string) []byte {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil
	}
	el := findFirst(doc.Root(), tag)
	if el == nil {
		return nil
	}
	cp := el.Copy()
	cp.Space = ""
	if cp.SelectAttr("xmlns") == nil {
		cp.CreateAttr("xmlns", pkgnfe.Namespace)
	}
	out := etree.NewDocument()
	out.SetRoot(cp)
	b, err := out.WriteToBytes()
	if err != nil {
		return nil
	}
	return b
}

func parseTimestamp(s string, now func() time.Time) time.Time {
	if t, err := time.Parse(dateTimeLayout, strings.TrimSpace(s)); err == nil {
		return t
	}
	return now()
}

// IsTransport indica si err es una falla de transporte (reintentable más tarde).
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}
