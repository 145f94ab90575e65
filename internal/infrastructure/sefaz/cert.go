package sefaz

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/pkcs12"

	pkgnfe "github.com/jhoicas/nfe-api/pkg/nfe"
)

// ErrCertificateRequired producción sin certificado válido.
var ErrCertificateRequired = errors.New("sefaz: certificado A1 obligatorio en producción")

// placeholderCN sujeto del certificado generado en homologación; la SEFAZ lo rechaza siempre.
const placeholderCN = "NFE-API PLACEHOLDER - NAO VALIDO"

// CertificateSource bytes de un certificado A1 (PKCS#12 o PEM). Filename solo se
// usa para inferir el tipo; el núcleo nunca lee archivos.
type CertificateSource struct {
	Filename string
	Data     []byte
	Password string
}

// Empty indica que no se suministraron bytes.
func (s CertificateSource) Empty() bool { return len(s.Data) == 0 }

// Certificate identidad TLS del emisor. Placeholder=true marca la identidad
// generada en memoria, inútil contra la SEFAZ real.
type Certificate struct {
	TLS         tls.Certificate
	Subject     string
	NotAfter    time.Time
	Placeholder bool
}

// ── Estrategias ───────────────────────────────────────────────────────────────

// CertificateStrategy política de carga según el ambiente.
type CertificateStrategy interface {
	Load() (*Certificate, error)
}

// ProductionStrategy exige un certificado real; cualquier falla es fatal.
type ProductionStrategy struct {
	Source CertificateSource
}

func (s ProductionStrategy) Load() (*Certificate, error) {
	if s.Source.Empty() {
		return nil, ErrCertificateRequired
	}
	cert, err := ParseCertificate(s.Source)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCertificateRequired, err)
	}
	return cert, nil
}

// HomologationStrategy certificado suministrado → certificado de pruebas →
// identidad placeholder con advertencia.
type HomologationStrategy struct {
	Source     CertificateSource
	TestSource CertificateSource
	Log        zerolog.Logger
}

func (s HomologationStrategy) Load() (*Certificate, error) {
	for _, src := range []struct {
		name   string
		source CertificateSource
	}{
		{"suministrado", s.Source},
		{"de pruebas", s.TestSource},
	} {
		if src.source.Empty() {
			continue
		}
		cert, err := ParseCertificate(src.source)
		if err == nil {
			return cert, nil
		}
		s.Log.Warn().Err(err).Str("certificate", src.name).Msg("sefaz: no se pudo cargar el certificado")
	}

	cert, err := PlaceholderCertificate()
	if err != nil {
		return nil, err
	}
	s.Log.Warn().
		Str("subject", cert.Subject).
		Msg("⚠️  SEFAZ: usando certificado PLACEHOLDER generado en memoria; toda llamada real a la SEFAZ será rechazada")
	return cert, nil
}

// StrategyFor elige la estrategia por tpAmb. Solo homologación admite placeholder.
func StrategyFor(environment string, supplied, test CertificateSource, log zerolog.Logger) CertificateStrategy {
	if environment == pkgnfe.EnvironmentHomologation {
		return HomologationStrategy{Source: supplied, TestSource: test, Log: log}
	}
	return ProductionStrategy{Source: supplied}
}

// ── Parseo ────────────────────────────────────────────────────────────────────

// ParseCertificate decodifica PKCS#12 (.p12/.pfx) o PEM (cert + llave).
// El tipo se infiere por la extensión y, si no es concluyente, por el contenido.
func ParseCertificate(src CertificateSource) (*Certificate, error) {
	if src.Empty() {
		return nil, fmt.Errorf("sefaz: certificado vacío")
	}
	var (
		tlsCert tls.Certificate
		err     error
	)
	if isPEM(src) {
		tlsCert, err = tls.X509KeyPair(src.Data, src.Data)
		if err != nil {
			return nil, fmt.Errorf("sefaz: cargar PEM: %w", err)
		}
	} else {
		priv, leaf, err := pkcs12.Decode(src.Data, src.Password)
		if err != nil {
			return nil, fmt.Errorf("sefaz: decodificar p12: %w", err)
		}
		tlsCert = tls.Certificate{Certificate: [][]byte{leaf.Raw}, PrivateKey: priv, Leaf: leaf}
	}

	leaf := tlsCert.Leaf
	if leaf == nil {
		leaf, err = x509.ParseCertificate(tlsCert.Certificate[0])
		if err != nil {
			return nil, fmt.Errorf("sefaz: parsear certificado: %w", err)
		}
		tlsCert.Leaf = leaf
	}
	return &Certificate{
		TLS:      tlsCert,
		Subject:  leaf.Subject.CommonName,
		NotAfter: leaf.NotAfter,
	}, nil
}

func isPEM(src CertificateSource) bool {
	switch strings.ToLower(filepath.Ext(src.Filename)) {
	case ".p12", ".pfx":
		return false
	case ".pem", ".crt", ".cer", ".key":
		return true
	}
	return bytes.Contains(src.Data, []byte("-----BEGIN"))
}

// PlaceholderCertificate genera una identidad autofirmada de corta vida.
func PlaceholderCertificate() (*Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("sefaz: generar llave placeholder: %w", err)
	}
	now := time.Now()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(now.UnixNano()),
		Subject:      pkix.Name{CommonName: placeholderCN, Country: []string{"BR"}},
		NotBefore:    now.Add(-time.Minute),
		NotAfter:     now.Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, fmt.Errorf("sefaz: generar certificado placeholder: %w", err)
	}
	leaf, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("sefaz: parsear certificado placeholder: %w", err)
	}
	return &Certificate{
		TLS:         tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf},
		Subject:     placeholderCN,
		NotAfter:    leaf.NotAfter,
		Placeholder: true,
	}, nil
}
