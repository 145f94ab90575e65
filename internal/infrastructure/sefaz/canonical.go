package sefaz

import (
	"bytes"
	"crypto/tls"
	"encoding/xml"
	"fmt"

	"github.com/ucarion/c14n"

	pkgnfe "github.com/jhoicas/nfe-api/pkg/nfe"
)

// Canonicalize aplica C14N inclusivo al XML (sin comentarios).
func Canonicalize(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

// CanonicalSigner implementa pkg/nfe.Signer sin firma XMLDSig: solo canonicaliza.
// Sirve para homologación y pruebas; en producción se inyecta un firmante real.
type CanonicalSigner struct{}

var _ pkgnfe.Signer = CanonicalSigner{}

// Sign devuelve la forma canónica del documento. El certificado no se usa.
func (CanonicalSigner) Sign(xmlBytes []byte, _ tls.Certificate) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, fmt.Errorf("sefaz: XML vacío")
	}
	out, err := Canonicalize(xmlBytes)
	if err != nil {
		return nil, fmt.Errorf("sefaz: canonicalizar: %w", err)
	}
	return out, nil
}
