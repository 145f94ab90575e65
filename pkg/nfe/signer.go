package nfe

import "crypto/tls"

// Signer firma el XML de la NF-e (elemento infNFe) con el certificado del emisor.
// La aplicación solo conoce esta interfaz; el cálculo de la firma XMLDSig queda
// en la implementación inyectada.
type Signer interface {
	// Sign recibe el XML canónico sin firma y devuelve el XML con ds:Signature.
	Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error)
}
