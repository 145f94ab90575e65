package nfe

import (
	"fmt"
	"strconv"
	"strings"

	pkgnfe "github.com/jhoicas/nfe-api/pkg/nfe"
)

// AccessKeyLength longitud de la chave de acesso incluyendo el dígito verificador.
const AccessKeyLength = 44

// AccessKeyBase concatena los componentes de la clave, sin el dígito verificador:
//
//	cUF(2) + AAMM(4) + CNPJ(14) + mod(2) + serie(3) + nNF(9) + tpEmis(1) + cNF(8)
//
// Devuelve ErrMalformedDocument si algún componente no tiene el ancho fijo.
func AccessKeyBase(doc *Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("%w: documento nulo", ErrMalformedDocument)
	}
	id := doc.Identification
	if id.IssuedAt.IsZero() {
		return "", fmt.Errorf("%w: dhEmi vacío", ErrMalformedDocument)
	}
	parts := []struct {
		name  string
		value string
		width int
	}{
		{"cUF", id.StateCode, 2},
		{"AAMM", id.IssuedAt.Format("0601"), 4},
		{"CNPJ", pkgnfe.OnlyDigits(doc.Issuer.CNPJ), 14},
		{"mod", id.Model, 2},
		{"serie", id.Series, 3},
		{"nNF", id.Number, 9},
		{"tpEmis", id.EmissionType, 1},
		{"cNF", id.RandomCode, 8},
	}
	var sb strings.Builder
	for _, p := range parts {
		if !pkgnfe.IsDigits(p.value, p.width) {
			return "", fmt.Errorf("%w: %s=%q debe tener %d dígitos", ErrMalformedDocument, p.name, p.value, p.width)
		}
		sb.WriteString(p.value)
	}
	return sb.String(), nil
}

// CheckDigit dígito verificador módulo 11 de la clave.
// Pesos 2..9 asignados desde el último dígito hacia la izquierda, reiniciando en 2.
// resto < 2 → 0; en otro caso 11 − resto.
func CheckDigit(base string) int {
	sum, weight := 0, 2
	for i := len(base) - 1; i >= 0; i-- {
		sum += int(base[i]-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}
	r := sum % 11
	if r < 2 {
		return 0
	}
	return 11 - r
}

// AccessKey devuelve la clave completa: base + dígito verificador como último carácter.
func AccessKey(doc *Document) (string, error) {
	base, err := AccessKeyBase(doc)
	if err != nil {
		return "", err
	}
	return base + strconv.Itoa(CheckDigit(base)), nil
}

// DocumentID valor del atributo Id de infNFe.
func DocumentID(accessKey string) string {
	return "NFe" + accessKey
}

// QRCodeURL URL de consulta pública de la NF-e para el QR del DANFE.
func QRCodeURL(accessKey string) string {
	return pkgnfe.PortalQueryURL + "&nfe=" + accessKey
}

// ValidAccessKey comprueba longitud, dígitos y dígito verificador de una clave recibida.
func ValidAccessKey(key string) bool {
	if !pkgnfe.IsDigits(key, AccessKeyLength) {
		return false
	}
	base := key[:AccessKeyLength-1]
	return int(key[AccessKeyLength-1]-'0') == CheckDigit(base)
}
