package nfe

import (
	"fmt"
	"unicode"
)

// pesos del primer y segundo dígito verificador del CNPJ (Receita Federal).
var (
	cnpjWeights1 = [12]int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = [13]int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

// ValidateCNPJ valida longitud (14) y los dos dígitos verificadores módulo 11.
// Acepta el CNPJ con o sin máscara ("11.222.333/0001-81" o "11222333000181").
func ValidateCNPJ(cnpj string) error {
	digits := OnlyDigits(cnpj)
	if len(digits) != 14 {
		return fmt.Errorf("nfe: CNPJ debe tener 14 dígitos, se encontraron %d", len(digits))
	}
	if repeated(digits) {
		return fmt.Errorf("nfe: CNPJ %s inválido (dígitos repetidos)", digits)
	}
	dv1 := mod11Digit(digits[:12], cnpjWeights1[:])
	dv2 := mod11Digit(digits[:12]+string(rune('0'+dv1)), cnpjWeights2[:])
	if int(digits[12]-'0') != dv1 || int(digits[13]-'0') != dv2 {
		return fmt.Errorf("nfe: dígitos verificadores del CNPJ inválidos: esperado %d%d, recibido %s", dv1, dv2, digits[12:])
	}
	return nil
}

// ValidateCPF valida longitud (11) y los dos dígitos verificadores módulo 11.
func ValidateCPF(cpf string) error {
	digits := OnlyDigits(cpf)
	if len(digits) != 11 {
		return fmt.Errorf("nfe: CPF debe tener 11 dígitos, se encontraron %d", len(digits))
	}
	if repeated(digits) {
		return fmt.Errorf("nfe: CPF %s inválido (dígitos repetidos)", digits)
	}
	dv1 := mod11Digit(digits[:9], descendingWeights(10, 9))
	dv2 := mod11Digit(digits[:9]+string(rune('0'+dv1)), descendingWeights(11, 10))
	if int(digits[9]-'0') != dv1 || int(digits[10]-'0') != dv2 {
		return fmt.Errorf("nfe: dígitos verificadores del CPF inválidos: esperado %d%d, recibido %s", dv1, dv2, digits[9:])
	}
	return nil
}

// OnlyDigits elimina todo lo que no sea dígito (máscaras, espacios, guiones).
func OnlyDigits(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsDigit(r) {
			out = append(out, r)
		}
	}
	return string(out)
}

// IsDigits indica si s tiene exactamente n caracteres y todos son dígitos ASCII.
func IsDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func mod11Digit(digits string, weights []int) int {
	var sum int
	for i := 0; i < len(digits); i++ {
		sum += int(digits[i]-'0') * weights[i]
	}
	r := sum % 11
	if r < 2 {
		return 0
	}
	return 11 - r
}

func descendingWeights(from, n int) []int {
	w := make([]int, n)
	for i := range w {
		w[i] = from - i
	}
	return w
}

func repeated(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return true
}
