// Package money implementa la aritmética monetaria de punto fijo usada en la NFe.
// Todas las operaciones devuelven el resultado redondeado a 2 decimales (half-up).
package money

import "github.com/shopspring/decimal"

// Scale cantidad de decimales de los valores monetarios (centavos).
const Scale = 2

var hundred = decimal.NewFromInt(100)

// Round redondea a 2 decimales. decimal.Round redondea la mitad alejándose de cero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// Add suma todos los valores.
func Add(values ...decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(v)
	}
	return Round(sum)
}

// Subtract resta de first cada uno de los valores restantes.
func Subtract(first decimal.Decimal, rest ...decimal.Decimal) decimal.Decimal {
	out := first
	for _, v := range rest {
		out = out.Sub(v)
	}
	return Round(out)
}

// Multiply multiplica todos los valores. Sin argumentos devuelve cero.
func Multiply(values ...decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	out := values[0]
	for _, v := range values[1:] {
		out = out.Mul(v)
	}
	return Round(out)
}

// Divide divide dividend por cada divisor en orden.
// Un divisor cero provoca panic (mismo contrato que decimal.Div).
func Divide(dividend decimal.Decimal, divisors ...decimal.Decimal) decimal.Decimal {
	out := dividend
	for _, v := range divisors {
		out = out.Div(v)
	}
	return Round(out)
}

// FromCents convierte un entero en centavos a unidades monetarias: Divide(cents, 100).
func FromCents(cents int64) decimal.Decimal {
	return Divide(decimal.NewFromInt(cents), hundred)
}

// Percent aplica una alícuota porcentual: Divide(Multiply(base, rate), 100).
func Percent(base, rate decimal.Decimal) decimal.Decimal {
	return Divide(Multiply(base, rate), hundred)
}

// Format devuelve el valor con exactamente 2 decimales ("1234.50").
func Format(d decimal.Decimal) string {
	return Round(d).StringFixed(Scale)
}
