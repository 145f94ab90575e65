package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/nfe-api/pkg/money"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAdd_RedondeaADosDecimales(t *testing.T) {
	got := money.Add(d("0.10"), d("0.20"), d("0.005"))
	assert.Equal(t, "0.31", got.StringFixed(2))
}

func TestSubtract_VariosValores(t *testing.T) {
	got := money.Subtract(d("100.00"), d("10.25"), d("0.75"))
	assert.True(t, got.Equal(d("89.00")), "got %s", got)
}

func TestMultiply_HalfUp(t *testing.T) {
	cases := []struct {
		a, b, want string
	}{
		{"2500.00", "19.0", "47500.00"},
		{"10.33", "19.5", "201.44"}, // 201.435
		{"0.01", "0.5", "0.01"},     // 0.005
		{"3", "0.333", "1.00"},      // 0.999
	}
	for _, tc := range cases {
		got := money.Multiply(d(tc.a), d(tc.b))
		assert.Equal(t, tc.want, got.StringFixed(2), "%s * %s", tc.a, tc.b)
	}
}

func TestDivide_Y_FromCents(t *testing.T) {
	assert.Equal(t, "250000.00", money.FromCents(25_000_000).StringFixed(2))
	assert.Equal(t, "0.05", money.FromCents(5).StringFixed(2))
	assert.Equal(t, "3.33", money.Divide(d("10"), d("3")).StringFixed(2))
	assert.Equal(t, "0.67", money.Divide(d("2"), d("3")).StringFixed(2))
}

func TestDivide_PorCeroPanic(t *testing.T) {
	assert.Panics(t, func() { money.Divide(d("1"), decimal.Zero) })
}

func TestPercent_EscenarioICMS(t *testing.T) {
	// base 2500.00 con alícuota 19.0% → 475.00
	got := money.Percent(d("2500.00"), d("19.0"))
	assert.True(t, got.Equal(d("475.00")), "got %s", got)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "12.00", money.Format(d("12")))
	assert.Equal(t, "12.35", money.Format(d("12.345")))
	assert.Equal(t, "0.00", money.Format(decimal.Zero))
}
