package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order pedido de venta. Los montos están en centavos (enteros).
type Order struct {
	ID            string
	CompanyID     string
	PublicID      string // identificador visible (ej. "PED-000123"); origen del nNF
	CustomerID    string
	PaymentMethod string // tPag; vacío = 99 (outros)
	Installments  bool   // a prazo
	Items         []OrderItem
	Notes         string // infCpl
	CreatedAt     time.Time
}

// OrderItem línea del pedido.
type OrderItem struct {
	ProductID      string
	Quantity       decimal.Decimal
	UnitPriceCents int64
	TotalCents     int64 // 0 = Quantity * UnitPrice
	DiscountCents  int64
	FreightCents   int64
	InsuranceCents int64
	OtherCents     int64
}
