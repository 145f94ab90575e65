package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Company emisor de NF-e (emitente) y su configuración fiscal.
type Company struct {
	ID                string
	CNPJ              string // 14 dígitos
	Name              string // razão social
	TradeName         string // nome fantasia
	StateRegistration string // inscrição estadual (IE)
	TaxRegime         string // CRT: 1 Simples Nacional, 3 Regime Normal
	StateCode         string // código IBGE de la UF (cUF)
	Address           Address
	Phone             string
	Email             string

	// Parámetros de emisión
	Series             string              // serie de la NF-e (3 dígitos)
	OperationNature    string              // natOp por defecto
	CustomICMSRate     decimal.NullDecimal // alícuota propia si la UF no está en la tabla
	PISRate            decimal.NullDecimal // vacío = alícuota por defecto
	COFINSRate         decimal.NullDecimal // vacío = alícuota por defecto
	DefaultCFOP        string
	DefaultNCM         string
	DefaultFreightMode string // modFrete

	CreatedAt time.Time
	UpdatedAt time.Time
}
