package entity

import "time"

// Product producto vendido en el pedido, con su clasificación fiscal.
type Product struct {
	ID        string
	CompanyID string
	SKU       string // cProd
	Name      string // xProd
	EAN       string // GTIN; vacío = "SEM GTIN"
	NCM       string // 8 dígitos; vacío = NCM por defecto del emisor
	CFOP      string // vacío = CFOP por defecto
	Unit      string // uCom / uTrib (UN, KG, CX...)
	Origin    string // orig del ICMS (0 = nacional)
	CreatedAt time.Time
	UpdatedAt time.Time
}
