package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

// ProductRepo implementación de ProductRepository (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// GetByIDs obtiene en una consulta los productos de las líneas del pedido.
func (r *ProductRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error) {
	out := make(map[string]*entity.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query := `
		SELECT id, company_id, sku, name, COALESCE(ean, ''), COALESCE(ncm, ''), COALESCE(cfop, ''),
		       unit, origin, created_at, updated_at
		FROM products WHERE id = ANY($1)`
	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p entity.Product
		if err := rows.Scan(
			&p.ID, &p.CompanyID, &p.SKU, &p.Name, &p.EAN, &p.NCM, &p.CFOP,
			&p.Unit, &p.Origin, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out[p.ID] = &p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return out, nil
}
