package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/repository"
)

var _ repository.OrderRepository = (*OrderRepo)(nil)

// OrderRepo lectura de pedidos y sus líneas.
type OrderRepo struct {
	q Querier
}

// NewOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewOrderRepository(q Querier) *OrderRepo {
	return &OrderRepo{q: q}
}

// GetByID obtiene la cabecera del pedido y sus líneas en orden de posición.
func (r *OrderRepo) GetByID(ctx context.Context, id string) (*entity.Order, error) {
	query := `
		SELECT id, company_id, public_id, customer_id, COALESCE(payment_method, ''),
		       installments, COALESCE(notes, ''), created_at
		FROM orders WHERE id = $1`
	var o entity.Order
	err := r.q.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.CompanyID, &o.PublicID, &o.CustomerID, &o.PaymentMethod,
		&o.Installments, &o.Notes, &o.CreatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	items, err := r.items(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

func (r *OrderRepo) items(ctx context.Context, orderID string) ([]entity.OrderItem, error) {
	query := `
		SELECT product_id, quantity, unit_price_cents, total_cents, discount_cents,
		       freight_cents, insurance_cents, other_cents
		FROM order_items WHERE order_id = $1 ORDER BY position`
	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	defer rows.Close()
	var list []entity.OrderItem
	for rows.Next() {
		var it entity.OrderItem
		if err := rows.Scan(
			&it.ProductID, &it.Quantity, &it.UnitPriceCents, &it.TotalCents, &it.DiscountCents,
			&it.FreightCents, &it.InsuranceCents, &it.OtherCents,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		list = append(list, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return list, nil
}
