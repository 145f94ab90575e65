package repository

import (
	"context"

	"github.com/jhoicas/nfe-api/internal/domain/entity"
)

// OrderRepository puerto de lectura de pedidos con sus líneas.
// GetByID devuelve (nil, nil) si no existe.
type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Order, error)
}
