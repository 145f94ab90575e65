package repository

import (
	"context"

	"github.com/jhoicas/nfe-api/internal/domain/entity"
)

// CustomerRepository puerto de lectura de clientes (destinatarios).
// GetByID devuelve (nil, nil) si no existe.
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
}
