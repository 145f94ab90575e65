package repository

import (
	"context"

	"github.com/jhoicas/nfe-api/internal/domain/entity"
)

// ProductRepository puerto de lectura de productos.
type ProductRepository interface {
	// GetByIDs devuelve los productos encontrados indexados por ID; los ausentes no figuran.
	GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error)
}
