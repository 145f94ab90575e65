package repository

import (
	"context"

	"github.com/jhoicas/nfe-api/internal/domain/entity"
)

// CompanyRepository puerto de lectura del emisor y su configuración fiscal.
// GetByID devuelve (nil, nil) si no existe.
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Company, error)
}
