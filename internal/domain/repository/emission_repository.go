package repository

import (
	"context"

	"github.com/jhoicas/nfe-api/internal/domain/entity"
)

// EmissionRepository puerto de persistencia de las emisiones de NF-e.
// Los Get devuelven (nil, nil) si no existe.
type EmissionRepository interface {
	Create(ctx context.Context, e *entity.Emission) error
	// Update persiste estado, XML, recibo, protocolo y cStat/xMotivo.
	// Devuelve domain.ErrNotFound si la emisión no existe.
	Update(ctx context.Context, e *entity.Emission) error
	GetByID(ctx context.Context, id string) (*entity.Emission, error)
	GetByAccessKey(ctx context.Context, accessKey string) (*entity.Emission, error)
	ListByOrder(ctx context.Context, orderID string) ([]*entity.Emission, error)
}
