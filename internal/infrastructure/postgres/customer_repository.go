package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/repository"
)

var _ repository.CustomerRepository = (*CustomerRepo)(nil)

// CustomerRepo implementación de CustomerRepository (usable con pool o tx).
type CustomerRepo struct {
	q Querier
}

// NewCustomerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomerRepository(q Querier) *CustomerRepo {
	return &CustomerRepo{q: q}
}

// GetByID obtiene un destinatario por ID.
func (r *CustomerRepo) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	query := `
		SELECT id, company_id, name, document, COALESCE(state_registration, ''),
		       COALESCE(email, ''), COALESCE(phone, ''),
		       street, street_number, COALESCE(complement, ''), district,
		       municipality_code, municipality_name, uf, zip_code,
		       created_at, updated_at
		FROM customers WHERE id = $1`
	var c entity.Customer
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.CompanyID, &c.Name, &c.Document, &c.StateRegistration,
		&c.Email, &c.Phone,
		&c.Address.Street, &c.Address.Number, &c.Address.Complement, &c.Address.District,
		&c.Address.MunicipalityCode, &c.Address.MunicipalityName, &c.Address.UF, &c.Address.ZipCode,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}
	c.Address.Phone = c.Phone
	return &c, nil
}
