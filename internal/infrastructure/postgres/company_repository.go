package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/repository"
)

// Asegura que CompanyRepo implementa repository.CompanyRepository.
var _ repository.CompanyRepository = (*CompanyRepo)(nil)

// CompanyRepo implementación del puerto CompanyRepository sobre PostgreSQL.
type CompanyRepo struct {
	q Querier
}

// NewCompanyRepository construye el adaptador de persistencia para emisores.
func NewCompanyRepository(q Querier) *CompanyRepo {
	return &CompanyRepo{q: q}
}

// GetByID obtiene el emisor con su dirección y parámetros de emisión.
func (r *CompanyRepo) GetByID(ctx context.Context, id string) (*entity.Company, error) {
	query := `
		SELECT id, cnpj, name, COALESCE(trade_name, ''), state_registration, tax_regime, state_code,
		       street, street_number, COALESCE(complement, ''), district, municipality_code, municipality_name,
		       uf, zip_code, COALESCE(phone, ''), COALESCE(email, ''),
		       series, operation_nature, custom_icms_rate, pis_rate, cofins_rate,
		       COALESCE(default_cfop, ''), COALESCE(default_ncm, ''), COALESCE(default_freight_mode, ''),
		       created_at, updated_at
		FROM companies WHERE id = $1`
	var c entity.Company
	err := r.q.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.CNPJ, &c.Name, &c.TradeName, &c.StateRegistration, &c.TaxRegime, &c.StateCode,
		&c.Address.Street, &c.Address.Number, &c.Address.Complement, &c.Address.District,
		&c.Address.MunicipalityCode, &c.Address.MunicipalityName,
		&c.Address.UF, &c.Address.ZipCode, &c.Phone, &c.Email,
		&c.Series, &c.OperationNature, &c.CustomICMSRate, &c.PISRate, &c.COFINSRate,
		&c.DefaultCFOP, &c.DefaultNCM, &c.DefaultFreightMode,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	c.Address.Phone = c.Phone
	return &c, nil
}
