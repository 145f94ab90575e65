package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/repository"
)

var _ repository.EmissionRepository = (*EmissionRepo)(nil)

// EmissionRepo persistencia de emisiones de NF-e (usable con pool o tx).
type EmissionRepo struct {
	q Querier
}

// NewEmissionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEmissionRepository(q Querier) *EmissionRepo {
	return &EmissionRepo{q: q}
}

const emissionColumns = `
	id, company_id, order_id, access_key, series, number, environment, status, document_value,
	xml_signed, xml_authorized, receipt, protocol, status_code, status_reason, qr_data,
	validation_errors, warnings, created_at, updated_at`

// Create persiste una nueva emisión.
func (r *EmissionRepo) Create(ctx context.Context, e *entity.Emission) error {
	query := `
		INSERT INTO nfe_emissions (` + emissionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err := r.q.Exec(ctx, query,
		e.ID, e.CompanyID, e.OrderID, e.AccessKey, e.Series, e.Number, e.Environment, e.Status, e.DocumentValue,
		nullIfEmpty(e.XMLSigned), nullIfEmpty(e.XMLAuthorized), nullIfEmpty(e.Receipt), nullIfEmpty(e.Protocol),
		nullIfEmpty(e.StatusCode), nullIfEmpty(e.StatusReason), nullIfEmpty(e.QRData),
		textArray(e.ValidationErrors), textArray(e.Warnings), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert emission: %w", err)
	}
	return nil
}

// Update actualiza estado, XML y respuesta de la SEFAZ.
func (r *EmissionRepo) Update(ctx context.Context, e *entity.Emission) error {
	query := `
		UPDATE nfe_emissions
		SET status            = $2,
		    xml_signed        = $3,
		    xml_authorized    = $4,
		    receipt           = $5,
		    protocol          = $6,
		    status_code       = $7,
		    status_reason     = $8,
		    validation_errors = $9,
		    warnings          = $10,
		    updated_at        = $11
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		e.ID, e.Status,
		nullIfEmpty(e.XMLSigned), nullIfEmpty(e.XMLAuthorized), nullIfEmpty(e.Receipt), nullIfEmpty(e.Protocol),
		nullIfEmpty(e.StatusCode), nullIfEmpty(e.StatusReason),
		textArray(e.ValidationErrors), textArray(e.Warnings), e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update emission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID obtiene una emisión por ID.
func (r *EmissionRepo) GetByID(ctx context.Context, id string) (*entity.Emission, error) {
	return r.getOne(ctx, `SELECT `+emissionColumns+` FROM nfe_emissions WHERE id = $1`, id)
}

// GetByAccessKey obtiene la emisión más reciente con esa clave de acceso.
func (r *EmissionRepo) GetByAccessKey(ctx context.Context, accessKey string) (*entity.Emission, error) {
	return r.getOne(ctx, `SELECT `+emissionColumns+` FROM nfe_emissions WHERE access_key = $1 ORDER BY created_at DESC LIMIT 1`, accessKey)
}

// ListByOrder lista las emisiones del pedido, la más reciente primero.
func (r *EmissionRepo) ListByOrder(ctx context.Context, orderID string) ([]*entity.Emission, error) {
	query := `SELECT ` + emissionColumns + ` FROM nfe_emissions WHERE order_id = $1 ORDER BY created_at DESC`
	rows, err := r.q.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("list emissions: %w", err)
	}
	defer rows.Close()
	var list []*entity.Emission
	for rows.Next() {
		e, err := scanEmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan emission: %w", err)
		}
		list = append(list, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate emissions: %w", err)
	}
	return list, nil
}

func (r *EmissionRepo) getOne(ctx context.Context, query string, arg string) (*entity.Emission, error) {
	e, err := scanEmission(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get emission: %w", err)
	}
	return e, nil
}

// rowScanner cubre pgx.Row y pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmission(row rowScanner) (*entity.Emission, error) {
	var e entity.Emission
	var xmlSigned, xmlAuthorized, receipt, protocol *string
	var statusCode, statusReason, qrData *string
	err := row.Scan(
		&e.ID, &e.CompanyID, &e.OrderID, &e.AccessKey, &e.Series, &e.Number, &e.Environment, &e.Status, &e.DocumentValue,
		&xmlSigned, &xmlAuthorized, &receipt, &protocol, &statusCode, &statusReason, &qrData,
		&e.ValidationErrors, &e.Warnings, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.XMLSigned = derefString(xmlSigned)
	e.XMLAuthorized = derefString(xmlAuthorized)
	e.Receipt = derefString(receipt)
	e.Protocol = derefString(protocol)
	e.StatusCode = derefString(statusCode)
	e.StatusReason = derefString(statusReason)
	e.QRData = derefString(qrData)
	return &e, nil
}

// textArray evita NULL en columnas text[] NOT NULL.
func textArray(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
