package boltstore

import (
	"context"
	"encoding/json"
	"sort"

	bolt "github.com/boltdb/bolt"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/repository"
)

var (
	_ repository.CompanyRepository  = (*CompanyRepo)(nil)
	_ repository.CustomerRepository = (*CustomerRepo)(nil)
	_ repository.ProductRepository  = (*ProductRepo)(nil)
	_ repository.OrderRepository    = (*OrderRepo)(nil)
	_ repository.EmissionRepository = (*EmissionRepo)(nil)
)

// ── Datos maestros (solo lectura) ─────────────────────────────────────────────

// CompanyRepo emisores guardados en el bucket companies.
type CompanyRepo struct{ s *Store }

// Companies devuelve el repositorio de emisores.
func (s *Store) Companies() *CompanyRepo { return &CompanyRepo{s: s} }

// GetByID devuelve (nil, nil) si no existe.
func (r *CompanyRepo) GetByID(_ context.Context, id string) (*entity.Company, error) {
	var c entity.Company
	found, err := r.s.get(bucketCompanies, id, &c)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

// CustomerRepo destinatarios guardados en el bucket customers.
type CustomerRepo struct{ s *Store }

// Customers devuelve el repositorio de clientes.
func (s *Store) Customers() *CustomerRepo { return &CustomerRepo{s: s} }

// GetByID devuelve (nil, nil) si no existe.
func (r *CustomerRepo) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	var c entity.Customer
	found, err := r.s.get(bucketCustomers, id, &c)
	if err != nil || !found {
		return nil, err
	}
	return &c, nil
}

// ProductRepo productos guardados en el bucket products.
type ProductRepo struct{ s *Store }

// Products devuelve el repositorio de productos.
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

// GetByIDs devuelve los productos encontrados; los ausentes no figuran.
func (r *ProductRepo) GetByIDs(_ context.Context, ids []string) (map[string]*entity.Product, error) {
	out := make(map[string]*entity.Product, len(ids))
	for _, id := range ids {
		var p entity.Product
		found, err := r.s.get(bucketProducts, id, &p)
		if err != nil {
			return nil, err
		}
		if found {
			out[id] = &p
		}
	}
	return out, nil
}

// OrderRepo pedidos guardados en el bucket orders (con sus líneas embebidas).
type OrderRepo struct{ s *Store }

// Orders devuelve el repositorio de pedidos.
func (s *Store) Orders() *OrderRepo { return &OrderRepo{s: s} }

// GetByID devuelve (nil, nil) si no existe.
func (r *OrderRepo) GetByID(_ context.Context, id string) (*entity.Order, error) {
	var o entity.Order
	found, err := r.s.get(bucketOrders, id, &o)
	if err != nil || !found {
		return nil, err
	}
	return &o, nil
}

// ── Emisiones ─────────────────────────────────────────────────────────────────

// EmissionRepo emisiones guardadas en el bucket emissions.
type EmissionRepo struct{ s *Store }

// Emissions devuelve el repositorio de emisiones.
func (s *Store) Emissions() *EmissionRepo { return &EmissionRepo{s: s} }

// Create persiste la emisión; ErrDuplicate si el ID ya existe.
func (r *EmissionRepo) Create(_ context.Context, e *entity.Emission) error {
	return r.s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(bucketEmissions)).Get([]byte(e.ID)) != nil {
			return domain.ErrDuplicate
		}
		return put(tx, bucketEmissions, e.ID, e)
	})
}

// Update reemplaza la emisión; ErrNotFound si no existe.
func (r *EmissionRepo) Update(_ context.Context, e *entity.Emission) error {
	return r.s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket([]byte(bucketEmissions)).Get([]byte(e.ID)) == nil {
			return domain.ErrNotFound
		}
		return put(tx, bucketEmissions, e.ID, e)
	})
}

// GetByID devuelve (nil, nil) si no existe.
func (r *EmissionRepo) GetByID(_ context.Context, id string) (*entity.Emission, error) {
	var e entity.Emission
	found, err := r.s.get(bucketEmissions, id, &e)
	if err != nil || !found {
		return nil, err
	}
	return &e, nil
}

// GetByAccessKey devuelve la emisión más reciente con esa clave.
func (r *EmissionRepo) GetByAccessKey(_ context.Context, accessKey string) (*entity.Emission, error) {
	list, err := r.filter(func(e *entity.Emission) bool { return e.AccessKey == accessKey })
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

// ListByOrder lista las emisiones del pedido, la más reciente primero.
func (r *EmissionRepo) ListByOrder(_ context.Context, orderID string) ([]*entity.Emission, error) {
	return r.filter(func(e *entity.Emission) bool { return e.OrderID == orderID })
}

// filter recorre el bucket completo; el volumen esperado es bajo.
func (r *EmissionRepo) filter(match func(*entity.Emission) bool) ([]*entity.Emission, error) {
	var list []*entity.Emission
	err := r.s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketEmissions)).ForEach(func(_, v []byte) error {
			var e entity.Emission
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if match(&e) {
				list = append(list, &e)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}
