// Package boltstore persistencia embebida sobre BoltDB para instalaciones sin PostgreSQL.
//
// Un único archivo guarda emisores, clientes, productos, pedidos y emisiones,
// cada uno en su bucket y serializado en JSON. Los datos maestros se cargan
// desde un archivo YAML de fixtures (ver LoadFixtures).
package boltstore

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "github.com/boltdb/bolt"
)

const (
	bucketCompanies = "companies"
	bucketCustomers = "customers"
	bucketProducts  = "products"
	bucketOrders    = "orders"
	bucketEmissions = "emissions"
)

var buckets = []string{bucketCompanies, bucketCustomers, bucketProducts, bucketOrders, bucketEmissions}

// Store base de datos BoltDB con un bucket por entidad.
type Store struct {
	db *bolt.DB
}

// Open abre (o crea) el archivo y asegura que existan los buckets.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("abrir bolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("crear buckets: %w", err)
	}
	return &Store{db: db}, nil
}

// Close libera el lock del archivo.
func (s *Store) Close() error {
	return s.db.Close()
}

// get decodifica la clave id del bucket en out. Devuelve false si no existe.
func (s *Store) get(bucket, id string, out any) (bool, error) {
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucket)).Get([]byte(id))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, out)
	})
	if err != nil {
		return false, fmt.Errorf("leer %s/%s: %w", bucket, id, err)
	}
	return found, nil
}

func put(tx *bolt.Tx, bucket, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("serializar %s/%s: %w", bucket, id, err)
	}
	return tx.Bucket([]byte(bucket)).Put([]byte(id), data)
}
