package boltstore

import (
	"fmt"
	"os"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/jhoicas/nfe-api/internal/domain/entity"
)

// Fixtures datos maestros en YAML. Decimales y alícuotas van como texto ("18", "1.65").
type Fixtures struct {
	Companies []companyFixture  `yaml:"companies"`
	Customers []customerFixture `yaml:"customers"`
	Products  []productFixture  `yaml:"products"`
	Orders    []orderFixture    `yaml:"orders"`
}

type addressFixture struct {
	Street           string `yaml:"street"`
	Number           string `yaml:"number"`
	Complement       string `yaml:"complement"`
	District         string `yaml:"district"`
	MunicipalityCode string `yaml:"municipality_code"`
	MunicipalityName string `yaml:"municipality_name"`
	UF               string `yaml:"uf"`
	ZipCode          string `yaml:"zip_code"`
	Phone            string `yaml:"phone"`
}

type companyFixture struct {
	ID                 string         `yaml:"id"`
	CNPJ               string         `yaml:"cnpj"`
	Name               string         `yaml:"name"`
	TradeName          string         `yaml:"trade_name"`
	StateRegistration  string         `yaml:"state_registration"`
	TaxRegime          string         `yaml:"tax_regime"`
	StateCode          string         `yaml:"state_code"`
	Address            addressFixture `yaml:"address"`
	Email              string         `yaml:"email"`
	Series             string         `yaml:"series"`
	OperationNature    string         `yaml:"operation_nature"`
	CustomICMSRate     string         `yaml:"custom_icms_rate"`
	PISRate            string         `yaml:"pis_rate"`
	COFINSRate         string         `yaml:"cofins_rate"`
	DefaultCFOP        string         `yaml:"default_cfop"`
	DefaultNCM         string         `yaml:"default_ncm"`
	DefaultFreightMode string         `yaml:"default_freight_mode"`
}

type customerFixture struct {
	ID                string         `yaml:"id"`
	CompanyID         string         `yaml:"company_id"`
	Name              string         `yaml:"name"`
	Document          string         `yaml:"document"`
	StateRegistration string         `yaml:"state_registration"`
	Email             string         `yaml:"email"`
	Address           addressFixture `yaml:"address"`
}

type productFixture struct {
	ID        string `yaml:"id"`
	CompanyID string `yaml:"company_id"`
	SKU       string `yaml:"sku"`
	Name      string `yaml:"name"`
	EAN       string `yaml:"ean"`
	NCM       string `yaml:"ncm"`
	CFOP      string `yaml:"cfop"`
	Unit      string `yaml:"unit"`
	Origin    string `yaml:"origin"`
}

type orderFixture struct {
	ID            string             `yaml:"id"`
	CompanyID     string             `yaml:"company_id"`
	PublicID      string             `yaml:"public_id"`
	CustomerID    string             `yaml:"customer_id"`
	PaymentMethod string             `yaml:"payment_method"`
	Installments  bool               `yaml:"installments"`
	Notes         string             `yaml:"notes"`
	Items         []orderItemFixture `yaml:"items"`
}

type orderItemFixture struct {
	ProductID      string `yaml:"product_id"`
	Quantity       string `yaml:"quantity"`
	UnitPriceCents int64  `yaml:"unit_price_cents"`
	TotalCents     int64  `yaml:"total_cents"`
	DiscountCents  int64  `yaml:"discount_cents"`
	FreightCents   int64  `yaml:"freight_cents"`
	InsuranceCents int64  `yaml:"insurance_cents"`
	OtherCents     int64  `yaml:"other_cents"`
}

// ParseFixtures decodifica el YAML.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("fixtures: %w", err)
	}
	return &f, nil
}

// LoadFixturesFile lee el archivo y carga su contenido en el store.
func (s *Store) LoadFixturesFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("leer fixtures %s: %w", path, err)
	}
	f, err := ParseFixtures(data)
	if err != nil {
		return err
	}
	return s.LoadFixtures(f, time.Now())
}

// LoadFixtures guarda los datos maestros; una clave existente se sobrescribe.
func (s *Store) LoadFixtures(f *Fixtures, now time.Time) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, c := range f.Companies {
			company, err := c.toEntity(now)
			if err != nil {
				return err
			}
			if err := put(tx, bucketCompanies, c.ID, company); err != nil {
				return err
			}
		}
		for _, c := range f.Customers {
			customer := &entity.Customer{
				ID:                c.ID,
				CompanyID:         c.CompanyID,
				Name:              c.Name,
				Document:          c.Document,
				StateRegistration: c.StateRegistration,
				Email:             c.Email,
				Phone:             c.Address.Phone,
				Address:           c.Address.toEntity(),
				CreatedAt:         now,
				UpdatedAt:         now,
			}
			if err := put(tx, bucketCustomers, c.ID, customer); err != nil {
				return err
			}
		}
		for _, p := range f.Products {
			product := &entity.Product{
				ID:        p.ID,
				CompanyID: p.CompanyID,
				SKU:       p.SKU,
				Name:      p.Name,
				EAN:       p.EAN,
				NCM:       p.NCM,
				CFOP:      p.CFOP,
				Unit:      p.Unit,
				Origin:    p.Origin,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := put(tx, bucketProducts, p.ID, product); err != nil {
				return err
			}
		}
		for _, o := range f.Orders {
			order, err := o.toEntity(now)
			if err != nil {
				return err
			}
			if err := put(tx, bucketOrders, o.ID, order); err != nil {
				return err
			}
		}
		return nil
	})
}

func (a addressFixture) toEntity() entity.Address {
	return entity.Address{
		Street:           a.Street,
		Number:           a.Number,
		Complement:       a.Complement,
		District:         a.District,
		MunicipalityCode: a.MunicipalityCode,
		MunicipalityName: a.MunicipalityName,
		UF:               a.UF,
		ZipCode:          a.ZipCode,
		Phone:            a.Phone,
	}
}

func (c companyFixture) toEntity(now time.Time) (*entity.Company, error) {
	icms, err := optionalRate(c.CustomICMSRate)
	if err != nil {
		return nil, fmt.Errorf("empresa %s: custom_icms_rate: %w", c.ID, err)
	}
	pis, err := optionalRate(c.PISRate)
	if err != nil {
		return nil, fmt.Errorf("empresa %s: pis_rate: %w", c.ID, err)
	}
	cofins, err := optionalRate(c.COFINSRate)
	if err != nil {
		return nil, fmt.Errorf("empresa %s: cofins_rate: %w", c.ID, err)
	}
	return &entity.Company{
		ID:                 c.ID,
		CNPJ:               c.CNPJ,
		Name:               c.Name,
		TradeName:          c.TradeName,
		StateRegistration:  c.StateRegistration,
		TaxRegime:          c.TaxRegime,
		StateCode:          c.StateCode,
		Address:            c.Address.toEntity(),
		Phone:              c.Address.Phone,
		Email:              c.Email,
		Series:             c.Series,
		OperationNature:    c.OperationNature,
		CustomICMSRate:     icms,
		PISRate:            pis,
		COFINSRate:         cofins,
		DefaultCFOP:        c.DefaultCFOP,
		DefaultNCM:         c.DefaultNCM,
		DefaultFreightMode: c.DefaultFreightMode,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (o orderFixture) toEntity(now time.Time) (*entity.Order, error) {
	items := make([]entity.OrderItem, 0, len(o.Items))
	for i, it := range o.Items {
		qty, err := decimal.NewFromString(it.Quantity)
		if err != nil {
			return nil, fmt.Errorf("pedido %s ítem %d: quantity %q: %w", o.ID, i+1, it.Quantity, err)
		}
		items = append(items, entity.OrderItem{
			ProductID:      it.ProductID,
			Quantity:       qty,
			UnitPriceCents: it.UnitPriceCents,
			TotalCents:     it.TotalCents,
			DiscountCents:  it.DiscountCents,
			FreightCents:   it.FreightCents,
			InsuranceCents: it.InsuranceCents,
			OtherCents:     it.OtherCents,
		})
	}
	return &entity.Order{
		ID:            o.ID,
		CompanyID:     o.CompanyID,
		PublicID:      o.PublicID,
		CustomerID:    o.CustomerID,
		PaymentMethod: o.PaymentMethod,
		Installments:  o.Installments,
		Items:         items,
		Notes:         o.Notes,
		CreatedAt:     now,
	}, nil
}

func optionalRate(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
