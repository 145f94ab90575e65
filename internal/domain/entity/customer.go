package entity

import "time"

// Address dirección postal brasileña.
type Address struct {
	Street           string
	Number           string
	Complement       string
	District         string // bairro
	MunicipalityCode string // código IBGE del municipio (7 dígitos)
	MunicipalityName string
	UF               string // sigla: SP, RJ...
	ZipCode          string // CEP (8 dígitos)
	Phone            string
}

// Customer destinatario de la NF-e.
type Customer struct {
	ID                string
	CompanyID         string
	Name              string
	Document          string // CPF (11) o CNPJ (14), solo dígitos
	StateRegistration string // IE; vacío = no contribuyente
	Email             string
	Phone             string
	Address           Address
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
