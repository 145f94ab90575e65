package sefaz_test

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/nfe-api/internal/domain/nfe"
)

// Clave del documento de ejemplo (base con DV 2).
const sampleKey = "15240311222333000181550010000012341876543212"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func zero() decimal.NullDecimal { return nfe.Present(decimal.Zero) }

func sampleDocument() *nfe.Document {
	addr := nfe.Address{
		Street: "Av. Paulista", Number: "1000", District: "Bela Vista",
		MunicipalityCode: "3550308", MunicipalityName: "São Paulo", UF: "SP",
		ZipCode: "01310100", CountryCode: "1058", CountryName: "BRASIL",
	}
	return &nfe.Document{
		Identification: nfe.Identification{
			StateCode: "15", RandomCode: "87654321", OperationNature: "Venda de mercadoria",
			Model: "55", Series: "001", Number: "000001234",
			IssuedAt:      time.Date(2024, 3, 10, 9, 0, 0, 0, time.FixedZone("BRT", -3*3600)),
			OperationType: "1", Destination: "2", MunicipalityCode: "1501402",
			PrintType: "1", EmissionType: "1", Environment: "2", Purpose: "1",
			FinalConsumer: "1", Presence: "2", ProcessType: "0", ProcessVersion: "nfe-api 1.0",
		},
		Issuer: nfe.Issuer{
			CNPJ: "11222333000181", Name: "Emitente Teste LTDA", StateRegistration: "123456789",
			TaxRegime: "3", Address: addr,
		},
		Recipient: nfe.Recipient{
			CPF: "52998224725", Name: "Consumidor Teste", IEIndicator: "9", Address: &addr,
		},
		Items: []nfe.LineItem{{
			Index: 1, ProductCode: "SKU-1", Description: "Notebook", NCM: "84713012", CFOP: "6102",
			CommercialUnit: "UN", Quantity: dec("1"), UnitValue: dec("2500.00"), ProductValue: dec("2500.00"),
			TaxUnit: "UN", TaxQuantity: dec("1"), TaxUnitValue: dec("2500.00"),
			Tax: nfe.TaxBlock{
				ICMS: nfe.ICMS00{Origin: "0", CST: "00", BaseMethod: "3",
					Base: dec("2500.00"), Rate: dec("19"), Value: dec("475.00")},
				PIS:    nfe.PIS{CST: "01", Base: dec("2500.00"), Rate: dec("1.65"), Value: dec("41.25")},
				COFINS: nfe.COFINS{CST: "01", Base: dec("2500.00"), Rate: dec("7.60"), Value: dec("190.00")},
			},
		}},
		Totals: nfe.Totals{
			ICMSBase: nfe.Present(dec("2500.00")), ICMSValue: nfe.Present(dec("475.00")),
			ICMSDesonerated: zero(), FCPValue: zero(), STBase: zero(), STValue: zero(),
			FCPSTValue: zero(), FCPSTRetained: zero(), ProductValue: dec("2500.00"),
			Freight: zero(), Insurance: zero(), Discount: zero(), ImportTax: zero(),
			IPIValue: zero(), IPIReturned: zero(), PISValue: dec("41.25"), COFINSValue: dec("190.00"),
			Other: zero(), DocumentValue: dec("2500.00"),
		},
		Transport: nfe.Transport{FreightMode: "9"},
		Payment: nfe.Payment{Details: []nfe.PaymentDetail{
			{Indicator: "0", Method: "17", Value: dec("2500.00")},
		}},
	}
}
