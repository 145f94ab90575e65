package sefaz

import (
	"fmt"
	"strings"

	pkgnfe "github.com/jhoicas/nfe-api/pkg/nfe"
)

// Autorizadores soportados.
const (
	AuthoritySVRS = "SVRS"
	AuthoritySP   = "SP"
)

// SOAPAction de cada servicio (layout 4.00).
const (
	actionStatus        = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeStatusServico4/nfeStatusServicoNF"
	actionAuthorization = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeAutorizacao4/nfeAutorizacaoLote"
	actionReturn        = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeRetAutorizacao4/nfeRetAutorizacaoLote"

	wsdlStatus        = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeStatusServico4"
	wsdlAuthorization = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeAutorizacao4"
	wsdlReturn        = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeRetAutorizacao4"
)

// Endpoints URLs de los tres servicios de un autorizador en un ambiente.
type Endpoints struct {
	Status        string
	Authorization string
	Return        string
}

// endpoints configuración fija por autorizador y tpAmb; no se deriva en tiempo de ejecución.
var endpoints = map[string]map[string]Endpoints{
	AuthoritySVRS: {
		pkgnfe.EnvironmentProduction: {
			Status:        "https://nfe.svrs.rs.gov.br/ws/NfeStatusServico/NfeStatusServico4.asmx",
			Authorization: "https://nfe.svrs.rs.gov.br/ws/NfeAutorizacao/NFeAutorizacao4.asmx",
			Return:        "https://nfe.svrs.rs.gov.br/ws/NfeRetAutorizacao/NFeRetAutorizacao4.asmx",
		},
		pkgnfe.EnvironmentHomologation: {
			Status:        "https://nfe-homologacao.svrs.rs.gov.br/ws/NfeStatusServico/NfeStatusServico4.asmx",
			Authorization: "https://nfe-homologacao.svrs.rs.gov.br/ws/NfeAutorizacao/NFeAutorizacao4.asmx",
			Return:        "https://nfe-homologacao.svrs.rs.gov.br/ws/NfeRetAutorizacao/NFeRetAutorizacao4.asmx",
		},
	},
	AuthoritySP: {
		pkgnfe.EnvironmentProduction: {
			Status:        "https://nfe.fazenda.sp.gov.br/ws/nfestatusservico4.asmx",
			Authorization: "https://nfe.fazenda.sp.gov.br/ws/nfeautorizacao4.asmx",
			Return:        "https://nfe.fazenda.sp.gov.br/ws/nferetautorizacao4.asmx",
		},
		pkgnfe.EnvironmentHomologation: {
			Status:        "https://homologacao.nfe.fazenda.sp.gov.br/ws/nfestatusservico4.asmx",
			Authorization: "https://homologacao.nfe.fazenda.sp.gov.br/ws/nfeautorizacao4.asmx",
			Return:        "https://homologacao.nfe.fazenda.sp.gov.br/ws/nferetautorizacao4.asmx",
		},
	},
}

// EndpointsFor devuelve las URLs del autorizador para el ambiente (tpAmb "1" o "2").
func EndpointsFor(authority, environment string) (Endpoints, error) {
	byEnv, ok := endpoints[strings.ToUpper(authority)]
	if !ok {
		return Endpoints{}, fmt.Errorf("sefaz: autorizador desconocido %q (usar SVRS o SP)", authority)
	}
	ep, ok := byEnv[environment]
	if !ok {
		return Endpoints{}, fmt.Errorf("sefaz: ambiente desconocido %q (usar 1=producción o 2=homologación)", environment)
	}
	return ep, nil
}
