package sefaz

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/jhoicas/nfe-api/internal/domain/nfe"
	pkgnfe "github.com/jhoicas/nfe-api/pkg/nfe"
)

// BuildProcNFe arma el documento de distribución <nfeProc> (NFe firmada + protNFe)
// que se entrega al destinatario una vez autorizada la nota.
func BuildProcNFe(signedNFe, protNFe []byte) ([]byte, error) {
	nfeDoc := etree.NewDocument()
	if err := nfeDoc.ReadFromBytes(signedNFe); err != nil {
		return nil, fmt.Errorf("sefaz: parsear NFe firmada: %w", err)
	}
	nfeRoot := findFirst(nfeDoc.Root(), "NFe")
	if nfeRoot == nil {
		return nil, fmt.Errorf("%w: elemento NFe ausente", nfe.ErrMalformedDocument)
	}

	protDoc := etree.NewDocument()
	if err := protDoc.ReadFromBytes(protNFe); err != nil {
		return nil, fmt.Errorf("sefaz: parsear protNFe: %w", err)
	}
	protRoot := findFirst(protDoc.Root(), "protNFe")
	if protRoot == nil {
		return nil, fmt.Errorf("sefaz: protNFe ausente en la respuesta")
	}

	out := etree.NewDocument()
	out.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	proc := out.CreateElement("nfeProc")
	proc.CreateAttr("xmlns", pkgnfe.Namespace)
	proc.CreateAttr("versao", pkgnfe.LayoutVersion)
	proc.AddChild(nfeRoot.Copy())
	proc.AddChild(protRoot.Copy())

	b, err := out.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("sefaz: serializar nfeProc: %w", err)
	}
	return b, nil
}
