package billing

import (
	"context"
	"fmt"

	"github.com/jhoicas/nfe-api/internal/domain"
	"github.com/jhoicas/nfe-api/internal/domain/entity"
	"github.com/jhoicas/nfe-api/internal/domain/nfe"
	"github.com/jhoicas/nfe-api/internal/domain/repository"
	"github.com/jhoicas/nfe-api/internal/infrastructure/sefaz"
)

// PDFUseCase genera el DANFE (representación gráfica) de una NF-e emitida.
// Solo se permite si la emisión ya tiene XML firmado.
type PDFUseCase struct {
	emissions repository.EmissionRepository
	generator DANFEGenerator
}

// NewPDFUseCase construye el caso de uso.
func NewPDFUseCase(emissions repository.EmissionRepository, generator DANFEGenerator) *PDFUseCase {
	return &PDFUseCase{emissions: emissions, generator: generator}
}

// DownloadDANFE lee el XML de la emisión (nfeProc si está autorizada) y genera el PDF.
//
// Retorna:
//   - (pdfBytes, filename, nil)  si todo sale bien.
//   - domain.ErrNotFound         si la emisión no existe.
//   - domain.ErrForbidden        si la emisión no pertenece a la empresa del token.
//   - domain.ErrInvalidInput     si la emisión aún no tiene XML firmado.
func (uc *PDFUseCase) DownloadDANFE(ctx context.Context, companyID, emissionID string) (pdfBytes []byte, filename string, err error) {
	// ── 1. Cargar emisión ─────────────────────────────────────────────────────
	em, err := uc.emissions.GetByID(ctx, emissionID)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: obtener emisión: %w", err)
	}
	if em == nil {
		return nil, "", domain.ErrNotFound
	}
	if companyID != "" && em.CompanyID != companyID {
		return nil, "", domain.ErrForbidden
	}

	// ── 2. XML disponible ─────────────────────────────────────────────────────
	xmlDoc := DistributionXML(em)
	if xmlDoc == "" {
		return nil, "", fmt.Errorf("%w: la emisión está en estado %s, sin XML firmado",
			domain.ErrInvalidInput, em.Status)
	}

	// ── 3. Resumen + PDF ──────────────────────────────────────────────────────
	summary, err := sefaz.ReadSummary([]byte(xmlDoc))
	if err != nil {
		return nil, "", fmt.Errorf("pdf: leer XML: %w", err)
	}
	pdfBytes, err = uc.generator.GenerateDANFE(ctx, summary, nfe.QRCodeURL(summary.AccessKey))
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generar DANFE: %w", err)
	}
	return pdfBytes, "DANFE-" + summary.AccessKey + ".pdf", nil
}

// DistributionXML XML a entregar: nfeProc si está autorizada, si no el XML firmado.
func DistributionXML(em *entity.Emission) string {
	if em.XMLAuthorized != "" {
		return em.XMLAuthorized
	}
	return em.XMLSigned
}
