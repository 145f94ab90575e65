// seed_ibge genera el script SQL que puebla ibge_municipalities (cMun / xMun de la NF-e)
// a partir del CSV de la DTB del IBGE (RELATORIO_DTB_BRASIL_MUNICIPIO.csv).
//
// Uso: go run ./cmd/seed_ibge [ruta/RELATORIO_DTB_BRASIL_MUNICIPIO.csv]
// El CSV oficial viene en ISO-8859-1 y separado por ";".
// Escribe: migrations/002_seed_ibge_municipalities.sql
package main

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	pkgnfe "github.com/jhoicas/nfe-api/pkg/nfe"
)

// Columnas de la DTB que se usan.
const (
	colStateCode        = "UF"
	colMunicipalityCode = "Código Município Completo"
	colMunicipalityName = "Nome_Município"
)

type municipality struct {
	code, name, uf, stateCode string
}

func main() {
	csvPath := "RELATORIO_DTB_BRASIL_MUNICIPIO.csv"
	if len(os.Args) > 1 {
		csvPath = os.Args[1]
	}
	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	list, skipped, err := parseDTB(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	outPath := filepath.Join(findModuleRoot(), "migrations", "002_seed_ibge_municipalities.sql")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	if err := writeSQL(w, list); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generado %s: %d municipios (%d filas descartadas)\n", outPath, len(list), skipped)
}

// parseDTB lee el CSV ya decodificado a UTF-8. Las filas con UF desconocida o
// código de municipio que no tenga 7 dígitos se descartan y se cuentan.
func parseDTB(r io.Reader) ([]municipality, int, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("cabecera: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, col := range []string{colStateCode, colMunicipalityCode, colMunicipalityName} {
		if _, ok := idx[col]; !ok {
			return nil, 0, fmt.Errorf("columna %q ausente", col)
		}
	}

	var list []municipality
	skipped := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		field := func(col string) string {
			i := idx[col]
			if i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		stateCode := field(colStateCode)
		code := field(colMunicipalityCode)
		uf, ok := pkgnfe.StateAbbreviation(stateCode)
		if !ok || !pkgnfe.IsDigits(code, 7) || !strings.HasPrefix(code, stateCode) {
			skipped++
			continue
		}
		list = append(list, municipality{code: code, name: field(colMunicipalityName), uf: uf, stateCode: stateCode})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].code < list[j].code })
	return list, skipped, nil
}

func writeSQL(w io.Writer, list []municipality) error {
	if _, err := io.WriteString(w, "-- Municipios IBGE (cMun / xMun)\n-- Generado por cmd/seed_ibge desde la DTB del IBGE\n\n"); err != nil {
		return err
	}
	if len(list) == 0 {
		return nil
	}
	if _, err := io.WriteString(w, "INSERT INTO ibge_municipalities (code, name, uf, state_code) VALUES\n"); err != nil {
		return err
	}
	for i, m := range list {
		sep := ","
		if i == len(list)-1 {
			sep = ""
		}
		if _, err := fmt.Fprintf(w, "  ('%s', '%s', '%s', '%s')%s\n", m.code, escapeSQL(m.name), m.uf, m.stateCode, sep); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, uf = EXCLUDED.uf;\n")
	return err
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
