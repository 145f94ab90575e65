package nfe

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrUnknownState el código IBGE de UF no está en la tabla de alícuotas.
var ErrUnknownState = errors.New("nfe: código de UF desconocido")

// Alícuotas por defecto (porcentaje).
var (
	// DefaultICMSRate alícuota ICMS usada cuando la UF del emisor no está en la tabla
	// y el emisor no configuró una alícuota propia.
	DefaultICMSRate = decimal.RequireFromString("18.00")
	// DefaultPISRate régimen no cumulativo.
	DefaultPISRate = decimal.RequireFromString("1.65")
	// DefaultCOFINSRate régimen no cumulativo.
	DefaultCOFINSRate = decimal.RequireFromString("7.60")
)

type stateEntry struct {
	uf   string
	rate decimal.Decimal
}

// =============================================================================
// Alícuota interna modal de ICMS por UF (código IBGE de 2 dígitos).
// 26 estados + Distrito Federal. Tabla inmutable: solo se expone por funciones.
// =============================================================================

var stateTable = map[string]stateEntry{
	"11": {"RO", decimal.RequireFromString("19.5")},
	"12": {"AC", decimal.RequireFromString("19")},
	"13": {"AM", decimal.RequireFromString("20")},
	"14": {"RR", decimal.RequireFromString("20")},
	"15": {"PA", decimal.RequireFromString("19")},
	"16": {"AP", decimal.RequireFromString("18")},
	"17": {"TO", decimal.RequireFromString("20")},
	"21": {"MA", decimal.RequireFromString("23")},
	"22": {"PI", decimal.RequireFromString("22.5")},
	"23": {"CE", decimal.RequireFromString("20")},
	"24": {"RN", decimal.RequireFromString("18")},
	"25": {"PB", decimal.RequireFromString("20")},
	"26": {"PE", decimal.RequireFromString("20.5")},
	"27": {"AL", decimal.RequireFromString("19")},
	"28": {"SE", decimal.RequireFromString("20")},
	"29": {"BA", decimal.RequireFromString("20.5")},
	"31": {"MG", decimal.RequireFromString("18")},
	"32": {"ES", decimal.RequireFromString("17")},
	"33": {"RJ", decimal.RequireFromString("22")},
	"35": {"SP", decimal.RequireFromString("18")},
	"41": {"PR", decimal.RequireFromString("19.5")},
	"42": {"SC", decimal.RequireFromString("17")},
	"43": {"RS", decimal.RequireFromString("17")},
	"50": {"MS", decimal.RequireFromString("17")},
	"51": {"MT", decimal.RequireFromString("17")},
	"52": {"GO", decimal.RequireFromString("19")},
	"53": {"DF", decimal.RequireFromString("20")},
}

var ufToCode = func() map[string]string {
	m := make(map[string]string, len(stateTable))
	for code, e := range stateTable {
		m[e.uf] = code
	}
	return m
}()

// RateForStateCode devuelve la alícuota ICMS (porcentaje) de la UF.
// No aplica ningún fallback: el llamador decide qué hacer con ErrUnknownState.
func RateForStateCode(code string) (decimal.Decimal, error) {
	e, ok := stateTable[code]
	if !ok {
		return decimal.Zero, ErrUnknownState
	}
	return e.rate, nil
}

// StateAbbreviation devuelve la sigla (SP, RJ...) del código IBGE.
func StateAbbreviation(code string) (string, bool) {
	e, ok := stateTable[code]
	return e.uf, ok
}

// StateCodeFromUF devuelve el código IBGE a partir de la sigla.
func StateCodeFromUF(uf string) (string, bool) {
	code, ok := ufToCode[uf]
	return code, ok
}

// StateCodes lista ordenada de los códigos de la tabla.
func StateCodes() []string {
	out := make([]string, 0, len(stateTable))
	for code := range stateTable {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
