package tool

import (
	"context"
	"regexp"

	contractx "github.com/botero-soto/sotobot/agent/contract"
)

var nitDigits = regexp.MustCompile(`\d+`)

// StaticNITDirectory answers NIT lookups from an in-process table. The
// CRM-backed directory shares the same interface and can be swapped in
// without touching callers.
type StaticNITDirectory struct {
	records map[string]contractx.NITRecord
}

func NewStaticNITDirectory() *StaticNITDirectory {
	return &StaticNITDirectory{records: map[string]contractx.NITRecord{
		"901535329": {
			Cliente:              "Elevva Colombia S.A.S.",
			Estado:               "PERDIDO_2_ANOS",
			ResponsableComercial: "TEGUA SIERRA DEISSY ROCIO",
		},
		"901534449": {
			Cliente:              "Insumos & Ingeniería S.A.S",
			Estado:               "NUEVO",
			ResponsableComercial: "CORTES LEON KEVIN DAVID",
		},
	}}
}

// Lookup finds a company record by NIT. Formatting noise (dots, dashes,
// verification digit separators) is stripped before matching.
func (d *StaticNITDirectory) Lookup(_ context.Context, nit string) (contractx.NITRecord, bool, error) {
	rec, ok := d.records[NormalizeNIT(nit)]
	return rec, ok, nil
}

// NormalizeNIT keeps only the digits of a NIT, dropping a trailing
// verification digit when the user typed the full 10-digit form.
func NormalizeNIT(raw string) string {
	digits := nitDigits.FindAllString(raw, -1)
	joined := ""
	for _, d := range digits {
		joined += d
	}
	if len(joined) == 10 {
		joined = joined[:9]
	}
	return joined
}
