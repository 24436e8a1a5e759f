package extract

import (
	"strings"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document"
)

// Revenue codes seen on federal payment guides. The tables are not
// exhaustive; unknown codes still extract, they just have no description.
var darfCodes = map[string]string{
	"0190": "IRPF carnê-leão",
	"0211": "IRPF quota do ajuste anual",
	"0220": "IRPF ganho de capital",
	"0561": "IRRF rendimentos do trabalho",
	"0588": "IRRF trabalho sem vínculo empregatício",
	"1708": "IRRF serviços prestados por pessoa jurídica",
	"2089": "IRPJ lucro presumido",
	"2372": "CSLL lucro presumido",
	"3208": "IRPF aluguéis recebidos de pessoa física",
	"5856": "CSLL demais entidades",
	"6012": "IRPF residente no exterior",
	"8109": "PIS sobre faturamento",
}

var gpsCodes = map[string]string{
	"1007": "Contribuinte individual mensal",
	"1104": "Contribuinte individual trimestral",
	"1406": "Segurado facultativo mensal",
	"1457": "Segurado facultativo trimestral",
	"1600": "Empregado doméstico mensal",
	"1651": "Empregado doméstico 13º salário",
	"2003": "Empresa optante pelo Simples Nacional",
	"2100": "Empresa em geral",
}

// RevenueCodeDescription says what a revenue code means on a DARF or GPS.
// Composite codes like "1708-02" are resolved by their leading four digits.
func RevenueCodeDescription(docType document.Type, code string) (string, bool) {
	code, _, _ = strings.Cut(code, "-")
	switch docType {
	case document.TypeDARF:
		desc, ok := darfCodes[code]
		return desc, ok
	case document.TypeGPS:
		desc, ok := gpsCodes[code]
		return desc, ok
	default:
		return "", false
	}
}

// KnownRevenueCode reports whether the code appears in the table for the
// guide type.
func KnownRevenueCode(docType document.Type, code string) bool {
	_, ok := RevenueCodeDescription(docType, code)
	return ok
}
