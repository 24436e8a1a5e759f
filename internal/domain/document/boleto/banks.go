package boleto

import (
	"fmt"
	"sort"
)

// Bank names by the 3-digit COMPE code carried in payment slips.
var bankNames = map[string]string{
	"001": "Banco do Brasil",
	"033": "Santander",
	"041": "Banrisul",
	"070": "BRB - Banco de Brasília",
	"077": "Banco Inter",
	"104": "Caixa Econômica Federal",
	"208": "BTG Pactual",
	"212": "Banco Original",
	"237": "Bradesco",
	"260": "Nubank",
	"290": "PagBank",
	"323": "Mercado Pago",
	"336": "C6 Bank",
	"341": "Itaú",
	"356": "Banco Real",
	"380": "PicPay",
	"389": "Banco Mercantil",
	"399": "HSBC",
	"422": "Safra",
	"453": "Banco Rural",
	"633": "Banco Rendimento",
	"652": "Itaú Unibanco",
	"655": "Banco Votorantim",
	"745": "Citibank",
	"748": "Sicredi",
	"756": "Sicoob",
}

// BankName resolves a COMPE code to the institution name. Unknown codes get a
// formatted placeholder instead of an error so decoding can keep going.
func BankName(code string) string {
	if name, ok := bankNames[code]; ok {
		return name
	}
	return fmt.Sprintf("Banco %s", code)
}

// Names returns every known institution name, longest first, so free-text
// matchers can try "Itaú Unibanco" before "Itaú".
func Names() []string {
	names := make([]string, 0, len(bankNames))
	for _, name := range bankNames {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}
