package extract

import (
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document"
)

// synonymDictionary maps each field to the labels that announce it on real
// documents, in priority order. Brazilian issuers are wildly inconsistent
// about wording, and OCR tends to drop accents, so accented labels carry a
// bare variant right after them.
//
// A label ending in ':' only matches with the colon present. That keeps
// prepositions like "de" and "para" usable as labels on PIX receipts without
// matching them in running prose.
var synonymDictionary = map[document.FieldKind][]string{
	document.FieldValue: {
		"valor total",
		"valor do documento",
		"valor cobrado",
		"valor a pagar",
		"valor a recolher",
		"valor pago",
		"valor da transferência",
		"valor da transferencia",
		"total a pagar",
		"valor",
		"total",
	},
	document.FieldDueDate: {
		"data de vencimento",
		"vencimento",
		"vence em",
		"pagável até",
		"pagavel ate",
		"pagar até",
		"pagar ate",
		"data limite",
	},
	document.FieldBeneficiary: {
		"beneficiário",
		"beneficiario",
		"cedente",
		"favorecido",
		"nome do recebedor",
		"recebedor",
		"destinatário",
		"destinatario",
		"credor",
		"para:",
	},
	document.FieldPayer: {
		"pagador",
		"sacado",
		"contribuinte",
		"nome do pagador",
		"remetente",
		"origem",
		"de:",
	},
	document.FieldBank: {
		"banco emissor",
		"banco destino",
		"banco de destino",
		"banco",
		"instituição",
		"instituicao",
	},
	document.FieldBranch: {
		"agência",
		"agencia",
		"ag:",
		"ag.",
	},
	document.FieldAccount: {
		"conta corrente",
		"conta:",
		"conta",
	},
	document.FieldTaxPeriod: {
		"período de apuração",
		"periodo de apuracao",
		"competência",
		"competencia",
		"apuração",
		"apuracao",
		"exercício",
		"exercicio",
		"referência",
		"referencia",
	},
	document.FieldRevenueCode: {
		"código da receita",
		"codigo da receita",
		"código de receita",
		"codigo de receita",
		"código de pagamento",
		"codigo de pagamento",
		"cód. receita",
		"cod. receita",
		"receita",
	},
	document.FieldDocumentID: {
		"nosso número",
		"nosso numero",
		"número do documento",
		"numero do documento",
		"nº do documento",
		"no. do documento",
		"número da guia",
		"numero da guia",
		"número de referência",
		"numero de referencia",
		"autenticação",
		"autenticacao",
		"protocolo",
	},
	document.FieldCNPJ: {
		"cnpj do beneficiário",
		"cnpj do beneficiario",
		"cnpj/cpf",
		"cpf/cnpj",
		"cnpj",
		"cpf",
	},
	document.FieldPixKey: {
		"chave pix",
		"chave:",
	},
	document.FieldEndToEndID: {
		"id da transação",
		"id da transacao",
		"id transação",
		"id transacao",
		"e2e id",
		"e2e",
	},
}

// extraBoundaries are tokens that end a captured span but never open one.
var extraBoundaries = []string{
	"data do pagamento",
	"data do documento",
	"data:",
	"linha digitável",
	"linha digitavel",
	"código de barras",
	"codigo de barras",
	"juros",
	"multa",
	"desconto",
	"encargos",
	"(=)",
	"(-)",
	"(+)",
}

// Synonyms returns the labels recognized for a field, in the order they are
// tried. The returned slice is a copy.
func Synonyms(kind document.FieldKind) []string {
	labels := synonymDictionary[kind]
	out := make([]string, len(labels))
	copy(out, labels)
	return out
}
