package classifier

import "github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document"

// Keyword sets per document kind. Matching is case-insensitive substring, so
// multi-word tokens double as crude word boundaries; short tokens that also
// occur inside ordinary Portuguese words ("das", "iss") only appear here in
// longer, unambiguous forms. Accented and unaccented variants are both listed
// because OCR output loses diacritics unpredictably.
var keywordSets = map[document.Type][]string{
	document.TypeBoleto: {
		"linha digitável", "linha digitavel",
		"código de barras", "codigo de barras",
		"boleto",
		"ficha de compensação", "ficha de compensacao",
		"local de pagamento",
		"pagável em qualquer banco", "pagavel em qualquer banco",
		"nosso número", "nosso numero",
		"cedente",
		"sacado",
		"vencimento",
		"data de vencimento",
		"valor do documento",
		"agente arrecadador",
	},
	document.TypePix: {
		"pix",
		"comprovante pix",
		"pix enviado",
		"pix recebido",
		"pagamento via pix",
		"chave pix",
		"chave de pagamento",
		"id da transação", "id da transacao",
		"identificador de transação",
		"instituição de pagamento", "instituicao de pagamento",
	},
	document.TypeTransfer: {
		"transferência", "transferencia",
		"transferência bancária", "transferencia bancaria",
		"ted realizada",
		"comprovante de ted",
		"comprovante ted",
		"doc eletrônico", "doc eletronico",
		"conta destino",
		"favorecido",
		"comprovante",
		"comprovante de pagamento",
		"recibo de pagamento",
		"pagamento efetuado",
		"transação realizada", "transacao realizada",
		"transferência realizada", "transferencia realizada",
	},
	document.TypeBankStatement: {
		"extrato",
		"extrato bancário", "extrato bancario",
		"extrato da conta",
		"extrato de conta corrente",
		"movimentação", "movimentacao",
		"saldo anterior",
		"saldo atual",
		"saldo final",
		"saldo disponível", "saldo disponivel",
		"lançamento", "lancamento",
		"lançamentos", "lancamentos",
	},
	document.TypeDARF: {
		"darf",
		"documento de arrecadação de receitas federais",
		"documento de arrecadacao de receitas federais",
		"receita federal",
		"código da receita", "codigo da receita",
		"período de apuração", "periodo de apuracao",
		"número de referência", "numero de referencia",
		"sicalc",
	},
	document.TypeGPS: {
		"gps",
		"guia da previdência social", "guia da previdencia social",
		"previdência social", "previdencia social",
		"inss",
		"código de pagamento", "codigo de pagamento",
		"competência", "competencia",
		"identificador do contribuinte",
	},
	document.TypeDAS: {
		"simples nacional",
		"documento de arrecadação do simples nacional",
		"documento de arrecadacao do simples nacional",
		"pgdas",
		"das - documento de arrecadação",
		"apuração mensal", "apuracao mensal",
	},
	document.TypeDASMEI: {
		"das mei",
		"das-mei",
		"simei",
		"microempreendedor individual",
		"das do mei",
	},
	document.TypeFGTS: {
		"fgts",
		"fundo de garantia",
		"guia de recolhimento do fgts",
		"grf",
		"gfip",
		"conectividade social",
	},
	document.TypeIPTU: {
		"iptu",
		"imposto predial",
		"territorial urbano",
		"inscrição imobiliária", "inscricao imobiliaria",
		"carnê de iptu", "carne de iptu",
	},
	document.TypeIPVA: {
		"ipva",
		"propriedade de veículos automotores", "propriedade de veiculos automotores",
		"renavam",
		"licenciamento anual",
		"detran",
	},
	document.TypeICMS: {
		"icms",
		"circulação de mercadorias", "circulacao de mercadorias",
		"gare-icms",
		"gnre",
		"sefaz",
		"substituição tributária", "substituicao tributaria",
	},
	document.TypeISS: {
		"issqn",
		"imposto sobre serviços", "imposto sobre servicos",
		" iss ",
		"nota fiscal de serviço", "nota fiscal de servico",
		"prefeitura municipal",
	},
	document.TypeITR: {
		"imposto sobre a propriedade territorial rural",
		"territorial rural",
		"ditr",
		" itr ",
		"nirf",
	},
	document.TypeITBI: {
		"itbi",
		"transmissão de bens imóveis", "transmissao de bens imoveis",
		"inter vivos",
		"transmissão onerosa", "transmissao onerosa",
	},
	document.TypeITCMD: {
		"itcmd",
		"itcd",
		"causa mortis",
		"doação de bens", "doacao de bens",
		"transmissão não onerosa", "transmissao nao onerosa",
	},
}

// priority is the tie-break order: a type earlier in this list wins when
// keyword counts are equal. Payment slips first, then tax guides from most to
// least specific, then statements, then receipt kinds whose tokens are the
// most generic.
var priority = []document.Type{
	document.TypeBoleto,
	document.TypeDARF,
	document.TypeGPS,
	document.TypeFGTS,
	document.TypeDASMEI,
	document.TypeDAS,
	document.TypeIPTU,
	document.TypeIPVA,
	document.TypeICMS,
	document.TypeISS,
	document.TypeITR,
	document.TypeITBI,
	document.TypeITCMD,
	document.TypeBankStatement,
	document.TypePix,
	document.TypeTransfer,
}
