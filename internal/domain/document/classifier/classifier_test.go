package classifier

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/document"
)

func TestClassify(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		text string
		want document.Type
	}{
		{
			name: "empty text",
			text: "",
			want: document.TypeUnknown,
		},
		{
			name: "whitespace only",
			text: "   \n\t  ",
			want: document.TypeUnknown,
		},
		{
			name: "no keywords at all",
			text: "relatório de vendas do primeiro trimestre",
			want: document.TypeUnknown,
		},
		{
			name: "boleto by wording",
			text: "BOLETO BANCÁRIO\nLocal de Pagamento: PAGÁVEL EM QUALQUER BANCO\nVencimento: 10/12/2024\nNosso Número: 123456",
			want: document.TypeBoleto,
		},
		{
			name: "boleto by typed line digits only",
			text: "23793.38128 60007.827136 95000.063305 9 75520000015000",
			want: document.TypeBoleto,
		},
		{
			name: "pix receipt",
			text: "Comprovante PIX\nPix enviado com sucesso\nChave PIX: maria@email.com",
			want: document.TypePix,
		},
		{
			name: "ted receipt",
			text: "Comprovante de TED\nTransferência realizada\nConta destino: 12345-6\nFavorecido: JOÃO",
			want: document.TypeTransfer,
		},
		{
			name: "bank statement",
			text: "EXTRATO DE CONTA CORRENTE\nSaldo anterior: 1.000,00\nLançamentos do período",
			want: document.TypeBankStatement,
		},
		{
			name: "darf guide",
			text: "DARF - Documento de Arrecadação de Receitas Federais\nCódigo da Receita: 0190\nPeríodo de Apuração: 01/2024",
			want: document.TypeDARF,
		},
		{
			name: "gps guide",
			text: "GPS - Guia da Previdência Social\nCódigo de Pagamento: 2003\nCompetência: 03/2024\nINSS",
			want: document.TypeGPS,
		},
		{
			name: "das mei outranks plain das",
			text: "Documento de Arrecadação do Simples Nacional\nDAS-MEI\nSIMEI - Microempreendedor Individual",
			want: document.TypeDASMEI,
		},
		{
			name: "fgts guide",
			text: "GRF - Guia de Recolhimento do FGTS\nFundo de Garantia do Tempo de Serviço",
			want: document.TypeFGTS,
		},
		{
			name: "iptu carne",
			text: "PREFEITURA DE SÃO PAULO\nIPTU 2024 - Imposto Predial e Territorial Urbano\nInscrição Imobiliária: 123.456.0001-1",
			want: document.TypeIPTU,
		},
		{
			name: "ipva guide",
			text: "IPVA 2024\nRENAVAM: 00123456789\nDETRAN-SP",
			want: document.TypeIPVA,
		},
		{
			name: "unaccented ocr output still matches",
			text: "extrato bancario\nmovimentacao da conta\nsaldo disponivel",
			want: document.TypeBankStatement,
		},
		{
			name: "end to end scenario text",
			text: "BENEFICIÁRIO: EMPRESA XYZ LTDA\nVALOR: R$ 150,00\nVENCIMENTO: 10/12/2024",
			want: document.TypeBoleto,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.text))
		})
	}
}

func TestClassifyTieBreaksByPriority(t *testing.T) {
	c := New()

	// One pix keyword and one generic receipt keyword: equal counts, pix is
	// earlier in the priority order.
	docType, scores := c.ClassifyWithScores("pagamento via pix / comprovante de pagamento")
	require.Equal(t, scores[document.TypePix], scores[document.TypeTransfer])
	assert.Equal(t, document.TypePix, docType)
}

func TestClassifyShortTokensNeedBoundaries(t *testing.T) {
	c := New()

	// "emissão" contains the letters "iss" but must not classify as ISS.
	got := c.Classify("data de emissão do relatório: 10/01/2024")
	assert.Equal(t, document.TypeUnknown, got)

	// A standalone ISS token does match.
	got = c.Classify("guia de recolhimento iss referente a serviços prestados")
	assert.Equal(t, document.TypeISS, got)
}

func TestClassifyTokenAtTextEdges(t *testing.T) {
	c := New()

	assert.Equal(t, document.TypeISS, c.Classify("iss guia municipal"))
	assert.Equal(t, document.TypeISS, c.Classify("guia municipal iss"))
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := New()
	text := "Comprovante PIX\nChave PIX: fulano@email.com\nValor: R$ 99,90"

	first := c.Classify(text)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, c.Classify(text))
	}
}

func TestClassifyLargeTextSinglePass(t *testing.T) {
	c := New()

	// A large document must still classify; the automaton walks it once.
	text := strings.Repeat("linha sem nada de interessante\n", 5000) +
		"EXTRATO BANCÁRIO\nsaldo final\n"
	assert.Equal(t, document.TypeBankStatement, c.Classify(text))
}
