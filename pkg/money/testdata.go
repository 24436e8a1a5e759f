package money

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// TestDataGenerator produces realistic Brazilian financial fixtures for tests.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(0)}
}

// NewTestDataGeneratorWithSeed creates a generator with a fixed seed for
// reproducible fixtures.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

// TestTransaction is a generated statement line.
type TestTransaction struct {
	ID          uuid.UUID
	Date        time.Time
	Description string
	Amount      *Money
	IsCredit    bool
}

var creditDescriptions = []string{
	"TED RECEBIDA EMPRESA XYZ LTDA",
	"PIX RECEBIDO MARIA SILVA",
	"CRÉDITO SALÁRIO",
	"DEPÓSITO EM DINHEIRO",
	"RESGATE APLICAÇÃO AUTOMÁTICA",
	"ESTORNO COMPRA CARTÃO",
}

var debitDescriptions = []string{
	"PIX ENVIADO JOÃO PEREIRA",
	"PAGAMENTO BOLETO ENERGISA",
	"COMPRA CARTÃO SUPERMERCADO PÃO DE AÇÚCAR",
	"COMPRA CARTÃO POSTO IPIRANGA",
	"DÉBITO AUTOMÁTICO VIVO FIBRA",
	"PAGAMENTO DARF",
	"TED ENVIADA ALUGUEL IMOBILIÁRIA CENTRAL",
	"COMPRA CARTÃO IFOOD",
	"COMPRA CARTÃO UBER TRIP",
	"SAQUE 24H",
	"COMPRA CARTÃO DROGASIL",
	"MENSALIDADE SMARTFIT",
}

// Transaction generates one random statement line in BRL.
func (g *TestDataGenerator) Transaction() TestTransaction {
	isCredit := g.faker.Number(0, 4) == 0 // statements skew toward debits
	var desc string
	var amount *Money
	if isCredit {
		desc = creditDescriptions[g.faker.Number(0, len(creditDescriptions)-1)]
		amount = g.RandomAmount(10_00, 12_000_00)
	} else {
		desc = debitDescriptions[g.faker.Number(0, len(debitDescriptions)-1)]
		amount = g.RandomAmount(5_00, 900_00).Negate()
	}
	return TestTransaction{
		ID:          uuid.New(),
		Date:        g.faker.DateRange(time.Now().AddDate(0, -3, 0), time.Now()),
		Description: desc,
		Amount:      amount,
		IsCredit:    isCredit,
	}
}

// Transactions generates count random statement lines.
func (g *TestDataGenerator) Transactions(count int) []TestTransaction {
	txs := make([]TestTransaction, count)
	for i := range txs {
		txs[i] = g.Transaction()
	}
	return txs
}

// RandomAmount generates a BRL amount within a cent range.
func (g *TestDataGenerator) RandomAmount(minCents, maxCents int64) *Money {
	if minCents > maxCents {
		minCents, maxCents = maxCents, minCents
	}
	cents := g.faker.Int64() % (maxCents - minCents + 1)
	if cents < 0 {
		cents = -cents
	}
	return New(minCents+cents, BRL)
}

// CPF generates a formatted CPF-shaped number (digits only, not check-digit
// valid).
func (g *TestDataGenerator) CPF() string {
	return fmt.Sprintf("%s.%s.%s-%s",
		g.faker.DigitN(3), g.faker.DigitN(3), g.faker.DigitN(3), g.faker.DigitN(2))
}

// CNPJ generates a formatted CNPJ-shaped number.
func (g *TestDataGenerator) CNPJ() string {
	return fmt.Sprintf("%s.%s.%s/0001-%s",
		g.faker.DigitN(2), g.faker.DigitN(3), g.faker.DigitN(3), g.faker.DigitN(2))
}

// CompanyName generates an uppercase Brazilian-style company name.
func (g *TestDataGenerator) CompanyName() string {
	suffixes := []string{"LTDA", "S.A.", "ME", "EIRELI"}
	return fmt.Sprintf("%s %s",
		g.faker.Company(), suffixes[g.faker.Number(0, len(suffixes)-1)])
}

// LinhaDigitavel generates a 47-digit typed line with the given bank code,
// due-date factor and amount in cents placed at the official offsets. Check
// digits are random filler; the decoder does not validate them.
func (g *TestDataGenerator) LinhaDigitavel(bankCode string, factor int, amountCents int64) string {
	digits := []byte(g.faker.DigitN(47))
	copy(digits[0:3], bankCode)
	copy(digits[33:37], fmt.Sprintf("%04d", factor))
	copy(digits[37:47], fmt.Sprintf("%010d", amountCents))
	return string(digits)
}

// Barcode generates the 44-digit barcode equivalent.
func (g *TestDataGenerator) Barcode(bankCode string, factor int, amountCents int64) string {
	digits := []byte(g.faker.DigitN(44))
	copy(digits[0:3], bankCode)
	copy(digits[5:9], fmt.Sprintf("%04d", factor))
	copy(digits[9:19], fmt.Sprintf("%010d", amountCents))
	return string(digits)
}
