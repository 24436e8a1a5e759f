// Package categorization assigns spending categories to transaction
// descriptions. A built-in table of Brazilian merchants and billing terms is
// compiled into an Aho-Corasick automaton for exact matching, with a fuzzy
// fallback for the names OCR mangles; per-user rules layer on top of both.
package categorization

import (
	"time"

	"github.com/google/uuid"
)

// Category slugs. The set is fixed: rules may only assign one of these, and
// anything no table or rule covers stays CategoryUncategorized.
const (
	CategoryFood          = "alimentacao"
	CategoryTransport     = "transporte"
	CategoryFuel          = "combustivel"
	CategoryHousing       = "moradia"
	CategoryHealth        = "saude"
	CategoryLeisure       = "lazer"
	CategoryEducation     = "educacao"
	CategoryTaxes         = "impostos"
	CategoryTransfers     = "transferencias"
	CategorySalary        = "salario"
	CategoryOther         = "outros"
	CategoryUncategorized = "uncategorized"
)

var categories = []string{
	CategoryFood,
	CategoryTransport,
	CategoryFuel,
	CategoryHousing,
	CategoryHealth,
	CategoryLeisure,
	CategoryEducation,
	CategoryTaxes,
	CategoryTransfers,
	CategorySalary,
	CategoryOther,
}

// Categories lists the assignable category slugs.
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

// ValidCategory reports whether slug is one of the assignable categories.
func ValidCategory(slug string) bool {
	for _, c := range categories {
		if c == slug {
			return true
		}
	}
	return false
}

// Rule is a user-defined categorization rule. Pattern is matched as a
// case- and accent-insensitive substring of the transaction description;
// SQL LIKE wildcards around it are tolerated and stripped.
type Rule struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Pattern   string    `json:"pattern"`
	Category  string    `json:"category"`
	CleanName *string   `json:"clean_name,omitempty"`
	Priority  int       `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// Result is a categorized description.
type Result struct {
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Matched     string     `json:"matched,omitempty"`
	RuleID      *uuid.UUID `json:"rule_id,omitempty"`
	Fuzzy       bool       `json:"fuzzy,omitempty"`
}

// keywordEntry binds one merchant keyword to a category. Terms are written
// lowercase and unaccented; matching happens against the folded description,
// so "combustivel" also hits "COMBUSTÍVEL". A leading or trailing space in
// the term demands a word boundary there (" ted " must not fire inside
// "LIMITED"); terms without one match as plain substrings, which lets
// "abastec" cover ABASTECIMENTO. Name is the display name for branded
// merchants and empty for generic terms.
type keywordEntry struct {
	term     string
	category string
	name     string
}

var builtinKeywords = []keywordEntry{
	// alimentação
	{" ifood", CategoryFood, "iFood"},
	{"rappi", CategoryFood, "Rappi"},
	{"uber eats", CategoryFood, "Uber Eats"},
	{"supermercado", CategoryFood, ""},
	{"mercado", CategoryFood, ""},
	{"atacadao", CategoryFood, "Atacadão"},
	{"carrefour", CategoryFood, "Carrefour"},
	{"pao de acucar", CategoryFood, "Pão de Açúcar"},
	{" assai", CategoryFood, "Assaí"},
	{"zaffari", CategoryFood, "Zaffari"},
	{"restaurante", CategoryFood, ""},
	{"churrascaria", CategoryFood, ""},
	{"padaria", CategoryFood, ""},
	{"panificadora", CategoryFood, ""},
	{"lanchonete", CategoryFood, ""},
	{"pizzaria", CategoryFood, ""},
	{"pizza", CategoryFood, ""},
	{"hamburg", CategoryFood, ""},
	{"mcdonald", CategoryFood, "McDonald's"},
	{"burger king", CategoryFood, "Burger King"},
	{"habibs", CategoryFood, "Habib's"},
	{"acougue", CategoryFood, ""},
	{"hortifruti", CategoryFood, ""},
	{"sacolao", CategoryFood, ""},

	// transporte
	{" uber", CategoryTransport, "Uber"},
	{"99app", CategoryTransport, "99"},
	{"99pop", CategoryTransport, "99"},
	{"99 tecnologia", CategoryTransport, "99"},
	{" taxi", CategoryTransport, ""},
	{"cabify", CategoryTransport, "Cabify"},
	{"onibus", CategoryTransport, ""},
	{"metro", CategoryTransport, ""},
	{" cptm ", CategoryTransport, "CPTM"},
	{"bilhete unico", CategoryTransport, "Bilhete Único"},
	{"estacionamento", CategoryTransport, ""},
	{"sem parar", CategoryTransport, "Sem Parar"},
	{"veloe", CategoryTransport, "Veloe"},
	{"conectcar", CategoryTransport, "ConectCar"},
	{"pedagio", CategoryTransport, ""},
	{"latam", CategoryTransport, "LATAM"},
	{"gol linhas", CategoryTransport, "GOL"},
	{"azul linhas", CategoryTransport, "Azul"},
	{"passagem", CategoryTransport, ""},
	{"rodoviaria", CategoryTransport, ""},

	// combustível
	{" posto", CategoryFuel, ""},
	{"ipiranga", CategoryFuel, "Ipiranga"},
	{"shell", CategoryFuel, "Shell"},
	{"petrobras", CategoryFuel, "Petrobras"},
	{"gasolina", CategoryFuel, ""},
	{"etanol", CategoryFuel, ""},
	{"diesel", CategoryFuel, ""},
	{"combustivel", CategoryFuel, ""},
	{"abastec", CategoryFuel, ""},

	// moradia
	{"aluguel", CategoryHousing, ""},
	{"condominio", CategoryHousing, ""},
	{"imobiliaria", CategoryHousing, ""},
	{"energia", CategoryHousing, ""},
	{" enel", CategoryHousing, "Enel"},
	{" light", CategoryHousing, "Light"},
	{"cemig", CategoryHousing, "Cemig"},
	{"copel", CategoryHousing, "Copel"},
	{"celesc", CategoryHousing, "Celesc"},
	{"coelba", CategoryHousing, "Coelba"},
	{"eletropaulo", CategoryHousing, "Eletropaulo"},
	{"sabesp", CategoryHousing, "Sabesp"},
	{"sanepar", CategoryHousing, "Sanepar"},
	{"embasa", CategoryHousing, "Embasa"},
	{"cedae", CategoryHousing, "Cedae"},
	{"comgas", CategoryHousing, "Comgás"},
	{"ultragaz", CategoryHousing, "Ultragaz"},
	{"saneamento", CategoryHousing, ""},
	{" agua ", CategoryHousing, ""},
	{"internet", CategoryHousing, ""},
	{"vivo fibra", CategoryHousing, "Vivo Fibra"},
	{" vivo ", CategoryHousing, "Vivo"},
	{" claro", CategoryHousing, "Claro"},
	{" tim ", CategoryHousing, "TIM"},

	// saúde
	{"farmacia", CategoryHealth, ""},
	{"drogaria", CategoryHealth, ""},
	{"drogasil", CategoryHealth, "Drogasil"},
	{" raia", CategoryHealth, "Droga Raia"},
	{"pacheco", CategoryHealth, "Drogarias Pacheco"},
	{"panvel", CategoryHealth, "Panvel"},
	{"pague menos", CategoryHealth, "Pague Menos"},
	{"hospital", CategoryHealth, ""},
	{"clinica", CategoryHealth, ""},
	{"laboratorio", CategoryHealth, ""},
	{"medic", CategoryHealth, ""},
	{"dentista", CategoryHealth, ""},
	{"odonto", CategoryHealth, ""},
	{"unimed", CategoryHealth, "Unimed"},
	{" amil", CategoryHealth, "Amil"},
	{"hapvida", CategoryHealth, "Hapvida"},
	{"sulamerica", CategoryHealth, "SulAmérica"},
	{"plano de saude", CategoryHealth, ""},

	// lazer
	{"cinema", CategoryLeisure, ""},
	{"cinemark", CategoryLeisure, "Cinemark"},
	{"teatro", CategoryLeisure, ""},
	{" show", CategoryLeisure, ""},
	{"netflix", CategoryLeisure, "Netflix"},
	{"spotify", CategoryLeisure, "Spotify"},
	{"disney", CategoryLeisure, "Disney+"},
	{"hbo", CategoryLeisure, "HBO Max"},
	{"globoplay", CategoryLeisure, "Globoplay"},
	{"deezer", CategoryLeisure, "Deezer"},
	{"prime video", CategoryLeisure, "Prime Video"},
	{"youtube", CategoryLeisure, "YouTube Premium"},
	{"steam", CategoryLeisure, "Steam"},
	{"playstation", CategoryLeisure, "PlayStation"},
	{"xbox", CategoryLeisure, "Xbox"},
	{"hotel", CategoryLeisure, ""},
	{"pousada", CategoryLeisure, ""},
	{"airbnb", CategoryLeisure, "Airbnb"},
	{"booking", CategoryLeisure, "Booking.com"},
	{"viagem", CategoryLeisure, ""},
	{"turismo", CategoryLeisure, ""},
	{"academia", CategoryLeisure, ""},
	{"smartfit", CategoryLeisure, "Smart Fit"},
	{"smart fit", CategoryLeisure, "Smart Fit"},
	{"ingresso", CategoryLeisure, ""},

	// educação
	{"escola", CategoryEducation, ""},
	{"colegio", CategoryEducation, ""},
	{"faculdade", CategoryEducation, ""},
	{"universidade", CategoryEducation, ""},
	{"curso", CategoryEducation, ""},
	{"udemy", CategoryEducation, "Udemy"},
	{"alura", CategoryEducation, "Alura"},
	{"coursera", CategoryEducation, "Coursera"},
	{"duolingo", CategoryEducation, "Duolingo"},
	{"livraria", CategoryEducation, ""},
	{"livro", CategoryEducation, ""},
	{"mensalidade", CategoryEducation, ""},

	// impostos
	{"darf", CategoryTaxes, "DARF"},
	{" gps ", CategoryTaxes, "GPS"},
	{"das simples", CategoryTaxes, "DAS"},
	{"das mei", CategoryTaxes, "DAS-MEI"},
	{"simples nacional", CategoryTaxes, ""},
	{" inss", CategoryTaxes, "INSS"},
	{"irpf", CategoryTaxes, "IRPF"},
	{"irrf", CategoryTaxes, "IRRF"},
	{"iptu", CategoryTaxes, "IPTU"},
	{"ipva", CategoryTaxes, "IPVA"},
	{"fgts", CategoryTaxes, "FGTS"},
	{"icms", CategoryTaxes, "ICMS"},
	{"receita federal", CategoryTaxes, ""},
	{"sefaz", CategoryTaxes, ""},
	{"tributo", CategoryTaxes, ""},
	{"imposto", CategoryTaxes, ""},
	{"prefeitura", CategoryTaxes, ""},

	// transferências
	{" pix ", CategoryTransfers, ""},
	{" ted ", CategoryTransfers, ""},
	{" doc ", CategoryTransfers, ""},
	{"transferencia", CategoryTransfers, ""},
	{"transf", CategoryTransfers, ""},
	{"remessa", CategoryTransfers, ""},
	{"deposito", CategoryTransfers, ""},
	{"saque", CategoryTransfers, ""},
	{"resgate", CategoryTransfers, ""},
	{"aplicac", CategoryTransfers, ""},
	{"mercado pago", CategoryTransfers, "Mercado Pago"},
	{"mercadopago", CategoryTransfers, "Mercado Pago"},
	{"pagseguro", CategoryTransfers, "PagSeguro"},
	{"picpay", CategoryTransfers, "PicPay"},

	// salário
	{"salario", CategorySalary, ""},
	{"folha", CategorySalary, ""},
	{"provento", CategorySalary, ""},
	{"remuneracao", CategorySalary, ""},
	{"pro labore", CategorySalary, ""},
	{"prolabore", CategorySalary, ""},
	{"honorario", CategorySalary, ""},
	{"adiantamento", CategorySalary, ""},
	{" ferias", CategorySalary, ""},

	// outros
	{"amazon", CategoryOther, "Amazon"},
	{"americanas", CategoryOther, "Americanas"},
	{"magazine luiza", CategoryOther, "Magazine Luiza"},
	{"magalu", CategoryOther, "Magazine Luiza"},
	{"casas bahia", CategoryOther, "Casas Bahia"},
	{"mercado livre", CategoryOther, "Mercado Livre"},
	{"shopee", CategoryOther, "Shopee"},
	{"aliexpress", CategoryOther, "AliExpress"},
	{"shein", CategoryOther, "Shein"},
	{"celular", CategoryOther, ""},
	{"notebook", CategoryOther, ""},
	{"computador", CategoryOther, ""},
	{"apple", CategoryOther, "Apple"},
	{"samsung", CategoryOther, "Samsung"},
	{"lojas", CategoryOther, ""},
	{"renner", CategoryOther, "Renner"},
	{"riachuelo", CategoryOther, "Riachuelo"},
	{"petshop", CategoryOther, ""},
	{"pet shop", CategoryOther, ""},
}
