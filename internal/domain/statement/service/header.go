package service

import (
	"regexp"
	"strings"
	"time"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
)

// Brazilian statements label their header fields fairly consistently; every
// match is optional and absence never fails the parse.
var (
	branchRe = regexp.MustCompile(`(?i)ag[êe]ncia\s*:?\s*(\d{3,5}(?:-\d)?)`)
	// Account numbers carry dots and a check-digit dash: "Conta: 12.345-6".
	accountRe = regexp.MustCompile(`(?i)conta(?:\s+corrente|\s+poupan[çc]a)?\s*:?\s*(\d[\d. ]{1,12}-?\d)`)
	periodRe  = regexp.MustCompile(`(?i)per[íi]odo\s*:?\s*(\d{2}/\d{2}/\d{4})\s*(?:a|à|at[ée]|-|par[aá])?\s*(\d{2}/\d{2}/\d{4})`)
	cpfRe     = regexp.MustCompile(`\d{3}\.\d{3}\.\d{3}-\d{2}`)
	cnpjRe    = regexp.MustCompile(`\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}`)
	holderRe  = regexp.MustCompile(`(?i)(?:titular|cliente|nome)\s*:\s*([^\n]{3,80})`)
)

// applyHeader fills statement metadata from the document text. Values
// already present, e.g. from an OFX account block, are kept.
func applyHeader(st *statement.Statement, text string) {
	if st.Branch == "" {
		if m := branchRe.FindStringSubmatch(text); m != nil {
			st.Branch = m[1]
		}
	}
	if st.Account == "" {
		if m := accountRe.FindStringSubmatch(text); m != nil {
			st.Account = strings.TrimSpace(m[1])
		}
	}
	if st.HolderName == "" {
		if m := holderRe.FindStringSubmatch(text); m != nil {
			st.HolderName = cleanHolder(m[1])
		}
	}
	if st.HolderDocument == "" {
		if m := cpfRe.FindString(text); m != "" {
			st.HolderDocument = m
		} else if m := cnpjRe.FindString(text); m != "" {
			st.HolderDocument = m
		}
	}
	if st.PeriodStart.IsZero() && st.PeriodEnd.IsZero() {
		if m := periodRe.FindStringSubmatch(text); m != nil {
			start, err1 := time.Parse("02/01/2006", m[1])
			end, err2 := time.Parse("02/01/2006", m[2])
			if err1 == nil && err2 == nil && !end.Before(start) {
				st.PeriodStart, st.PeriodEnd = start, end
			}
		}
	}
}

// cleanHolder strips the document number and label debris banks print on the
// same line as the holder's name.
func cleanHolder(raw string) string {
	name := raw
	for _, cut := range []string{"CPF", "Cpf", "cpf", "CNPJ", "Cnpj", "cnpj"} {
		if idx := strings.Index(name, cut); idx >= 0 {
			name = name[:idx]
		}
	}
	name = strings.Trim(name, " \t-–|:.,")
	name = strings.Join(strings.Fields(name), " ")
	if len(name) < 3 {
		return ""
	}
	return name
}
