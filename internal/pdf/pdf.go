// Package pdf pulls text and tables out of statement and receipt PDFs. The
// primary reader is ledongthuc/pdf; pdfcpu handles the encryption schemes it
// does not speak and provides a raw content-stream fallback for files with
// broken text metadata.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement"
)

// ErrNoText means the document opened fine but carries no extractable text
// layer. Scanned documents end up here; the caller decides whether OCR is
// worth a try.
var ErrNoText = errors.New("no extractable text")

const (
	minTextLength    = 50
	minReadableRatio = 0.6
)

// Words that show up on virtually every Brazilian financial document. Text
// that contains none of them is almost certainly a misdecoded font, and
// returning it would poison everything downstream.
var financialWords = []string{
	"banco", "conta", "extrato", "saldo", "data", "valor", "lançamento",
	"lancamento", "histórico", "historico", "agência", "agencia", "pix",
	"ted", "doc", "transferência", "transferencia", "pagamento", "cliente",
	"período", "periodo", "cpf", "cnpj", "boleto", "vencimento", "pagador",
	"beneficiário", "beneficiario", "documento", "código", "codigo",
	"receita", "guia", "contribuinte", "total",
	"statement", "balance", "account", "amount",
}

type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// ExtractText returns the full plain text of the document. It walks a ladder
// of extraction methods and returns the first one that produces readable
// text; garbage from misdecoded fonts is never returned.
func (e *Extractor) ExtractText(ctx context.Context, data []byte, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r, _, err := e.open(data, password)
	if err != nil {
		if errors.Is(err, statement.ErrPasswordRequired) {
			return "", err
		}
		// The structured reader gave up entirely; the content-stream
		// parser sometimes still gets through.
		if text, serr := streamText(data, password); serr == nil && readable(text) {
			return text, nil
		}
		return "", err
	}

	if text := textByRow(r); readable(text) {
		return text, nil
	}
	if text := e.layoutText(ctx, r); readable(text) {
		return text, nil
	}
	if text := plainText(r); readable(text) {
		return text, nil
	}
	e.logger.Debug("text layer unreadable, trying content streams")
	if text, serr := streamText(data, password); serr == nil && readable(text) {
		return text, nil
	}
	return "", ErrNoText
}

// ExtractTextLayer returns the embedded text layer with line structure
// preserved and wide horizontal gaps marked by double spaces. No fallbacks:
// if the text layer is empty this reports ErrNoText.
func (e *Extractor) ExtractTextLayer(ctx context.Context, data []byte, password string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r, _, err := e.open(data, password)
	if err != nil {
		return "", err
	}
	text := e.layoutText(ctx, r)
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}
	return text, nil
}

func (e *Extractor) layoutText(ctx context.Context, r *lpdf.Reader) string {
	var pages []string
	for i := 1; i <= pageCount(r); i++ {
		if ctx.Err() != nil {
			break
		}
		var lines []string
		for _, row := range pageRows(r, i) {
			if line := strings.TrimSpace(joinRow(row)); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			pages = append(pages, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(pages, "\n")
}

// open prepares a structured reader, decrypting through pdfcpu when the
// primary library cannot handle the cipher. A missing or wrong password
// surfaces as statement.ErrPasswordRequired.
func (e *Extractor) open(data []byte, password string) (*lpdf.Reader, []byte, error) {
	r, err := newReader(data, password)
	if err == nil {
		return r, data, nil
	}

	if password != "" {
		dec, derr := decrypt(data, password)
		if derr != nil {
			if errors.Is(err, lpdf.ErrInvalidPassword) || passwordErr(derr) {
				return nil, nil, statement.ErrPasswordRequired
			}
			return nil, nil, err
		}
		e.logger.Debug("pdf decrypted via pdfcpu")
		if r, err = newReader(dec, ""); err == nil {
			return r, dec, nil
		}
		return nil, nil, fmt.Errorf("open decrypted pdf: %w", err)
	}

	if errors.Is(err, lpdf.ErrInvalidPassword) {
		return nil, nil, statement.ErrPasswordRequired
	}
	// AES-256 files fail with a generic error before the password check;
	// ask pdfcpu whether this is really an encryption problem.
	if _, perr := readContext(data, ""); passwordErr(perr) {
		return nil, nil, statement.ErrPasswordRequired
	}
	return nil, nil, err
}

// newReader opens the document, trying the given password after the built-in
// empty-password attempt. The library panics on some malformed files, hence
// the recover.
func newReader(data []byte, password string) (r *lpdf.Reader, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pdf reader: %v", p)
		}
	}()
	served := false
	pw := func() string {
		if served || password == "" {
			return ""
		}
		served = true
		return password
	}
	return lpdf.NewReaderEncrypted(bytes.NewReader(data), int64(len(data)), pw)
}

func pageCount(r *lpdf.Reader) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	return r.NumPage()
}

// textByRow extracts text with the library's own row grouping, which keeps
// the best layout on well-formed files.
func textByRow(r *lpdf.Reader) (out string) {
	defer func() {
		if recover() != nil {
			out = ""
		}
	}()
	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			pages = append(pages, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(pages, "\n")
}

// plainText is the whole-document extraction path, with no layout at all.
func plainText(r *lpdf.Reader) (out string) {
	defer func() {
		if recover() != nil {
			out = ""
		}
	}()
	reader, err := r.GetPlainText()
	if err != nil {
		return ""
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

// readable rejects short, binary-looking, or word-free text. Identity-encoded
// fonts decode into character soup that would otherwise pass for content.
func readable(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= minTextLength {
		return false
	}
	if readableRatio(trimmed) <= minReadableRatio {
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, w := range financialWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func readableRatio(text string) float64 {
	total, ok := 0, 0
	for _, r := range text {
		total++
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			ok++
		case r == ' ' || r == '\n' || r == '\t' || r == '\r':
			ok++
		case strings.ContainsRune(`.,-/:;()'"$%&@#!?+=*`, r):
			ok++
		case strings.ContainsRune("áàâãéêíóôõúüçÁÀÂÃÉÊÍÓÔÕÚÜÇªº°€£", r):
			ok++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(ok) / float64(total)
}
