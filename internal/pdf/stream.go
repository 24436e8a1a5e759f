package pdf

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

func readContext(data []byte, password string) (*model.Context, error) {
	conf := model.NewDefaultConfiguration()
	if password != "" {
		conf.UserPW = password
		conf.OwnerPW = password
	}
	return api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
}

// decrypt rewrites the document without encryption. pdfcpu covers AES-256,
// which the structured reader does not.
func decrypt(data []byte, password string) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password
	var out bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(data), &out, conf); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// passwordErr reports whether a pdfcpu failure is about credentials rather
// than structure. pdfcpu exposes no sentinel for this.
func passwordErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "password")
}

// HasImages reports whether any page carries image XObjects. Combined with an
// empty text layer it means a scanned document.
func (e *Extractor) HasImages(ctx context.Context, data []byte, password string) bool {
	pctx, err := readContext(data, password)
	if err != nil {
		return false
	}

	if pctx.Optimize != nil {
		for page := 1; page <= pctx.PageCount; page++ {
			if ctx.Err() != nil {
				return false
			}
			if len(pdfcpu.ImageObjNrs(pctx, page)) > 0 {
				return true
			}
		}
	}
	for _, entry := range pctx.Table {
		if entry == nil || entry.Free || entry.Compressed {
			continue
		}
		sd, ok := entry.Object.(types.StreamDict)
		if !ok {
			continue
		}
		if subtype, found := sd.Find("Subtype"); found {
			if name, isName := subtype.(types.Name); isName && name == "Image" {
				return true
			}
		}
	}
	return false
}

// streamText parses the raw page content streams for text operators. It is
// the last rung of the extraction ladder, for files whose text metadata the
// structured reader chokes on.
func streamText(data []byte, password string) (string, error) {
	pctx, err := readContext(data, password)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for page := 1; page <= pctx.PageCount; page++ {
		r, err := pdfcpu.ExtractPageContent(pctx, page)
		if err != nil {
			continue
		}
		raw, err := io.ReadAll(r)
		if err != nil || len(raw) == 0 {
			continue
		}
		if text := operatorText(raw); text != "" {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(text)
		}
	}
	return b.String(), nil
}

var pdfStringRe = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)

// operatorText walks content-stream lines and collects the arguments of the
// text-showing operators, turning positioning operators into line breaks.
func operatorText(data []byte) string {
	var b strings.Builder
	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				if s := decodePDFString(m[1]); s != "" {
					b.WriteString(s)
					b.WriteByte(' ')
				}
			}
		case bytes.HasSuffix(line, []byte("'")), bytes.HasSuffix(line, []byte(`"`)):
			if !bytes.Contains(line, []byte("(")) {
				continue
			}
			b.WriteByte('\n')
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				b.WriteString(decodePDFString(m[1]))
			}
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")),
			bytes.Equal(line, []byte("T*")), bytes.Equal(line, []byte("ET")):
			b.WriteByte('\n')
		}
	}

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// decodePDFString resolves backslash escapes and octal codes in a PDF string
// literal.
func decodePDFString(raw []byte) string {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			b.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case '\\', '(', ')':
			b.WriteByte(raw[i])
		default:
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for k := 0; k < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; k++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				b.WriteByte(byte(val))
			} else {
				b.WriteByte(raw[i])
			}
		}
	}
	return b.String()
}
