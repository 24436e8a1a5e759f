package ocr

import (
	"context"
	"errors"

	"github.com/mlisboa17/assistente-pessoal-sub000/internal/domain/statement/parser"
	"github.com/mlisboa17/assistente-pessoal-sub000/internal/pdf"
)

// ImageSniffer reports whether a document carries raster images.
type ImageSniffer interface {
	HasImages(ctx context.Context, data []byte, password string) bool
}

// TextSource is the text capability handed to the parsing chain: the embedded
// text layer first, OCR only when the document has no text but does have
// images, which is the signature of a scan.
type TextSource struct {
	primary parser.TextExtractor
	sniffer ImageSniffer
	client  *Client
}

func NewTextSource(primary parser.TextExtractor, sniffer ImageSniffer, client *Client) *TextSource {
	return &TextSource{primary: primary, sniffer: sniffer, client: client}
}

func (s *TextSource) ExtractText(ctx context.Context, data []byte, password string) (string, error) {
	text, err := s.primary.ExtractText(ctx, data, password)
	if err == nil {
		return text, nil
	}
	if !errors.Is(err, pdf.ErrNoText) {
		return "", err
	}
	if s.client == nil || s.sniffer == nil || !s.sniffer.HasImages(ctx, data, password) {
		return "", err
	}

	text, ocrErr := s.client.ExtractText(ctx, data, password)
	if ocrErr != nil {
		if errors.Is(ocrErr, ErrUnavailable) {
			// The scan stays unreadable; report the original condition.
			return "", err
		}
		return "", ocrErr
	}
	return text, nil
}
