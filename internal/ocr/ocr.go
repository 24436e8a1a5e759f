// Package ocr recognizes text on scanned documents by rasterizing PDF pages
// with pdftoppm and running Tesseract over the images. The external binaries
// are slow and occasionally wedge, so every call goes through a circuit
// breaker: when OCR starts failing, uploads degrade to "no text" instead of
// queueing behind a dead subprocess.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// ErrUnavailable means OCR cannot run right now: the binaries are missing or
// the circuit breaker is open.
var ErrUnavailable = errors.New("ocr unavailable")

type Client struct {
	logger *slog.Logger
	cb     *gobreaker.CircuitBreaker
	lang   string
	dpi    int

	// Swapped out in tests; production always uses the real binaries.
	run       func(ctx context.Context, path, password string) (string, error)
	available func() bool
}

type Option func(*Client)

// WithLanguage sets the Tesseract language pack. The default is por.
func WithLanguage(lang string) Option {
	return func(c *Client) { c.lang = lang }
}

// WithDPI sets the rasterization resolution. The default of 300 is the
// practical floor for recognizing the small print on tax guides.
func WithDPI(dpi int) Option {
	return func(c *Client) { c.dpi = dpi }
}

func New(logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		logger: logger,
		lang:   "por",
		dpi:    300,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ocr",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
	c.run = c.runBinaries
	c.available = binariesOnPath
	return c
}

// Available reports whether the required binaries are on PATH.
func (c *Client) Available() bool {
	return c.available()
}

func binariesOnPath() bool {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return false
	}
	if _, err := exec.LookPath("tesseract"); err != nil {
		return false
	}
	return true
}

// ExtractText recognizes the text of a scanned document. The password is
// passed to the rasterizer for protected files.
func (c *Client) ExtractText(ctx context.Context, data []byte, password string) (string, error) {
	if !c.Available() {
		return "", ErrUnavailable
	}

	tmp, err := os.CreateTemp("", "scan-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	result, err := c.cb.Execute(func() (any, error) {
		return c.run(ctx, tmp.Name(), password)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.logger.Warn("ocr circuit open, skipping recognition")
			return "", ErrUnavailable
		}
		return "", err
	}
	return result.(string), nil
}

// runBinaries rasterizes every page and recognizes them one by one. A page
// that fails recognition is skipped; only a fully empty result is an error.
func (c *Client) runBinaries(ctx context.Context, path, password string) (string, error) {
	tmpDir, err := os.MkdirTemp("", "ocr-pages-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", fmt.Sprint(c.dpi), "-png"}
	if password != "" {
		args = append(args, "-upw", password)
	}
	args = append(args, path, prefix)
	if out, err := exec.CommandContext(ctx, "pdftoppm", args...).CombinedOutput(); err != nil {
		return "", fmt.Errorf("pdftoppm: %w (%s)", err, strings.TrimSpace(string(out)))
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		return "", fmt.Errorf("read page dir: %w", err)
	}
	var images []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".png") {
			images = append(images, filepath.Join(tmpDir, e.Name()))
		}
	}
	sort.Strings(images)
	if len(images) == 0 {
		return "", errors.New("rasterizer produced no pages")
	}

	var pages []string
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		base := strings.TrimSuffix(img, ".png") + "-ocr"
		// PSM 4: one column of text in variable sizes, the usual shape
		// of statements and payment slips.
		cmd := exec.CommandContext(ctx, "tesseract", img, base, "-l", c.lang, "--psm", "4")
		if out, err := cmd.CombinedOutput(); err != nil {
			c.logger.Warn("tesseract failed on page", "image", filepath.Base(img), "err", err, "output", strings.TrimSpace(string(out)))
			continue
		}
		raw, err := os.ReadFile(base + ".txt")
		if err != nil {
			continue
		}
		if text := strings.TrimSpace(string(raw)); text != "" {
			pages = append(pages, text)
		}
	}
	if len(pages) == 0 {
		return "", fmt.Errorf("ocr produced no text from %d pages", len(images))
	}
	return strings.Join(pages, "\n"), nil
}
