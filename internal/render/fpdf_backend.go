package render

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"io"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"ici-report/internal/assets"
)

// helveticaAscent is the Helvetica ascender as a fraction of the font size.
const helveticaAscent = 0.718

// DocumentInfo is written into the document metadata.
type DocumentInfo struct {
	Title   string
	Author  string
	Creator string
}

// FpdfBackend draws on a Letter page through go-pdf/fpdf.
type FpdfBackend struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	size   float64
	images map[string]string // ref -> registered name, "" when registration failed
	logger *zap.Logger
}

var _ Backend = (*FpdfBackend)(nil)

// NewFpdfBackend creates a Letter portrait document measured in points.
// Automatic page breaks are disabled; the layout engine decides them.
func NewFpdfBackend(info DocumentInfo, logger *zap.Logger) *FpdfBackend {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetLineWidth(0.5)
	pdf.SetTitle(info.Title, true)
	pdf.SetAuthor(info.Author, true)
	if info.Creator != "" {
		pdf.SetCreator(info.Creator, true)
	}

	b := &FpdfBackend{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		images: make(map[string]string),
		logger: logger,
	}
	b.SetFont(false, 6)
	return b
}

func (b *FpdfBackend) AddPage() { b.pdf.AddPage() }

func (b *FpdfBackend) PageNo() int { return b.pdf.PageNo() }

func (b *FpdfBackend) SetFont(bold bool, size float64) {
	style := ""
	if bold {
		style = "B"
	}
	b.size = size
	b.pdf.SetFont("Helvetica", style, size)
}

func (b *FpdfBackend) SetTextColor(c Color) { b.pdf.SetTextColor(c[0], c[1], c[2]) }

func (b *FpdfBackend) SetFillColor(c Color) { b.pdf.SetFillColor(c[0], c[1], c[2]) }

func (b *FpdfBackend) SetDrawColor(c Color) { b.pdf.SetDrawColor(c[0], c[1], c[2]) }

func (b *FpdfBackend) Rect(x, y, w, h float64, style string) { b.pdf.Rect(x, y, w, h, style) }

func (b *FpdfBackend) Line(x1, y1, x2, y2 float64) { b.pdf.Line(x1, y1, x2, y2) }

func (b *FpdfBackend) Circle(x, y, r float64, style string) { b.pdf.Circle(x, y, r, style) }

func (b *FpdfBackend) Text(x, y float64, s string) {
	b.pdf.Text(x, y+b.size*helveticaAscent, b.tr(s))
}

// StringWidth measures s in the current font. Core fonts are single-byte, so
// the text is translated to cp1252 before measuring.
func (b *FpdfBackend) StringWidth(s string) float64 {
	return b.pdf.GetStringWidth(b.tr(s))
}

func (b *FpdfBackend) ClipRoundedRect(x, y, w, h, r float64) {
	b.pdf.ClipRoundedRect(x, y, w, h, r, false)
}

func (b *FpdfBackend) ClipEnd() { b.pdf.ClipEnd() }

// Image registers a on first use. A payload fpdf rejects is logged and
// skipped; the document error state is cleared so the build continues.
func (b *FpdfBackend) Image(ref string, a *assets.Asset, x, y, w, h float64) bool {
	if b.pdf.Err() || a == nil {
		return false
	}

	name, seen := b.images[ref]
	if !seen {
		sum := sha1.Sum([]byte(ref))
		name = "img-" + hex.EncodeToString(sum[:])
		opts := fpdf.ImageOptions{ImageType: a.Type}
		b.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(a.Data))
		if b.pdf.Err() {
			b.logger.Warn("Image rejected by PDF backend",
				zap.String("image", name),
				zap.String("type", a.Type),
				zap.Error(b.pdf.Error()),
			)
			b.pdf.ClearError()
			name = ""
		}
		b.images[ref] = name
	}
	if name == "" {
		return false
	}

	b.pdf.ImageOptions(name, x, y, w, h, false, fpdf.ImageOptions{ImageType: a.Type}, 0, "")
	return !b.pdf.Err()
}

func (b *FpdfBackend) Error() error { return b.pdf.Error() }

func (b *FpdfBackend) Output(w io.Writer) error { return b.pdf.Output(w) }
