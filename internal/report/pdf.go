package report

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/soaringjerry/epds/internal/models"
	"github.com/soaringjerry/epds/internal/services"
)

const (
	pdfTitle      = "Postpartum Depression Risk Prediction"
	pdfDisclaimer = "This screening result is for awareness only and is not a diagnosis. Please consult a healthcare professional."
	gaugeImage    = "gauge"
	fontFamily    = "body"
)

// Fonts are the TrueType faces embedded in the PDF. The Go fonts cover Latin,
// Greek and Cyrillic text; names in other scripts need a font that has them.
type Fonts struct {
	Regular, Bold, Italic []byte
}

// DefaultFonts returns the bundled Go fonts.
func DefaultFonts() Fonts {
	return Fonts{Regular: goregular.TTF, Bold: gobold.TTF, Italic: goitalic.TTF}
}

// LoadFonts reads one TrueType file and uses it for every style. An empty
// path returns DefaultFonts.
func LoadFonts(path string) (Fonts, error) {
	if path == "" {
		return DefaultFonts(), nil
	}
	ttf, err := os.ReadFile(path)
	if err != nil {
		return Fonts{}, fmt.Errorf("read pdf font: %w", err)
	}
	return Fonts{Regular: ttf, Bold: ttf, Italic: ttf}, nil
}

// Renderer draws the gauge on [0, MaxRisk] and lays out the PDF with Fonts.
type Renderer struct {
	MaxRisk int
	Fonts   Fonts
}

// NewRenderer sizes the gauge for a model with the given number of ordinal
// classes.
func NewRenderer(classes int, fonts Fonts) *Renderer {
	maxRisk := classes - 1
	if maxRisk < 1 {
		maxRisk = 1
	}
	return &Renderer{MaxRisk: maxRisk, Fonts: fonts}
}

// Gauge renders the risk gauge of r.
func (rd *Renderer) Gauge(r *services.Report) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("nil report")
	}
	return RenderGauge(r.Prediction.Ordinal, rd.MaxRisk, r.Prediction.Label)
}

// Render produces the gauge and the PDF for a finished session.
func (rd *Renderer) Render(r *services.Report) (gaugePNG, document []byte, err error) {
	gaugePNG, err = rd.Gauge(r)
	if err != nil {
		return nil, nil, err
	}
	document, err = RenderPDF(r, gaugePNG, rd.Fonts)
	if err != nil {
		return nil, nil, err
	}
	return gaugePNG, document, nil
}

// RenderPDF lays out the result summary on a single A4 page. gauge, when
// non-empty, must be a PNG and is embedded below the summary.
func RenderPDF(r *services.Report, gauge []byte, fonts Fonts) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("nil report")
	}
	if len(fonts.Regular) == 0 {
		fonts = DefaultFonts()
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(pdfTitle, true)
	pdf.SetCreator("epds", true)
	pdf.SetCreationDate(r.GeneratedAt)
	pdf.SetModificationDate(r.GeneratedAt)
	pdf.AddUTF8FontFromBytes(fontFamily, "", fonts.Regular)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", orRegular(fonts.Bold, fonts.Regular))
	pdf.AddUTF8FontFromBytes(fontFamily, "I", orRegular(fonts.Italic, fonts.Regular))
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("load pdf font: %w", err)
	}

	pdf.AddPage()
	pdf.SetFont(fontFamily, "B", 16)
	pdf.CellFormat(0, 12, pdfTitle, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	line := func(label, value string) {
		pdf.SetFont(fontFamily, "B", 12)
		pdf.CellFormat(55, 8, label, "", 0, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", 12)
		pdf.CellFormat(0, 8, value, "", 1, "L", false, 0, "")
	}
	line("Name:", r.Name)
	line("Age:", fmt.Sprintf("%d", r.Age))
	if r.Place != "" {
		line("Place:", r.Place)
	}
	line("Family Support Level:", string(r.Support))
	line("EPDS Score:", fmt.Sprintf("%d / %d", r.Score, models.MaxScore))
	line("Predicted Risk Level:", r.Prediction.Label)
	if !r.GeneratedAt.IsZero() {
		line("Generated:", r.GeneratedAt.Format("2006-01-02 15:04 MST"))
	}

	if r.Tip != "" {
		pdf.Ln(4)
		pdf.SetFont(fontFamily, "I", 12)
		pdf.MultiCell(0, 7, r.Tip, "", "L", false)
	}

	if len(gauge) > 0 {
		pdf.Ln(6)
		opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		pdf.RegisterImageOptionsReader(gaugeImage, opts, bytes.NewReader(gauge))
		pdf.ImageOptions(gaugeImage, 45, pdf.GetY(), 120, 0, true, opts, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont(fontFamily, "", 9)
	pdf.MultiCell(0, 5, pdfDisclaimer, "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func orRegular(style, regular []byte) []byte {
	if len(style) == 0 {
		return regular
	}
	return style
}
