// Package report renders the result artifacts: a gauge image of the risk
// ordinal and a printable PDF summary.
package report

import (
	"bytes"
	"fmt"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	gaugeWidth  = 600
	gaugeHeight = 380
	gaugeRadius = 210.0
	bandWidth   = 46.0
	barWidth    = 16.0
)

// Band is a coloured range of the gauge as a fraction of its scale.
type Band struct {
	From, To float64
	Color    string
}

// RiskBands split the gauge into low, raised and high thirds.
var RiskBands = []Band{
	{From: 0, To: 1.0 / 3, Color: "#90EE90"},
	{From: 1.0 / 3, To: 2.0 / 3, Color: "#FFD700"},
	{From: 2.0 / 3, To: 1, Color: "#FF0000"},
}

const barColor = "#FF1493"

var (
	fontOnce sync.Once
	fontErr  error
	goFont   *truetype.Font
)

func face(size float64) (font.Face, error) {
	fontOnce.Do(func() {
		goFont, fontErr = truetype.Parse(goregular.TTF)
	})
	if fontErr != nil {
		return nil, fmt.Errorf("parse gauge font: %w", fontErr)
	}
	return truetype.NewFace(goFont, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	}), nil
}

// RenderGauge draws a half-circle gauge for value on [0, max] and returns
// it PNG-encoded. label is printed under the readout when non-empty.
func RenderGauge(value, max int, label string) ([]byte, error) {
	if max <= 0 {
		return nil, fmt.Errorf("gauge max must be positive, got %d", max)
	}
	if value < 0 || value > max {
		return nil, fmt.Errorf("gauge value %d outside [0,%d]", value, max)
	}
	titleFace, err := face(30)
	if err != nil {
		return nil, err
	}
	numberFace, err := face(56)
	if err != nil {
		return nil, err
	}
	labelFace, err := face(26)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(gaugeWidth, gaugeHeight)
	dc.SetHexColor("#FFFFFF")
	dc.Clear()

	cx, cy := float64(gaugeWidth)/2, float64(gaugeHeight)-50
	angle := func(v float64) float64 {
		return math.Pi + (v/float64(max))*math.Pi
	}

	dc.SetLineCapButt()
	dc.SetLineWidth(bandWidth)
	for _, b := range RiskBands {
		from, to := math.Max(b.From, 0), math.Min(b.To, 1)
		if to <= from {
			continue
		}
		dc.SetHexColor(b.Color)
		dc.DrawArc(cx, cy, gaugeRadius, angle(from*float64(max)), angle(to*float64(max)))
		dc.Stroke()
	}

	if value > 0 {
		dc.SetHexColor(barColor)
		dc.SetLineWidth(barWidth)
		dc.DrawArc(cx, cy, gaugeRadius, angle(0), angle(float64(value)))
		dc.Stroke()
	}

	needle := angle(float64(value))
	dc.SetHexColor("#444444")
	dc.SetLineWidth(4)
	dc.DrawLine(cx, cy, cx+(gaugeRadius-bandWidth/2)*math.Cos(needle), cy+(gaugeRadius-bandWidth/2)*math.Sin(needle))
	dc.Stroke()
	dc.DrawCircle(cx, cy, 8)
	dc.Fill()

	dc.SetHexColor("#333333")
	dc.SetLineWidth(2)
	for tick := 0; tick <= max; tick++ {
		a := angle(float64(tick))
		inner, outer := gaugeRadius+bandWidth/2+4, gaugeRadius+bandWidth/2+14
		dc.DrawLine(cx+inner*math.Cos(a), cy+inner*math.Sin(a), cx+outer*math.Cos(a), cy+outer*math.Sin(a))
		dc.Stroke()
	}

	dc.SetHexColor("#222222")
	dc.SetFontFace(titleFace)
	dc.DrawStringAnchored("Risk Level", cx, 24, 0.5, 0.5)
	dc.SetFontFace(numberFace)
	dc.DrawStringAnchored(fmt.Sprintf("%d / %d", value, max), cx, cy-40, 0.5, 0.5)
	if label != "" {
		dc.SetFontFace(labelFace)
		dc.DrawStringAnchored(label, cx, cy+20, 0.5, 0.5)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
