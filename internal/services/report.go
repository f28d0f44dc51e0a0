package services

import (
	"strings"
	"time"
	"unicode"

	"github.com/soaringjerry/epds/internal/models"
)

// RiskBand is a row of the explanatory table shown next to results.
type RiskBand struct {
	Ordinal int    `json:"ordinal"`
	Label   string `json:"label"`
	Tip     string `json:"tip"`
}

var tips = map[string]string{
	"Mild":     "Keep up routines that help you rest, and talk with someone you trust about how you feel.",
	"Moderate": "Consider speaking with your doctor, midwife or health visitor about how you have been feeling.",
	"Severe":   "Please contact a healthcare professional soon to discuss these results and the support available.",
	"Profound": "Please reach out to a healthcare professional or a crisis line today. You do not have to face this alone.",
}

// TipFor returns the advice text shown for a risk label, or "" if none.
func TipFor(label string) string {
	return tips[label]
}

// RiskBands lists labels in ordinal order as decoded by dec.
func RiskBands(dec LabelDecoder, classes int) []RiskBand {
	out := make([]RiskBand, 0, classes)
	for i := 0; i < classes; i++ {
		label, err := dec.Decode(i)
		if err != nil {
			continue
		}
		out = append(out, RiskBand{Ordinal: i, Label: label, Tip: TipFor(label)})
	}
	return out
}

// Report is the read-only snapshot handed to the gauge and document renderers.
type Report struct {
	Name        string
	Age         int
	Place       string
	Support     models.FamilySupport
	Answers     []int
	Score       int
	Prediction  models.Prediction
	Tip         string
	GeneratedAt time.Time
}

// NewReport snapshots a finished session and its prediction.
func NewReport(s models.Session, p models.Prediction, now time.Time) *Report {
	return &Report{
		Name:        s.Profile.Name,
		Age:         s.Profile.Age,
		Place:       s.Profile.Place,
		Support:     s.Profile.Support,
		Answers:     append([]int(nil), s.Answers...),
		Score:       EPDSScore(s.Answers),
		Prediction:  p,
		Tip:         TipFor(p.Label),
		GeneratedAt: now,
	}
}

// FileName is the download name of the PDF report.
func (r *Report) FileName() string {
	name := strings.Map(func(c rune) rune {
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '-' {
			return c
		}
		return -1
	}, strings.Join(strings.Fields(r.Name), "_"))
	if name == "" {
		name = "Respondent"
	}
	return name + "_PPD_Result.pdf"
}
