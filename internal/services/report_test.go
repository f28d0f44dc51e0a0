package services

import (
	"testing"
	"time"

	"github.com/soaringjerry/epds/internal/models"
)

func TestReportFileName(t *testing.T) {
	cases := map[string]string{
		"Asha":          "Asha_PPD_Result.pdf",
		"Asha  Rao":     "Asha_Rao_PPD_Result.pdf",
		"../etc/passwd": "etcpasswd_PPD_Result.pdf",
		"   ":           "Respondent_PPD_Result.pdf",
		"Zoë O'Connor":  "Zoë_OConnor_PPD_Result.pdf",
	}
	for name, want := range cases {
		r := &Report{Name: name}
		if got := r.FileName(); got != want {
			t.Fatalf("FileName(%q)=%q, want %q", name, got, want)
		}
	}
}

func TestNewReportSnapshotsSession(t *testing.T) {
	s := models.NewSession("S1", time.Now())
	s.Index = models.IndexResult
	s.Profile = models.Profile{Name: "Asha", Age: 28, Place: "Pune", Support: models.SupportHigh}
	s.Answers = []int{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	r := NewReport(s, models.Prediction{Ordinal: 1, Label: "Moderate"}, time.Now())
	s.Answers[0] = 3
	if r.Answers[0] != 1 {
		t.Fatalf("report shares answers with session")
	}
	if r.Score != 10 || r.Tip != TipFor("Moderate") || r.Place != "Pune" {
		t.Fatalf("unexpected report: %+v", r)
	}
}

func TestRiskBandsFollowDecoder(t *testing.T) {
	bands := RiskBands(stubDecoder{0: "Mild", 1: "Moderate", 3: "Profound"}, 4)
	if len(bands) != 3 {
		t.Fatalf("bands=%d, want 3", len(bands))
	}
	if bands[2].Ordinal != 3 || bands[2].Label != "Profound" || bands[2].Tip == "" {
		t.Fatalf("unexpected band: %+v", bands[2])
	}
}
