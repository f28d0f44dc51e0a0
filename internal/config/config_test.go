package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.SessionBackend != BackendMemory || cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ModelPath != "" || cfg.LabelsPath != "" {
		t.Fatalf("artifact paths should default to bundled")
	}
	if !strings.Contains(cfg.SQLitePath, "mode=memory") {
		t.Fatalf("sqlite default=%q", cfg.SQLitePath)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"EPDS_ADDR":            ":9090",
		"EPDS_SESSION_BACKEND": " Redis ",
		"EPDS_SESSION_TTL":     "30m",
		"EPDS_CORS_ORIGINS":    "http://a.test,http://b.test",
		"EPDS_TRACE_EXPORTER":  "STDOUT",
		"EPDS_PDF_FONT":        "/fonts/NotoSans.ttf",
	})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Addr != ":9090" || cfg.SessionBackend != BackendRedis || cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("overrides ignored: %+v", cfg)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "http://b.test" {
		t.Fatalf("origins=%v", cfg.CORSOrigins)
	}
	if cfg.TraceExporter != "stdout" {
		t.Fatalf("exporter=%q", cfg.TraceExporter)
	}
	if cfg.PDFFontPath != "/fonts/NotoSans.ttf" {
		t.Fatalf("pdf font=%q", cfg.PDFFontPath)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []map[string]string{
		{"EPDS_SESSION_BACKEND": "postgres"},
		{"EPDS_SESSION_TTL": "0s"},
		{"EPDS_SESSION_TTL": "soon"},
		{"EPDS_TRACE_EXPORTER": "jaeger"},
	}
	for _, vars := range cases {
		if _, err := LoadFrom(vars); err == nil {
			t.Fatalf("expected error for %v", vars)
		}
	}
}
