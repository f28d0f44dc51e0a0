package classifier

import "testing"

func TestBundledLabels(t *testing.T) {
	l, err := LoadLabels("")
	if err != nil {
		t.Fatalf("LoadLabels: %v", err)
	}
	want := []string{"Mild", "Moderate", "Severe", "Profound"}
	for i, label := range want {
		got, err := l.Decode(i)
		if err != nil || got != label {
			t.Fatalf("Decode(%d)=%q,%v want %q", i, got, err, label)
		}
		if back, ok := l.Encode(label); !ok || back != i {
			t.Fatalf("Encode(%q)=%d,%v want %d", label, back, ok, i)
		}
	}
	if _, err := l.Decode(4); err == nil {
		t.Fatalf("Decode(4) expected error")
	}
	if _, err := l.Decode(-1); err == nil {
		t.Fatalf("Decode(-1) expected error")
	}
}

func TestParseLabelsRejectsDuplicates(t *testing.T) {
	if _, err := ParseLabels([]byte("classes: [Mild, Mild]")); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if _, err := ParseLabels([]byte("classes: []")); err == nil {
		t.Fatalf("expected empty error")
	}
	if _, err := ParseLabels([]byte("classes: [Mild, ' ']")); err == nil {
		t.Fatalf("expected blank label error")
	}
}

func TestCheckCompatible(t *testing.T) {
	m, err := LoadModel("")
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	l, err := LoadLabels("")
	if err != nil {
		t.Fatalf("LoadLabels: %v", err)
	}
	if err := CheckCompatible(m, l); err != nil {
		t.Fatalf("bundled artifacts incompatible: %v", err)
	}
	short, _ := ParseLabels([]byte("classes: [Mild, Moderate]"))
	if err := CheckCompatible(m, short); err == nil {
		t.Fatalf("expected mismatch error")
	}
}
