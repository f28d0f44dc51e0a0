package classifier

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

type labelArtifact struct {
	Classes []string `yaml:"classes"`
}

// LabelEncoder maps ordinal class ids to risk labels and back.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// LoadLabels reads the label artifact at path, or the bundled one when path
// is empty.
func LoadLabels(path string) (*LabelEncoder, error) {
	data, err := readArtifact(path, defaultLabelsFile)
	if err != nil {
		return nil, err
	}
	return ParseLabels(data)
}

// ParseLabels decodes a label artifact. Labels must be non-empty and unique.
func ParseLabels(data []byte) (*LabelEncoder, error) {
	var art labelArtifact
	if err := yaml.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("decode label artifact: %w", err)
	}
	if len(art.Classes) == 0 {
		return nil, errors.New("label artifact has no classes")
	}
	index := make(map[string]int, len(art.Classes))
	for i, label := range art.Classes {
		label = strings.TrimSpace(label)
		if label == "" {
			return nil, fmt.Errorf("label %d is empty", i)
		}
		if _, dup := index[label]; dup {
			return nil, fmt.Errorf("label %q appears twice", label)
		}
		index[label] = i
		art.Classes[i] = label
	}
	return &LabelEncoder{classes: art.Classes, index: index}, nil
}

// Decode returns the label of an ordinal class id.
func (l *LabelEncoder) Decode(ordinal int) (string, error) {
	if ordinal < 0 || ordinal >= len(l.classes) {
		return "", fmt.Errorf("class id %d has no label", ordinal)
	}
	return l.classes[ordinal], nil
}

// Encode is the inverse of Decode.
func (l *LabelEncoder) Encode(label string) (int, bool) {
	i, ok := l.index[label]
	return i, ok
}

// Classes returns the labels in ordinal order.
func (l *LabelEncoder) Classes() []string {
	return append([]string(nil), l.classes...)
}

// CheckCompatible reports whether every class the model can emit has a label.
func CheckCompatible(m *Model, l *LabelEncoder) error {
	if m.Classes() != len(l.classes) {
		return fmt.Errorf("model emits %d classes but label table has %d", m.Classes(), len(l.classes))
	}
	return nil
}
