// Package classifier loads the serialized risk model and its label table and
// evaluates single feature rows against them. The artifacts are produced by
// the training pipeline; this package only knows their wire shape.
package classifier

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed artifacts/*.yaml
var defaultArtifacts embed.FS

const (
	defaultModelFile  = "artifacts/ppd_model.yaml"
	defaultLabelsFile = "artifacts/label_encoder.yaml"

	modelFormat = "epds-tree/v1"
)

// ErrSchemaMismatch is returned when a row does not match the training schema.
var ErrSchemaMismatch = errors.New("feature row does not match model schema")

// Cell is one named value of a feature row. Value is an int for numeric
// columns and a string for categorical ones.
type Cell struct {
	Name  string
	Value any
}

// Row is a single-row table in training column order.
type Row []Cell

type ColumnKind string

const (
	KindInt      ColumnKind = "int"
	KindCategory ColumnKind = "category"
)

type Column struct {
	Name       string     `yaml:"name"`
	Kind       ColumnKind `yaml:"kind"`
	Categories []string   `yaml:"categories"`
}

type node struct {
	Feature   string  `yaml:"feature"`
	Threshold float64 `yaml:"threshold"`
	Left      int     `yaml:"left"`
	Right     int     `yaml:"right"`
	Class     *int    `yaml:"class"`
}

type modelArtifact struct {
	Format  string   `yaml:"format"`
	Classes int      `yaml:"classes"`
	Columns []Column `yaml:"columns"`
	Tree    []node   `yaml:"tree"`
}

// Model is a loaded decision-tree classifier. It is immutable after load and
// safe for concurrent use.
type Model struct {
	classes  int
	columns  []Column
	features map[string]int
	tree     []node
}

// LoadModel reads the model artifact at path, or the bundled artifact when
// path is empty.
func LoadModel(path string) (*Model, error) {
	data, err := readArtifact(path, defaultModelFile)
	if err != nil {
		return nil, err
	}
	return ParseModel(data)
}

// ParseModel decodes and validates a model artifact (YAML or JSON).
func ParseModel(data []byte) (*Model, error) {
	var art modelArtifact
	if err := yaml.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("decode model artifact: %w", err)
	}
	if art.Format != modelFormat {
		return nil, fmt.Errorf("unsupported model format %q", art.Format)
	}
	if art.Classes < 1 {
		return nil, errors.New("model artifact declares no classes")
	}
	if len(art.Columns) == 0 {
		return nil, errors.New("model artifact has no columns")
	}
	if len(art.Tree) == 0 {
		return nil, errors.New("model artifact has an empty tree")
	}

	features := map[string]int{}
	seen := map[string]bool{}
	for _, col := range art.Columns {
		if col.Name == "" {
			return nil, errors.New("model column without name")
		}
		if seen[col.Name] {
			return nil, fmt.Errorf("duplicate model column %q", col.Name)
		}
		seen[col.Name] = true
		switch col.Kind {
		case KindInt:
			features[col.Name] = len(features)
		case KindCategory:
			if len(col.Categories) == 0 {
				return nil, fmt.Errorf("categorical column %q has no categories", col.Name)
			}
			for _, cat := range col.Categories {
				name := oneHotName(col.Name, cat)
				if _, dup := features[name]; dup {
					return nil, fmt.Errorf("duplicate feature %q", name)
				}
				features[name] = len(features)
			}
		default:
			return nil, fmt.Errorf("column %q has unknown kind %q", col.Name, col.Kind)
		}
	}

	for i, n := range art.Tree {
		if n.Class != nil {
			if *n.Class < 0 || *n.Class >= art.Classes {
				return nil, fmt.Errorf("tree node %d: class %d out of range", i, *n.Class)
			}
			continue
		}
		if _, ok := features[n.Feature]; !ok {
			return nil, fmt.Errorf("tree node %d: unknown feature %q", i, n.Feature)
		}
		for _, child := range []int{n.Left, n.Right} {
			if child <= i || child >= len(art.Tree) {
				return nil, fmt.Errorf("tree node %d: child %d out of range", i, child)
			}
		}
	}

	return &Model{
		classes:  art.Classes,
		columns:  art.Columns,
		features: features,
		tree:     art.Tree,
	}, nil
}

// Classes is the number of ordinal classes the model emits.
func (m *Model) Classes() int { return m.classes }

// Columns returns the training schema.
func (m *Model) Columns() []Column {
	return append([]Column(nil), m.columns...)
}

// Predict encodes row and walks the tree to a class id.
func (m *Model) Predict(row Row) (int, error) {
	x, err := m.encode(row)
	if err != nil {
		return 0, err
	}
	// Children always sit after their parent, so descent terminates.
	i := 0
	for {
		n := m.tree[i]
		if n.Class != nil {
			return *n.Class, nil
		}
		if x[m.features[n.Feature]] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func (m *Model) encode(row Row) ([]float64, error) {
	if len(row) != len(m.columns) {
		return nil, fmt.Errorf("%w: got %d columns, want %d", ErrSchemaMismatch, len(row), len(m.columns))
	}
	x := make([]float64, len(m.features))
	for i, col := range m.columns {
		cell := row[i]
		if cell.Name != col.Name {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrSchemaMismatch, i, cell.Name, col.Name)
		}
		switch col.Kind {
		case KindInt:
			v, ok := cell.Value.(int)
			if !ok {
				return nil, fmt.Errorf("%w: column %q wants int, got %T", ErrSchemaMismatch, col.Name, cell.Value)
			}
			x[m.features[col.Name]] = float64(v)
		case KindCategory:
			s, ok := cell.Value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: column %q wants category, got %T", ErrSchemaMismatch, col.Name, cell.Value)
			}
			idx, ok := m.features[oneHotName(col.Name, s)]
			if !ok {
				return nil, fmt.Errorf("%w: column %q has unknown category %q", ErrSchemaMismatch, col.Name, s)
			}
			x[idx] = 1
		}
	}
	return x, nil
}

func oneHotName(column, category string) string {
	return column + "_" + category
}

func readArtifact(path, fallback string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		data, err := defaultArtifacts.ReadFile(fallback)
		if err != nil {
			return nil, fmt.Errorf("read bundled artifact %s: %w", fallback, err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}
