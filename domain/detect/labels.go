package detect

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoLabels is returned when no class names can be found for a model.
var ErrNoLabels = errors.New("detect: no class labels")

// Label is one class id and its human readable name.
type Label struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type labelFile struct {
	Names yaml.Node `yaml:"names"`
}

// LoadClassLabels lists the classes a model can report. Template models have
// the single class {0, "target"}. Other models read a `names:` entry from
// "<model>.yaml" next to the model, falling back to "data.yaml" in the same
// directory. names may be a list or an id-to-name map.
func LoadClassLabels(modelPath string) ([]Label, error) {
	if modelPath == "" {
		return nil, ErrNoLabels
	}
	if IsTemplateModel(modelPath) {
		return []Label{{ID: 0, Name: "target"}}, nil
	}
	candidates := []string{
		strings.TrimSuffix(modelPath, filepath.Ext(modelPath)) + ".yaml",
		filepath.Join(filepath.Dir(modelPath), "data.yaml"),
	}
	for _, p := range candidates {
		raw, err := os.ReadFile(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("detect: read %s: %w", p, err)
		}
		labels, err := parseLabels(raw)
		if err != nil {
			return nil, fmt.Errorf("detect: parse %s: %w", p, err)
		}
		return labels, nil
	}
	return nil, fmt.Errorf("%w for %s", ErrNoLabels, modelPath)
}

func parseLabels(raw []byte) ([]Label, error) {
	var lf labelFile
	if err := yaml.Unmarshal(raw, &lf); err != nil {
		return nil, err
	}
	var out []Label
	switch lf.Names.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := lf.Names.Decode(&names); err != nil {
			return nil, err
		}
		for i, n := range names {
			out = append(out, Label{ID: i, Name: n})
		}
	case yaml.MappingNode:
		var names map[int]string
		if err := lf.Names.Decode(&names); err != nil {
			return nil, err
		}
		for id, n := range names {
			out = append(out, Label{ID: id, Name: n})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	default:
		return nil, ErrNoLabels
	}
	if len(out) == 0 {
		return nil, ErrNoLabels
	}
	return out, nil
}
