package model

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldKind selects how a form field is parsed.
type FieldKind int

const (
	KindFloat FieldKind = iota
	KindInt
	KindString
	KindIntList
)

// FormField is one editable configuration key.
type FormField struct {
	Key   string
	Label string
	Kind  FieldKind
}

// FormFields are the keys shown in the window, in display order.
var FormFields = []FormField{
	{"x_pixels", "X Pixels", KindFloat},
	{"y_pixels", "Y Pixels", KindFloat},
	{"x_base_speed", "X Base Speed", KindFloat},
	{"y_base_speed", "Y Base Speed", KindFloat},
	{"x_target_offset", "X Target Offset (0-1)", KindFloat},
	{"y_target_offset", "Y Target Offset (0-1)", KindFloat},
	{"confidence", "Confidence (0-1)", KindFloat},
	{"classes", "Classes (e.g. 0,2)", KindIntList},
	{"cooldown_ms", "Cooldown ms", KindInt},
	{"hotkey", "Hotkey", KindString},
	{"model_path", "Model Path", KindString},
}

// FormatValue renders a configuration value for a text field.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, FormatValue(e))
		}
		return strings.Join(parts, ",")
	case []int:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, strconv.Itoa(e))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(x)
	}
}

// ParseChanges converts field texts keyed by FormField.Key into a change set.
// Fields that fail to parse are skipped and returned by key; empty string
// fields are skipped silently.
func ParseChanges(texts map[string]string) (map[string]any, []string) {
	changes := map[string]any{}
	var invalid []string
	for _, f := range FormFields {
		raw, ok := texts[f.Key]
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)
		v, ok := parseField(f.Kind, raw)
		switch {
		case ok:
			changes[f.Key] = v
		case raw != "":
			invalid = append(invalid, f.Key)
		}
	}
	return changes, invalid
}

func parseField(kind FieldKind, s string) (any, bool) {
	switch kind {
	case KindFloat:
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	case KindInt:
		i, err := strconv.Atoi(s)
		return i, err == nil
	case KindIntList:
		out := []int{}
		if s == "" {
			return out, true
		}
		for _, p := range strings.Split(s, ",") {
			i, err := strconv.Atoi(strings.TrimSpace(p))
			if err != nil {
				return nil, false
			}
			out = append(out, i)
		}
		return out, true
	default:
		return s, s != ""
	}
}
