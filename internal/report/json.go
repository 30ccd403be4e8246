package report

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

type JSONFormatter struct {
	writer io.Writer
	indent bool
}

// NewJSONFormatter creates a JSON formatter. If indent is true the output is
// pretty-printed.
func NewJSONFormatter(w io.Writer, indent bool) *JSONFormatter {
	return &JSONFormatter{writer: w, indent: indent}
}

func (f *JSONFormatter) Format(r *Report) error {
	enc := json.NewEncoder(f.writer)
	if f.indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(r)
}

type YAMLFormatter struct {
	writer io.Writer
}

func NewYAMLFormatter(w io.Writer) *YAMLFormatter {
	return &YAMLFormatter{writer: w}
}

func (f *YAMLFormatter) Format(r *Report) error {
	enc := yaml.NewEncoder(f.writer)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return err
	}
	return enc.Close()
}
