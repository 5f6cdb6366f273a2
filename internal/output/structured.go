package output

import (
	"encoding/json"
	"io"

	"github.com/stackmates/stackmates/internal/discovery"
	"github.com/stackmates/stackmates/internal/models"
	"gopkg.in/yaml.v3"
)

// StructuredFormatter emits machine-readable JSON or YAML
type StructuredFormatter struct {
	encode func(w io.Writer, v interface{}) error
}

func encodeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func encodeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (f *StructuredFormatter) Feed(w io.Writer, feed Feed) error {
	return f.encode(w, feed)
}

func (f *StructuredFormatter) Profile(w io.Writer, profile *discovery.Profile) error {
	return f.encode(w, profile)
}

func (f *StructuredFormatter) Users(w io.Writer, users []models.AccountProfile) error {
	if users == nil {
		users = []models.AccountProfile{}
	}
	return f.encode(w, users)
}

func (f *StructuredFormatter) Session(w io.Writer, view SessionView) error {
	return f.encode(w, view)
}
