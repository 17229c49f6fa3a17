package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"nathanbeddoewebdev/actionmgr/internal/domain"
)

// Bundle is the import format of the catalog: action descriptors plus the
// server actions, model methods and records they refer to.
type Bundle struct {
	Actions       []domain.Action `json:"actions,omitempty"`
	ServerActions []ServerAction  `json:"server_actions,omitempty"`
	Methods       []Method        `json:"methods,omitempty"`
	Records       []Record        `json:"records,omitempty"`
}

// ServerAction is a stored server-side action. Running it returns Result,
// or closes the current dialog when Result is nil.
type ServerAction struct {
	ID     int64          `json:"id"`
	Name   string         `json:"name"`
	Model  string         `json:"model,omitempty"`
	Result *domain.Action `json:"result,omitempty"`
}

// Method is a model method reachable from an object button.
type Method struct {
	Model  string         `json:"model"`
	Name   string         `json:"name"`
	Result *domain.Action `json:"result,omitempty"`
}

// Record is one row shown by the list, form and graph views.
type Record struct {
	Model  string         `json:"model"`
	ID     int64          `json:"id"`
	Name   string         `json:"name"`
	Values map[string]any `json:"values,omitempty"`
}

// Field returns the value of field, with id and name served from the
// record itself.
func (r Record) Field(name string) (any, bool) {
	switch name {
	case "id":
		return r.ID, true
	case "name", "display_name":
		return r.Name, true
	}
	v, ok := r.Values[name]
	return v, ok
}

// Format names a bundle encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatOf picks the bundle format from a file extension. Unknown
// extensions are read as JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml", ".tml":
		return FormatTOML
	}
	return FormatJSON
}

// DecodeBundle reads a bundle. TOML documents are normalized through JSON so
// both formats share the descriptor decoding rules, e.g. views as
// [id, "type"] pairs.
func DecodeBundle(r io.Reader, format Format) (*Bundle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: read bundle: %w", err)
	}

	if format == FormatTOML {
		var doc map[string]any
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("catalog: parse toml bundle: %w", err)
		}
		if data, err = json.Marshal(doc); err != nil {
			return nil, fmt.Errorf("catalog: normalize toml bundle: %w", err)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var b Bundle
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("catalog: parse %s bundle: %w", format, err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// ReadBundleFile decodes the bundle at path.
func ReadBundleFile(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	defer f.Close()
	return DecodeBundle(f, FormatOf(path))
}

// Validate checks the fields the catalog keys rows on.
func (b *Bundle) Validate() error {
	seen := map[string]int64{}
	for i, a := range b.Actions {
		if a.ID <= 0 {
			return fmt.Errorf("catalog: action #%d (%q) needs a positive id", i, a.DisplayName())
		}
		if a.Kind == "" {
			return fmt.Errorf("catalog: action %d: %w", a.ID, domain.ErrUnsupportedKind)
		}
		if a.XMLID == "" {
			continue
		}
		if other, dup := seen[a.XMLID]; dup && other != a.ID {
			return fmt.Errorf("catalog: xml id %q used by actions %d and %d", a.XMLID, other, a.ID)
		}
		seen[a.XMLID] = a.ID
	}
	for _, s := range b.ServerActions {
		if s.ID <= 0 {
			return fmt.Errorf("catalog: server action %q needs a positive id", s.Name)
		}
	}
	for _, m := range b.Methods {
		if m.Model == "" || m.Name == "" {
			return fmt.Errorf("catalog: method needs a model and a name, got %q.%q", m.Model, m.Name)
		}
	}
	for _, r := range b.Records {
		if r.Model == "" || r.ID <= 0 {
			return fmt.Errorf("catalog: record needs a model and a positive id, got %q/%d", r.Model, r.ID)
		}
	}
	return nil
}
