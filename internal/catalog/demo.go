package catalog

import (
	"bytes"
	_ "embed"
)

//go:embed demo.json
var demoBundle []byte

// Demo returns the bundled sample catalog: contacts, sales orders and the
// actions that browse them.
func Demo() (*Bundle, error) {
	return DecodeBundle(bytes.NewReader(demoBundle), FormatJSON)
}
