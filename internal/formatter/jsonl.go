package formatter

import (
	"encoding/json"
	"io"
)

// JSON renders any value (a task, a task slice, a trace result) as
// indented JSON. Used for `-o json` across all trak subcommands.
type JSON struct {
	Pretty bool
}

// NewJSON creates a JSON formatter. Pretty defaults to true since JSON
// output here is for humans piping through jq, not a wire format.
func NewJSON() *JSON {
	return &JSON{Pretty: true}
}

// Format encodes v as JSON to w.
func (f *JSON) Format(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if f.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
