package fetcher

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Float decodes a JSON number, a numeric string (French decimal comma
// allowed) or null. Open-data exports mix all three for the same column.
type Float float64

// UnmarshalJSON implements json.Unmarshaler.
func (f *Float) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return eris.Wrap(err, "flex: decode string")
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		s = strings.ReplaceAll(s, " ", "")
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return eris.Wrapf(err, "flex: parse %q", s)
		}
		*f = Float(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return eris.Wrap(err, "flex: decode number")
	}
	*f = Float(v)
	return nil
}
