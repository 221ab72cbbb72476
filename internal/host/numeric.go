package host

import (
	"strconv"
	"strings"

	"github.com/kotoscript/koto/internal/value"
)

// parseNumber backs Str.to_number: an Int if the text parses as one,
// else a Float, else Null (koto_runtime's to_number returns Empty rather
// than throwing on unparseable input).
func parseNumber(s string) (value.Value, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.IntVal(i), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.FloatVal(f), nil
	}
	return value.NullVal(), nil
}
