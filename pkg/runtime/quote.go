package runtime

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Quote helpers render wrapper arguments as SQL literals. Generated
// wrappers inline every non-LOB parameter into the call text; only
// LOB-typed parameters go through the bind/stream protocol.

// QuoteString renders a string literal with MySQL escaping.
func QuoteString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		case 0:
			b.WriteString(`\0`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case 0x1a:
			b.WriteString(`\Z`)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// QuoteInt renders an integer literal.
func QuoteInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

// QuoteFloat renders a floating-point literal.
func QuoteFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// QuoteBytes renders a binary literal in hex form, or NULL for nil.
func QuoteBytes(v []byte) string {
	if v == nil {
		return "NULL"
	}
	if len(v) == 0 {
		return "''"
	}
	return fmt.Sprintf("x'%s'", hex.EncodeToString(v))
}
