package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCamel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"customer_get", "CustomerGet"},
		{"customer__get", "CustomerGet"},
		{"a", "A"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ToCamel(tt.in), "input %q", tt.in)
	}
}

func TestRegexStrategy_StripsPrefix(t *testing.T) {
	s, err := NewRegexStrategy("^shop_", "")
	require.NoError(t, err)

	name, ok := s.MethodName("shop_customer_get")
	require.True(t, ok)
	assert.Equal(t, "CustomerGet", name)
}

func TestRegexStrategy_CollapsingNames(t *testing.T) {
	// Stripping any module prefix maps two routines onto one wrapper
	// name; the sync engine reports this as a conflict.
	s, err := NewRegexStrategy("^[a-z]+_", "")
	require.NoError(t, err)

	a, ok := s.MethodName("shop_customer_get")
	require.True(t, ok)
	b, ok2 := s.MethodName("crm_customer_get")
	require.True(t, ok2)
	assert.Equal(t, a, b)
}

func TestRegexStrategy_EmptyResult(t *testing.T) {
	s, err := NewRegexStrategy(".*", "")
	require.NoError(t, err)

	_, ok := s.MethodName("anything")
	assert.False(t, ok)
}

func TestNewRegexStrategy_InvalidPattern(t *testing.T) {
	_, err := NewRegexStrategy("(", "")
	assert.ErrorContains(t, err, "invalid naming pattern")
}
