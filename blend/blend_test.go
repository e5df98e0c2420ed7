package blend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gaswelder/blendsql/value"
)

func TestPushSharesPrefix(t *testing.T) {
	row := value.Row{{Type: value.Int, Data: 1}}
	base := Push("a", []string{"id"}, &row, nil)
	left := Push("b", []string{"x"}, nil, base)
	right := Push("c", []string{"y"}, &row, base)

	require.Same(t, base, left.Next)
	require.Same(t, base, right.Next)
	require.Equal(t, 2, left.Len())
	require.Equal(t, 0, (*Context)(nil).Len())
}

func TestString(t *testing.T) {
	row := value.Row{{Type: value.Int, Data: 1}, {Type: value.String, Data: "alice"}}
	c := Push("b", []string{"x"}, nil, Push("a", []string{"id", "name"}, &row, nil))
	require.Equal(t, "b(none) -> a(1, alice)", c.String())
}
