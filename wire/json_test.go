package wire

import "testing"

import "github.com/stretchr/testify/require"

func TestItemAppendJSON(t *testing.T) {
	a := NewArena()

	cases := []struct {
		name string
		item Item
		want string
	}{
		{"number", a.Number(42), `42`},
		{"string", a.String([]byte{0xde, 0xad}), `"0xdead"`},
		{"empty-string", a.String(nil), `null`},
		{"word", a.Word("mk"), `"mk"`},
		{"empty-list", a.List(), `[]`},
		{"nested-list", a.List(a.Number(1), a.Word("a")), `[1,"a"]`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, string(tc.item.AppendJSON(nil)))
		})
	}
}
