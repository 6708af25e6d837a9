package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHex(t *testing.T) {
	require.Equal(t, `null`, string(Hex(nil, nil)))
	require.Equal(t, `""`, string(Hex(nil, []byte{})))
	require.Equal(t, `"0xdead"`, string(Hex(nil, []byte{0xde, 0xad})))
}

func TestStr(t *testing.T) {
	require.Equal(t, `"plain"`, string(Str(nil, "plain")))
	require.Equal(t, `"a\"b\\c"`, string(Str(nil, `a"b\c`)))
	require.Equal(t, `"a\nb\rc\td"`, string(Str(nil, "a\nb\rc\td")))
	require.Equal(t, `"\u0001"`, string(Str(nil, "\x01")))
}

func TestU64(t *testing.T) {
	require.Equal(t, "0", string(U64(nil, 0)))
	require.Equal(t, "42", string(U64(nil, 42)))
}

func TestGetInt(t *testing.T) {
	n, err := GetInt([]byte(`{"read_buf": 8192}`), "read_buf")
	require.NoError(t, err)
	require.Equal(t, int64(8192), n)

	_, err = GetInt([]byte(`{}`), "missing")
	require.Error(t, err)
}

func TestGetBool(t *testing.T) {
	b, err := GetBool([]byte(`{"permissive": true}`), "permissive")
	require.NoError(t, err)
	require.True(t, b)

	b, err = GetBool([]byte(`{"permissive": false}`), "permissive")
	require.NoError(t, err)
	require.False(t, b)
}
