// Package jsonutil provides small byte-level JSON helpers shared by the
// debug/observability code in wire and by server. It is not used on the wire
// protocol itself, only for logging and for loading JSON-shaped server
// configuration.
package jsonutil

import (
	"strconv"

	jsp "github.com/buger/jsonparser"
)

const hextable = "0123456789abcdef"

// Hex appends a hex-encoded, double-quoted JSON string to dst, or the
// JSON literal null/"" for nil/empty src.
func Hex(dst []byte, src []byte) []byte {
	if src == nil {
		return append(dst, `null`...)
	} else if len(src) == 0 {
		return append(dst, `""`...)
	}

	dst = append(dst, `"0x`...)
	for _, v := range src {
		dst = append(dst, hextable[v>>4], hextable[v&0x0f])
	}
	return append(dst, '"')
}

// Str appends src as a properly-escaped, double-quoted JSON string.
func Str(dst []byte, src string) []byte {
	dst = append(dst, '"')
	for i := 0; i < len(src); i++ {
		b := src[i]
		switch {
		case b == '"' || b == '\\':
			dst = append(dst, '\\', b)
		case b == '\n':
			dst = append(dst, '\\', 'n')
		case b == '\r':
			dst = append(dst, '\\', 'r')
		case b == '\t':
			dst = append(dst, '\\', 't')
		case b < 0x20:
			dst = append(dst, '\\', 'u', '0', '0', hextable[b>>4], hextable[b&0x0f])
		default:
			dst = append(dst, b)
		}
	}
	return append(dst, '"')
}

func U64(dst []byte, v uint64) []byte {
	return strconv.AppendUint(dst, v, 10)
}

// GetInt reads the value at the key path given as separate keys as an
// integer.
func GetInt(doc []byte, keys ...string) (int64, error) {
	return jsp.GetInt(doc, keys...)
}

// GetBool reads the value at the key path given as separate keys as a
// boolean.
func GetBool(doc []byte, keys ...string) (bool, error) {
	return jsp.GetBoolean(doc, keys...)
}
