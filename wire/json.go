package wire

import "github.com/svnwire/svnwire/internal/jsonutil"

// AppendJSON appends a JSON representation of it to dst, for logging and
// test assertions only — it never travels on the wire. Strings are
// rendered as hex (they may contain arbitrary bytes, including NUL)
// rather than as JSON strings, to stay lossless.
func (it Item) AppendJSON(dst []byte) []byte {
	switch it.Kind {
	case NUMBER:
		return jsonutil.U64(dst, it.num)
	case STRING:
		return jsonutil.Hex(dst, it.str)
	case WORD:
		return jsonutil.Str(dst, string(it.str))
	case LIST:
		dst = append(dst, '[')
		for i, sub := range it.list {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst = sub.AppendJSON(dst)
		}
		return append(dst, ']')
	default:
		return append(dst, `null`...)
	}
}
