// Package server wires wire.Conn, cmd.Dispatcher, edit.Txn and
// repo.MemRepo into a runnable TCP listener: one accept loop, one
// goroutine per connection.
package server

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"

	"github.com/svnwire/svnwire/caps"
	"github.com/svnwire/svnwire/internal/jsonutil"
)

// DefaultOptions is a ready-to-use Options value callers tweak a field
// at a time.
var DefaultOptions = Options{
	Logger:     &log.Logger,
	ReadBuf:    4096,
	WriteBuf:   4096,
	RateLimit:  0, // 0 disables per-command rate limiting
	Permissive: false,
}

// Options configures a Server. Construct via DefaultOptions, not the
// zero value.
type Options struct {
	Logger *zerolog.Logger // if nil, logging is disabled

	ReadBuf  int // per-connection wire.Conn read buffer size
	WriteBuf int // per-connection wire.Conn write buffer size

	// RateLimit caps commands/sec per connection for mutating edit
	// operations (mk/cp/mv/rm/put/add/copy_one/copy_tree/delete/alter);
	// 0 disables the limiter.
	RateLimit float64

	// Permissive enables Txn.Permissive (accepting a single conflicting
	// but effect-identical intervening change as a null merge) for every
	// transaction this server drives, independent of the negotiated
	// PermissiveMerge capability.
	Permissive bool

	// Offer lists the capability words this server advertises during
	// the connection greeting. Defaults to caps.TxnSourceCopy if nil.
	Offer *caps.Set
}

// FromStringMap coerces loosely-typed config (env vars, flag strings,
// a parsed JSON/TOML document) into o, using cast for the type
// coercion a config-file-driven deployment needs. Unknown keys are
// ignored; recognized keys: "read_buf", "write_buf", "rate_limit",
// "permissive".
func (o *Options) FromStringMap(m map[string]any) error {
	if v, ok := m["read_buf"]; ok {
		n, err := cast.ToIntE(v)
		if err != nil {
			return err
		}
		o.ReadBuf = n
	}
	if v, ok := m["write_buf"]; ok {
		n, err := cast.ToIntE(v)
		if err != nil {
			return err
		}
		o.WriteBuf = n
	}
	if v, ok := m["rate_limit"]; ok {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return err
		}
		o.RateLimit = f
	}
	if v, ok := m["permissive"]; ok {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return err
		}
		o.Permissive = b
	}
	return nil
}

// LoadJSON coerces config from a JSON document's top-level keys,
// reusing the byte-level jsonutil helpers instead of encoding/json so
// the wire-facing and config-facing JSON paths share one implementation.
func (o *Options) LoadJSON(doc []byte) error {
	if n, err := jsonutil.GetInt(doc, "read_buf"); err == nil {
		o.ReadBuf = int(n)
	}
	if n, err := jsonutil.GetInt(doc, "write_buf"); err == nil {
		o.WriteBuf = int(n)
	}
	if n, err := jsonutil.GetInt(doc, "rate_limit"); err == nil {
		o.RateLimit = float64(n)
	}
	if b, err := jsonutil.GetBool(doc, "permissive"); err == nil {
		o.Permissive = b
	}
	return nil
}
