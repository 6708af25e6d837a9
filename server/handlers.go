package server

import (
	"bytes"

	"golang.org/x/time/rate"

	"github.com/svnwire/svnwire/caps"
	"github.com/svnwire/svnwire/cmd"
	"github.com/svnwire/svnwire/edit"
	"github.com/svnwire/svnwire/wire"
)

// withStream attaches data as content's Stream when content is a file
// carrying a byte payload, mirroring how the sender's Content.Stream is
// read to exhaustion by cmd.EncodeContent before the bytes ever reach
// the wire.
func withStream(content edit.Content, data []byte) edit.Content {
	if content.Kind == edit.KindFile && data != nil {
		content.Stream = bytes.NewReader(data)
	}
	return content
}

// session holds the one Txn a connection drives. Opened lazily by the
// first edit command and closed by complete/abort.
type session struct {
	repo edit.Repository
	txn  *edit.Txn
}

func (s *session) ensureTxn(base int64, permissive bool) (*edit.Txn, error) {
	if s.txn != nil {
		return s.txn, nil
	}
	txn, err := edit.NewTxn(base, s.repo)
	if err != nil {
		return nil, err
	}
	txn.Permissive = permissive
	s.txn = txn
	return txn, nil
}

// buildTable compiles the command handler table for one connection,
// closing over sess and o the way a per-connection callback slice
// closes over that connection's state.
func buildTable(sess *session, o *Options) *cmd.Table {
	var limiter *rate.Limiter
	if o.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(o.RateLimit), 1)
	}

	entries := []*cmd.Entry{
		{Name: "ping", Handler: handlePing},

		{Name: "mk", Handler: sess.handleMk(o), LimitRate: limiter},
		{Name: "cp", Handler: sess.handleCp(o), LimitRate: limiter},
		{Name: "mv", Handler: sess.handleMv(o), LimitRate: limiter},
		{Name: "res", Handler: sess.handleRes(o), LimitRate: limiter},
		{Name: "rm", Handler: sess.handleRm(o), LimitRate: limiter},
		{Name: "put", Handler: sess.handlePut(o), LimitRate: limiter},

		{Name: "add", Handler: sess.handleAdd(o), LimitRate: limiter},
		{Name: "copy_one", Handler: sess.handleCopyOne(o), LimitRate: limiter},
		{Name: "copy_tree", Handler: sess.handleCopyTree(o), LimitRate: limiter},
		{Name: "delete", Handler: sess.handleDelete(o), LimitRate: limiter},
		{Name: "alter", Handler: sess.handleAlter(o), LimitRate: limiter},

		{Name: "complete", Handler: sess.handleComplete, Terminal: true},
		{Name: "abort", Handler: sess.handleAbort, Terminal: true},
	}
	return &cmd.Table{Entries: entries}
}

func handlePing(ctx *cmd.Context) (wire.Item, error) {
	return ctx.Arena.List(), nil
}

// ---------------------------------------------------------------------
// path-addressed handlers: "(kind parent_loc name)", "(from parent_loc
// name)", "(from new_parent_loc name)", "(loc content)", "(loc)"
// ---------------------------------------------------------------------

func (s *session) handleMk(o *Options) cmd.HandlerFunc {
	return func(ctx *cmd.Context) (wire.Item, error) {
		items := ctx.Params.List()
		if len(items) != 3 {
			return wire.Item{}, cmd.Wrap(wire.ErrMalformed)
		}
		kind := decodeKind(items[0])
		parentLoc, err := cmd.DecodeTxnPath(items[1])
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		name := string(items[2].Str())

		txn, err := s.ensureTxn(parentLoc.Peg.Rev, o.Permissive)
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		id, err := txn.Mk(kind, parentLoc, name)
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		return ctx.Arena.List(cmd.EncodeNodeID(ctx.Arena, id)), nil
	}
}

func (s *session) handleCp(o *Options) cmd.HandlerFunc {
	return func(ctx *cmd.Context) (wire.Item, error) {
		items := ctx.Params.List()
		if len(items) != 3 {
			return wire.Item{}, cmd.Wrap(wire.ErrMalformed)
		}
		from, err := cmd.DecodePeg(items[0])
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		parentLoc, err := cmd.DecodeTxnPath(items[1])
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		name := string(items[2].Str())

		if from.InTxn() && !ctx.Caps.Has(caps.TxnSourceCopy) {
			return wire.Item{}, cmd.Wrap(caps.ErrUnsupported)
		}

		txn, err := s.ensureTxn(parentLoc.Peg.Rev, o.Permissive)
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		id, err := txn.Cp(from, parentLoc, name)
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		return ctx.Arena.List(cmd.EncodeNodeID(ctx.Arena, id)), nil
	}
}

func (s *session) handleMv(o *Options) cmd.HandlerFunc {
	return func(ctx *cmd.Context) (wire.Item, error) {
		items := ctx.Params.List()
		if len(items) != 3 {
			return wire.Item{}, cmd.Wrap(wire.ErrMalformed)
		}
		from, err := cmd.DecodePeg(items[0])
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		newParentLoc, err := cmd.DecodeTxnPath(items[1])
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		name := string(items[2].Str())

		txn, err := s.ensureTxn(newParentLoc.Peg.Rev, o.Permissive)
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		if err := txn.Mv(from, newParentLoc, name); err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		return ctx.Arena.List(), nil
	}
}

func (s *session) handleRes(o *Options) cmd.HandlerFunc {
	return func(ctx *cmd.Context) (wire.Item, error) {
		items := ctx.Params.List()
		if len(items) != 3 {
			return wire.Item{}, cmd.Wrap(wire.ErrMalformed)
		}
		from, err := cmd.DecodePeg(items[0])
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		parentLoc, err := cmd.DecodeTxnPath(items[1])
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		name := string(items[2].Str())

		txn, err := s.ensureTxn(parentLoc.Peg.Rev, o.Permissive)
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		id, err := txn.Res(from, parentLoc, name)
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		return ctx.Arena.List(cmd.EncodeNodeID(ctx.Arena, id)), nil
	}
}

func (s *session) handleRm(o *Options) cmd.HandlerFunc {
	return func(ctx *cmd.Context) (wire.Item, error) {
		items := ctx.Params.List()
		if len(items) != 1 {
			return wire.Item{}, cmd.Wrap(wire.ErrMalformed)
		}
		loc, err := cmd.DecodeTxnPath(items[0])
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}

		txn, err := s.ensureTxn(loc.Peg.Rev, o.Permissive)
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		if err := txn.Rm(loc); err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		return ctx.Arena.List(), nil
	}
}

func (s *session) handlePut(o *Options) cmd.HandlerFunc {
	return func(ctx *cmd.Context) (wire.Item, error) {
		items := ctx.Params.List()
		if len(items) != 2 {
			return wire.Item{}, cmd.Wrap(wire.ErrMalformed)
		}
		loc, err := cmd.DecodeTxnPath(items[0])
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		content, data, err := cmd.DecodeContent(items[1], ctx.Caps)
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		content = withStream(content, data)

		txn, err := s.ensureTxn(loc.Peg.Rev, o.Permissive)
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		if err := txn.Put(loc, content); err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		return ctx.Arena.List(), nil
	}
}

// ---------------------------------------------------------------------
// id-addressed handlers
// ---------------------------------------------------------------------

func (s *session) handleAdd(o *Options) cmd.HandlerFunc {
	return func(ctx *cmd.Context) (wire.Item, error) {
		items := ctx.Params.List()
		if len(items) != 5 {
			return wire.Item{}, cmd.Wrap(wire.ErrMalformed)
		}
		localID := cmd.DecodeNodeID(items[0])
		kind := decodeKind(items[1])
		newParentID := cmd.DecodeNodeID(items[2])
		name := string(items[3].Str())
		content, data, err := cmd.DecodeContent(items[4], ctx.Caps)
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		content = withStream(content, data)

		txn, err := s.ensureTxn(s.txnBase(), o.Permissive)
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		if err := txn.Add(localID, kind, newParentID, name, content); err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		return ctx.Arena.List(), nil
	}
}

func (s *session) handleCopyOne(o *Options) cmd.HandlerFunc {
	return func(ctx *cmd.Context) (wire.Item, error) {
		items := ctx.Params.List()
		if len(items) != 6 {
			return wire.Item{}, cmd.Wrap(wire.ErrMalformed)
		}
		localID := cmd.DecodeNodeID(items[0])
		srcRev := int64(items[1].Num())
		if items[1].Kind == wire.WORD {
			srcRev = -1
		}
		srcID := cmd.DecodeNodeID(items[2])
		newParentID := cmd.DecodeNodeID(items[3])
		name := string(items[4].Str())
		content, data, err := cmd.DecodeContent(items[5], ctx.Caps)
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		content = withStream(content, data)

		if srcRev < 0 && !ctx.Caps.Has(caps.TxnSourceCopy) {
			return wire.Item{}, cmd.Wrap(caps.ErrUnsupported)
		}

		txn, err := s.ensureTxn(s.txnBase(), o.Permissive)
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		if err := txn.CopyOne(localID, srcRev, srcID, newParentID, name, content); err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		return ctx.Arena.List(), nil
	}
}

func (s *session) handleCopyTree(o *Options) cmd.HandlerFunc {
	return func(ctx *cmd.Context) (wire.Item, error) {
		items := ctx.Params.List()
		if len(items) != 4 {
			return wire.Item{}, cmd.Wrap(wire.ErrMalformed)
		}
		srcRev := int64(items[0].Num())
		if items[0].Kind == wire.WORD {
			srcRev = -1
		}
		srcID := cmd.DecodeNodeID(items[1])
		newParentID := cmd.DecodeNodeID(items[2])
		name := string(items[3].Str())

		if srcRev < 0 && !ctx.Caps.Has(caps.TxnSourceCopy) {
			return wire.Item{}, cmd.Wrap(caps.ErrUnsupported)
		}

		txn, err := s.ensureTxn(s.txnBase(), o.Permissive)
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		id, err := txn.CopyTree(srcRev, srcID, newParentID, name)
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		return ctx.Arena.List(cmd.EncodeNodeID(ctx.Arena, id)), nil
	}
}

func (s *session) handleDelete(o *Options) cmd.HandlerFunc {
	return func(ctx *cmd.Context) (wire.Item, error) {
		items := ctx.Params.List()
		if len(items) != 2 {
			return wire.Item{}, cmd.Wrap(wire.ErrMalformed)
		}
		sinceRev := decodeSinceRev(items[0])
		id := cmd.DecodeNodeID(items[1])

		txn, err := s.ensureTxn(s.txnBase(), o.Permissive)
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		if err := txn.Delete(sinceRev, id); err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		return ctx.Arena.List(), nil
	}
}

func (s *session) handleAlter(o *Options) cmd.HandlerFunc {
	return func(ctx *cmd.Context) (wire.Item, error) {
		items := ctx.Params.List()
		if len(items) != 5 {
			return wire.Item{}, cmd.Wrap(wire.ErrMalformed)
		}
		sinceRev := decodeSinceRev(items[0])
		id := cmd.DecodeNodeID(items[1])
		newParentID := cmd.DecodeNodeID(items[2])
		name := string(items[3].Str())
		content, data, err := cmd.DecodeContent(items[4], ctx.Caps)
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		content = withStream(content, data)

		txn, err := s.ensureTxn(s.txnBase(), o.Permissive)
		if err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		if err := txn.Alter(sinceRev, id, newParentID, name, content); err != nil {
			return wire.Item{}, cmd.Wrap(err)
		}
		return ctx.Arena.List(), nil
	}
}

// ---------------------------------------------------------------------
// terminal handlers
// ---------------------------------------------------------------------

func (s *session) handleComplete(ctx *cmd.Context) (wire.Item, error) {
	if s.txn == nil {
		return ctx.Arena.List(ctx.Arena.Number(0)), nil
	}
	rev, err := s.txn.Complete()
	if err != nil {
		return wire.Item{}, cmd.Wrap(err)
	}
	return ctx.Arena.List(ctx.Arena.Number(uint64(rev))), nil
}

func (s *session) handleAbort(ctx *cmd.Context) (wire.Item, error) {
	if s.txn == nil {
		return ctx.Arena.List(), nil
	}
	if err := s.txn.Abort(); err != nil {
		return wire.Item{}, cmd.Wrap(err)
	}
	return ctx.Arena.List(), nil
}

// txnBase returns the base revision for an id-addressed op opening the
// transaction for the first time. id-addressed ops name no location to
// derive a base from, so the session's already-open txn base applies,
// or the repository's latest revision for a brand new one.
func (s *session) txnBase() int64 {
	if s.txn != nil {
		return s.txn.Base
	}
	return -1
}

func decodeKind(it wire.Item) edit.Kind {
	switch it.Word() {
	case "dir":
		return edit.KindDir
	case "file":
		return edit.KindFile
	case "symlink":
		return edit.KindSymlink
	default:
		return edit.KindUnknown
	}
}

// decodeSinceRev reads a since_rev field: the word "any" waives the OOD
// check (Txn semantics treat sinceRev < 0 that way), else a number.
func decodeSinceRev(it wire.Item) int64 {
	if it.Kind == wire.WORD && it.Word() == "any" {
		return -1
	}
	return int64(it.Num())
}
