package cmd

import (
	"crypto/sha1"
	"io"

	"github.com/svnwire/svnwire/caps"
	"github.com/svnwire/svnwire/edit"
	"github.com/svnwire/svnwire/wire"
)

// Content encodings named in the wire tuple's encoding slot. EncodingRaw
// is the only one this module's codec actually produces or decodes;
// EncodingSVNDiff1 is recognized only to be gated behind the negotiated
// caps.SVNDiff1 capability and rejected with ErrSVNDiff1Unsupported.
const (
	EncodingRaw      = "raw"
	EncodingSVNDiff1 = "svndiff1"
)

// This file marshals edit's domain types to/from wire.Item. It bypasses
// the 'r'/'c' tuple sentinels (their absent-value encodings collide with
// a legitimate empty revision or root relpath) and instead tags each
// field explicitly, matching how wire.Item is itself self-describing
// rather than positional.

// EncodeNodeID returns id as a word item.
func EncodeNodeID(a *wire.Arena, id edit.NodeID) wire.Item {
	return a.Word(string(id))
}

// DecodeNodeID reads a node-branch id from a word or string item.
func DecodeNodeID(it wire.Item) edit.NodeID {
	if it.Kind == wire.WORD {
		return edit.NodeID(it.Word())
	}
	return edit.NodeID(it.Str())
}

// EncodePeg returns peg as "(rev-or-txn relpath)": the first element is
// the word "txn" for PegPath.InTxn(), else a number; the second is
// always a string, so an empty root relpath round-trips.
func EncodePeg(a *wire.Arena, peg edit.PegPath) wire.Item {
	var revItem wire.Item
	if peg.InTxn() {
		revItem = a.Word("txn")
	} else {
		revItem = a.Number(uint64(peg.Rev))
	}
	return a.List(revItem, a.String([]byte(peg.RelPath)))
}

// DecodePeg reads a peg encoded by EncodePeg.
func DecodePeg(it wire.Item) (edit.PegPath, error) {
	if it.Kind != wire.LIST || it.Len() != 2 {
		return edit.PegPath{}, wire.ErrMalformed
	}
	items := it.List()
	rev := int64(-1)
	if items[0].Kind == wire.NUMBER {
		rev = int64(items[0].Num())
	} else if items[0].Kind != wire.WORD || items[0].Word() != "txn" {
		return edit.PegPath{}, wire.ErrMalformed
	}
	return edit.PegPath{Rev: rev, RelPath: string(items[1].Str())}, nil
}

// EncodeTxnPath returns loc as "(peg created)", created being "" when
// loc names the peg itself.
func EncodeTxnPath(a *wire.Arena, loc edit.TxnPath) wire.Item {
	return a.List(EncodePeg(a, loc.Peg), a.String([]byte(loc.Created)))
}

// DecodeTxnPath reads a txn-path encoded by EncodeTxnPath.
func DecodeTxnPath(it wire.Item) (edit.TxnPath, error) {
	if it.Kind != wire.LIST || it.Len() != 2 {
		return edit.TxnPath{}, wire.ErrMalformed
	}
	items := it.List()
	peg, err := DecodePeg(items[0])
	if err != nil {
		return edit.TxnPath{}, err
	}
	return edit.TxnPath{Peg: peg, Created: string(items[1].Str())}, nil
}

// EncodeContent returns c as "(kind ref props checksum-or-absent encoding
// data-or-absent target)". When c.Stream is set, it is read to exhaustion
// here (it is documented as lazy, finite, and non-restartable, so a
// single full read is the only legal use of it) and its SHA-1 digest
// replaces whatever checksum c carried, since the checksum must identify
// the bytes actually placed on the wire, not a value the caller merely
// asserts.
func EncodeContent(a *wire.Arena, c edit.Content) (wire.Item, error) {
	props := make([]wire.Item, 0, len(c.Props))
	for k, v := range c.Props {
		props = append(props, a.List(a.String([]byte(k)), a.String(v)))
	}

	checksum := a.Word("none")
	data := a.Word("none")
	if c.Kind == edit.KindFile && c.Stream != nil {
		raw, err := io.ReadAll(c.Stream)
		if err != nil {
			return wire.Item{}, err
		}
		sum := sha1.Sum(raw)
		checksum = a.String(sum[:])
		data = a.String(raw)
	} else if c.HasChecksum {
		checksum = a.String(c.Checksum[:])
	}

	return a.List(
		a.Word(c.Kind.String()),
		EncodePeg(a, c.Ref),
		a.List(props...),
		checksum,
		a.Word(EncodingRaw),
		data,
		a.String(c.Target),
	), nil
}

// DecodeContent reads content encoded by EncodeContent. negotiated gates
// acceptance of anything but EncodingRaw: a content tuple tagged
// EncodingSVNDiff1 is rejected unless negotiated.Has(caps.SVNDiff1), and
// even then this codec has no svndiff1 window decoder to apply it with,
// so it is reported as ErrSVNDiff1Unsupported rather than silently
// accepted. The returned Content's Stream is always nil; its payload, if
// present, is exposed as the returned []byte instead, since it has
// already been read off the wire in full.
func DecodeContent(it wire.Item, negotiated *caps.Set) (edit.Content, []byte, error) {
	if it.Kind != wire.LIST || it.Len() != 7 {
		return edit.Content{}, nil, wire.ErrMalformed
	}
	items := it.List()

	var kind edit.Kind
	switch items[0].Word() {
	case "dir":
		kind = edit.KindDir
	case "file":
		kind = edit.KindFile
	case "symlink":
		kind = edit.KindSymlink
	default:
		kind = edit.KindUnknown
	}

	ref, err := DecodePeg(items[1])
	if err != nil {
		return edit.Content{}, nil, err
	}

	props := make(map[string][]byte, items[2].Len())
	for _, kv := range items[2].List() {
		if kv.Kind != wire.LIST || kv.Len() != 2 {
			return edit.Content{}, nil, wire.ErrMalformed
		}
		pair := kv.List()
		props[string(pair[0].Str())] = pair[1].Str()
	}

	switch items[4].Word() {
	case EncodingRaw:
	case EncodingSVNDiff1:
		if negotiated == nil || !negotiated.Has(caps.SVNDiff1) {
			return edit.Content{}, nil, caps.ErrUnsupported
		}
		return edit.Content{}, nil, ErrSVNDiff1Unsupported
	default:
		return edit.Content{}, nil, wire.ErrMalformed
	}

	hasData := items[5].Kind == wire.STRING
	var data []byte
	if hasData {
		data = items[5].Str()
	}

	c := edit.Content{Kind: kind, Ref: ref, Props: props, Target: items[6].Str()}
	if items[3].Kind == wire.STRING {
		copy(c.Checksum[:], items[3].Str())
		c.HasChecksum = true
	}
	if hasData {
		sum := sha1.Sum(data)
		if c.HasChecksum && sum != c.Checksum {
			return edit.Content{}, nil, ErrChecksumMismatch
		}
		c.Checksum = sum
		c.HasChecksum = true
	}
	return c, data, nil
}
