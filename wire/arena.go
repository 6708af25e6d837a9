package wire

// slabSize is the size of one Arena bump-allocation slab. Strings that
// don't fit get their own allocation instead (the same large-payload
// bypass idea the write path uses for oversized payloads, see Conn.push).
const slabSize = 32 * 1024

// Arena is a per-exchange bump allocator for the byte strings that Items
// reference. It must be Reset once per request/response cycle (the
// dispatcher does this at the top of every loop iteration); Items and
// byte slices obtained from an Arena must not be used after the next
// Reset call.
type Arena struct {
	slab []byte
	used int
}

// NewArena returns a ready-to-use Arena.
func NewArena() *Arena { return &Arena{} }

// Reset frees all allocations made from a. Past Items/slices become
// invalid; the underlying slab is dropped so the GC can reclaim it
// once nothing still references it.
func (a *Arena) Reset() {
	a.slab = nil
	a.used = 0
}

// bytes returns a fresh, zeroed byte slice of length n, bump-allocated
// from the arena's slab when it fits, or individually allocated for
// oversized strings.
func (a *Arena) bytes(n int) []byte {
	if n == 0 {
		return nil
	}
	if n > slabSize {
		return make([]byte, n)
	}
	if a.slab == nil || a.used+n > len(a.slab) {
		a.slab = make([]byte, slabSize)
		a.used = 0
	}
	b := a.slab[a.used : a.used+n : a.used+n]
	a.used += n
	return b
}

// Number returns a new Item of Kind NUMBER.
func (a *Arena) Number(v uint64) Item {
	return Item{Kind: NUMBER, num: v}
}

// String returns a new Item of Kind STRING, copying src into the arena.
func (a *Arena) String(src []byte) Item {
	b := a.bytes(len(src))
	copy(b, src)
	return Item{Kind: STRING, str: b}
}

// Word returns a new Item of Kind WORD. It does not validate s; callers
// constructing words from trusted Go identifiers may skip validation,
// but wire-facing code should use Conn.WriteWord, which validates.
func (a *Arena) Word(s string) Item {
	return Item{Kind: WORD, str: []byte(s)}
}

// word returns a new Item of Kind WORD, copying src into the arena.
func (a *Arena) word(src []byte) Item {
	b := a.bytes(len(src))
	copy(b, src)
	return Item{Kind: WORD, str: b}
}

// List returns a new Item of Kind LIST wrapping items. items is taken by
// reference, not copied.
func (a *Arena) List(items ...Item) Item {
	return Item{Kind: LIST, list: items}
}
