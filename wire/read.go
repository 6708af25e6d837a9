package wire

import "math"

// ReadItem parses one item from the stream, allocating its byte payload
// (if any) from a. Dispatch is on the first non-whitespace byte.
func (c *Conn) ReadItem(a *Arena) (Item, error) {
	b, err := c.skipWS()
	if err != nil {
		return Item{}, err
	}
	return c.readItemFrom(a, b)
}

// readItemFrom parses an item whose first byte, b, has already been
// consumed from the stream.
func (c *Conn) readItemFrom(a *Arena, b byte) (Item, error) {
	switch {
	case b == '(':
		return c.readList(a)
	case isDigit(b):
		return c.readNumberOrString(a, b)
	case isAlpha(b):
		return c.readWord(a, b)
	default:
		return Item{}, malformedf("unexpected byte %q at start of item", b)
	}
}

// readList parses the body of a list whose opening '(' has already been
// consumed: mandatory whitespace, zero or more items, then a ')' that
// must be followed by whitespace. The ')' is always preceded by
// whitespace, since the opening whitespace and every item's trailing
// whitespace are required.
func (c *Conn) readList(a *Arena) (Item, error) {
	if err := c.requireWS(); err != nil {
		return Item{}, err
	}
	var items []Item
	for {
		b, err := c.skipWS()
		if err != nil {
			return Item{}, err
		}
		if b == ')' {
			if err := c.requireWS(); err != nil {
				return Item{}, err
			}
			return a.List(items...), nil
		}
		item, err := c.readItemFrom(a, b)
		if err != nil {
			return Item{}, err
		}
		items = append(items, item)
	}
}

// readNumberOrString parses a NUMBER or STRING item: a run of decimal
// digits (the first of which, b, is already consumed) terminated either
// by whitespace (a number) or by ':' (the byte count of a following
// string payload).
func (c *Conn) readNumberOrString(a *Arena, b byte) (Item, error) {
	var value uint64
	overflow := false

	for {
		if isDigit(b) {
			d := uint64(b - '0')
			if value > (math.MaxUint64-d)/10 {
				overflow = true
			} else {
				value = value*10 + d
			}
		} else if b == ':' {
			if overflow {
				return Item{}, malformedf("string length overflow")
			}
			return c.readStringBody(a, value)
		} else if isWS(b) {
			if overflow {
				return Item{}, malformedf("number overflow")
			}
			return a.Number(value), nil
		} else {
			return Item{}, malformedf("unexpected byte %q in number", b)
		}

		var err error
		b, err = c.getByte()
		if err != nil {
			return Item{}, err
		}
	}
}

// readStringBody reads exactly n raw bytes (which may contain any byte
// value, including whitespace or NUL) plus the mandatory trailing
// whitespace terminator.
func (c *Conn) readStringBody(a *Arena, n uint64) (Item, error) {
	if n > math.MaxInt32 {
		return Item{}, malformedf("string too long: %d", n)
	}
	buf := a.bytes(int(n))
	if err := c.getBytes(buf); err != nil {
		return Item{}, err
	}
	if err := c.requireWS(); err != nil {
		return Item{}, err
	}
	return Item{Kind: STRING, str: buf}, nil
}

// readWord parses a WORD item: b (already consumed) plus a run of
// alphanumeric/hyphen bytes, terminated by mandatory whitespace.
func (c *Conn) readWord(a *Arena, b byte) (Item, error) {
	buf := []byte{b}
	for {
		nb, err := c.getByte()
		if err != nil {
			return Item{}, err
		}
		if isWordTail(nb) {
			buf = append(buf, nb)
			continue
		}
		if !isWS(nb) {
			return Item{}, malformedf("unexpected byte %q in word", nb)
		}
		return a.word(buf), nil
	}
}
