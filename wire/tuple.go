package wire

// Tuple format letters:
//
//	n   number                      arg: *uint64 (read) / uint64 (write)
//	r   revision number, omittable  arg: *int64  (read) / int64  (write); -1 = absent
//	s   byte string, omittable      arg: *[]byte (read) / []byte (write); nil = absent
//	c   C string (NUL appended),
//	    omittable                   arg: *string (read) / string (write); "" = absent
//	w   word, omittable             arg: *string (read) / string (write); "" = absent
//	l   list                        arg: *Item   (read) / Item   (write); zero Item = absent
//	[ ] optional group: fields inside may be individually omitted
//	( ) required group: always wraps a nested list, regardless of
//	    enclosing optional depth
//
// A plain 'n' is never omittable: it has no sentinel value, and a
// missing value outside an optional group is a programming error. The
// empty string is used as the "absent"
// sentinel for 'c' and 'w': 'w' cannot legally be empty under the wire
// grammar (a word needs at least one leading letter), so there is no
// ambiguity there; 'c' is a deliberate simplification (an absent C
// string and an empty C string are not distinguished) — see DESIGN.md.

// matchingBracket returns the index in format of the bracket that
// closes the one at format[open], given the open/close byte pair.
func matchingBracket(format string, open int, o, c byte) int {
	depth := 0
	for i := open; i < len(format); i++ {
		switch format[i] {
		case o:
			depth++
		case c:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	panic("wire: unbalanced tuple format " + format)
}

// ---------------------------------------------------------------------
// parsing (reading)
// ---------------------------------------------------------------------

type tupleReader struct {
	items    []Item
	idx      int
	args     []any
	argi     int
	optional int
}

func (st *tupleReader) run(format string) error {
	i := 0
	for i < len(format) {
		switch c := format[i]; c {
		case '[':
			st.optional++
			j := matchingBracket(format, i, '[', ']')
			if err := st.run(format[i+1 : j]); err != nil {
				return err
			}
			st.optional--
			i = j + 1
		case '(':
			j := matchingBracket(format, i, '(', ')')
			if err := st.group(format[i+1:j]); err != nil {
				return err
			}
			i = j + 1
		default:
			if err := st.consume(c); err != nil {
				return err
			}
			i++
		}
	}
	return nil
}

func (st *tupleReader) group(sub string) error {
	if st.idx >= len(st.items) {
		if st.optional == 0 {
			return malformedf("missing required group")
		}
		inner := &tupleReader{args: st.args, argi: st.argi, optional: st.optional}
		if err := inner.run(sub); err != nil {
			return err
		}
		st.argi = inner.argi
		return nil
	}

	item := st.items[st.idx]
	if item.Kind != LIST {
		return malformedf("expected list for tuple group, got %s", item.Kind)
	}
	st.idx++

	inner := &tupleReader{items: item.list, args: st.args, argi: st.argi, optional: st.optional}
	if err := inner.run(sub); err != nil {
		return err
	}
	st.argi = inner.argi
	return nil
}

func (st *tupleReader) consume(letter byte) error {
	absent := st.optional > 0 && st.idx >= len(st.items)
	if letter == 'n' && st.idx >= len(st.items) {
		return malformedf("missing required number item")
	}

	var item Item
	if !absent {
		if st.idx >= len(st.items) {
			return malformedf("missing required item for format %q", string(letter))
		}
		item = st.items[st.idx]
		st.idx++
	}

	arg := st.args[st.argi]
	st.argi++

	switch letter {
	case 'n':
		p, ok := arg.(*uint64)
		if !ok {
			panic("wire: tuple arg type mismatch for 'n'")
		}
		if item.Kind != NUMBER {
			return malformedf("expected number, got %s", item.Kind)
		}
		*p = item.Num()

	case 'r':
		p, ok := arg.(*int64)
		if !ok {
			panic("wire: tuple arg type mismatch for 'r'")
		}
		if absent {
			*p = -1
			return nil
		}
		if item.Kind != NUMBER {
			return malformedf("expected revision number, got %s", item.Kind)
		}
		*p = int64(item.Num())

	case 's':
		p, ok := arg.(*[]byte)
		if !ok {
			panic("wire: tuple arg type mismatch for 's'")
		}
		if absent {
			*p = nil
			return nil
		}
		if item.Kind != STRING {
			return malformedf("expected string, got %s", item.Kind)
		}
		*p = item.Str()

	case 'c':
		p, ok := arg.(*string)
		if !ok {
			panic("wire: tuple arg type mismatch for 'c'")
		}
		if absent {
			*p = ""
			return nil
		}
		if item.Kind != STRING {
			return malformedf("expected string, got %s", item.Kind)
		}
		*p = trimNUL(item.Str())

	case 'w':
		p, ok := arg.(*string)
		if !ok {
			panic("wire: tuple arg type mismatch for 'w'")
		}
		if absent {
			*p = ""
			return nil
		}
		if item.Kind != WORD {
			return malformedf("expected word, got %s", item.Kind)
		}
		*p = item.Word()

	case 'l':
		p, ok := arg.(*Item)
		if !ok {
			panic("wire: tuple arg type mismatch for 'l'")
		}
		if absent {
			*p = Item{}
			return nil
		}
		if item.Kind != LIST {
			return malformedf("expected list, got %s", item.Kind)
		}
		*p = item

	default:
		panic("wire: unknown tuple format letter " + string(letter))
	}
	return nil
}

// trimNUL strips exactly one trailing NUL byte, if present, from a
// C-string payload.
func trimNUL(b []byte) string {
	if len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b)
}

// ParseTuple validates list against format and fills out per the table
// above. list must be of Kind LIST; an item may be missing only inside
// an optional group, and items beyond those format consumes are ignored.
func ParseTuple(list Item, format string, out ...any) error {
	if list.Kind != LIST {
		return malformedf("tuple is not a list")
	}
	st := &tupleReader{items: list.list, args: out}
	if err := st.run(format); err != nil {
		return err
	}
	if st.argi != len(out) {
		panic("wire: tuple format/args count mismatch")
	}
	return nil
}

// ReadTuple reads one list item from the stream and parses it against
// format, per the table above.
func (c *Conn) ReadTuple(a *Arena, format string, out ...any) error {
	item, err := c.ReadItem(a)
	if err != nil {
		return err
	}
	return ParseTuple(item, format, out...)
}

// ---------------------------------------------------------------------
// writing
// ---------------------------------------------------------------------

type tupleWriter struct {
	conn     *Conn
	args     []any
	argi     int
	optional int
}

func (w *tupleWriter) run(format string) error {
	i := 0
	for i < len(format) {
		switch c := format[i]; c {
		case '[':
			w.optional++
			j := matchingBracket(format, i, '[', ']')
			if err := w.run(format[i+1 : j]); err != nil {
				return err
			}
			w.optional--
			i = j + 1
		case '(':
			j := matchingBracket(format, i, '(', ')')
			if err := w.group(format[i+1 : j]); err != nil {
				return err
			}
			i = j + 1
		default:
			if err := w.emit(c); err != nil {
				return err
			}
			i++
		}
	}
	return nil
}

func (w *tupleWriter) group(sub string) error {
	if err := w.conn.WriteListStart(); err != nil {
		return err
	}
	if err := w.run(sub); err != nil {
		return err
	}
	return w.conn.WriteListEnd()
}

func (w *tupleWriter) emit(letter byte) error {
	arg := w.args[w.argi]
	w.argi++

	switch letter {
	case 'n':
		v, ok := arg.(uint64)
		if !ok {
			panic("wire: tuple arg type mismatch for 'n'")
		}
		return w.conn.WriteNumber(v)

	case 'r':
		v, ok := arg.(int64)
		if !ok {
			panic("wire: tuple arg type mismatch for 'r'")
		}
		if v < 0 {
			if w.optional == 0 {
				panic("wire: missing required revision value")
			}
			return nil
		}
		return w.conn.WriteNumber(uint64(v))

	case 's':
		v, ok := arg.([]byte)
		if !ok {
			panic("wire: tuple arg type mismatch for 's'")
		}
		if v == nil {
			if w.optional == 0 {
				panic("wire: missing required string value")
			}
			return nil
		}
		return w.conn.WriteString(v)

	case 'c':
		v, ok := arg.(string)
		if !ok {
			panic("wire: tuple arg type mismatch for 'c'")
		}
		if v == "" {
			if w.optional == 0 {
				panic("wire: missing required c-string value")
			}
			return nil
		}
		return w.conn.WriteString(append([]byte(v), 0))

	case 'w':
		v, ok := arg.(string)
		if !ok {
			panic("wire: tuple arg type mismatch for 'w'")
		}
		if v == "" {
			if w.optional == 0 {
				panic("wire: missing required word value")
			}
			return nil
		}
		return w.conn.WriteWord(v)

	case 'l':
		v, ok := arg.(Item)
		if !ok {
			panic("wire: tuple arg type mismatch for 'l'")
		}
		if v.IsZero() {
			if w.optional == 0 {
				panic("wire: missing required list value")
			}
			return nil
		}
		return w.conn.WriteItem(v)

	default:
		panic("wire: unknown tuple format letter " + string(letter))
	}
}

// WriteTuple writes "( " followed by items per format and args (see the
// table above), then ") ".
func (c *Conn) WriteTuple(format string, args ...any) error {
	if err := c.WriteListStart(); err != nil {
		return err
	}
	w := &tupleWriter{conn: c, args: args}
	if err := w.run(format); err != nil {
		return err
	}
	if w.argi != len(args) {
		panic("wire: tuple format/args count mismatch")
	}
	return c.WriteListEnd()
}
