package wire

import "strconv"

// WriteNumber writes a NUMBER item: decimal digits followed by a space.
func (c *Conn) WriteNumber(v uint64) error {
	return c.push(append(strconv.AppendUint(nil, v, 10), ' '))
}

// WriteString writes a STRING item: "<len>:<bytes> ".
func (c *Conn) WriteString(b []byte) error {
	head := strconv.AppendUint(nil, uint64(len(b)), 10)
	head = append(head, ':')
	if err := c.push(head); err != nil {
		return err
	}
	if err := c.push(b); err != nil {
		return err
	}
	return c.push([]byte{' '})
}

// WriteWord writes a WORD item. s must start with a letter and contain
// only letters, digits, and hyphens afterward; violating this is a
// programming error and panics, matching the "assertion" treatment spec
// §4.1 gives to malformed required tuple values.
func (c *Conn) WriteWord(s string) error {
	if len(s) == 0 || !isAlpha(s[0]) {
		panic("wire: invalid word: " + s)
	}
	for i := 1; i < len(s); i++ {
		if !isWordTail(s[i]) {
			panic("wire: invalid word: " + s)
		}
	}
	if err := c.push([]byte(s)); err != nil {
		return err
	}
	return c.push([]byte{' '})
}

// WriteListStart writes the opening of a list: "( ".
func (c *Conn) WriteListStart() error {
	return c.push([]byte("( "))
}

// WriteListEnd writes the closing of a list: ") ".
func (c *Conn) WriteListEnd() error {
	return c.push([]byte(") "))
}

// WriteItem serializes it (recursively, for lists) to the stream.
func (c *Conn) WriteItem(it Item) error {
	switch it.Kind {
	case NUMBER:
		return c.WriteNumber(it.num)
	case STRING:
		return c.WriteString(it.str)
	case WORD:
		return c.WriteWord(string(it.str))
	case LIST:
		if err := c.WriteListStart(); err != nil {
			return err
		}
		for _, sub := range it.list {
			if err := c.WriteItem(sub); err != nil {
				return err
			}
		}
		return c.WriteListEnd()
	default:
		panic("wire: WriteItem of invalid kind")
	}
}
