package wire

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Default buffer sizes, overridable via Options in the server package.
const (
	DefaultReadBuf  = 4096
	DefaultWriteBuf = 4096
)

// Conn is a stateful endpoint bound to one bidirectional byte stream. It
// owns a fixed-size read buffer and a fixed-size write buffer and
// maintains the invariant rpos <= rend <= len(rbuf) and
// 0 <= wpos <= len(wbuf) at all times.
//
// Conn is not safe for concurrent use: all codec operations on one
// connection run serially on a single logical task.
type Conn struct {
	*zerolog.Logger

	r io.Reader
	w io.Writer

	rbuf []byte
	rpos int
	rend int

	wbuf []byte
	wpos int
}

// NewConn wraps rw with default-sized buffers and the package logger.
func NewConn(rw io.ReadWriter) *Conn {
	return NewConnSize(rw, rw, DefaultReadBuf, DefaultWriteBuf)
}

// NewConnSize wraps a split reader/writer pair (eg. a pipe) with
// explicitly-sized buffers.
func NewConnSize(r io.Reader, w io.Writer, rsize, wsize int) *Conn {
	if rsize <= 0 {
		rsize = DefaultReadBuf
	}
	if wsize <= 0 {
		wsize = DefaultWriteBuf
	}
	return &Conn{
		Logger: &log.Logger,
		r:      r,
		w:      w,
		rbuf:   make([]byte, rsize),
		wbuf:   make([]byte, wsize),
	}
}

// ---------------------------------------------------------------------
// write path
// ---------------------------------------------------------------------

// push copies src into the write buffer, flushing whenever the buffer
// is full; once the buffer is empty, a remainder larger than its
// capacity is written directly, bypassing the buffer.
func (c *Conn) push(src []byte) error {
	for len(src) > 0 {
		room := len(c.wbuf) - c.wpos
		if room == 0 {
			if err := c.Flush(); err != nil {
				return err
			}
			room = len(c.wbuf)
		}

		if len(src) > len(c.wbuf) && c.wpos == 0 {
			// payload alone exceeds buffer capacity: write directly
			if err := c.rawWrite(src); err != nil {
				return err
			}
			return nil
		}

		n := min(room, len(src))
		copy(c.wbuf[c.wpos:], src[:n])
		c.wpos += n
		src = src[n:]
	}
	return nil
}

// rawWrite writes buf to the underlying stream in a loop, accumulating
// short writes, surfacing any I/O failure as ErrIO.
func (c *Conn) rawWrite(buf []byte) error {
	for len(buf) > 0 {
		n, err := c.w.Write(buf)
		if err != nil {
			return ioErrorf(err)
		}
		if n == 0 {
			return ioErrorf(io.ErrShortWrite)
		}
		buf = buf[n:]
	}
	return nil
}

// Flush writes any buffered output to the underlying stream.
func (c *Conn) Flush() error {
	if c.wpos == 0 {
		return nil
	}
	buf := c.wbuf[:c.wpos]
	c.wpos = 0
	if err := c.rawWrite(buf); err != nil {
		return err
	}
	if c.Logger != nil {
		c.Trace().Int("bytes", len(buf)).Msg("wire: flushed write buffer")
	}
	return nil
}

// ---------------------------------------------------------------------
// read path
// ---------------------------------------------------------------------

// fill refills the read buffer. It must only be called when the buffer
// is empty; it flushes the write buffer first, since request/response
// traffic is interleaved and failing to flush before a blocking read
// can deadlock both peers.
func (c *Conn) fill() error {
	if c.rpos != c.rend {
		panic("wire: fill called on non-empty read buffer")
	}
	if err := c.Flush(); err != nil {
		return err
	}

	n, err := c.r.Read(c.rbuf)
	if err != nil && n == 0 {
		if err == io.EOF {
			return ErrClosed
		}
		return ioErrorf(err)
	}
	if n == 0 {
		return ErrClosed
	}

	c.rpos = 0
	c.rend = n
	return nil
}

// getByte returns the next raw byte from the stream, filling the read
// buffer as needed.
func (c *Conn) getByte() (byte, error) {
	if c.rpos == c.rend {
		if err := c.fill(); err != nil {
			return 0, err
		}
	}
	b := c.rbuf[c.rpos]
	c.rpos++
	return b, nil
}

// getBytes copies exactly n raw bytes from the stream into dst.
func (c *Conn) getBytes(dst []byte) error {
	for len(dst) > 0 {
		if c.rpos == c.rend {
			if err := c.fill(); err != nil {
				return err
			}
		}
		n := copy(dst, c.rbuf[c.rpos:c.rend])
		c.rpos += n
		dst = dst[n:]
	}
	return nil
}

// skipWS advances past whitespace (space/newline) and returns the first
// non-whitespace byte, consumed.
func (c *Conn) skipWS() (byte, error) {
	for {
		b, err := c.getByte()
		if err != nil {
			return 0, err
		}
		if !isWS(b) {
			return b, nil
		}
	}
}

// requireWS consumes one byte and errors if it is not whitespace. Every
// non-list item, and every list's closing paren, must be followed by at
// least one whitespace byte.
func (c *Conn) requireWS() error {
	b, err := c.getByte()
	if err != nil {
		return err
	}
	if !isWS(b) {
		return malformedf("expected whitespace, got %q", b)
	}
	return nil
}
