package cmd

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/svnwire/svnwire/caps"
	"github.com/svnwire/svnwire/wire"
)

// HandlerFunc implements one command. It returns the response body to
// report as a success, or an error. An error wrapped in CmdErr is always
// reported as a failure; any other error is also reported as a failure
// unless Dispatcher.PassThroughErrors is set, in which case it ends the
// connection.
type HandlerFunc func(ctx *Context) (wire.Item, error)

// Entry binds a command word to its handler and policy.
type Entry struct {
	Name    string
	Handler HandlerFunc

	// Terminal stops the dispatch loop cleanly after this command's
	// response is written, without reporting an error.
	Terminal bool

	// LimitRate, if set, throttles this command. LimitSkip controls
	// whether an over-limit call is dropped with ErrRateLimited (true)
	// or made to wait for a token (false).
	LimitRate *rate.Limiter
	LimitSkip bool
}

// Table is an ordered list of Entry compiled into a name lookup. The
// first registration for a given name wins; later duplicates are
// ignored.
type Table struct {
	Entries []*Entry

	byName map[string]*Entry
}

func (t *Table) compile() {
	t.byName = make(map[string]*Entry, len(t.Entries))
	for _, e := range t.Entries {
		if _, dup := t.byName[e.Name]; dup {
			continue
		}
		t.byName[e.Name] = e
	}
}

// Lookup returns the Entry registered for name, or nil.
func (t *Table) Lookup(name string) *Entry {
	if t.byName == nil {
		t.compile()
	}
	return t.byName[name]
}

// Context carries everything a HandlerFunc needs for one command.
type Context struct {
	Conn   *wire.Conn
	Arena  *wire.Arena
	Params wire.Item
	Caps   *caps.Set
}

// CancelFunc is polled once per loop iteration; a true return aborts the
// connection with ErrCancelled.
type CancelFunc func() bool

// Dispatcher runs the read-dispatch-respond loop over one Conn: read a
// (word, params) tuple, look up and invoke a handler, write back a
// success or failure response, repeat until a Terminal command ends
// the connection cleanly. By default, a handler error that isn't
// already wrapped in CmdErr is still reported as an ordinary failure
// response and serving continues; set PassThroughErrors to instead
// propagate it out of Serve and end the connection.
type Dispatcher struct {
	*zerolog.Logger

	Table             *Table
	PassThroughErrors bool
	Cancel            CancelFunc
	Caps              *caps.Set
}

// Serve runs the dispatch loop on conn until a terminal command, a
// cancellation, or a connection error ends it. A nil return means the
// peer ended the exchange cleanly (a Terminal command ran).
func (d *Dispatcher) Serve(conn *wire.Conn) error {
	a := wire.NewArena()

	for {
		a.Reset()

		if d.Cancel != nil && d.Cancel() {
			return ErrCancelled
		}

		var word string
		var params wire.Item
		if err := conn.ReadTuple(a, "wl", &word, &params); err != nil {
			return err
		}

		entry := d.Table.Lookup(word)
		if entry == nil {
			if err := writeFailure(conn, a, Wrap(ErrUnknownCmd)); err != nil {
				return err
			}
			if err := conn.Flush(); err != nil {
				return err
			}
			continue
		}

		if err := d.checkRate(entry); err != nil {
			if err == ErrRateLimited {
				if err := writeFailure(conn, a, Wrap(err)); err != nil {
					return err
				}
				if err := conn.Flush(); err != nil {
					return err
				}
				continue
			}
			return err
		}

		ctx := &Context{Conn: conn, Arena: a, Params: params, Caps: d.Caps}
		body, herr := entry.Handler(ctx)

		if herr != nil {
			cerr, ok := herr.(*CmdErr)
			if !ok {
				if d.PassThroughErrors {
					return herr
				}
				if d.Logger != nil {
					d.Logger.Error().Err(herr).Str("cmd", word).Msg("handler error, reporting as failure")
				}
				cerr = &CmdErr{Err: herr}
			}
			if err := writeFailure(conn, a, cerr.Err); err != nil {
				return err
			}
		} else if err := writeSuccess(conn, body); err != nil {
			return err
		}

		if err := conn.Flush(); err != nil {
			return err
		}

		if entry.Terminal {
			return nil
		}
	}
}

func (d *Dispatcher) checkRate(e *Entry) error {
	if e.LimitRate == nil {
		return nil
	}
	if e.LimitSkip {
		if !e.LimitRate.Allow() {
			return ErrRateLimited
		}
		return nil
	}
	return e.LimitRate.Wait(context.Background())
}
