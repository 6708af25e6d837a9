package server

import (
	"net"

	"github.com/rs/zerolog"

	"github.com/svnwire/svnwire/caps"
	"github.com/svnwire/svnwire/cmd"
	"github.com/svnwire/svnwire/edit"
	"github.com/svnwire/svnwire/wire"
)

// Server accepts connections and runs one dispatch loop per connection
// against a shared repo.Repository. No intermediate pipe is needed:
// cmd.Dispatcher already owns the read-dispatch-respond loop end to
// end.
type Server struct {
	*zerolog.Logger

	Options Options
	Repo    edit.Repository
}

// NewServer returns a Server driving repo with options o as given. A nil
// o.Logger disables logging and a nil o.Offer advertises
// caps.TxnSourceCopy; other zero fields are not replaced with
// DefaultOptions values.
func NewServer(repo edit.Repository, o Options) *Server {
	s := &Server{Options: o, Repo: repo}
	if s.Options.Logger != nil {
		s.Logger = s.Options.Logger
	} else {
		l := zerolog.Nop()
		s.Logger = &l
	}
	if s.Options.Offer == nil {
		s.Options.Offer = caps.NewSet()
		s.Options.Offer.Add(caps.TxnSourceCopy)
	}
	return s
}

// ListenAndServe accepts connections on addr until Accept returns an
// error, which it returns; temporary Accept errors are not retried.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	defer ln.Close()

	s.Info().Str("addr", addr).Msg("listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

// handleConn runs one connection's greeting and dispatch loop to
// completion. Distinct connections are independent and run on their
// own goroutine, each owning its Conn/Txn exclusively.
func (s *Server) handleConn(nc net.Conn) {
	defer nc.Close()

	conn := wire.NewConnSize(nc, nc, s.Options.ReadBuf, s.Options.WriteBuf)
	conn.Logger = s.Logger

	a := wire.NewArena()
	peerCaps, err := cmd.Greet(conn, a, cmd.GreetingOptions{Offer: s.Options.Offer, Passive: true})
	if err != nil {
		s.Debug().Err(err).Str("remote", nc.RemoteAddr().String()).Msg("greeting failed")
		return
	}

	sess := &session{repo: s.Repo}
	d := &cmd.Dispatcher{
		Logger: s.Logger,
		Table:  buildTable(sess, &s.Options),
		Caps:   peerCaps,
	}

	if err := d.Serve(conn); err != nil {
		s.Debug().Err(err).Str("remote", nc.RemoteAddr().String()).Msg("connection ended")
	}
}
