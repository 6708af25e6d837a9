package server

import (
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/svnwire/svnwire/caps"
	"github.com/svnwire/svnwire/cmd"
	"github.com/svnwire/svnwire/edit"
	"github.com/svnwire/svnwire/repo"
	"github.com/svnwire/svnwire/wire"
)

func dialTestServer(t *testing.T, srv *Server) net.Conn {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		nc, err := ln.Accept()
		if err != nil {
			return
		}
		srv.handleConn(nc)
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func greetClient(t *testing.T, conn *wire.Conn, a *wire.Arena) *caps.Set {
	t.Helper()
	offer := caps.NewSet()
	offer.Add(caps.TxnSourceCopy)
	negotiated, err := cmd.Greet(conn, a, cmd.GreetingOptions{Offer: offer, Passive: false})
	require.NoError(t, err)
	return negotiated
}

func TestServerPathStyleCreateAndCommit(t *testing.T) {
	r := repo.NewMemRepo()
	srv := NewServer(r, DefaultOptions)

	nc := dialTestServer(t, srv)
	conn := wire.NewConnSize(nc, nc, 4096, 4096)
	a := wire.NewArena()
	greetClient(t, conn, a)

	parentLoc := edit.TxnPath{Peg: edit.PegPath{Rev: 0, RelPath: ""}}
	mkParams := a.List(a.Word("file"), cmd.EncodeTxnPath(a, parentLoc), a.String([]byte("a")))
	require.NoError(t, conn.WriteTuple("wl", "mk", mkParams))
	require.NoError(t, conn.Flush())

	a.Reset()
	body, err := cmd.ReadResponse(conn, a)
	require.NoError(t, err)
	require.Equal(t, 1, body.Len())
	require.Equal(t, wire.WORD, body.List()[0].Kind)

	aLoc := edit.TxnPath{Peg: edit.PegPath{Rev: 0, RelPath: ""}, Created: "a"}
	content := edit.Content{Kind: edit.KindFile, Props: map[string][]byte{}, Stream: strings.NewReader("hello world")}
	encodedContent, err := cmd.EncodeContent(a, content)
	require.NoError(t, err)
	putParams := a.List(cmd.EncodeTxnPath(a, aLoc), encodedContent)
	require.NoError(t, conn.WriteTuple("wl", "put", putParams))
	require.NoError(t, conn.Flush())

	a.Reset()
	_, err = cmd.ReadResponse(conn, a)
	require.NoError(t, err)

	require.NoError(t, conn.WriteTuple("wl", "complete", a.List()))
	require.NoError(t, conn.Flush())

	a.Reset()
	body, err = cmd.ReadResponse(conn, a)
	require.NoError(t, err)
	require.Equal(t, uint64(1), body.List()[0].Num())
}

func TestServerUnknownCommandReportsFailure(t *testing.T) {
	r := repo.NewMemRepo()
	srv := NewServer(r, DefaultOptions)

	nc := dialTestServer(t, srv)
	conn := wire.NewConnSize(nc, nc, 4096, 4096)
	a := wire.NewArena()
	greetClient(t, conn, a)

	require.NoError(t, conn.WriteTuple("wl", "bogus", a.List()))
	require.NoError(t, conn.Flush())

	a.Reset()
	_, err := cmd.ReadResponse(conn, a)
	require.Error(t, err)
}

func TestServerAbortDiscardsTxn(t *testing.T) {
	r := repo.NewMemRepo()
	srv := NewServer(r, DefaultOptions)

	nc := dialTestServer(t, srv)
	conn := wire.NewConnSize(nc, nc, 4096, 4096)
	a := wire.NewArena()
	greetClient(t, conn, a)

	parentLoc := edit.TxnPath{Peg: edit.PegPath{Rev: 0, RelPath: ""}}
	mkParams := a.List(a.Word("dir"), cmd.EncodeTxnPath(a, parentLoc), a.String([]byte("d")))
	require.NoError(t, conn.WriteTuple("wl", "mk", mkParams))
	require.NoError(t, conn.Flush())
	a.Reset()
	_, err := cmd.ReadResponse(conn, a)
	require.NoError(t, err)

	require.NoError(t, conn.WriteTuple("wl", "abort", a.List()))
	require.NoError(t, conn.Flush())
	a.Reset()
	_, err = cmd.ReadResponse(conn, a)
	require.NoError(t, err)
}
