package cmd

import (
	"github.com/svnwire/svnwire/caps"
	"github.com/svnwire/svnwire/wire"
)

// GreetingOptions configures the one-time capability exchange that runs
// before the dispatch loop starts.
type GreetingOptions struct {
	// Offer lists the capability words this side supports.
	Offer *caps.Set

	// Passive, if true, waits for the peer to send its capability list
	// first instead of sending ours first. A listening server is
	// normally Passive; a connecting client is not.
	Passive bool
}

// Greet runs a single "(capabilities (word…))" exchange on conn and
// returns the intersection of both sides' offers — the capabilities
// both ends may rely on for the remainder of the connection.
func Greet(conn *wire.Conn, a *wire.Arena, opt GreetingOptions) (*caps.Set, error) {
	send := func() error {
		items := make([]wire.Item, 0, opt.Offer.Len())
		for _, name := range opt.Offer.Names() {
			items = append(items, a.Word(name))
		}
		if err := conn.WriteTuple("wl", "capabilities", a.List(items...)); err != nil {
			return err
		}
		return conn.Flush()
	}

	recv := func() (*caps.Set, error) {
		var word string
		var list wire.Item
		if err := conn.ReadTuple(a, "wl", &word, &list); err != nil {
			return nil, err
		}
		if word != "capabilities" {
			return nil, malformedGreeting(word)
		}
		peer := caps.NewSet()
		for _, it := range list.List() {
			if it.Kind == wire.WORD {
				peer.Add(it.Word())
			}
		}
		return peer, nil
	}

	var peer *caps.Set
	var err error
	if opt.Passive {
		if peer, err = recv(); err != nil {
			return nil, err
		}
		if err := send(); err != nil {
			return nil, err
		}
	} else {
		if err := send(); err != nil {
			return nil, err
		}
		if peer, err = recv(); err != nil {
			return nil, err
		}
	}

	return opt.Offer.Intersect(peer), nil
}

func malformedGreeting(word string) error {
	return NewError(0, "expected capabilities greeting, got "+word, nil)
}
