/*
 * a basic svnwire server
 */
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/svnwire/svnwire/repo"
	"github.com/svnwire/svnwire/server"
)

var (
	opt_addr       = flag.String("addr", ":3960", "listen address")
	opt_readbuf    = flag.Int("readbuf", 4096, "per-connection read buffer size")
	opt_writebuf   = flag.Int("writebuf", 4096, "per-connection write buffer size")
	opt_ratelimit  = flag.Float64("ratelimit", 0, "mutating commands/sec per connection (0 disables)")
	opt_permissive = flag.Bool("permissive", false, "accept single-change null merges on out-of-date edits")
	opt_verbose    = flag.Bool("v", false, "debug logging")
)

func main() {
	flag.Parse()

	if *opt_verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	o := server.DefaultOptions
	o.ReadBuf = *opt_readbuf
	o.WriteBuf = *opt_writebuf
	o.RateLimit = *opt_ratelimit
	o.Permissive = *opt_permissive

	r := repo.NewMemRepo()
	srv := server.NewServer(r, o)

	fmt.Fprintf(os.Stderr, "svnwire: listening on %s\n", *opt_addr)
	if err := srv.ListenAndServe(*opt_addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
