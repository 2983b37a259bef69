package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/paydesk/internal/flagx"
)

// parseFlags applies -a (server host:port) and -t (call timeout, whole
// seconds). Other arguments are ignored so -c can share os.Args.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
