package opts

import (
	"io"

	"github.com/walteh/repofetch/pkg/cache"
	"github.com/walteh/repofetch/pkg/config"
	"github.com/walteh/repofetch/pkg/fetch"
	"github.com/walteh/repofetch/pkg/remote"
)

// RootOpts is shared by every subcommand. It is filled in before a
// subcommand runs, once flags have been parsed.
type RootOpts struct {
	Config  *config.Config
	Client  remote.Client
	Cache   cache.Store
	Fetcher *fetch.Fetcher

	// Closers run when the command exits
	Closers []io.Closer
}

// Close releases everything in Closers
func (o *RootOpts) Close() error {
	var first error
	for _, c := range o.Closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	o.Closers = nil
	return first
}
