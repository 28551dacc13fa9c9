// Command cdsctl inspects and maintains a content directory catalog offline.
//
// It opens the catalog with the same configuration as the server (--config,
// CDS_CONFIG and environment variables). The embedded sqlite3 database is
// opened with an exclusive lock, so the server must be stopped first; the
// compile command needs no database at all.
//
//	cdsctl compile 'upnp:class derivedfrom "object.item.audioItem"'
//	cdsctl browse 1 --count 20
//	cdsctl search 'dc:title contains "live"'
//	cdsctl stats
//	cdsctl remove 42
//	cdsctl backup
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
