// harproxy CLI - record HTTP traffic into a HAR archive and replay it
package main

import (
	"github.com/getmockd/harproxy/pkg/cli"
)

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cli.Version = Version
	cli.Commit = Commit
	cli.BuildDate = BuildDate

	cli.Execute()
}
