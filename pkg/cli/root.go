package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	appName        = "harproxy"
	appDescription = "Record live HTTP traffic into a HAR archive and replay it"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// NewRootCmd builds the harproxy command tree. Running the root command
// starts the server.
func NewRootCmd() *cobra.Command {
	flags := &serveFlags{}

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "harproxy records HTTP traffic into a HAR file and replays it",
		Long: `harproxy runs in one of two modes.

In record mode every request is forwarded to --target-url, the response is
relayed to the caller and the exchange is appended to --har-file.

In play mode requests are answered from --har-file without contacting any
upstream. The first recorded entry with the same method whose URL ends with
the request path and query is served; anything else gets a 404.

Configuration can be provided via flags, HARPROXY_* environment variables,
or a YAML file (--config, or .harproxyrc.yaml in the current directory).`,
		Example: `  harproxy --mode record --target-url https://api.example.com --har-file api.har
  harproxy --mode play --har-file api.har --port 8080`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true, // We handle errors in Execute()
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags)
		},
	}

	flags.register(rootCmd)
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the root command and exits non-zero on error.
// This is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error: "+err.Error())
		os.Exit(1)
	}
}
