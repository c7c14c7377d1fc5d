// DocBro is a local-first documentation crawler, RAG indexer, and shelf/box
// catalog with dual MCP servers (read-only + admin). Configuration is
// loaded from the XDG settings file and DOCBRO_*-prefixed environment
// variables; see internal/config for details.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/behemotion/docbro/internal/errs"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(errs.ExitCodeForErr(err))
	}
}

var rootCmd = &cobra.Command{
	Use:     "docbro",
	Short:   "Crawl, index, and search documentation shelves",
	Version: version,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}
		a, err := newApp()
		if err != nil {
			return err
		}
		application = a
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if application != nil {
			return application.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shelfCmd)
	rootCmd.AddCommand(boxCmd)
	rootCmd.AddCommand(fillCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(wizardCmd)
}

// fatalf builds a plain user-facing error; cobra prints it to stderr when the
// command returns it.
func fatalf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
