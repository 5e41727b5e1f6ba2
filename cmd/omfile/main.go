// Command omfile inspects, reads and converts om files.
//
//	omfile info data.om
//	omfile read data.om --path temperature --range 0:2,10:20
//	omfile convert legacy.om out.om --name temperature
//	omfile hexdump data.om --offset 64 --length 128
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	verbose bool
	logger  *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "omfile",
		Short:         "Inspect, read and convert om chunked array files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log debug events to stderr")

	root.AddCommand(
		a.newInfoCmd(),
		a.newReadCmd(),
		a.newConvertCmd(),
		a.newHexdumpCmd(),
	)
	return root
}
