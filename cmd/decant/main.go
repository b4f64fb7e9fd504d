// Package main is the decant command line.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ochairo/decant/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/decant/internal/domain-orchestrators"
	"github.com/ochairo/decant/internal/external-adapters/inifile"
)

// Exit codes
const (
	exitError        = 1
	exitAllFailed    = 2
	exitVerification = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// run builds a fresh command tree, executes it and releases the log file
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, orchestrators.ErrAllStrategiesFailed):
		return exitAllFailed
	case errors.Is(err, gateways.ErrSignatureMismatch), errors.Is(err, gateways.ErrChecksumMismatch):
		return exitVerification
	default:
		return exitError
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "decant",
		Short: "Turn Windows installers into portable applications",
		Long: `decant inspects Windows executables, unpacks installers with whichever
extraction tool succeeds first and lays the result out as a self-contained
portable application directory.

Settings live in ` + inifile.ConfigRelPath + ` under the user config directory.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Settings file (default is the user config directory)")
	flags.CountVarP(&a.verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	flags.StringVar(&a.logFile, "log-file", "", `Log file path ("-" disables file logging)`)
	flags.BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newInspectCmd(a),
		newExtractCmd(a),
		newBuildCmd(a),
		newVerifyCmd(a),
		newToolsCmd(a),
		newConfigCmd(a),
	)
	return root
}
