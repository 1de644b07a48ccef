package main

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"snapbox/internal/startup"
)

// options are the command-line flags. Everything else is configured through the
// environment or the config file.
type options struct {
	configFile string
	version    bool
	help       bool
}

func parseFlags(args []string, stderr io.Writer) (options, *pflag.FlagSet, error) {
	var opts options

	flagSet := pflag.NewFlagSet("snapbox", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&opts.configFile, "config", "c", "", "TOML config file (overrides CONFIG_FILE)")
	flagSet.BoolVar(&opts.version, "version", false, "print version information and exit")
	flagSet.BoolVarP(&opts.help, "help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		return opts, flagSet, err
	}
	if rest := flagSet.Args(); len(rest) > 0 {
		return opts, flagSet, fmt.Errorf("unexpected argument: %s", rest[0])
	}
	return opts, flagSet, nil
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprintln(w, "Usage: snapbox [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Runs the capture appliance. Settings are read from environment variables,")
	fmt.Fprintln(w, "optionally layered over a TOML config file.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprint(w, flagSet.FlagUsages())
}

func printVersion(w io.Writer) {
	info := startup.GetBuildInfo()
	fmt.Fprintf(w, "snapbox %s (commit %s, built %s, %s %s/%s)\n",
		info.Version, info.Commit, info.BuildTime, info.GoVersion, info.OS, info.Arch)
}
