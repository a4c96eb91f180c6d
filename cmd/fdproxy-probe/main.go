// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// fdproxy-probe exercises the consumer side of the module proxy from
// the command line. It settles a feature gate for the described
// process, then passes each argument through the installed hooks:
// either as a class or native-library search path to rewrite, or
// (with --mtime) as a file whose modification time to report. With
// --entries it finishes by listing the descriptor cache.
//
// Configuration comes from the client section of the file named by
// --config or FDPROXY_CONFIG.
package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fdproxy/lib/config"
	"github.com/bureau-foundation/fdproxy/lib/eligibility"
	"github.com/bureau-foundation/fdproxy/lib/featuregate"
	"github.com/bureau-foundation/fdproxy/lib/hooks"
	"github.com/bureau-foundation/fdproxy/lib/logging"
	"github.com/bureau-foundation/fdproxy/lib/process"
	"github.com/bureau-foundation/fdproxy/lib/proxyclient"
	"github.com/bureau-foundation/fdproxy/lib/version"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		process.Fatal(err)
	}
}

type options struct {
	configPath  string
	uid         int
	packageName string
	processName string
	authority   string
	native      bool
	modTime     bool
	entries     bool
	showVersion bool
}

func run(args []string, stdout io.Writer) error {
	var opts options

	flagSet := pflag.NewFlagSet("fdproxy-probe", pflag.ContinueOnError)
	flagSet.StringVar(&opts.configPath, "config", "", "path to fdproxy.yaml (default: $FDPROXY_CONFIG)")
	flagSet.IntVar(&opts.uid, "uid", os.Getuid(), "UID of the process to act as")
	flagSet.StringVar(&opts.packageName, "package", "", "consumer package of the process (required)")
	flagSet.StringVar(&opts.processName, "process-name", "", "process name (default: the package name)")
	flagSet.StringVar(&opts.authority, "authority", "", "activate only as if this content authority were acquired")
	flagSet.BoolVar(&opts.native, "native", false, "treat arguments as native-library search paths")
	flagSet.BoolVar(&opts.modTime, "mtime", false, "report modification times instead of rewriting")
	flagSet.BoolVar(&opts.entries, "entries", false, "list the descriptor cache when done")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if opts.showVersion {
		version.Print("fdproxy-probe")
		return nil
	}
	if opts.packageName == "" {
		return fmt.Errorf("--package is required")
	}
	if opts.processName == "" {
		opts.processName = opts.packageName
	}

	cfg, err := config.LoadPath(opts.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Client.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	level, err := config.ParseLogLevel(cfg.Client.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(level).With("component", "fdproxy-probe")

	oracle, err := loadOracle(cfg.Client)
	if err != nil {
		return err
	}

	gate := featuregate.New(featuregate.Config{
		Resolver:         proxyclient.SocketResolver{SocketPath: cfg.Client.SocketPath},
		DataRoot:         cfg.Client.DataRoot,
		PackageName:      cfg.Client.Package,
		TriggerAuthority: cfg.Client.TriggerAuthority,
		Oracle:           oracle,
		InstallHooks:     true,
		Logger:           logger,
	})

	self := eligibility.Process{
		UID:         opts.uid,
		PackageName: opts.packageName,
		ProcessName: opts.processName,
	}
	if opts.authority != "" {
		err = gate.ActivateOnTrigger(opts.authority, self)
	} else {
		err = gate.Activate(self)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "gate: %s\n", gate.State())

	for _, arg := range flagSet.Args() {
		if opts.modTime {
			modified, err := hooks.FileModTime(arg)
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "%s\t%s\n", arg, modified.UTC().Format(time.RFC3339Nano))
			continue
		}
		rewritten, err := hooks.ModifyClassLoaderPath(arg, opts.native)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, rewritten)
	}

	if opts.entries {
		printEntries(stdout, gate)
	}
	return nil
}

// loadOracle reads the configured consumer list. Without one, no
// process is eligible.
func loadOracle(client config.ClientConfig) (eligibility.Oracle, error) {
	if client.ConsumersFile == "" {
		return eligibility.NewConsumerList(client.Package), nil
	}
	return eligibility.ReadConsumerList(client.ConsumersFile, client.Package)
}

func printEntries(stdout io.Writer, gate *featuregate.Gate) {
	cache := gate.Cache()
	if cache == nil {
		return
	}
	writer := tabwriter.NewWriter(stdout, 2, 0, 2, ' ', 0)
	fmt.Fprintf(writer, "STATE\tFD\tPATH\tDIGEST\n")
	for _, entry := range cache.Entries() {
		fmt.Fprintf(writer, "live\t%d\t%s\t%s\n", entry.Fd, entry.Path, entry.Digest)
	}
	for _, entry := range cache.Stale() {
		fmt.Fprintf(writer, "stale\t%d\t%s\t%s\n", entry.Fd, entry.Path, entry.Digest)
	}
	writer.Flush()
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `fdproxy-probe - rewrite paths through the module proxy

Usage:
  fdproxy-probe [flags] --package <consumer> PATHLIST...

Examples:
  # Rewrite a class path as consumer com.example.maps (uid 10123)
  fdproxy-probe --uid 10123 --package com.example.maps \
      /system/framework/base.jar:/data/user_de/0/com.example.host/app_modules/m.apk

  # Native-library path with an archive entry
  fdproxy-probe --uid 10123 --package com.example.maps --native \
      '/data/user_de/0/com.example.host/app_modules/m.apk!/lib/arm64-v8a'

  # Modification time through the proxied descriptor
  fdproxy-probe --uid 10123 --package com.example.maps --mtime \
      /data/user_de/0/com.example.host/app_modules/m.apk

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
