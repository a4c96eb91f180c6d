// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// fdproxy-service runs the privileged side of the module file proxy.
// It serves open_file requests for files beneath the configured root
// on a SOCK_SEQPACKET socket, passing back read-only descriptors.
//
// Configuration comes from the service section of the file named by
// --config or FDPROXY_CONFIG. SIGINT and SIGTERM shut the service down;
// every connected consumer observes the hang-up as service death and
// reconnects lazily once a new instance is listening.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/fdproxy/lib/config"
	"github.com/bureau-foundation/fdproxy/lib/fileproxy"
	"github.com/bureau-foundation/fdproxy/lib/logging"
	"github.com/bureau-foundation/fdproxy/lib/process"
	"github.com/bureau-foundation/fdproxy/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var configPath string
	var showVersion bool

	flagSet := pflag.NewFlagSet("fdproxy-service", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to fdproxy.yaml (default: $FDPROXY_CONFIG)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
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
	if showVersion {
		version.Print("fdproxy-service")
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := config.LoadPath(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Service.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	level, err := config.ParseLogLevel(cfg.Service.LogLevel)
	if err != nil {
		return err
	}
	logger := logging.New(level).With("component", "fileproxy")

	server, err := fileproxy.NewServer(fileproxy.Config{
		SocketPath:  cfg.Service.SocketPath,
		Root:        cfg.Service.Root,
		Digest:      cfg.Service.Digest,
		AllowedUIDs: cfg.Service.AllowedUIDs,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Serve(ctx); err != nil {
		return err
	}
	logger.Info("file proxy stopped")
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `fdproxy-service - serve privileged module files as descriptors

Usage:
  fdproxy-service [flags]

Example fdproxy.yaml:
  service:
    socket_path: /run/fdproxy/fileproxy.sock
    root: /data/user_de/0/com.example.host
    digest: true
    allowed_uids: [10123, 10456]

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
