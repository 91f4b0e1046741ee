// Copyright 2026 The Zypperoni Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/pavinjosdev/zypperoni/lib/config"
	"github.com/pavinjosdev/zypperoni/lib/plan"
	"github.com/pavinjosdev/zypperoni/lib/process"
	"github.com/pavinjosdev/zypperoni/lib/version"
	"github.com/pavinjosdev/zypperoni/scheduler"
)

// validJobs is the supported set of concurrency bounds. Arbitrary
// values are rejected: each slot costs a full sandbox mount set, and
// past twenty the mirror becomes the bottleneck anyway.
var validJobs = []int{1, 2, 4, 8, 10, 20}

const defaultJobs = 10

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(process.ExitGeneric)
	}

	// Set up logging.
	logLevel := slog.LevelInfo
	if os.Getenv("ZYPPERONI_DEBUG") != "" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "dup":
		err = dupCmd(ctx, args, logger)
	case "in":
		err = inCmd(ctx, args, logger)
	case "ref":
		err = refCmd(ctx, args, logger)
	case "version", "--version", "-v":
		if len(args) > 0 && args[0] == "--full" {
			fmt.Printf("zypperoni %s\n", version.Full())
		} else {
			fmt.Printf("zypperoni %s\n", version.Info())
		}
		return
	case "help", "--help", "-h":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(process.ExitGeneric)
	}

	if err != nil {
		process.Fatal(err)
	}
}

// commonFlags are the flags shared by every prefetching subcommand.
type commonFlags struct {
	jobs           int
	configPath     string
	nonInteractive bool
	dryRun         bool
}

func addCommonFlags(flagSet *pflag.FlagSet, flags *commonFlags) {
	flagSet.IntVar(&flags.jobs, "jobs", defaultJobs,
		fmt.Sprintf("concurrent downloads, one of %v", validJobs))
	flagSet.StringVar(&flags.configPath, "config", "", "config file path")
	flagSet.BoolVar(&flags.nonInteractive, "non-interactive", false,
		"run the final transaction without prompting")
	flagSet.BoolVar(&flags.dryRun, "dry-run", false,
		"derive and print the work items, mount nothing")
}

func (f *commonFlags) validate() error {
	for _, n := range validJobs {
		if f.jobs == n {
			return nil
		}
	}
	return fmt.Errorf("unsupported --jobs value %d, must be one of %v", f.jobs, validJobs)
}

func dupCmd(ctx context.Context, args []string, logger *slog.Logger) error {
	var flags commonFlags
	flagSet := pflag.NewFlagSet("dup", pflag.ContinueOnError)
	addCommonFlags(flagSet, &flags)
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if len(flagSet.Args()) > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Args()[0])
	}
	return runPrefetch(ctx, logger, flags, prefetchSpec{
		op:       scheduler.OpDownload,
		verbArgs: []string{"dist-upgrade"},
		handoff:  true,
	})
}

func inCmd(ctx context.Context, args []string, logger *slog.Logger) error {
	var flags commonFlags
	flagSet := pflag.NewFlagSet("in", pflag.ContinueOnError)
	addCommonFlags(flagSet, &flags)
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	packages := flagSet.Args()
	if len(packages) == 0 {
		return fmt.Errorf("in requires at least one package\n\nUsage: zypperoni in [flags] <package>...")
	}
	return runPrefetch(ctx, logger, flags, prefetchSpec{
		op:       scheduler.OpDownload,
		verbArgs: append([]string{"install"}, packages...),
		handoff:  true,
	})
}

func refCmd(ctx context.Context, args []string, logger *slog.Logger) error {
	var flags commonFlags
	var force bool
	flagSet := pflag.NewFlagSet("ref", pflag.ContinueOnError)
	addCommonFlags(flagSet, &flags)
	flagSet.BoolVar(&force, "force", false, "rebuild repository metadata even when current")
	if err := flagSet.Parse(args); err != nil {
		return err
	}
	if len(flagSet.Args()) > 0 {
		return fmt.Errorf("unexpected argument: %s", flagSet.Args()[0])
	}
	op := scheduler.OpRefresh
	if force {
		op = scheduler.OpForceRefresh
	}
	return runPrefetch(ctx, logger, flags, prefetchSpec{
		op:      op,
		refresh: true,
	})
}

func printUsage() {
	fmt.Fprint(os.Stderr, `zypperoni - parallel zypper prefetching

Usage:
  zypperoni dup [flags]                 prefetch and run a distribution upgrade
  zypperoni in [flags] <package>...     prefetch and install packages
  zypperoni ref [flags]                 refresh all enabled repositories
  zypperoni version [--full]            print version information

Flags:
  --jobs N             concurrent downloads (`+intsList(validJobs)+`, default 10)
  --config PATH        config file (or ZYPPERONI_CONFIG)
  --non-interactive    run the final transaction without prompting
  --dry-run            derive and print the work items, mount nothing
  --force              (ref) rebuild repository metadata even when current

Environment:
  ZYPPERONI_DEBUG      enable debug logging
  ZYPPERONI_CONFIG     config file path
`)
}

func intsList(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, "/")
}

// deriveItems produces the batch's work items via the plan package.
func deriveItems(ctx context.Context, cfg *config.Config, logger *slog.Logger, spec prefetchSpec) ([]scheduler.WorkItem, error) {
	source := &plan.Source{Tool: cfg.Tool, Logger: logger}

	var ids []string
	var err error
	if spec.refresh {
		ids, err = source.EnabledAliases(ctx)
	} else {
		ids, err = source.Downloads(ctx, spec.verbArgs)
	}
	if err != nil {
		return nil, &process.ExitError{Code: process.ExitPlanFailed, Err: err}
	}

	items := make([]scheduler.WorkItem, len(ids))
	for i, id := range ids {
		items[i] = scheduler.WorkItem{ID: id, Ordinal: i}
	}
	return items, nil
}
