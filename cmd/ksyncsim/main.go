// Package main implements the ksyncsim CLI tool.
//
// ksyncsim runs synchronization scenarios against a real ksync kernel: it
// loads a TOML description of tasks and resources, spawns the tasks as a
// process, executes each task's script of syscalls, and prints the
// per-operation trace plus a final accounting snapshot. Scenarios that
// genuinely deadlock are cut off by a watchdog and reported as blocked.
//
// Usage:
//
//	ksyncsim run scenario.toml [more.toml ...]
//	ksyncsim version
//
// Example scenarios live under examples/ in this repository.
package main

import (
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/kolkov/ksync/sys"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch command := os.Args[1]; command {
	case "run":
		runCommand(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("ksyncsim version %s\n", sys.Version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runCommand(paths []string) {
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "run: at least one scenario file required")
		os.Exit(1)
	}

	if os.Getenv("KSYNC_TRACE") != "" {
		sys.EnableTrace(os.Stderr)
	}

	// Scenarios are independent kernels; run them concurrently and print
	// each report whole once its scenario settles.
	reports := make([]*Report, len(paths))
	var g errgroup.Group
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			scenario, err := LoadScenario(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			reports[i] = scenario.Run()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	for _, r := range reports {
		fmt.Print(Render(r))
	}
	for _, r := range reports {
		if len(r.Blocked) > 0 {
			os.Exit(2)
		}
	}
}

func printUsage() {
	fmt.Print(`ksyncsim - synchronization scenario simulator

USAGE:
    ksyncsim <command> [arguments]

COMMANDS:
    run        Run one or more TOML scenario files
    version    Show version information
    help       Show this help message

EXAMPLES:
    # Watch the deadlock detector refuse a circular wait
    ksyncsim run examples/circular_wait.toml

    # Replay the same workload without detection (real deadlock,
    # reported as blocked by the watchdog)
    ksyncsim run examples/circular_wait_undetected.toml

    # Run several scenarios at once
    ksyncsim run examples/*.toml

ENVIRONMENT:
    KSYNC_TRACE    When set, per-syscall kernel trace lines go to stderr
`)
}
