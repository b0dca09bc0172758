package main

import (
	"fmt"
	"os"

	"github.com/tillworks/cloudsync/internal/cli"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	// Without a command the binary runs the worker daemon
	if len(os.Args) < 2 {
		runCommand(cli.NewWorkerCommand(), nil)
		return
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "worker":
		runCommand(cli.NewWorkerCommand(), args)

	case "export":
		runCommand(cli.NewExportCommand(), args)

	case "import":
		runCommand(cli.NewImportCommand(), args)

	case "verify-export":
		runCommand(cli.NewVerifyExportCommand(), args)

	case "verify-import":
		runCommand(cli.NewVerifyImportCommand(), args)

	case "restore":
		runCommand(cli.NewRestoreCommand(), args)

	case "connections":
		runCommand(cli.NewConnectionsCommand(), args)

	case "jobs":
		runCommand(cli.NewJobsCommand(), args)

	case "version":
		fmt.Printf("cloudsync %s (%s)\n", Version, Commit)

	case "-h", "--help", "help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

type command interface {
	ParseFlags(args []string) error
	Run() error
}

func runCommand(cmd command, args []string) {
	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  worker          Run the sync worker (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  export          Export the local database to a stored connection\n")
	fmt.Fprintf(os.Stderr, "  import          Import from a stored connection into the local database\n")
	fmt.Fprintf(os.Stderr, "  verify-export   Compare table checksums between local and remote\n")
	fmt.Fprintf(os.Stderr, "  verify-import   Compare row counts between local and remote\n")
	fmt.Fprintf(os.Stderr, "  restore         Replace the local database with a backup file\n")
	fmt.Fprintf(os.Stderr, "  connections     Manage stored cloud connections\n")
	fmt.Fprintf(os.Stderr, "  jobs            Enqueue and inspect sync jobs\n")
	fmt.Fprintf(os.Stderr, "  version         Print version information\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
