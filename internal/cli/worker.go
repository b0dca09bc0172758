package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tillworks/cloudsync/internal/entities"
	"github.com/tillworks/cloudsync/internal/worker"
)

// WorkerCommand runs the sync worker, either as a long-lived daemon or
// as a single queue drain.
type WorkerCommand struct {
	DatabasePath string
	Once         bool
}

// NewWorkerCommand creates a new WorkerCommand
func NewWorkerCommand() *WorkerCommand {
	return &WorkerCommand{}
}

// ParseFlags parses command line flags
func (cmd *WorkerCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("worker", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the local database file (default from DATABASE_PATH)")
	fs.BoolVar(&cmd.Once, "once", false, "Process all pending jobs once and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s worker [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Run the sync worker. Without -once it polls the job ledger until\n")
		fmt.Fprintf(os.Stderr, "interrupted (SIGINT or SIGTERM).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

// Run executes the worker command
func (cmd *WorkerCommand) Run() error {
	eng, err := newEngine(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer eng.Close()

	if cmd.Once {
		batch, err := eng.worker.ProcessAllPendingJobs(context.Background())
		if err != nil {
			return err
		}
		succeeded := 0
		for _, r := range batch.Results {
			if r.Status == entities.JobStatusSuccess {
				succeeded++
			}
		}
		fmt.Printf("Processed %d job(s): %d succeeded, %d failed\n",
			batch.Processed, succeeded, batch.Processed-succeeded)
		return nil
	}

	loop := worker.NewLoop(eng.worker)
	if err := loop.Start(context.Background()); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	fmt.Println("Shutting down...")
	loop.Stop()
	return nil
}
