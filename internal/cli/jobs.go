package cli

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/tillworks/cloudsync/internal/entities"
	"github.com/tillworks/cloudsync/internal/jobs"
)

// JobsCommand manages the sync job ledger.
type JobsCommand struct {
	DatabasePath string
	Action       string

	JobID        string
	JobType      string
	ConnectionID string
	Strategy     string
	DryRun       bool
	NoBackup     bool
}

// NewJobsCommand creates a new JobsCommand
func NewJobsCommand() *JobsCommand {
	return &JobsCommand{}
}

// ParseFlags parses command line flags
func (cmd *JobsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("jobs", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the local database file (default from DATABASE_PATH)")
	fs.StringVar(&cmd.JobID, "id", "", "Job id (required for status, cancel and retry)")
	fs.StringVar(&cmd.JobType, "type", "", "Job type for enqueue: export, import, verify_export or verify_import")
	fs.StringVar(&cmd.ConnectionID, "connection", "", "Stored connection id for enqueue")
	fs.StringVar(&cmd.Strategy, "strategy", "skip", "Conflict strategy for import jobs")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Enqueue as a dry run")
	fs.BoolVar(&cmd.NoBackup, "no-backup", false, "Skip the pre-import backup for import jobs")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s jobs <enqueue|status|cancel|retry> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Manage queued sync jobs. Queued jobs are picked up by the worker.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if len(args) == 0 {
		fs.Usage()
		return fmt.Errorf("an action is required: enqueue, status, cancel or retry")
	}
	cmd.Action = args[0]

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	switch cmd.Action {
	case "enqueue":
		if !entities.JobType(cmd.JobType).IsValid() {
			fs.Usage()
			return fmt.Errorf("invalid job type %q", cmd.JobType)
		}
		if cmd.ConnectionID == "" {
			fs.Usage()
			return fmt.Errorf("-connection is required for enqueue")
		}
		if entities.JobType(cmd.JobType) == entities.JobTypeImport &&
			!entities.ConflictStrategy(cmd.Strategy).IsValid() {
			return fmt.Errorf("invalid strategy %q", cmd.Strategy)
		}
	case "status", "cancel", "retry":
		if cmd.JobID == "" {
			fs.Usage()
			return fmt.Errorf("-id is required for %s", cmd.Action)
		}
	default:
		fs.Usage()
		return fmt.Errorf("unknown action %q", cmd.Action)
	}
	return nil
}

// Run executes the jobs command
func (cmd *JobsCommand) Run() error {
	eng, err := newEngine(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer eng.Close()

	switch cmd.Action {
	case "enqueue":
		return cmd.runEnqueue(eng)
	case "status":
		return cmd.runStatus(eng)
	case "cancel":
		if err := eng.jobs.Cancel(cmd.JobID); err != nil {
			return err
		}
		fmt.Printf("Cancelled job %s\n", cmd.JobID)
		return nil
	case "retry":
		if err := eng.jobs.Retry(cmd.JobID); err != nil {
			return err
		}
		fmt.Printf("Job %s queued for retry\n", cmd.JobID)
		return nil
	}
	return fmt.Errorf("unknown action %q", cmd.Action)
}

func (cmd *JobsCommand) runEnqueue(eng *engine) error {
	var details map[string]any
	if entities.JobType(cmd.JobType) == entities.JobTypeImport {
		details = map[string]any{
			"strategy": cmd.Strategy,
			"backup":   !cmd.NoBackup,
		}
	}

	job, err := eng.jobs.Enqueue(jobs.EnqueueParams{
		JobType:      entities.JobType(cmd.JobType),
		Provider:     string(entities.SyncProviderPostgres),
		ConnectionID: cmd.ConnectionID,
		DryRun:       cmd.DryRun,
		InitiatedBy:  "cli",
		Details:      details,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Enqueued %s job %s for connection %s\n", job.JobType, job.ID, job.ConnectionID)
	return nil
}

func (cmd *JobsCommand) runStatus(eng *engine) error {
	job, err := eng.jobs.Get(cmd.JobID)
	if err != nil {
		return err
	}

	fmt.Printf("Job %s\n", job.ID)
	fmt.Printf("  type:       %s\n", job.JobType)
	fmt.Printf("  status:     %s\n", job.Status)
	fmt.Printf("  connection: %s\n", job.ConnectionID)
	fmt.Printf("  attempts:   %d\n", job.Attempts)
	fmt.Printf("  created:    %s\n", job.CreatedAt.Format("2006-01-02 15:04:05"))
	if job.DryRun {
		fmt.Printf("  dry-run:    true\n")
	}
	if job.LastError != "" {
		fmt.Printf("  last error: %s\n", job.LastError)
	}
	for _, line := range formatDetails(job) {
		fmt.Println(line)
	}
	return nil
}

// formatDetails renders the job's details payload: structured data as
// sorted key/value lines, anything else verbatim.
func formatDetails(job *entities.SyncJob) []string {
	if job.Details == "" {
		return nil
	}

	decoded := job.DecodeDetails()
	if decoded == nil {
		return []string{fmt.Sprintf("  details:    %s", job.Details)}
	}

	keys := make([]string, 0, len(decoded))
	for k := range decoded {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys)+1)
	lines = append(lines, "  details:")
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("    %s: %v", k, decoded[k]))
	}
	return lines
}
