package cli

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tillworks/cloudsync/internal/entities"
)

// ConnectionsCommand manages stored cloud connections.
type ConnectionsCommand struct {
	DatabasePath string
	Action       string

	ConnectionID string
	Provider     string
	Label        string
	ConnString   string
}

// NewConnectionsCommand creates a new ConnectionsCommand
func NewConnectionsCommand() *ConnectionsCommand {
	return &ConnectionsCommand{}
}

// ParseFlags parses command line flags
func (cmd *ConnectionsCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("connections", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", "", "Path to the local database file (default from DATABASE_PATH)")
	fs.StringVar(&cmd.ConnectionID, "id", "", "Connection id (required for add and delete)")
	fs.StringVar(&cmd.Provider, "provider", string(entities.SyncProviderPostgres), "Remote provider")
	fs.StringVar(&cmd.Label, "label", "", "Human readable label for the connection")
	fs.StringVar(&cmd.ConnString, "conn-string", "", "Connection string; read from stdin when omitted")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s connections <add|list|delete> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Manage stored cloud connections. Connection strings are encrypted at rest.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if len(args) == 0 {
		fs.Usage()
		return fmt.Errorf("an action is required: add, list or delete")
	}
	cmd.Action = args[0]

	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	switch cmd.Action {
	case "add", "delete":
		if cmd.ConnectionID == "" {
			fs.Usage()
			return fmt.Errorf("-id is required for %s", cmd.Action)
		}
	case "list":
	default:
		fs.Usage()
		return fmt.Errorf("unknown action %q", cmd.Action)
	}
	return nil
}

// Run executes the connections command
func (cmd *ConnectionsCommand) Run() error {
	eng, err := newEngine(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer eng.Close()

	switch cmd.Action {
	case "add":
		return cmd.runAdd(eng)
	case "list":
		return cmd.runList(eng)
	case "delete":
		return cmd.runDelete(eng)
	}
	return fmt.Errorf("unknown action %q", cmd.Action)
}

func (cmd *ConnectionsCommand) runAdd(eng *engine) error {
	connString := cmd.ConnString
	if connString == "" {
		// Keeps the secret out of shell history.
		fmt.Print("Connection string: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read connection string: %w", err)
		}
		connString = strings.TrimSpace(line)
	}
	if connString == "" {
		return fmt.Errorf("connection string must not be empty")
	}

	err := eng.secrets.Save(cmd.ConnectionID, entities.SyncProvider(cmd.Provider), cmd.Label, connString)
	if err != nil {
		return err
	}
	fmt.Printf("Saved connection %s (%s)\n", cmd.ConnectionID, cmd.Provider)
	return nil
}

func (cmd *ConnectionsCommand) runList(eng *engine) error {
	infos, err := eng.secrets.List()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No connections stored")
		return nil
	}
	for _, info := range infos {
		label := info.Label
		if label == "" {
			label = "-"
		}
		fmt.Printf("%-24s %-10s %-20s created %s\n",
			info.ID, info.Provider, label, info.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

func (cmd *ConnectionsCommand) runDelete(eng *engine) error {
	if err := eng.secrets.Delete(cmd.ConnectionID); err != nil {
		return err
	}
	fmt.Printf("Deleted connection %s\n", cmd.ConnectionID)
	return nil
}
