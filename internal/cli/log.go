package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/parity/internal/ports/primary"
	"github.com/example/parity/internal/wire"
)

// LogCmd returns the log command
func LogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "View the audit trail",
		Long:  "View registry and classification changes, who made them and when",
	}

	cmd.AddCommand(logTailCmd())
	cmd.AddCommand(logShowCmd())

	return cmd
}

func logTailCmd() *cobra.Command {
	var filters primary.LogFilters

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent activity",
		Long:  "Show recent audit entries (default 50)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := wire.LogService().ListLogs(NewContext(), filters)
			if err != nil {
				return fmt.Errorf("failed to fetch logs: %w", err)
			}

			printLogEntries(entries)
			return nil
		},
	}

	cmd.Flags().IntVarP(&filters.Limit, "limit", "n", primary.DefaultLogLimit, "Number of entries to show")
	cmd.Flags().StringVar(&filters.ActorID, "actor", "", "Filter by actor ID")
	cmd.Flags().StringVar(&filters.EntityType, "type", "", "Filter by entity type (workaround, classification)")

	return cmd
}

func logShowCmd() *cobra.Command {
	var filters primary.LogFilters

	cmd := &cobra.Command{
		Use:   "show [entity-id]",
		Short: "Show activity for a specific entity",
		Long: `Show activity history for a specific entity.

The entity is a workaround ID (WA-001) or a fixture@mode pair, which lists
every classification recorded or revoked for that pair.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filters.EntityID = args[0]

			entries, err := wire.LogService().ListLogs(NewContext(), filters)
			if err != nil {
				return fmt.Errorf("failed to fetch logs: %w", err)
			}

			printLogEntries(entries)
			return nil
		},
	}

	cmd.Flags().StringVar(&filters.ActorID, "actor", "", "Filter by actor ID")
	cmd.Flags().IntVarP(&filters.Limit, "limit", "n", 100, "Maximum entries to show")

	return cmd
}

func printLogEntries(entries []*primary.LogEntry) {
	if len(entries) == 0 {
		fmt.Println("No log entries found.")
		return
	}

	fmt.Printf("Found %d log entries:\n\n", len(entries))

	// Print in reverse order (oldest first) for tail view
	for i := len(entries) - 1; i >= 0; i-- {
		printLogEntry(entries[i])
	}
}

func printLogEntry(entry *primary.LogEntry) {
	actorStr := entry.ActorID
	if actorStr == "" {
		actorStr = "-"
	}

	fmt.Printf("%s | %-12s | %s %s | %s/%s",
		formatTimestamp(entry.Timestamp),
		actorStr,
		getActionIcon(entry.Action),
		entry.Action,
		entry.EntityType,
		entry.EntityID,
	)

	if entry.Action == "update" && entry.FieldName != "" {
		fmt.Printf(" | %s: %s -> %s", entry.FieldName, entry.OldValue, entry.NewValue)
	}

	fmt.Println()
}

func getActionIcon(action string) string {
	switch action {
	case "create":
		return "+"
	case "update":
		return "~"
	case "delete":
		return "-"
	default:
		return "?"
	}
}

func formatTimestamp(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Format("2006-01-02 15:04:05")
}
