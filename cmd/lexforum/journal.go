package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newJournalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the local mutation journal",
	}
	cmd.AddCommand(newJournalRecentCommand())
	cmd.AddCommand(newJournalPruneCommand())
	return cmd
}

func newJournalRecentCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recent",
		Short: "Show recent settlements, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			records, err := a.journal.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("journal is empty")
				return nil
			}
			for _, record := range records {
				settled := record.SettledAt.UTC().Format(time.RFC3339)
				line := fmt.Sprintf("%s  %-28s %-9s", settled, record.Operation, record.Outcome)
				if record.ErrorDetail != "" {
					line += "  " + record.ErrorDetail
				}
				fmt.Println(line)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum settlements to show")
	return cmd
}

func newJournalPruneCommand() *cobra.Command {
	var keepDays int
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete settlements older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			cutoff := time.Now().UTC().AddDate(0, 0, -keepDays)
			removed, err := a.journal.Prune(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d settlements\n", removed)
			return nil
		},
	}
	cmd.Flags().IntVar(&keepDays, "keep-days", 30, "Retention window in days")
	return cmd
}
