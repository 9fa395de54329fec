package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/LexForumLab/lexforum/client/internal/draft"
)

func newDraftCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Manage saved drafts",
	}
	cmd.AddCommand(newDraftListCommand())
	cmd.AddCommand(newDraftSaveCommand())
	cmd.AddCommand(newDraftComposeCommand())
	cmd.AddCommand(newDraftRemoveCommand())
	return cmd
}

func newDraftListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List drafts, most recently modified first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			records, err := a.drafts.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("no drafts")
				return nil
			}
			for _, record := range records {
				modified := time.Unix(record.ModifiedAtSeconds, 0).UTC().Format(time.RFC3339)
				title := record.Title
				if title == "" {
					title = "(untitled)"
				}
				fmt.Printf("%s  %s  modified %s\n", record.ID, title, modified)
			}
			return nil
		},
	}
}

func newDraftSaveCommand() *cobra.Command {
	var id, title, content, category string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save a draft; an entirely empty draft deletes any stored copy",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			saved, err := a.drafts.Save(cmd.Context(), draft.Record{
				ID:       id,
				Title:    title,
				Content:  content,
				Category: category,
			})
			if err != nil {
				return err
			}
			if saved.ID == "" {
				fmt.Println("draft was empty; nothing persisted")
				return nil
			}
			fmt.Printf("saved draft %s\n", saved.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Existing draft identity (omit to create)")
	cmd.Flags().StringVar(&title, "title", "", "Draft title")
	cmd.Flags().StringVar(&content, "content", "", "Draft body")
	cmd.Flags().StringVar(&category, "category", "", "Draft category")
	return cmd
}

func newDraftComposeCommand() *cobra.Command {
	var id, title, category string
	cmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose a draft body from stdin, autosaving as input settles",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()
			return a.composeDraft(cmd.Context(), draft.Record{ID: id, Title: title, Category: category},
				cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Existing draft identity (omit to create)")
	cmd.Flags().StringVar(&title, "title", "", "Draft title")
	cmd.Flags().StringVar(&category, "category", "", "Draft category")
	return cmd
}

// composeDraft appends each input line to the draft body and hands the
// result to the autosaver. A burst of lines lands as one write once input
// stays quiet for the configured delay; remaining state is flushed on EOF.
func (a *app) composeDraft(ctx context.Context, record draft.Record, in io.Reader, out io.Writer) error {
	var idMu sync.Mutex
	allocatedID := record.ID

	saver, err := draft.NewAutosaver(draft.AutosaverConfig{
		Store:    a.drafts,
		Debounce: a.cfg.AutosaveDelay,
		Logger:   a.logger,
		OnSaved: func(saved draft.Record) {
			idMu.Lock()
			allocatedID = saved.ID
			idMu.Unlock()
			fmt.Fprintf(out, "autosaved draft %s\n", saved.ID)
		},
		OnWarning: func(saveErr error) {
			fmt.Fprintf(out, "autosave failed: %v\n", saveErr)
		},
	})
	if err != nil {
		return err
	}
	defer saver.Stop()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if record.Content == "" {
			record.Content = scanner.Text()
		} else {
			record.Content += "\n" + scanner.Text()
		}
		idMu.Lock()
		record.ID = allocatedID
		idMu.Unlock()
		saver.Edit(record)
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	saver.Flush(ctx)

	idMu.Lock()
	finalID := allocatedID
	idMu.Unlock()
	if finalID == "" {
		fmt.Fprintln(out, "draft was empty; nothing persisted")
		return nil
	}
	fmt.Fprintf(out, "saved draft %s\n", finalID)
	return nil
}

func newDraftRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.drafts.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted draft %s\n", args[0])
			return nil
		},
	}
}
