package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/LexForumLab/lexforum/client/internal/api"
	"github.com/LexForumLab/lexforum/client/internal/cache"
	"github.com/LexForumLab/lexforum/client/internal/identity"
	"github.com/LexForumLab/lexforum/client/internal/mutation"
	"github.com/LexForumLab/lexforum/client/internal/resource"
)

func newReminderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminder",
		Short: "Manage reminders",
	}
	cmd.AddCommand(newReminderListCommand())
	cmd.AddCommand(newReminderAddCommand())
	cmd.AddCommand(newReminderDoneCommand())
	cmd.AddCommand(newReminderRemoveCommand())
	return cmd
}

func newReminderListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List reminders, soonest due first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			collection, err := fetchReminders(cmd.Context(), a)
			if err != nil {
				return err
			}
			printReminders(collection)
			return nil
		},
	}
}

func newReminderAddCommand() *cobra.Command {
	var title string
	var due string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a reminder",
		RunE: func(cmd *cobra.Command, args []string) error {
			dueAt, err := time.Parse(time.RFC3339, due)
			if err != nil {
				return fmt.Errorf("invalid --due, expected RFC3339: %w", err)
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if _, err := fetchReminders(ctx, a); err != nil {
				return err
			}

			payload := resource.ReminderPayload{Title: title, DueAtSeconds: dueAt.Unix()}
			key := reminderListKey()
			outcome, err := a.executor.Execute(ctx, mutation.Operation{
				Name:     "reminders.create",
				Kind:     resource.KindReminder,
				Strategy: mutation.StrategyCreate,
				Keys:     []cache.Key{key},
				Less:     resource.Less(resource.KindReminder),
				Apply: func(store *cache.Store, tempID identity.EntityID) error {
					placeholder, applyErr := resource.Materialize(payload, tempID, time.Now().UTC().Unix())
					if applyErr != nil {
						return applyErr
					}
					store.Write(key, func(old any, present bool) any {
						collection, _ := old.(cache.Collection)
						return collection.InsertSorted(placeholder, resource.Less(resource.KindReminder))
					})
					return nil
				},
				Call: func(ctx context.Context, _ identity.EntityID) (resource.Entity, error) {
					return callOnce(ctx, func() (resource.Entity, error) {
						return a.client.Create(ctx, payload)
					})
				},
			})
			if err != nil {
				return fmt.Errorf("%s", api.UserMessage(err))
			}
			fmt.Printf("created reminder %s\n", outcome.Entity.ID())
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Reminder title")
	cmd.Flags().StringVar(&due, "due", "", "Due date, RFC3339")
	cmd.MarkFlagRequired("title") //nolint:errcheck
	cmd.MarkFlagRequired("due")   //nolint:errcheck
	return cmd
}

func newReminderDoneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle a reminder's done state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseServerID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			collection, err := fetchReminders(ctx, a)
			if err != nil {
				return err
			}
			index := collection.IndexOfID(id)
			if index < 0 {
				return fmt.Errorf("reminder %s not found", id)
			}
			current := collection.Items[index].(resource.Reminder)
			payload := resource.ReminderPayload{
				Title:        current.Title,
				DueAtSeconds: current.DueAtSeconds,
				Done:         !current.Done,
			}

			key := reminderListKey()
			_, err = a.executor.Execute(ctx, mutation.Operation{
				Name:     "reminders.toggle_done",
				Kind:     resource.KindReminder,
				Strategy: mutation.StrategyUpdate,
				EntityID: id,
				Keys:     []cache.Key{key},
				Less:     resource.Less(resource.KindReminder),
				Apply: func(store *cache.Store, _ identity.EntityID) error {
					store.Write(key, func(old any, present bool) any {
						cached, ok := old.(cache.Collection)
						if !ok {
							return old
						}
						rowIndex := cached.IndexOfID(id)
						if rowIndex < 0 {
							return old
						}
						row := cached.Items[rowIndex].(resource.Reminder)
						row.Done = payload.Done
						return cached.ReplaceAt(rowIndex, row, nil)
					})
					return nil
				},
				Call: func(ctx context.Context, _ identity.EntityID) (resource.Entity, error) {
					return callOnce(ctx, func() (resource.Entity, error) {
						return a.client.Update(ctx, id, payload)
					})
				},
			})
			if err != nil {
				return fmt.Errorf("%s", api.UserMessage(err))
			}
			fmt.Printf("reminder %s done=%t\n", id, payload.Done)
			return nil
		},
	}
}

func newReminderRemoveCommand() *cobra.Command {
	var immediate bool
	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a reminder, with a short undo window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseServerID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			collection, err := fetchReminders(ctx, a)
			if err != nil {
				return err
			}
			if collection.IndexOfID(id) < 0 {
				return fmt.Errorf("reminder %s not found", id)
			}
			return a.removeReminder(ctx, id, cmd.InOrStdin(), cmd.OutOrStdout(), immediate)
		},
	}
	cmd.Flags().BoolVar(&immediate, "now", false, "Skip the undo window")
	return cmd
}

// removeReminder takes the row out of the list right away but defers the
// backend delete until the undo window closes. A line on in within the
// window reverts the removal without any network traffic.
func (a *app) removeReminder(ctx context.Context, id identity.EntityID, in io.Reader, out io.Writer, immediate bool) error {
	key := reminderListKey()
	if !immediate {
		snapshot := a.store.Snapshot(key)
		a.store.Write(key, func(old any, present bool) any {
			cached, ok := old.(cache.Collection)
			if !ok {
				return old
			}
			return cached.RemoveByID(id)
		})
		a.undo.Arm(snapshot, "reminders.delete", a.cfg.UndoTTL, nil)
		fmt.Fprintf(out, "deleted reminder %s; press Enter within %s to undo\n", id, a.cfg.UndoTTL)
		if waitForLine(in, a.cfg.UndoTTL) && a.undo.Revert() {
			fmt.Fprintf(out, "restored reminder %s\n", id)
			return nil
		}
		a.undo.Commit()
	}

	_, err := a.executor.Execute(ctx, mutation.Operation{
		Name:     "reminders.delete",
		Kind:     resource.KindReminder,
		Strategy: mutation.StrategyDelete,
		EntityID: id,
		Keys:     []cache.Key{key},
		Apply: func(store *cache.Store, _ identity.EntityID) error {
			store.Write(key, func(old any, present bool) any {
				cached, ok := old.(cache.Collection)
				if !ok {
					return old
				}
				return cached.RemoveByID(id)
			})
			return nil
		},
		Call: func(ctx context.Context, _ identity.EntityID) (resource.Entity, error) {
			return callOnce(ctx, func() (resource.Entity, error) {
				return nil, a.client.Delete(ctx, resource.KindReminder, id)
			})
		},
	})
	if err != nil {
		return fmt.Errorf("%s", api.UserMessage(err))
	}
	fmt.Fprintf(out, "deleted reminder %s\n", id)
	return nil
}

// waitForLine blocks until a full line arrives on in or the window elapses.
func waitForLine(in io.Reader, window time.Duration) bool {
	lines := make(chan struct{}, 1)
	go func() {
		if _, err := bufio.NewReader(in).ReadString('\n'); err == nil {
			lines <- struct{}{}
		}
	}()
	select {
	case <-lines:
		return true
	case <-time.After(window):
		return false
	}
}

func reminderListKey() cache.Key {
	return cache.NewKey(resource.KindReminder, nil)
}

// fetchReminders pulls the list from the backend through the store's
// generation gate, so a result landing after an intervening write is
// discarded rather than clobbering newer state.
func fetchReminders(ctx context.Context, a *app) (cache.Collection, error) {
	key := reminderListKey()
	generation := a.store.BeginFetch(key)
	result, err := a.client.List(ctx, resource.KindReminder, nil)
	if err != nil {
		return cache.Collection{}, fmt.Errorf("%s", api.UserMessage(err))
	}
	collection := cache.Collection{Items: result.Items, Total: result.Total}
	a.store.CompleteFetch(key, generation, collection)

	value, ok := a.store.Read(key)
	if !ok {
		return cache.Collection{}, nil
	}
	return value.(cache.Collection), nil
}

func printReminders(collection cache.Collection) {
	if len(collection.Items) == 0 {
		fmt.Println("no reminders")
		return
	}
	for _, item := range collection.Items {
		reminder := item.(resource.Reminder)
		dueAt := time.Unix(reminder.DueAtSeconds, 0).UTC().Format(time.RFC3339)
		marker := " "
		if reminder.Done {
			marker = "x"
		}
		fmt.Printf("[%s] %-6s %s  due %s\n", marker, reminder.EntityID, reminder.Title, dueAt)
	}
	fmt.Printf("%d of %d shown\n", len(collection.Items), collection.Total)
}

func parseServerID(raw string) (identity.EntityID, error) {
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return identity.NewServerID(value)
}
