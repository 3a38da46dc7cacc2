package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-image-studio/internal/domain"
	"github.com/tbourn/go-image-studio/internal/view"
)

var errNoSuchItem = errors.New("no such history item")

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List and manage recorded generations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show recorded generations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := a.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()
			fmt.Fprintln(a.out, view.History(store.Items(), store.Loaded(), time.Now()))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <index|id>",
		Short: "Remove one item (1-based index from 'list' or an id prefix)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := a.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()
			it, err := resolveItem(store.Items(), args[0])
			if err != nil {
				return err
			}
			store.Remove(cmd.Context(), it.ID)
			fmt.Fprintln(a.out, view.Success(view.NoticeRemoved))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <index|id>",
		Short: "Show every detail of one item, including its image URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := a.historyItem(cmd, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, view.Item(it, time.Now()))
			return nil
		},
	})

	var dir string
	download := &cobra.Command{
		Use:   "download <index|id>",
		Short: "Save an item's image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := a.historyItem(cmd, args[0])
			if err != nil {
				return err
			}
			path, err := a.apiClient().Download(cmd.Context(), it.ImageURL, dir, time.Now())
			if err != nil {
				fmt.Fprintln(a.out, view.Failure(view.NoticeDownloadFail))
				return err
			}
			fmt.Fprintln(a.out, view.Success(view.NoticeDownloaded+" "+path))
			return nil
		},
	}
	download.Flags().StringVarP(&dir, "output", "o", ".", "directory to save into")
	cobra.CheckErr(download.MarkFlagDirname("output"))
	cmd.AddCommand(download)

	var copyPrompt bool
	share := &cobra.Command{
		Use:   "share <index|id>",
		Short: "Copy an item's image URL (or revised prompt) to the clipboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := a.historyItem(cmd, args[0])
			if err != nil {
				return err
			}
			if copyPrompt {
				a.copyNotice(it.RevisedPrompt, view.NoticePromptCopied, view.NoticePromptCopyErr)
				return nil
			}
			a.copyNotice(it.ImageURL, view.NoticeURLCopied, view.NoticeURLCopyFail)
			return nil
		},
	}
	share.Flags().BoolVar(&copyPrompt, "prompt", false, "copy the revised prompt instead of the URL")
	cmd.AddCommand(share)

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove every item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := a.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer closeStore()
			store.Clear(cmd.Context())
			fmt.Fprintln(a.out, view.Success(view.NoticeCleared))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Print the history again whenever another process changes it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, closeStore, err := a.openHistory(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			out := newSyncWriter(a.out)
			fmt.Fprintln(out, view.History(store.Items(), store.Loaded(), time.Now()))
			cancel := store.Subscribe(func(items []domain.HistoryItem) {
				fmt.Fprintln(out, "\n"+view.History(items, true, time.Now()))
			})
			defer cancel()
			if err := store.Watch(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		},
	})
	return cmd
}

// historyItem opens the store just long enough to resolve ref.
func (a *app) historyItem(cmd *cobra.Command, ref string) (domain.HistoryItem, error) {
	store, closeStore, err := a.openHistory(cmd.Context())
	if err != nil {
		return domain.HistoryItem{}, err
	}
	defer closeStore()
	return resolveItem(store.Items(), ref)
}

// resolveItem finds an item by 1-based position or by unique id prefix.
func resolveItem(items []domain.HistoryItem, ref string) (domain.HistoryItem, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(items) {
			return domain.HistoryItem{}, fmt.Errorf("%w: index %d", errNoSuchItem, n)
		}
		return items[n-1], nil
	}
	var found []domain.HistoryItem
	for _, it := range items {
		if strings.HasPrefix(it.ID, ref) {
			found = append(found, it)
		}
	}
	switch len(found) {
	case 0:
		return domain.HistoryItem{}, fmt.Errorf("%w: %q", errNoSuchItem, ref)
	case 1:
		return found[0], nil
	}
	return domain.HistoryItem{}, fmt.Errorf("id prefix %q is ambiguous (%d matches)", ref, len(found))
}

func newExamplesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "examples",
		Short: "List starter prompts",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			fmt.Fprintln(a.out, view.Examples())
			return nil
		},
	}
}
