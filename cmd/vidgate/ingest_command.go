package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"vidgate/internal/config"
	"vidgate/internal/queue"
)

func newIngestCommand(ctx *commandContext) *cobra.Command {
	var kindFlag string
	var durationFlag float64

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Add an uploaded clip to the moderation queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := queue.ParseKind(kindFlag)
			if !ok {
				return fmt.Errorf("unknown kind %q (expected %s, %s, or %s)",
					kindFlag, queue.KindPrimaryPost, queue.KindReplyComment, queue.KindThreadMessage)
			}
			sourcePath, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				item, err := store.NewItem(cmd.Context(), sourcePath, kind, durationFlag)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued item %d (%s) for %s\n", item.ID, item.ItemKey, sourcePath)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&kindFlag, "kind", string(queue.KindPrimaryPost), "Item kind (primary_post, reply_comment, thread_message)")
	cmd.Flags().Float64Var(&durationFlag, "duration", 0, "Declared clip duration in seconds (0 = unknown)")
	return cmd
}
