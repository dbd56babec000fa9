package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"markit/internal/bookmark/view"
)

// NewWatchCommand creates the watch command: a live view of the collection
// that re-renders every time a change event lands.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow your bookmarks live until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := rootOpts.userID()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c := rootOpts.client()
			vm, err := view.NewFromStore(ctx, userID, c, c, nil)
			if err != nil {
				return err
			}
			vm.SetFilter(filter)

			vm.OnChange = func() {
				fmt.Fprintln(cmd.OutOrStdout())
				printBookmarks(cmd, vm.Visible())
			}

			if err := vm.Subscribe(ctx); err != nil {
				return err
			}
			defer vm.Unsubscribe()

			printBookmarks(cmd, vm.Visible())
			fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes, Ctrl-C to stop...")

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "case-insensitive substring match on title or url")
	return cmd
}
