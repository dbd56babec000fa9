package cli

import (
	"github.com/spf13/cobra"

	"markit/internal/bookmark/view"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print your bookmarks, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := rootOpts.userID()
			if err != nil {
				return err
			}

			snapshot, err := rootOpts.client().List(cmd.Context())
			if err != nil {
				return err
			}

			p := view.NewProjection(userID, snapshot)
			p.SetFilter(filter)
			printBookmarks(cmd, p.Visible())
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "case-insensitive substring match on title or url")
	return cmd
}
