package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"markit/internal/bookmark/model"
	"markit/internal/client"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Server string
	Token  string
}

// NewRootCommand creates the root command for the markitctl CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "markitctl",
		Short: "Terminal client for a MarkIt server",
		Long:  "List, add, delete, and watch your bookmarks against a running MarkIt backend.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Server == "" {
				opts.Server = os.Getenv("MARKIT_SERVER")
			}
			if opts.Token == "" {
				opts.Token = os.Getenv("MARKIT_TOKEN")
			}
			if opts.Server == "" || opts.Token == "" {
				return errors.New("--server and --token are required (or set MARKIT_SERVER / MARKIT_TOKEN)")
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", "", "server base URL, e.g. http://localhost:8080")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "session JWT")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

func (o *RootOptions) client() *client.Client {
	return client.New(o.Server, o.Token)
}

// userID extracts the subject claim from the session token. The server is the
// one that verifies the signature; the CLI only needs to know who it is.
func (o *RootOptions) userID() (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(o.Token, claims); err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errors.New("token has no sub claim")
	}
	return sub, nil
}

func printBookmarks(cmd *cobra.Command, bookmarks []model.Bookmark) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tTITLE\tURL")
	for _, b := range bookmarks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.ID, b.CreatedAt.Format("2006-01-02 15:04"), b.Title, b.URL)
	}
	w.Flush()
}
