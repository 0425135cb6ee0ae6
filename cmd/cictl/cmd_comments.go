package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCommentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Read and write comments on a demonstration",
	}

	list := &cobra.Command{
		Use:   "list <demo-id>",
		Short: "List comments, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			comments, err := a.api.Comments(ctx, id)
			if err != nil {
				return err
			}
			return a.render(comments, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "ID\tAUTHOR\tWHEN\tCOMMENT")
				for _, c := range comments {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, str(c.AuthorUsername), c.CreatedAt.Format("2006-01-02 15:04"), c.Content)
				}
			})
		},
	}

	add := &cobra.Command{
		Use:   "add <demo-id> <text>...",
		Short: "Post a comment",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			c, err := a.api.CreateComment(ctx, id, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			a.printf("Comment %d posted\n", c.ID)
			return nil
		},
	}

	cmd.AddCommand(list, add)
	return cmd
}
