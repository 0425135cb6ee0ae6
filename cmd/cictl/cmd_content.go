package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"central-illustration/internal/models"

	"github.com/spf13/cobra"
)

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}

func newPagesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pages",
		Short: "List, add and delete a demo's pages",
	}

	list := &cobra.Command{
		Use:   "list <demo-id>",
		Short: "List pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			pages, err := a.api.Pages(ctx, id)
			if err != nil {
				return err
			}
			return a.render(pages, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "PAGE\tTITLE\tDETAIL\tUNPUBLISHED")
				for _, p := range pages {
					fmt.Fprintf(w, "%d\t%s\t%t\t%t\n", p.PageIndex, firstLine(p.TitleContent), p.HasDetail, p.HasUnpublished)
				}
			})
		},
	}

	var style int
	add := &cobra.Command{
		Use:   "add <demo-id>",
		Short: "Add a page seeded from a base style",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if style != 0 && style != 1 {
				return errors.New("--style must be 0 or 1")
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			res, err := a.api.AddPage(ctx, id, models.PageStyle(style))
			if err != nil {
				return err
			}
			a.printf("Added page %d\n", res.PageIndex)
			return nil
		},
	}
	add.Flags().IntVar(&style, "style", 0, "base style: 0 or 1")

	del := &cobra.Command{
		Use:   "delete <demo-id> <page>",
		Short: "Delete one page; other pages keep their numbers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			page, err := parsePage(args[1])
			if err != nil {
				return err
			}
			if !a.Confirm(fmt.Sprintf("Delete Page %d? This cannot be undone.", page)) {
				return errCanceled
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			if err := a.api.DeletePage(ctx, id, page); err != nil {
				return err
			}
			a.printf("Deleted page %d\n", page)
			return nil
		},
	}

	cmd.AddCommand(list, add, del)
	return cmd
}

func slotArgs(args []string) (int64, int, models.ContentType, error) {
	id, err := parseID(args[0])
	if err != nil {
		return 0, 0, "", err
	}
	page, err := parsePage(args[1])
	if err != nil {
		return 0, 0, "", err
	}
	ct, err := models.ParseContentType(args[2])
	if err != nil {
		return 0, 0, "", err
	}
	return id, page, ct, nil
}

func newContentCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Read and write a page's markdown (title, points, detail)",
	}

	get := &cobra.Command{
		Use:   "get <demo-id> <page> <type>",
		Short: "Print markdown",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, page, ct, err := slotArgs(args)
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			text, err := a.api.PageContent(ctx, id, page, ct)
			if err != nil {
				return err
			}
			if a.output != "table" {
				return a.render(models.PageContent{Content: text}, nil)
			}
			a.printf("%s\n", text)
			return nil
		},
	}

	var file string
	set := &cobra.Command{
		Use:   "set <demo-id> <page> <type>",
		Short: "Replace markdown from --file or standard input",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, page, ct, err := slotArgs(args)
			if err != nil {
				return err
			}
			var data []byte
			if file != "" {
				data, err = os.ReadFile(file)
			} else {
				data, err = io.ReadAll(a.in)
			}
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			if err := a.api.UpdatePageContent(ctx, id, page, ct, string(data)); err != nil {
				return err
			}
			a.printf("Saved %s of page %d (run cictl publish %d to make it live)\n", ct, page, id)
			return nil
		},
	}
	set.Flags().StringVarP(&file, "file", "f", "", "markdown file")

	cmd.AddCommand(get, set)
	return cmd
}

func newPublishCmd(a *app) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "publish <demo-id>",
		Short: "Promote edited content to the running demo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var target *int
			scope := "all pages"
			if page > 0 {
				target = &page
				scope = "page " + strconv.Itoa(page)
			}
			if !a.Confirm(fmt.Sprintf("Publish %s of demonstration %d?", scope, id)) {
				return errCanceled
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			res, err := a.api.Publish(ctx, id, target)
			if err != nil {
				return err
			}
			a.printf("%s (pages: %v)\n", res.Message, res.Published)
			return nil
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "publish only this page")
	return cmd
}
