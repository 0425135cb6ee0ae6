package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"central-illustration/internal/layout"
	"central-illustration/internal/models"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func printItems(w *tabwriter.Writer, items []models.LayoutItem) {
	fmt.Fprintln(w, "ID\tTYPE\tX\tY\tW\tH\tCONTENT")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%g\t%g\t%s\n", it.ID, it.Type, it.X, it.Y, it.Width, it.Height, firstLine(it.Content))
	}
}

// readLayout accepts YAML or JSON; field names follow the JSON wire format.
func readLayout(path string) (models.Layout, error) {
	var l models.Layout
	data, err := os.ReadFile(path)
	if err != nil {
		return l, err
	}
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return l, fmt.Errorf("parse %s: %w", path, err)
	}
	normalized, err := json.Marshal(generic)
	if err != nil {
		return l, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := json.Unmarshal(normalized, &l); err != nil {
		return l, fmt.Errorf("parse %s: %w", path, err)
	}
	if l.Items == nil {
		l.Items = []models.LayoutItem{}
	}
	return l, nil
}

func newLayoutCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Inspect and replace a page's hero canvas",
	}

	get := &cobra.Command{
		Use:   "get <demo-id> <page>",
		Short: "Print the layout items",
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
			ctx, cancel := a.context(cmd)
			defer cancel()
			l, err := a.api.Layout(ctx, id, page)
			if err != nil {
				return err
			}
			return a.render(l, func(w *tabwriter.Writer) { printItems(w, l.Items) })
		},
	}

	set := &cobra.Command{
		Use:   "set <demo-id> <page> <file>",
		Short: "Replace the layout with the items in a YAML or JSON file",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			page, err := parsePage(args[1])
			if err != nil {
				return err
			}
			l, err := readLayout(args[2])
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			if err := a.api.SaveLayout(ctx, id, page, l); err != nil {
				return err
			}
			a.printf("Saved %d items on page %d\n", len(l.Items), page)
			return nil
		},
	}

	addImage := &cobra.Command{
		Use:   "add-image <demo-id> <page> <image>",
		Short: "Upload an image and place it on the canvas",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			page, err := parsePage(args[1])
			if err != nil {
				return err
			}
			f, err := os.Open(args[2])
			if err != nil {
				return err
			}
			defer f.Close()

			ctx, cancel := a.context(cmd)
			defer cancel()
			c := layout.New(a.api, id, page, a.log)
			c.Load(ctx)
			it, err := c.AddImage(ctx, filepath.Base(args[2]), f)
			if err != nil {
				return err
			}
			if err := c.Save(ctx); err != nil {
				return err
			}
			a.printf("Added %s (%s)\n", it.ID, it.Content)
			return nil
		},
	}

	cmd.AddCommand(get, set, addImage)
	return cmd
}

func newUploadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <demo-id> <image>",
		Short: "Upload an image asset and print its path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()
			ctx, cancel := a.context(cmd)
			defer cancel()
			path, err := a.api.UploadAsset(ctx, id, filepath.Base(args[1]), f)
			if err != nil {
				return err
			}
			a.printf("%s\n", path)
			return nil
		},
	}
}
