package main

import (
	"fmt"
	"text/tabwriter"

	"central-illustration/internal/models"

	"github.com/spf13/cobra"
)

func printDemos(w *tabwriter.Writer, demos ...models.Demonstration) {
	fmt.Fprintln(w, "ID\tTITLE\tFOLDER\tVISIBLE\tURL")
	for _, d := range demos {
		fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\n", d.ID, d.Title, d.FolderName, d.IsVisible, str(d.URL))
	}
}

func newDemosCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "demos",
		Aliases: []string{"demo"},
		Short:   "List and manage demonstrations",
	}
	cmd.AddCommand(
		newDemosListCmd(a),
		newDemosGetCmd(a),
		newDemosCreateCmd(a),
		newDemosUpdateCmd(a),
		newDemosDeleteCmd(a),
		newDemosVisibilityCmd(a, "show", true),
		newDemosVisibilityCmd(a, "hide", false),
	)
	return cmd
}

func newDemosListCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List demonstrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			demos, err := a.api.Demos(ctx, !all)
			if err != nil {
				return err
			}
			return a.render(demos, func(w *tabwriter.Writer) { printDemos(w, demos...) })
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include hidden demonstrations")
	return cmd
}

func newDemosGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one demonstration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			d, err := a.api.Demo(ctx, id)
			if err != nil {
				return err
			}
			return a.render(d, func(w *tabwriter.Writer) { printDemos(w, *d) })
		},
	}
}

func newDemosCreateCmd(a *app) *cobra.Command {
	var (
		in               models.DemonstrationCreate
		description, url string
		hidden           bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a demonstration for an existing project folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("description") {
				in.Description = &description
			}
			if cmd.Flags().Changed("url") {
				in.URL = &url
			}
			visible := !hidden
			in.IsVisible = &visible

			ctx, cancel := a.context(cmd)
			defer cancel()
			d, err := a.api.CreateDemo(ctx, in)
			if err != nil {
				return err
			}
			return a.render(d, func(w *tabwriter.Writer) { printDemos(w, *d) })
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Title, "title", "", "display title")
	f.StringVar(&in.FolderName, "folder", "", "project folder name")
	f.StringVar(&description, "description", "", "description")
	f.StringVar(&url, "url", "", "external URL")
	f.BoolVar(&hidden, "hidden", false, "create the demonstration hidden")
	cmd.MarkFlagRequired("title")
	cmd.MarkFlagRequired("folder")
	return cmd
}

func newDemosUpdateCmd(a *app) *cobra.Command {
	var title, description, url string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a demonstration's title, description or URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var in models.DemonstrationUpdate
			f := cmd.Flags()
			if f.Changed("title") {
				in.Title = &title
			}
			if f.Changed("description") {
				in.Description = &description
			}
			if f.Changed("url") {
				in.URL = &url
			}

			ctx, cancel := a.context(cmd)
			defer cancel()
			d, err := a.api.UpdateDemo(ctx, id, in)
			if err != nil {
				return err
			}
			return a.render(d, func(w *tabwriter.Writer) { printDemos(w, *d) })
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "display title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&url, "url", "", "external URL")
	return cmd
}

func newDemosVisibilityCmd(a *app, use string, visible bool) *cobra.Command {
	short := "Show a demonstration in the public listing"
	if !visible {
		short = "Hide a demonstration from the public listing"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			d, err := a.api.UpdateDemo(ctx, id, models.DemonstrationUpdate{IsVisible: &visible})
			if err != nil {
				return err
			}
			a.printf("%s is now %s\n", d.Title, map[bool]string{true: "visible", false: "hidden"}[d.IsVisible])
			return nil
		},
	}
}

func newDemosDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a demonstration record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !a.Confirm(fmt.Sprintf("Delete demonstration %d? This cannot be undone.", id)) {
				return errCanceled
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			if err := a.api.DeleteDemo(ctx, id); err != nil {
				return err
			}
			a.printf("Deleted demonstration %d\n", id)
			return nil
		},
	}
}
