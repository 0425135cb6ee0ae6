package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"central-illustration/internal/models"

	"github.com/spf13/cobra"
)

func newExtensionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "extensions",
		Aliases: []string{"ext", "templates"},
		Short:   "Browse templates and scaffold projects from them",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List available templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			exts, err := a.api.Extensions(ctx)
			if err != nil {
				return err
			}
			return a.render(exts, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "PATH\tNAME\tDESCRIPTION")
				for _, e := range exts {
					fmt.Fprintf(w, "%s\t%s\t%s\n", e.Path, e.Name, e.Description)
				}
			})
		},
	}

	info := &cobra.Command{
		Use:   "info <name>",
		Short: "Show a template's manifest and content files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			inf, err := a.api.ExtensionInfo(ctx, args[0])
			if err != nil {
				return err
			}
			return a.render(inf, func(w *tabwriter.Writer) {
				fmt.Fprintf(w, "NAME\t%s\n", inf.Name)
				fmt.Fprintf(w, "MANIFEST\t%t\n", inf.HasTemplate)
				printTree(w, inf.ContentStructure, "")
			})
		},
	}

	var req models.CreateFromExtensionRequest
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Scaffold a new project from a template and register it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()
			res, err := a.api.CreateFromExtension(ctx, args[0], req)
			if err != nil {
				return err
			}
			return a.render(res, func(w *tabwriter.Writer) {
				fmt.Fprintln(w, "DEMO\tFOLDER\tMESSAGE")
				fmt.Fprintf(w, "%d\t%s\t%s\n", res.DemoID, res.FolderName, res.Message)
			})
		},
	}
	create.Flags().StringVar(&req.Title, "title", "", "display title")
	create.Flags().StringVar(&req.FolderName, "folder", "", "new project folder name")
	create.Flags().StringVar(&req.Description, "description", "", "description")
	create.MarkFlagRequired("title")
	create.MarkFlagRequired("folder")

	cmd.AddCommand(list, info, create)
	return cmd
}

func printTree(w *tabwriter.Writer, nodes map[string]models.FileNode, indent string) {
	names := make([]string, 0, len(nodes))
	for n := range nodes {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		node := nodes[n]
		if node.Type == "directory" {
			fmt.Fprintf(w, "%s%s/\t\n", indent, n)
			printTree(w, node.Children, indent+"  ")
			continue
		}
		fmt.Fprintf(w, "%s%s\t%d bytes\n", indent, n, node.Size)
	}
}
