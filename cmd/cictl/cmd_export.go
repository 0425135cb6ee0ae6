package main

import (
	"fmt"
	"os"
	"path/filepath"

	"central-illustration/internal/models"

	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var format, out string
	cmd := &cobra.Command{
		Use:   "export <demo-id>",
		Short: "Export a demonstration as slides or PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			f := models.ExportFormat(format)
			if !f.Valid() {
				return fmt.Errorf("invalid format %q, use ppt_169, ppt_43, pdf_169 or pdf_43", format)
			}
			ctx, cancel := a.context(cmd)
			defer cancel()
			dl, err := a.api.Export(ctx, id, f)
			if err != nil {
				return err
			}
			if out == "" {
				out = filepath.Base(dl.Filename)
			}
			if err := os.WriteFile(out, dl.Data, 0o644); err != nil {
				return err
			}
			a.printf("Wrote %s (%d bytes)\n", out, len(dl.Data))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", string(models.ExportPDF169), "ppt_169, ppt_43, pdf_169 or pdf_43")
	cmd.Flags().StringVarP(&out, "out", "O", "", "output file (default: name sent by the server)")
	return cmd
}
