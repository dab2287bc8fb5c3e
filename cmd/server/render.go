package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"barangay/internal/documents/render"
)

type renderOptions struct {
	template string
	data     string
	out      string
	format   string
}

// renderCmd fills a template offline, for checking a template before upload.
func renderCmd() *cobra.Command {
	var opts renderOptions
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Fill a DOCX template and write DOCX, HTML or PDF output",
		Example: `  barangay render --template clearance.docx --data fields.json --out clearance.pdf
  barangay render --template clearance.docx --data fields.json --format html`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "DOCX template to fill")
	cmd.Flags().StringVarP(&opts.data, "data", "d", "", "JSON object of placeholder values")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file; format follows the extension, stdout when empty")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "docx, html or pdf")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

func runRender(cmd *cobra.Command, opts renderOptions) error {
	tpl, err := os.ReadFile(opts.template)
	if err != nil {
		return fmt.Errorf("read template: %w", err)
	}
	if err := render.Validate(tpl); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}
	data := map[string]string{}
	if opts.data != "" {
		raw, err := os.ReadFile(opts.data)
		if err != nil {
			return fmt.Errorf("read data: %w", err)
		}
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("parse data: %w", err)
		}
	}

	format := strings.ToLower(opts.format)
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(opts.out)), ".")
	}
	if format == "" {
		format = "html"
	}

	out, err := renderAs(tpl, data, format)
	if err != nil {
		return err
	}
	if opts.out == "" {
		_, err = cmd.OutOrStdout().Write(out)
		return err
	}
	if err := os.WriteFile(opts.out, out, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s (%d bytes)\n", opts.out, len(out))
	return nil
}

func renderAs(tpl []byte, data map[string]string, format string) ([]byte, error) {
	filled, err := render.Fill(tpl, data)
	if err != nil {
		return nil, err
	}
	switch format {
	case "docx":
		return filled, nil
	case "html", "htm":
		return render.ToHTML(filled)
	case "pdf":
		html, err := render.ToHTML(filled)
		if err != nil {
			return nil, err
		}
		return render.ToPDF(html)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}
