package cmd

import (
	"strings"

	"github.com/MeKo-Tech/pixkit/internal/pipeline"
	"github.com/spf13/cobra"
)

func newBatchCommand(a *app) *cobra.Command {
	ops := make([]string, 0, len(pipeline.Operations()))
	for _, op := range pipeline.Operations() {
		ops = append(ops, string(op))
	}

	c := &cobra.Command{
		Use:   "batch <operation> <files or directories...>",
		Short: "Run one operation over many images in parallel",
		Long: `Run upscale, matte, annotate or convert over files, directories and PDFs
with a pool of workers and print a summary of every input.

Operations: ` + strings.Join(ops, ", ") + `

Examples:
  pixkit batch matte images/ --recursive --workers 8 --output-dir clean
  pixkit batch upscale shots/ --factor 2 --include '*.png' --continue-on-error
  pixkit batch convert scans/ --format jpeg --summary-format json --summary-file report.json`,
		Args:         cobra.MinimumNArgs(2),
		SilenceUsage: true,
		ValidArgs:    ops,
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := pipeline.ParseOperation(args[0])
			if err != nil {
				return err
			}
			return a.runOperation(cmd, op, args[1:])
		},
	}

	fs := c.Flags()
	addUpscaleFlags(fs)
	addMatteFlags(fs)
	addOverlayFlags(fs)
	addOutputFlags(fs)
	addBatchFlags(fs)
	addPDFFlags(fs)
	return c
}
