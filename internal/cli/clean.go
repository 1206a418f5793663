package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/biomed-dq-validator/internal/domain"
	"github.com/biomed-dq-validator/internal/report"
)

type cleanOptions struct {
	dataset      datasetFlags
	clean        domain.CleanOptions
	keep         string
	output       string
	reportPath   string
	reportFormat string
	archive      bool
}

func registerCleanCmd(parent *cobra.Command, a *app) {
	opts := &cleanOptions{}

	cmd := &cobra.Command{
		Use:   "clean <dataset.json>",
		Short: "Clean a PHI-free dataset and validate the result",
		Long: `Remove duplicate rows and sparse columns from a dataset, then validate the
cleaned table. Datasets containing PHI are refused and nothing is written.

The cleaned table is written as JSON in the input layout; the report summary
goes to stderr unless --report names a file.`,
		Example: `  dqvalidate clean visits.json --patient-id RID --visit-date EXAMDATE \
    --remove-duplicates --drop-low-completeness --output visits.clean.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runClean(cmd, args[0], opts)
		},
	}

	opts.dataset.register(cmd)
	flags := cmd.Flags()
	flags.BoolVar(&opts.clean.RemoveDuplicates, "remove-duplicates", false, "drop duplicate rows")
	flags.StringSliceVar(&opts.clean.DuplicateSubset, "duplicate-subset", nil, "columns that define a duplicate (default: all)")
	flags.StringVar(&opts.keep, "keep", string(domain.KEEP_FIRST), "which duplicate to keep: first or last")
	flags.BoolVar(&opts.clean.DropLowCompleteness, "drop-low-completeness", false, "drop columns below the completeness threshold")
	flags.Float64Var(&opts.clean.DropThreshold, "drop-threshold", 0, "completeness fraction below which columns are dropped (default: config)")
	flags.StringVarP(&opts.output, "output", "o", "-", "cleaned table destination")
	flags.StringVar(&opts.reportPath, "report", "", "write the report of the cleaned table to this file")
	flags.StringVar(&opts.reportFormat, "report-format", "text", "report format: text, json, html or markdown")
	flags.BoolVar(&opts.archive, "archive", false, "save the report of the cleaned table to the configured archive")

	parent.AddCommand(cmd)
}

func (a *app) runClean(cmd *cobra.Command, path string, opts *cleanOptions) error {
	format, err := report.ParseFormat(opts.reportFormat)
	if err != nil {
		return err
	}

	req, err := opts.dataset.readDataset(path, cmd.InOrStdin())
	if err != nil {
		return err
	}
	table, err := req.Table()
	if err != nil {
		return err
	}
	validateOpts, err := req.Options()
	if err != nil {
		return err
	}

	cleanOpts := opts.clean
	cleanOpts.Keep = domain.KeepPolicy(opts.keep)

	result, err := a.engine.ValidateAndClean(cmd.Context(), table, validateOpts, cleanOpts)
	if err != nil {
		return err
	}
	if result.Refused {
		return fmt.Errorf("%w: %s", domain.ErrPHIDetected, result.Reason)
	}

	// Step 1: the cleaned table
	w, closeOutput, err := openOutput(cmd, opts.output)
	if err != nil {
		return err
	}
	if err := writeTable(w, result.Table); err != nil {
		closeOutput()
		return err
	}
	if err := closeOutput(); err != nil {
		return err
	}

	if opts.archive {
		if err := a.archiveReport(cmd, result.Report); err != nil {
			return err
		}
	}

	// Step 2: the operations log and the report
	stderr := cmd.ErrOrStderr()
	for _, op := range result.Operations {
		fmt.Fprintf(stderr, "%s: %d -> %d rows, %d columns removed (%s)\n",
			op.Operation, op.RowsBefore, op.RowsAfter, len(op.ColumnsRemoved), op.Details)
	}
	if opts.reportPath == "" {
		return report.Render(stderr, result.Report, report.FORMAT_TEXT)
	}

	rw, closeReport, err := openOutput(cmd, opts.reportPath)
	if err != nil {
		return err
	}
	if err := report.Render(rw, result.Report, format); err != nil {
		closeReport()
		return err
	}
	return closeReport()
}
