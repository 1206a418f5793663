package cli

import (
	"github.com/spf13/cobra"

	"github.com/biomed-dq-validator/internal/report"
)

type validateOptions struct {
	dataset        datasetFlags
	format         string
	output         string
	failOnNotReady bool
	archive        bool
}

func registerValidateCmd(parent *cobra.Command, a *app) {
	opts := &validateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <dataset.json>",
		Short: "Run the full validation and print the scored report",
		Example: `  # Validate a longitudinal study export
  dqvalidate validate visits.json --patient-id RID --visit-date EXAMDATE

  # Write an HTML report
  dqvalidate validate visits.json --format html --output report.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runValidate(cmd, args[0], opts)
		},
	}

	opts.dataset.register(cmd)
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "report format: text, json, html or markdown")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", "report destination")
	cmd.Flags().BoolVar(&opts.failOnNotReady, "fail-on-not-ready", false, "exit non-zero when the dataset is not ready for ML")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "save the report to the configured archive")

	parent.AddCommand(cmd)
}

func (a *app) runValidate(cmd *cobra.Command, path string, opts *validateOptions) error {
	format, err := report.ParseFormat(opts.format)
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

	result, err := a.engine.Validate(cmd.Context(), table, validateOpts)
	if err != nil {
		return err
	}

	w, closeOutput, err := openOutput(cmd, opts.output)
	if err != nil {
		return err
	}
	if err := report.Render(w, result, format); err != nil {
		closeOutput()
		return err
	}
	if err := closeOutput(); err != nil {
		return err
	}

	if opts.archive {
		if err := a.archiveReport(cmd, result); err != nil {
			return err
		}
	}

	if opts.failOnNotReady && !result.Assessment.ReadyForML {
		return ErrNotReady
	}
	return nil
}
